// Package metrics holds exchange client instrumentation.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	ExchangeLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hypertrade",
			Subsystem: "exchange",
			Name:      "request_duration_seconds",
			Help:      "Latency of Hyperliquid requests by endpoint",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint", "transport"},
	)

	ExchangeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hypertrade",
			Subsystem: "exchange",
			Name:      "errors_total",
			Help:      "Hyperliquid request errors by endpoint and kind",
		},
		[]string{"endpoint", "kind"},
	)
)

// Register adds the exchange collectors to reg once per process.
func Register(reg prometheus.Registerer) {
	once.Do(func() {
		reg.MustRegister(ExchangeLatency, ExchangeErrors)
	})
}

// ObserveRequest records one exchange round trip.
func ObserveRequest(endpoint, transport string, start time.Time) {
	ExchangeLatency.WithLabelValues(endpoint, transport).Observe(time.Since(start).Seconds())
}

// ObserveError counts a failed exchange request.
func ObserveError(endpoint, kind string) {
	ExchangeErrors.WithLabelValues(endpoint, kind).Inc()
}
