package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	decisions       *prometheus.CounterVec
	executions      *prometheus.CounterVec
	attempts        prometheus.Histogram
	executionTime   *prometheus.HistogramVec
	idempotencyHits prometheus.Counter
	notifyDropped   *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
}

// New registers the recorder on the default registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the recorder on reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		decisions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hypertrade_webhook_decisions_total",
				Help: "Webhook outcomes by decision and error kind",
			},
			[]string{"decision", "kind"},
		),
		executions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hypertrade_executions_total",
				Help: "Terminal order execution results",
			},
			[]string{"status"},
		),
		attempts: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "hypertrade_execution_attempts",
				Help:    "Exchange submission attempts per order intent",
				Buckets: []float64{1, 2, 3, 4, 5},
			},
		),
		executionTime: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hypertrade_execution_duration_seconds",
				Help:    "Time from first submission to terminal result",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		idempotencyHits: f.NewCounter(
			prometheus.CounterOpts{
				Name: "hypertrade_idempotency_hits_total",
				Help: "Order intents answered from the idempotency store",
			},
		),
		notifyDropped: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hypertrade_notifications_dropped_total",
				Help: "Notifications or async audit writes that were not delivered",
			},
			[]string{"reason"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hypertrade_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
	}
}

// RecordDecision counts one webhook outcome.
func (r *Recorder) RecordDecision(decision, kind string) {
	r.decisions.WithLabelValues(decision, kind).Inc()
}

// RecordExecution records one terminal execution.
func (r *Recorder) RecordExecution(status string, attempts int, d time.Duration) {
	r.executions.WithLabelValues(status).Inc()
	r.attempts.Observe(float64(attempts))
	r.executionTime.WithLabelValues(status).Observe(d.Seconds())
}

func (r *Recorder) RecordIdempotencyHit() {
	r.idempotencyHits.Inc()
}

func (r *Recorder) RecordNotificationDropped(reason string) {
	r.notifyDropped.WithLabelValues(reason).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// Nop discards every observation.
type Nop struct{}

func (Nop) RecordDecision(string, string) {}
func (Nop) RecordExecution(string, int, time.Duration) {}
func (Nop) RecordIdempotencyHit() {}
func (Nop) RecordNotificationDropped(string) {}
func (Nop) RecordError(string) {}
