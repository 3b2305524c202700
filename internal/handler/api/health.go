package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	xhttp "HyperTrade/pkg/http"
	applogger "HyperTrade/pkg/logger"
)

// Pinger reports whether the exchange answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	exchange Pinger
	timeout  time.Duration
	logger   *applogger.Logger
}

func NewHealthHandler(exchange Pinger, logger *applogger.Logger) *HealthHandler {
	return &HealthHandler{exchange: exchange, timeout: 5 * time.Second, logger: logger}
}

func (h *HealthHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
	e.GET("/ready", h.Ready)
}

// Health is the liveness probe.
func (h *HealthHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "alive"})
}

// Ready checks exchange connectivity.
func (h *HealthHandler) Ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	if err := h.exchange.Ping(ctx); err != nil {
		h.logger.Warn("readiness check failed", applogger.Error(err))
		return xhttp.DataResponse(c, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ready"})
}
