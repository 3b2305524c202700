package middleware

import (
	"fmt"
	"time"

	applogger "HyperTrade/pkg/logger"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	HeaderRequestID   = echo.HeaderXRequestID
	HeaderProcessTime = "X-Process-Time"

	requestIDKey = "request_id"
)

// RequestContext assigns a fresh request id, stamps X-Request-ID and
// X-Process-Time on every response and logs one line per request.
func RequestContext(l *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()
			start := time.Now()

			id := uuid.NewString()
			c.Set(requestIDKey, id)
			res.Header().Set(HeaderRequestID, id)
			res.Before(func() {
				res.Header().Set(HeaderProcessTime, fmt.Sprintf("%dms", time.Since(start).Milliseconds()))
			})

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			l.Info("http request",
				applogger.String("request_id", id),
				applogger.String("method", req.Method),
				applogger.String("route", routeLabel(c)),
				applogger.Int("status", res.Status),
				applogger.Duration("duration_ms", time.Since(start)),
				applogger.String("client_ip", c.RealIP()),
			)

			return nil
		}
	}
}

// RequestID returns the id assigned by RequestContext.
func RequestID(c echo.Context) string {
	if v, ok := c.Get(requestIDKey).(string); ok {
		return v
	}
	return c.Response().Header().Get(HeaderRequestID)
}
