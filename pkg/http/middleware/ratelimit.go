package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// Limiter decides whether key may proceed.
type Limiter interface {
	Take(key string) (allowed bool, remaining float64, retryAfter time.Duration)
	Capacity() float64
}

// RateLimitConfig configures RateLimit.
type RateLimitConfig struct {
	Limiter Limiter
	// KeyFunc returns the client key, usually the client IP.
	KeyFunc func(c echo.Context) string
	// Skip bypasses the limiter for the request.
	Skip func(c echo.Context) bool
	// OnLimited writes the 429 body. Headers are already set.
	OnLimited func(c echo.Context, retryAfter time.Duration) error
}

// RateLimit answers 429 with Retry-After when the client's bucket is empty.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(c echo.Context) string { return c.RealIP() }
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skip != nil && cfg.Skip(c) {
				return next(c)
			}

			allowed, remaining, retryAfter := cfg.Limiter.Take(cfg.KeyFunc(c))
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(int(cfg.Limiter.Capacity())))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(int(math.Floor(remaining))))

			if !allowed {
				secs := int(math.Ceil(retryAfter.Seconds()))
				if secs < 1 {
					secs = 1
				}
				h.Set("Retry-After", strconv.Itoa(secs))
				h.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(retryAfter).Unix(), 10))
				if cfg.OnLimited != nil {
					return cfg.OnLimited(c, retryAfter)
				}
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"status":  http.StatusTooManyRequests,
					"message": fmt.Sprintf("rate limit exceeded, retry in %ds", secs),
				})
			}
			return next(c)
		}
	}
}
