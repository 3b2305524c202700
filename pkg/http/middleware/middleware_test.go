package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	applogger "HyperTrade/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedLimiter struct {
	allow bool
}

func (f fixedLimiter) Take(string) (bool, float64, time.Duration) {
	if f.allow {
		return true, 4, 0
	}
	return false, 0, 1500 * time.Millisecond
}

func (f fixedLimiter) Capacity() float64 { return 5 }

func TestRequestContextStampsHeaders(t *testing.T) {
	e := echo.New()
	e.Use(RequestContext(applogger.Nop()))
	e.GET("/ping", func(c echo.Context) error {
		assert.NotEmpty(t, RequestID(c))
		return c.String(http.StatusOK, "pong")
	})
	e.GET("/fail", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusTeapot, "nope")
	})

	for _, path := range []string{"/ping", "/fail"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		assert.Len(t, rec.Header().Get(HeaderRequestID), 36, path)
		assert.Regexp(t, `^\d+ms$`, rec.Header().Get(HeaderProcessTime), path)
	}
}

func TestRecoverTurnsPanicInto500(t *testing.T) {
	e := echo.New()
	e.Use(RequestContext(applogger.Nop()), Recover(applogger.Nop()))
	e.GET("/boom", func(c echo.Context) error { panic("boom") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))
}

func TestRateLimit(t *testing.T) {
	for _, tc := range []struct {
		name    string
		limiter fixedLimiter
		skip    bool
		want    int
	}{
		{name: "allowed", limiter: fixedLimiter{allow: true}, want: http.StatusOK},
		{name: "limited", limiter: fixedLimiter{allow: false}, want: http.StatusTooManyRequests},
		{name: "skipped", limiter: fixedLimiter{allow: false}, skip: true, want: http.StatusOK},
	} {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			skip := tc.skip
			e.Use(RateLimit(RateLimitConfig{
				Limiter: tc.limiter,
				Skip:    func(echo.Context) bool { return skip },
			}))
			e.POST("/webhook", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook", nil))

			require.Equal(t, tc.want, rec.Code)
			if tc.want == http.StatusTooManyRequests {
				assert.Equal(t, "2", rec.Header().Get("Retry-After"))
				assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
				assert.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit"))
			}
		})
	}
}
