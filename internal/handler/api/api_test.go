package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"HyperTrade/internal/domain/models"
	drepo "HyperTrade/internal/domain/repository"
	"HyperTrade/internal/repository"
	"HyperTrade/internal/service/guard"
	"HyperTrade/internal/service/hyperliquid"
	"HyperTrade/internal/service/idempotency"
	"HyperTrade/internal/service/notify"
	"HyperTrade/internal/service/ratelimit"
	"HyperTrade/internal/service/risk"
	"HyperTrade/internal/service/schema"
	"HyperTrade/internal/testutil"
	"HyperTrade/internal/usecase"
	"HyperTrade/pkg/cache"
	xhttp "HyperTrade/pkg/http"
	"HyperTrade/pkg/http/middleware"
	"HyperTrade/pkg/logger"
	"HyperTrade/pkg/metrics"
	"HyperTrade/pkg/queue"
)

const (
	tradingViewIP = "52.89.214.238"
	secret        = "tv-secret"
)

type apiFixture struct {
	server   *xhttp.Server
	exchange *testutil.MockExchange
	audit    *repository.MemoryAuditStore
}

type fixtureOptions struct {
	guard   guard.Config
	limiter middleware.Limiter
}

func newAPI(t *testing.T, opts fixtureOptions) apiFixture {
	t.Helper()
	log := logger.Nop()

	g, err := guard.New(opts.guard)
	require.NoError(t, err)
	b, err := risk.NewBuilder(risk.Policy{
		ActiveCoin:   "SOL",
		Assets:       []risk.AssetPolicy{{Coin: "SOL", MaxLeverage: 5}},
		LeverageMode: risk.ModeReject,
	})
	require.NoError(t, err)

	c := cache.NewMemoryCache()
	t.Cleanup(func() { _ = c.Close() })
	store := idempotency.NewStore(c, idempotency.Config{Retention: time.Minute, WaitTimeout: time.Second, PollInterval: 2 * time.Millisecond})

	ex := &testutil.MockExchange{}
	executor := usecase.NewOrderExecutor(ex, store, metrics.Nop{}, log, usecase.ExecutorConfig{
		Timeout:     time.Second,
		MaxAttempts: 2,
		BackoffMin:  time.Millisecond,
		BackoffMax:  2 * time.Millisecond,
	})

	audit := repository.NewMemoryAuditStore(100)
	telegram := notify.NewTelegram("", time.Second, notify.TelegramSettings{})
	q := queue.NewMemoryQueue(log, &queue.QueueConfig{Workers: 1, QueueSize: 8})
	notifier := usecase.NewOutcomeNotifier([]drepo.AuditSink{audit}, nil, telegram, q, metrics.Nop{}, log)

	relay := usecase.NewSignalRelay(g, schema.New(), b, executor, notifier, metrics.Nop{}, log, true)
	router := NewRouter(
		NewWebhookHandler(relay, g, opts.limiter, log),
		NewHealthHandler(hyperliquid.NewMockClient("", log), log),
		NewAdminHandler(g, audit, telegram, log),
	)
	srv := xhttp.NewServer(router, xhttp.WithMetrics(false, ""), xhttp.WithLogger(log))
	return apiFixture{server: srv, exchange: ex, audit: audit}
}

func (f apiFixture) do(r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.server.Echo().ServeHTTP(rec, r)
	return rec
}

func webhook(body []byte, ip string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("X-Forwarded-For", ip)
	return r
}

func signedAlert() map[string]any {
	return testutil.Set(testutil.Alert(), "general.secret", secret)
}

func ack(t *testing.T, rec *httptest.ResponseRecorder) WebhookAck {
	t.Helper()
	var resp struct {
		Data WebhookAck `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Data
}

func lastAudit(t *testing.T, f apiFixture) models.AuditRecord {
	t.Helper()
	recs, err := f.audit.Query(context.Background(), models.AuditFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	return recs[0]
}

func TestHealth(t *testing.T) {
	f := newAPI(t, fixtureOptions{})

	rec := f.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"alive"`)
	assert.NotEmpty(t, rec.Header().Get(middleware.HeaderRequestID))

	rec = f.do(httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ready"`)
}

func TestWebhookOpenLong(t *testing.T) {
	f := newAPI(t, fixtureOptions{guard: guard.Config{Secret: secret, IPAllowlistEnabled: true, AllowedIPs: []string{tradingViewIP}, TrustForwardedFor: true}})
	alert := testutil.Set(signedAlert(), "order.price", "100.25")

	f.exchange.On("SubmitOrder", mock.Anything, mock.MatchedBy(func(in models.OrderIntent) bool {
		return in.Side == models.SideBuy && !in.ReduceOnly && in.Size.Equal(decimal.RequireFromString("1.5"))
	})).Return(models.ExchangeAck{OrderID: "42"}, nil).Once()

	rec := f.do(webhook(testutil.JSON(alert), tradingViewIP))

	assert.Equal(t, http.StatusOK, rec.Code)
	id := rec.Header().Get(middleware.HeaderRequestID)
	assert.NotEmpty(t, id)
	assert.Regexp(t, `^\d+ms$`, rec.Header().Get(middleware.HeaderProcessTime))
	assert.Equal(t, WebhookAck{Status: "ok", RequestID: id}, ack(t, rec))

	audit := lastAudit(t, f)
	assert.Equal(t, models.DecisionAccepted, audit.Decision)
	assert.Equal(t, "42", audit.OrderID())
	f.exchange.AssertExpectations(t)
}

func TestWebhookReplayIsServedFromStore(t *testing.T) {
	f := newAPI(t, fixtureOptions{})
	body := testutil.JSON(testutil.Alert())
	f.exchange.On("SubmitOrder", mock.Anything, mock.Anything).Return(models.ExchangeAck{OrderID: "42"}, nil).Once()

	for i := 0; i < 2; i++ {
		rec := f.do(webhook(body, "10.0.0.1"))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ok", ack(t, rec).Status)
	}
	f.exchange.AssertNumberOfCalls(t, "SubmitOrder", 1)
}

func TestWebhookForbiddenSource(t *testing.T) {
	f := newAPI(t, fixtureOptions{guard: guard.Config{IPAllowlistEnabled: true, AllowedIPs: []string{tradingViewIP}, TrustForwardedFor: true}})

	rec := f.do(webhook(testutil.JSON(testutil.Alert()), "198.51.100.20"))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(middleware.HeaderRequestID))
	audit := lastAudit(t, f)
	assert.Equal(t, models.KindAuth, audit.ErrorKind)
	assert.Equal(t, "198.51.100.20", audit.ClientIP)
	f.exchange.AssertNotCalled(t, "SubmitOrder", mock.Anything, mock.Anything)
}

func TestWebhookCloseLongWhileShort(t *testing.T) {
	f := newAPI(t, fixtureOptions{})
	alert := testutil.Alert()
	testutil.Set(alert, "order.action", "close_long")
	testutil.Set(alert, "position.position_size", "-1.5")
	testutil.Set(alert, "market.position", "short")
	testutil.Set(alert, "market.position_size", "1.5")

	rec := f.do(webhook(testutil.JSON(alert), "10.0.0.1"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ignored", ack(t, rec).Status)
	audit := lastAudit(t, f)
	assert.Equal(t, models.KindPolicy, audit.ErrorKind)
	assert.Equal(t, models.CodeInconsistent, audit.Code)
	f.exchange.AssertNotCalled(t, "SubmitOrder", mock.Anything, mock.Anything)
}

func TestWebhookExchangeRejectionIsAcknowledged(t *testing.T) {
	f := newAPI(t, fixtureOptions{})
	f.exchange.On("SubmitOrder", mock.Anything, mock.Anything).
		Return(models.ExchangeAck{}, &models.RemoteError{Kind: models.RemoteRejected, Message: "insufficient margin"}).Once()

	rec := f.do(webhook(testutil.JSON(testutil.Alert()), "10.0.0.1"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ignored", ack(t, rec).Status)
	assert.NotContains(t, rec.Body.String(), "margin")
	assert.Equal(t, models.DecisionRejected, lastAudit(t, f).Decision)
}

func TestWebhookStatusCodes(t *testing.T) {
	tests := []struct {
		name   string
		opts   fixtureOptions
		req    func() *http.Request
		status int
		kind   models.ErrorKind
	}{
		{
			name: "wrong content type",
			req: func() *http.Request {
				r := webhook(testutil.JSON(testutil.Alert()), "10.0.0.1")
				r.Header.Set("Content-Type", "text/plain")
				return r
			},
			status: http.StatusUnsupportedMediaType,
			kind:   models.KindTransport,
		},
		{
			name: "payload too large",
			opts: fixtureOptions{guard: guard.Config{MaxPayloadBytes: 64}},
			req: func() *http.Request {
				return webhook(testutil.JSON(testutil.Alert()), "10.0.0.1")
			},
			status: http.StatusRequestEntityTooLarge,
			kind:   models.KindTransport,
		},
		{
			name: "missing secret",
			opts: fixtureOptions{guard: guard.Config{Secret: secret}},
			req: func() *http.Request {
				return webhook(testutil.JSON(testutil.Alert()), "10.0.0.1")
			},
			status: http.StatusUnauthorized,
			kind:   models.KindAuth,
		},
		{
			name: "missing section",
			req: func() *http.Request {
				return webhook(testutil.JSON(testutil.Delete(testutil.Alert(), "order")), "10.0.0.1")
			},
			status: http.StatusUnprocessableEntity,
			kind:   models.KindSchema,
		},
		{
			name: "numeric contracts",
			req: func() *http.Request {
				return webhook(testutil.JSON(testutil.Set(testutil.Alert(), "order.contracts", 1.5)), "10.0.0.1")
			},
			status: http.StatusUnprocessableEntity,
			kind:   models.KindSchema,
		},
		{
			name: "timestamp without zone",
			req: func() *http.Request {
				return webhook(testutil.JSON(testutil.Set(testutil.Alert(), "general.time", "2025-01-15T10:00:00")), "10.0.0.1")
			},
			status: http.StatusBadRequest,
			kind:   models.KindParse,
		},
		{
			name: "untrusted host",
			opts: fixtureOptions{guard: guard.Config{TrustedHostsEnabled: true, TrustedHosts: []string{"hooks.example.com"}}},
			req: func() *http.Request {
				return webhook(testutil.JSON(testutil.Alert()), "10.0.0.1")
			},
			status: http.StatusBadRequest,
			kind:   models.KindTransport,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAPI(t, tt.opts)
			rec := f.do(tt.req())

			assert.Equal(t, tt.status, rec.Code)
			assert.NotEmpty(t, rec.Header().Get(middleware.HeaderRequestID))
			assert.NotEmpty(t, rec.Header().Get(middleware.HeaderProcessTime))
			assert.Equal(t, tt.kind, lastAudit(t, f).ErrorKind)
			f.exchange.AssertNotCalled(t, "SubmitOrder", mock.Anything, mock.Anything)
		})
	}
}

func TestWebhookRateLimit(t *testing.T) {
	f := newAPI(t, fixtureOptions{
		guard:   guard.Config{IPAllowlistEnabled: true, AllowedIPs: []string{tradingViewIP}, TrustForwardedFor: true},
		limiter: ratelimit.New(1, 0.001),
	})
	alert := testutil.Set(testutil.Alert(), "order.action", "close_short")
	body := testutil.JSON(alert)

	// the limiter runs before the allow-list refuses the source
	assert.Equal(t, http.StatusForbidden, f.do(webhook(body, "10.0.0.1")).Code)
	rec := f.do(webhook(body, "10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "ERR_RATE_LIMITED")

	// allow-listed sources bypass the limiter
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, f.do(webhook(body, tradingViewIP)).Code)
	}
}

func TestWebhookRateLimitWithAllowListDisabled(t *testing.T) {
	f := newAPI(t, fixtureOptions{
		guard:   guard.Config{AllowedIPs: []string{tradingViewIP}, TrustForwardedFor: true},
		limiter: ratelimit.New(1, 0.001),
	})
	body := testutil.JSON(testutil.Set(testutil.Alert(), "order.action", "close_short"))

	assert.Equal(t, http.StatusOK, f.do(webhook(body, tradingViewIP)).Code)
	assert.Equal(t, http.StatusTooManyRequests, f.do(webhook(body, tradingViewIP)).Code)
}

func adminRequest(method, path, token string, body string) *http.Request {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	return r
}

func TestAdminAuth(t *testing.T) {
	open := newAPI(t, fixtureOptions{})
	assert.Equal(t, http.StatusForbidden, open.do(adminRequest(http.MethodGet, "/admin/stats", "anything", "")).Code)

	f := newAPI(t, fixtureOptions{guard: guard.Config{Secret: secret}})
	assert.Equal(t, http.StatusUnauthorized, f.do(adminRequest(http.MethodGet, "/admin/stats", "", "")).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(adminRequest(http.MethodGet, "/admin/stats", "wrong", "")).Code)
	assert.Equal(t, http.StatusOK, f.do(adminRequest(http.MethodGet, "/admin/stats", secret, "")).Code)
}

func TestAdminOrdersAndStats(t *testing.T) {
	f := newAPI(t, fixtureOptions{guard: guard.Config{Secret: secret}})
	f.exchange.On("SubmitOrder", mock.Anything, mock.Anything).Return(models.ExchangeAck{OrderID: "42"}, nil)

	f.do(webhook(testutil.JSON(signedAlert()), "10.0.0.1"))
	f.do(webhook(testutil.JSON(testutil.Alert()), "10.0.0.1")) // no secret

	rec := f.do(adminRequest(http.MethodGet, "/admin/orders?status=accepted&symbol=solusdt", secret, ""))
	require.Equal(t, http.StatusOK, rec.Code)
	var orders struct {
		Data struct {
			Rows  []models.AuditRecord `json:"rows"`
			Total int64                `json:"total"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orders))
	assert.EqualValues(t, 1, orders.Data.Total)
	assert.Equal(t, "42", orders.Data.Rows[0].OrderID())

	rec = f.do(adminRequest(http.MethodGet, "/admin/orders?limit=0", secret, ""))
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(adminRequest(http.MethodGet, "/admin/orders?status=bogus", secret, ""))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(adminRequest(http.MethodGet, "/admin/stats", secret, ""))
	require.Equal(t, http.StatusOK, rec.Code)
	var stats struct {
		Data models.AuditStats `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.EqualValues(t, 2, stats.Data.Total)
	assert.EqualValues(t, 1, stats.Data.ByDecision[models.DecisionDenied])
}

func TestAdminTelegram(t *testing.T) {
	f := newAPI(t, fixtureOptions{guard: guard.Config{Secret: secret}})

	rec := f.do(adminRequest(http.MethodPost, "/admin/telegram", secret, `{"enabled":true}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(adminRequest(http.MethodPost, "/admin/telegram", secret, `{"enabled":true,"bot_token":"123456:abcdef","chat_id":"-1001"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data notify.TelegramSettings `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Data.Enabled)
	assert.Equal(t, "-1001", resp.Data.ChatID)
	assert.NotContains(t, resp.Data.BotToken, "123456")

	rec = f.do(adminRequest(http.MethodGet, "/admin/telegram", secret, ""))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"telegram_enabled":true`)
}
