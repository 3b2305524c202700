package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"HyperTrade/internal/domain/models"
)

func ptr[T any](v T) *T { return &v }

func TestTelegramSend(t *testing.T) {
	var got sendMessageRequest
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tg := NewTelegram(srv.URL, time.Second, TelegramSettings{Enabled: true, BotToken: "123:abcdef", ChatID: "42"})
	require.True(t, tg.Enabled())
	require.NoError(t, tg.Send(context.Background(), "hello"))

	assert.Equal(t, "/bot123:abcdef/sendMessage", path)
	assert.Equal(t, "42", got.ChatID)
	assert.Equal(t, "hello", got.Text)
}

func TestTelegramSendAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer srv.Close()

	tg := NewTelegram(srv.URL, time.Second, TelegramSettings{Enabled: true, BotToken: "123:abcdef", ChatID: "42"})
	err := tg.Send(context.Background(), "hello")
	assert.ErrorContains(t, err, "chat not found")
}

func TestTelegramDisabledSkipsSend(t *testing.T) {
	tg := NewTelegram("http://127.0.0.1:1", time.Second, TelegramSettings{})
	assert.False(t, tg.Enabled())
	assert.NoError(t, tg.Send(context.Background(), "hello"))
}

func TestTelegramUpdate(t *testing.T) {
	tg := NewTelegram("", time.Second, TelegramSettings{})

	_, err := tg.Update(models.TelegramSettingsRequest{Enabled: ptr(true), BotToken: ptr("123:abcdef")})
	assert.ErrorIs(t, err, ErrCredentialsRequired)
	assert.False(t, tg.Enabled())

	s, err := tg.Update(models.TelegramSettingsRequest{Enabled: ptr(true), BotToken: ptr("123:abcdef"), ChatID: ptr("42")})
	require.NoError(t, err)
	assert.True(t, s.Enabled)
	assert.Equal(t, "******cdef", s.Masked().BotToken)

	s, err = tg.Update(models.TelegramSettingsRequest{ChatID: ptr("77")})
	require.NoError(t, err)
	assert.Equal(t, "77", s.ChatID)
	assert.Equal(t, "123:abcdef", s.BotToken)

	s, err = tg.Update(models.TelegramSettingsRequest{Enabled: ptr(false)})
	require.NoError(t, err)
	assert.False(t, s.Enabled)
	assert.False(t, tg.Enabled())

	// rotation is ignored while disabled
	s, err = tg.Update(models.TelegramSettingsRequest{ChatID: ptr("99")})
	require.NoError(t, err)
	assert.Equal(t, "77", s.ChatID)
}

func TestFormatOutcome(t *testing.T) {
	at := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	rec := models.AuditRecord{
		RequestID:    "req-1",
		Decision:     models.DecisionAccepted,
		Ticker:       "solusdt",
		Exchange:     "BINANCE",
		Action:       "buy",
		Contracts:    "1.5",
		Price:        "143.25",
		AlertTime:    &at,
		PositionFrom: "flat(0)",
		PositionTo:   "long(1.5)",
		Strategy:     "trend-follow",
		Interval:     "15",
		Signal:       models.SignalOpenLong,
		Side:         models.SideBuy,
		Leverage:     3,
		Comment:      "breakout",
		Results:      []models.ExecutionResult{{OrderID: "9001"}},
	}

	text := FormatOutcome(rec)
	assert.Contains(t, text, "Symbol: SOLUSDT @ BINANCE")
	assert.Contains(t, text, "Signal: OPEN_LONG | Side: buy | Leverage: 3x")
	assert.Contains(t, text, "Position: flat(0) -> long(1.5)")
	assert.Contains(t, text, "Times: time=2025-01-15T10:00:00Z now=-")
	assert.Contains(t, text, "Result: accepted order=9001")
	assert.Contains(t, text, "Comment: breakout")
	assert.Contains(t, text, "ReqID: req-1")
}
