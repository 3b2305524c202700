package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"HyperTrade/internal/domain/models"
	applogger "HyperTrade/pkg/logger"
)

func record(i int, decision models.Decision, ticker string) models.AuditRecord {
	return models.AuditRecord{
		RequestID:  fmt.Sprintf("req-%d", i),
		ReceivedAt: time.Date(2025, 1, 15, 10, 0, i, 0, time.UTC),
		Decision:   decision,
		Ticker:     ticker,
		Coin:       "SOL",
		Signal:     models.SignalOpenLong,
	}
}

func TestMemoryAuditStoreQuery(t *testing.T) {
	s := NewMemoryAuditStore(3)
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, record(1, models.DecisionAccepted, "SOLUSDT")))
	require.NoError(t, s.Write(ctx, record(2, models.DecisionIgnored, "SOLUSDT")))
	require.NoError(t, s.Write(ctx, record(3, models.DecisionAccepted, "BTCUSDT")))
	require.NoError(t, s.Write(ctx, record(4, models.DecisionAccepted, "SOLUSDT")))

	all, err := s.Query(ctx, models.AuditFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "req-4", all[0].RequestID)
	assert.Equal(t, "req-2", all[2].RequestID)

	accepted, err := s.Query(ctx, models.AuditFilter{Limit: 10, Decision: models.DecisionAccepted})
	require.NoError(t, err)
	assert.Len(t, accepted, 2)

	bySymbol, err := s.Query(ctx, models.AuditFilter{Limit: 10, Symbol: "btcusdt"})
	require.NoError(t, err)
	require.Len(t, bySymbol, 1)
	assert.Equal(t, "req-3", bySymbol[0].RequestID)

	limited, err := s.Query(ctx, models.AuditFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestMemoryAuditStoreStats(t *testing.T) {
	s := NewMemoryAuditStore(2)
	ctx := context.Background()
	for i := 1; i <= 4; i++ {
		d := models.DecisionAccepted
		if i%2 == 0 {
			d = models.DecisionRejected
		}
		require.NoError(t, s.Write(ctx, record(i, d, "SOLUSDT")))
	}

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 4, st.Total)
	assert.EqualValues(t, 2, st.ByDecision[models.DecisionAccepted])
	assert.EqualValues(t, 2, st.ByDecision[models.DecisionRejected])
	assert.EqualValues(t, 4, st.BySignal[string(models.SignalOpenLong)])
	require.NotNil(t, st.LastAt)
	assert.Equal(t, 4, st.LastAt.Second())
}

func TestBuildAuditQuery(t *testing.T) {
	q, args := buildAuditQuery("orders", models.AuditFilter{Limit: 50})
	assert.Equal(t, "SELECT payload FROM orders ORDER BY received_at DESC LIMIT ?", q)
	assert.Equal(t, []any{50}, args)

	q, args = buildAuditQuery("orders", models.AuditFilter{Limit: 5, Decision: models.DecisionFailed, Symbol: "sol"})
	assert.Equal(t, "SELECT payload FROM orders WHERE decision = ? AND (upper(ticker) = ? OR upper(coin) = ?) ORDER BY received_at DESC LIMIT ?", q)
	assert.Equal(t, []any{"failed", "SOL", "SOL", 5}, args)
}

func TestJournalSinkWritesJSONLine(t *testing.T) {
	var buf bytes.Buffer
	l, err := applogger.NewWithWriter(&buf, &applogger.Config{Level: "info", Format: "json"})
	require.NoError(t, err)

	j := NewJournalSink(l)
	require.NoError(t, j.Write(context.Background(), record(7, models.DecisionDenied, "SOLUSDT")))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "req-7", line["request_id"])
	assert.Equal(t, "denied", line["decision"])
	rec := line["record"].(map[string]any)
	assert.Equal(t, "SOLUSDT", rec["ticker"])
}
