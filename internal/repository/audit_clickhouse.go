package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"HyperTrade/internal/domain/models"
	pkgch "HyperTrade/pkg/clickhouse"
	applogger "HyperTrade/pkg/logger"
)

// ClickHouseAuditStore persists audit records to an orders table and serves
// the admin queries from it.
type ClickHouseAuditStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewClickHouseAuditStore(ch *pkgch.Client, table string) *ClickHouseAuditStore {
	return &ClickHouseAuditStore{db: ch.DB(), table: table}
}

// SetLogger injects a structured logger.
func (s *ClickHouseAuditStore) SetLogger(l *applogger.Logger) { s.l = l }

// AuditSchema returns the DDL for the orders table.
func AuditSchema(table string) []string {
	return []string{fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            received_at DateTime64(3, 'UTC'),
            request_id String,
            decision LowCardinality(String),
            error_kind LowCardinality(String),
            code LowCardinality(String),
            signal LowCardinality(String),
            ticker String,
            coin LowCardinality(String),
            side LowCardinality(String),
            leverage UInt16,
            idempotency_key String,
            order_id String,
            payload String
        ) ENGINE = MergeTree
        ORDER BY (received_at, request_id)
    `, table)}
}

func (s *ClickHouseAuditStore) Name() string { return "clickhouse" }

func (s *ClickHouseAuditStore) Write(ctx context.Context, rec models.AuditRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode audit record: %w", err)
	}
	q := fmt.Sprintf(`INSERT INTO %s (received_at, request_id, decision, error_kind, code, signal, ticker, coin, side, leverage, idempotency_key, order_id, payload)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table)
	_, err = s.db.ExecContext(ctx, q,
		rec.ReceivedAt.UTC(),
		rec.RequestID,
		string(rec.Decision),
		string(rec.ErrorKind),
		rec.Code,
		string(rec.Signal),
		rec.Ticker,
		rec.Coin,
		string(rec.Side),
		uint16(rec.Leverage),
		rec.IdempotencyKey,
		rec.OrderID(),
		string(payload),
	)
	if err != nil && s.l != nil {
		s.l.Error("clickhouse audit insert error",
			applogger.String("table", s.table),
			applogger.String("request_id", rec.RequestID),
			applogger.Error(err),
		)
	}
	return err
}

// buildAuditQuery renders the admin listing query for f.
func buildAuditQuery(table string, f models.AuditFilter) (string, []any) {
	var where []string
	var args []any
	if f.Decision != "" {
		where = append(where, "decision = ?")
		args = append(args, string(f.Decision))
	}
	if f.Symbol != "" {
		where = append(where, "(upper(ticker) = ? OR upper(coin) = ?)")
		sym := strings.ToUpper(f.Symbol)
		args = append(args, sym, sym)
	}

	q := "SELECT payload FROM " + table
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY received_at DESC LIMIT ?"
	args = append(args, f.Limit)
	return q, args
}

func (s *ClickHouseAuditStore) Query(ctx context.Context, f models.AuditFilter) ([]models.AuditRecord, error) {
	q, args := buildAuditQuery(s.table, f)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	defer rows.Close()

	out := make([]models.AuditRecord, 0, f.Limit)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		var rec models.AuditRecord
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			return nil, fmt.Errorf("decode audit: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *ClickHouseAuditStore) Stats(ctx context.Context) (models.AuditStats, error) {
	stats := models.AuditStats{
		ByDecision: make(map[models.Decision]int64),
		BySignal:   make(map[string]int64),
	}

	q := fmt.Sprintf("SELECT decision, signal, count() FROM %s GROUP BY decision, signal", s.table)
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return stats, fmt.Errorf("audit stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var decision, signal string
		var n uint64
		if err := rows.Scan(&decision, &signal, &n); err != nil {
			return stats, fmt.Errorf("scan stats: %w", err)
		}
		stats.Total += int64(n)
		stats.ByDecision[models.Decision(decision)] += int64(n)
		if signal != "" {
			stats.BySignal[signal] += int64(n)
		}
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}

	var last time.Time
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT max(received_at) FROM %s", s.table)).Scan(&last); err != nil {
		return stats, fmt.Errorf("audit last: %w", err)
	}
	if stats.Total > 0 {
		stats.LastAt = &last
	}
	return stats, nil
}
