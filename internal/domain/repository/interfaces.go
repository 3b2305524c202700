package repository

import (
	"context"
	"time"

	"HyperTrade/internal/domain/models"
)

// ExchangeClient submits one order intent and reports the exchange's
// acknowledgment. Rejections are returned as *models.RemoteError with
// RemoteRejected; anything else non-nil is a transport or unknown failure.
type ExchangeClient interface {
	SubmitOrder(ctx context.Context, intent models.OrderIntent) (models.ExchangeAck, error)
	// Ping checks that the exchange answers reference data queries.
	Ping(ctx context.Context) error
	Close() error
}

// IdempotencyStore records one terminal result per idempotency key.
type IdempotencyStore interface {
	// Begin atomically claims key. When another caller already owns it,
	// Begin waits for that caller's result and returns it with owner=false.
	Begin(ctx context.Context, key string) (result *models.ExecutionResult, owner bool, err error)
	// Complete stores the owner's terminal result for the retention window.
	Complete(ctx context.Context, key string, result models.ExecutionResult) error
}

// AuditSink persists audit records.
type AuditSink interface {
	Name() string
	Write(ctx context.Context, rec models.AuditRecord) error
}

// AuditStore is an AuditSink that can also answer admin queries.
type AuditStore interface {
	AuditSink
	Query(ctx context.Context, filter models.AuditFilter) ([]models.AuditRecord, error)
	Stats(ctx context.Context) (models.AuditStats, error)
}

// NotificationChannel delivers human readable outcome messages.
type NotificationChannel interface {
	Enabled() bool
	Send(ctx context.Context, text string) error
}

type Metrics interface {
	RecordDecision(decision, kind string)
	RecordExecution(status string, attempts int, d time.Duration)
	RecordIdempotencyHit()
	RecordNotificationDropped(reason string)
	RecordError(kind string)
}
