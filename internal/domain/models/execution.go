package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ExecutionStatus is the terminal state of an order intent.
type ExecutionStatus string

const (
	StatusAccepted ExecutionStatus = "accepted"
	StatusRejected ExecutionStatus = "rejected"
	StatusFailed   ExecutionStatus = "failed"

	// StatusInProgress is never stored. It tells a duplicate delivery that
	// the owner of the key had not finished when the wait ran out.
	StatusInProgress ExecutionStatus = "in_progress"
)

// ErrExecutionInProgress is returned by idempotency stores when a duplicate
// gives up waiting for the owner of its key.
var ErrExecutionInProgress = errors.New("execution still in progress for idempotency key")

// FillState distinguishes resting, partially and fully filled acceptances.
type FillState string

const (
	FillNone    FillState = "none"
	FillPartial FillState = "partial"
	FillFull    FillState = "full"
)

// ExchangeAck is what the exchange client reports for an accepted order.
type ExchangeAck struct {
	OrderID    string
	FillPrice  decimal.NullDecimal
	FilledSize decimal.NullDecimal
}

// ExecutionResult is stored in the idempotency store and returned to every
// caller that presents the same key inside the retention window.
type ExecutionResult struct {
	IdempotencyKey string              `json:"idempotency_key"`
	Status         ExecutionStatus     `json:"status"`
	OrderID        string              `json:"order_id,omitempty"`
	FillPrice      decimal.NullDecimal `json:"fill_price"`
	FilledSize     decimal.NullDecimal `json:"filled_size"`
	Fill           FillState           `json:"fill,omitempty"`
	Reason         string              `json:"reason,omitempty"`
	ErrorKind      ErrorKind           `json:"error_kind,omitempty"`
	Attempts       int                 `json:"attempts"`
	CompletedAt    time.Time           `json:"completed_at"`
}

// Accepted builds an acceptance for intent, refusing fills larger than the
// requested size.
func Accepted(intent OrderIntent, ack ExchangeAck) (ExecutionResult, error) {
	res := ExecutionResult{
		IdempotencyKey: intent.IdempotencyKey,
		Status:         StatusAccepted,
		OrderID:        ack.OrderID,
		FillPrice:      ack.FillPrice,
		FilledSize:     ack.FilledSize,
		Fill:           FillNone,
		CompletedAt:    time.Now().UTC(),
	}
	if !ack.FilledSize.Valid || ack.FilledSize.Decimal.IsZero() {
		return res, nil
	}

	filled := ack.FilledSize.Decimal
	switch {
	case filled.IsNegative():
		return ExecutionResult{}, fmt.Errorf("negative fill size %s", filled)
	case filled.GreaterThan(intent.Size):
		return ExecutionResult{}, fmt.Errorf("fill size %s exceeds requested %s", filled, intent.Size)
	case filled.Equal(intent.Size):
		res.Fill = FillFull
	default:
		res.Fill = FillPartial
	}
	return res, nil
}

func Rejected(key, reason string) ExecutionResult {
	return ExecutionResult{
		IdempotencyKey: key,
		Status:         StatusRejected,
		Reason:         reason,
		ErrorKind:      KindExecutionRejected,
		CompletedAt:    time.Now().UTC(),
	}
}

func Failed(key string, kind ErrorKind, reason string) ExecutionResult {
	return ExecutionResult{
		IdempotencyKey: key,
		Status:         StatusFailed,
		Reason:         reason,
		ErrorKind:      kind,
		CompletedAt:    time.Now().UTC(),
	}
}

// InProgress is the answer to a duplicate that stopped waiting for the owner.
// It carries no error kind: the order may still be accepted by the owner.
func InProgress(key string) ExecutionResult {
	return ExecutionResult{
		IdempotencyKey: key,
		Status:         StatusInProgress,
		Reason:         "another delivery of this alert is still executing",
	}
}

// RemoteKind classifies exchange-side errors.
type RemoteKind string

const (
	RemoteRejected  RemoteKind = "rejected"  // exchange refused the order; never retried
	RemoteTransient RemoteKind = "transient" // worth another attempt
	RemoteUnknown   RemoteKind = "unknown"
)

// RemoteError is returned by exchange clients.
type RemoteError struct {
	Kind    RemoteKind
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("exchange %s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("exchange %s: %s", e.Kind, e.Message)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}
