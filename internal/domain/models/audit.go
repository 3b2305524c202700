package models

import (
	"strings"
	"time"
)

// Decision is the terminal disposition of one webhook request.
type Decision string

const (
	DecisionAccepted Decision = "accepted" // every leg accepted by the exchange
	DecisionIgnored  Decision = "ignored"  // policy said no; nothing submitted
	DecisionRejected Decision = "rejected" // exchange refused an order
	DecisionFailed   Decision = "failed"   // exchange outcome unknown or errored
	DecisionDenied   Decision = "denied"   // transport or auth guard refused
	DecisionInvalid  Decision = "invalid"  // schema or parse failure

	DecisionDuplicate Decision = "duplicate" // another delivery still owns execution
)

// DecisionFor maps a pipeline error kind to its decision.
func DecisionFor(kind ErrorKind) Decision {
	switch kind {
	case KindTransport, KindAuth:
		return DecisionDenied
	case KindSchema, KindParse:
		return DecisionInvalid
	case KindPolicy:
		return DecisionIgnored
	case KindExecutionRejected:
		return DecisionRejected
	case "":
		return DecisionAccepted
	}
	return DecisionFailed
}

// AuditRecord is emitted exactly once per webhook request.
type AuditRecord struct {
	RequestID  string    `json:"request_id"`
	ReceivedAt time.Time `json:"received_at"`
	ClientIP   string    `json:"client_ip,omitempty"`
	DurationMs int64     `json:"duration_ms"`

	Decision  Decision  `json:"decision"`
	ErrorKind ErrorKind `json:"error_kind,omitempty"`
	Code      string    `json:"code,omitempty"`
	Field     string    `json:"field,omitempty"`
	Reason    string    `json:"reason,omitempty"`

	Strategy     string     `json:"strategy,omitempty"`
	Ticker       string     `json:"ticker,omitempty"`
	Exchange     string     `json:"exchange,omitempty"`
	Interval     string     `json:"interval,omitempty"`
	Action       string     `json:"action,omitempty"`
	Contracts    string     `json:"contracts,omitempty"`
	Price        string     `json:"price,omitempty"`
	AlertTime    *time.Time `json:"alert_time,omitempty"`
	FireTime     *time.Time `json:"fire_time,omitempty"`
	PositionFrom string     `json:"position_from,omitempty"`
	PositionTo   string     `json:"position_to,omitempty"`
	Comment      string     `json:"comment,omitempty"`

	Signal         SignalType        `json:"signal,omitempty"`
	Coin           string            `json:"coin,omitempty"`
	Side           Side              `json:"side,omitempty"`
	Leverage       int               `json:"leverage,omitempty"`
	IdempotencyKey string            `json:"idempotency_key,omitempty"`
	Results        []ExecutionResult `json:"results,omitempty"`
}

// OrderID returns the exchange order ids of accepted legs, comma separated.
func (r AuditRecord) OrderID() string {
	ids := make([]string, 0, len(r.Results))
	for _, res := range r.Results {
		if res.OrderID != "" {
			ids = append(ids, res.OrderID)
		}
	}
	return strings.Join(ids, ",")
}

// AuditFilter narrows admin queries over stored audit records.
type AuditFilter struct {
	Limit    int
	Decision Decision
	Symbol   string
}

// Matches reports whether rec passes the filter (limit aside).
func (f AuditFilter) Matches(rec AuditRecord) bool {
	if f.Decision != "" && rec.Decision != f.Decision {
		return false
	}
	if f.Symbol != "" && !strings.EqualFold(rec.Ticker, f.Symbol) && !strings.EqualFold(rec.Coin, f.Symbol) {
		return false
	}
	return true
}

// AuditStats aggregates stored audit records.
type AuditStats struct {
	Total      int64              `json:"total"`
	ByDecision map[Decision]int64 `json:"by_decision"`
	BySignal   map[string]int64   `json:"by_signal"`
	LastAt     *time.Time         `json:"last_at,omitempty"`
}
