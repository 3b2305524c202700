package notify

import (
	"fmt"
	"strings"
	"time"

	"HyperTrade/internal/domain/models"
)

// FormatOutcome renders the chat summary of an audit record.
func FormatOutcome(rec models.AuditRecord) string {
	lines := []string{
		"HyperTrade Webhook",
		fmt.Sprintf("Symbol: %s @ %s", strings.ToUpper(rec.Ticker), rec.Exchange),
		fmt.Sprintf("Signal: %s | Side: %s | Leverage: %s", orDash(string(rec.Signal)), orDash(string(rec.Side)), leverage(rec.Leverage)),
		fmt.Sprintf("Order: action=%s contracts=%s price=%s", rec.Action, rec.Contracts, orDash(rec.Price)),
		fmt.Sprintf("Position: %s -> %s", rec.PositionFrom, rec.PositionTo),
		fmt.Sprintf("Strategy: %s | Interval: %s", orDash(rec.Strategy), rec.Interval),
		fmt.Sprintf("Times: time=%s now=%s", instant(rec.AlertTime), instant(rec.FireTime)),
		fmt.Sprintf("Result: %s", result(rec)),
	}
	if rec.Comment != "" {
		lines = append(lines, "Comment: "+rec.Comment)
	}
	if rec.RequestID != "" {
		lines = append(lines, "ReqID: "+rec.RequestID)
	}
	return strings.Join(lines, "\n")
}

func result(rec models.AuditRecord) string {
	switch rec.Decision {
	case models.DecisionAccepted:
		return fmt.Sprintf("accepted order=%s", orDash(rec.OrderID()))
	case models.DecisionIgnored:
		return fmt.Sprintf("ignored (%s)", rec.Code)
	}
	return fmt.Sprintf("%s (%s)", rec.Decision, rec.ErrorKind)
}

func leverage(n int) string {
	if n == 0 {
		return "-"
	}
	return fmt.Sprintf("%dx", n)
}

func instant(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
