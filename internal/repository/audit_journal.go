package repository

import (
	"context"

	"HyperTrade/internal/domain/models"
	applogger "HyperTrade/pkg/logger"
)

// JournalSink appends one JSON line per audit record to the state file.
type JournalSink struct {
	l *applogger.Logger
}

func NewJournalSink(l *applogger.Logger) *JournalSink {
	return &JournalSink{l: l}
}

func (j *JournalSink) Name() string { return "journal" }

func (j *JournalSink) Write(_ context.Context, rec models.AuditRecord) error {
	j.l.Info("audit",
		applogger.String("request_id", rec.RequestID),
		applogger.String("decision", string(rec.Decision)),
		applogger.Any("record", rec),
	)
	return nil
}
