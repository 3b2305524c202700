package usecase

import (
	"context"
	"errors"

	"HyperTrade/internal/domain/models"
	drepo "HyperTrade/internal/domain/repository"
	"HyperTrade/internal/service/notify"
	"HyperTrade/pkg/logger"
	"HyperTrade/pkg/queue"
)

const JobNotify = "notify.outcome"

// AuditJobType is the queue message type exporting to the named sink.
func AuditJobType(sink string) string { return "audit." + sink }

// Enqueuer accepts background work without blocking.
type Enqueuer interface {
	Enqueue(ctx context.Context, msgType string, payload interface{}) error
}

// OutcomeNotifier records one audit record per webhook request. Inline sinks
// are written before the response; export sinks and the chat notification
// go through the queue so they never delay or change the response.
type OutcomeNotifier struct {
	inline  []drepo.AuditSink
	exports []drepo.AuditSink
	channel drepo.NotificationChannel
	queue   Enqueuer
	metrics drepo.Metrics
	log     *logger.Logger
}

func NewOutcomeNotifier(
	inline []drepo.AuditSink,
	exports []drepo.AuditSink,
	channel drepo.NotificationChannel,
	q Enqueuer,
	metrics drepo.Metrics,
	log *logger.Logger,
) *OutcomeNotifier {
	return &OutcomeNotifier{
		inline:  inline,
		exports: exports,
		channel: channel,
		queue:   q,
		metrics: metrics,
		log:     log,
	}
}

// Jobs returns the queue jobs that drain this notifier's messages.
func (n *OutcomeNotifier) Jobs() []queue.Job {
	jobs := make([]queue.Job, 0, len(n.exports)+1)
	for _, s := range n.exports {
		jobs = append(jobs, &auditExportJob{sink: s})
	}
	if n.channel != nil {
		jobs = append(jobs, &notifyJob{channel: n.channel})
	}
	return jobs
}

func (n *OutcomeNotifier) Record(ctx context.Context, rec models.AuditRecord) {
	ctx = context.WithoutCancel(ctx)

	for _, s := range n.inline {
		if err := s.Write(ctx, rec); err != nil {
			n.metrics.RecordError("audit_" + s.Name())
			n.log.Error("audit write failed",
				logger.String("sink", s.Name()),
				logger.String("request_id", rec.RequestID),
				logger.Error(err))
		}
	}

	for _, s := range n.exports {
		n.enqueue(ctx, AuditJobType(s.Name()), rec, rec.RequestID)
	}

	if n.channel != nil && n.channel.Enabled() && notifiable(rec.Decision) {
		n.enqueue(ctx, JobNotify, notify.FormatOutcome(rec), rec.RequestID)
	}
}

func (n *OutcomeNotifier) enqueue(ctx context.Context, msgType string, payload interface{}, requestID string) {
	err := n.queue.Enqueue(ctx, msgType, payload)
	if err == nil {
		return
	}
	reason := "error"
	switch {
	case errors.Is(err, queue.ErrQueueFull):
		reason = "queue_full"
	case errors.Is(err, queue.ErrQueueNotRunning):
		reason = "not_running"
	}
	n.metrics.RecordNotificationDropped(reason)
	n.log.Warn("background outcome dropped",
		logger.String("type", msgType),
		logger.String("request_id", requestID),
		logger.String("reason", reason))
}

// notifiable decisions are the ones that reached the exchange.
func notifiable(d models.Decision) bool {
	switch d {
	case models.DecisionAccepted, models.DecisionRejected, models.DecisionFailed:
		return true
	}
	return false
}

type auditExportJob struct {
	sink drepo.AuditSink
}

func (j *auditExportJob) Name() string { return "audit_export_" + j.sink.Name() }
func (j *auditExportJob) Type() string { return AuditJobType(j.sink.Name()) }

func (j *auditExportJob) Handle(ctx context.Context, payload interface{}) error {
	rec, err := queue.ParsePayload[models.AuditRecord](payload)
	if err != nil {
		return err
	}
	return j.sink.Write(ctx, *rec)
}

type notifyJob struct {
	channel drepo.NotificationChannel
}

func (j *notifyJob) Name() string { return "notify_outcome" }
func (j *notifyJob) Type() string { return JobNotify }

func (j *notifyJob) Handle(ctx context.Context, payload interface{}) error {
	text, err := queue.ParsePayload[string](payload)
	if err != nil {
		return err
	}
	return j.channel.Send(ctx, *text)
}
