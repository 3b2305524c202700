package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"HyperTrade/internal/domain/models"
	drepo "HyperTrade/internal/domain/repository"
	"HyperTrade/internal/service/guard"
	"HyperTrade/internal/service/risk"
	"HyperTrade/internal/service/schema"
	"HyperTrade/internal/service/signal"
	"HyperTrade/pkg/logger"
	"HyperTrade/pkg/util"
)

// Executor runs one order intent to a terminal result.
type Executor interface {
	Execute(ctx context.Context, intent models.OrderIntent) models.ExecutionResult
}

// Recorder receives the audit record of every request.
type Recorder interface {
	Record(ctx context.Context, rec models.AuditRecord)
}

// Outcome is what the webhook handler needs to answer a request.
type Outcome struct {
	Decision models.Decision
	Err      error // pipeline error for denied, invalid and ignored requests
	Plan     models.OrderPlan
	Results  []models.ExecutionResult
	Record   models.AuditRecord
}

// SignalRelay runs the webhook pipeline: guard, schema, parse, authorize,
// build, execute, record.
type SignalRelay struct {
	guard     *guard.Guard
	validator *schema.Validator
	builder   *risk.Builder
	executor  Executor
	recorder  Recorder
	metrics   drepo.Metrics
	log       *logger.Logger

	serialize bool
	locks     sync.Map // coin -> *sync.Mutex
}

func NewSignalRelay(
	g *guard.Guard,
	v *schema.Validator,
	b *risk.Builder,
	ex Executor,
	rec Recorder,
	metrics drepo.Metrics,
	log *logger.Logger,
	serializePerAsset bool,
) *SignalRelay {
	return &SignalRelay{
		guard:     g,
		validator: v,
		builder:   b,
		executor:  ex,
		recorder:  rec,
		metrics:   metrics,
		log:       log,
		serialize: serializePerAsset,
	}
}

// Handle processes one webhook request. Order submission runs detached from
// ctx cancellation so a client disconnect never abandons an order.
func (s *SignalRelay) Handle(ctx context.Context, r *http.Request, requestID string) Outcome {
	start := time.Now()
	rec := models.AuditRecord{RequestID: requestID, ReceivedAt: start.UTC()}

	out := s.run(ctx, r, &rec)

	rec.DurationMs = time.Since(start).Milliseconds()
	rec.Decision = out.Decision
	if out.Err != nil {
		var re *models.RelayError
		if errors.As(out.Err, &re) {
			rec.ErrorKind = re.Kind
			rec.Code = re.Code
			rec.Field = re.Field
			rec.Reason = re.Reason
		} else {
			rec.Reason = out.Err.Error()
		}
	}
	out.Record = rec

	s.metrics.RecordDecision(string(rec.Decision), string(rec.ErrorKind))
	s.logOutcome(rec)
	s.recorder.Record(ctx, rec)
	return out
}

func (s *SignalRelay) run(ctx context.Context, r *http.Request, rec *models.AuditRecord) Outcome {
	if err := s.guard.CheckHost(r.Host); err != nil {
		return rejectWith(err)
	}

	ip := s.guard.ClientIP(r)
	rec.ClientIP = ip
	if err := s.guard.CheckSource(ip); err != nil {
		return rejectWith(err)
	}
	if err := s.guard.CheckContentType(r.Header.Get("Content-Type")); err != nil {
		return rejectWith(err)
	}

	body, err := s.guard.ReadBody(r)
	if err != nil {
		return rejectWith(err)
	}

	alert, err := s.validator.Validate(body)
	if err != nil {
		return rejectWith(err)
	}
	describeAlert(rec, alert)

	sig, err := signal.FromAlert(alert)
	if err != nil {
		return rejectWith(err)
	}
	if err := s.guard.Authorize(sig); err != nil {
		return rejectWith(err)
	}

	s.log.Info("TradingView webhook",
		logger.String("request_id", rec.RequestID),
		logger.String("exchange", sig.Exchange),
		logger.String("ticker", sig.Ticker),
		logger.String("interval", sig.Interval),
		logger.String("action", string(sig.Action)),
		logger.String("price", sig.Price.String()),
		logger.String("contracts", sig.Contracts.String()),
		logger.String("alert_message", sig.AlertMessage),
	)

	plan, err := s.builder.Build(sig)
	rec.Signal = plan.Signal
	if err != nil {
		out := rejectWith(err)
		out.Plan = plan
		return out
	}

	primary := plan.Primary()
	rec.Coin = primary.Coin
	rec.Side = primary.Side
	rec.Leverage = primary.Leverage
	rec.IdempotencyKey = plan.Key
	if plan.LeverageClamped {
		s.log.Warn("leverage clamped to ceiling",
			logger.String("request_id", rec.RequestID),
			logger.String("hint", sig.Leverage),
			logger.Int("leverage", primary.Leverage))
	}

	results := s.execute(context.WithoutCancel(ctx), plan)
	rec.Results = results

	out := Outcome{Decision: models.DecisionAccepted, Plan: plan, Results: results}
	last := results[len(results)-1]
	switch last.Status {
	case models.StatusAccepted:
	case models.StatusInProgress:
		out.Decision = models.DecisionDuplicate
		rec.Reason = last.Reason
	default:
		out.Decision = models.DecisionFor(last.ErrorKind)
		rec.ErrorKind = last.ErrorKind
		rec.Reason = last.Reason
	}
	return out
}

// execute submits legs in order and stops at the first one that is not
// accepted, so a flip never opens without its close.
func (s *SignalRelay) execute(ctx context.Context, plan models.OrderPlan) []models.ExecutionResult {
	if s.serialize {
		mu := s.lock(plan.Primary().Coin)
		mu.Lock()
		defer mu.Unlock()
	}

	results := make([]models.ExecutionResult, 0, len(plan.Legs))
	for _, leg := range plan.Legs {
		res := s.executor.Execute(ctx, leg)
		results = append(results, res)
		if res.Status != models.StatusAccepted {
			break
		}
	}
	return results
}

func (s *SignalRelay) lock(coin string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(coin, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func (s *SignalRelay) logOutcome(rec models.AuditRecord) {
	fields := []logger.Field{
		logger.String("request_id", rec.RequestID),
		logger.String("decision", string(rec.Decision)),
		logger.Int64("duration_ms", rec.DurationMs),
	}
	if rec.Signal != "" {
		fields = append(fields, logger.String("signal", string(rec.Signal)))
	}
	if rec.ErrorKind != "" {
		fields = append(fields,
			logger.String("kind", string(rec.ErrorKind)),
			logger.String("code", rec.Code),
			logger.String("reason", rec.Reason))
	}
	if id := rec.OrderID(); id != "" {
		fields = append(fields, logger.String("order_id", id))
	}

	switch rec.Decision {
	case models.DecisionFailed:
		s.log.Error("webhook processed", fields...)
	case models.DecisionRejected, models.DecisionDenied:
		s.log.Warn("webhook processed", fields...)
	default:
		s.log.Info("webhook processed", fields...)
	}
}

func rejectWith(err error) Outcome {
	kind := models.KindOf(err)
	if kind == "" {
		return Outcome{Decision: models.DecisionFailed, Err: err}
	}
	return Outcome{Decision: models.DecisionFor(kind), Err: err}
}

// describeAlert copies the human readable alert fields into the audit record.
func describeAlert(rec *models.AuditRecord, a *models.TradingViewAlert) {
	rec.Strategy = a.General.Strategy
	rec.Ticker = strings.ToUpper(a.General.Ticker)
	rec.Exchange = a.General.Exchange
	rec.Interval = a.General.Interval
	rec.Action = a.Order.Action
	rec.Contracts = a.Order.Contracts
	rec.Price = a.Order.Price
	rec.PositionFrom = fmt.Sprintf("%s(%s)", a.Market.PreviousPosition, a.Market.PreviousPositionSize)
	rec.PositionTo = fmt.Sprintf("%s(%s)", a.Market.Position, a.Market.PositionSize)
	if a.Order.Comment != nil {
		rec.Comment = *a.Order.Comment
	}
	if t, err := util.ParseInstant(a.General.Time); err == nil {
		rec.AlertTime = &t
	}
	if t, err := util.ParseInstant(a.General.TimeNow); err == nil {
		rec.FireTime = &t
	}
}
