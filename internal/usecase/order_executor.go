package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"

	"HyperTrade/internal/domain/models"
	drepo "HyperTrade/internal/domain/repository"
	"HyperTrade/pkg/logger"
)

// ExecutorConfig bounds a single order submission.
type ExecutorConfig struct {
	Timeout     time.Duration // per attempt
	MaxAttempts int
	BackoffMin  time.Duration
	BackoffMax  time.Duration
}

// OrderExecutor submits order intents exactly once per idempotency key.
type OrderExecutor struct {
	client  drepo.ExchangeClient
	store   drepo.IdempotencyStore
	metrics drepo.Metrics
	log     *logger.Logger
	cfg     ExecutorConfig
}

func NewOrderExecutor(
	client drepo.ExchangeClient,
	store drepo.IdempotencyStore,
	metrics drepo.Metrics,
	log *logger.Logger,
	cfg ExecutorConfig,
) *OrderExecutor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BackoffMin <= 0 {
		cfg.BackoffMin = 200 * time.Millisecond
	}
	if cfg.BackoffMax < cfg.BackoffMin {
		cfg.BackoffMax = cfg.BackoffMin * 8
	}
	return &OrderExecutor{
		client:  client,
		store:   store,
		metrics: metrics,
		log:     log,
		cfg:     cfg,
	}
}

// Execute returns the terminal result for intent. A key that already has a
// result inside the retention window is answered from the store, and a key
// that is being executed by another caller waits for that caller.
func (e *OrderExecutor) Execute(ctx context.Context, intent models.OrderIntent) models.ExecutionResult {
	key := intent.IdempotencyKey
	log := e.log.With(
		logger.String("idempotency_key", key),
		logger.String("coin", intent.Coin),
		logger.String("side", string(intent.Side)),
		logger.String("leg", string(intent.Leg)),
	)

	prior, owner, err := e.store.Begin(ctx, key)
	if errors.Is(err, models.ErrExecutionInProgress) {
		e.metrics.RecordIdempotencyHit()
		log.Warn("duplicate order intent outlived its wait, owner still executing")
		return models.InProgress(key)
	}
	if err != nil {
		log.Error("idempotency check failed", logger.Error(err))
		e.metrics.RecordError("idempotency")
		return models.Failed(key, models.KindExecutionFailed, "idempotency store unavailable")
	}
	if !owner {
		e.metrics.RecordIdempotencyHit()
		log.Info("duplicate order intent, replaying result", logger.String("status", string(prior.Status)))
		return *prior
	}

	start := time.Now()
	result := e.submit(ctx, intent, log)
	e.metrics.RecordExecution(string(result.Status), result.Attempts, time.Since(start))

	if err := e.store.Complete(context.WithoutCancel(ctx), key, result); err != nil {
		log.Error("store execution result", logger.Error(err))
		e.metrics.RecordError("idempotency")
	}
	return result
}

func (e *OrderExecutor) submit(ctx context.Context, intent models.OrderIntent, log *logger.Logger) models.ExecutionResult {
	key := intent.IdempotencyKey

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = e.cfg.BackoffMin
	bo.MaxInterval = e.cfg.BackoffMax

	var lastErr error
	attempt := 0
	for attempt < e.cfg.MaxAttempts {
		attempt++

		attemptCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
		ack, err := e.client.SubmitOrder(attemptCtx, intent)
		cancel()

		if err == nil {
			res, verr := models.Accepted(intent, ack)
			if verr != nil {
				log.Error("exchange acknowledgment violates order bounds",
					logger.String("order_id", ack.OrderID), logger.Error(verr))
				res = models.Failed(key, models.KindExecutionFailed, verr.Error())
			} else {
				log.Info("order accepted",
					logger.String("order_id", res.OrderID),
					logger.String("fill", string(res.Fill)),
					logger.Int("attempts", attempt))
			}
			res.Attempts = attempt
			return res
		}

		var remote *models.RemoteError
		if errors.As(err, &remote) && remote.Kind == models.RemoteRejected {
			log.Warn("order rejected by exchange", logger.String("reason", remote.Message))
			res := models.Rejected(key, remote.Message)
			res.Attempts = attempt
			return res
		}

		lastErr = err
		if !retryable(err) || attempt >= e.cfg.MaxAttempts {
			break
		}

		wait := bo.NextBackOff()
		log.Warn("transient exchange error, retrying",
			logger.Int("attempt", attempt), logger.Duration("backoff_ms", wait), logger.Error(err))
		select {
		case <-ctx.Done():
			lastErr = ctx.Err()
			attempt = e.cfg.MaxAttempts
		case <-time.After(wait):
		}
	}

	kind := models.KindExecutionFailed
	if isTimeout(lastErr) {
		kind = models.KindExecutionTimeout
	}
	log.Error("order execution failed",
		logger.String("kind", string(kind)), logger.Int("attempts", attempt), logger.Error(lastErr))

	res := models.Failed(key, kind, fmt.Sprintf("%v (after %d attempts)", lastErr, attempt))
	res.Attempts = attempt
	return res
}

func retryable(err error) bool {
	var remote *models.RemoteError
	if errors.As(err, &remote) {
		return remote.Kind == models.RemoteTransient
	}
	return isTimeout(err) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
