// Package idempotency records one terminal execution result per key.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"HyperTrade/internal/domain/models"
	"HyperTrade/pkg/cache"
)

const (
	lockPrefix   = "idem:lock"
	resultPrefix = "idem:result"
)

// ErrWaitTimeout is returned by Begin when the owner of a key has not
// completed within WaitTimeout.
var ErrWaitTimeout = models.ErrExecutionInProgress

type Config struct {
	Retention    time.Duration // how long a terminal result is replayed
	WaitTimeout  time.Duration // how long a duplicate waits for the owner
	PollInterval time.Duration
}

// Store implements repository.IdempotencyStore on a cache.Service. The claim
// is a TryLock on the lock key, so Redis gives the same guarantee across
// processes that the memory cache gives inside one.
type Store struct {
	cache cache.Service
	cfg   Config
}

func NewStore(c cache.Service, cfg Config) *Store {
	if cfg.Retention <= 0 {
		cfg.Retention = 10 * time.Minute
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = 30 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 20 * time.Millisecond
	}
	return &Store{cache: c, cfg: cfg}
}

func (s *Store) Begin(ctx context.Context, key string) (*models.ExecutionResult, bool, error) {
	if res, err := s.load(ctx, key); err != nil || res != nil {
		return res, false, err
	}

	owner, err := s.cache.TryLock(ctx, cache.GenerateKey(lockPrefix, key), s.cfg.Retention)
	if err != nil {
		return nil, false, fmt.Errorf("claim %s: %w", key, err)
	}
	if owner {
		return nil, true, nil
	}

	deadline := time.NewTimer(s.cfg.WaitTimeout)
	defer deadline.Stop()
	tick := time.NewTicker(s.cfg.PollInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, false, ctx.Err()
		case <-deadline.C:
			return nil, false, ErrWaitTimeout
		case <-tick.C:
			res, err := s.load(ctx, key)
			if err != nil || res != nil {
				return res, false, err
			}
		}
	}
}

func (s *Store) Complete(ctx context.Context, key string, result models.ExecutionResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, cache.GenerateKey(resultPrefix, key), string(data), s.cfg.Retention)
}

func (s *Store) load(ctx context.Context, key string) (*models.ExecutionResult, error) {
	var raw string
	err := s.cache.Get(ctx, cache.GenerateKey(resultPrefix, key), &raw)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load result %s: %w", key, err)
	}

	var res models.ExecutionResult
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return nil, fmt.Errorf("decode result %s: %w", key, err)
	}
	return &res, nil
}
