package idempotency

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"HyperTrade/internal/domain/models"
	"HyperTrade/pkg/cache"
)

func newStore(t *testing.T, cfg Config) *Store {
	t.Helper()
	c := cache.NewMemoryCache()
	t.Cleanup(func() { _ = c.Close() })
	return NewStore(c, cfg)
}

func TestBeginClaimsOnce(t *testing.T) {
	s := newStore(t, Config{})
	ctx := context.Background()

	res, owner, err := s.Begin(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, owner)
	assert.Nil(t, res)

	want := models.Rejected("k1", "insufficient margin")
	require.NoError(t, s.Complete(ctx, "k1", want))

	res, owner, err = s.Begin(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, owner)
	require.NotNil(t, res)
	assert.Equal(t, models.StatusRejected, res.Status)
	assert.Equal(t, "insufficient margin", res.Reason)
}

func TestBeginWaitsForOwner(t *testing.T) {
	s := newStore(t, Config{WaitTimeout: time.Second, PollInterval: 5 * time.Millisecond})
	ctx := context.Background()

	_, owner, err := s.Begin(ctx, "k2")
	require.NoError(t, err)
	require.True(t, owner)

	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = s.Complete(ctx, "k2", models.Failed("k2", models.KindExecutionTimeout, "deadline"))
	}()

	res, owner, err := s.Begin(ctx, "k2")
	require.NoError(t, err)
	assert.False(t, owner)
	require.NotNil(t, res)
	assert.Equal(t, models.KindExecutionTimeout, res.ErrorKind)
}

func TestBeginWaitTimeout(t *testing.T) {
	s := newStore(t, Config{WaitTimeout: 30 * time.Millisecond, PollInterval: 5 * time.Millisecond})
	ctx := context.Background()

	_, _, err := s.Begin(ctx, "k3")
	require.NoError(t, err)

	_, owner, err := s.Begin(ctx, "k3")
	assert.ErrorIs(t, err, ErrWaitTimeout)
	assert.False(t, owner)
}

func TestBeginConcurrentSingleOwner(t *testing.T) {
	s := newStore(t, Config{WaitTimeout: time.Second, PollInterval: 2 * time.Millisecond})
	ctx := context.Background()

	var owners atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, owner, err := s.Begin(ctx, "k4")
			if err != nil {
				return
			}
			if owner {
				owners.Add(1)
				_ = s.Complete(ctx, "k4", models.Rejected("k4", "x"))
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), owners.Load())
}
