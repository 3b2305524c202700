package ratelimit

import (
	"sync"
	"time"
)

type bucket struct {
	tokens float64
	last   time.Time
}

// Limiter is a per-key token bucket. Every key starts full and refills at
// a fixed rate up to capacity.
type Limiter struct {
	mu         sync.Mutex
	m          map[string]*bucket
	capacity   float64
	refillRate float64 // tokens per second
	idleTTL    time.Duration
	lastSweep  time.Time
	now        func() time.Time
}

// New returns a limiter holding capacity tokens per key, refilled at
// refillPerSec.
func New(capacity, refillPerSec float64) *Limiter {
	if capacity < 1 {
		capacity = 1
	}
	if refillPerSec <= 0 {
		refillPerSec = 1
	}
	l := &Limiter{
		m:          make(map[string]*bucket),
		capacity:   capacity,
		refillRate: refillPerSec,
		now:        time.Now,
	}
	// a bucket idle this long is full again and can be forgotten
	l.idleTTL = time.Duration(l.capacity/l.refillRate*float64(time.Second)) + time.Minute
	l.lastSweep = l.now()
	return l
}

func (l *Limiter) Capacity() float64 { return l.capacity }

// Take consumes one token for key. When the bucket is empty it reports how
// long until the next token.
func (l *Limiter) Take(key string) (bool, float64, time.Duration) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(now)

	b, ok := l.m[key]
	if !ok {
		b = &bucket{tokens: l.capacity, last: now}
		l.m[key] = b
	}

	// refill
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens = min(l.capacity, b.tokens+elapsed*l.refillRate)
		b.last = now
	}

	if b.tokens >= 1 {
		b.tokens--
		return true, b.tokens, 0
	}
	wait := time.Duration((1 - b.tokens) / l.refillRate * float64(time.Second))
	return false, b.tokens, wait
}

// Allow is Take without the bookkeeping.
func (l *Limiter) Allow(key string) bool {
	ok, _, _ := l.Take(key)
	return ok
}

func (l *Limiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.idleTTL {
		return
	}
	for k, b := range l.m {
		if now.Sub(b.last) >= l.idleTTL {
			delete(l.m, k)
		}
	}
	l.lastSweep = now
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}
