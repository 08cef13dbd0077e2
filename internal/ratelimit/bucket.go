// Package ratelimit implements the request budgets for the broker API:
// a token bucket replenished lazily from elapsed time, and a dual
// limiter combining the per-second and per-minute caps.
package ratelimit

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"
)

// Bucket is a token bucket that replenishes continuously over time.
// Refill happens lazily inside each consumption attempt, so the bucket
// stays correct over arbitrary scheduling gaps without a background
// timer. Invariant: tokens is always in [0, capacity].
type Bucket struct {
	mu       sync.Mutex
	rate     float64 // tokens per second
	capacity float64
	tokens   float64
	last     time.Time
}

// NewBucket creates a full bucket with the given refill rate and capacity.
func NewBucket(ratePerSec, capacity float64) *Bucket {
	return &Bucket{
		rate:     ratePerSec,
		capacity: capacity,
		tokens:   capacity,
		last:     time.Now(),
	}
}

// take tops the bucket up from the elapsed time and tries to debit n
// tokens. When the debit cannot be satisfied it returns false plus the
// time needed for the deficit to refill.
func (b *Bucket) take(n float64, now time.Time) (bool, time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	elapsed := now.Sub(b.last).Seconds()
	if elapsed > 0 {
		b.tokens = math.Min(b.capacity, b.tokens+elapsed*b.rate)
		b.last = now
	}

	if b.tokens >= n {
		b.tokens -= n
		return true, 0
	}

	deficit := n - b.tokens
	return false, time.Duration(deficit / b.rate * float64(time.Second))
}

// Consume blocks until n tokens are available, then debits them. Waiters
// sleep for the computed deficit plus a small jitter and re-check, so
// ordering across waiters is best-effort, not FIFO. The only failure
// mode is context cancellation.
func (b *Bucket) Consume(ctx context.Context, n float64) error {
	for {
		ok, wait := b.take(n, time.Now())
		if ok {
			return nil
		}

		// Jitter keeps simultaneous waiters from waking in lockstep.
		wait += time.Duration(rand.Int63n(int64(2 * time.Millisecond)))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Tokens returns the currently available tokens after a refill.
func (b *Bucket) Tokens() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(b.last).Seconds()
	if elapsed > 0 {
		b.tokens = math.Min(b.capacity, b.tokens+elapsed*b.rate)
		b.last = now
	}
	return b.tokens
}
