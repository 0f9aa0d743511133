package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Limiter spaces out successive operations by a minimum interval, optionally
// stretched by a random jitter. The first call never waits. It is safe for
// concurrent use.
type Limiter struct {
	mu       sync.Mutex
	interval time.Duration
	jitter   float64 // 0.0 to 1.0
	last     time.Time
	now      func() time.Time
}

// NewLimiter creates a limiter allowing rps operations per second with the
// given jitter factor, clamped to [0, 1]. If rps is <= 0 the limiter never
// blocks.
func NewLimiter(rps float64, jitter float64) *Limiter {
	if jitter < 0 {
		jitter = 0
	} else if jitter > 1 {
		jitter = 1
	}

	l := &Limiter{jitter: jitter, now: time.Now}
	if rps > 0 {
		l.interval = time.Duration(float64(time.Second) / rps)
	}
	return l
}

// Wait blocks until the interval since the previous operation has elapsed,
// or until ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil || l.interval == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.last.IsZero() {
		gap := l.interval
		if l.jitter > 0 {
			gap += time.Duration(float64(l.interval) * l.jitter * rand.Float64())
		}
		if wait := gap - l.now().Sub(l.last); wait > 0 {
			timer := time.NewTimer(wait)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	l.last = l.now()
	return nil
}

// Interval returns the configured minimum spacing.
func (l *Limiter) Interval() time.Duration {
	if l == nil {
		return 0
	}
	return l.interval
}
