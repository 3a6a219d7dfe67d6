// Package ratelimit spaces outgoing calls to stay under an upstream quota.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter hands out evenly spaced slots. A nil Limiter never waits.
type Limiter struct {
	mu       sync.Mutex
	interval time.Duration
	next     time.Time
	now      func() time.Time
}

// NewRPS allows up to rps calls per second. rps <= 0 falls back to 1.
func NewRPS(rps int) *Limiter {
	if rps <= 0 {
		rps = 1
	}
	return &Limiter{interval: time.Second / time.Duration(rps), now: time.Now}
}

// Wait blocks until the caller's slot comes up or ctx is done. A cancelled
// caller still consumes its slot.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	now := l.now()
	slot := l.next
	if slot.Before(now) {
		slot = now
	}
	l.next = slot.Add(l.interval)
	l.mu.Unlock()

	d := slot.Sub(now)
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
