package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_NilNeverWaits(t *testing.T) {
	var l *Limiter
	if err := l.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLimiter_SpacesSlots(t *testing.T) {
	l := NewRPS(20)
	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := l.Wait(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	// first slot is immediate, the next two are 50ms apart
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Fatalf("expected at least 90ms for 3 calls at 20rps, got %s", elapsed)
	}
}

func TestLimiter_CancelledContext(t *testing.T) {
	l := NewRPS(1)
	_ = l.Wait(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Wait(ctx); err == nil {
		t.Fatal("expected context error while waiting for the next slot")
	}
}

func TestNewRPS_DefaultsToOne(t *testing.T) {
	l := NewRPS(0)
	if l.interval != time.Second {
		t.Fatalf("expected 1s interval, got %s", l.interval)
	}
}
