// Package retry runs bounded, capped exponential retries at the call site,
// above the single-attempt fetch client.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"
)

// ErrNotReady marks a poll whose value is not yet usable.
var ErrNotReady = errors.New("retry: not ready")

// Timer schedules the wait between attempts. Tests inject a fake.
type Timer interface {
	After(time.Duration) <-chan time.Time
}

// Policy is an exponential schedule: the n-th retry waits Base·2^n, capped
// at Max. Attempts counts the first call.
type Policy struct {
	Attempts uint
	Base     time.Duration
	Max      time.Duration
	Timer    Timer
	Log      *zap.Logger
}

// QueryPolicy is used for metadata and catalog queries: five retries,
// 2s doubling up to 32s.
func QueryPolicy() Policy {
	return Policy{Attempts: 6, Base: 2 * time.Second, Max: 32 * time.Second}
}

// EpisodePollPolicy is used while an episode list comes back empty.
func EpisodePollPolicy() Policy {
	return Policy{Attempts: 5, Base: 2 * time.Second, Max: 10 * time.Second}
}

// Delay returns the wait before retry n (0-based).
func (p Policy) Delay(n uint) time.Duration {
	if p.Base <= 0 {
		return 0
	}
	d := p.Base
	for i := uint(0); i < n; i++ {
		d *= 2
		if p.Max > 0 && d >= p.Max {
			return p.Max
		}
	}
	if p.Max > 0 && d > p.Max {
		return p.Max
	}
	return d
}

// Result is the final outcome of a retried call.
type Result[T any] struct {
	Value    T
	Attempts int
	Err      error
}

// Do calls fn until it succeeds, retryIf rejects the error, the policy is
// exhausted or ctx is done. A nil retryIf retries every error.
func Do[T any](ctx context.Context, p Policy, fn func(context.Context) (T, error), retryIf func(error) bool) Result[T] {
	if p.Attempts == 0 {
		p.Attempts = 1
	}
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	if retryIf == nil {
		retryIf = func(error) bool { return true }
	}

	var res Result[T]
	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(p.Attempts),
		// retry-go counts the first retry as n=1.
		retry.DelayType(func(n uint, _ error, _ *retry.Config) time.Duration {
			if n == 0 {
				return p.Delay(0)
			}
			return p.Delay(n - 1)
		}),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return ctx.Err() == nil && retryIf(err)
		}),
		retry.OnRetry(func(n uint, err error) {
			log.Debug("retrying", zap.Uint("attempt", n+1), zap.Duration("delay", p.Delay(n)), zap.Error(err))
		}),
	}
	if p.Timer != nil {
		opts = append(opts, retry.WithTimer(p.Timer))
	}

	v, err := retry.DoWithData(func() (T, error) {
		res.Attempts++
		return fn(ctx)
	}, opts...)
	res.Value, res.Err = v, err
	return res
}

// Poll repeats fn while it succeeds with a value that ready rejects. Errors
// stop the poll unless retryIf accepts them. When the policy runs out, the
// last value is returned with ErrNotReady.
func Poll[T any](ctx context.Context, p Policy, fn func(context.Context) (T, error), ready func(T) bool, retryIf func(error) bool) Result[T] {
	var last T
	res := Do(ctx, p, func(ctx context.Context) (T, error) {
		v, err := fn(ctx)
		if err != nil {
			return v, err
		}
		last = v
		if !ready(v) {
			return v, ErrNotReady
		}
		return v, nil
	}, func(err error) bool {
		if errors.Is(err, ErrNotReady) {
			return true
		}
		return retryIf != nil && retryIf(err)
	})
	if errors.Is(res.Err, ErrNotReady) {
		res.Value = last
	}
	return res
}
