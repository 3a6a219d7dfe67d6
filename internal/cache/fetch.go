package cache

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"
)

// LoadTimeout bounds a shared load once it no longer follows its first
// caller's cancellation.
var LoadTimeout = 2 * time.Minute

var flights singleflight.Group

// Fetch reads key from s, or runs load once across concurrent callers and
// stores the result for ttl. Values rejected by keep are returned but not
// stored. Cache errors never fail the call.
//
// The shared load is detached from the caller that started it: a caller
// whose ctx ends gets ctx.Err() while the others keep waiting.
func Fetch[T any](ctx context.Context, s Store, key string, ttl time.Duration, load func(context.Context) (T, error), keep func(T) bool) (T, error) {
	var zero T
	var cached T
	if ok, err := s.Get(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}

	ch := flights.DoChan(fmt.Sprintf("%p/%s", s, key), func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), LoadTimeout)
		defer cancel()
		v, err := load(lctx)
		if err != nil {
			return nil, err
		}
		if keep == nil || keep(v) {
			_ = s.Set(lctx, key, v, ttl)
		}
		return v, nil
	})
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return zero, r.Err
		}
		out, _ := r.Val.(T)
		return out, nil
	}
}

// NonEmpty is a keep predicate that refuses to cache empty slices.
func NonEmpty[E any](v []E) bool { return len(v) > 0 }
