package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultNamespace = "hianime_cache_"
	DefaultTTL       = 24 * time.Hour
)

// Durable is the persistent tier. Keys are stored under a namespace prefix;
// a change to the entry format is handled by bumping the namespace.
type Durable struct {
	backend Backend
	ns      string
	ttl     time.Duration
	now     func() time.Time
	log     *zap.Logger
}

// DurableOption configures a Durable.
type DurableOption func(*Durable)

func WithNamespace(ns string) DurableOption {
	return func(d *Durable) {
		if ns != "" {
			d.ns = ns
		}
	}
}

func WithDefaultTTL(ttl time.Duration) DurableOption {
	return func(d *Durable) {
		if ttl > 0 {
			d.ttl = ttl
		}
	}
}

func WithLogger(log *zap.Logger) DurableOption {
	return func(d *Durable) { d.log = log }
}

func NewDurable(b Backend, opts ...DurableOption) *Durable {
	d := &Durable{
		backend: b,
		ns:      DefaultNamespace,
		ttl:     DefaultTTL,
		now:     time.Now,
		log:     zap.NewNop(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// DefaultTTL is the lifetime used by callers that do not pick one.
func (d *Durable) DefaultTTL() time.Duration { return d.ttl }

func (d *Durable) Get(ctx context.Context, key string, dest any) (bool, error) {
	full := d.ns + key
	raw, ok, err := d.backend.Get(ctx, full)
	if err != nil {
		d.log.Warn("cache: backend read failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
	if !ok {
		return false, nil
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		d.evict(ctx, full, "undecodable entry")
		return false, nil
	}
	if e.Expired(d.now()) {
		d.evict(ctx, full, "expired")
		return false, nil
	}
	if err := json.Unmarshal(e.Data, dest); err != nil {
		d.evict(ctx, full, "undecodable data")
		return false, nil
	}
	return true, nil
}

func (d *Durable) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	e, err := newEntry(value, ttl, d.now())
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}
	if err := d.backend.Set(ctx, d.ns+key, b, ttl); err != nil {
		d.log.Warn("cache: backend write failed", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

func (d *Durable) Delete(ctx context.Context, key string) error {
	return d.backend.Delete(ctx, d.ns+key)
}

// ClearExpired walks every key in the namespace and drops expired or
// undecodable entries. Keys outside the namespace are never touched.
func (d *Durable) ClearExpired(ctx context.Context) (int, error) {
	keys, err := d.backend.Keys(ctx, d.ns)
	if err != nil {
		return 0, fmt.Errorf("cache: list keys: %w", err)
	}
	now := d.now()
	removed := 0
	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		raw, ok, err := d.backend.Get(ctx, k)
		if err != nil || !ok {
			continue
		}
		var e Entry
		if json.Unmarshal(raw, &e) == nil && !e.Expired(now) {
			continue
		}
		if err := d.backend.Delete(ctx, k); err != nil {
			d.log.Warn("cache: sweep delete failed", zap.String("key", k), zap.Error(err))
			continue
		}
		removed++
	}
	d.log.Debug("cache: sweep done", zap.Int("scanned", len(keys)), zap.Int("removed", removed))
	return removed, nil
}

func (d *Durable) evict(ctx context.Context, full, reason string) {
	if err := d.backend.Delete(ctx, full); err != nil {
		d.log.Warn("cache: evict failed", zap.String("key", full), zap.String("reason", reason), zap.Error(err))
	}
}
