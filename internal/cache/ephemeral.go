package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const DefaultEphemeralTTL = 10 * time.Minute

type ephemeralItem struct {
	data  []byte
	gen   uint64
	timer *time.Timer
}

// Ephemeral is the in-process tier. Values are stored as JSON copies so
// callers never share mutable state with the cache. Each entry schedules
// its own removal.
type Ephemeral struct {
	mu    sync.Mutex
	items map[string]ephemeralItem
	gen   uint64
	ttl   time.Duration
	sub   *nats.Subscription
	log   *zap.Logger
}

// EphemeralOption configures an Ephemeral.
type EphemeralOption func(*Ephemeral)

func WithEphemeralLogger(log *zap.Logger) EphemeralOption {
	return func(e *Ephemeral) { e.log = log }
}

// WithInvalidation subscribes to subject on nc. A message body names the
// key to drop; an empty body or "ALL" clears everything.
func WithInvalidation(nc *nats.Conn, subject string) EphemeralOption {
	return func(e *Ephemeral) {
		if nc == nil || subject == "" {
			return
		}
		sub, err := nc.Subscribe(subject, func(m *nats.Msg) {
			e.invalidate(string(m.Data))
		})
		if err != nil {
			e.log.Warn("cache: invalidation subscribe failed", zap.String("subject", subject), zap.Error(err))
			return
		}
		e.sub = sub
	}
}

// NewEphemeral creates the in-process tier. ttl <= 0 uses the 10 minute
// default.
func NewEphemeral(ttl time.Duration, opts ...EphemeralOption) *Ephemeral {
	if ttl <= 0 {
		ttl = DefaultEphemeralTTL
	}
	e := &Ephemeral{
		items: make(map[string]ephemeralItem),
		ttl:   ttl,
		log:   zap.NewNop(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// DefaultTTL is the lifetime used by callers that do not pick one.
func (e *Ephemeral) DefaultTTL() time.Duration { return e.ttl }

func (e *Ephemeral) Get(_ context.Context, key string, dest any) (bool, error) {
	e.mu.Lock()
	it, ok := e.items[key]
	e.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(it.data, dest); err != nil {
		return false, fmt.Errorf("cache: decode %s: %w", key, err)
	}
	return true, nil
}

func (e *Ephemeral) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if old, ok := e.items[key]; ok {
		old.timer.Stop()
		delete(e.items, key)
	}
	if ttl <= 0 {
		return nil
	}
	e.gen++
	gen := e.gen
	e.items[key] = ephemeralItem{
		data:  b,
		gen:   gen,
		timer: time.AfterFunc(ttl, func() { e.expire(key, gen) }),
	}
	return nil
}

func (e *Ephemeral) Delete(_ context.Context, key string) error {
	e.mu.Lock()
	if it, ok := e.items[key]; ok {
		it.timer.Stop()
		delete(e.items, key)
	}
	e.mu.Unlock()
	return nil
}

// ClearExpired is a no-op: entries remove themselves when their timer fires.
func (e *Ephemeral) ClearExpired(context.Context) (int, error) { return 0, nil }

// Len reports the number of live entries.
func (e *Ephemeral) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.items)
}

// Purge drops every entry.
func (e *Ephemeral) Purge() {
	e.mu.Lock()
	for _, it := range e.items {
		it.timer.Stop()
	}
	e.items = make(map[string]ephemeralItem)
	e.mu.Unlock()
}

// Close stops the invalidation subscription and all pending timers.
func (e *Ephemeral) Close() error {
	if e.sub != nil {
		_ = e.sub.Unsubscribe()
	}
	e.Purge()
	return nil
}

// expire only removes the entry written under gen, so a stale timer cannot
// evict a newer value for the same key.
func (e *Ephemeral) expire(key string, gen uint64) {
	e.mu.Lock()
	if it, ok := e.items[key]; ok && it.gen == gen {
		delete(e.items, key)
	}
	e.mu.Unlock()
}

func (e *Ephemeral) invalidate(key string) {
	key = strings.TrimSpace(key)
	if key == "" || strings.EqualFold(key, "ALL") {
		e.Purge()
		e.log.Debug("cache: invalidated all")
		return
	}
	_ = e.Delete(context.Background(), key)
	e.log.Debug("cache: invalidated", zap.String("key", key))
}
