// Package history keeps the most recent search queries in the durable
// cache tier.
package history

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/animelink/internal/cache"
)

const (
	Key        = "search_history"
	MaxItems   = 10
	DefaultTTL = 30 * 24 * time.Hour
)

type Item struct {
	Query     string `json:"query"`
	Timestamp int64  `json:"timestamp"`
}

type History struct {
	store cache.Store
	ttl   time.Duration
	now   func() time.Time
	log   *zap.Logger
}

// Option configures History.
type Option func(*History)

func WithLogger(log *zap.Logger) Option {
	return func(h *History) { h.log = log }
}

func New(store cache.Store, opts ...Option) *History {
	h := &History{store: store, ttl: DefaultTTL, now: time.Now, log: zap.NewNop()}
	for _, o := range opts {
		o(h)
	}
	return h
}

// List returns the stored queries, newest first. An unreadable record reads
// as empty.
func (h *History) List(ctx context.Context) []Item {
	var items []Item
	ok, err := h.store.Get(ctx, Key, &items)
	if err != nil {
		h.log.Warn("history: read failed", zap.Error(err))
		return []Item{}
	}
	if !ok || items == nil {
		return []Item{}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Timestamp > items[j].Timestamp })
	return items
}

// Add records query at the front, replacing any entry that differs only in
// case. Blank queries are ignored.
func (h *History) Add(ctx context.Context, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	items := append([]Item{{Query: query, Timestamp: h.now().UnixMilli()}}, without(h.List(ctx), query)...)
	if len(items) > MaxItems {
		items = items[:MaxItems]
	}
	return h.save(ctx, items)
}

// Remove drops query, compared case-insensitively.
func (h *History) Remove(ctx context.Context, query string) error {
	return h.save(ctx, without(h.List(ctx), strings.TrimSpace(query)))
}

func (h *History) Clear(ctx context.Context) error {
	if err := h.store.Delete(ctx, Key); err != nil {
		return fmt.Errorf("history: clear: %w", err)
	}
	return nil
}

func (h *History) save(ctx context.Context, items []Item) error {
	if err := h.store.Set(ctx, Key, items, h.ttl); err != nil {
		return fmt.Errorf("history: save: %w", err)
	}
	return nil
}

func without(items []Item, query string) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if !strings.EqualFold(it.Query, query) {
			out = append(out, it)
		}
	}
	return out
}
