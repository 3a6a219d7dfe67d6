// Package cache provides the two-tier TTL cache used for resolutions,
// episode lists and recommendations.
//
// Durable tier: JSON entries in a key-value Backend, chosen in the order
// Redis (REDIS_URL) > Postgres (DATABASE_URL) > SQLite file > in-memory.
// Ephemeral tier: a process-local map whose entries remove themselves on a
// timer, with optional NATS invalidation.
package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Store is the contract shared by both tiers. Implementations must be safe
// for concurrent use.
type Store interface {
	// Get decodes the live value for key into dest. A missing or expired key
	// reports false with a nil error.
	Get(ctx context.Context, key string, dest any) (bool, error)
	// Set stores value for ttl. A non-positive ttl is already expired.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// ClearExpired evicts entries that are already expired and reports how
	// many were removed.
	ClearExpired(ctx context.Context) (int, error)
}

// Entry is the persisted envelope. StoredAt and TTL are milliseconds.
type Entry struct {
	Data     json.RawMessage `json:"data"`
	StoredAt int64           `json:"storedAt"`
	TTL      int64           `json:"ttl"`
}

func newEntry(value any, ttl time.Duration, now time.Time) (Entry, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Data: b, StoredAt: now.UnixMilli(), TTL: ttl.Milliseconds()}, nil
}

// Expired reports whether now - storedAt > ttl. A non-positive ttl is
// always expired.
func (e Entry) Expired(now time.Time) bool {
	if e.TTL <= 0 {
		return true
	}
	return now.UnixMilli()-e.StoredAt > e.TTL
}
