package cache

import (
	"context"
	"time"
)

// Backend is a raw key-value store under the durable tier.
type Backend interface {
	Name() string
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores val. ttl is a hint for stores with native expiry; the entry
	// envelope remains the source of truth.
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// BackendConfig names the candidate stores. Empty fields are skipped.
type BackendConfig struct {
	RedisURL    string
	DatabaseURL string
	SQLitePath  string
}

// NewBackend creates the best available backend:
// Redis > Postgres > SQLite file > in-memory.
func NewBackend(ctx context.Context, cfg BackendConfig) (Backend, error) {
	if cfg.RedisURL != "" {
		return NewRedisBackend(cfg.RedisURL), nil
	}
	if cfg.DatabaseURL != "" {
		return NewPostgresBackend(ctx, cfg.DatabaseURL)
	}
	if cfg.SQLitePath != "" {
		return OpenSQLite(ctx, cfg.SQLitePath)
	}
	return NewMemoryBackend(), nil
}
