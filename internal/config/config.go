// Package config loads runtime settings: built-in defaults, then an optional
// TOML file, then the environment.
package config

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/example/animelink/internal/cache"
	"github.com/example/animelink/internal/fetch"
	"github.com/example/animelink/internal/hianime"
	"github.com/example/animelink/internal/jikan"
	"github.com/example/animelink/internal/retry"
)

const DefaultProxyURL = "https://tv-stream-proxy.onrender.com/proxy?url="

type Config struct {
	LogLevel string
	LogFile  string

	HiAnimeBaseURL   string
	HiAnimeProxyURL  string
	HiAnimeUserAgent string
	JikanBaseURL     string
	JikanRPS         int
	RequestTimeout   time.Duration

	CacheNamespace string
	CacheTTL       time.Duration
	MemoryCacheTTL time.Duration
	RedisURL       string
	DatabaseURL    string
	CacheDBPath    string

	NATSURL                string
	CacheInvalidateSubject string

	// Retry and circuit-breaker settings.
	MaxRetries           int
	RetryBaseDelay       time.Duration
	RetryMaxDelay        time.Duration
	EpisodePollAttempts  int
	EpisodePollBaseDelay time.Duration
	EpisodePollMaxDelay  time.Duration
	CBMaxRequests        uint32
	CBInterval           time.Duration
	CBTimeout            time.Duration
	CBFailureThreshold   uint32
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		LogLevel:             "info",
		HiAnimeBaseURL:       hianime.DefaultBaseURL,
		HiAnimeProxyURL:      DefaultProxyURL,
		HiAnimeUserAgent:     fetch.DefaultUserAgent,
		JikanBaseURL:         jikan.DefaultBaseURL,
		JikanRPS:             jikan.DefaultRPS,
		RequestTimeout:       fetch.DefaultTimeout,
		CacheNamespace:       cache.DefaultNamespace,
		CacheTTL:             cache.DefaultTTL,
		MemoryCacheTTL:       cache.DefaultEphemeralTTL,
		CacheDBPath:          DefaultCacheDBPath(),
		MaxRetries:           5,
		RetryBaseDelay:       2 * time.Second,
		RetryMaxDelay:        32 * time.Second,
		EpisodePollAttempts:  5,
		EpisodePollBaseDelay: 2 * time.Second,
		EpisodePollMaxDelay:  10 * time.Second,
		CBMaxRequests:        5,
		CBInterval:           60 * time.Second,
		CBTimeout:            30 * time.Second,
		CBFailureThreshold:   5,
	}
}

// DefaultCacheDBPath is animelink/cache.db under the user cache directory.
func DefaultCacheDBPath() string {
	dir, err := os.UserCacheDir()
	if err != nil || dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "animelink", "cache.db")
}

// Load applies the TOML file at path (if any) and then the environment on
// top of Default.
func Load(path string) (Config, error) {
	cfg := Default()
	if path = strings.TrimSpace(path); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.LogLevel = envString("LOG_LEVEL", c.LogLevel)
	c.LogFile = envString("LOG_FILE", c.LogFile)
	c.HiAnimeBaseURL = envString("HIANIME_BASE_URL", c.HiAnimeBaseURL)
	c.HiAnimeProxyURL = envString("HIANIME_PROXY_URL", c.HiAnimeProxyURL)
	c.HiAnimeUserAgent = envString("HIANIME_USER_AGENT", c.HiAnimeUserAgent)
	c.JikanBaseURL = envString("JIKAN_BASE_URL", c.JikanBaseURL)
	c.JikanRPS = envInt("JIKAN_RPS", c.JikanRPS)
	c.RequestTimeout = envDuration("REQUEST_TIMEOUT", c.RequestTimeout)

	c.CacheNamespace = envString("CACHE_NAMESPACE", c.CacheNamespace)
	c.CacheTTL = envDuration("CACHE_TTL", c.CacheTTL)
	c.MemoryCacheTTL = envDuration("MEMORY_CACHE_TTL", c.MemoryCacheTTL)
	c.RedisURL = envString("REDIS_URL", c.RedisURL)
	c.DatabaseURL = envString("DATABASE_URL", c.DatabaseURL)
	c.CacheDBPath = envString("CACHE_DB_PATH", c.CacheDBPath)

	c.NATSURL = envString("NATS_URL", c.NATSURL)
	c.CacheInvalidateSubject = envString("CACHE_INVALIDATE_SUBJECT", c.CacheInvalidateSubject)

	c.MaxRetries = envInt("MAX_RETRIES", c.MaxRetries)
	c.RetryBaseDelay = envDuration("RETRY_BASE_DELAY", c.RetryBaseDelay)
	c.RetryMaxDelay = envDuration("RETRY_MAX_DELAY", c.RetryMaxDelay)
	c.EpisodePollAttempts = envInt("EPISODE_POLL_ATTEMPTS", c.EpisodePollAttempts)
	c.EpisodePollBaseDelay = envDuration("EPISODE_POLL_BASE_DELAY", c.EpisodePollBaseDelay)
	c.EpisodePollMaxDelay = envDuration("EPISODE_POLL_MAX_DELAY", c.EpisodePollMaxDelay)
	c.CBInterval = envDuration("CB_INTERVAL", c.CBInterval)
	c.CBTimeout = envDuration("CB_TIMEOUT", c.CBTimeout)

	var errs []error
	var err error
	if c.CBMaxRequests, err = envUint32("CB_MAX_REQUESTS", c.CBMaxRequests); err != nil {
		errs = append(errs, err)
	}
	if c.CBFailureThreshold, err = envUint32("CB_FAILURE_THRESHOLD", c.CBFailureThreshold); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Validate rejects settings no component can run with.
func (c Config) Validate() error {
	var errs []error
	if c.HiAnimeProxyURL != "" {
		if _, err := url.Parse(c.HiAnimeProxyURL); err != nil {
			errs = append(errs, fmt.Errorf("HIANIME_PROXY_URL: %w", err))
		}
	}
	if c.MaxRetries < 0 {
		errs = append(errs, errors.New("MAX_RETRIES must be >= 0"))
	}
	if c.EpisodePollAttempts < 1 {
		errs = append(errs, errors.New("EPISODE_POLL_ATTEMPTS must be >= 1"))
	}
	if c.JikanRPS < 1 {
		errs = append(errs, errors.New("JIKAN_RPS must be >= 1"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("REQUEST_TIMEOUT must be positive"))
	}
	if c.CBFailureThreshold == 0 {
		errs = append(errs, errors.New("CB_FAILURE_THRESHOLD must be >= 1"))
	}
	return errors.Join(errs...)
}

// QueryPolicy is the retry schedule for catalog and metadata queries.
func (c Config) QueryPolicy() retry.Policy {
	return retry.Policy{
		Attempts: uint(c.MaxRetries) + 1,
		Base:     c.RetryBaseDelay,
		Max:      c.RetryMaxDelay,
	}
}

// PollPolicy is the schedule used while an episode list comes back empty.
func (c Config) PollPolicy() retry.Policy {
	return retry.Policy{
		Attempts: uint(c.EpisodePollAttempts),
		Base:     c.EpisodePollBaseDelay,
		Max:      c.EpisodePollMaxDelay,
	}
}

func (c Config) Breaker() fetch.BreakerSettings {
	return fetch.BreakerSettings{
		MaxRequests:      c.CBMaxRequests,
		Interval:         c.CBInterval,
		Timeout:          c.CBTimeout,
		FailureThreshold: c.CBFailureThreshold,
	}
}

func (c Config) Backend() cache.BackendConfig {
	return cache.BackendConfig{
		RedisURL:    c.RedisURL,
		DatabaseURL: c.DatabaseURL,
		SQLitePath:  c.CacheDBPath,
	}
}

func envString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// envUint32 reads a counter. Unlike the other helpers it rejects an
// out-of-range number instead of wrapping it.
func envUint32(key string, def uint32) (uint32, error) {
	n := envInt(key, int(def))
	if n < 0 || int64(n) > math.MaxUint32 {
		return def, fmt.Errorf("%s must be between 0 and %d, got %d", key, uint32(math.MaxUint32), n)
	}
	return uint32(n), nil
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
