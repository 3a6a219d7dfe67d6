package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// fileConfig is the TOML layout. Durations are Go duration strings; empty
// or zero values leave the default in place.
type fileConfig struct {
	Log struct {
		Level string `toml:"level"`
		File  string `toml:"file"`
	} `toml:"log"`
	HiAnime struct {
		BaseURL   string `toml:"base_url"`
		ProxyURL  string `toml:"proxy_url"`
		UserAgent string `toml:"user_agent"`
	} `toml:"hianime"`
	Jikan struct {
		BaseURL string `toml:"base_url"`
		RPS     int    `toml:"rps"`
	} `toml:"jikan"`
	Request struct {
		Timeout string `toml:"timeout"`
	} `toml:"request"`
	Cache struct {
		Namespace         string `toml:"namespace"`
		TTL               string `toml:"ttl"`
		MemoryTTL         string `toml:"memory_ttl"`
		RedisURL          string `toml:"redis_url"`
		DatabaseURL       string `toml:"database_url"`
		Path              string `toml:"path"`
		InvalidateSubject string `toml:"invalidate_subject"`
	} `toml:"cache"`
	NATS struct {
		URL string `toml:"url"`
	} `toml:"nats"`
	Retry struct {
		MaxRetries    *int   `toml:"max_retries"`
		BaseDelay     string `toml:"base_delay"`
		MaxDelay      string `toml:"max_delay"`
		PollAttempts  int    `toml:"poll_attempts"`
		PollBaseDelay string `toml:"poll_base_delay"`
		PollMaxDelay  string `toml:"poll_max_delay"`
	} `toml:"retry"`
	Breaker struct {
		MaxRequests      uint32 `toml:"max_requests"`
		Interval         string `toml:"interval"`
		Timeout          string `toml:"timeout"`
		FailureThreshold uint32 `toml:"failure_threshold"`
	} `toml:"breaker"`
}

func (c *Config) applyFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	var fc fileConfig
	dec := toml.NewDecoder(f).DisallowUnknownFields()
	if err := dec.Decode(&fc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return c.overlay(fc)
}

func (c *Config) overlay(fc fileConfig) error {
	setString(&c.LogLevel, fc.Log.Level)
	setString(&c.LogFile, fc.Log.File)
	setString(&c.HiAnimeBaseURL, fc.HiAnime.BaseURL)
	setString(&c.HiAnimeProxyURL, fc.HiAnime.ProxyURL)
	setString(&c.HiAnimeUserAgent, fc.HiAnime.UserAgent)
	setString(&c.JikanBaseURL, fc.Jikan.BaseURL)
	if fc.Jikan.RPS > 0 {
		c.JikanRPS = fc.Jikan.RPS
	}
	setString(&c.CacheNamespace, fc.Cache.Namespace)
	setString(&c.RedisURL, fc.Cache.RedisURL)
	setString(&c.DatabaseURL, fc.Cache.DatabaseURL)
	setString(&c.CacheDBPath, fc.Cache.Path)
	setString(&c.CacheInvalidateSubject, fc.Cache.InvalidateSubject)
	setString(&c.NATSURL, fc.NATS.URL)
	if fc.Retry.MaxRetries != nil {
		c.MaxRetries = *fc.Retry.MaxRetries
	}
	if fc.Retry.PollAttempts > 0 {
		c.EpisodePollAttempts = fc.Retry.PollAttempts
	}
	if fc.Breaker.MaxRequests > 0 {
		c.CBMaxRequests = fc.Breaker.MaxRequests
	}
	if fc.Breaker.FailureThreshold > 0 {
		c.CBFailureThreshold = fc.Breaker.FailureThreshold
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"request.timeout", fc.Request.Timeout, &c.RequestTimeout},
		{"cache.ttl", fc.Cache.TTL, &c.CacheTTL},
		{"cache.memory_ttl", fc.Cache.MemoryTTL, &c.MemoryCacheTTL},
		{"retry.base_delay", fc.Retry.BaseDelay, &c.RetryBaseDelay},
		{"retry.max_delay", fc.Retry.MaxDelay, &c.RetryMaxDelay},
		{"retry.poll_base_delay", fc.Retry.PollBaseDelay, &c.EpisodePollBaseDelay},
		{"retry.poll_max_delay", fc.Retry.PollMaxDelay, &c.EpisodePollMaxDelay},
		{"breaker.interval", fc.Breaker.Interval, &c.CBInterval},
		{"breaker.timeout", fc.Breaker.Timeout, &c.CBTimeout},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("config %s: %w", d.key, err)
		}
		*d.dst = v
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
