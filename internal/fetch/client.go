// Package fetch is the single-attempt HTTP primitive used against the
// streaming catalog and the metadata provider. Retries live one layer up.
package fetch

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/example/animelink/internal/platform/ratelimit"
)

const maxBodyBytes = 2 << 20

const (
	DefaultTimeout   = 10 * time.Second
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Kind selects the Accept headers sent with a request.
type Kind int

const (
	KindJSON Kind = iota
	KindHTML
)

// Config holds the per-client request settings.
type Config struct {
	// ProxyURL, when set, prefixes every target: ProxyURL + QueryEscape(target).
	ProxyURL  string
	UserAgent string
	Timeout   time.Duration
}

type Client struct {
	HTTPClient *http.Client
	Config     Config
	CB         *gobreaker.CircuitBreaker
	Limiter    *ratelimit.Limiter
	Log        *zap.Logger
}

// Option configures the Client.
type Option func(*Client)

func WithCircuitBreaker(cb *gobreaker.CircuitBreaker) Option {
	return func(c *Client) { c.CB = cb }
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.Log = log }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.HTTPClient = hc }
}

// WithLimiter spaces outgoing requests, e.g. for the metadata provider's
// per-second quota.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(c *Client) { c.Limiter = l }
}

func New(cfg Config, opts ...Option) *Client {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	c := &Client{
		HTTPClient: &http.Client{},
		Config:     cfg,
		Log:        zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Get performs one GET and returns the (decompressed, capped) body.
// Errors unwrap to one of the package sentinels, or to the caller's context
// error when ctx itself was cancelled.
func (c *Client) Get(ctx context.Context, target string, kind Kind) ([]byte, error) {
	if err := c.Limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if c.CB == nil {
		return c.do(ctx, target, kind)
	}
	result, err := c.CB.Execute(func() (interface{}, error) {
		return c.do(ctx, target, kind)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %s: %v", ErrUpstreamUnavailable, c.CB.Name(), err)
		}
		return nil, err
	}
	return result.([]byte), nil
}

func (c *Client) do(ctx context.Context, target string, kind Kind) ([]byte, error) {
	u := c.route(target)
	reqCtx, cancel := context.WithTimeoutCause(ctx, c.Config.Timeout, ErrTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	switch kind {
	case KindHTML:
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	default:
		req.Header.Set("Accept", "application/json")
	}
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("User-Agent", c.Config.UserAgent)

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, c.transportErr(ctx, reqCtx, target, err)
	}
	defer resp.Body.Close()

	reader := io.Reader(resp.Body)
	if strings.Contains(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: gzip: %v", ErrParseFailure, err)
		}
		defer gz.Close()
		reader = gz
	}

	b, err := io.ReadAll(io.LimitReader(reader, maxBodyBytes+1))
	if err != nil {
		return nil, c.transportErr(ctx, reqCtx, target, err)
	}
	if len(b) > maxBodyBytes {
		return nil, fmt.Errorf("%w: body exceeds %d bytes: %s", ErrParseFailure, maxBodyBytes, target)
	}
	c.Log.Debug("fetch",
		zap.String("url", target),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(b)),
		zap.Duration("took", time.Since(start)),
	)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{URL: target, Code: resp.StatusCode, Body: snippet(b)}
	}
	return b, nil
}

func (c *Client) route(target string) string {
	if c.Config.ProxyURL == "" {
		return target
	}
	return c.Config.ProxyURL + url.QueryEscape(target)
}

func (c *Client) transportErr(parent, reqCtx context.Context, target string, err error) error {
	if perr := parent.Err(); perr != nil {
		return perr
	}
	if errors.Is(context.Cause(reqCtx), ErrTimeout) {
		return fmt.Errorf("%w after %s: %s", ErrTimeout, c.Config.Timeout, target)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %s: %v", ErrTimeout, target, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrUpstreamUnavailable, target, err)
}

// GetJSON fetches target and decodes the body into T.
func GetJSON[T any](ctx context.Context, c *Client, target string) (*T, error) {
	b, err := c.Get(ctx, target, KindJSON)
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("%w: decode error: %v body=%q", ErrParseFailure, err, snippet(b))
	}
	return &out, nil
}

// BreakerSettings mirrors the CB_* configuration keys.
type BreakerSettings struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// NewBreaker builds a circuit breaker that trips on consecutive retryable
// failures. Client errors and caller cancellations do not count.
func NewBreaker(name string, s BreakerSettings, log *zap.Logger) *gobreaker.CircuitBreaker {
	if log == nil {
		log = zap.NewNop()
	}
	if s.FailureThreshold == 0 {
		s.FailureThreshold = 5
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !Retryable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info("circuit-breaker state change", zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
}
