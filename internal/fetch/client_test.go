package fetch

import (
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
)

func TestGet_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); !strings.HasPrefix(got, "text/html") {
			t.Errorf("expected html accept header, got %q", got)
		}
		if r.Header.Get("User-Agent") == "" {
			t.Errorf("expected a user agent")
		}
		_, _ = w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	c := New(Config{})
	b, err := c.Get(context.Background(), srv.URL+"/search", KindHTML)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(b) != "<html></html>" {
		t.Fatalf("unexpected body %q", b)
	}
}

func TestGet_RoutesThroughProxy(t *testing.T) {
	var gotTarget string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTarget = r.URL.Query().Get("url")
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := New(Config{ProxyURL: srv.URL + "/proxy?url="})
	target := "https://catalog.example/search?keyword=one piece"
	if _, err := c.Get(context.Background(), target, KindHTML); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotTarget != target {
		t.Fatalf("expected proxied target %q, got %q", target, gotTarget)
	}
}

func TestGet_StatusMapping(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusBadGateway, ErrUpstreamUnavailable},
		{http.StatusServiceUnavailable, ErrUpstreamUnavailable},
		{http.StatusNotFound, ErrRequestFailed},
		{http.StatusForbidden, ErrRequestFailed},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tt.code)
			_, _ = w.Write([]byte("nope"))
		}))
		_, err := New(Config{}).Get(context.Background(), srv.URL, KindJSON)
		srv.Close()
		if !errors.Is(err, tt.want) {
			t.Fatalf("status %d: expected %v, got %v", tt.code, tt.want, err)
		}
		var se *StatusError
		if !errors.As(err, &se) || se.Code != tt.code || se.Body != "nope" {
			t.Fatalf("status %d: expected StatusError with body, got %#v", tt.code, err)
		}
	}
}

func TestGet_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := New(Config{Timeout: 50 * time.Millisecond})
	_, err := c.Get(context.Background(), srv.URL, KindJSON)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if !Retryable(err) {
		t.Fatal("timeout should be retryable")
	}
}

func TestGet_CallerCancelIsNotTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()
	_, err := New(Config{Timeout: 5 * time.Second}).Get(ctx, srv.URL, KindJSON)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, ErrTimeout) || Retryable(err) {
		t.Fatalf("caller cancellation must not look like a timeout: %v", err)
	}
}

func TestGet_Gzip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		_, _ = gz.Write([]byte(`{"ok":true}`))
		_ = gz.Close()
	}))
	defer srv.Close()

	out, err := GetJSON[struct {
		OK bool `json:"ok"`
	}](context.Background(), New(Config{}), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.OK {
		t.Fatal("expected decoded gzip body")
	}
}

func TestGetJSON_ParseFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	_, err := GetJSON[map[string]any](context.Background(), New(Config{}), srv.URL)
	if !errors.Is(err, ErrParseFailure) {
		t.Fatalf("expected ErrParseFailure, got %v", err)
	}
	if Transient(err) {
		t.Fatal("parse failure is not a transient network error")
	}
}

func TestGet_BodyLimit(t *testing.T) {
	size := maxBodyBytes
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("a", size)))
	}))
	defer srv.Close()
	c := New(Config{})

	b, err := c.Get(context.Background(), srv.URL, KindHTML)
	if err != nil || len(b) != maxBodyBytes {
		t.Fatalf("expected a body of exactly the limit to pass, got %d bytes err=%v", len(b), err)
	}

	size = maxBodyBytes + 1
	_, err = c.Get(context.Background(), srv.URL, KindHTML)
	if !errors.Is(err, ErrParseFailure) {
		t.Fatalf("expected ErrParseFailure for an oversized body, got %v", err)
	}
}

func TestGet_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := srv.URL
	srv.Close()

	_, err := New(Config{Timeout: time.Second}).Get(context.Background(), addr, KindJSON)
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestGet_BreakerOpens(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cb := NewBreaker("test", BreakerSettings{Timeout: time.Minute, FailureThreshold: 2}, nil)
	c := New(Config{}, WithCircuitBreaker(cb))
	for i := 0; i < 2; i++ {
		if _, err := c.Get(context.Background(), srv.URL, KindJSON); !errors.Is(err, ErrUpstreamUnavailable) {
			t.Fatalf("call %d: expected ErrUpstreamUnavailable, got %v", i, err)
		}
	}
	if cb.State() != gobreaker.StateOpen {
		t.Fatalf("expected open breaker, got %s", cb.State())
	}
	_, err := c.Get(context.Background(), srv.URL, KindJSON)
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable from open breaker, got %v", err)
	}
	if n := hits.Load(); n != 2 {
		t.Fatalf("expected open breaker to short-circuit, got %d hits", n)
	}
}

func TestGet_BreakerIgnoresClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	cb := NewBreaker("test", BreakerSettings{Timeout: time.Minute, FailureThreshold: 1}, nil)
	c := New(Config{}, WithCircuitBreaker(cb))
	for i := 0; i < 3; i++ {
		_, _ = c.Get(context.Background(), srv.URL, KindJSON)
	}
	if cb.State() != gobreaker.StateClosed {
		t.Fatalf("expected closed breaker, got %s", cb.State())
	}
}

func TestRoute_EscapesTarget(t *testing.T) {
	c := New(Config{ProxyURL: "https://proxy.example/proxy?url="})
	got := c.route("https://a.example/x?y=1&z=2")
	want := "https://proxy.example/proxy?url=" + url.QueryEscape("https://a.example/x?y=1&z=2")
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
