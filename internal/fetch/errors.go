package fetch

import (
	"errors"
	"fmt"
	"net/http"
)

// Error taxonomy shared by every network-facing component.
var (
	ErrTimeout             = errors.New("fetch: timeout")
	ErrRateLimited         = errors.New("fetch: rate limited")
	ErrUpstreamUnavailable = errors.New("fetch: upstream unavailable")
	ErrRequestFailed       = errors.New("fetch: request failed")
	ErrParseFailure        = errors.New("fetch: parse failure")
)

// StatusError is returned for any non-2xx response. It unwraps to the
// sentinel matching its status class.
type StatusError struct {
	URL  string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch: status %d url=%s body=%q", e.Code, e.URL, e.Body)
}

func (e *StatusError) Unwrap() error {
	switch {
	case e.Code == http.StatusTooManyRequests:
		return ErrRateLimited
	case e.Code >= 500:
		return ErrUpstreamUnavailable
	default:
		return ErrRequestFailed
	}
}

// Retryable reports whether err is a transient failure worth retrying after
// a backoff.
func Retryable(err error) bool {
	return errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrUpstreamUnavailable)
}

// Transient reports whether err is a network-layer failure, as opposed to a
// decoding problem or a caller cancellation.
func Transient(err error) bool {
	return Retryable(err) || errors.Is(err, ErrRequestFailed)
}

func snippet(b []byte) string {
	return string(b[:min(len(b), 200)])
}
