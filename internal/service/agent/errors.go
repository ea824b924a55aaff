package agent

import (
	"errors"
	"fmt"
)

var (
	ErrSessionRequired = errors.New("session id is required")
	ErrTextRequired    = errors.New("turn text is required")
	ErrInvalidSequence = errors.New("turn sequence id must be a positive number")
)

// UpstreamError carries a rejected upstream response verbatim so
// callers can surface the diagnostics unmodified.
type UpstreamError struct {
	Status      int
	Body        string
	ContentType string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.Status, clip(e.Body, 200))
}

// StreamError marks a transport failure after the stream opened. Bytes
// already delivered stand; the rest of the turn is lost.
type StreamError struct {
	Err error
}

func (e *StreamError) Error() string {
	return "stream interrupted: " + e.Err.Error()
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
