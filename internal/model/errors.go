package model

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors of the pipeline taxonomy. Providers and the orchestrator
// wrap these so callers can classify failures with errors.Is.
var (
	ErrInputInvalid = errors.New("invalid repository reference")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrDecode       = errors.New("content is not decodable text")
	ErrTooLarge     = errors.New("content too large")
)

// RateLimitedError is returned when the hosting service refuses requests
// and the retry budget is exhausted. ResetAt tells when requests are
// expected to be accepted again.
type RateLimitedError struct {
	ResetAt time.Time
}

func (e *RateLimitedError) Error() string {
	if e.ResetAt.IsZero() {
		return "rate limited"
	}
	return "rate limited until " + e.ResetAt.UTC().Format(time.RFC3339)
}

// TransportError is returned when a request failed on the network level or
// with a server-side status after all retries. It never carries the raw
// response body or any credential.
type TransportError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// PipelineError wraps any pipeline failure at the orchestration boundary,
// recording which stage of the run it happened in.
type PipelineError struct {
	Stage RunState
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("analysis failed at stage %s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}
