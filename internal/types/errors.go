package types

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common failure modes.
var (
	ErrNoResultsTable    = errors.New("no results table found in page")
	ErrInvalidURL        = errors.New("invalid URL")
	ErrCheckpointCorrupt = errors.New("checkpoint is corrupt")
	ErrWalkerExhausted   = errors.New("listing walker exhausted before target")
)

// FetchError wraps errors that occur while fetching a page.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
	Retryable  bool
	RetryAfter time.Duration // populated from Retry-After header on HTTP 429
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) IsRetryable() bool { return e.Retryable }

// ParseError wraps errors that occur while locating expected page structure.
type ParseError struct {
	URL  string
	What string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error for %s (%s): %v", e.URL, e.What, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
