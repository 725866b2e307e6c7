package fetcher

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/Pjroelofsen/gradharvest/internal/types"
)

// Page is the content of one fetched page.
type Page struct {
	URL           string
	StatusCode    int
	Body          []byte
	FinalURL      string
	FetchDuration time.Duration
	FetchedAt     time.Time
}

// Fetcher retrieves a single page. Implementations retry retryable failures
// internally up to the configured attempt ceiling; a returned error is final.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
	Close() error
}

// RetryPolicy bounds retry behavior for a fetcher.
type RetryPolicy struct {
	// MaxAttempts is the total attempt ceiling, first try included.
	MaxAttempts int

	// BaseDelay seeds the exponential backoff; MaxDelay caps it.
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// Backoff returns the randomized exponential delay before the given retry
// (attempt is 1-based: the delay after the attempt-th failure).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			d = p.MaxDelay
			break
		}
	}
	// Jitter of +/-25% spreads retries from concurrent workers.
	jitter := float64(d) * 0.25
	d += time.Duration(rand.Float64()*2*jitter - jitter)
	if d < 0 {
		d = 0
	}
	return d
}

// fetchWithRetry drives one attempt function through the retry policy.
// Non-retryable failures (404s, context cancellation) return immediately.
func fetchWithRetry(ctx context.Context, url string, policy RetryPolicy, attempt func(ctx context.Context) (*Page, error)) (*Page, error) {
	var lastErr error

	for try := 1; try <= policy.MaxAttempts; try++ {
		page, err := attempt(ctx)
		if err == nil {
			return page, nil
		}
		lastErr = err

		var fe *types.FetchError
		if !errors.As(err, &fe) || !fe.IsRetryable() {
			return nil, err
		}
		if try == policy.MaxAttempts {
			break
		}

		delay := policy.Backoff(try)
		if fe.RetryAfter > delay {
			delay = fe.RetryAfter
		}

		select {
		case <-ctx.Done():
			return nil, &types.FetchError{URL: url, Err: ctx.Err(), Retryable: false}
		case <-time.After(delay):
		}
	}

	return nil, lastErr
}
