package imagecache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/cardforge/cardforge/internal/constants"
)

// Fetcher downloads artwork bytes with bounded retries. Server-side errors
// and network failures retry with exponential backoff plus jitter; client
// errors (4xx) fail fast since retrying cannot change the outcome.
type Fetcher struct {
	client      *http.Client
	maxAttempts int
	baseDelay   time.Duration
}

// NewFetcher creates a fetcher with the default retry policy.
func NewFetcher() *Fetcher {
	return &Fetcher{
		client:      &http.Client{Timeout: 30 * time.Second},
		maxAttempts: constants.FetchMaxAttempts,
		baseDelay:   constants.FetchBaseDelay,
	}
}

// NewFetcherWithPolicy creates a fetcher with an explicit client and retry
// policy. Used by tests to shrink delays.
func NewFetcherWithPolicy(client *http.Client, maxAttempts int, baseDelay time.Duration) *Fetcher {
	return &Fetcher{client: client, maxAttempts: maxAttempts, baseDelay: baseDelay}
}

// permanentError marks failures that retrying cannot fix.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Fetch downloads url, retrying transient failures up to the attempt bound.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < f.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := f.baseDelay << (attempt - 1)
			delay += rand.N(delay/2 + 1)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		blob, err := f.attempt(ctx, url)
		if err == nil {
			return blob, nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return nil, perm.err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
	}
	return nil, fmt.Errorf("fetch %s: giving up after %d attempts: %w", url, f.maxAttempts, lastErr)
}

func (f *Fetcher) attempt(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &permanentError{err: fmt.Errorf("build request: %w", err)}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		blob, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response body: %w", err)
		}
		return blob, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, &permanentError{
			err: fmt.Errorf("fetch %s: status %d", url, resp.StatusCode),
		}
	default:
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
}
