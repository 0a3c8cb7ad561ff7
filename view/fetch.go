package view

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultFetchTimeout bounds a single snapshot request.
	DefaultFetchTimeout = 30 * time.Second
	// DefaultFetchAttempts is how many times a transient failure is tried.
	DefaultFetchAttempts = 3

	defaultFetchBackoff = 500 * time.Millisecond
	// snapshots carry full image tensors; cap them well above a typical frame
	maxSnapshotBytes = 256 << 20
)

// errClientStatus marks 4xx responses, which are not retried.
var errClientStatus = errors.New("client error")

// FetchOption configures FetchSnapshot.
type FetchOption func(*fetchConfig)

type fetchConfig struct {
	timeout  time.Duration
	attempts int
	backoff  time.Duration
	client   *http.Client
}

// WithFetchTimeout sets the per-request timeout.
func WithFetchTimeout(d time.Duration) FetchOption {
	return func(c *fetchConfig) { c.timeout = d }
}

// WithFetchAttempts sets the number of attempts (minimum 1).
func WithFetchAttempts(n int) FetchOption {
	return func(c *fetchConfig) { c.attempts = n }
}

// WithFetchBackoff sets the delay before the first retry; it doubles after each.
func WithFetchBackoff(d time.Duration) FetchOption {
	return func(c *fetchConfig) { c.backoff = d }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) FetchOption {
	return func(c *fetchConfig) { c.client = client }
}

// FetchSnapshot downloads and decodes a snapshot from the simulator's HTTP
// endpoint. Network errors and 5xx responses are retried with exponential
// backoff; decode errors and 4xx responses are returned immediately.
func FetchSnapshot(ctx context.Context, url string, opts ...FetchOption) (*Snapshot, error) {
	if url == "" {
		return nil, fmt.Errorf("fetch snapshot: URL is empty")
	}

	cfg := fetchConfig{
		timeout:  DefaultFetchTimeout,
		attempts: DefaultFetchAttempts,
		backoff:  defaultFetchBackoff,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.attempts < 1 {
		cfg.attempts = 1
	}
	client := cfg.client
	if client == nil {
		client = &http.Client{Timeout: cfg.timeout}
	}

	var lastErr error
	delay := cfg.backoff
	for attempt := 0; attempt < cfg.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("fetch snapshot: %w", ctx.Err())
			case <-time.After(delay):
			}
			delay *= 2
		}

		body, err := fetchOnce(ctx, client, url)
		if err != nil {
			if errors.Is(err, errClientStatus) {
				return nil, fmt.Errorf("fetch snapshot: %w", err)
			}
			lastErr = err
			continue
		}

		snap, err := DecodeSnapshot(body)
		if err != nil {
			return nil, fmt.Errorf("fetch snapshot: %w", err)
		}
		return snap, nil
	}
	return nil, fmt.Errorf("fetch snapshot: all %d attempts failed: %w", cfg.attempts, lastErr)
}

func fetchOnce(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP GET %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, fmt.Errorf("HTTP GET %s: status %d: %w", url, resp.StatusCode, errClientStatus)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("HTTP GET %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSnapshotBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", url, err)
	}
	return body, nil
}
