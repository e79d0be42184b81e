// Package reader holds the shared HTTP transport used by every source
// adapter. One GET per call, a fixed per-request timeout, no retries: when a
// request fails the invoking adapter's run fails with it.
package reader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// StatusError reports a non-2xx upstream response. The body is retained so
// callers can log a diagnostic preview without re-running the request.
type StatusError struct {
	URL        string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.StatusCode)
}

// BodyPreview returns at most n bytes of the response body for log output.
func (e *StatusError) BodyPreview(n int) string {
	if len(e.Body) <= n {
		return string(e.Body)
	}
	return string(e.Body[:n])
}

// Client is a thin GET-only wrapper around http.Client with a default
// User-Agent and optional request pacing for rate-limited providers.
type Client struct {
	http      *http.Client
	userAgent string
	limiter   *rate.Limiter
}

// NewClient builds a client with the given per-request timeout.
func NewClient(timeout time.Duration, userAgent string) *Client {
	return &Client{
		http:      &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// WithRateLimit returns a copy of the client that waits for the limiter
// before every request. Used for providers with per-minute request budgets.
func (c *Client) WithRateLimit(limiter *rate.Limiter) *Client {
	clone := *c
	clone.limiter = limiter
	return &clone
}

// Get performs a single GET and returns the response body. Non-2xx responses
// come back as *StatusError; there is no retry.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("GET %s: read body: %w", url, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode, Body: body}
	}

	return body, nil
}
