package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"rfpsonar/internal/config"
)

// ErrUnexpectedStatusCode indicates an HTTP response with unexpected status.
var ErrUnexpectedStatusCode = errors.New("unexpected status code")

// maxBodyBytes caps how much of a portal response is read.
const maxBodyBytes = 8 << 20

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Fetcher performs portal HTTP requests with config-driven retry logic.
// It keeps a cookie jar so authenticated portal sessions survive across
// requests.
type Fetcher struct {
	client      *http.Client
	retryPolicy *config.RetryPolicy
}

// NewFetcher creates a fetcher with default retry policy.
func NewFetcher() *Fetcher {
	return NewFetcherWithConfig(&config.RetryPolicy{
		MaxAttempts:       3,
		InitialDelayMs:    500,
		MaxDelayMs:        30000,
		BackoffMultiplier: 2.0,
		TimeoutSec:        30,
	})
}

// NewFetcherWithConfig creates a fetcher with a custom retry policy.
func NewFetcherWithConfig(retryPolicy *config.RetryPolicy) *Fetcher {
	jar, _ := cookiejar.New(nil)

	return &Fetcher{
		client: &http.Client{
			Timeout: retryPolicy.GetTimeout(),
			Jar:     jar,
		},
		retryPolicy: retryPolicy,
	}
}

// Get fetches the URL, retrying transient failures. Returns the body and
// the final URL after redirects.
func (f *Fetcher) Get(ctx context.Context, rawURL string) ([]byte, string, error) {
	return f.do(ctx, http.MethodGet, rawURL, "", nil)
}

// PostForm submits form values to the URL within the cookie context.
func (f *Fetcher) PostForm(ctx context.Context, rawURL string, values url.Values) ([]byte, string, error) {
	return f.do(ctx, http.MethodPost, rawURL, values.Encode(), map[string]string{
		"Content-Type": "application/x-www-form-urlencoded",
	})
}

func (f *Fetcher) do(ctx context.Context, method, rawURL, body string, headers map[string]string) ([]byte, string, error) {
	var lastErr error

	for attempt := 1; attempt <= f.retryPolicy.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := f.retryPolicy.GetRetryDelay(attempt)
			select {
			case <-ctx.Done():
				return nil, "", ctx.Err()
			case <-time.After(delay):
			}
		}

		var reader io.Reader = http.NoBody
		if body != "" {
			reader = strings.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create request: %w", err)
		}

		// Set user agent to avoid being blocked
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := f.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, "", ctx.Err()
			}
			lastErr = fmt.Errorf("request failed (attempt %d/%d): %w", attempt, f.retryPolicy.MaxAttempts, err)

			continue
		}

		content, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		closeErr := resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			lastErr = fmt.Errorf("%w: %d for %s", ErrUnexpectedStatusCode, resp.StatusCode, rawURL)
			if !isRetryableStatus(resp.StatusCode) {
				return nil, "", lastErr
			}

			continue
		}

		if readErr != nil {
			lastErr = fmt.Errorf("failed to read response body: %w", readErr)

			continue
		}

		if closeErr != nil {
			lastErr = fmt.Errorf("failed to close response body: %w", closeErr)

			continue
		}

		return content, resp.Request.URL.String(), nil
	}

	return nil, "", lastErr
}

// isRetryableStatus determines if we should retry based on HTTP status code.
func isRetryableStatus(statusCode int) bool {
	// Retry on temporary failures
	switch statusCode {
	case http.StatusServiceUnavailable: // 503
		return true
	case http.StatusGatewayTimeout: // 504
		return true
	case http.StatusTooManyRequests: // 429
		return true
	case http.StatusRequestTimeout: // 408
		return true
	}

	return false
}
