package clients

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/evelasko/zotero-citation-linker-sub001/internal/domain"
)

// HTTPClientConfig configures the HTTP client.
type HTTPClientConfig struct {
	// Timeout is the per-request timeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxRetries is the maximum number of retry attempts.
	MaxRetries int

	// RetryDelay is the base delay between retries.
	RetryDelay time.Duration

	// UserAgent is the User-Agent header sent with requests.
	UserAgent string
}

// HTTPClient wraps http.Client with rate limiting and retries on 429 and
// 5xx responses. Safe for concurrent use.
type HTTPClient struct {
	client      *http.Client
	rateLimiter *RateLimiter
	config      HTTPClientConfig
}

// NewHTTPClient creates a new HTTP client with rate limiting. Zero-valued
// config fields fall back to conservative defaults.
func NewHTTPClient(cfg HTTPClientConfig) *HTTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 10
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = 10
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "CitationLinker/1.0"
	}

	return &HTTPClient{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: NewRateLimiter(cfg.RateLimit, cfg.BurstSize),
		config:      cfg,
	}
}

// Do executes an HTTP request with rate limiting and retries. The rate
// limiter is consulted before every attempt; 429 responses honor the
// Retry-After header. Request bodies are not preserved across retries, so
// callers sending bodies must set GetBody.
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if err := c.rateLimiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			lastErr = fmt.Errorf("request failed: %w", err)
			if attempt == c.config.MaxRetries {
				return nil, lastErr
			}
			if err := sleepCtx(req.Context(), c.config.RetryDelay); err != nil {
				return nil, err
			}
			if err := resetBody(req); err != nil {
				return nil, fmt.Errorf("cannot retry request: %w", err)
			}
			continue
		}

		if !retryableStatus(resp.StatusCode) {
			return resp, nil
		}

		delay := c.retryDelay(resp)
		drain(resp)

		if attempt == c.config.MaxRetries {
			return nil, exhaustedError(resp.StatusCode, c.config.MaxRetries+1)
		}
		lastErr = fmt.Errorf("server returned status %d", resp.StatusCode)
		if err := sleepCtx(req.Context(), delay); err != nil {
			return nil, err
		}
		if err := resetBody(req); err != nil {
			return nil, fmt.Errorf("cannot retry request: %w", err)
		}
	}

	return nil, lastErr
}

// exhaustedError classifies the final retryable status so callers can
// react with errors.Is: 429 maps to ErrRateLimited, 5xx to
// ErrServiceUnavailable.
func exhaustedError(statusCode, attempts int) error {
	sentinel := domain.ErrServiceUnavailable
	if statusCode == http.StatusTooManyRequests {
		sentinel = domain.ErrRateLimited
	}
	return fmt.Errorf("max retries exhausted after %d attempts, last status %d: %w",
		attempts, statusCode, sentinel)
}

// retryableStatus reports whether the status code warrants a retry.
func retryableStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests ||
		(statusCode >= 500 && statusCode < 600)
}

// retryDelay determines how long to wait before retrying, honoring the
// Retry-After header when present.
func (c *HTTPClient) retryDelay(resp *http.Response) time.Duration {
	retryAfter := resp.Header.Get("Retry-After")
	if retryAfter == "" {
		return c.config.RetryDelay
	}

	if seconds, err := strconv.ParseInt(retryAfter, 10, 64); err == nil {
		if seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
		return c.config.RetryDelay
	}

	if t, err := http.ParseTime(retryAfter); err == nil {
		if delay := time.Until(t); delay > 0 {
			return delay
		}
	}

	return c.config.RetryDelay
}

// sleepCtx waits for the given duration, respecting context cancellation.
func sleepCtx(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// drain discards and closes a response body so the connection can be
// reused before a retry.
func drain(resp *http.Response) {
	if resp.Body != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}
}

// resetBody restores the request body for retry when GetBody is set.
func resetBody(req *http.Request) error {
	if req.Body == nil || req.GetBody == nil {
		return nil
	}
	body, err := req.GetBody()
	if err != nil {
		return fmt.Errorf("getting request body for retry: %w", err)
	}
	req.Body = body
	return nil
}
