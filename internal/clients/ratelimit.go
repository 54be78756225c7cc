// Package clients provides shared HTTP plumbing for the external API
// clients (CrossRef metadata, Zotero local API): token-bucket rate
// limiting and a retrying HTTP client.
package clients

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter wraps a token bucket rate limiter for controlling request
// rates to external APIs. Safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a new rate limiter with the given sustained rate
// (requests per second) and burst size.
//
// Example configurations:
//   - CrossRef polite pool: NewRateLimiter(10, 10)
//   - Zotero local API: NewRateLimiter(20, 20)
func NewRateLimiter(ratePerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
	}
}

// Wait blocks until a request is allowed or the context is canceled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// Allow returns true if a request is allowed without waiting, consuming
// one token when it is.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// Tokens returns the current number of available tokens. Useful for
// monitoring and tests.
func (r *RateLimiter) Tokens() float64 {
	return r.limiter.Tokens()
}
