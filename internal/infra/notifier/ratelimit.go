package notifier

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter paces outgoing webhook calls with a token bucket.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter allows burst requests immediately, then refills at
// requestsPerSecond.
//
// Example:
//
//	limiter := NewRateLimiter(0.5, 3) // 30 req/min, burst of 3
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), max(burst, 1))}
}

// Allow blocks until a token is available or ctx is done.
func (r *RateLimiter) Allow(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}
