// Package ratelimiter throttles external tool invocations with a token
// bucket so scripted runs don't flood the VL and volume servers.
package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter is a token bucket shared by every invocation of a runner.
//
// Thread safety:
// All methods are safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New creates a RateLimiter allowing perSecond invocations per second with
// bursts of up to burst.
//
// Special cases:
//   - perSecond <= 0: no limit
//   - burst <= 0: burst of 1 (strictly paced)
func New(perSecond float64, burst int) *RateLimiter {
	if perSecond <= 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Unlimited reports whether the limiter never delays.
func (r *RateLimiter) Unlimited() bool {
	return r.limiter.Limit() == rate.Inf
}

// Allow takes a token if one is available, without waiting.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// Wait blocks until a token is available or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// Tokens returns the tokens currently in the bucket.
func (r *RateLimiter) Tokens() float64 {
	return r.limiter.Tokens()
}
