package command

import (
	"context"
	"fmt"
)

// Limiter paces invocations. *ratelimiter.RateLimiter satisfies it.
type Limiter interface {
	Wait(ctx context.Context) error
}

// RateLimitedRunner waits on Limiter before every invocation of Next.
type RateLimitedRunner struct {
	Next    Runner
	Limiter Limiter
}

// NewRateLimitedRunner wraps next.
func NewRateLimitedRunner(next Runner, limiter Limiter) *RateLimitedRunner {
	return &RateLimitedRunner{Next: next, Limiter: limiter}
}

func (r *RateLimitedRunner) Run(ctx context.Context, inv Invocation) (Result, error) {
	if err := r.Limiter.Wait(ctx); err != nil {
		return Result{}, fmt.Errorf("%s: rate limit: %w", inv.Program(), err)
	}
	return r.Next.Run(ctx, inv)
}
