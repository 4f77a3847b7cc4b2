package config

import "github.com/marmos91/afsctl/internal/ratelimiter"

// CreateRateLimiter returns the invocation limiter described by cfg, or nil
// when no rate is configured.
func CreateRateLimiter(cfg *CommandConfig) *ratelimiter.RateLimiter {
	if cfg.RateLimit.RequestsPerSecond <= 0 {
		return nil
	}
	return ratelimiter.New(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
}
