package transapi

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures the outbound rate limit.
type RateLimitConfig struct {
	RequestsPerMinute int // Maximum requests per minute
	BurstSize         int // Maximum burst size (default: same as RPM)
}

// RateLimitedFetcher wraps a Fetcher with a token bucket. It only delays
// calls; it never retries them.
type RateLimitedFetcher struct {
	fetcher Fetcher
	limiter *rate.Limiter
}

// NewRateLimitedFetcher creates a new rate-limited fetcher.
func NewRateLimitedFetcher(fetcher Fetcher, cfg RateLimitConfig) *RateLimitedFetcher {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60 // Default: 60 RPM
	}

	burst := cfg.BurstSize
	if burst <= 0 {
		burst = rpm
	}

	return &RateLimitedFetcher{
		fetcher: fetcher,
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst),
	}
}

// Fetch implements Fetcher. A wait cut short by ctx is reported as a
// TransportError since the service was never reached.
func (f *RateLimitedFetcher) Fetch(ctx context.Context, req LookupRequest) (*TranslationResult, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, &TransportError{Cause: err}
	}
	return f.fetcher.Fetch(ctx, req)
}

// Limiter returns the underlying rate limiter for inspection.
func (f *RateLimitedFetcher) Limiter() *rate.Limiter {
	return f.limiter
}
