package llm

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimited holds each call until the token bucket allows it.
type RateLimited struct {
	Provider
	limiter *rate.Limiter
}

// WithRateLimit wraps p so that at most perSecond calls start per second.
// A non-positive rate returns p unchanged.
func WithRateLimit(p Provider, perSecond float64, burst int) Provider {
	if perSecond <= 0 {
		return p
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{Provider: p, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (r *RateLimited) Ask(ctx context.Context, req Request) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return r.Provider.Ask(ctx, req)
}
