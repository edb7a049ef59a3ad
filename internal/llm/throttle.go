package llm

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Throttled wraps a Completer with a token-bucket rate limit and a
// per-call deadline.
type Throttled struct {
	next    Completer
	limiter *rate.Limiter
	timeout time.Duration
}

// NewThrottled builds a Throttled completer. A non-positive rps disables
// rate limiting and a non-positive timeout disables the deadline.
func NewThrottled(next Completer, rps float64, burst int, timeout time.Duration) *Throttled {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst <= 0 {
		burst = 1
	}
	return &Throttled{
		next:    next,
		limiter: rate.NewLimiter(limit, burst),
		timeout: timeout,
	}
}

func (t *Throttled) Complete(ctx context.Context, req Request) (string, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return "", err
	}
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	return t.next.Complete(ctx, req)
}
