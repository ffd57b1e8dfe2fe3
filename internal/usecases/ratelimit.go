package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/sand/lbc-exchange/backend/internal/core/ports"
)

// Counter is a shared counter store with per-key expiry.
type Counter interface {
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, expiration time.Duration) error
}

// OrderRateLimiter allows at most limit order submissions per key in each fixed window.
type OrderRateLimiter struct {
	counter Counter
	limit   int64
	window  time.Duration
	prefix  string
}

var _ ports.RateLimiter = (*OrderRateLimiter)(nil)

func NewOrderRateLimiter(counter Counter, limit int64, window time.Duration, prefix string) *OrderRateLimiter {
	return &OrderRateLimiter{
		counter: counter,
		limit:   limit,
		window:  window,
		prefix:  prefix,
	}
}

func (r *OrderRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	const op = "OrderRateLimiter.Allow"

	key = r.prefix + key

	count, err := r.counter.Incr(ctx, key)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	// The first hit opens the window.
	if count == 1 {
		if err = r.counter.Expire(ctx, key, r.window); err != nil {
			return false, fmt.Errorf("%s: %w", op, err)
		}
	}

	return count <= r.limit, nil
}
