package usecases

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCounter struct {
	counts  map[string]int64
	expires map[string]time.Duration
	err     error
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{counts: map[string]int64{}, expires: map[string]time.Duration{}}
}

func (c *fakeCounter) Incr(_ context.Context, key string) (int64, error) {
	if c.err != nil {
		return 0, c.err
	}
	c.counts[key]++
	return c.counts[key], nil
}

func (c *fakeCounter) Expire(_ context.Context, key string, expiration time.Duration) error {
	c.expires[key] = expiration
	return nil
}

func TestOrderRateLimiterAllow(t *testing.T) {
	counter := newFakeCounter()
	limiter := NewOrderRateLimiter(counter, 2, time.Minute, "orders:submit:")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, err := limiter.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, err := limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, allowed)

	// Other clients have their own window
	allowed, err = limiter.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, allowed)

	assert.Equal(t, time.Minute, counter.expires["orders:submit:10.0.0.1"])
	assert.Len(t, counter.expires, 2)
}

func TestOrderRateLimiterCounterFailure(t *testing.T) {
	counter := newFakeCounter()
	counter.err = errors.New("connection refused")
	limiter := NewOrderRateLimiter(counter, 2, time.Minute, "")

	allowed, err := limiter.Allow(context.Background(), "10.0.0.1")
	require.ErrorIs(t, err, counter.err)
	assert.False(t, allowed)
}
