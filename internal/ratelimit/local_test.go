package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/spacebook/internal/clock"
	"github.com/smallbiznis/spacebook/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPolicy(rate float64, burst int) *config.PolicyHolder {
	p := config.DefaultPolicy()
	p.RateLimit.Rate = rate
	p.RateLimit.Burst = burst
	return config.NewStaticPolicyHolder(p)
}

func TestLocalLimiterBurstThenRefill(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	limiter := NewLocalLimiter(testPolicy(1, 3), clk)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := limiter.Allow(ctx, "user-1")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d", i)
		assert.Equal(t, 3, res.Limit)
	}

	res, err := limiter.Allow(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, time.Second, res.RetryAfter)

	clk.Advance(time.Second)
	res, err = limiter.Allow(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestLocalLimiterKeysAreIndependent(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	limiter := NewLocalLimiter(testPolicy(1, 1), clk)
	ctx := context.Background()

	res, err := limiter.Allow(ctx, "a")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = limiter.Allow(ctx, "a")
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	res, err = limiter.Allow(ctx, "b")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestLocalLimiterEvictsIdleBuckets(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	limiter := NewLocalLimiter(testPolicy(10, 2), clk)
	limiter.maxKeys = 2
	ctx := context.Background()

	_, err := limiter.Allow(ctx, "a")
	require.NoError(t, err)
	_, err = limiter.Allow(ctx, "b")
	require.NoError(t, err)

	clk.Advance(time.Second)
	_, err = limiter.Allow(ctx, "c")
	require.NoError(t, err)

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	assert.Len(t, limiter.limiters, 1)
	assert.Contains(t, limiter.limiters, "c")
}

func TestLocalLimiterRejectsEmptyKey(t *testing.T) {
	limiter := NewLocalLimiter(testPolicy(1, 1), clock.Real{})
	_, err := limiter.Allow(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyKey)
}
