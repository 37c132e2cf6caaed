package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/somagouache/gouache/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultBucketTTL(t *testing.T) {
	assert.Equal(t, 120*time.Second, defaultBucketTTL(20.0/60, 20))
	assert.Equal(t, time.Second, defaultBucketTTL(1000, 1))
	assert.Equal(t, time.Second, defaultBucketTTL(0, 5))
}

func TestBucketResultRetryAfter(t *testing.T) {
	denied := bucketResult(false, 0.5, 1_000, 2, 10)
	assert.False(t, denied.Allowed)
	assert.Equal(t, 250*time.Millisecond, denied.RetryAfter)
	assert.Equal(t, time.UnixMilli(1_000).Add(250*time.Millisecond), denied.ResetTime)

	allowed := bucketResult(true, 4.2, 1_000, 2, 10)
	assert.True(t, allowed.Allowed)
	assert.Equal(t, 4, allowed.Remaining)
	assert.Zero(t, allowed.RetryAfter)
	assert.Equal(t, 10, allowed.Limit)
}

func TestCastToInt(t *testing.T) {
	assert.Equal(t, int64(7), castToInt(int64(7)))
	assert.Equal(t, int64(7), castToInt("7"))
	assert.Equal(t, int64(0), castToInt(nil))
}

func TestDisabledIntentLimiterAllows(t *testing.T) {
	limiter := NewIntentLimiter(nil, config.Config{IntentRateLimit: 20})
	assert.Nil(t, limiter)
	assert.False(t, limiter.Enabled())

	res, err := limiter.AllowBuyer(context.Background(), "buyer_1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestNilLockerRunsUnguarded(t *testing.T) {
	var locker *Locker
	ran := false
	acquired, err := locker.WithLock(context.Background(), "replay", time.Minute, func(ctx context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, acquired)
	assert.True(t, ran)

	_, _, err = locker.TryLock(context.Background(), "replay", time.Minute)
	assert.True(t, errors.Is(err, ErrLockNotConfigured))
}
