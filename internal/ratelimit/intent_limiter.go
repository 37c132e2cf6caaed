package ratelimit

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/somagouache/gouache/internal/config"
)

const keyIntentBuyer = "gouache:ratelimit:intent:buyer:"

// IntentLimiter throttles payment intent creation per buyer.
type IntentLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

// NewIntentLimiter returns nil when redis is absent or the limit is zero.
func NewIntentLimiter(client *redis.Client, cfg config.Config) *IntentLimiter {
	if client == nil || cfg.IntentRateLimit <= 0 {
		return nil
	}
	return &IntentLimiter{
		bucket: NewTokenBucket(client),
		rate:   float64(cfg.IntentRateLimit) / time.Minute.Seconds(),
		burst:  cfg.IntentRateLimit,
	}
}

func (l *IntentLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

func (l *IntentLimiter) AllowBuyer(ctx context.Context, buyerID string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, keyIntentBuyer+buyerID, l.rate, l.burst)
}
