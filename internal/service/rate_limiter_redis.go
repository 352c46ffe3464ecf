package service

import (
	"context"
	"fmt"
	"time"

	"github.com/fintrackapp/auth-service/pkg/database"
	"github.com/redis/go-redis/v9"
)

// RedisRateLimiter is the shared-store variant of the sliding-window limiter
// for multi-instance deployments. Attempts are scored by timestamp in a ZSET
// per (operation, key); Redis key TTLs bound memory, so Cleanup is a no-op.
type RedisRateLimiter struct {
	redis *database.Redis
}

// NewRedisRateLimiter creates a Redis-backed rate limiter
func NewRedisRateLimiter(redis *database.Redis) *RedisRateLimiter {
	return &RedisRateLimiter{redis: redis}
}

// Check implements the sliding window log algorithm on a Redis sorted set.
func (l *RedisRateLimiter) Check(ctx context.Context, operation, key string, maxAttempts int, window time.Duration) error {
	now := time.Now()
	windowStart := now.Add(-window)
	redisKey := fmt.Sprintf("ratelimit:%s:%s", operation, key)

	// Remove entries older than the window
	err := l.redis.Client.ZRemRangeByScore(ctx, redisKey, "0", fmt.Sprintf("%d", windowStart.UnixNano())).Err()
	if err != nil {
		return fmt.Errorf("failed to clean old entries: %w", err)
	}

	count, err := l.redis.Client.ZCard(ctx, redisKey).Result()
	if err != nil {
		return fmt.Errorf("failed to count entries: %w", err)
	}

	if count >= int64(maxAttempts) {
		retryAfter := time.Second

		// Time until the oldest remaining entry falls outside the window
		oldest, err := l.redis.Client.ZRangeWithScores(ctx, redisKey, 0, 0).Result()
		if err == nil && len(oldest) > 0 {
			oldestTime := time.Unix(0, int64(oldest[0].Score))
			if remaining := window - now.Sub(oldestTime); remaining > retryAfter {
				retryAfter = remaining
			}
		}

		return &RateLimitError{RetryAfter: retryAfter}
	}

	member := fmt.Sprintf("%d", now.UnixNano())
	err = l.redis.Client.ZAdd(ctx, redisKey, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: member,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to add entry: %w", err)
	}

	// Expire the whole bucket once it can no longer affect any check
	if err := l.redis.Client.Expire(ctx, redisKey, window+time.Minute).Err(); err != nil {
		return fmt.Errorf("failed to set bucket expiry: %w", err)
	}

	return nil
}

// Cleanup is a no-op: key TTLs evict stale buckets server-side.
func (l *RedisRateLimiter) Cleanup(context.Context) error {
	return nil
}
