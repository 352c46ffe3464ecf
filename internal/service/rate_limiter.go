package service

import (
	"context"
	"sync"
	"time"
)

// MemoryRateLimiter is the default sliding-window log limiter. Buckets are
// keyed by (operation, client key) and live in process memory, so the limit is
// advisory and local to one instance; multi-instance deployments swap in the
// Redis implementation without changing the Check contract.
type MemoryRateLimiter struct {
	mu      sync.Mutex
	buckets map[string][]time.Time
	now     func() time.Time
}

// NewMemoryRateLimiter creates a new in-memory rate limiter
func NewMemoryRateLimiter() *MemoryRateLimiter {
	return &MemoryRateLimiter{
		buckets: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Check trims timestamps older than the window, then either rejects the
// attempt with a RateLimitError or appends the current timestamp.
func (l *MemoryRateLimiter) Check(_ context.Context, operation, key string, maxAttempts int, window time.Duration) error {
	now := l.now()
	cutoff := now.Add(-window)
	bucketKey := operation + ":" + key

	l.mu.Lock()
	defer l.mu.Unlock()

	attempts := l.buckets[bucketKey]

	// Drop attempts that have slid out of the window.
	kept := attempts[:0]
	for _, at := range attempts {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}

	if len(kept) >= maxAttempts {
		l.buckets[bucketKey] = kept

		// Time until the oldest remaining attempt leaves the window.
		retryAfter := kept[0].Add(window).Sub(now)
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		return &RateLimitError{RetryAfter: retryAfter}
	}

	l.buckets[bucketKey] = append(kept, now)
	return nil
}

// Cleanup drops buckets whose every attempt has left the largest plausible
// window, bounding memory under sustained low-level traffic.
func (l *MemoryRateLimiter) Cleanup(_ context.Context) error {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, attempts := range l.buckets {
		stale := true
		for _, at := range attempts {
			if now.Sub(at) < maxBucketAge {
				stale = false
				break
			}
		}
		if stale {
			delete(l.buckets, key)
		}
	}

	return nil
}

// Attempts older than this can no longer influence any configured window.
const maxBucketAge = 24 * time.Hour

// Len returns the number of live buckets.
func (l *MemoryRateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
