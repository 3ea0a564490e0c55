package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache: key not found")

// Service is the cache surface the decision state and run records ride on.
// RedisCache backs it in production, MemoryCache in tests, and LayeredCache
// stacks the two.
type Service interface {
	// Set stores value under key. Strings go in verbatim, everything else
	// as JSON. A zero expiration means backend-default retention.
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error

	// Get loads key into dest (a *string gets the raw payload, any other
	// pointer is JSON-decoded). Returns ErrCacheMiss when absent.
	Get(ctx context.Context, key string, dest interface{}) error

	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, keys ...string) (bool, error)

	// TryLock acquires an advisory lock on key for at most ttl. It reports
	// false without error when another holder already owns it.
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}
