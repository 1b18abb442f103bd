package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned when a key is not found in the cache or has expired
var ErrCacheMiss = errors.New("cache miss")

// Cache defines the interface for caching data
type Cache interface {
	// Get retrieves a value from the cache
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with optional expiration
	// If ttl is 0, the value will not be cached
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete invalidates the given keys, missing keys are ignored
	Delete(ctx context.Context, keys ...string) error

	// DeletePrefix invalidates every key starting with prefix
	DeletePrefix(ctx context.Context, prefix string) error

	// Close releases any resources used by the cache
	Close() error
}
