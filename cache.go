package typeddal

import (
	"context"
	"time"
)

// Cache is the interface for storing encoded table metadata snapshots.
// Users may implement it with their preferred caching solution
// (e.g., Redis, Memcached, in-memory).
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns nil, nil if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with an optional TTL.
	// If ttl is 0, the value should not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache.
	Delete(ctx context.Context, key string) error
}

// CacheKey identifies the snapshot of a single table.
type CacheKey struct {
	Dialect string
	Table   string
}

// String returns the string representation of the cache key.
func (k CacheKey) String() string {
	return "typeddal:" + k.Dialect + ":" + k.Table
}
