// Package cache provides a small TTL'd JSON cache used to memoize catalog
// listing responses. Entries are serialized to JSON so any response shape can
// be stored.
package cache

import (
	"context"
	"time"
)

// Store is a key-value cache with per-entry TTL eviction.
type Store interface {
	// Get unmarshals the cached value for key into dest. The boolean reports
	// whether the key was present and unexpired.
	Get(ctx context.Context, key string, dest any) (bool, error)

	// Set stores value under key for the given TTL.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}
