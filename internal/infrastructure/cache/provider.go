// Package cache provides the result cache: a TTL keyed store behind a
// pluggable provider, namespaced and toggled by configuration.
package cache

import (
	"context"
	"time"
)

// Provider is the pluggable storage backend of the result cache.
// Implementations must be safe for concurrent use.
type Provider interface {
	// Get returns the stored value and whether the key was present and live.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A non-positive ttl stores the entry without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes every entry.
	Clear(ctx context.Context) error

	// Has reports whether the key is present and live.
	Has(ctx context.Context, key string) (bool, error)
}

// Sweeper is an optional provider extension that removes expired entries
// eagerly instead of waiting for read-time eviction.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}
