package cache

import (
	"context"
	"time"

	"queryforge/pkg/logger"
)

// Config holds result cache configuration.
type Config struct {
	Enabled    bool
	Prefix     string        // key namespace, e.g. "queryforge"
	DefaultTTL time.Duration // applied when Set receives no explicit TTL
}

// Cache wraps a Provider with namespacing, a default TTL and an enable
// switch. When disabled every operation is a no-op returning empty results.
// Provider failures are logged as warnings and treated as misses; caching
// is strictly best-effort and never fails a query.
type Cache struct {
	provider Provider
	enabled  bool
	prefix   string
	ttl      time.Duration
}

// New creates a Cache over a provider.
func New(provider Provider, cfg Config) *Cache {
	return &Cache{
		provider: provider,
		enabled:  cfg.Enabled,
		prefix:   cfg.Prefix,
		ttl:      cfg.DefaultTTL,
	}
}

// Enabled reports whether the cache participates in lookups.
func (c *Cache) Enabled() bool {
	return c != nil && c.enabled && c.provider != nil
}

// DefaultTTL returns the configured default entry lifetime.
func (c *Cache) DefaultTTL() time.Duration {
	return c.ttl
}

func (c *Cache) namespaced(key string) string {
	if c.prefix == "" {
		return key
	}
	return c.prefix + ":" + key
}

// Get returns the cached value for key, or (nil, false) on miss, expiry,
// disabled cache or provider failure.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	if !c.Enabled() {
		return nil, false
	}

	value, ok, err := c.provider.Get(ctx, c.namespaced(key))
	if err != nil {
		logger.Warn(ctx, "cache get failed", "key", key, "error", err)
		return nil, false
	}
	return value, ok
}

// Set stores a value under key. A non-positive ttl falls back to the
// configured default.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if !c.Enabled() {
		return
	}
	if ttl <= 0 {
		ttl = c.ttl
	}

	if err := c.provider.Set(ctx, c.namespaced(key), value, ttl); err != nil {
		logger.Warn(ctx, "cache set failed", "key", key, "error", err)
	}
}

// Delete removes a key.
func (c *Cache) Delete(ctx context.Context, key string) {
	if !c.Enabled() {
		return
	}
	if err := c.provider.Delete(ctx, c.namespaced(key)); err != nil {
		logger.Warn(ctx, "cache delete failed", "key", key, "error", err)
	}
}

// Clear removes every entry of the underlying provider.
func (c *Cache) Clear(ctx context.Context) {
	if !c.Enabled() {
		return
	}
	if err := c.provider.Clear(ctx); err != nil {
		logger.Warn(ctx, "cache clear failed", "error", err)
	}
}

// Has reports whether key is present and live.
func (c *Cache) Has(ctx context.Context, key string) bool {
	if !c.Enabled() {
		return false
	}

	ok, err := c.provider.Has(ctx, c.namespaced(key))
	if err != nil {
		logger.Warn(ctx, "cache has failed", "key", key, "error", err)
		return false
	}
	return ok
}

// GetOrCompute returns the cached value for key or invokes compute, stores
// its result and returns it. The bool reports whether the value came from
// cache.
//
// There is no cross-caller mutual exclusion: two concurrent calls with the
// same key may both miss and both invoke compute, each overwriting the
// entry (last write wins).
func (c *Cache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(ctx context.Context) ([]byte, error)) ([]byte, bool, error) {
	if value, ok := c.Get(ctx, key); ok {
		return value, true, nil
	}

	value, err := compute(ctx)
	if err != nil {
		return nil, false, err
	}

	c.Set(ctx, key, value, ttl)
	return value, false, nil
}

// Sweep eagerly removes expired entries when the provider supports it,
// returning the number removed.
func (c *Cache) Sweep(ctx context.Context) int {
	if !c.Enabled() {
		return 0
	}

	sweeper, ok := c.provider.(Sweeper)
	if !ok {
		return 0
	}

	removed, err := sweeper.Sweep(ctx)
	if err != nil {
		logger.Warn(ctx, "cache sweep failed", "error", err)
		return 0
	}
	if removed > 0 {
		logger.Debug(ctx, "cache sweep removed expired entries", "count", removed)
	}
	return removed
}
