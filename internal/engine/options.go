package engine

import (
	"time"
)

// Options is the engine configuration surface. Zero values are replaced by
// the documented defaults through Normalize.
type Options struct {
	// DefaultPageSize applies when pagination is requested without a size.
	DefaultPageSize int

	// MaxPageSize bounds pageSize and limit values.
	MaxPageSize int

	// EnableQueryLogging logs every executed plan at debug level.
	EnableQueryLogging bool

	// EnableCaching turns the result cache on.
	EnableCaching bool

	// CacheTTL is the lifetime of cached result envelopes.
	CacheTTL time.Duration

	// EnableValidation makes builder methods validate input eagerly and
	// fail at the call site.
	EnableValidation bool

	// PerformanceThreshold triggers a slow-query warning when a tracked
	// execution exceeds it.
	PerformanceThreshold time.Duration

	// EnablePerformanceMonitoring attaches per-execution metrics to results.
	EnablePerformanceMonitoring bool

	// AllowOffsetPagination permits raw offset/limit requests.
	AllowOffsetPagination bool
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		DefaultPageSize:             10,
		MaxPageSize:                 100,
		EnableQueryLogging:          false,
		EnableCaching:               true,
		CacheTTL:                    5 * time.Minute,
		EnableValidation:            true,
		PerformanceThreshold:        time.Second,
		EnablePerformanceMonitoring: true,
		AllowOffsetPagination:       true,
	}
}

// Normalize fills unset numeric fields with defaults and keeps the bounds
// coherent.
func (o Options) Normalize() Options {
	defaults := DefaultOptions()

	if o.DefaultPageSize <= 0 {
		o.DefaultPageSize = defaults.DefaultPageSize
	}
	if o.MaxPageSize <= 0 {
		o.MaxPageSize = defaults.MaxPageSize
	}
	if o.DefaultPageSize > o.MaxPageSize {
		o.DefaultPageSize = o.MaxPageSize
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = defaults.CacheTTL
	}
	if o.PerformanceThreshold <= 0 {
		o.PerformanceThreshold = defaults.PerformanceThreshold
	}
	return o
}
