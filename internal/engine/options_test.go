package engine

import (
	"testing"
	"time"
)

func TestOptionsNormalize(t *testing.T) {
	t.Run("ZeroValueGetsDefaults", func(t *testing.T) {
		opts := Options{}.Normalize()

		if opts.DefaultPageSize != 10 {
			t.Errorf("expected default page size 10, got %d", opts.DefaultPageSize)
		}
		if opts.MaxPageSize != 100 {
			t.Errorf("expected max page size 100, got %d", opts.MaxPageSize)
		}
		if opts.CacheTTL != 5*time.Minute {
			t.Errorf("expected cache ttl 5m, got %v", opts.CacheTTL)
		}
		if opts.PerformanceThreshold != time.Second {
			t.Errorf("expected threshold 1s, got %v", opts.PerformanceThreshold)
		}
	})

	t.Run("BooleansPassThrough", func(t *testing.T) {
		opts := Options{EnableCaching: true, AllowOffsetPagination: true}.Normalize()
		if !opts.EnableCaching || !opts.AllowOffsetPagination {
			t.Error("explicit booleans must survive normalization")
		}
		if opts.EnableValidation {
			t.Error("unset booleans must stay false")
		}
	})

	t.Run("DefaultClampedToMax", func(t *testing.T) {
		opts := Options{DefaultPageSize: 500, MaxPageSize: 50}.Normalize()
		if opts.DefaultPageSize != 50 {
			t.Errorf("expected default clamped to 50, got %d", opts.DefaultPageSize)
		}
	})

	t.Run("ExplicitValuesKept", func(t *testing.T) {
		opts := Options{
			DefaultPageSize:      25,
			MaxPageSize:          200,
			CacheTTL:             time.Minute,
			PerformanceThreshold: 250 * time.Millisecond,
		}.Normalize()

		if opts.DefaultPageSize != 25 || opts.MaxPageSize != 200 {
			t.Errorf("page bounds changed: %+v", opts)
		}
		if opts.CacheTTL != time.Minute || opts.PerformanceThreshold != 250*time.Millisecond {
			t.Errorf("durations changed: %+v", opts)
		}
	})
}
