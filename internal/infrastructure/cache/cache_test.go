package cache

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProvider(t *testing.T) *MemoryProvider {
	t.Helper()
	p, err := NewMemoryProvider()
	require.NoError(t, err)
	return p
}

func TestMemoryProvider_RoundTrip(t *testing.T) {
	p := newProvider(t)
	ctx := context.Background()

	require.NoError(t, p.Set(ctx, "k", []byte("value"), 0))

	got, ok, err := p.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("value"), got)

	// The returned slice is a copy.
	got[0] = 'X'
	again, _, _ := p.Get(ctx, "k")
	assert.Equal(t, []byte("value"), again)

	_, ok, err = p.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryProvider_SetCopiesInput(t *testing.T) {
	p := newProvider(t)
	ctx := context.Background()

	value := []byte("original")
	require.NoError(t, p.Set(ctx, "k", value, 0))
	value[0] = 'X'

	got, _, _ := p.Get(ctx, "k")
	assert.Equal(t, []byte("original"), got)
}

func TestMemoryProvider_Expiry(t *testing.T) {
	p := newProvider(t)
	ctx := context.Background()

	require.NoError(t, p.Set(ctx, "short", []byte("v"), 10*time.Millisecond))
	require.NoError(t, p.Set(ctx, "forever", []byte("v"), 0))

	time.Sleep(25 * time.Millisecond)

	_, ok, err := p.Get(ctx, "short")
	require.NoError(t, err)
	assert.False(t, ok, "expired entry must read as a miss")

	_, ok, err = p.Get(ctx, "forever")
	require.NoError(t, err)
	assert.True(t, ok, "zero ttl must never expire")

	// The expired read also evicted the entry.
	assert.Equal(t, 1, p.Len())
}

func TestMemoryProvider_HasDeleteClear(t *testing.T) {
	p := newProvider(t)
	ctx := context.Background()

	require.NoError(t, p.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, p.Set(ctx, "b", []byte("2"), 0))

	ok, err := p.Has(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, p.Delete(ctx, "a"))
	ok, _ = p.Has(ctx, "a")
	assert.False(t, ok)
	require.NoError(t, p.Delete(ctx, "a"), "deleting an absent key is fine")

	require.NoError(t, p.Clear(ctx))
	assert.Equal(t, 0, p.Len())
}

func TestMemoryProvider_Compression(t *testing.T) {
	p := newProvider(t).WithCompressThreshold(32)
	ctx := context.Background()

	large := bytes.Repeat([]byte("abcdefgh"), 64) // 512 bytes, compresses well
	small := []byte("tiny")

	require.NoError(t, p.Set(ctx, "large", large, 0))
	require.NoError(t, p.Set(ctx, "small", small, 0))

	assert.True(t, p.entries["large"].compressed)
	assert.Less(t, len(p.entries["large"].value), len(large))
	assert.False(t, p.entries["small"].compressed)

	got, ok, err := p.Get(ctx, "large")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, large, got, "decompression must restore the original")
}

func TestMemoryProvider_Sweep(t *testing.T) {
	p := newProvider(t)
	ctx := context.Background()

	require.NoError(t, p.Set(ctx, "stale1", []byte("v"), 5*time.Millisecond))
	require.NoError(t, p.Set(ctx, "stale2", []byte("v"), 5*time.Millisecond))
	require.NoError(t, p.Set(ctx, "live", []byte("v"), time.Minute))

	time.Sleep(15 * time.Millisecond)

	removed, err := p.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, p.Len())
}

func TestCache_Namespacing(t *testing.T) {
	p := newProvider(t)
	c := New(p, Config{Enabled: true, Prefix: "qf", DefaultTTL: time.Minute})
	ctx := context.Background()

	c.Set(ctx, "users:abc", []byte("v"), 0)

	_, ok, err := p.Get(ctx, "qf:users:abc")
	require.NoError(t, err)
	assert.True(t, ok, "keys must store under the prefix")

	got, ok := c.Get(ctx, "users:abc")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)
}

func TestCache_DefaultTTLApplies(t *testing.T) {
	p := newProvider(t)
	c := New(p, Config{Enabled: true, DefaultTTL: time.Minute})
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), 0)

	entry := p.entries["k"]
	assert.False(t, entry.expiresAt.IsZero(), "default ttl must apply when none is given")

	c.Set(ctx, "k2", []byte("v"), time.Hour)
	assert.True(t, p.entries["k2"].expiresAt.After(time.Now().Add(30*time.Minute)))
}

func TestCache_Disabled(t *testing.T) {
	p := newProvider(t)
	c := New(p, Config{Enabled: false})
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), 0)
	assert.Equal(t, 0, p.Len(), "disabled cache must not store")

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
	assert.False(t, c.Has(ctx, "k"))
	assert.False(t, c.Enabled())
	assert.Equal(t, 0, c.Sweep(ctx))
}

func TestCache_NilReceiverIsSafe(t *testing.T) {
	var c *Cache
	ctx := context.Background()

	assert.False(t, c.Enabled())
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
	c.Set(ctx, "k", []byte("v"), 0)
	c.Delete(ctx, "k")
}

func TestCache_ProviderFailureIsAMiss(t *testing.T) {
	c := New(failingProvider{}, Config{Enabled: true})
	ctx := context.Background()

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
	assert.False(t, c.Has(ctx, "k"))
	c.Set(ctx, "k", []byte("v"), 0) // must not panic
}

func TestCache_GetOrCompute(t *testing.T) {
	p := newProvider(t)
	c := New(p, Config{Enabled: true, DefaultTTL: time.Minute})
	ctx := context.Background()

	calls := 0
	compute := func(ctx context.Context) ([]byte, error) {
		calls++
		return []byte("computed"), nil
	}

	got, cached, err := c.GetOrCompute(ctx, "k", 0, compute)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, []byte("computed"), got)

	got, cached, err = c.GetOrCompute(ctx, "k", 0, compute)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, []byte("computed"), got)
	assert.Equal(t, 1, calls)
}

func TestCache_GetOrComputeError(t *testing.T) {
	p := newProvider(t)
	c := New(p, Config{Enabled: true})
	ctx := context.Background()

	boom := errors.New("source unavailable")
	_, _, err := c.GetOrCompute(ctx, "k", 0, func(ctx context.Context) ([]byte, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, p.Len(), "failed computations must not be stored")
}

func TestCache_SweepDelegates(t *testing.T) {
	p := newProvider(t)
	c := New(p, Config{Enabled: true})
	ctx := context.Background()

	c.Set(ctx, "stale", []byte("v"), 5*time.Millisecond)
	time.Sleep(15 * time.Millisecond)

	assert.Equal(t, 1, c.Sweep(ctx))
}

// failingProvider errors on every operation.
type failingProvider struct{}

var errProviderDown = errors.New("provider down")

func (failingProvider) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, errProviderDown
}

func (failingProvider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return errProviderDown
}

func (failingProvider) Delete(ctx context.Context, key string) error { return errProviderDown }
func (failingProvider) Clear(ctx context.Context) error              { return errProviderDown }
func (failingProvider) Has(ctx context.Context, key string) (bool, error) {
	return false, errProviderDown
}
