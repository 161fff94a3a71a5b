package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// DefaultCompressThreshold is the entry size above which values are
// zstd-compressed before storage.
const DefaultCompressThreshold = 4 * 1024 // 4KB

type memoryEntry struct {
	value      []byte
	compressed bool
	expiresAt  time.Time // zero means no expiry
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryProvider is the default in-process provider: a mutex-guarded map
// with per-entry expiry timestamps. Large values are transparently
// zstd-compressed.
type MemoryProvider struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry

	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

var _ Provider = (*MemoryProvider)(nil)
var _ Sweeper = (*MemoryProvider)(nil)

// NewMemoryProvider creates an empty in-memory provider.
func NewMemoryProvider() (*MemoryProvider, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &MemoryProvider{
		entries:           make(map[string]memoryEntry),
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: DefaultCompressThreshold,
	}, nil
}

// WithCompressThreshold overrides the compression threshold and returns
// the provider for chaining. Values of zero or below keep the default.
func (p *MemoryProvider) WithCompressThreshold(n int) *MemoryProvider {
	if n > 0 {
		p.compressThreshold = n
	}
	return p
}

// Get returns the stored value, lazily evicting an expired entry.
func (p *MemoryProvider) Get(ctx context.Context, key string) ([]byte, bool, error) {
	p.mu.RLock()
	entry, ok := p.entries[key]
	p.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}

	if entry.expired(time.Now()) {
		p.evict(key, entry.expiresAt)
		return nil, false, nil
	}

	if entry.compressed {
		raw, err := p.decoder.DecodeAll(entry.value, nil)
		if err != nil {
			return nil, false, fmt.Errorf("decompress cache entry: %w", err)
		}
		return raw, true, nil
	}

	// Copy so callers cannot mutate the stored slice.
	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, true, nil
}

// Set stores a value, compressing it above the threshold.
func (p *MemoryProvider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	entry := memoryEntry{}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}

	if len(value) > p.compressThreshold {
		entry.value = p.encoder.EncodeAll(value, nil)
		entry.compressed = true
	} else {
		entry.value = make([]byte, len(value))
		copy(entry.value, value)
	}

	p.mu.Lock()
	p.entries[key] = entry
	p.mu.Unlock()
	return nil
}

// Delete removes a key.
func (p *MemoryProvider) Delete(ctx context.Context, key string) error {
	p.mu.Lock()
	delete(p.entries, key)
	p.mu.Unlock()
	return nil
}

// Clear removes every entry.
func (p *MemoryProvider) Clear(ctx context.Context) error {
	p.mu.Lock()
	p.entries = make(map[string]memoryEntry)
	p.mu.Unlock()
	return nil
}

// Has reports liveness, lazily evicting an expired entry.
func (p *MemoryProvider) Has(ctx context.Context, key string) (bool, error) {
	p.mu.RLock()
	entry, ok := p.entries[key]
	p.mu.RUnlock()

	if !ok {
		return false, nil
	}
	if entry.expired(time.Now()) {
		p.evict(key, entry.expiresAt)
		return false, nil
	}
	return true, nil
}

// Sweep removes all expired entries regardless of reads.
func (p *MemoryProvider) Sweep(ctx context.Context) (int, error) {
	now := time.Now()
	removed := 0

	p.mu.Lock()
	for key, entry := range p.entries {
		if entry.expired(now) {
			delete(p.entries, key)
			removed++
		}
	}
	p.mu.Unlock()

	return removed, nil
}

// Len returns the number of stored entries, expired or not.
func (p *MemoryProvider) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}

// evict removes the key only when the entry is unchanged since the read,
// so a concurrent Set is never discarded.
func (p *MemoryProvider) evict(key string, seenExpiry time.Time) {
	p.mu.Lock()
	if current, ok := p.entries[key]; ok && current.expiresAt.Equal(seenExpiry) {
		delete(p.entries, key)
	}
	p.mu.Unlock()
}
