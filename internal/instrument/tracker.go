// Package instrument provides per-execution performance tracking for the
// query engine.
package instrument

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Metrics accumulates counters for one logical query execution.
type Metrics struct {
	QueryExecutionTime time.Duration
	TotalExecutionTime time.Duration
	MemoryUsage        int64
	QueryCount         int
	CacheHits          int
	CacheMisses        int
}

type record struct {
	metrics   Metrics
	startedAt time.Time
}

// Config holds tracker configuration.
type Config struct {
	Enabled bool

	// Threshold triggers a slow-execution warning from End when total time
	// exceeds it. Zero disables the warning.
	Threshold time.Duration
}

// SlowFunc is invoked by End when an execution exceeds the threshold.
type SlowFunc func(handle string, metrics Metrics)

// Tracker keeps the live metrics records of one orchestrator instance.
// Independent orchestrators own independent trackers and cannot interfere.
type Tracker struct {
	mu   sync.Mutex
	live map[string]*record

	enabled   bool
	threshold time.Duration
	onSlow    SlowFunc
}

// NewTracker creates a tracker.
func NewTracker(cfg Config) *Tracker {
	return &Tracker{
		live:      make(map[string]*record),
		enabled:   cfg.Enabled,
		threshold: cfg.Threshold,
	}
}

// OnSlow registers a callback for threshold-exceeded executions.
func (t *Tracker) OnSlow(fn SlowFunc) {
	t.mu.Lock()
	t.onSlow = fn
	t.mu.Unlock()
}

// Enabled reports whether the tracker records anything.
func (t *Tracker) Enabled() bool {
	return t != nil && t.enabled
}

// Start allocates a fresh metrics record and returns its handle.
// Returns the empty handle when tracking is disabled.
func (t *Tracker) Start(method, entity, requestID string) string {
	if !t.Enabled() {
		return ""
	}

	now := time.Now()
	handle := fmt.Sprintf("%s:%s:%s:%d:%s", method, entity, requestID, now.UnixNano(), uuid.NewString()[:8])

	t.mu.Lock()
	t.live[handle] = &record{startedAt: now}
	t.mu.Unlock()

	return handle
}

// RecordExecution accumulates one sub-query's elapsed time.
func (t *Tracker) RecordExecution(handle string, elapsed time.Duration) {
	t.update(handle, func(m *Metrics) {
		m.QueryExecutionTime += elapsed
		m.QueryCount++
	})
}

// RecordCacheHit increments the cache hit counter.
func (t *Tracker) RecordCacheHit(handle string) {
	t.update(handle, func(m *Metrics) {
		m.CacheHits++
	})
}

// RecordCacheMiss increments the cache miss counter.
func (t *Tracker) RecordCacheMiss(handle string) {
	t.update(handle, func(m *Metrics) {
		m.CacheMisses++
	})
}

// RecordMemory accumulates observed allocation volume.
func (t *Tracker) RecordMemory(handle string, bytes int64) {
	t.update(handle, func(m *Metrics) {
		m.MemoryUsage += bytes
	})
}

// End finalizes total elapsed time, fires the slow callback when the
// threshold is exceeded, removes the record and returns the metrics.
// Returns nil for unknown handles or a disabled tracker.
func (t *Tracker) End(handle string) *Metrics {
	if !t.Enabled() || handle == "" {
		return nil
	}

	t.mu.Lock()
	rec, ok := t.live[handle]
	if !ok {
		t.mu.Unlock()
		return nil
	}
	delete(t.live, handle)
	rec.metrics.TotalExecutionTime = time.Since(rec.startedAt)
	metrics := rec.metrics
	onSlow := t.onSlow
	threshold := t.threshold
	t.mu.Unlock()

	if threshold > 0 && metrics.TotalExecutionTime > threshold && onSlow != nil {
		onSlow(handle, metrics)
	}

	return &metrics
}

// Live returns the number of in-flight records.
func (t *Tracker) Live() int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.live)
}

func (t *Tracker) update(handle string, apply func(*Metrics)) {
	if !t.Enabled() || handle == "" {
		return
	}

	t.mu.Lock()
	if rec, ok := t.live[handle]; ok {
		apply(&rec.metrics)
	}
	t.mu.Unlock()
}
