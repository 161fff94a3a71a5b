package engine

import (
	"encoding/json"
)

// PerformanceReport is the performance block attached to result envelopes.
type PerformanceReport struct {
	// ExecutionTime is total elapsed time in milliseconds.
	ExecutionTime int64 `json:"executionTime"`
	QueryCount    int   `json:"queryCount"`
	CacheHit      bool  `json:"cacheHit"`
}

// Result is the unified envelope returned by the orchestrator.
type Result struct {
	Data        []Row              `json:"data"`
	Count       *int64             `json:"count,omitempty"`
	Pagination  *Meta              `json:"pagination,omitempty"`
	Performance *PerformanceReport `json:"performance,omitempty"`
}

// encodeForCache serializes the envelope without its performance block;
// metrics describe one execution, not the cached value.
func (r *Result) encodeForCache() ([]byte, error) {
	stripped := Result{
		Data:       r.Data,
		Count:      r.Count,
		Pagination: r.Pagination,
	}
	return json.Marshal(stripped)
}

// decodeCachedResult restores an envelope stored by encodeForCache.
func decodeCachedResult(data []byte) (*Result, error) {
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
