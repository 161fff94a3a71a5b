package query

import (
	"encoding/json"
)

// Specification aggregates every descriptor attached to one logical query.
// It is owned by exactly one orchestrator instance and mutated incrementally
// through its builder methods.
type Specification struct {
	Filters    []FilterNode
	Sorts      []SortCondition
	Joins      []JoinSpec
	Pagination PaginationSpec
	Attributes []string
	GroupBy    []string
	Having     []FilterNode
	Distinct   bool
}

// Reset clears the specification for reuse.
func (s *Specification) Reset() {
	*s = Specification{}
}

// snapshot mirrors Specification with stable JSON field order for
// fingerprinting. Map values inside filter nodes serialize with sorted
// keys, so identical specifications yield identical bytes.
type snapshot struct {
	Filters    []FilterNode    `json:"filters,omitempty"`
	Sorts      []SortCondition `json:"sorts,omitempty"`
	Joins      []JoinSpec      `json:"joins,omitempty"`
	Pagination PaginationSpec  `json:"pagination,omitempty"`
	Attributes []string        `json:"attributes,omitempty"`
	GroupBy    []string        `json:"group_by,omitempty"`
	Having     []FilterNode    `json:"having,omitempty"`
	Distinct   bool            `json:"distinct,omitempty"`
}

// Snapshot serializes the specification deterministically.
func (s *Specification) Snapshot() ([]byte, error) {
	return json.Marshal(snapshot{
		Filters:    s.Filters,
		Sorts:      s.Sorts,
		Joins:      s.Joins,
		Pagination: s.Pagination,
		Attributes: s.Attributes,
		GroupBy:    s.GroupBy,
		Having:     s.Having,
		Distinct:   s.Distinct,
	})
}
