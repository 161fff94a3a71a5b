package engine

import (
	"github.com/Masterminds/squirrel"

	"queryforge/internal/domain/query"
)

// Plan is the compiled, backend-neutral form of one query specification.
// It is produced fresh on every execution and never persisted.
type Plan struct {
	// Entity is the logical entity name; the store resolves it to storage.
	Entity string

	// Predicate is the compiled filter tree. Nil means no restriction.
	Predicate squirrel.Sqlizer

	// Order lists sort instructions in precedence order.
	Order []OrderInstruction

	// Include lists compiled eager-load instructions.
	Include []InclusionNode

	Offset *uint64
	Limit  *uint64

	// Attributes restricts the projected columns. Empty means all.
	Attributes []string

	GroupBy []string
	Having  squirrel.Sqlizer

	Distinct bool
}

// OrderInstruction is one compiled sort key.
type OrderInstruction struct {
	Column          string
	Direction       query.SortOrder
	Nulls           query.NullsPlacement
	CaseInsensitive bool
}

// InclusionNode is one compiled eager-load instruction, recursively nested.
type InclusionNode struct {
	Relation   string
	Alias      string
	Required   bool
	Attributes []string
	Where      squirrel.Sqlizer
	Children   []InclusionNode
}

// CountPlan derives the plan used for totals: ordering, pagination and
// projection do not affect the count.
func (p *Plan) CountPlan() *Plan {
	count := *p
	count.Order = nil
	count.Offset = nil
	count.Limit = nil
	count.Attributes = nil
	return &count
}
