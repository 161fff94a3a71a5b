package engine

import (
	"fmt"

	"queryforge/internal/core/apperror"
	"queryforge/internal/domain/query"
)

// SortResult is the outcome of one sort compilation. Invalid conditions
// collect into Errors and are skipped; valid ones keep their input order.
type SortResult struct {
	Instructions []OrderInstruction
	Errors       []*apperror.AppError
	Warnings     []string
}

// HasErrors reports whether any condition was rejected.
func (r *SortResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// Err returns the first collected error, or nil.
func (r *SortResult) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return r.Errors[0]
}

// ErrorMessages flattens collected errors for diagnostics.
func (r *SortResult) ErrorMessages() []string {
	if len(r.Errors) == 0 {
		return nil
	}
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Error()
	}
	return msgs
}

// SortCompiler turns sort conditions into ordered instructions, enforcing
// the per-column schema when one is configured.
type SortCompiler struct {
	schema *query.Schema
}

// NewSortCompiler creates a compiler. A nil schema constrains nothing.
func NewSortCompiler(schema *query.Schema) *SortCompiler {
	return &SortCompiler{schema: schema}
}

// Compile validates each condition and emits instructions preserving the
// input sequence. The first instruction is the primary sort key.
func (c *SortCompiler) Compile(conds ...query.SortCondition) *SortResult {
	result := &SortResult{}

	for _, cond := range conds {
		if cond.Column == "" {
			result.Errors = append(result.Errors,
				apperror.NewValidation(apperror.CodeMissingColumn, "sort condition has no column"))
			continue
		}
		if !ValidIdentifier(cond.Column) {
			result.Errors = append(result.Errors,
				apperror.NewValidation(apperror.CodeInvalidInput,
					fmt.Sprintf("column %q is not a valid identifier", cond.Column)).
					WithField(cond.Column))
			continue
		}
		if !cond.Order.Valid() {
			result.Errors = append(result.Errors,
				apperror.NewValidation(apperror.CodeInvalidSortOrder,
					fmt.Sprintf("unknown sort order %q", cond.Order)).
					WithField(cond.Column).
					WithValue(string(cond.Order)))
			continue
		}
		if !cond.Nulls.Valid() {
			result.Errors = append(result.Errors,
				apperror.NewValidation(apperror.CodeInvalidNulls,
					fmt.Sprintf("unknown nulls placement %q", cond.Nulls)).
					WithField(cond.Column).
					WithValue(string(cond.Nulls)))
			continue
		}

		rule, known := c.schema.SortRule(cond.Column)
		if c.schema != nil && len(c.schema.Sorts) > 0 && !known {
			result.Errors = append(result.Errors,
				apperror.NewValidation(apperror.CodeColumnNotSortable,
					fmt.Sprintf("column %q is not sortable", cond.Column)).
					WithField(cond.Column))
			continue
		}
		if known && !rule.AllowsSorting() {
			result.Errors = append(result.Errors,
				apperror.NewValidation(apperror.CodeColumnNotSortable,
					fmt.Sprintf("sorting on column %q is disabled", cond.Column)).
					WithField(cond.Column))
			continue
		}

		direction := cond.Order
		if direction == "" {
			direction = rule.DefaultOrder
		}
		if direction == "" {
			direction = query.Ascending
		}

		fold := rule.CaseInsensitive
		if cond.CaseSensitive != nil {
			fold = !*cond.CaseSensitive
		}

		result.Instructions = append(result.Instructions, OrderInstruction{
			Column:          cond.Column,
			Direction:       direction,
			Nulls:           cond.Nulls,
			CaseInsensitive: fold,
		})
	}

	return result
}
