package query

// FieldKind hints the storage type of a field so filter values can be
// coerced before compilation.
type FieldKind string

const (
	KindString  FieldKind = "string"
	KindInt     FieldKind = "int"
	KindFloat   FieldKind = "float"
	KindBool    FieldKind = "bool"
	KindTime    FieldKind = "time"
	KindDecimal FieldKind = "decimal"
	KindUUID    FieldKind = "uuid"
)

// FieldRule constrains filtering on one field.
type FieldRule struct {
	// Operators allow-lists comparison types for the field.
	// Empty means every operator is allowed.
	Operators []ComparisonType

	// Kind coerces incoming values before compilation. Empty skips coercion.
	Kind FieldKind

	// Transform is a CEL expression over `value`, applied to the condition
	// value (element-wise for list-valued operators) before compilation.
	Transform string

	// CaseSensitive overrides the default case handling for pattern
	// operators on this field.
	CaseSensitive *bool
}

// Allows reports whether the rule permits the operator.
func (r FieldRule) Allows(op ComparisonType) bool {
	if len(r.Operators) == 0 {
		return true
	}
	for _, allowed := range r.Operators {
		if allowed == op {
			return true
		}
	}
	return false
}

// SortRule constrains sorting on one column.
type SortRule struct {
	// Sortable nil or true permits sorting; explicit false forbids it.
	Sortable *bool

	// DefaultOrder applies when the condition omits a direction.
	DefaultOrder SortOrder

	// CaseInsensitive folds the column reference before comparison.
	CaseInsensitive bool
}

// AllowsSorting reports whether the rule permits sorting.
func (r SortRule) AllowsSorting() bool {
	return r.Sortable == nil || *r.Sortable
}

// Schema holds per-field filter rules and per-column sort rules for one
// entity. A nil Schema (or an absent entry) constrains nothing.
type Schema struct {
	Fields map[string]FieldRule
	Sorts  map[string]SortRule
}

// FieldRule returns the rule for a field, if one is registered.
func (s *Schema) FieldRule(field string) (FieldRule, bool) {
	if s == nil || s.Fields == nil {
		return FieldRule{}, false
	}
	rule, ok := s.Fields[field]
	return rule, ok
}

// SortRule returns the rule for a column, if one is registered.
func (s *Schema) SortRule(column string) (SortRule, bool) {
	if s == nil || s.Sorts == nil {
		return SortRule{}, false
	}
	rule, ok := s.Sorts[column]
	return rule, ok
}
