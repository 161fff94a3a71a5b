package query

// FilterNode is one node of a filter tree: either a leaf condition or a
// group combining children under a logical operator. The variant is fixed
// at construction time.
type FilterNode interface {
	isFilterNode()
}

// FilterCondition is a single field comparison.
type FilterCondition struct {
	Field    string         `json:"field"`
	Operator ComparisonType `json:"operator"`
	Value    any            `json:"value,omitempty"`

	// CaseSensitive overrides the default case handling of pattern
	// operators. Nil means unspecified.
	CaseSensitive *bool `json:"case_sensitive,omitempty"`
}

func (*FilterCondition) isFilterNode() {}

// FilterGroup combines child nodes under AND or OR. A group must carry at
// least one child.
type FilterGroup struct {
	Operator   LogicOperator `json:"operator"`
	Conditions []FilterNode  `json:"conditions"`
}

func (*FilterGroup) isFilterNode() {}

// Cond builds a leaf condition.
func Cond(field string, op ComparisonType, value any) *FilterCondition {
	return &FilterCondition{Field: field, Operator: op, Value: value}
}

// CondSensitive builds a leaf condition with explicit case sensitivity.
func CondSensitive(field string, op ComparisonType, value any, sensitive bool) *FilterCondition {
	return &FilterCondition{Field: field, Operator: op, Value: value, CaseSensitive: &sensitive}
}

// And groups nodes under logical AND.
func And(nodes ...FilterNode) *FilterGroup {
	return &FilterGroup{Operator: LogicAnd, Conditions: nodes}
}

// Or groups nodes under logical OR.
func Or(nodes ...FilterNode) *FilterGroup {
	return &FilterGroup{Operator: LogicOr, Conditions: nodes}
}
