// Package query defines the backend-neutral descriptors a caller assembles
// to describe one logical query: filter trees, sort conditions, join specs,
// pagination and the per-field schemas that constrain them.
package query

// ComparisonType defines the comparison kinds accepted in filter conditions.
type ComparisonType string

const (
	Equal          ComparisonType = "eq"
	NotEqual       ComparisonType = "neq"
	Greater        ComparisonType = "gt"
	GreaterOrEqual ComparisonType = "gte"
	Less           ComparisonType = "lt"
	LessOrEqual    ComparisonType = "lte"

	// Pattern matching. The plain variants honor the case-sensitivity flag,
	// the i-variants always fold case.
	Like     ComparisonType = "like"
	NotLike  ComparisonType = "nlike"
	ILike    ComparisonType = "ilike"
	NotILike ComparisonType = "nilike"

	InList    ComparisonType = "in"
	NotInList ComparisonType = "nin"

	Between    ComparisonType = "between"
	NotBetween ComparisonType = "nbetween"

	IsNull    ComparisonType = "null"
	IsNotNull ComparisonType = "not_null"

	// Convenience operators over escaped literals
	StartsWith ComparisonType = "starts_with"
	EndsWith   ComparisonType = "ends_with"
	Contains   ComparisonType = "contains"

	Regex    ComparisonType = "regex"
	NotRegex ComparisonType = "nregex"
)

// comparisonTypes is the closed set of known operators.
var comparisonTypes = map[ComparisonType]struct{}{
	Equal: {}, NotEqual: {}, Greater: {}, GreaterOrEqual: {}, Less: {}, LessOrEqual: {},
	Like: {}, NotLike: {}, ILike: {}, NotILike: {},
	InList: {}, NotInList: {},
	Between: {}, NotBetween: {},
	IsNull: {}, IsNotNull: {},
	StartsWith: {}, EndsWith: {}, Contains: {},
	Regex: {}, NotRegex: {},
}

// Valid reports whether the operator belongs to the closed enumeration.
func (c ComparisonType) Valid() bool {
	_, ok := comparisonTypes[c]
	return ok
}

// NullTest reports whether the operator tests for presence and therefore
// permits an absent value.
func (c ComparisonType) NullTest() bool {
	return c == IsNull || c == IsNotNull
}

// LogicOperator combines the children of a filter group.
type LogicOperator string

const (
	LogicAnd LogicOperator = "and"
	LogicOr  LogicOperator = "or"
)

// Valid reports whether the logic operator is known.
func (l LogicOperator) Valid() bool {
	return l == LogicAnd || l == LogicOr
}
