package query

// SortOrder is the sort direction.
type SortOrder string

const (
	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

// Valid reports whether the order is known. Empty is valid (defaulted later).
func (o SortOrder) Valid() bool {
	return o == "" || o == Ascending || o == Descending
}

// NullsPlacement positions NULL values relative to the sorted sequence.
type NullsPlacement string

const (
	NullsFirst NullsPlacement = "first"
	NullsLast  NullsPlacement = "last"
)

// Valid reports whether the placement is known. Empty is valid (unspecified).
func (n NullsPlacement) Valid() bool {
	return n == "" || n == NullsFirst || n == NullsLast
}

// SortCondition describes one sort key. Earlier conditions in a sequence
// take precedence over later ones.
type SortCondition struct {
	Column string         `json:"column"`
	Order  SortOrder      `json:"order,omitempty"`
	Nulls  NullsPlacement `json:"nulls,omitempty"`

	// CaseSensitive false forces case folding of the column reference.
	// Nil means unspecified.
	CaseSensitive *bool `json:"case_sensitive,omitempty"`
}

// Sort builds a sort condition.
func Sort(column string, order SortOrder) SortCondition {
	return SortCondition{Column: column, Order: order}
}
