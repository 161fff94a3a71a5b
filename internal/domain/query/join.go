package query

// JoinSpec describes one related-entity eager load, recursively nestable.
type JoinSpec struct {
	// Relation names the target relation as registered in entity metadata.
	Relation string `json:"relation"`

	// Alias renames the attached result set. Empty means relation name.
	Alias string `json:"alias,omitempty"`

	// Required drops parent rows without a matching related row
	// (inner-join semantics).
	Required bool `json:"required,omitempty"`

	// Attributes restricts the loaded columns of the related entity.
	Attributes []string `json:"attributes,omitempty"`

	// Where filters the related rows before attachment.
	Where []FilterNode `json:"where,omitempty"`

	// Nested joins are built below this node.
	Nested []JoinSpec `json:"nested,omitempty"`
}

// Join builds a minimal join spec for a relation.
func Join(relation string) JoinSpec {
	return JoinSpec{Relation: relation}
}
