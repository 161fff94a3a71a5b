package engine

import (
	"fmt"

	"queryforge/internal/core/apperror"
	"queryforge/internal/domain/query"
)

// JoinStats summarizes a builder's working set for diagnostics.
type JoinStats struct {
	Total             int
	Required          int
	Optional          int
	DistinctRelations int
}

// JoinTreeBuilder accumulates join specs and compiles them into an
// inclusion tree. It is owned by one orchestrator and not safe for
// concurrent use.
type JoinTreeBuilder struct {
	filters *FilterCompiler
	specs   []query.JoinSpec
}

// NewJoinTreeBuilder creates a builder compiling node filters through the
// given compiler.
func NewJoinTreeBuilder(filters *FilterCompiler) *JoinTreeBuilder {
	return &JoinTreeBuilder{filters: filters}
}

// Add appends a spec to the working set. A spec without a target relation
// is a configuration error.
func (b *JoinTreeBuilder) Add(spec query.JoinSpec) error {
	if err := validateJoinSpec(spec, ""); err != nil {
		return err
	}
	b.specs = append(b.specs, spec)
	return nil
}

// Remove drops the first spec targeting the relation, reporting whether
// one was found.
func (b *JoinTreeBuilder) Remove(relation string) bool {
	for i, spec := range b.specs {
		if spec.Relation == relation {
			b.specs = append(b.specs[:i], b.specs[i+1:]...)
			return true
		}
	}
	return false
}

// Get returns the first spec targeting the relation.
func (b *JoinTreeBuilder) Get(relation string) (query.JoinSpec, bool) {
	for _, spec := range b.specs {
		if spec.Relation == relation {
			return spec, true
		}
	}
	return query.JoinSpec{}, false
}

// Specs returns a copy of the working set in insertion order.
func (b *JoinTreeBuilder) Specs() []query.JoinSpec {
	return append([]query.JoinSpec(nil), b.specs...)
}

// Len returns the size of the working set.
func (b *JoinTreeBuilder) Len() int {
	return len(b.specs)
}

// Reset clears the working set.
func (b *JoinTreeBuilder) Reset() {
	b.specs = nil
}

// Stats walks the whole tree including nested specs.
func (b *JoinTreeBuilder) Stats() JoinStats {
	stats := JoinStats{}
	relations := make(map[string]struct{})

	var walk func(specs []query.JoinSpec)
	walk = func(specs []query.JoinSpec) {
		for _, spec := range specs {
			stats.Total++
			if spec.Required {
				stats.Required++
			} else {
				stats.Optional++
			}
			relations[spec.Relation] = struct{}{}
			walk(spec.Nested)
		}
	}
	walk(b.specs)

	stats.DistinctRelations = len(relations)
	return stats
}

// Build compiles the working set into inclusion nodes. Node filters
// compile through the filter compiler; any collected error aborts.
func (b *JoinTreeBuilder) Build() ([]InclusionNode, error) {
	return b.buildNodes(b.specs)
}

func (b *JoinTreeBuilder) buildNodes(specs []query.JoinSpec) ([]InclusionNode, error) {
	if len(specs) == 0 {
		return nil, nil
	}

	nodes := make([]InclusionNode, 0, len(specs))
	for _, spec := range specs {
		// Nested specs arrive unvalidated.
		if spec.Relation == "" {
			return nil, apperror.NewValidation(apperror.CodeMissingRelation,
				"join spec has no target relation")
		}

		node := InclusionNode{
			Relation:   spec.Relation,
			Alias:      spec.Alias,
			Required:   spec.Required,
			Attributes: spec.Attributes,
		}

		if len(spec.Where) > 0 {
			compiled, err := b.filters.Compile(spec.Where...)
			if err != nil {
				return nil, err
			}
			if compiled.HasErrors() {
				return nil, apperror.NewValidation(apperror.CodeValidation,
					fmt.Sprintf("join %q has invalid filters", spec.Relation)).
					WithField(spec.Relation).
					WithDetail("errors", compiled.ErrorMessages()).
					WithCause(compiled.Err())
			}
			node.Where = compiled.Predicate
		}

		children, err := b.buildNodes(spec.Nested)
		if err != nil {
			return nil, err
		}
		node.Children = children

		nodes = append(nodes, node)
	}
	return nodes, nil
}

func validateJoinSpec(spec query.JoinSpec, parent string) error {
	if spec.Relation == "" {
		err := apperror.NewValidation(apperror.CodeMissingRelation,
			"join spec has no target relation")
		if parent != "" {
			err = err.WithDetail("parent", parent)
		}
		return err
	}
	for _, nested := range spec.Nested {
		if err := validateJoinSpec(nested, spec.Relation); err != nil {
			return err
		}
	}
	return nil
}
