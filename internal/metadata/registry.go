// Package metadata holds the entity catalog: which entities can be
// queried, their tables and columns, and the relations join specs may
// reference. The registry is built once at startup (from configuration or
// struct inspection) and read concurrently afterwards.
package metadata

import (
	"fmt"
	"sort"

	"queryforge/internal/domain/query"
)

// RelationKind defines how two entities relate.
type RelationKind string

const (
	RelationHasOne    RelationKind = "hasOne"
	RelationHasMany   RelationKind = "hasMany"
	RelationBelongsTo RelationKind = "belongsTo"
)

// Valid reports whether the kind is one of the known values.
func (k RelationKind) Valid() bool {
	switch k {
	case RelationHasOne, RelationHasMany, RelationBelongsTo:
		return true
	}
	return false
}

// ColumnDef describes one queryable column.
type ColumnDef struct {
	Name string          `json:"name" mapstructure:"name"`
	Kind query.FieldKind `json:"kind,omitempty" mapstructure:"kind"`

	// Operators allow-lists filter operators. Empty derives a default set
	// from Kind.
	Operators []query.ComparisonType `json:"operators,omitempty" mapstructure:"operators"`

	// Transform is a CEL expression over `value` applied to filter values
	// before compilation.
	Transform string `json:"transform,omitempty" mapstructure:"transform"`

	// CaseSensitive overrides pattern-operator case handling.
	CaseSensitive *bool `json:"caseSensitive,omitempty" mapstructure:"caseSensitive"`

	// Sortable nil or true permits sorting; explicit false forbids it.
	Sortable *bool `json:"sortable,omitempty" mapstructure:"sortable"`

	// DefaultOrder applies when a sort condition omits a direction.
	DefaultOrder query.SortOrder `json:"defaultOrder,omitempty" mapstructure:"defaultOrder"`

	// SortInsensitive folds the column before ordering.
	SortInsensitive bool `json:"sortInsensitive,omitempty" mapstructure:"sortInsensitive"`
}

// RelationDef describes a relation reachable from this entity in a join
// spec.
type RelationDef struct {
	Name   string       `json:"name" mapstructure:"name"`
	Kind   RelationKind `json:"kind" mapstructure:"kind"`
	Target string       `json:"target" mapstructure:"target"`

	// ForeignKey is the referencing column: on the target table for
	// hasOne/hasMany, on this entity's table for belongsTo.
	ForeignKey string `json:"foreignKey" mapstructure:"foreignKey"`

	// OwnerKey is the referenced column. Empty defaults to the owning
	// side's primary key.
	OwnerKey string `json:"ownerKey,omitempty" mapstructure:"ownerKey"`

	// Attributes restricts the columns loaded for the relation by default.
	Attributes []string `json:"attributes,omitempty" mapstructure:"attributes"`
}

// EntityDef describes a queryable entity.
type EntityDef struct {
	Name       string        `json:"name" mapstructure:"name"`
	Table      string        `json:"table" mapstructure:"table"`
	PrimaryKey string        `json:"primaryKey,omitempty" mapstructure:"primaryKey"`
	Columns    []ColumnDef   `json:"columns,omitempty" mapstructure:"columns"`
	Relations  []RelationDef `json:"relations,omitempty" mapstructure:"relations"`
}

// Validate checks the definition is internally consistent.
func (d EntityDef) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("entity name is required")
	}
	if d.Table == "" {
		return fmt.Errorf("entity %s: table is required", d.Name)
	}

	seen := make(map[string]struct{}, len(d.Columns))
	for _, col := range d.Columns {
		if col.Name == "" {
			return fmt.Errorf("entity %s: column name is required", d.Name)
		}
		if _, dup := seen[col.Name]; dup {
			return fmt.Errorf("entity %s: duplicate column %s", d.Name, col.Name)
		}
		seen[col.Name] = struct{}{}
		for _, op := range col.Operators {
			if !op.Valid() {
				return fmt.Errorf("entity %s: column %s: unknown operator %q", d.Name, col.Name, op)
			}
		}
	}

	rels := make(map[string]struct{}, len(d.Relations))
	for _, rel := range d.Relations {
		if rel.Name == "" {
			return fmt.Errorf("entity %s: relation name is required", d.Name)
		}
		if _, dup := rels[rel.Name]; dup {
			return fmt.Errorf("entity %s: duplicate relation %s", d.Name, rel.Name)
		}
		rels[rel.Name] = struct{}{}
		if !rel.Kind.Valid() {
			return fmt.Errorf("entity %s: relation %s: unknown kind %q", d.Name, rel.Name, rel.Kind)
		}
		if rel.Target == "" {
			return fmt.Errorf("entity %s: relation %s: target is required", d.Name, rel.Name)
		}
		if rel.ForeignKey == "" {
			return fmt.Errorf("entity %s: relation %s: foreign key is required", d.Name, rel.Name)
		}
	}

	return nil
}

// Column returns the column definition by name.
func (d EntityDef) Column(name string) (ColumnDef, bool) {
	for _, col := range d.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return ColumnDef{}, false
}

// Relation returns the relation definition by name.
func (d EntityDef) Relation(name string) (RelationDef, bool) {
	for _, rel := range d.Relations {
		if rel.Name == name {
			return rel, true
		}
	}
	return RelationDef{}, false
}

// Registry stores entity definitions. Register during startup; reads are
// safe concurrently once registration is done.
type Registry struct {
	entities map[string]EntityDef
}

func NewRegistry() *Registry {
	return &Registry{
		entities: make(map[string]EntityDef),
	}
}

// Register validates and stores a definition. An empty primary key
// defaults to "id". Registering the same name twice is an error.
func (r *Registry) Register(def EntityDef) error {
	if err := def.Validate(); err != nil {
		return err
	}
	if def.PrimaryKey == "" {
		def.PrimaryKey = "id"
	}
	if _, exists := r.entities[def.Name]; exists {
		return fmt.Errorf("entity %s already registered", def.Name)
	}
	r.entities[def.Name] = def
	return nil
}

// Get returns the definition by entity name.
func (r *Registry) Get(name string) (EntityDef, bool) {
	d, ok := r.entities[name]
	return d, ok
}

// List returns every definition ordered by name.
func (r *Registry) List() []EntityDef {
	list := make([]EntityDef, 0, len(r.entities))
	for _, def := range r.entities {
		list = append(list, def)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}
