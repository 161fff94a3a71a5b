package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"queryforge/internal/domain/query"
)

func validDef() EntityDef {
	return EntityDef{
		Name:  "documents",
		Table: "documents",
		Columns: []ColumnDef{
			{Name: "id", Kind: query.KindUUID},
			{Name: "number", Kind: query.KindString},
		},
		Relations: []RelationDef{
			{Name: "lines", Kind: RelationHasMany, Target: "lines", ForeignKey: "document_id"},
		},
	}
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register(validDef()))

	def, ok := r.Get("documents")
	require.True(t, ok)
	assert.Equal(t, "id", def.PrimaryKey, "empty primary key must default to id")

	_, ok = r.Get("missing")
	assert.False(t, ok)

	err := r.Register(validDef())
	require.Error(t, err, "duplicate registration must fail")
	assert.Contains(t, err.Error(), "already registered")
}

func TestRegistry_ListOrdered(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"warehouses", "documents", "lines"} {
		def := validDef()
		def.Name = name
		require.NoError(t, r.Register(def))
	}

	list := r.List()
	require.Len(t, list, 3)
	assert.Equal(t, "documents", list[0].Name)
	assert.Equal(t, "lines", list[1].Name)
	assert.Equal(t, "warehouses", list[2].Name)
}

func TestEntityDef_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*EntityDef)
		wantErr string
	}{
		{
			name:    "MissingName",
			mutate:  func(d *EntityDef) { d.Name = "" },
			wantErr: "name is required",
		},
		{
			name:    "MissingTable",
			mutate:  func(d *EntityDef) { d.Table = "" },
			wantErr: "table is required",
		},
		{
			name:    "UnnamedColumn",
			mutate:  func(d *EntityDef) { d.Columns = append(d.Columns, ColumnDef{}) },
			wantErr: "column name is required",
		},
		{
			name:    "DuplicateColumn",
			mutate:  func(d *EntityDef) { d.Columns = append(d.Columns, ColumnDef{Name: "id"}) },
			wantErr: "duplicate column",
		},
		{
			name: "UnknownOperator",
			mutate: func(d *EntityDef) {
				d.Columns[0].Operators = []query.ComparisonType{"resembles"}
			},
			wantErr: "unknown operator",
		},
		{
			name: "UnnamedRelation",
			mutate: func(d *EntityDef) {
				d.Relations = append(d.Relations, RelationDef{Kind: RelationHasOne, Target: "x", ForeignKey: "y"})
			},
			wantErr: "relation name is required",
		},
		{
			name: "DuplicateRelation",
			mutate: func(d *EntityDef) {
				d.Relations = append(d.Relations, d.Relations[0])
			},
			wantErr: "duplicate relation",
		},
		{
			name: "UnknownRelationKind",
			mutate: func(d *EntityDef) {
				d.Relations[0].Kind = "owns"
			},
			wantErr: "unknown kind",
		},
		{
			name: "MissingTarget",
			mutate: func(d *EntityDef) {
				d.Relations[0].Target = ""
			},
			wantErr: "target is required",
		},
		{
			name: "MissingForeignKey",
			mutate: func(d *EntityDef) {
				d.Relations[0].ForeignKey = ""
			},
			wantErr: "foreign key is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := validDef()
			tt.mutate(&def)
			err := def.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	assert.NoError(t, validDef().Validate())
}

func TestEntityDef_Lookups(t *testing.T) {
	def := validDef()

	col, ok := def.Column("number")
	require.True(t, ok)
	assert.Equal(t, query.KindString, col.Kind)
	_, ok = def.Column("missing")
	assert.False(t, ok)

	rel, ok := def.Relation("lines")
	require.True(t, ok)
	assert.Equal(t, RelationHasMany, rel.Kind)
	_, ok = def.Relation("missing")
	assert.False(t, ok)
}

func TestEntityDef_Schema(t *testing.T) {
	no := false
	def := EntityDef{
		Name:  "documents",
		Table: "documents",
		Columns: []ColumnDef{
			{Name: "id", Kind: query.KindUUID},
			{Name: "number", Kind: query.KindString, Operators: []query.ComparisonType{query.Equal}},
			{Name: "total", Kind: query.KindDecimal, Sortable: &no},
			{Name: "created_at", Kind: query.KindTime, DefaultOrder: query.Descending},
			{Name: "name", SortInsensitive: true},
		},
	}

	schema := def.Schema()
	require.NotNil(t, schema)
	require.Len(t, schema.Fields, 5)
	require.Len(t, schema.Sorts, 5)

	t.Run("ExplicitOperatorsKept", func(t *testing.T) {
		rule, ok := schema.FieldRule("number")
		require.True(t, ok)
		assert.Equal(t, []query.ComparisonType{query.Equal}, rule.Operators)
	})

	t.Run("UUIDDefaultsExcludePatterns", func(t *testing.T) {
		rule, ok := schema.FieldRule("id")
		require.True(t, ok)
		assert.True(t, rule.Allows(query.Equal))
		assert.True(t, rule.Allows(query.InList))
		assert.False(t, rule.Allows(query.Like))
		assert.False(t, rule.Allows(query.Between))
	})

	t.Run("DecimalDefaultsIncludeRanges", func(t *testing.T) {
		rule, ok := schema.FieldRule("total")
		require.True(t, ok)
		assert.True(t, rule.Allows(query.Between))
		assert.True(t, rule.Allows(query.GreaterOrEqual))
		assert.False(t, rule.Allows(query.Contains))
	})

	t.Run("UntypedTakesEverything", func(t *testing.T) {
		rule, ok := schema.FieldRule("name")
		require.True(t, ok)
		assert.Empty(t, rule.Operators)
		assert.True(t, rule.Allows(query.Regex))
	})

	t.Run("SortRulesCarried", func(t *testing.T) {
		rule, ok := schema.SortRule("total")
		require.True(t, ok)
		assert.False(t, rule.AllowsSorting())

		rule, ok = schema.SortRule("created_at")
		require.True(t, ok)
		assert.Equal(t, query.Descending, rule.DefaultOrder)

		rule, ok = schema.SortRule("name")
		require.True(t, ok)
		assert.True(t, rule.CaseInsensitive)
	})

	t.Run("NoColumnsMeansNoSchema", func(t *testing.T) {
		bare := EntityDef{Name: "raw", Table: "raw"}
		assert.Nil(t, bare.Schema())
	})
}
