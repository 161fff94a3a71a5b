package metadata

import "queryforge/internal/domain/query"

// Schema derives the filter and sort rules the query engine enforces for
// this entity. Every declared column becomes a rule, so an entity with
// columns rejects filters and sorts on anything undeclared.
func (d EntityDef) Schema() *query.Schema {
	if len(d.Columns) == 0 {
		return nil
	}

	schema := &query.Schema{
		Fields: make(map[string]query.FieldRule, len(d.Columns)),
		Sorts:  make(map[string]query.SortRule, len(d.Columns)),
	}

	for _, col := range d.Columns {
		ops := col.Operators
		if len(ops) == 0 {
			ops = operatorsForKind(col.Kind)
		}

		schema.Fields[col.Name] = query.FieldRule{
			Operators:     ops,
			Kind:          col.Kind,
			Transform:     col.Transform,
			CaseSensitive: col.CaseSensitive,
		}
		schema.Sorts[col.Name] = query.SortRule{
			Sortable:        col.Sortable,
			DefaultOrder:    col.DefaultOrder,
			CaseInsensitive: col.SortInsensitive,
		}
	}

	return schema
}

// operatorsForKind returns the default operator allowlist for a column
// kind. Pattern operators are only meaningful on text, so non-string
// kinds exclude them rather than surface a database type error at
// execution time.
func operatorsForKind(kind query.FieldKind) []query.ComparisonType {
	switch kind {
	case query.KindBool, query.KindUUID:
		return []query.ComparisonType{
			query.Equal, query.NotEqual,
			query.InList, query.NotInList,
			query.IsNull, query.IsNotNull,
		}
	case query.KindInt, query.KindFloat, query.KindDecimal, query.KindTime:
		return []query.ComparisonType{
			query.Equal, query.NotEqual,
			query.Greater, query.GreaterOrEqual,
			query.Less, query.LessOrEqual,
			query.InList, query.NotInList,
			query.Between, query.NotBetween,
			query.IsNull, query.IsNotNull,
		}
	default:
		// Strings and untyped columns take every operator.
		return nil
	}
}
