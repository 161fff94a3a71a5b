package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"queryforge/internal/engine"
	"queryforge/internal/metadata"
)

// relationQuery is one prepared inclusion load at a tree level.
type relationQuery struct {
	node      engine.InclusionNode
	rel       metadata.RelationDef
	target    metadata.EntityDef
	parentKey string
	childKey  string
	sql       string
	args      []any
	skip      bool // no parent keys, nothing to load
}

// loadIncludes loads one inclusion level for rows in a single database
// round-trip and recurses into children. Required inclusions drop parents
// without a match; for top-level nodes the EXISTS predicate has already
// excluded those, deeper levels rely on this filter.
func (s *Store) loadIncludes(ctx context.Context, def metadata.EntityDef, nodes []engine.InclusionNode, rows []engine.Row) ([]engine.Row, error) {
	if len(rows) == 0 || len(nodes) == 0 {
		return rows, nil
	}

	queries := make([]relationQuery, 0, len(nodes))
	for _, node := range nodes {
		rq, err := s.prepareRelationQuery(def, node, rows)
		if err != nil {
			return nil, err
		}
		queries = append(queries, rq)
	}

	results, err := s.queryRelations(ctx, queries)
	if err != nil {
		return nil, err
	}

	for i, rq := range queries {
		children := results[i]

		// Grandchildren first: a required grandchild may drop child rows
		// before they attach.
		if len(rq.node.Children) > 0 {
			children, err = s.loadIncludes(ctx, rq.target, rq.node.Children, children)
			if err != nil {
				return nil, err
			}
		}

		rows = attachChildren(rows, rq, children)
	}

	return rows, nil
}

// prepareRelationQuery builds the batched SELECT for one relation from the
// parent rows' key values.
func (s *Store) prepareRelationQuery(def metadata.EntityDef, node engine.InclusionNode, rows []engine.Row) (relationQuery, error) {
	rel, ok := def.Relation(node.Relation)
	if !ok {
		return relationQuery{}, fmt.Errorf("entity %s has no relation %q", def.Name, node.Relation)
	}
	target, ok := s.registry.Get(rel.Target)
	if !ok {
		return relationQuery{}, fmt.Errorf("relation %s.%s targets unregistered entity %q", def.Name, rel.Name, rel.Target)
	}

	parentKey, childKey := relationKeys(def, target, rel)

	rq := relationQuery{
		node:      node,
		rel:       rel,
		target:    target,
		parentKey: parentKey,
		childKey:  childKey,
	}

	keys := collectKeys(rows, parentKey)
	if len(keys) == 0 {
		rq.skip = true
		return rq, nil
	}

	attrs := node.Attributes
	if len(attrs) == 0 {
		attrs = rel.Attributes
	}
	if len(attrs) > 0 {
		attrs = ensureColumns(attrs, childKey)
		attrs = ensureColumns(attrs, linkColumns(target, node.Children)...)
	} else {
		attrs = []string{"*"}
	}

	q := builder().
		Select(attrs...).
		From(target.Table).
		Where(squirrel.Eq{childKey: keys})
	if node.Where != nil {
		q = q.Where(node.Where)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return relationQuery{}, fmt.Errorf("build inclusion query for %s.%s: %w", def.Name, rel.Name, err)
	}
	rq.sql = sql
	rq.args = args

	return rq, nil
}

// queryRelations runs every prepared query in one batch round-trip and
// scans the result sets in queue order.
func (s *Store) queryRelations(ctx context.Context, queries []relationQuery) ([][]engine.Row, error) {
	results := make([][]engine.Row, len(queries))

	batch := &pgx.Batch{}
	queued := 0
	for _, rq := range queries {
		if rq.skip {
			continue
		}
		batch.Queue(rq.sql, rq.args...)
		queued++
	}
	if queued == 0 {
		return results, nil
	}

	br := s.querier(ctx).SendBatch(ctx, batch)
	defer br.Close()

	for i, rq := range queries {
		if rq.skip {
			continue
		}
		rows, err := br.Query()
		if err != nil {
			return nil, fmt.Errorf("load relation %s: %w", rq.rel.Name, err)
		}
		var loaded []engine.Row
		if err := pgxscan.ScanAll(&loaded, rows); err != nil {
			return nil, fmt.Errorf("scan relation %s: %w", rq.rel.Name, err)
		}
		results[i] = loaded
	}

	return results, nil
}

// attachChildren groups loaded child rows by their linking value and sets
// them on each parent under the alias. Required relations filter parents
// without a match.
func attachChildren(rows []engine.Row, rq relationQuery, children []engine.Row) []engine.Row {
	groups := make(map[any][]engine.Row, len(children))
	for _, child := range children {
		k, ok := mapKey(child[rq.childKey])
		if !ok {
			continue
		}
		groups[k] = append(groups[k], child)
	}

	alias := rq.node.Alias
	if alias == "" {
		alias = rq.node.Relation
	}
	many := rq.rel.Kind == metadata.RelationHasMany

	kept := rows[:0]
	for _, row := range rows {
		var matched []engine.Row
		if k, ok := mapKey(row[rq.parentKey]); ok {
			matched = groups[k]
		}

		if many {
			if matched == nil {
				matched = []engine.Row{}
			}
			row[alias] = matched
		} else if len(matched) > 0 {
			row[alias] = matched[0]
		} else {
			row[alias] = nil
		}

		if rq.node.Required && len(matched) == 0 {
			continue
		}
		kept = append(kept, row)
	}

	return kept
}

// collectKeys gathers the distinct non-null linking values of one column.
func collectKeys(rows []engine.Row, column string) []any {
	seen := make(map[any]struct{}, len(rows))
	keys := make([]any, 0, len(rows))
	for _, row := range rows {
		v := row[column]
		if v == nil {
			continue
		}
		k, ok := mapKey(v)
		if !ok {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, v)
	}
	return keys
}

// mapKey normalizes a scanned value into a comparable map key. Byte slices
// (bytea, some uuid codecs) convert to strings; other driver values are
// already comparable.
func mapKey(v any) (any, bool) {
	switch k := v.(type) {
	case nil:
		return nil, false
	case []byte:
		return string(k), true
	default:
		return v, true
	}
}
