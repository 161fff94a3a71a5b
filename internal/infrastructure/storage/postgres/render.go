package postgres

import (
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"

	"queryforge/internal/domain/query"
	"queryforge/internal/engine"
	"queryforge/internal/metadata"
)

// builder is the statement builder for top-level statements.
func builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// renderSelect turns a compiled plan into a SELECT builder for the entity's
// table. Required inclusions become correlated EXISTS predicates so row
// sets and counts both honor them.
func (s *Store) renderSelect(def metadata.EntityDef, plan *engine.Plan) (squirrel.SelectBuilder, error) {
	cols := plan.Attributes
	if len(cols) > 0 {
		cols = ensureColumns(cols, linkColumns(def, plan.Include)...)
	} else {
		cols = []string{"*"}
	}

	q := builder().Select(cols...).From(def.Table)

	if plan.Distinct {
		q = q.Distinct()
	}
	if plan.Predicate != nil {
		q = q.Where(plan.Predicate)
	}

	for _, node := range plan.Include {
		if !node.Required {
			continue
		}
		exists, err := s.existsPredicate(def, node)
		if err != nil {
			return q, err
		}
		q = q.Where(exists)
	}

	if len(plan.GroupBy) > 0 {
		q = q.GroupBy(plan.GroupBy...)
	}
	if plan.Having != nil {
		q = q.Having(plan.Having)
	}

	for _, inst := range plan.Order {
		q = q.OrderBy(orderClause(inst))
	}

	if plan.Offset != nil {
		q = q.Offset(*plan.Offset)
	}
	if plan.Limit != nil {
		q = q.Limit(*plan.Limit)
	}

	return q, nil
}

// renderCount wraps the plan's row set in COUNT(*). The caller strips
// ordering and pagination via CountPlan first.
func (s *Store) renderCount(def metadata.EntityDef, plan *engine.Plan) (squirrel.SelectBuilder, error) {
	sub, err := s.renderSelect(def, plan)
	if err != nil {
		return sub, err
	}
	return builder().Select("COUNT(*)").FromSelect(sub, "sub"), nil
}

// existsPredicate builds EXISTS (SELECT 1 FROM target WHERE target.fk =
// parent.key AND ...) for a required inclusion, nesting further required
// children. The subquery renders with question placeholders so the outer
// builder renumbers them together with its own.
func (s *Store) existsPredicate(parent metadata.EntityDef, node engine.InclusionNode) (squirrel.Sqlizer, error) {
	rel, ok := parent.Relation(node.Relation)
	if !ok {
		return nil, fmt.Errorf("entity %s has no relation %q", parent.Name, node.Relation)
	}
	target, ok := s.registry.Get(rel.Target)
	if !ok {
		return nil, fmt.Errorf("relation %s.%s targets unregistered entity %q", parent.Name, rel.Name, rel.Target)
	}

	parentKey, childKey := relationKeys(parent, target, rel)

	sub := squirrel.Select("1").
		From(target.Table).
		Where(squirrel.Expr(fmt.Sprintf("%s.%s = %s.%s", target.Table, childKey, parent.Table, parentKey)))

	if node.Where != nil {
		sub = sub.Where(node.Where)
	}

	for _, child := range node.Children {
		if !child.Required {
			continue
		}
		exists, err := s.existsPredicate(target, child)
		if err != nil {
			return nil, err
		}
		sub = sub.Where(exists)
	}

	sql, args, err := sub.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build exists subquery for %s.%s: %w", parent.Name, rel.Name, err)
	}

	return squirrel.Expr("EXISTS ("+sql+")", args...), nil
}

// relationKeys resolves the linking columns of a relation: the column read
// from parent rows and the column matched on the target table.
func relationKeys(parent, target metadata.EntityDef, rel metadata.RelationDef) (parentKey, childKey string) {
	if rel.Kind == metadata.RelationBelongsTo {
		parentKey = rel.ForeignKey
		childKey = rel.OwnerKey
		if childKey == "" {
			childKey = target.PrimaryKey
		}
		return parentKey, childKey
	}

	parentKey = rel.OwnerKey
	if parentKey == "" {
		parentKey = parent.PrimaryKey
	}
	return parentKey, rel.ForeignKey
}

// orderClause renders one sort instruction, folding case when requested.
func orderClause(inst engine.OrderInstruction) string {
	col := inst.Column
	if inst.CaseInsensitive {
		col = "lower(" + col + ")"
	}

	dir := " ASC"
	if inst.Direction == query.Descending {
		dir = " DESC"
	}

	var b strings.Builder
	b.WriteString(col)
	b.WriteString(dir)

	switch inst.Nulls {
	case query.NullsFirst:
		b.WriteString(" NULLS FIRST")
	case query.NullsLast:
		b.WriteString(" NULLS LAST")
	}

	return b.String()
}

// linkColumns lists the parent-side columns inclusion loading reads, so a
// restricted projection still carries them.
func linkColumns(def metadata.EntityDef, nodes []engine.InclusionNode) []string {
	var cols []string
	for _, node := range nodes {
		rel, ok := def.Relation(node.Relation)
		if !ok {
			continue
		}
		if rel.Kind == metadata.RelationBelongsTo {
			cols = append(cols, rel.ForeignKey)
			continue
		}
		if rel.OwnerKey != "" {
			cols = append(cols, rel.OwnerKey)
		} else {
			cols = append(cols, def.PrimaryKey)
		}
	}
	return cols
}

// ensureColumns appends any of needed missing from cols.
func ensureColumns(cols []string, needed ...string) []string {
	out := cols
	for _, want := range needed {
		found := false
		for _, col := range out {
			if col == want {
				found = true
				break
			}
		}
		if !found {
			out = append(out, want)
		}
	}
	return out
}
