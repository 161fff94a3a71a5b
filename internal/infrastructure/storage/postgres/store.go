package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"queryforge/internal/engine"
	"queryforge/internal/metadata"
)

// Store executes compiled query plans against PostgreSQL. Entities resolve
// to tables through the metadata registry; rows scan into generic maps so
// the engine stays ignorant of concrete record shapes.
type Store struct {
	pool     *Pool
	registry *metadata.Registry
}

var _ engine.RecordStore = (*Store)(nil)

// NewStore creates a store over a connection pool and an entity registry.
func NewStore(pool *Pool, registry *metadata.Registry) *Store {
	return &Store{pool: pool, registry: registry}
}

func (s *Store) definition(entity string) (metadata.EntityDef, error) {
	def, ok := s.registry.Get(entity)
	if !ok {
		return metadata.EntityDef{}, fmt.Errorf("entity %q is not registered", entity)
	}
	return def, nil
}

// FindAll returns the rows matching the plan, with inclusions loaded.
func (s *Store) FindAll(ctx context.Context, plan *engine.Plan) ([]engine.Row, error) {
	def, err := s.definition(plan.Entity)
	if err != nil {
		return nil, err
	}

	q, err := s.renderSelect(def, plan)
	if err != nil {
		return nil, err
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query for %s: %w", plan.Entity, err)
	}

	var rows []engine.Row
	if err := pgxscan.Select(ctx, s.querier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select %s: %w", def.Table, err)
	}

	if len(plan.Include) > 0 {
		rows, err = s.loadIncludes(ctx, def, plan.Include, rows)
		if err != nil {
			return nil, err
		}
	}

	return rows, nil
}

// FindAndCount returns matching rows and the unpaginated total. Both reads
// run inside one read-only snapshot, so the total always agrees with the
// row set even under concurrent writes.
func (s *Store) FindAndCount(ctx context.Context, plan *engine.Plan) ([]engine.Row, int64, error) {
	var (
		rows  []engine.Row
		total int64
	)

	err := s.snapshot(ctx, func(ctx context.Context) error {
		var err error
		if total, err = s.Count(ctx, plan.CountPlan()); err != nil {
			return err
		}
		rows, err = s.FindAll(ctx, plan)
		return err
	})
	if err != nil {
		return nil, 0, err
	}

	return rows, total, nil
}

// Count returns the number of rows the plan matches, ignoring ordering and
// pagination. Required inclusions restrict the count the same way they
// restrict the row set.
func (s *Store) Count(ctx context.Context, plan *engine.Plan) (int64, error) {
	def, err := s.definition(plan.Entity)
	if err != nil {
		return 0, err
	}

	q, err := s.renderCount(def, plan.CountPlan())
	if err != nil {
		return 0, err
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count query for %s: %w", plan.Entity, err)
	}

	var total int64
	if err := s.querier(ctx).QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count %s: %w", def.Table, err)
	}

	return total, nil
}

// Create inserts a record and returns the stored row.
func (s *Store) Create(ctx context.Context, entity string, values map[string]any) (engine.Row, error) {
	def, err := s.definition(entity)
	if err != nil {
		return nil, err
	}
	if err := validateColumns(values); err != nil {
		return nil, err
	}

	q := builder().
		Insert(def.Table).
		SetMap(values).
		Suffix("RETURNING *")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert for %s: %w", entity, err)
	}

	var rows []engine.Row
	if err := pgxscan.Select(ctx, s.querier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("insert %s: %w", def.Table, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("insert %s returned no row", def.Table)
	}

	return rows[0], nil
}

// Update modifies the record identified by key=id.
func (s *Store) Update(ctx context.Context, entity, key string, id any, values map[string]any) (int64, error) {
	def, err := s.definition(entity)
	if err != nil {
		return 0, err
	}
	if !engine.ValidIdentifier(key) {
		return 0, fmt.Errorf("invalid key column %q", key)
	}
	if err := validateColumns(values); err != nil {
		return 0, err
	}

	q := builder().
		Update(def.Table).
		SetMap(values).
		Where(squirrel.Eq{key: id})

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build update for %s: %w", entity, err)
	}

	result, err := s.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", def.Table, err)
	}

	return result.RowsAffected(), nil
}

// Destroy removes the record identified by key=id.
func (s *Store) Destroy(ctx context.Context, entity, key string, id any) (int64, error) {
	def, err := s.definition(entity)
	if err != nil {
		return 0, err
	}
	if !engine.ValidIdentifier(key) {
		return 0, fmt.Errorf("invalid key column %q", key)
	}

	q := builder().
		Delete(def.Table).
		Where(squirrel.Eq{key: id})

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete for %s: %w", entity, err)
	}

	result, err := s.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", def.Table, err)
	}

	return result.RowsAffected(), nil
}

// validateColumns rejects write maps whose keys could not be column names.
func validateColumns(values map[string]any) error {
	for col := range values {
		if !engine.ValidIdentifier(col) {
			return fmt.Errorf("invalid column name %q", col)
		}
	}
	return nil
}
