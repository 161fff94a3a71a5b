// Package engine compiles query specifications into executable plans and
// orchestrates their execution against a record store, with result caching
// and performance tracking.
package engine

import (
	"context"
)

// Row is one record returned by a store, keyed by column or alias.
type Row = map[string]any

// RecordStore executes compiled plans against the backing storage. It is
// the engine's only external collaborator; implementations live under
// internal/infrastructure/storage.
type RecordStore interface {
	// FindAll returns the rows matching the plan.
	FindAll(ctx context.Context, plan *Plan) ([]Row, error)

	// FindAndCount returns matching rows together with the unpaginated
	// total in one call.
	FindAndCount(ctx context.Context, plan *Plan) ([]Row, int64, error)

	// Count returns the unpaginated total for the plan.
	Count(ctx context.Context, plan *Plan) (int64, error)

	// Create inserts a record and returns it.
	Create(ctx context.Context, entity string, values map[string]any) (Row, error)

	// Update modifies the record identified by key=id and returns the
	// number of affected rows.
	Update(ctx context.Context, entity, key string, id any, values map[string]any) (int64, error)

	// Destroy removes the record identified by key=id and returns the
	// number of affected rows.
	Destroy(ctx context.Context, entity, key string, id any) (int64, error)
}
