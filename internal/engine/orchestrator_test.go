package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"queryforge/internal/core/apperror"
	"queryforge/internal/domain/query"
	"queryforge/internal/infrastructure/cache"
)

// fakeStore counts calls and replays canned rows so orchestration logic is
// observable without a database.
type fakeStore struct {
	rows  []Row
	total int64
	err   error

	findCalls         int
	findAndCountCalls int
	countCalls        int

	lastPlan      *Plan
	lastCountPlan *Plan

	created   map[string]any
	updatedID any
	affected  int64
}

func (f *fakeStore) FindAll(ctx context.Context, plan *Plan) ([]Row, error) {
	f.findCalls++
	f.lastPlan = plan
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

func (f *fakeStore) FindAndCount(ctx context.Context, plan *Plan) ([]Row, int64, error) {
	f.findAndCountCalls++
	f.lastPlan = plan
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.rows, f.total, nil
}

func (f *fakeStore) Count(ctx context.Context, plan *Plan) (int64, error) {
	f.countCalls++
	f.lastCountPlan = plan
	if f.err != nil {
		return 0, f.err
	}
	return f.total, nil
}

func (f *fakeStore) Create(ctx context.Context, entity string, values map[string]any) (Row, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = values
	row := Row{"id": "generated"}
	for k, v := range values {
		row[k] = v
	}
	return row, nil
}

func (f *fakeStore) Update(ctx context.Context, entity, key string, id any, values map[string]any) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.updatedID = id
	return f.affected, nil
}

func (f *fakeStore) Destroy(ctx context.Context, entity, key string, id any) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.updatedID = id
	return f.affected, nil
}

func newTestOrchestrator(t *testing.T, store RecordStore, opts Options, c *cache.Cache) *Orchestrator {
	t.Helper()
	orch, err := NewOrchestrator(OrchestratorConfig{
		Entity:  "documents",
		Store:   store,
		Cache:   c,
		Options: opts,
	})
	if err != nil {
		t.Fatalf("NewOrchestrator failed: %v", err)
	}
	return orch
}

func newTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	provider, err := cache.NewMemoryProvider()
	if err != nil {
		t.Fatalf("NewMemoryProvider failed: %v", err)
	}
	return cache.New(provider, cache.Config{Enabled: true, Prefix: "test", DefaultTTL: time.Minute})
}

func TestNewOrchestrator_Validation(t *testing.T) {
	if _, err := NewOrchestrator(OrchestratorConfig{Store: &fakeStore{}}); err == nil {
		t.Error("expected error without entity")
	}
	if _, err := NewOrchestrator(OrchestratorConfig{Entity: "documents"}); err == nil {
		t.Error("expected error without store")
	}
}

func TestOrchestrator_BuilderValidation(t *testing.T) {
	orch := newTestOrchestrator(t, &fakeStore{}, DefaultOptions(), nil)

	t.Run("RejectsUnknownOperator", func(t *testing.T) {
		if err := orch.WithFilters(query.Cond("name", "resembles", "x")); err == nil {
			t.Error("expected error for unknown operator")
		}
	})

	t.Run("RejectsBadCondition", func(t *testing.T) {
		err := orch.WithFilters(query.Cond("", query.Equal, 1))
		if err == nil {
			t.Fatal("expected error for missing field")
		}
		appErr, _ := apperror.AsAppError(err)
		if appErr.Code != apperror.CodeMissingField {
			t.Errorf("expected %s, got %s", apperror.CodeMissingField, appErr.Code)
		}
	})

	t.Run("RejectsBadSort", func(t *testing.T) {
		if err := orch.WithSorting(query.Sort("name", "sideways")); err == nil {
			t.Error("expected error for unknown order")
		}
	})

	t.Run("RejectsMixedPagination", func(t *testing.T) {
		if err := orch.WithPagination(query.ByPage(1, 10)); err != nil {
			t.Fatalf("page spec rejected: %v", err)
		}
		err := orch.WithPagination(query.PaginationSpec{Limit: intPtr(5)})
		if err == nil {
			t.Fatal("expected conflict error")
		}
		appErr, _ := apperror.AsAppError(err)
		if appErr.Code != apperror.CodeConflictingPagination {
			t.Errorf("expected %s, got %s", apperror.CodeConflictingPagination, appErr.Code)
		}
	})

	t.Run("RejectsUnsafeAttributes", func(t *testing.T) {
		if err := orch.WithAttributes("name", "count(*)"); err == nil {
			t.Error("expected error for unsafe attribute")
		}
	})

	t.Run("RejectsUnsafeGroupBy", func(t *testing.T) {
		if err := orch.WithGroupBy("status;"); err == nil {
			t.Error("expected error for unsafe column")
		}
	})

	t.Run("RejectsBadHaving", func(t *testing.T) {
		if err := orch.WithHaving(query.Cond("", query.Equal, 1)); err == nil {
			t.Error("expected error for bad having node")
		}
	})
}

func TestOrchestrator_ValidationDisabledDefersFailure(t *testing.T) {
	orch := newTestOrchestrator(t, &fakeStore{}, Options{}, nil)

	// With validation off the builder accepts anything; compile rejects it.
	if err := orch.WithFilters(query.Cond("", query.Equal, 1)); err != nil {
		t.Fatalf("builder should accept with validation off: %v", err)
	}

	_, err := orch.Execute(context.Background())
	if err == nil {
		t.Fatal("expected compile failure at execution")
	}
	appErr, _ := apperror.AsAppError(err)
	if appErr.Code != apperror.CodeFilterCompile {
		t.Errorf("expected %s, got %s", apperror.CodeFilterCompile, appErr.Code)
	}
}

func TestOrchestrator_Execute(t *testing.T) {
	store := &fakeStore{rows: []Row{{"id": "a"}, {"id": "b"}}, total: 2}
	orch := newTestOrchestrator(t, store, DefaultOptions(), nil)

	result, err := orch.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if len(result.Data) != 2 {
		t.Errorf("expected 2 rows, got %d", len(result.Data))
	}
	if result.Pagination != nil {
		t.Error("unpaginated query must not carry pagination meta")
	}
	if result.Count != nil {
		t.Error("Execute must not carry a count")
	}
	if store.findCalls != 1 || store.countCalls != 0 {
		t.Errorf("expected 1 find / 0 count, got %d / %d", store.findCalls, store.countCalls)
	}
	if result.Performance == nil {
		t.Error("expected performance report with monitoring enabled")
	} else if result.Performance.QueryCount != 1 {
		t.Errorf("expected query count 1, got %d", result.Performance.QueryCount)
	}
}

func TestOrchestrator_ExecutePaginated(t *testing.T) {
	store := &fakeStore{rows: []Row{{"id": "a"}}, total: 42}
	orch := newTestOrchestrator(t, store, DefaultOptions(), nil)

	if err := orch.WithPagination(query.ByPage(2, 5)); err != nil {
		t.Fatalf("WithPagination failed: %v", err)
	}

	result, err := orch.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if store.findCalls != 1 || store.countCalls != 1 {
		t.Errorf("expected 1 find / 1 count, got %d / %d", store.findCalls, store.countCalls)
	}
	if store.lastPlan.Offset == nil || *store.lastPlan.Offset != 5 {
		t.Errorf("expected offset 5, got %v", store.lastPlan.Offset)
	}
	if store.lastPlan.Limit == nil || *store.lastPlan.Limit != 5 {
		t.Errorf("expected limit 5, got %v", store.lastPlan.Limit)
	}
	if store.lastCountPlan.Limit != nil || store.lastCountPlan.Offset != nil {
		t.Error("count plan must not paginate")
	}

	if result.Pagination == nil {
		t.Fatal("expected pagination meta")
	}
	if result.Pagination.Total != 42 || result.Pagination.Page != 2 || result.Pagination.TotalPages != 9 {
		t.Errorf("unexpected meta: %+v", result.Pagination)
	}
	if !result.Pagination.HasNext || !result.Pagination.HasPrev {
		t.Errorf("unexpected neighbors: %+v", result.Pagination)
	}
}

func TestOrchestrator_ExecuteWithCount(t *testing.T) {
	store := &fakeStore{rows: []Row{{"id": "a"}}, total: 7}
	orch := newTestOrchestrator(t, store, DefaultOptions(), nil)

	result, err := orch.ExecuteWithCount(context.Background())
	if err != nil {
		t.Fatalf("ExecuteWithCount failed: %v", err)
	}

	if store.findAndCountCalls != 1 || store.findCalls != 0 {
		t.Errorf("expected a single combined call, got %d / %d", store.findAndCountCalls, store.findCalls)
	}
	if result.Count == nil || *result.Count != 7 {
		t.Errorf("expected count 7, got %v", result.Count)
	}
	if result.Pagination != nil {
		t.Error("unpaginated query must not carry pagination meta")
	}
}

func TestOrchestrator_ExecuteWithCountPastLastPage(t *testing.T) {
	store := &fakeStore{rows: nil, total: 5}
	orch := newTestOrchestrator(t, store, DefaultOptions(), nil)

	if err := orch.WithPagination(query.ByPage(3, 10)); err != nil {
		t.Fatalf("WithPagination failed: %v", err)
	}

	_, err := orch.ExecuteWithCount(context.Background())
	if err == nil {
		t.Fatal("expected out-of-range error")
	}
	appErr, _ := apperror.AsAppError(err)
	if appErr.Code != apperror.CodePageOutOfRange {
		t.Errorf("expected %s, got %s", apperror.CodePageOutOfRange, appErr.Code)
	}
}

func TestOrchestrator_Count(t *testing.T) {
	store := &fakeStore{total: 19}
	orch := newTestOrchestrator(t, store, DefaultOptions(), nil)

	if err := orch.WithFilters(query.Cond("status", query.Equal, "posted")); err != nil {
		t.Fatalf("WithFilters failed: %v", err)
	}
	if err := orch.WithSorting(query.Sort("created_at", query.Descending)); err != nil {
		t.Fatalf("WithSorting failed: %v", err)
	}

	total, err := orch.Count(context.Background())
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if total != 19 {
		t.Errorf("expected 19, got %d", total)
	}
	if store.countCalls != 1 || store.findCalls != 0 {
		t.Errorf("expected count only, got %d / %d", store.countCalls, store.findCalls)
	}
	if store.lastCountPlan.Predicate == nil {
		t.Error("count plan must keep the predicate")
	}
	if store.lastCountPlan.Order != nil {
		t.Error("count plan must drop ordering")
	}
}

func TestOrchestrator_ExecuteCacheHit(t *testing.T) {
	store := &fakeStore{rows: []Row{{"id": "a", "name": "First"}}}
	orch := newTestOrchestrator(t, store, DefaultOptions(), newTestCache(t))

	first, err := orch.Execute(context.Background())
	if err != nil {
		t.Fatalf("first Execute failed: %v", err)
	}
	second, err := orch.Execute(context.Background())
	if err != nil {
		t.Fatalf("second Execute failed: %v", err)
	}

	if store.findCalls != 1 {
		t.Errorf("expected exactly one store call, got %d", store.findCalls)
	}
	if len(second.Data) != 1 || second.Data[0]["name"] != "First" {
		t.Errorf("cached envelope mismatch: %+v", second.Data)
	}
	if first.Performance == nil || first.Performance.CacheHit {
		t.Error("first execution should miss the cache")
	}
	if second.Performance == nil || !second.Performance.CacheHit {
		t.Error("second execution should hit the cache")
	}
}

func TestOrchestrator_CacheSeparatesResultShapes(t *testing.T) {
	store := &fakeStore{rows: []Row{{"id": "a"}}, total: 1}
	orch := newTestOrchestrator(t, store, DefaultOptions(), newTestCache(t))

	if _, err := orch.Execute(context.Background()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if _, err := orch.ExecuteWithCount(context.Background()); err != nil {
		t.Fatalf("ExecuteWithCount failed: %v", err)
	}

	// Same specification, different result shapes: both must reach the store.
	if store.findCalls != 1 || store.findAndCountCalls != 1 {
		t.Errorf("shapes shared a cache entry: %d / %d", store.findCalls, store.findAndCountCalls)
	}
}

func TestOrchestrator_CountCached(t *testing.T) {
	store := &fakeStore{total: 11}
	orch := newTestOrchestrator(t, store, DefaultOptions(), newTestCache(t))

	for i := 0; i < 3; i++ {
		total, err := orch.Count(context.Background())
		if err != nil {
			t.Fatalf("Count %d failed: %v", i, err)
		}
		if total != 11 {
			t.Errorf("Count %d: expected 11, got %d", i, total)
		}
	}

	if store.countCalls != 1 {
		t.Errorf("expected one store count, got %d", store.countCalls)
	}
}

func TestOrchestrator_SpecChangeMissesCache(t *testing.T) {
	store := &fakeStore{rows: []Row{{"id": "a"}}}
	orch := newTestOrchestrator(t, store, DefaultOptions(), newTestCache(t))

	if _, err := orch.Execute(context.Background()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if err := orch.WithFilters(query.Cond("status", query.Equal, "draft")); err != nil {
		t.Fatalf("WithFilters failed: %v", err)
	}
	if _, err := orch.Execute(context.Background()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if store.findCalls != 2 {
		t.Errorf("changed spec must miss the cache, got %d calls", store.findCalls)
	}
}

func TestOrchestrator_StoreErrorsWrapped(t *testing.T) {
	store := &fakeStore{err: errors.New("connection refused")}

	tests := []struct {
		name     string
		call     func(o *Orchestrator) error
		wantCode string
	}{
		{
			name: "Execute",
			call: func(o *Orchestrator) error {
				_, err := o.Execute(context.Background())
				return err
			},
			wantCode: apperror.CodeFindAll,
		},
		{
			name: "ExecuteWithCount",
			call: func(o *Orchestrator) error {
				_, err := o.ExecuteWithCount(context.Background())
				return err
			},
			wantCode: apperror.CodeFindAndCount,
		},
		{
			name: "Count",
			call: func(o *Orchestrator) error {
				_, err := o.Count(context.Background())
				return err
			},
			wantCode: apperror.CodeCount,
		},
		{
			name: "Create",
			call: func(o *Orchestrator) error {
				_, err := o.Create(context.Background(), map[string]any{"name": "x"})
				return err
			},
			wantCode: apperror.CodeCreate,
		},
		{
			name: "Update",
			call: func(o *Orchestrator) error {
				_, err := o.Update(context.Background(), "id-1", map[string]any{"name": "x"})
				return err
			},
			wantCode: apperror.CodeUpdate,
		},
		{
			name: "Destroy",
			call: func(o *Orchestrator) error {
				_, err := o.Destroy(context.Background(), "id-1")
				return err
			},
			wantCode: apperror.CodeDestroy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orch := newTestOrchestrator(t, store, DefaultOptions(), nil)
			err := tt.call(orch)
			if err == nil {
				t.Fatal("expected error")
			}
			appErr, ok := apperror.AsAppError(err)
			if !ok {
				t.Fatalf("expected AppError, got %v", err)
			}
			if appErr.Code != tt.wantCode {
				t.Errorf("expected %s, got %s", tt.wantCode, appErr.Code)
			}
			if !errors.Is(err, store.err) {
				t.Error("wrapped error must keep the cause")
			}
		})
	}
}

func TestOrchestrator_Writes(t *testing.T) {
	store := &fakeStore{affected: 1}
	orch := newTestOrchestrator(t, store, DefaultOptions(), nil)

	t.Run("CreateRequiresValues", func(t *testing.T) {
		if _, err := orch.Create(context.Background(), nil); err == nil {
			t.Error("expected error for empty values")
		}
	})

	t.Run("Create", func(t *testing.T) {
		row, err := orch.Create(context.Background(), map[string]any{"name": "New"})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if row["name"] != "New" || row["id"] == nil {
			t.Errorf("unexpected row: %+v", row)
		}
	})

	t.Run("UpdateRequiresValues", func(t *testing.T) {
		if _, err := orch.Update(context.Background(), "id-1", nil); err == nil {
			t.Error("expected error for empty values")
		}
	})

	t.Run("Update", func(t *testing.T) {
		affected, err := orch.Update(context.Background(), "id-1", map[string]any{"name": "Renamed"})
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if affected != 1 || store.updatedID != "id-1" {
			t.Errorf("unexpected update: affected=%d id=%v", affected, store.updatedID)
		}
	})

	t.Run("Destroy", func(t *testing.T) {
		affected, err := orch.Destroy(context.Background(), "id-2")
		if err != nil {
			t.Fatalf("Destroy failed: %v", err)
		}
		if affected != 1 || store.updatedID != "id-2" {
			t.Errorf("unexpected destroy: affected=%d id=%v", affected, store.updatedID)
		}
	})
}

func TestOrchestrator_SpecificationAndReset(t *testing.T) {
	orch := newTestOrchestrator(t, &fakeStore{}, DefaultOptions(), nil)

	if err := orch.WithFilters(query.Cond("status", query.Equal, "draft")); err != nil {
		t.Fatalf("WithFilters failed: %v", err)
	}
	if err := orch.WithJoins(query.Join("lines")); err != nil {
		t.Fatalf("WithJoins failed: %v", err)
	}
	orch.WithDistinct()

	spec := orch.Specification()
	if len(spec.Filters) != 1 || len(spec.Joins) != 1 || !spec.Distinct {
		t.Errorf("unexpected specification: %+v", spec)
	}
	if orch.Joins().Len() != 1 {
		t.Errorf("expected 1 join, got %d", orch.Joins().Len())
	}

	orch.Reset()
	spec = orch.Specification()
	if len(spec.Filters) != 0 || len(spec.Joins) != 0 || spec.Distinct {
		t.Errorf("Reset left state behind: %+v", spec)
	}
	if orch.Joins().Len() != 0 {
		t.Errorf("Reset left joins behind: %d", orch.Joins().Len())
	}
}

func TestOrchestrator_TrackerLeavesNoLiveRecords(t *testing.T) {
	store := &fakeStore{rows: []Row{{"id": "a"}}}
	orch := newTestOrchestrator(t, store, DefaultOptions(), nil)

	if _, err := orch.Execute(context.Background()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if _, err := orch.Count(context.Background()); err != nil {
		t.Fatalf("Count failed: %v", err)
	}

	if live := orch.Tracker().Live(); live != 0 {
		t.Errorf("expected no live records after execution, got %d", live)
	}
}
