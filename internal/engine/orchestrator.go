package engine

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"queryforge/internal/core/apperror"
	appctx "queryforge/internal/core/context"
	"queryforge/internal/domain/query"
	"queryforge/internal/infrastructure/cache"
	"queryforge/internal/instrument"
	"queryforge/pkg/logger"
)

var tracer = otel.Tracer("queryforge/engine")

// OrchestratorConfig wires one orchestrator instance.
type OrchestratorConfig struct {
	// Entity is the logical entity the queries target.
	Entity string

	// PrimaryKey names the identifier column for write operations.
	// Empty defaults to "id".
	PrimaryKey string

	// Store executes compiled plans.
	Store RecordStore

	// Schema constrains filtering and sorting. Nil constrains nothing.
	Schema *query.Schema

	// Cache holds result envelopes. Nil disables caching regardless of
	// options.
	Cache *cache.Cache

	Options Options
}

// Orchestrator composes the compilers into one query plan, submits it to
// the record store, applies caching and pagination post-processing, and
// returns a unified result envelope. One instance owns one specification
// at a time; Reset reuses the instance for an unrelated query.
type Orchestrator struct {
	entity     string
	primaryKey string
	store      RecordStore
	opts       Options

	resultCache *cache.Cache
	tracker     *instrument.Tracker

	filters    *FilterCompiler
	sorts      *SortCompiler
	pagination *PaginationCalculator
	joins      *JoinTreeBuilder

	spec query.Specification
}

// NewOrchestrator creates an orchestrator for one entity.
func NewOrchestrator(cfg OrchestratorConfig) (*Orchestrator, error) {
	if cfg.Entity == "" {
		return nil, apperror.NewValidation(apperror.CodeInvalidInput, "orchestrator requires an entity")
	}
	if cfg.Store == nil {
		return nil, apperror.NewValidation(apperror.CodeInvalidInput, "orchestrator requires a record store")
	}

	opts := cfg.Options.Normalize()

	primaryKey := cfg.PrimaryKey
	if primaryKey == "" {
		primaryKey = "id"
	}

	resultCache := cfg.Cache
	if !opts.EnableCaching {
		resultCache = nil
	}

	filters := NewFilterCompiler(cfg.Schema)

	return &Orchestrator{
		entity:      cfg.Entity,
		primaryKey:  primaryKey,
		store:       cfg.Store,
		opts:        opts,
		resultCache: resultCache,
		tracker: instrument.NewTracker(instrument.Config{
			Enabled:   opts.EnablePerformanceMonitoring,
			Threshold: opts.PerformanceThreshold,
		}),
		filters:    filters,
		sorts:      NewSortCompiler(cfg.Schema),
		pagination: NewPaginationCalculator(opts),
		joins:      NewJoinTreeBuilder(filters),
	}, nil
}

// Entity returns the target entity name.
func (o *Orchestrator) Entity() string {
	return o.entity
}

// Tracker exposes the per-instance performance tracker.
func (o *Orchestrator) Tracker() *instrument.Tracker {
	return o.tracker
}

// Joins exposes the join working set for add/remove/inspect operations
// prior to execution.
func (o *Orchestrator) Joins() *JoinTreeBuilder {
	return o.joins
}

// Specification returns a copy of the held specification.
func (o *Orchestrator) Specification() query.Specification {
	spec := o.spec
	spec.Joins = o.joins.Specs()
	return spec
}

// --- builder methods ---

// WithFilters appends filter nodes. With validation enabled malformed
// nodes fail here, before mutating the specification.
func (o *Orchestrator) WithFilters(nodes ...query.FilterNode) error {
	if o.opts.EnableValidation {
		compiled, err := o.filters.Compile(nodes...)
		if err != nil {
			return err
		}
		if compiled.HasErrors() {
			return compiled.Err()
		}
	}
	o.spec.Filters = append(o.spec.Filters, nodes...)
	return nil
}

// WithSorting appends sort conditions.
func (o *Orchestrator) WithSorting(conds ...query.SortCondition) error {
	if o.opts.EnableValidation {
		if compiled := o.sorts.Compile(conds...); compiled.HasErrors() {
			return compiled.Err()
		}
	}
	o.spec.Sorts = append(o.spec.Sorts, conds...)
	return nil
}

// WithPagination merges the request into the held pagination spec.
// Mixing page-based and offset-based fields fails immediately.
func (o *Orchestrator) WithPagination(spec query.PaginationSpec) error {
	merged := o.spec.Pagination.Merge(spec)

	if o.opts.EnableValidation {
		if merged.PageMode() && merged.OffsetMode() {
			return apperror.NewPagination(apperror.CodeConflictingPagination,
				"page-based and offset-based pagination cannot be combined")
		}
		if _, err := o.pagination.Resolve(merged); err != nil {
			return err
		}
	}

	o.spec.Pagination = merged
	return nil
}

// WithJoins adds join specs to the working set.
func (o *Orchestrator) WithJoins(specs ...query.JoinSpec) error {
	for _, spec := range specs {
		if err := o.joins.Add(spec); err != nil {
			return err
		}
	}
	return nil
}

// WithAttributes restricts the projected columns.
func (o *Orchestrator) WithAttributes(attrs ...string) error {
	for _, attr := range attrs {
		if !ValidIdentifier(attr) {
			return apperror.NewValidation(apperror.CodeInvalidInput,
				fmt.Sprintf("attribute %q is not a valid identifier", attr))
		}
	}
	o.spec.Attributes = append(o.spec.Attributes, attrs...)
	return nil
}

// WithGroupBy adds grouping columns.
func (o *Orchestrator) WithGroupBy(cols ...string) error {
	for _, col := range cols {
		if !ValidIdentifier(col) {
			return apperror.NewValidation(apperror.CodeInvalidInput,
				fmt.Sprintf("group by column %q is not a valid identifier", col))
		}
	}
	o.spec.GroupBy = append(o.spec.GroupBy, cols...)
	return nil
}

// WithHaving appends having nodes, compiled alongside filters.
func (o *Orchestrator) WithHaving(nodes ...query.FilterNode) error {
	if o.opts.EnableValidation {
		compiled, err := o.filters.Compile(nodes...)
		if err != nil {
			return err
		}
		if compiled.HasErrors() {
			return compiled.Err()
		}
	}
	o.spec.Having = append(o.spec.Having, nodes...)
	return nil
}

// WithDistinct requests distinct rows.
func (o *Orchestrator) WithDistinct() {
	o.spec.Distinct = true
}

// Reset clears the specification and the join working set for reuse.
func (o *Orchestrator) Reset() {
	o.spec.Reset()
	o.joins.Reset()
}

// --- execution ---

// Execute compiles and runs the held specification. When pagination was
// requested the total is obtained with a separate count query.
func (o *Orchestrator) Execute(ctx context.Context) (*Result, error) {
	return o.run(ctx, false)
}

// ExecuteWithCount mirrors Execute but always requests rows and count from
// the record store in one call.
func (o *Orchestrator) ExecuteWithCount(ctx context.Context) (*Result, error) {
	return o.run(ctx, true)
}

// Count compiles the held filters and joins and asks the store for the
// matching row count, skipping row retrieval entirely.
func (o *Orchestrator) Count(ctx context.Context) (total int64, err error) {
	ctx, span := tracer.Start(ctx, "query.count",
		trace.WithAttributes(
			attribute.String("query.entity", o.entity),
		))
	defer span.End()

	handle := o.tracker.Start("count", o.entity, appctx.RequestIDOrNew(ctx))
	defer o.tracker.End(handle)

	o.spec.Joins = o.joins.Specs()

	key := o.cacheKey(ctx, "total")
	if key != "" {
		if payload, ok := o.resultCache.Get(ctx, key); ok {
			cached, decodeErr := decodeCachedResult(payload)
			if decodeErr == nil && cached.Count != nil {
				o.tracker.RecordCacheHit(handle)
				span.SetAttributes(attribute.Bool("query.cache_hit", true))
				return *cached.Count, nil
			}
			if decodeErr != nil {
				logger.Warn(ctx, "discarding undecodable cache entry", "key", key, "error", decodeErr)
			}
		}
		o.tracker.RecordCacheMiss(handle)
	}

	plan, _, _, err := o.compile(ctx)
	if err != nil {
		return 0, err
	}

	started := time.Now()
	total, err = o.store.Count(ctx, plan.CountPlan())
	o.tracker.RecordExecution(handle, time.Since(started))
	if err != nil {
		return 0, apperror.NewQuery(apperror.CodeCount,
			fmt.Sprintf("count failed for %s", o.entity), err)
	}

	span.SetAttributes(attribute.Int64("query.total", total))

	if key != "" {
		envelope := &Result{Count: &total}
		if payload, encodeErr := envelope.encodeForCache(); encodeErr == nil {
			o.resultCache.Set(ctx, key, payload, o.opts.CacheTTL)
		}
	}

	return total, nil
}

func (o *Orchestrator) run(ctx context.Context, withCount bool) (result *Result, err error) {
	method := "execute"
	discriminator := ""
	if withCount {
		method = "executeWithCount"
		discriminator = "count"
	}

	ctx, span := tracer.Start(ctx, "query."+method,
		trace.WithAttributes(
			attribute.String("query.entity", o.entity),
		))
	defer span.End()

	handle := o.tracker.Start(method, o.entity, appctx.RequestIDOrNew(ctx))

	// Tracking is finalized on every path so no handle leaks open.
	defer func() {
		metrics := o.tracker.End(handle)
		if metrics == nil {
			return
		}
		if o.opts.PerformanceThreshold > 0 && metrics.TotalExecutionTime > o.opts.PerformanceThreshold {
			logger.Warn(ctx, "query exceeded performance threshold",
				"entity", o.entity,
				"method", method,
				"elapsed", metrics.TotalExecutionTime,
				"threshold", o.opts.PerformanceThreshold)
		}
		if result != nil {
			result.Performance = &PerformanceReport{
				ExecutionTime: metrics.TotalExecutionTime.Milliseconds(),
				QueryCount:    metrics.QueryCount,
				CacheHit:      metrics.CacheHits > 0,
			}
		}
	}()

	// The builder keeps joins; sync them for fingerprinting.
	o.spec.Joins = o.joins.Specs()

	key := o.cacheKey(ctx, discriminator)
	if key != "" {
		if payload, ok := o.resultCache.Get(ctx, key); ok {
			cached, decodeErr := decodeCachedResult(payload)
			if decodeErr == nil {
				o.tracker.RecordCacheHit(handle)
				span.SetAttributes(attribute.Bool("query.cache_hit", true))
				return cached, nil
			}
			logger.Warn(ctx, "discarding undecodable cache entry", "key", key, "error", decodeErr)
		}
		o.tracker.RecordCacheMiss(handle)
	}

	plan, resolved, paginated, err := o.compile(ctx)
	if err != nil {
		return nil, err
	}

	if o.opts.EnableQueryLogging {
		o.logPlan(ctx, method, plan)
	}

	if withCount {
		result, err = o.runWithCount(ctx, handle, plan, resolved, paginated)
	} else {
		result, err = o.runFind(ctx, handle, plan, resolved, paginated)
	}
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("query.rows", len(result.Data)))

	if key != "" {
		payload, encodeErr := result.encodeForCache()
		if encodeErr != nil {
			logger.Warn(ctx, "cache encode failed", "key", key, "error", encodeErr)
			return result, nil
		}
		o.tracker.RecordMemory(handle, int64(len(payload)))
		o.resultCache.Set(ctx, key, payload, o.opts.CacheTTL)
	}

	return result, nil
}

// compile turns the held specification into an executable plan.
func (o *Orchestrator) compile(ctx context.Context) (*Plan, Resolved, bool, error) {
	filterResult, err := o.filters.Compile(o.spec.Filters...)
	if err != nil {
		return nil, Resolved{}, false, apperror.NewQuery(apperror.CodeFilterCompile,
			"filter compilation failed", err)
	}
	if filterResult.HasErrors() {
		return nil, Resolved{}, false, apperror.NewQuery(apperror.CodeFilterCompile,
			"filter compilation failed", filterResult.Err()).
			WithDetail("errors", filterResult.ErrorMessages())
	}
	for _, warning := range filterResult.Warnings {
		logger.Warn(ctx, "filter compilation warning", "entity", o.entity, "warning", warning)
	}

	havingResult, err := o.filters.Compile(o.spec.Having...)
	if err != nil {
		return nil, Resolved{}, false, apperror.NewQuery(apperror.CodeFilterCompile,
			"having compilation failed", err)
	}
	if havingResult.HasErrors() {
		return nil, Resolved{}, false, apperror.NewQuery(apperror.CodeFilterCompile,
			"having compilation failed", havingResult.Err()).
			WithDetail("errors", havingResult.ErrorMessages())
	}

	sortResult := o.sorts.Compile(o.spec.Sorts...)
	if sortResult.HasErrors() {
		return nil, Resolved{}, false, apperror.NewQuery(apperror.CodeSortCompile,
			"sort compilation failed", sortResult.Err()).
			WithDetail("errors", sortResult.ErrorMessages())
	}

	include, err := o.joins.Build()
	if err != nil {
		return nil, Resolved{}, false, apperror.NewQuery(apperror.CodeJoinBuild,
			"join tree build failed", err)
	}

	plan := &Plan{
		Entity:     o.entity,
		Predicate:  filterResult.Predicate,
		Order:      sortResult.Instructions,
		Include:    include,
		Attributes: o.spec.Attributes,
		GroupBy:    o.spec.GroupBy,
		Having:     havingResult.Predicate,
		Distinct:   o.spec.Distinct,
	}

	paginated := !o.spec.Pagination.IsZero()
	var resolved Resolved
	if paginated {
		resolved, err = o.pagination.Resolve(o.spec.Pagination)
		if err != nil {
			return nil, Resolved{}, false, err
		}
		offset := uint64(resolved.Offset)
		limit := uint64(resolved.Limit)
		plan.Offset = &offset
		plan.Limit = &limit
	}

	return plan, resolved, paginated, nil
}

// runFind fetches rows, counting separately when pagination was requested.
func (o *Orchestrator) runFind(ctx context.Context, handle string, plan *Plan, resolved Resolved, paginated bool) (*Result, error) {
	started := time.Now()
	rows, err := o.store.FindAll(ctx, plan)
	o.tracker.RecordExecution(handle, time.Since(started))
	if err != nil {
		return nil, apperror.NewQuery(apperror.CodeFindAll,
			fmt.Sprintf("find all failed for %s", o.entity), err)
	}

	if !paginated {
		return &Result{Data: rows}, nil
	}

	started = time.Now()
	total, err := o.store.Count(ctx, plan.CountPlan())
	o.tracker.RecordExecution(handle, time.Since(started))
	if err != nil {
		return nil, apperror.NewQuery(apperror.CodeCount,
			fmt.Sprintf("count failed for %s", o.entity), err)
	}

	return o.pagination.BuildResult(rows, total, resolved.Page, resolved.PageSize), nil
}

// runWithCount fetches rows and total in one store call.
func (o *Orchestrator) runWithCount(ctx context.Context, handle string, plan *Plan, resolved Resolved, paginated bool) (*Result, error) {
	started := time.Now()
	rows, total, err := o.store.FindAndCount(ctx, plan)
	o.tracker.RecordExecution(handle, time.Since(started))
	if err != nil {
		return nil, apperror.NewQuery(apperror.CodeFindAndCount,
			fmt.Sprintf("find and count failed for %s", o.entity), err)
	}

	if !paginated {
		return &Result{Data: rows, Count: &total}, nil
	}

	if o.opts.EnableValidation {
		if err := o.pagination.ValidateAgainstTotal(resolved, total); err != nil {
			return nil, err
		}
	}

	result := o.pagination.BuildResult(rows, total, resolved.Page, resolved.PageSize)
	result.Count = &total
	return result, nil
}

// cacheKey computes the fingerprint, or "" when caching does not apply.
func (o *Orchestrator) cacheKey(ctx context.Context, discriminator string) string {
	if !o.resultCache.Enabled() {
		return ""
	}
	key, err := Fingerprint(o.entity, &o.spec, discriminator)
	if err != nil {
		logger.Warn(ctx, "cache key generation failed, executing uncached",
			"entity", o.entity, "error", err)
		return ""
	}
	return key
}

func (o *Orchestrator) logPlan(ctx context.Context, method string, plan *Plan) {
	fields := []any{
		"entity", o.entity,
		"method", method,
		"joins", len(plan.Include),
		"sorts", len(plan.Order),
		"distinct", plan.Distinct,
	}
	if plan.Predicate != nil {
		if sql, args, err := plan.Predicate.ToSql(); err == nil {
			fields = append(fields, "predicate", sql, "args", args)
		}
	}
	if plan.Limit != nil {
		fields = append(fields, "limit", *plan.Limit)
	}
	if plan.Offset != nil {
		fields = append(fields, "offset", *plan.Offset)
	}
	logger.Debug(ctx, "executing query plan", fields...)
}

// --- write passthrough ---

// Create inserts a record, wrapping store failures.
func (o *Orchestrator) Create(ctx context.Context, values map[string]any) (Row, error) {
	if len(values) == 0 {
		return nil, apperror.NewValidation(apperror.CodeInvalidInput, "create requires values")
	}

	handle := o.tracker.Start("create", o.entity, appctx.RequestIDOrNew(ctx))
	defer o.tracker.End(handle)

	started := time.Now()
	row, err := o.store.Create(ctx, o.entity, values)
	o.tracker.RecordExecution(handle, time.Since(started))
	if err != nil {
		return nil, apperror.NewQuery(apperror.CodeCreate,
			fmt.Sprintf("create failed for %s", o.entity), err)
	}
	return row, nil
}

// Update modifies the record with the given primary key value and returns
// the number of affected rows.
func (o *Orchestrator) Update(ctx context.Context, id any, values map[string]any) (int64, error) {
	if len(values) == 0 {
		return 0, apperror.NewValidation(apperror.CodeInvalidInput, "update requires values")
	}

	handle := o.tracker.Start("update", o.entity, appctx.RequestIDOrNew(ctx))
	defer o.tracker.End(handle)

	started := time.Now()
	affected, err := o.store.Update(ctx, o.entity, o.primaryKey, id, values)
	o.tracker.RecordExecution(handle, time.Since(started))
	if err != nil {
		return 0, apperror.NewQuery(apperror.CodeUpdate,
			fmt.Sprintf("update failed for %s", o.entity), err)
	}
	return affected, nil
}

// Destroy removes the record with the given primary key value and returns
// the number of affected rows.
func (o *Orchestrator) Destroy(ctx context.Context, id any) (int64, error) {
	handle := o.tracker.Start("destroy", o.entity, appctx.RequestIDOrNew(ctx))
	defer o.tracker.End(handle)

	started := time.Now()
	affected, err := o.store.Destroy(ctx, o.entity, o.primaryKey, id)
	o.tracker.RecordExecution(handle, time.Since(started))
	if err != nil {
		return 0, apperror.NewQuery(apperror.CodeDestroy,
			fmt.Sprintf("destroy failed for %s", o.entity), err)
	}
	return affected, nil
}
