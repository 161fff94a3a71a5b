package handlers

import (
	"errors"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"queryforge/internal/core/apperror"
	"queryforge/internal/domain/query"
	"queryforge/internal/engine"
	"queryforge/internal/infrastructure/cache"
	"queryforge/internal/infrastructure/http/v1/dto"
	"queryforge/internal/metadata"
)

// QueryHandler serves the declarative query and write endpoints. An
// orchestrator is built per request from the entity definition, so
// concurrent requests never share specification state.
type QueryHandler struct {
	*BaseHandler
	registry *metadata.Registry
	store    engine.RecordStore
	cache    *cache.Cache
	opts     engine.Options
}

// NewQueryHandler creates a query handler over the given registry and store.
func NewQueryHandler(registry *metadata.Registry, store engine.RecordStore, resultCache *cache.Cache, opts engine.Options) *QueryHandler {
	return &QueryHandler{
		BaseHandler: NewBaseHandler(),
		registry:    registry,
		store:       store,
		cache:       resultCache,
		opts:        opts,
	}
}

// Query handles POST /query/:entity.
func (h *QueryHandler) Query(c *gin.Context) {
	orch, ok := h.prepare(c)
	if !ok {
		return
	}

	result, err := orch.Execute(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// QueryWithCount handles POST /query/:entity/find-and-count.
func (h *QueryHandler) QueryWithCount(c *gin.Context) {
	orch, ok := h.prepare(c)
	if !ok {
		return
	}

	result, err := orch.ExecuteWithCount(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// Count handles POST /query/:entity/count.
func (h *QueryHandler) Count(c *gin.Context) {
	orch, ok := h.prepare(c)
	if !ok {
		return
	}

	total, err := orch.Count(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.CountResponse{Count: total})
}

// Create handles POST /entities/:entity.
func (h *QueryHandler) Create(c *gin.Context) {
	orch, ok := h.orchestrator(c)
	if !ok {
		return
	}

	var values map[string]any
	if !h.BindJSON(c, &values) {
		return
	}

	row, err := orch.Create(c.Request.Context(), values)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, row)
}

// Update handles PATCH /entities/:entity/:id.
func (h *QueryHandler) Update(c *gin.Context) {
	orch, ok := h.orchestrator(c)
	if !ok {
		return
	}

	var values map[string]any
	if !h.BindJSON(c, &values) {
		return
	}

	affected, err := orch.Update(c.Request.Context(), parseID(c.Param("id")), values)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.AffectedResponse{Affected: affected})
}

// Destroy handles DELETE /entities/:entity/:id.
func (h *QueryHandler) Destroy(c *gin.Context) {
	orch, ok := h.orchestrator(c)
	if !ok {
		return
	}

	affected, err := orch.Destroy(c.Request.Context(), parseID(c.Param("id")))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.AffectedResponse{Affected: affected})
}

// orchestrator builds a fresh orchestrator for the path entity.
func (h *QueryHandler) orchestrator(c *gin.Context) (*engine.Orchestrator, bool) {
	name := c.Param("entity")
	def, ok := h.registry.Get(name)
	if !ok {
		h.Error(c, apperror.NewNotFound(name, nil))
		return nil, false
	}

	orch, err := engine.NewOrchestrator(engine.OrchestratorConfig{
		Entity:     def.Name,
		PrimaryKey: def.PrimaryKey,
		Store:      h.store,
		Schema:     def.Schema(),
		Cache:      h.cache,
		Options:    h.opts,
	})
	if err != nil {
		h.Error(c, err)
		return nil, false
	}
	return orch, true
}

// prepare resolves the entity, binds the query body and loads it into a
// fresh orchestrator. An empty body is a valid query for everything.
func (h *QueryHandler) prepare(c *gin.Context) (*engine.Orchestrator, bool) {
	orch, ok := h.orchestrator(c)
	if !ok {
		return nil, false
	}

	var req dto.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.Error(c, apperror.NewValidation(apperror.CodeInvalidInput, "invalid request body").
			WithDetail("error", err.Error()))
		return nil, false
	}

	if err := h.apply(orch, &req); err != nil {
		h.Error(c, err)
		return nil, false
	}
	return orch, true
}

// apply loads the wire request into the orchestrator builder methods.
func (h *QueryHandler) apply(orch *engine.Orchestrator, req *dto.QueryRequest) error {
	if len(req.Filters) > 0 {
		nodes, err := dto.ToNodes(req.Filters)
		if err != nil {
			return err
		}
		if err := orch.WithFilters(nodes...); err != nil {
			return err
		}
	}

	if len(req.Sorts) > 0 {
		conds := make([]query.SortCondition, 0, len(req.Sorts))
		for _, s := range req.Sorts {
			conds = append(conds, s.ToCondition())
		}
		if err := orch.WithSorting(conds...); err != nil {
			return err
		}
	}

	if len(req.Joins) > 0 {
		specs := make([]query.JoinSpec, 0, len(req.Joins))
		for _, j := range req.Joins {
			spec, err := j.ToSpec()
			if err != nil {
				return err
			}
			specs = append(specs, spec)
		}
		if err := orch.WithJoins(specs...); err != nil {
			return err
		}
	}

	if req.Pagination != nil {
		if err := orch.WithPagination(req.Pagination.ToSpec()); err != nil {
			return err
		}
	}

	if len(req.Attributes) > 0 {
		if err := orch.WithAttributes(req.Attributes...); err != nil {
			return err
		}
	}

	if len(req.GroupBy) > 0 {
		if err := orch.WithGroupBy(req.GroupBy...); err != nil {
			return err
		}
	}

	if len(req.Having) > 0 {
		nodes, err := dto.ToNodes(req.Having)
		if err != nil {
			return err
		}
		if err := orch.WithHaving(nodes...); err != nil {
			return err
		}
	}

	if req.Distinct {
		orch.WithDistinct()
	}

	return nil
}

// parseID coerces a path identifier into the narrowest matching type so
// uuid and integer keys bind with their column types.
func parseID(raw string) any {
	if id, err := uuid.Parse(raw); err == nil {
		return id
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	return raw
}
