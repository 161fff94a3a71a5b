package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"queryforge/internal/core/apperror"
	"queryforge/internal/metadata"
)

// MetadataHandler exposes the entity registry for API discovery.
type MetadataHandler struct {
	*BaseHandler
	registry *metadata.Registry
}

// NewMetadataHandler creates a metadata handler.
func NewMetadataHandler(registry *metadata.Registry) *MetadataHandler {
	return &MetadataHandler{
		BaseHandler: NewBaseHandler(),
		registry:    registry,
	}
}

// ListEntities returns all registered entity definitions.
// GET /api/v1/meta
func (h *MetadataHandler) ListEntities(c *gin.Context) {
	c.JSON(http.StatusOK, h.registry.List())
}

// GetEntity returns the full definition for one entity.
// GET /api/v1/meta/:name
func (h *MetadataHandler) GetEntity(c *gin.Context) {
	name := c.Param("name")
	def, ok := h.registry.Get(name)
	if !ok {
		h.Error(c, apperror.NewNotFound(name, nil))
		return
	}
	c.JSON(http.StatusOK, def)
}
