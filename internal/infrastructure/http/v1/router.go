// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"queryforge/internal/core/security"
	"queryforge/internal/engine"
	"queryforge/internal/infrastructure/cache"
	"queryforge/internal/infrastructure/http/v1/handlers"
	"queryforge/internal/infrastructure/http/v1/middleware"
	"queryforge/internal/infrastructure/storage/postgres"
	"queryforge/internal/metadata"
	"queryforge/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Pool is the database connection pool (for health checks)
	Pool *postgres.Pool

	// Logger for request logging
	Logger *logger.Logger

	// Registry stores entity definitions
	Registry *metadata.Registry

	// Store executes compiled query plans
	Store engine.RecordStore

	// Cache holds query result envelopes. Nil disables result caching.
	Cache *cache.Cache

	// Options configure per-request orchestrators
	Options engine.Options

	// TokenValidator for bearer token validation
	TokenValidator middleware.TokenValidator

	// AuthEnabled guards /api/v1 with the Auth middleware
	AuthEnabled bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	queryHandler := handlers.NewQueryHandler(cfg.Registry, cfg.Store, cfg.Cache, cfg.Options)
	metaHandler := handlers.NewMetadataHandler(cfg.Registry)

	// API v1
	v1 := router.Group("/api/v1")
	if cfg.AuthEnabled {
		v1.Use(middleware.Auth(cfg.TokenValidator))
	}
	{
		query := v1.Group("/query")
		if cfg.AuthEnabled {
			query.Use(middleware.RequireScope(security.ScopeQuery))
		}
		{
			query.POST("/:entity", queryHandler.Query)
			query.POST("/:entity/count", queryHandler.Count)
			query.POST("/:entity/find-and-count", queryHandler.QueryWithCount)
		}

		entities := v1.Group("/entities")
		if cfg.AuthEnabled {
			entities.Use(middleware.RequireScope(security.ScopeWrite))
		}
		{
			entities.POST("/:entity", queryHandler.Create)
			entities.PATCH("/:entity/:id", queryHandler.Update)
			entities.DELETE("/:entity/:id", queryHandler.Destroy)
		}

		meta := v1.Group("/meta")
		if cfg.AuthEnabled {
			meta.Use(middleware.RequireScope(security.ScopeMeta))
		}
		{
			meta.GET("", metaHandler.ListEntities)
			meta.GET("/:name", metaHandler.GetEntity)
		}
	}

	return router
}
