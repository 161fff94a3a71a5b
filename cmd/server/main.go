// Package main is the entry point for the queryforge API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"queryforge/internal/config"
	"queryforge/internal/core/security"
	"queryforge/internal/infrastructure/cache"
	v1 "queryforge/internal/infrastructure/http/v1"
	"queryforge/internal/infrastructure/storage/postgres"
	"queryforge/internal/metadata"
	"queryforge/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	log.Info("starting queryforge server")

	// --- Database connection ---
	poolCfg := postgres.DefaultPoolConfig(cfg.Database.DSN())
	if cfg.Database.PoolSize > 0 {
		poolCfg.MaxConns = cfg.Database.PoolSize
	}
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	// --- Entity registry ---
	registry := metadata.NewRegistry()
	for _, def := range cfg.Entities {
		if err := registry.Register(def); err != nil {
			log.Fatalw("invalid entity definition", "entity", def.Name, "error", err)
		}
	}
	log.Infow("entity registry initialized", "entities", len(cfg.Entities))

	// --- Record store ---
	store := postgres.NewStore(pool, registry)

	// --- Result cache ---
	var resultCache *cache.Cache
	if cfg.Cache.Enabled {
		provider, err := newCacheProvider(log, cfg.Cache)
		if err != nil {
			log.Fatalw("failed to initialize cache provider", "error", err)
		}

		resultCache = cache.New(provider, cache.Config{
			Enabled:    true,
			Prefix:     cfg.Cache.Prefix,
			DefaultTTL: cfg.Cache.DefaultTTL,
		})

		if cfg.Cache.SweepInterval > 0 {
			go sweepLoop(ctx, log, resultCache, cfg.Cache.SweepInterval)
		}
		log.Infow("result cache initialized",
			"provider", cfg.Cache.Provider,
			"prefix", cfg.Cache.Prefix,
			"default_ttl", cfg.Cache.DefaultTTL,
			"sweep_interval", cfg.Cache.SweepInterval,
		)
	}

	// --- Token service ---
	if cfg.Auth.Enabled && cfg.Auth.JWTSecret == "" {
		log.Fatalw("auth is enabled but no jwt secret is configured")
	}
	tokenService := security.NewTokenService(security.DefaultTokenConfig(cfg.Auth.JWTSecret))

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Pool:           pool,
		Logger:         log,
		Registry:       registry,
		Store:          store,
		Cache:          resultCache,
		Options:        cfg.Engine.Options(),
		TokenValidator: tokenService,
		AuthEnabled:    cfg.Auth.Enabled,
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Infow("server starting", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

// newCacheProvider builds the configured cache backend. An unknown name
// degrades to the in-memory provider instead of failing startup.
func newCacheProvider(log *logger.Logger, cfg config.CacheConfig) (cache.Provider, error) {
	switch cfg.Provider {
	case "", "memory":
	default:
		log.Warnw("unknown cache provider, using memory", "provider", cfg.Provider)
	}

	provider, err := cache.NewMemoryProvider()
	if err != nil {
		return nil, err
	}
	provider.WithCompressThreshold(cfg.CompressThreshold)
	return provider, nil
}

// sweepLoop evicts expired cache entries on a fixed interval until the
// context is cancelled.
func sweepLoop(ctx context.Context, log *logger.Logger, c *cache.Cache, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := c.Sweep(ctx); removed > 0 {
				log.Debugw("cache sweep removed expired entries", "removed", removed)
			}
		}
	}
}
