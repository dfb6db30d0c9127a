// cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/andresuchdata/conventicore/internal/api"
	"github.com/andresuchdata/conventicore/internal/cache"
	"github.com/andresuchdata/conventicore/internal/config"
	"github.com/andresuchdata/conventicore/internal/pipeline"
	"github.com/andresuchdata/conventicore/internal/repository/postgres"
	"github.com/andresuchdata/conventicore/internal/service"
	"github.com/andresuchdata/conventicore/internal/storage"
	"github.com/andresuchdata/conventicore/pkg/logger"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.Configure(cfg.App.LogLevel, cfg.App.LogFormat)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	deps := service.Deps{}

	// Initialize database
	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Database unavailable, runs will not be persisted")
	} else {
		defer db.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := db.Migrate(ctx); err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to migrate database")
		}
		cancel()
		deps.Runs = pipeline.NewRepository(db.DB.DB)
		deps.Snapshots = postgres.NewSnapshotRepository(db)
	}

	// Initialize cache
	planningCache, err := cache.NewPlanningCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Redis unavailable, falling back to in-memory results")
		planningCache = cache.NewNoopPlanningCache()
	}
	deps.Cache = planningCache

	// Initialize object storage
	if cfg.Storage.Endpoint != "" {
		client, err := storage.NewMinioClient(cfg.Storage)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to initialize object storage")
		}
		deps.Store = client
	} else {
		deps.Store = storage.NewLocalStorage(filepath.Join(cfg.App.DataDir, "published"))
	}

	// Initialize services
	pCfg := pipeline.DefaultPipelineConfig(cfg.App.DataDir)
	pCfg.Planning = cfg.Planning
	planningService := service.NewPlanningService(cfg.App.InputDir, filepath.Join(cfg.App.DataDir, "packs"), pCfg, deps)

	// Initialize HTTP server
	router := api.NewRouter(&api.Services{PlanningService: planningService}, cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
