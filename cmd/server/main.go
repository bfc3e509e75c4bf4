package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/stockintel/internal/api"
	"github.com/andresuchdata/stockintel/internal/cache"
	"github.com/andresuchdata/stockintel/internal/config"
	"github.com/andresuchdata/stockintel/internal/repository/postgres"
	"github.com/andresuchdata/stockintel/internal/service"
	"github.com/andresuchdata/stockintel/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.SetLevel(cfg.Server.Mode)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database
	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.EnsureSchema(context.Background()); err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to prepare database schema")
	}

	// Result cache falls back to no-op when Redis is unreachable
	resultCache, err := cache.NewResultCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Result cache disabled")
		resultCache = cache.NewNoopResultCache()
	}

	// Initialize services
	svc, err := service.NewIntelligenceService(service.Dependencies{
		Products: postgres.NewProductRepository(db),
		Demand:   postgres.NewDemandRepository(db),
		Grades:   postgres.NewGradeHistoryRepository(db),
		Cache:    resultCache,
	}, service.OptionsFromConfig(cfg))
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize intelligence service")
	}

	// Initialize HTTP server
	router := api.NewRouter(&api.Services{Intelligence: svc}, cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	// Portfolio evaluations can run long; give them time to finish
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
