package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/housing/internal/cache"
	"github.com/stwalsh4118/housing/internal/config"
	"github.com/stwalsh4118/housing/internal/dataset"
	"github.com/stwalsh4118/housing/internal/handlers"
	"github.com/stwalsh4118/housing/internal/logger"
	"github.com/stwalsh4118/housing/internal/metrics"
	"github.com/stwalsh4118/housing/internal/middleware"
	"github.com/stwalsh4118/housing/internal/services"
)

const (
	shutdownTimeout = 30 * time.Second
	loadTimeout     = 5 * time.Minute
)

func main() {
	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	log := logger.New(cfg.Server.Env)
	log.Info("Starting housing API", map[string]interface{}{
		"version":     handlers.APIVersion,
		"environment": cfg.Server.Env,
		"port":        cfg.Server.Port,
		"source":      cfg.Data.Source,
	})

	ctx := context.Background()
	backends := map[string]handlers.Pinger{}

	loader, db, err := dataset.NewLoader(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize data source", err, map[string]interface{}{
			"source": cfg.Data.Source,
		})
	}
	if db != nil {
		defer db.Close()
		backends["database"] = db
		log.Info("Database connection established", map[string]interface{}{
			"host":     cfg.Database.Host,
			"port":     cfg.Database.Port,
			"database": cfg.Database.Name,
			"pool_max": cfg.Database.PoolMax,
		})
	}

	m := metrics.New()
	if db != nil {
		m.ObservePool(db)
	}
	holder := dataset.NewHolder(loader, log)
	holder.OnLoad(m.ObserveDataset)

	loadCtx, cancelLoad := context.WithTimeout(ctx, loadTimeout)
	_, err = holder.Load(loadCtx)
	cancelLoad()
	if err != nil {
		log.Fatal("Data unavailable", err, map[string]interface{}{
			"source": loader.Source(),
		})
	}

	// Optional result cache
	var resultCache cache.Cache = cache.Noop{}
	if cfg.Cache.Enabled() {
		rc, err := cache.NewRedisCache(ctx, cfg.Cache)
		if err != nil {
			log.Warn("Redis unavailable, serving without result cache", map[string]interface{}{
				"addr":  cfg.Cache.Addr,
				"error": err.Error(),
			})
		} else {
			defer rc.Close()
			backends["redis"] = rc
			resultCache = cache.WithObserver(rc, m.ObserveCache)
			log.Info("Result cache enabled", map[string]interface{}{
				"addr": cfg.Cache.Addr,
				"ttl":  cfg.Cache.TTL.String(),
			})
		}
	}

	// Setup Gin router
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware in order: RequestID -> Logger -> Recovery -> Metrics -> CORS
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(m.Middleware())
	router.Use(middleware.CORS(cfg.CORS.Origins))

	// Register health check and metrics routes
	healthHandler := handlers.NewHealthHandler(holder, backends, cfg.Server.Env)
	router.GET("/health", healthHandler.Health)
	router.GET("/health/ready", healthHandler.Ready)
	router.GET("/api/v1/info", healthHandler.Info)
	router.GET("/metrics", gin.WrapH(m.Handler()))

	// Initialize service layer and handlers
	analysisService := services.NewAnalysisService(holder, resultCache, log)
	analysisHandler := handlers.NewAnalysisHandler(analysisService)

	// Register API v1 routes
	analysisHandler.RegisterRoutes(router.Group("/api/v1"))

	// Create HTTP server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server listening", map[string]interface{}{
			"port": cfg.Server.Port,
			"addr": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", err, nil)
		}
	}()

	// SIGHUP reloads the dataset; SIGINT and SIGTERM shut down.
	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	for running := true; running; {
		select {
		case <-reload:
			log.Info("Reloading dataset", nil)
			reloadCtx, cancel := context.WithTimeout(ctx, loadTimeout)
			_ = holder.Reload(reloadCtx)
			cancel()
		case <-quit:
			running = false
		}
	}

	// Graceful shutdown
	log.Info("Shutting down server...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", err, map[string]interface{}{
			"timeout": shutdownTimeout.String(),
		})
	}

	log.Info("Server exited", nil)
}
