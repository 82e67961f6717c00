package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/otcheredev/patient-queue-service/internal/cache"
	"github.com/otcheredev/patient-queue-service/internal/config"
	"github.com/otcheredev/patient-queue-service/internal/database"
	"github.com/otcheredev/patient-queue-service/internal/handlers"
	"github.com/otcheredev/patient-queue-service/internal/metrics"
	"github.com/otcheredev/patient-queue-service/internal/middleware"
	"github.com/otcheredev/patient-queue-service/internal/repository"
	"github.com/otcheredev/patient-queue-service/internal/services"
	"github.com/otcheredev/patient-queue-service/pkg/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Initialize logger
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	log.Info().Msg("Starting Patient Queue Service")

	// Connect to database
	dbConfig := database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
		LogLevel: cfg.Database.LogLevel,
	}

	if err := database.Connect(dbConfig); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()

	// Initialize stats cache
	var cacheImpl cache.Cache
	if cfg.Cache.Enabled && cfg.Cache.Type == "redis" {
		addr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
		cacheImpl, err = cache.NewRedisCache(addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		log.Info().Msg("Redis cache initialized")
	} else {
		cacheImpl = cache.NewMemoryCache()
		log.Info().Msg("Memory cache initialized")
	}
	defer cacheImpl.Close()

	// Initialize repositories
	queueRepo := repository.NewQueueRepository()
	deptRepo := repository.NewDepartmentRepository()
	auditRepo := repository.NewAuditRepository()

	// Initialize services
	queueService := services.NewQueueService(queueRepo, deptRepo, auditRepo, cacheImpl, cfg.Cache.TTL, services.SystemClock())
	deptService := services.NewDepartmentService(deptRepo, auditRepo)
	auditService := services.NewAuditService(auditRepo)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	queueHandler := handlers.NewQueueHandler(queueService)
	deptHandler := handlers.NewDepartmentHandler(deptService)
	auditHandler := handlers.NewAuditHandler(auditService)

	// Setup router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(metrics.Middleware)
	r.Use(chimiddleware.Compress(5))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		ExposedHeaders:   []string{"Content-Length", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health endpoints (no tenant scoping required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	if cfg.Metrics.Enabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	// Queue API (requires tenant ID)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Tenant)

		r.Post("/queue", queueHandler.CheckIn)
		r.Get("/queue", queueHandler.ListEntries)
		r.Post("/queue/call-next", queueHandler.CallNext)
		r.Get("/queue/stats", queueHandler.GetStats)
		r.Get("/queue/{id}", queueHandler.GetEntry)
		r.Patch("/queue/{id}/status", queueHandler.UpdateStatus)

		r.Get("/departments", deptHandler.List)
		r.Post("/departments/seed", deptHandler.Seed)

		r.Get("/audit", auditHandler.List)
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
