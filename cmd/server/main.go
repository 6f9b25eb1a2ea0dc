// Package main is the entry point for the Tally ledger service. It
// initializes all dependencies, sets up the HTTP server and starts the
// application.
package main

import (
	"context"
	"log"
	"time"

	"tally/internal/config"
	"tally/internal/metrics"
	"tally/internal/repositories"
	"tally/internal/routes"
	"tally/internal/services/idempotency"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	// Load environment variables
	config.LoadEnv()
	cfg := config.Load()

	zapLogger, err := newLogger()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	// Initialize databases (PostgreSQL + Redis)
	if err := repositories.InitDB(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	sqlDB, err := repositories.DB.DB()
	if err != nil {
		log.Fatalf("Failed to get database instance: %v", err)
	}
	if err := sqlDB.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("✅ Successfully connected to database with connection pooling")

	defer func() {
		if err := sqlDB.Close(); err != nil {
			zapLogger.Warn("failed to close database connection", zap.Error(err))
		}
		if repositories.CacheService != nil {
			if err := repositories.CacheService.Close(); err != nil {
				zapLogger.Warn("failed to close redis connection", zap.Error(err))
			}
		}
	}()

	// Periodic check of connection pool stats
	go func() {
		ticker := time.NewTicker(1 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			stats := sqlDB.Stats()
			zapLogger.Info("db pool stats",
				zap.Int("open", stats.OpenConnections),
				zap.Int("idle", stats.Idle),
				zap.Int("in_use", stats.InUse),
				zap.Int64("wait_count", stats.WaitCount),
				zap.Duration("wait_duration", stats.WaitDuration),
			)
		}
	}()

	// Periodic cleanup of expired idempotency keys
	idempotencyService := idempotency.NewService(
		repositories.NewIdempotencyRepository(repositories.DB),
		cfg.Idempotency.TTL,
		zapLogger,
	)
	go func() {
		ticker := time.NewTicker(cfg.Idempotency.CleanupInterval)
		defer ticker.Stop()
		for range ticker.C {
			if _, err := idempotencyService.CleanupExpired(context.Background()); err != nil {
				zapLogger.Warn("idempotency cleanup failed", zap.Error(err))
			}
		}
	}()

	// Metrics registry and collector, owned here and injected downstream
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry, cfg.Metrics.MaxRecords)

	// Create Fiber app
	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins: config.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173"),
		AllowHeaders: "Origin, Content-Type, Accept, Idempotency-Key",
		AllowMethods: "GET,POST,HEAD",
	}))

	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	routes.SetupRoutes(app, routes.Dependencies{
		DB:        repositories.DB,
		Config:    cfg,
		Logger:    zapLogger,
		Registry:  registry,
		Collector: collector,
	})

	log.Fatal(app.Listen(":" + config.GetEnv("PORT", "3000")))
}

func newLogger() (*zap.Logger, error) {
	if config.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
