package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/lifemetrics/internal/api"
	"github.com/irfndi/lifemetrics/internal/cache"
	"github.com/irfndi/lifemetrics/internal/config"
	"github.com/irfndi/lifemetrics/internal/database"
	"github.com/irfndi/lifemetrics/internal/logging"
	"github.com/irfndi/lifemetrics/internal/services"
	"github.com/irfndi/lifemetrics/internal/telemetry"
)

const serviceName = "lifemetrics"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "lifemetrics: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel, cfg.Environment)
	log := logging.WithService(logger, serviceName)

	ctx := context.Background()

	provider, err := telemetry.Init(ctx, cfg.Telemetry, cfg.Environment, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("Telemetry shutdown failed")
		}
	}()

	// Initialize database
	db, err := database.NewPostgresConnection(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := database.EnsureSchema(ctx, db.Pool); err != nil {
		return fmt.Errorf("failed to prepare schema: %w", err)
	}

	// Initialize Redis
	redis, err := database.NewRedisConnection(cfg.Redis, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	defer redis.Close()

	traced := database.NewTracedDB(db.Pool, logger)
	observations := database.NewObservationRepository(traced, logger)
	insightCache := cache.NewRedisInsightCache(
		redis.Client,
		database.NewInsightRepository(traced),
		cfg.Analytics.CacheTTLDuration(),
		logger,
	)
	broadcaster := services.NewRedisInsightBroadcaster(redis.Client, cfg.Analytics.ChannelPrefix, logger)

	timeouts := services.NewTimeoutManager(newTimeoutConfig(cfg.Analytics), logger)
	insights := services.NewInsightService(
		observations,
		timeouts,
		logger,
		services.InsightServiceConfig{
			DefaultRangeDays: cfg.Analytics.DefaultRangeDays,
			ForecastDays:     cfg.Analytics.ForecastDays,
		},
		services.WithPersister(insightCache),
		services.WithInsightReader(insightCache),
		services.WithBroadcaster(broadcaster),
		services.WithCircuitBreakers(services.DefaultCircuitBreakerConfig()),
	)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	api.SetupRoutes(router, api.Dependencies{
		ServiceName: cfg.Telemetry.ServiceName,
		Insights:    insights,
		Database:    db,
		Redis:       redis,
		Logger:      logger,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logging.LogStartup(logger, serviceName, api.Version, cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	reason := "signal"
	select {
	case sig := <-quit:
		reason = sig.String()
	case err, ok := <-serverErr:
		if ok {
			log.WithError(err).Error("Server failed")
			reason = "server error"
		}
	}
	logging.LogShutdown(logger, serviceName, reason)

	// Give outstanding requests a deadline for completion
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}

	// Let in-flight persistence and broadcast calls finish before the
	// connections close.
	insights.Wait()
	timeouts.Shutdown()
	insightCache.LogStats()
	for operation, stats := range insights.BreakerStats() {
		log.WithFields(logrus.Fields{
			"operation": operation,
			"failed":    stats.FailedRequests,
			"rejected":  stats.RejectedRequests,
		}).Info("Dispatch circuit breaker stats")
	}

	log.WithFields(logrus.Fields{"reason": reason}).Info("Server exited")
	return nil
}

func newTimeoutConfig(cfg config.AnalyticsConfig) *services.TimeoutConfig {
	insight, load, persist, broadcast := cfg.Durations()
	return &services.TimeoutConfig{
		InsightGeneration: insight,
		ObservationLoad:   load,
		Persistence:       persist,
		Broadcast:         broadcast,
	}
}
