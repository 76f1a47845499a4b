package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	// Embed tzdata so America/Sao_Paulo loads on scratch containers.
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/rafaelmendoncavaz/duofisio-sub000/internal/api/router"
	"github.com/rafaelmendoncavaz/duofisio-sub000/internal/backend"
	"github.com/rafaelmendoncavaz/duofisio-sub000/internal/cache"
	"github.com/rafaelmendoncavaz/duofisio-sub000/internal/cep"
	appconfig "github.com/rafaelmendoncavaz/duofisio-sub000/internal/config"
	"github.com/rafaelmendoncavaz/duofisio-sub000/internal/dashboard"
	"github.com/rafaelmendoncavaz/duofisio-sub000/internal/observability/metrics"
	"github.com/rafaelmendoncavaz/duofisio-sub000/internal/patients"
	"github.com/rafaelmendoncavaz/duofisio-sub000/internal/state"
	"github.com/rafaelmendoncavaz/duofisio-sub000/pkg/logging"
)

func main() {
	// No .env file is fine; the environment wins anyway.
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting duofisio dashboard server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	// Backend clinic API client
	backendClient, err := backend.NewClient(cfg.BackendBaseURL, logger, time.Now)
	if err != nil {
		logger.Error("failed to build backend client", "error", err)
		os.Exit(1)
	}
	backendClient.SetCredentials(cfg.BackendToken, cfg.BackendCSRFToken)

	// Snapshot cache (optional; the dashboard works without it)
	var snapshotCache dashboard.SnapshotCache
	if cs := newSnapshotCache(cfg, logger); cs != nil {
		snapshotCache = cs
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	dashMetrics := metrics.NewDashboardMetrics(registry)

	// Session state and handlers
	store := state.NewStore(time.Now)
	dashboardHandler := dashboard.NewHandler(store, backendClient, snapshotCache, cfg.DashboardSessionID, dashMetrics, logger, time.Now)
	dashboardHandler.WarmStart(context.Background())

	patientsHandler := patients.NewHandler(backendClient, logger)
	cepHandler := cep.NewHandler(cep.NewClient(cfg.ViaCEPBaseURL), logger)

	// Setup router
	r := router.New(&router.Config{
		Logger:             logger,
		Dashboard:          dashboardHandler,
		Stats:              dashboard.NewStatsHandler(registry),
		Patients:           patientsHandler,
		CEP:                cepHandler,
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// newSnapshotCache connects to redis, or returns nil when it is not
// reachable so the dashboard falls back to in-memory state only.
func newSnapshotCache(cfg *appconfig.Config, logger *logging.Logger) *cache.Store {
	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available, snapshot cache disabled", "error", err)
		return nil
	}
	return cache.NewStore(client, cfg.SnapshotTTL)
}
