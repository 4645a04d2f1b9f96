package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/devpulse/devpulse/internal/config"
	"github.com/devpulse/devpulse/internal/governor"
	"github.com/devpulse/devpulse/internal/handlers"
	"github.com/devpulse/devpulse/internal/logging"
	_ "github.com/devpulse/devpulse/internal/metrics" // Initialize metrics
	"github.com/devpulse/devpulse/internal/server"
	"github.com/devpulse/devpulse/internal/store"
	"github.com/devpulse/devpulse/internal/upstream"
	"github.com/devpulse/devpulse/internal/worker"
)

func main() {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Initialize structured logging
	logging.Init(cfg.LogLevel, cfg.LogFormat)
	slog.Info("starting DevPulse rate-limit governor")

	// Initialize database connection (migrations run automatically)
	dbConn, err := store.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	slog.Info("database connection established")

	// Initialize Redis snapshot store
	redisClient, err := store.NewRedisClient(cfg.RedisURL, cfg.RedisKeyPrefix)
	if err != nil {
		slog.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	slog.Info("redis connection established", "key_prefix", cfg.RedisKeyPrefix)

	conns := store.NewConnections(dbConn, redisClient)
	defer conns.Close()

	// Build the governor with Prometheus-backed observability
	thresholds := governor.StatusThresholds{
		Warning:  float64(cfg.WarningPercent),
		Critical: float64(cfg.CriticalPercent),
	}
	gov, err := governor.New(governor.Options{
		CacheSize:        cfg.CacheSize,
		Eviction:         governor.EvictionPolicy(cfg.EvictionPolicy),
		Thresholds:       thresholds,
		BaseInterval:     cfg.BasePollInterval,
		BreakerThreshold: cfg.BreakerThreshold,
		BreakerCooldown:  cfg.BreakerCooldown,
		Recorder:         governor.NewPrometheusRecorder(thresholds),
	})
	if err != nil {
		slog.Error("failed to build governor", "error", err)
		os.Exit(1)
	}

	// One prober per configured platform
	latency := upstream.NewPrometheusLatencyRecorder()
	var probers []upstream.Prober
	if cfg.GitHub.Token != "" {
		probers = append(probers, upstream.NewGitHubProber(cfg.GitHub.BaseURL, cfg.GitHub.Token, latency))
	}
	if cfg.GitLab.Token != "" {
		probers = append(probers, upstream.NewGitLabProber(cfg.GitLab.BaseURL, cfg.GitLab.Token, latency))
	}
	if cfg.Jira.Token != "" {
		probers = append(probers, upstream.NewJiraProber(cfg.Jira.BaseURL, cfg.Jira.Token, latency))
	}

	platforms := make([]string, 0, len(probers))
	for _, p := range probers {
		platforms = append(platforms, p.Platform())
	}
	slog.Info("platforms configured", "platforms", platforms)

	history := store.NewHistoryStore(dbConn)

	// Start the background poller
	pollerCfg := worker.DefaultPollerConfig()
	pollerCfg.SnapshotTTL = cfg.SnapshotTTL
	poller := worker.NewPoller(pollerCfg, gov, probers, history, redisClient)

	ctx, stopPolling := context.WithCancel(context.Background())
	poller.Start(ctx)

	// Create handler dependencies
	deps := &handlers.Dependencies{
		Config:    cfg,
		Conns:     conns,
		Governor:  gov,
		History:   history,
		Platforms: platforms,
	}

	// Create and configure HTTP server
	srv := server.NewServer(cfg, deps)

	// Create and configure metrics/health server (internal only)
	metricsSrv := server.NewMetricsServer(deps)

	// Start metrics server in a goroutine
	go func() {
		addr := ":9090"
		slog.Info("metrics server listening", "address", addr, "port", 9090)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server error", "error", err)
			os.Exit(1)
		}
	}()

	// Start main server in a goroutine
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		slog.Info("server listening", "address", addr, "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("received shutdown signal, shutting down gracefully")

	// Stop polling before the servers so no new samples land mid-shutdown
	stopPolling()
	poller.Stop()

	// Graceful shutdown with 30 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown both servers concurrently
	errChan := make(chan error, 2)
	go func() {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errChan <- fmt.Errorf("main server shutdown error: %w", err)
		} else {
			errChan <- nil
		}
	}()
	go func() {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			errChan <- fmt.Errorf("metrics server shutdown error: %w", err)
		} else {
			errChan <- nil
		}
	}()

	// Wait for both shutdowns to complete
	for i := 0; i < 2; i++ {
		if err := <-errChan; err != nil {
			slog.Error("server forced to shutdown", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("servers exited successfully")
}
