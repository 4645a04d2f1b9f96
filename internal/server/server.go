package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/devpulse/devpulse/internal/config"
	"github.com/devpulse/devpulse/internal/handlers"
	"github.com/devpulse/devpulse/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewServer(cfg *config.Config, deps *handlers.Dependencies) *http.Server {
	mux := http.NewServeMux()

	// Rate-limit governance API
	mux.HandleFunc("/api/v1/rate-limit", handlers.GetAllRateLimitsHandler(deps))
	mux.HandleFunc("/api/v1/rate-limit/", handlers.GetRateLimitHandler(deps))
	mux.HandleFunc("/api/v1/poll-interval", handlers.GetPollIntervalHandler(deps))
	mux.HandleFunc("/api/v1/history/", handlers.GetHistoryHandler(deps))

	handler := loggingMiddleware(mux)

	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// NewMetricsServer creates a new HTTP server for internal metrics and health checks
// This server should not be exposed to the public internet
func NewMetricsServer(deps *handlers.Dependencies) *http.Server {
	mux := http.NewServeMux()

	// Health check endpoints
	mux.HandleFunc("/health", handlers.HealthHandler)
	mux.HandleFunc("/ready", handlers.ReadyHandler(deps))

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	return &http.Server{
		Addr:    ":9090",
		Handler: mux,
	}
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap ResponseWriter to capture status code
		sw := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(sw, r)

		duration := time.Since(start)

		metrics.HTTPRequestDuration.WithLabelValues(
			r.Method,
			r.URL.Path,
			strconv.Itoa(sw.statusCode),
		).Observe(duration.Seconds())

		metrics.HTTPRequestsTotal.WithLabelValues(
			r.Method,
			r.URL.Path,
			strconv.Itoa(sw.statusCode),
		).Inc()

		slog.Info("http.request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"remote_addr", r.RemoteAddr,
			"user_agent", r.UserAgent(),
		)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code
type statusWriter struct {
	http.ResponseWriter
	statusCode int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.statusCode = code
	sw.ResponseWriter.WriteHeader(code)
}
