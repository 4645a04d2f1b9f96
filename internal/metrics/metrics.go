package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for monitoring the DevPulse rate-limit governor

var (
	// Rate limit pressure per platform, normalized 0-100
	PlatformUsagePercent = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "devpulse_platform_usage_percent",
		Help: "Max rate-limit usage percent observed per platform",
	}, []string{"platform"})

	// Circuit breaker metrics
	BreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "devpulse_breaker_state",
		Help: "Circuit breaker state per platform (0=closed, 1=half-open, 2=open)",
	}, []string{"platform"})

	BreakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "devpulse_breaker_trips_total",
		Help: "Total number of breaker open transitions per platform",
	}, []string{"platform"})

	// Cache metrics
	CacheOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "devpulse_cache_operations_total",
		Help: "Status cache operations by operation type and result",
	}, []string{"operation", "result"}) // operation: get|set, result: hit|miss|stored

	// Upstream probe metrics
	ProbeLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "devpulse_probe_duration_seconds",
		Help:    "Upstream rate-limit probe latency",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"platform", "status_code"})

	ProbesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "devpulse_probes_total",
		Help: "Upstream rate-limit probes by platform and outcome",
	}, []string{"platform", "outcome"}) // outcome: ok|error|skipped

	// HTTP metrics
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by method, path, and status",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests by method, path, and status",
	}, []string{"method", "path", "status"})
)
