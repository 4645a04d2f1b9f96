package upstream

import (
	"strconv"
	"time"

	"github.com/devpulse/devpulse/internal/metrics"
)

// PrometheusLatencyRecorder publishes probe latency to the process-wide
// Prometheus collectors. A zero status code means the request never got a
// response and is labeled "error".
type PrometheusLatencyRecorder struct{}

func NewPrometheusLatencyRecorder() *PrometheusLatencyRecorder {
	return &PrometheusLatencyRecorder{}
}

func (p *PrometheusLatencyRecorder) RecordProbeLatency(platform string, statusCode int, latency time.Duration) {
	status := "error"
	if statusCode > 0 {
		status = strconv.Itoa(statusCode)
	}
	metrics.ProbeLatency.WithLabelValues(platform, status).Observe(latency.Seconds())
}
