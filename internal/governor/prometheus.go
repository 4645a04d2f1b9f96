package governor

import (
	"context"
	"log/slog"

	"github.com/devpulse/devpulse/internal/metrics"
)

// PrometheusRecorder is a Recorder that publishes governance events to the
// process-wide Prometheus collectors and logs rate-limit pressure at a
// severity matching how close the platform is to its quota.
type PrometheusRecorder struct {
	thresholds StatusThresholds
}

func NewPrometheusRecorder(thresholds StatusThresholds) *PrometheusRecorder {
	return &PrometheusRecorder{thresholds: thresholds}
}

func (p *PrometheusRecorder) RecordUsage(platform string, usagePercent float64) {
	metrics.PlatformUsagePercent.WithLabelValues(platform).Set(usagePercent)

	logLevel := slog.LevelInfo
	event := "rate_limit.info"
	severity := "INFO"

	if usagePercent >= p.thresholds.Critical {
		logLevel = slog.LevelError
		event = "rate_limit.critical"
		severity = "CRITICAL"
	} else if usagePercent >= p.thresholds.Warning {
		logLevel = slog.LevelWarn
		event = "rate_limit.warning"
		severity = "WARN"
	}

	slog.Log(context.Background(), logLevel, "governor.rate_limit",
		"component", "governor",
		"event", event,
		"platform", platform,
		"usage_percent", usagePercent,
		"severity", severity,
	)
}

func (p *PrometheusRecorder) RecordCacheOp(op, result string) {
	metrics.CacheOperations.WithLabelValues(op, result).Inc()
}

func (p *PrometheusRecorder) RecordBreakerState(platform string, state BreakerState) {
	var value float64
	switch state {
	case BreakerHalfOpen:
		value = 1
	case BreakerOpen:
		value = 2
		metrics.BreakerTrips.WithLabelValues(platform).Inc()
		slog.Error("governor.breaker_open",
			"component", "governor",
			"event", "breaker.open",
			"platform", platform,
			"severity", "CRITICAL",
			"impact", "platform_polling_suspended",
		)
	}
	metrics.BreakerState.WithLabelValues(platform).Set(value)
}
