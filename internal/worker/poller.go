// Package worker runs the background polling loop. One goroutine per
// platform probes on the governor's adaptive schedule, feeds observations
// back in, and persists the outcome so the API survives restarts and
// upstream outages.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/devpulse/devpulse/internal/governor"
	"github.com/devpulse/devpulse/internal/metrics"
	"github.com/devpulse/devpulse/internal/store"
	"github.com/devpulse/devpulse/internal/upstream"
)

// PollerConfig holds configuration for the poller
type PollerConfig struct {
	// SnapshotTTL is how long a published Redis snapshot stays servable.
	SnapshotTTL time.Duration

	// HistoryRetention is how far back poll samples are kept.
	HistoryRetention time.Duration

	// PruneInterval is how often old samples are deleted.
	PruneInterval time.Duration
}

// DefaultPollerConfig returns the standard poller settings.
func DefaultPollerConfig() PollerConfig {
	return PollerConfig{
		SnapshotTTL:      24 * time.Hour,
		HistoryRetention: 7 * 24 * time.Hour,
		PruneInterval:    time.Hour,
	}
}

// Poller drives the adaptive polling loop. Each platform gets its own
// goroutine because their schedules diverge: a platform near its quota polls
// slower than an idle one.
type Poller struct {
	config   PollerConfig
	governor *governor.Governor
	probers  []upstream.Prober
	history  *store.HistoryStore
	redis    *store.RedisClient
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
	mu       sync.Mutex
}

// NewPoller creates a poller. The history store and Redis client may be nil
// in tests; persistence is then skipped.
func NewPoller(config PollerConfig, gov *governor.Governor, probers []upstream.Prober, history *store.HistoryStore, redis *store.RedisClient) *Poller {
	return &Poller{
		config:   config,
		governor: gov,
		probers:  probers,
		history:  history,
		redis:    redis,
		stopChan: make(chan struct{}),
	}
}

// Start launches one polling goroutine per platform plus the history pruner.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}

	p.running = true
	p.stopChan = make(chan struct{})

	for _, prober := range p.probers {
		p.wg.Add(1)
		go p.platformLoop(ctx, prober)
	}

	if p.history != nil {
		p.wg.Add(1)
		go p.pruneLoop(ctx)
	}

	slog.Info("worker.poller.started",
		"component", "worker.poller",
		"event", "poller.started",
		"platform_count", len(p.probers),
	)
}

// Stop gracefully stops the poller, waiting for in-flight polls to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	slog.Info("worker.poller.stopping",
		"component", "worker.poller",
		"event", "poller.stopping",
	)

	close(p.stopChan)
	p.running = false

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("worker.poller.stopped",
			"component", "worker.poller",
			"event", "poller.stopped",
		)
	case <-time.After(30 * time.Second):
		slog.Warn("worker.poller.stop_timeout",
			"component", "worker.poller",
			"event", "poller.stop_timeout",
		)
	}
}

// platformLoop polls one platform on its adaptive schedule. The delay is
// recomputed after every poll, so rising usage pressure slows the loop down
// within one cycle.
func (p *Poller) platformLoop(ctx context.Context, prober upstream.Prober) {
	defer p.wg.Done()

	platform := prober.Platform()
	logger := slog.With(
		"component", "worker.poller",
		"platform", platform,
	)

	logger.Info("worker.poller.platform_started",
		"event", "platform.started",
	)

	// Poll immediately on startup, then follow the schedule.
	p.pollOnce(ctx, prober, logger)

	timer := time.NewTimer(p.governor.NextPollInterval(platform))
	defer timer.Stop()

	for {
		select {
		case <-p.stopChan:
			logger.Info("worker.poller.platform_stopped",
				"event", "platform.stopped",
			)
			return

		case <-ctx.Done():
			logger.Info("worker.poller.platform_cancelled",
				"event", "platform.cancelled",
			)
			return

		case <-timer.C:
			p.pollOnce(ctx, prober, logger)
			timer.Reset(p.governor.NextPollInterval(platform))
		}
	}
}

// pollOnce performs one probe cycle: breaker check, probe, observe, persist.
func (p *Poller) pollOnce(ctx context.Context, prober upstream.Prober, logger *slog.Logger) {
	platform := prober.Platform()

	if !p.governor.CanPoll(platform) {
		metrics.ProbesTotal.WithLabelValues(platform, "skipped").Inc()
		logger.Warn("worker.poller.breaker_open",
			"event", "poll.skipped",
			"breaker_state", string(p.governor.BreakerState(platform)),
		)
		return
	}

	pollCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	start := time.Now()
	payload, err := prober.Probe(pollCtx)
	latency := time.Since(start)

	if err != nil {
		p.governor.RecordPollFailure(platform)
		metrics.ProbesTotal.WithLabelValues(platform, "error").Inc()
		logger.Error("worker.poller.probe_failed",
			"event", "poll.probe_error",
			"error", err,
			"breaker_state", string(p.governor.BreakerState(platform)),
		)
		p.recordSample(&store.PollSample{
			Platform:     platform,
			PolledAt:     start,
			Success:      false,
			BreakerState: string(p.governor.BreakerState(platform)),
			LatencyMS:    latency.Milliseconds(),
		}, logger)
		return
	}

	status, err := p.governor.Observe(platform, payload)
	if err != nil {
		// The platform answered but the payload was unusable. That is an
		// upstream fault as far as the breaker is concerned.
		p.governor.RecordPollFailure(platform)
		metrics.ProbesTotal.WithLabelValues(platform, "error").Inc()
		logger.Error("worker.poller.observe_failed",
			"event", "poll.transform_error",
			"error", err,
		)
		p.recordSample(&store.PollSample{
			Platform:     platform,
			PolledAt:     start,
			Success:      false,
			BreakerState: string(p.governor.BreakerState(platform)),
			LatencyMS:    latency.Milliseconds(),
		}, logger)
		return
	}

	p.governor.RecordPollSuccess(platform)
	metrics.ProbesTotal.WithLabelValues(platform, "ok").Inc()
	p.publishSnapshot(ctx, status, logger)
	p.recordSample(&store.PollSample{
		Platform:        platform,
		PolledAt:        start,
		Success:         true,
		Status:          string(status.Status),
		MaxUsagePercent: governor.MaxUsageForPlatform(status),
		BreakerState:    string(p.governor.BreakerState(platform)),
		LatencyMS:       latency.Milliseconds(),
	}, logger)

	logger.Debug("worker.poller.poll_complete",
		"event", "poll.complete",
		"status", string(status.Status),
		"latency_ms", latency.Milliseconds(),
	)
}

// publishSnapshot writes the freshly observed status to Redis. Failures are
// logged and swallowed: losing a snapshot only costs a stale fallback.
func (p *Poller) publishSnapshot(ctx context.Context, status *governor.RateLimitStatus, logger *slog.Logger) {
	if p.redis == nil {
		return
	}
	if err := p.redis.SaveSnapshot(ctx, status, p.config.SnapshotTTL); err != nil {
		logger.Error("worker.poller.snapshot_failed",
			"event", "poll.snapshot_error",
			"error", err,
		)
	}
}

// recordSample persists one poll outcome. Failures are logged and swallowed.
func (p *Poller) recordSample(sample *store.PollSample, logger *slog.Logger) {
	if p.history == nil {
		return
	}
	if err := p.history.RecordSample(sample); err != nil {
		logger.Error("worker.poller.sample_failed",
			"event", "poll.sample_error",
			"error", err,
		)
	}
}

// pruneLoop periodically deletes poll samples past the retention window.
func (p *Poller) pruneLoop(ctx context.Context) {
	defer p.wg.Done()

	logger := slog.With("component", "worker.poller")

	ticker := time.NewTicker(p.config.PruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-p.config.HistoryRetention)
			removed, err := p.history.PruneBefore(cutoff)
			if err != nil {
				logger.Error("worker.poller.prune_failed",
					"event", "prune.error",
					"error", err,
				)
				continue
			}
			if removed > 0 {
				logger.Info("worker.poller.pruned",
					"event", "prune.complete",
					"samples_removed", removed,
				)
			}
		}
	}
}
