package governor

import (
	"fmt"
	"time"
)

// Recorder receives governance events for observability. The governor calls
// it synchronously; implementations must be cheap and must not fail. A
// Prometheus-backed implementation lives alongside; tests use the no-op
// default.
type Recorder interface {
	// RecordUsage reports the max usage percent observed for a platform.
	RecordUsage(platform string, usagePercent float64)
	// RecordCacheOp reports a cache operation and its result
	// (get/hit, get/miss, set/stored).
	RecordCacheOp(op, result string)
	// RecordBreakerState reports a platform's breaker state after a
	// recorded success or failure.
	RecordBreakerState(platform string, state BreakerState)
}

type nopRecorder struct{}

func (nopRecorder) RecordUsage(string, float64)             {}
func (nopRecorder) RecordCacheOp(string, string)            {}
func (nopRecorder) RecordBreakerState(string, BreakerState) {}

// Options configures a Governor. Zero values select the documented
// defaults; only CacheSize has a hard validity requirement, enforced by the
// cache itself.
type Options struct {
	// CacheSize bounds the status cache. Default 128.
	CacheSize int
	// Eviction selects the cache eviction policy. Default FIFO.
	Eviction EvictionPolicy
	// Thresholds are the warning/critical cut points for overall status.
	Thresholds StatusThresholds
	// BaseInterval is the unscaled poll interval. Default 5 minutes.
	BaseInterval time.Duration
	// BreakerThreshold and BreakerCooldown configure the circuit breaker.
	BreakerThreshold int
	BreakerCooldown  time.Duration
	// ToolPlatforms maps tool name to platform identity. Default the
	// built-in github/gitlab/jira table.
	ToolPlatforms map[string]string
	// Transforms is the platform transform registry. Default the built-in
	// registry.
	Transforms *TransformRegistry
	// Recorder receives governance events. Default no-op.
	Recorder Recorder
}

// Governor is the adaptive rate-limit governance core. It owns its status
// cache, circuit breaker, transform registry and tool table as injected
// instances, so concurrent tests and multiple deployments never share
// state through package globals. All state is in-memory and process-local;
// a restart re-learns rate pressure from the next few polls.
type Governor struct {
	cache         *TTLCache[*RateLimitStatus]
	breaker       *Breaker
	transforms    *TransformRegistry
	thresholds    StatusThresholds
	toolPlatforms map[string]string
	baseInterval  time.Duration
	recorder      Recorder
	now           func() time.Time
}

// New creates a Governor from options.
func New(opts Options) (*Governor, error) {
	if opts.CacheSize == 0 {
		opts.CacheSize = 128
	}
	if opts.Eviction == "" {
		opts.Eviction = EvictFIFO
	}
	if opts.Thresholds == (StatusThresholds{}) {
		opts.Thresholds = DefaultStatusThresholds()
	}
	if opts.BaseInterval <= 0 {
		opts.BaseInterval = 5 * time.Minute
	}
	if opts.ToolPlatforms == nil {
		opts.ToolPlatforms = DefaultToolPlatforms()
	}
	if opts.Transforms == nil {
		opts.Transforms = NewTransformRegistry()
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}

	cache, err := NewTTLCache[*RateLimitStatus](opts.CacheSize, opts.Eviction)
	if err != nil {
		return nil, err
	}

	return &Governor{
		cache:         cache,
		breaker:       NewBreaker(opts.BreakerThreshold, opts.BreakerCooldown),
		transforms:    opts.Transforms,
		thresholds:    opts.Thresholds,
		toolPlatforms: opts.ToolPlatforms,
		baseInterval:  opts.BaseInterval,
		recorder:      opts.Recorder,
		now:           time.Now,
	}, nil
}

func (g *Governor) statusKey(platform string) string {
	return CacheKey(platform, "rate-limit", nil)
}

// Observe normalizes a freshly polled payload into a RateLimitStatus,
// caches it for the length of the next polling window and returns it. The
// returned status is immutable by convention: it is replaced wholesale on
// the next poll, never written in place.
func (g *Governor) Observe(platform string, p Payload) (*RateLimitStatus, error) {
	transform, ok := g.transforms.Lookup(platform)
	if !ok {
		return nil, &TransformError{Platform: platform, Err: fmt.Errorf("no transform registered")}
	}

	endpoints, err := transform(p)
	if err != nil {
		return nil, err
	}

	now := g.now()
	limits := PlatformRateLimits{platform: endpoints}
	status := &RateLimitStatus{
		Platform:          platform,
		LastUpdated:       now,
		DataFresh:         true,
		Status:            OverallStatus(limits, g.thresholds),
		Limits:            limits,
		Message:           p.Message,
		RetryAfterSeconds: p.RetryAfterSeconds,
	}

	usage := MaxUsageForPlatform(status)
	g.recorder.RecordUsage(platform, usage)

	// Cache for one polling window so request handlers hitting the same
	// platform inside the window never trigger a redundant upstream call.
	ttl := DynamicInterval(usage, g.baseInterval, DetectBusinessHours(now))
	g.cache.Set(g.statusKey(platform), status, ttl)
	g.recorder.RecordCacheOp("set", "stored")

	return status, nil
}

// Status returns the cached status for a platform, if one is present and
// unexpired.
func (g *Governor) Status(platform string) (*RateLimitStatus, bool) {
	status, ok := g.cache.Get(g.statusKey(platform))
	if ok {
		g.recorder.RecordCacheOp("get", "hit")
		return status, true
	}
	g.recorder.RecordCacheOp("get", "miss")
	return nil, false
}

// Invalidate drops the cached status for a platform.
func (g *Governor) Invalidate(platform string) {
	g.cache.Delete(g.statusKey(platform))
}

// MarkStale returns a copy of status flagged as not fresh. The original is
// left untouched; stale flagging must never mutate a record concurrent
// readers may hold.
func MarkStale(status *RateLimitStatus) *RateLimitStatus {
	if status == nil {
		return nil
	}
	stale := *status
	stale.DataFresh = false
	return &stale
}

// NextPollInterval computes the clamped delay before a platform should be
// polled again, from its cached usage pressure and the time of day. With no
// cached status the base interval applies unscaled; a cold start polls
// eagerly and backs off as pressure becomes known.
func (g *Governor) NextPollInterval(platform string) time.Duration {
	usage := 0.0
	if status, ok := g.Status(platform); ok {
		usage = MaxUsageForPlatform(status)
	}
	return DynamicInterval(usage, g.baseInterval, DetectBusinessHours(g.now()))
}

// CanPoll reports whether the platform's circuit breaker admits a request.
func (g *Governor) CanPoll(platform string) bool {
	return g.breaker.CanExecute(platform)
}

// RecordPollSuccess clears the platform's breaker after a successful poll.
func (g *Governor) RecordPollSuccess(platform string) {
	g.breaker.RecordSuccess(platform)
	g.recorder.RecordBreakerState(platform, g.breaker.State(platform))
}

// RecordPollFailure counts a failed poll against the platform's breaker.
func (g *Governor) RecordPollFailure(platform string) {
	g.breaker.RecordFailure(platform)
	g.recorder.RecordBreakerState(platform, g.breaker.State(platform))
}

// BreakerState exposes the platform's breaker state for observability.
func (g *Governor) BreakerState(platform string) BreakerState {
	return g.breaker.State(platform)
}

// ActivePlatforms resolves the governed platforms for a tool list using the
// governor's injected tool table.
func (g *Governor) ActivePlatforms(tools []Tool) []string {
	return ActivePlatforms(g.toolPlatforms, tools)
}

// Thresholds returns the configured status thresholds.
func (g *Governor) Thresholds() StatusThresholds {
	return g.thresholds
}

// CacheStats returns a snapshot of the status cache counters.
func (g *Governor) CacheStats() CacheStats {
	return g.cache.Stats()
}

// CleanupExpired proactively sweeps expired status entries, returning the
// number removed.
func (g *Governor) CleanupExpired() int {
	return g.cache.CleanupExpired()
}
