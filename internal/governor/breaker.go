package governor

import (
	"sync"
	"time"
)

// BreakerState is the lifecycle state of one platform's circuit breaker.
type BreakerState string

const (
	// BreakerClosed allows requests; the platform is healthy.
	BreakerClosed BreakerState = "closed"
	// BreakerOpen blocks requests until the cooldown elapses.
	BreakerOpen BreakerState = "open"
	// BreakerHalfOpen allows a probe request after the cooldown; one
	// success closes the breaker, one failure re-opens it.
	BreakerHalfOpen BreakerState = "half-open"
)

const (
	// DefaultBreakerThreshold is the consecutive-failure count that opens
	// the breaker.
	DefaultBreakerThreshold = 3
	// DefaultBreakerCooldown is how long an open breaker blocks before
	// permitting a half-open probe.
	DefaultBreakerCooldown = 60 * time.Second
)

type breakerEntry struct {
	failures    int
	lastFailure time.Time
	state       BreakerState
}

// Breaker gates upstream request admission per platform key. It is advisory:
// callers consult CanExecute before probing and report the outcome back via
// RecordSuccess or RecordFailure. State lives only in memory; a restart
// starts every platform closed, which is accepted behavior.
type Breaker struct {
	mu        sync.Mutex
	entries   map[string]*breakerEntry
	threshold int
	cooldown  time.Duration
	now       func() time.Time
}

// NewBreaker creates a breaker that opens after threshold consecutive
// failures and admits a probe after cooldown. Non-positive arguments fall
// back to the defaults.
func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = DefaultBreakerThreshold
	}
	if cooldown <= 0 {
		cooldown = DefaultBreakerCooldown
	}
	return &Breaker{
		entries:   make(map[string]*breakerEntry),
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// RecordFailure counts one failed request against key. Reaching the
// threshold opens the breaker, from closed or from a failed half-open probe.
func (b *Breaker) RecordFailure(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.entries[key]
	if !ok {
		entry = &breakerEntry{state: BreakerClosed}
		b.entries[key] = entry
	}
	entry.failures++
	entry.lastFailure = b.now()
	if entry.failures >= b.threshold {
		entry.state = BreakerOpen
	}
}

// RecordSuccess clears the breaker for key entirely. Recovery is a full
// reset, not a decrement.
func (b *Breaker) RecordSuccess(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.entries, key)
}

// CanExecute reports whether a request to key may be attempted. An open
// breaker whose cooldown has elapsed transitions to half-open as a side
// effect of the check, resetting the failure count so the probe gets the
// full threshold before re-opening.
func (b *Breaker) CanExecute(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.entries[key]
	if !ok {
		return true
	}
	if entry.state == BreakerOpen {
		if b.now().Sub(entry.lastFailure) > b.cooldown {
			entry.state = BreakerHalfOpen
			entry.failures = 0
			return true
		}
		return false
	}
	return true
}

// State returns the current state for key. Keys with no recorded failures
// are closed.
func (b *Breaker) State(key string) BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if entry, ok := b.entries[key]; ok {
		return entry.state
	}
	return BreakerClosed
}

// Failures returns the consecutive-failure count for key.
func (b *Breaker) Failures(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if entry, ok := b.entries[key]; ok {
		return entry.failures
	}
	return 0
}
