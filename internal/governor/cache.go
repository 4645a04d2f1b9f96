// Package governor implements the adaptive rate-limit governance core:
// a TTL cache over normalized rate-limit status, pure interval arithmetic
// for the polling scheduler, a per-platform circuit breaker, and the
// transforms that normalize heterogeneous platform payloads into one
// comparable shape. The package performs no I/O of its own; callers feed
// it observations from upstream probes and ask it when to poll next.
package governor

import (
	"fmt"
	"sync"
	"time"
)

// sweepOccupancy is the fill fraction above which Set runs a full expired
// sweep before inserting, so that eviction only fires when live entries
// genuinely exceed capacity.
const sweepOccupancy = 0.9

// ErrCacheConfig indicates an invalid cache configuration at construction.
type ErrCacheConfig struct {
	Reason string
}

func (e *ErrCacheConfig) Error() string {
	return fmt.Sprintf("invalid cache configuration: %s", e.Reason)
}

// CacheStats is a point-in-time snapshot of cache counters. Hits and
// misses survive Clear so the long-run hit ratio stays observable.
type CacheStats struct {
	Size      int   `json:"size"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Expiries  int64 `json:"expiries"`
	Evictions int64 `json:"evictions"`
}

type cacheEntry[V any] struct {
	data       V
	expiresAt  time.Time
	accessTime time.Time
}

// TTLCache is a bounded in-memory key/value store with per-entry expiry.
// A zero or negative TTL on Set stores nothing; that is how callers express
// "do not cache this response". All methods are safe for concurrent use.
type TTLCache[V any] struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry[V]
	tracker evictionTracker
	maxSize int
	now     func() time.Time

	hits      int64
	misses    int64
	expiries  int64
	evictions int64
}

// NewTTLCache creates a cache holding at most maxSize entries, evicting per
// the given policy when full. A non-positive maxSize is a configuration
// error and fails fast rather than degrading silently.
func NewTTLCache[V any](maxSize int, policy EvictionPolicy) (*TTLCache[V], error) {
	if maxSize <= 0 {
		return nil, &ErrCacheConfig{Reason: fmt.Sprintf("maxSize must be positive, got %d", maxSize)}
	}
	switch policy {
	case EvictFIFO, EvictLRU:
	default:
		return nil, &ErrCacheConfig{Reason: fmt.Sprintf("unknown eviction policy %q", policy)}
	}
	return &TTLCache[V]{
		entries: make(map[string]*cacheEntry[V]),
		tracker: newEvictionTracker(policy),
		maxSize: maxSize,
		now:     time.Now,
	}, nil
}

// Set stores data under key until now+ttl. A ttl <= 0 is a no-op.
func (c *TTLCache[V]) Set(key string, data V, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	// Reclaim expired entries cheaply before considering eviction.
	if _, exists := c.entries[key]; !exists && len(c.entries) >= int(float64(c.maxSize)*sweepOccupancy) {
		c.sweepLocked(now)
	}

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		if victim, ok := c.tracker.victim(); ok {
			delete(c.entries, victim)
			c.evictions++
		}
	}

	c.entries[key] = &cacheEntry[V]{
		data:       data,
		expiresAt:  now.Add(ttl),
		accessTime: now,
	}
	c.tracker.onSet(key)
}

// Get returns the cached value for key if present and unexpired. An entry
// found expired is removed and counted as an expiry; either way the lookup
// counts as a miss.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		return zero, false
	}

	now := c.now()
	if !now.Before(entry.expiresAt) {
		delete(c.entries, key)
		c.tracker.remove(key)
		c.expiries++
		c.misses++
		return zero, false
	}

	entry.accessTime = now
	c.tracker.onGet(key)
	c.hits++
	return entry.data, true
}

// Has reports whether Get would return a value for key.
func (c *TTLCache[V]) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Delete removes key if present. Explicit removal is accounted as an
// eviction so that operators can see manual invalidation in the stats.
func (c *TTLCache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		delete(c.entries, key)
		c.tracker.remove(key)
		c.evictions++
	}
}

// CleanupExpired removes every expired entry and returns how many were
// removed. Called proactively by the owner and internally on high occupancy.
func (c *TTLCache[V]) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweepLocked(c.now())
}

func (c *TTLCache[V]) sweepLocked(now time.Time) int {
	removed := 0
	for key, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, key)
			c.tracker.remove(key)
			c.expiries++
			removed++
		}
	}
	return removed
}

// Clear empties the cache. Hit and miss counters are deliberately kept so
// the lifetime hit ratio is not lost; size, expiry and eviction counters
// reset with the contents.
func (c *TTLCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.entries {
		c.tracker.remove(key)
	}
	c.entries = make(map[string]*cacheEntry[V])
	c.expiries = 0
	c.evictions = 0
}

// Stats returns a snapshot of the cache counters.
func (c *TTLCache[V]) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return CacheStats{
		Size:      len(c.entries),
		Hits:      c.hits,
		Misses:    c.misses,
		Expiries:  c.expiries,
		Evictions: c.evictions,
	}
}
