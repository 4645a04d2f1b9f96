package governor

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock drives cache and breaker time in tests.
type fakeClock struct {
	current time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{current: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.current
}

func (c *fakeClock) Advance(d time.Duration) {
	c.current = c.current.Add(d)
}

func newTestCache(t *testing.T, maxSize int, policy EvictionPolicy) (*TTLCache[string], *fakeClock) {
	t.Helper()
	cache, err := NewTTLCache[string](maxSize, policy)
	require.NoError(t, err)
	clock := newFakeClock()
	cache.now = clock.Now
	return cache, clock
}

func TestNewTTLCacheRejectsBadConfig(t *testing.T) {
	_, err := NewTTLCache[string](0, EvictFIFO)
	var cfgErr *ErrCacheConfig
	require.ErrorAs(t, err, &cfgErr)

	_, err = NewTTLCache[string](-5, EvictFIFO)
	require.ErrorAs(t, err, &cfgErr)

	_, err = NewTTLCache[string](10, EvictionPolicy("random"))
	require.ErrorAs(t, err, &cfgErr)
}

func TestSetAndGet(t *testing.T) {
	cache, _ := newTestCache(t, 10, EvictFIFO)

	cache.Set("a", "alpha", time.Minute)
	got, ok := cache.Get("a")
	require.True(t, ok)
	assert.Equal(t, "alpha", got)
}

func TestNonPositiveTTLStoresNothing(t *testing.T) {
	cache, _ := newTestCache(t, 10, EvictFIFO)

	cache.Set("a", "alpha", 0)
	cache.Set("b", "beta", -time.Second)

	_, ok := cache.Get("a")
	assert.False(t, ok)
	_, ok = cache.Get("b")
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Stats().Size)
}

func TestExpiryCountsAsMiss(t *testing.T) {
	cache, clock := newTestCache(t, 10, EvictFIFO)

	cache.Set("a", "alpha", time.Minute)
	clock.Advance(time.Minute) // expiry boundary is exclusive of the deadline

	_, ok := cache.Get("a")
	assert.False(t, ok)

	stats := cache.Stats()
	assert.Equal(t, int64(1), stats.Expiries)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(0), stats.Hits)
	assert.Equal(t, 0, stats.Size)
}

func TestGetJustBeforeExpiry(t *testing.T) {
	cache, clock := newTestCache(t, 10, EvictFIFO)

	cache.Set("a", "alpha", time.Minute)
	clock.Advance(time.Minute - time.Nanosecond)

	_, ok := cache.Get("a")
	assert.True(t, ok)
}

func TestFIFOEviction(t *testing.T) {
	cache, _ := newTestCache(t, 3, EvictFIFO)

	cache.Set("a", "1", time.Hour)
	cache.Set("b", "2", time.Hour)
	cache.Set("c", "3", time.Hour)

	// Reading "a" must not protect it under FIFO.
	_, ok := cache.Get("a")
	require.True(t, ok)

	cache.Set("d", "4", time.Hour)

	_, ok = cache.Get("a")
	assert.False(t, ok, "oldest insert should be evicted")
	for _, key := range []string{"b", "c", "d"} {
		_, ok := cache.Get(key)
		assert.True(t, ok, "key %s should survive", key)
	}
	assert.Equal(t, int64(1), cache.Stats().Evictions)
}

func TestLRUEviction(t *testing.T) {
	cache, clock := newTestCache(t, 3, EvictLRU)

	cache.Set("a", "1", time.Hour)
	clock.Advance(time.Second)
	cache.Set("b", "2", time.Hour)
	clock.Advance(time.Second)
	cache.Set("c", "3", time.Hour)
	clock.Advance(time.Second)

	// Touch "a" so "b" becomes least recently used.
	_, ok := cache.Get("a")
	require.True(t, ok)
	clock.Advance(time.Second)

	cache.Set("d", "4", time.Hour)

	_, ok = cache.Get("b")
	assert.False(t, ok, "least recently used key should be evicted")
	for _, key := range []string{"a", "c", "d"} {
		_, ok := cache.Get(key)
		assert.True(t, ok, "key %s should survive", key)
	}
}

func TestOverwriteDoesNotEvict(t *testing.T) {
	cache, _ := newTestCache(t, 2, EvictFIFO)

	cache.Set("a", "1", time.Hour)
	cache.Set("b", "2", time.Hour)
	cache.Set("a", "1-again", time.Hour)

	got, ok := cache.Get("a")
	require.True(t, ok)
	assert.Equal(t, "1-again", got)
	_, ok = cache.Get("b")
	assert.True(t, ok)
	assert.Equal(t, int64(0), cache.Stats().Evictions)
}

func TestHighOccupancySweepPrefersExpiredOverEviction(t *testing.T) {
	cache, clock := newTestCache(t, 10, EvictFIFO)

	// Fill to capacity with entries that will be expired by insert time.
	for i := 0; i < 10; i++ {
		cache.Set(fmt.Sprintf("old-%d", i), "x", time.Minute)
	}
	clock.Advance(2 * time.Minute)

	cache.Set("new", "y", time.Hour)

	stats := cache.Stats()
	assert.Equal(t, int64(0), stats.Evictions, "expired entries should be swept, not evicted")
	assert.Equal(t, int64(10), stats.Expiries)
	assert.Equal(t, 1, stats.Size)
}

func TestDeleteCountsAsEviction(t *testing.T) {
	cache, _ := newTestCache(t, 10, EvictFIFO)

	cache.Set("a", "alpha", time.Hour)
	cache.Delete("a")
	cache.Delete("missing")

	stats := cache.Stats()
	assert.Equal(t, int64(1), stats.Evictions)
	assert.Equal(t, 0, stats.Size)
}

func TestCleanupExpired(t *testing.T) {
	cache, clock := newTestCache(t, 10, EvictFIFO)

	cache.Set("short", "1", time.Minute)
	cache.Set("long", "2", time.Hour)
	clock.Advance(5 * time.Minute)

	removed := cache.CleanupExpired()
	assert.Equal(t, 1, removed)

	_, ok := cache.Get("long")
	assert.True(t, ok)
	assert.Equal(t, int64(1), cache.Stats().Expiries)
}

func TestClearKeepsHitAndMissCounters(t *testing.T) {
	cache, _ := newTestCache(t, 10, EvictFIFO)

	cache.Set("a", "alpha", time.Hour)
	cache.Get("a")       // hit
	cache.Get("missing") // miss
	cache.Delete("a")    // eviction

	cache.Clear()

	stats := cache.Stats()
	assert.Equal(t, 0, stats.Size)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(0), stats.Expiries)
	assert.Equal(t, int64(0), stats.Evictions)

	_, ok := cache.Get("a")
	assert.False(t, ok)
}

func TestHasDoesNotDistinguishExpiredFromAbsent(t *testing.T) {
	cache, clock := newTestCache(t, 10, EvictFIFO)

	cache.Set("a", "alpha", time.Minute)
	assert.True(t, cache.Has("a"))

	clock.Advance(2 * time.Minute)
	assert.False(t, cache.Has("a"))
	assert.False(t, cache.Has("never-set"))
}

func TestEvictionAfterSweepStillBoundsSize(t *testing.T) {
	cache, _ := newTestCache(t, 3, EvictFIFO)

	// All live, nothing to sweep: inserting a fourth key must evict.
	cache.Set("a", "1", time.Hour)
	cache.Set("b", "2", time.Hour)
	cache.Set("c", "3", time.Hour)
	cache.Set("d", "4", time.Hour)

	assert.Equal(t, 3, cache.Stats().Size)
}
