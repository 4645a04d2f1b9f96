package governor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "github:rate-limit", CacheKey("github", "rate-limit", nil))
	assert.Equal(t, "github:repos:page=2", CacheKey("github", "repos", "page=2"))
	assert.Equal(t, "jira:search", CacheKey("jira", "search", ""))
}

func TestCacheKeyMapOrderIndependent(t *testing.T) {
	a := CacheKey("github", "repos", map[string]string{"page": "2", "per_page": "50"})
	b := CacheKey("github", "repos", map[string]string{"per_page": "50", "page": "2"})
	assert.Equal(t, a, b)
	assert.Equal(t, "github:repos:page=2&per_page=50", a)
}

func TestCacheKeyEmptyMapsOmitSegment(t *testing.T) {
	assert.Equal(t, "github:repos", CacheKey("github", "repos", map[string]string{}))
	assert.Equal(t, "github:repos", CacheKey("github", "repos", map[string]any{}))
}

func TestCacheKeyAnyMap(t *testing.T) {
	a := CacheKey("gitlab", "pipelines", map[string]any{"page": 2, "active": true})
	b := CacheKey("gitlab", "pipelines", map[string]any{"active": true, "page": 2})
	assert.Equal(t, a, b)
	assert.Equal(t, "gitlab:pipelines:active=true&page=2", a)
}

func TestCacheKeyFallbackFormatting(t *testing.T) {
	assert.Equal(t, "github:repos:42", CacheKey("github", "repos", 42))
}
