package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/devpulse_test")
	t.Setenv("GITHUB_TOKEN", "ghp_test")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "https://api.github.com", cfg.GitHub.BaseURL)
	assert.Equal(t, "https://gitlab.com/api/v4", cfg.GitLab.BaseURL)
	assert.Equal(t, 5*time.Minute, cfg.BasePollInterval)
	assert.Equal(t, 128, cfg.CacheSize)
	assert.Equal(t, "fifo", cfg.EvictionPolicy)
	assert.Equal(t, 70, cfg.WarningPercent)
	assert.Equal(t, 90, cfg.CriticalPercent)
	assert.Equal(t, 3, cfg.BreakerThreshold)
	assert.Equal(t, 60*time.Second, cfg.BreakerCooldown)
	assert.Equal(t, 24*time.Hour, cfg.SnapshotTTL)
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("BASE_POLL_INTERVAL", "1m")
	t.Setenv("STATUS_CACHE_SIZE", "16")
	t.Setenv("CACHE_EVICTION_POLICY", "LRU")
	t.Setenv("STATUS_WARNING_THRESHOLD", "60")
	t.Setenv("STATUS_CRITICAL_THRESHOLD", "85")
	t.Setenv("BREAKER_COOLDOWN", "90s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, time.Minute, cfg.BasePollInterval)
	assert.Equal(t, 16, cfg.CacheSize)
	assert.Equal(t, "lru", cfg.EvictionPolicy, "policy is case-insensitive")
	assert.Equal(t, 60, cfg.WarningPercent)
	assert.Equal(t, 85, cfg.CriticalPercent)
	assert.Equal(t, 90*time.Second, cfg.BreakerCooldown)
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("GITHUB_TOKEN", "ghp_test")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoadRequiresAtLeastOnePlatform(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/devpulse_test")
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("GITLAB_TOKEN", "")
	t.Setenv("JIRA_TOKEN", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "platform token")
}

func TestLoadRejectsBadEvictionPolicy(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CACHE_EVICTION_POLICY", "random")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CACHE_EVICTION_POLICY")
}

func TestLoadRejectsInvertedThresholds(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STATUS_WARNING_THRESHOLD", "95")
	t.Setenv("STATUS_CRITICAL_THRESHOLD", "90")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STATUS_WARNING_THRESHOLD")
}

func TestLoadJiraNeedsURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/devpulse_test")
	t.Setenv("JIRA_TOKEN", "jira-token")
	t.Setenv("JIRA_API_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JIRA_API_URL")

	t.Setenv("JIRA_API_URL", "https://jira.example.com")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://jira.example.com", cfg.Jira.BaseURL)
}

func TestInvalidNumericFallsBackToDefault(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "not-a-number")
	t.Setenv("BASE_POLL_INTERVAL", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 5*time.Minute, cfg.BasePollInterval)
}
