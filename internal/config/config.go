package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// PlatformConfig holds the probe settings for one upstream platform.
type PlatformConfig struct {
	BaseURL string // API base, e.g. https://api.github.com
	Token   string // bearer token; empty disables the platform
}

type Config struct {
	// Server configuration
	Port int
	Host string

	// Logging
	LogLevel  string
	LogFormat string

	// Upstream platforms. A platform with no token is not polled.
	GitHub PlatformConfig
	GitLab PlatformConfig
	Jira   PlatformConfig

	// Database (poll history)
	DatabaseURL string

	// Redis (status snapshots for stale fallback)
	RedisURL       string
	RedisKeyPrefix string

	// Governor tuning
	BasePollInterval time.Duration // unscaled poll interval
	CacheSize        int           // max cached statuses
	EvictionPolicy   string        // "fifo" or "lru"
	WarningPercent   int           // usage percent for warning status
	CriticalPercent  int           // usage percent for critical status
	BreakerThreshold int           // consecutive failures before open
	BreakerCooldown  time.Duration // open -> half-open delay

	// Snapshot staleness window: how long a Redis snapshot may be served
	// as a stale fallback after upstream failures.
	SnapshotTTL time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:      getEnvAsInt("PORT", 8080),
		Host:      getEnv("HOST", "0.0.0.0"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		GitHub: PlatformConfig{
			BaseURL: getEnv("GITHUB_API_URL", "https://api.github.com"),
			Token:   getEnv("GITHUB_TOKEN", ""),
		},
		GitLab: PlatformConfig{
			BaseURL: getEnv("GITLAB_API_URL", "https://gitlab.com/api/v4"),
			Token:   getEnv("GITLAB_TOKEN", ""),
		},
		Jira: PlatformConfig{
			BaseURL: getEnv("JIRA_API_URL", ""),
			Token:   getEnv("JIRA_TOKEN", ""),
		},

		DatabaseURL:    getEnv("DATABASE_URL", ""),
		RedisURL:       getEnv("REDIS_URL", "redis://localhost:6379"),
		RedisKeyPrefix: getEnv("REDIS_KEY_PREFIX", ""),

		BasePollInterval: getEnvAsDuration("BASE_POLL_INTERVAL", 5*time.Minute),
		CacheSize:        getEnvAsInt("STATUS_CACHE_SIZE", 128),
		EvictionPolicy:   strings.ToLower(getEnv("CACHE_EVICTION_POLICY", "fifo")),
		WarningPercent:   getEnvAsInt("STATUS_WARNING_THRESHOLD", 70),
		CriticalPercent:  getEnvAsInt("STATUS_CRITICAL_THRESHOLD", 90),
		BreakerThreshold: getEnvAsInt("BREAKER_THRESHOLD", 3),
		BreakerCooldown:  getEnvAsDuration("BREAKER_COOLDOWN", 60*time.Second),
		SnapshotTTL:      getEnvAsDuration("SNAPSHOT_TTL", 24*time.Hour),
	}

	// Validate required configuration
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.CacheSize <= 0 {
		return nil, fmt.Errorf("STATUS_CACHE_SIZE must be positive")
	}
	if cfg.EvictionPolicy != "fifo" && cfg.EvictionPolicy != "lru" {
		return nil, fmt.Errorf("CACHE_EVICTION_POLICY must be fifo or lru, got %q", cfg.EvictionPolicy)
	}
	if cfg.WarningPercent >= cfg.CriticalPercent {
		return nil, fmt.Errorf("STATUS_WARNING_THRESHOLD must be below STATUS_CRITICAL_THRESHOLD")
	}
	if !hasAnyPlatform(cfg) {
		return nil, fmt.Errorf("at least one platform token is required (GITHUB_TOKEN, GITLAB_TOKEN or JIRA_TOKEN)")
	}
	if cfg.Jira.Token != "" && cfg.Jira.BaseURL == "" {
		return nil, fmt.Errorf("JIRA_API_URL is required when JIRA_TOKEN is set")
	}

	return cfg, nil
}

func hasAnyPlatform(cfg *Config) bool {
	return cfg.GitHub.Token != "" || cfg.GitLab.Token != "" || cfg.Jira.Token != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
