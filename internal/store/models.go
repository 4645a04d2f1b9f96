package store

import (
	"time"

	"gorm.io/gorm"
)

// PollSample is one recorded poll outcome for a platform. Samples back the
// history endpoint and survive restarts, unlike the in-memory status cache.
type PollSample struct {
	ID uint `gorm:"primaryKey;column:id"`

	// Platform is the canonical platform identity ("github", "gitlab", "jira").
	Platform string `gorm:"column:platform;type:varchar(50);not null;index:idx_poll_samples_platform_time,priority:1"`

	// PolledAt is when the probe completed.
	PolledAt time.Time `gorm:"column:polled_at;not null;index:idx_poll_samples_platform_time,priority:2"`

	// Success records whether the probe produced a usable payload.
	Success bool `gorm:"column:success;not null"`

	// Status is the overall status derived from the payload
	// ("normal", "warning", "critical", "unknown"). Empty on failed polls.
	Status string `gorm:"column:status;type:varchar(20)"`

	// MaxUsagePercent is the highest endpoint usage seen in the payload.
	// Zero for platforms that publish no numeric quota.
	MaxUsagePercent float64 `gorm:"column:max_usage_percent"`

	// BreakerState is the platform's breaker state after this poll was
	// recorded ("closed", "open", "half-open").
	BreakerState string `gorm:"column:breaker_state;type:varchar(20);not null"`

	// LatencyMS is the probe round trip in milliseconds.
	LatencyMS int64 `gorm:"column:latency_ms"`

	CreatedAt time.Time `gorm:"column:created_at;default:CURRENT_TIMESTAMP"`
}

func (PollSample) TableName() string {
	return "poll_samples"
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&PollSample{})
}
