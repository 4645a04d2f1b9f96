package store

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// DefaultHistoryLimit caps how many samples a history query returns when the
// caller does not say.
const DefaultHistoryLimit = 50

// MaxHistoryLimit bounds client-supplied history limits.
const MaxHistoryLimit = 500

// HistoryStore records poll outcomes and serves the recent-history queries
// behind the history endpoint.
type HistoryStore struct {
	db *gorm.DB
}

func NewHistoryStore(db *gorm.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// RecordSample persists one poll outcome.
func (s *HistoryStore) RecordSample(sample *PollSample) error {
	if sample.PolledAt.IsZero() {
		sample.PolledAt = time.Now()
	}
	if err := s.db.Create(sample).Error; err != nil {
		return fmt.Errorf("failed to record poll sample: %w", err)
	}
	return nil
}

// RecentSamples returns up to limit samples for a platform, newest first.
func (s *HistoryStore) RecentSamples(platform string, limit int) ([]PollSample, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	var samples []PollSample
	err := s.db.
		Where("platform = ?", platform).
		Order("polled_at DESC").
		Limit(limit).
		Find(&samples).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query poll samples: %w", err)
	}
	return samples, nil
}

// PruneBefore deletes samples older than the cutoff, returning how many rows
// were removed. The worker runs this periodically so the table does not grow
// without bound.
func (s *HistoryStore) PruneBefore(cutoff time.Time) (int64, error) {
	result := s.db.Where("polled_at < ?", cutoff).Delete(&PollSample{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to prune poll samples: %w", result.Error)
	}
	return result.RowsAffected, nil
}
