package store

import "gorm.io/gorm"

// Connections holds database and cache connections
type Connections struct {
	DB    *gorm.DB
	Redis *RedisClient
}

// NewConnections creates a new Connections instance
func NewConnections(db *gorm.DB, redis *RedisClient) *Connections {
	return &Connections{
		DB:    db,
		Redis: redis,
	}
}

// Close releases both connections. Safe to call with either connection nil,
// which tests rely on.
func (c *Connections) Close() error {
	var firstErr error
	if c.DB != nil {
		if sqlDB, err := c.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
