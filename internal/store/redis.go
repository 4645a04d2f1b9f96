// Package store holds the boundary persistence around the governor core:
// Redis snapshots of the last known status per platform (the stale-fallback
// source) and the poll-history table behind the dashboard's telemetry view.
// The governor itself never touches either; persistence is strictly a
// collaborator at the edge.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/devpulse/devpulse/internal/governor"
	"github.com/redis/go-redis/v9"
)

// ErrSnapshotMiss is returned when no snapshot exists for a platform.
var ErrSnapshotMiss = errors.New("no status snapshot for platform")

// RedisClient wraps the redis connection with a configured key prefix so
// several deployments can share one Redis instance.
type RedisClient struct {
	client    *redis.Client
	keyPrefix string
}

func NewRedisClient(redisURL string, keyPrefix string) (*RedisClient, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	// Test the connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &RedisClient{
		client:    client,
		keyPrefix: keyPrefix,
	}, nil
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}

func (r *RedisClient) Client() *redis.Client {
	return r.client
}

func (r *RedisClient) prefixKey(key string) string {
	if r.keyPrefix == "" {
		return key
	}
	return r.keyPrefix + key
}

func snapshotKey(platform string) string {
	return fmt.Sprintf("status_snapshot:%s", platform)
}

// SaveSnapshot stores the latest normalized status for a platform. The TTL
// is the staleness window: past it, serving the snapshot would mislead more
// than a plain "unknown" would. Snapshot writes are best effort; losing one
// costs a fallback, not correctness.
func (r *RedisClient) SaveSnapshot(ctx context.Context, status *governor.RateLimitStatus, ttl time.Duration) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal status snapshot: %w", err)
	}
	key := r.prefixKey(snapshotKey(status.Platform))
	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write status snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot retrieves the last stored status for a platform. Snapshots
// come back flagged stale: by definition they describe an earlier poll, and
// the HTTP layer only reaches for them when fresh data is unavailable.
func (r *RedisClient) LoadSnapshot(ctx context.Context, platform string) (*governor.RateLimitStatus, error) {
	key := r.prefixKey(snapshotKey(platform))
	data, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrSnapshotMiss
		}
		return nil, fmt.Errorf("failed to read status snapshot: %w", err)
	}

	var status governor.RateLimitStatus
	if err := json.Unmarshal([]byte(data), &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status snapshot: %w", err)
	}
	return governor.MarkStale(&status), nil
}

// DeleteSnapshot removes a platform's snapshot.
func (r *RedisClient) DeleteSnapshot(ctx context.Context, platform string) error {
	return r.client.Del(ctx, r.prefixKey(snapshotKey(platform))).Err()
}
