// Package cache holds the Redis-backed run summary cache. Summaries are
// cheap to rebuild, so entries carry a short TTL and a miss is never an
// error.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/vrpulse/jerk-sentinel/internal/domain"
)

const summaryTTL = 5 * time.Minute

// RedisClient wraps the go-redis client for summary caching.
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(addr string) (*RedisClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		PoolSize:     50,
		MinIdleConns: 10,
		MaxRetries:   3,
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &RedisClient{client: rdb}, nil
}

// Close releases the connection pool.
func (rc *RedisClient) Close() error {
	return rc.client.Close()
}

// SaveSummary caches a run summary under summary:<runID>.
func (rc *RedisClient) SaveSummary(ctx context.Context, runID string, summary domain.RunSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	return rc.client.Set(ctx, "summary:"+runID, data, summaryTTL).Err()
}

// GetSummary returns the cached summary for a run, or nil on a miss.
func (rc *RedisClient) GetSummary(ctx context.Context, runID string) (*domain.RunSummary, error) {
	val, err := rc.client.Get(ctx, "summary:"+runID).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var summary domain.RunSummary
	if err := json.Unmarshal([]byte(val), &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}
