package repository

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/crudkit/sampleapi/internal/model"
	"github.com/redis/go-redis/v9"
)

// RedisStatsCache memoizes /api-logs/stats/ results per window size.
type RedisStatsCache struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

func NewRedisStatsCache(client redis.UniversalClient, ttl time.Duration) *RedisStatsCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisStatsCache{
		client: client,
		ttl:    ttl,
		prefix: "apilog:stats:",
	}
}

func (c *RedisStatsCache) key(days int) string {
	return c.prefix + strconv.Itoa(days)
}

func (c *RedisStatsCache) Get(ctx context.Context, days int) (*model.APILogStats, bool) {
	raw, err := c.client.Get(ctx, c.key(days)).Bytes()
	if err != nil {
		return nil, false
	}
	var stats model.APILogStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil, false
	}
	return &stats, true
}

func (c *RedisStatsCache) Set(ctx context.Context, days int, stats *model.APILogStats) error {
	payload, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(days), payload, c.ttl).Err()
}

// Invalidate drops every cached window.
func (c *RedisStatsCache) Invalidate(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	pipe := c.client.Pipeline()
	queued := 0
	for iter.Next(ctx) {
		pipe.Del(ctx, iter.Val())
		queued++
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if queued == 0 {
		return nil
	}
	_, err := pipe.Exec(ctx)
	return err
}
