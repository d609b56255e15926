// Package cache stores computed explanations in redis. Explanations are
// deterministic for a fixed anomaly and model version, so cached entries
// never need invalidation beyond their TTL; a model rollout changes the key.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chaintrace-systems/chaintrace-stack/common/config"
	"github.com/chaintrace-systems/chaintrace-stack/common/models"
)

// Cache stores and retrieves explanations. Get returns (nil, nil) on a miss.
type Cache interface {
	Get(ctx context.Context, anomalyID, modelVersion string) (*models.Explanation, error)
	Set(ctx context.Context, exp *models.Explanation) error
	Close() error
}

// RedisCache backs the explanation cache with redis.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to redis using the shared infrastructure config.
func New(cfg config.RedisConfig, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.MaxRetries = cfg.MaxRetries
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	return &RedisCache{client: redis.NewClient(opts), ttl: ttl}, nil
}

// NewWithClient wraps an existing client. Used by tests.
func NewWithClient(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func key(anomalyID, modelVersion string) string {
	return fmt.Sprintf("explanation:%s:%s", anomalyID, modelVersion)
}

func (c *RedisCache) Get(ctx context.Context, anomalyID, modelVersion string) (*models.Explanation, error) {
	data, err := c.client.Get(ctx, key(anomalyID, modelVersion)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}
	var exp models.Explanation
	if err := json.Unmarshal(data, &exp); err != nil {
		return nil, fmt.Errorf("decode cached explanation: %w", err)
	}
	return &exp, nil
}

func (c *RedisCache) Set(ctx context.Context, exp *models.Explanation) error {
	data, err := json.Marshal(exp)
	if err != nil {
		return fmt.Errorf("encode explanation: %w", err)
	}
	if err := c.client.Set(ctx, key(exp.AnomalyID, exp.ModelVersion), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// NoopCache disables caching; every explanation is recomputed.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string, string) (*models.Explanation, error) { return nil, nil }
func (NoopCache) Set(context.Context, *models.Explanation) error                   { return nil }
func (NoopCache) Close() error                                                     { return nil }
