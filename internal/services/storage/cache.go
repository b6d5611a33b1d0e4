package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/doanvu/image-editing/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache is a redis-backed, non-authoritative cache of edited results.
// A hit skips the remote edit call for an identical request; the
// materialized file on disk remains the only authoritative copy.
type Cache struct {
	client   *redis.Client
	duration time.Duration
	logger   *zap.Logger
}

type cachedResult struct {
	Data          []byte `json:"data"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
}

func NewCache(cfg config.RedisConfig, duration time.Duration, logger *zap.Logger) *Cache {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Cache{
		client:   client,
		duration: duration,
		logger:   logger,
	}
}

func (c *Cache) GetResult(ctx context.Context, key string) ([]byte, string, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, "", nil // Cache miss
		}
		return nil, "", fmt.Errorf("cache get error: %w", err)
	}

	var cached cachedResult
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, "", fmt.Errorf("corrupt cache entry: %w", err)
	}
	return cached.Data, cached.RevisedPrompt, nil
}

func (c *Cache) SetResult(ctx context.Context, key string, data []byte, revisedPrompt string) error {
	raw, err := json.Marshal(cachedResult{Data: data, RevisedPrompt: revisedPrompt})
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, c.duration).Err()
}

// HealthCheck pings redis.
func (c *Cache) HealthCheck(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}
