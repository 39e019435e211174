package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"chunk-upload-system/conf"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// InitRedis initialize Redis client, returns nil client when the cache is disabled
func InitRedis(cfg conf.RedisConfig, log *zap.Logger) (*redis.Client, error) {
	if !cfg.Enabled {
		log.Info("Redis cache is disabled")
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info("Redis connected successfully",
		zap.String("addr", client.Options().Addr),
		zap.Int("db", cfg.DB),
		zap.Int("ttl_seconds", cfg.CacheTTL))
	return client, nil
}

// Cache JSON value cache with a fixed TTL
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewCache create cache over client
func NewCache(client *redis.Client, ttl time.Duration, log *zap.Logger) *Cache {
	return &Cache{client: client, ttl: ttl, log: log}
}

// Set set cache with TTL
func (c *Cache) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.Warn("Failed to set cache", zap.String("key", key), zap.Error(err))
		return err
	}

	return nil
}

// Get get cache by key, returns redis.Nil on miss
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal cache data: %w", err)
	}

	return nil
}

// Delete delete cache by key
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.log.Warn("Failed to delete cache", zap.String("key", key), zap.Error(err))
		return err
	}

	return nil
}
