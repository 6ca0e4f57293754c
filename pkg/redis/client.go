package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nimbuswolf/finance-api/config"
	"github.com/nimbuswolf/finance-api/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Client is a thin wrapper over go-redis. A disabled client answers every call
// without touching the network.
type Client struct {
	rdb     redis.UniversalClient
	enabled bool
}

// NewClient connects when redis is enabled in cfg and returns a disabled client otherwise.
func NewClient(cfg *config.Config) (*Client, error) {
	if !cfg.Redis.Enabled {
		logger.GetLogger().Info("Redis disabled")
		return &Client{}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddress(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.Database,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
		PoolTimeout:  cfg.Redis.PoolTimeout,
	})

	client := &Client{rdb: rdb, enabled: true}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx); err != nil {
		logger.GetLogger().Error("Failed to connect to Redis",
			zap.String("address", cfg.RedisAddress()),
			zap.Error(err),
		)
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.GetLogger().Info("Successfully connected to Redis",
		zap.String("address", cfg.RedisAddress()),
		zap.Int("database", cfg.Redis.Database),
	)

	return client, nil
}

// NewFromUniversal wraps an existing go-redis client.
func NewFromUniversal(rdb redis.UniversalClient) *Client {
	return &Client{rdb: rdb, enabled: rdb != nil}
}

func (c *Client) IsEnabled() bool {
	return c != nil && c.enabled
}

func (c *Client) Ping(ctx context.Context) error {
	if !c.IsEnabled() {
		return nil
	}
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	if !c.IsEnabled() {
		return nil
	}
	return c.rdb.Close()
}

// Set stores value under key. A non-positive ttl is a no-op since the entry would already be expired.
func (c *Client) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if !c.IsEnabled() || ttl <= 0 {
		return nil
	}
	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		logger.GetLogger().Error("Failed to set key",
			zap.String("key", key),
			zap.Duration("ttl", ttl),
			zap.Error(err),
		)
		return fmt.Errorf("failed to set key: %w", err)
	}
	return nil
}

func (c *Client) Get(ctx context.Context, key string) (string, bool, error) {
	if !c.IsEnabled() {
		return "", false, nil
	}
	val, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get key: %w", err)
	}
	return val, true, nil
}

func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	if !c.IsEnabled() {
		return false, nil
	}
	n, err := c.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check key: %w", err)
	}
	return n > 0, nil
}
