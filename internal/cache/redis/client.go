package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/genbi-manufacturing/backend/internal/metrics"
	"github.com/genbi-manufacturing/backend/pkg/logger"
)

const completionPrefix = "completion:"

type Client struct {
	client *redis.Client
}

func NewClient(host string, port int, password string, db int) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := client.Ping(ctx).Result()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized", zap.String("addr", fmt.Sprintf("%s:%d", host, port)))

	return &Client{client: client}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Client) SetCompletion(ctx context.Context, key, text string, ttl time.Duration) error {
	err := c.client.Set(ctx, completionPrefix+key, text, ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to set completion cache: %w", err)
	}

	logger.Debug("Completion cached", zap.String("key", key), zap.Duration("ttl", ttl))
	return nil
}

func (c *Client) GetCompletion(ctx context.Context, key string) (string, bool, error) {
	text, err := c.client.Get(ctx, completionPrefix+key).Result()
	if err == redis.Nil {
		metrics.CacheMisses.WithLabelValues("completion").Inc()
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get completion cache: %w", err)
	}

	metrics.CacheHits.WithLabelValues("completion").Inc()
	logger.Debug("Completion cache hit", zap.String("key", key))
	return text, true, nil
}

// InvalidateCompletions drops every cached completion. Entries keyed on an
// old system prompt can no longer be hit once the glossary changes.
func (c *Client) InvalidateCompletions(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, completionPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		err := c.client.Del(ctx, iter.Val()).Err()
		if err != nil {
			logger.Warn("Failed to delete cache key", zap.Error(err))
		}
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to iterate cache keys: %w", err)
	}

	logger.Info("Completion cache invalidated")
	return nil
}
