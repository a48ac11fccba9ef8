// Package cache stores rendered pages so repeat requests skip the rich-text renderer.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/terra-clan/academy-engine/internal/models"
)

// DefaultTTL is used when no TTL is configured
const DefaultTTL = 60 * time.Second

const keyPrefix = "academy:page:"

// PageCache caches rendered pages by slug. Get returns nil, nil on a miss.
type PageCache interface {
	Get(ctx context.Context, slug string) (*models.RenderedPage, error)
	Set(ctx context.Context, page *models.RenderedPage) error
	Invalidate(ctx context.Context, slug string) error
	Purge(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
}

// Key returns the redis key of a page
func Key(slug string) string {
	return keyPrefix + slug
}

// RedisCache implements PageCache on Redis
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisCacheFromClient(client, cfg.TTL), nil
}

// NewRedisCacheFromClient wraps an existing client
func NewRedisCacheFromClient(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

// Get returns a cached page
func (c *RedisCache) Get(ctx context.Context, slug string) (*models.RenderedPage, error) {
	data, err := c.client.Get(ctx, Key(slug)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached page: %w", err)
	}

	var page models.RenderedPage
	if err := json.Unmarshal(data, &page); err != nil {
		// Corrupt entry counts as a miss
		slog.Warn("dropping unreadable cache entry", "slug", slug, "error", err)
		c.client.Del(ctx, Key(slug))
		return nil, nil
	}
	page.Cached = true
	return &page, nil
}

// Set stores a page with the configured TTL
func (c *RedisCache) Set(ctx context.Context, page *models.RenderedPage) error {
	stored := *page
	stored.Cached = false

	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal page: %w", err)
	}
	if err := c.client.Set(ctx, Key(page.Slug), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache page: %w", err)
	}
	return nil
}

// Invalidate removes one page
func (c *RedisCache) Invalidate(ctx context.Context, slug string) error {
	if err := c.client.Del(ctx, Key(slug)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate page: %w", err)
	}
	return nil
}

// Purge removes every cached page and returns how many keys were deleted
func (c *RedisCache) Purge(ctx context.Context) (int, error) {
	var cursor uint64
	var deleted int

	for {
		keys, next, err := c.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return deleted, fmt.Errorf("failed to scan keys: %w", err)
		}

		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				slog.Warn("failed to delete some keys", "error", err)
			}
			deleted += int(n)
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	slog.Info("page cache purged", "keys_deleted", deleted)
	return deleted, nil
}

// Ping verifies Redis connectivity
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Noop is a PageCache that never stores anything
type Noop struct{}

func (Noop) Get(context.Context, string) (*models.RenderedPage, error) { return nil, nil }
func (Noop) Set(context.Context, *models.RenderedPage) error { return nil }
func (Noop) Invalidate(context.Context, string) error { return nil }
func (Noop) Purge(context.Context) (int, error) { return 0, nil }
func (Noop) Ping(context.Context) error { return nil }
