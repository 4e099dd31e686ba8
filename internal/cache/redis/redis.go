// Package redis implements cache.Cache on top of a Redis server.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vadimbarashkov/link-shortener/internal/cache"
)

// Cache stores entries with SET ... EX and reads them with GET.
type Cache struct {
	client redis.UniversalClient
}

func New(client redis.UniversalClient) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	const op = "cache.redis.Cache.Set"

	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%s: failed to set key: %w", op, err)
	}

	return nil
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	const op = "cache.redis.Cache.Get"

	value, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, cache.ErrMiss
		}

		return nil, fmt.Errorf("%s: failed to get key: %w", op, err)
	}

	return value, nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	const op = "cache.redis.Cache.Delete"

	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%s: failed to delete key: %w", op, err)
	}

	return nil
}

// Options configures the Redis client created by NewClient.
type Options struct {
	Addr         string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
}

// NewClient builds a Redis client. It does not dial; connections are
// established lazily and re-established after failures.
func NewClient(opts Options) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		PoolSize:     opts.PoolSize,
	})
}
