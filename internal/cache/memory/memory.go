// Package memory implements cache.Cache in process memory.
//
// Entries live in a sharded sturdyc client. sturdyc applies a single TTL to
// the whole client, so each entry also carries its own deadline and Get
// treats an entry past its deadline as a miss.
package memory

import (
	"context"
	"errors"
	"time"

	"github.com/viccon/sturdyc"
	"github.com/vadimbarashkov/link-shortener/internal/cache"
)

const (
	defaultCapacity           = 10000
	defaultNumShards          = 64
	defaultMaxTTL             = time.Hour
	defaultEvictionPercentage = 10
)

// Config holds the sizing of the in-memory cache.
type Config struct {
	// Capacity is the maximum number of entries kept.
	Capacity int
	// NumShards is the number of independently locked shards.
	NumShards int
	// MaxTTL is the upper bound for any entry lifetime.
	MaxTTL time.Duration
	// EvictionPercentage is the share of entries dropped when a shard is full.
	EvictionPercentage int
}

func (c Config) withDefaults() Config {
	if c.Capacity <= 0 {
		c.Capacity = defaultCapacity
	}
	if c.NumShards <= 0 {
		c.NumShards = defaultNumShards
	}
	if c.MaxTTL <= 0 {
		c.MaxTTL = defaultMaxTTL
	}
	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		c.EvictionPercentage = defaultEvictionPercentage
	}
	return c
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Cache is an in-process cache.Cache.
type Cache struct {
	client *sturdyc.Client[entry]
	maxTTL time.Duration
	now    func() time.Time
}

func New(cfg Config) *Cache {
	cfg = cfg.withDefaults()

	return &Cache{
		client: sturdyc.New[entry](cfg.Capacity, cfg.NumShards, cfg.MaxTTL, cfg.EvictionPercentage),
		maxTTL: cfg.MaxTTL,
		now:    time.Now,
	}
}

var errInvalidTTL = errors.New("ttl must be positive")

func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ttl <= 0 {
		return errInvalidTTL
	}
	if ttl > c.maxTTL {
		ttl = c.maxTTL
	}

	buf := make([]byte, len(value))
	copy(buf, value)

	c.client.Set(key, entry{value: buf, expiresAt: c.now().Add(ttl)})
	return nil
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e, ok := c.client.Get(key)
	if !ok {
		return nil, cache.ErrMiss
	}
	if !c.now().Before(e.expiresAt) {
		c.client.Delete(key)
		return nil, cache.ErrMiss
	}

	return e.value, nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.client.Delete(key)
	return nil
}
