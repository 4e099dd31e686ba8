// Package cache defines the key/value capability the link service uses as a
// side lookup table. Implementations store opaque byte values with a per-key
// time-to-live and know nothing about links.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is absent or its entry has expired.
var ErrMiss = errors.New("cache miss")

// Cache is a key/value store with per-entry expiry. Implementations must be
// safe for concurrent use.
type Cache interface {
	// Set stores value under key, replacing any prior value, for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get returns the stored value or ErrMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// Nop is a Cache that never stores anything. Every Get is a miss.
type Nop struct{}

func (Nop) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (Nop) Get(context.Context, string) ([]byte, error) { return nil, ErrMiss }

func (Nop) Delete(context.Context, string) error { return nil }

// Timeout bounds every call to the wrapped Cache by d.
type Timeout struct {
	cache Cache
	d     time.Duration
}

// WithTimeout wraps c so that each call runs under a context deadline of d.
// A non-positive d returns c unchanged.
func WithTimeout(c Cache, d time.Duration) Cache {
	if d <= 0 {
		return c
	}
	return &Timeout{cache: c, d: d}
}

func (t *Timeout) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()

	return t.cache.Set(ctx, key, value, ttl)
}

func (t *Timeout) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()

	return t.cache.Get(ctx, key)
}

func (t *Timeout) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()

	return t.cache.Delete(ctx, key)
}
