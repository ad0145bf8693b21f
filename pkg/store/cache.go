package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/page-cache/pkg/codec"
)

// GetResult is delivered by GetAsync.
type GetResult struct {
	Value string
	OK    bool
}

// Cache stores compressed text and framed values under string keys.
type Cache struct {
	conns  *ConnectionManager
	codec  *codec.Codec
	logger zerolog.Logger
}

// NewCache creates a cache over conns.
func NewCache(conns *ConnectionManager, c *codec.Codec, logger zerolog.Logger) *Cache {
	if conns == nil {
		panic("connection manager cannot be nil")
	}
	if c == nil {
		c = codec.New(0, logger)
	}
	return &Cache{
		conns:  conns,
		codec:  c,
		logger: logger,
	}
}

// Get returns the text stored under key. With refresh set the key is deleted
// and nothing is returned, so the caller rebuilds the entry.
func (c *Cache) Get(ctx context.Context, key string, refresh bool) (string, bool) {
	data, ok := c.getBytes(ctx, "get", key, refresh)
	if !ok {
		return "", false
	}

	value, err := c.codec.DecodeText(data)
	if err != nil {
		c.fail("get", key, err)
		return "", false
	}

	return value, true
}

// Set stores value under key. A ttl <= 0 stores without expiry.
func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) bool {
	data, err := c.codec.EncodeText(key, value)
	if err != nil {
		c.fail("set", key, err)
		return false
	}
	return c.setBytes(ctx, "set", key, data, ttl)
}

// Remove deletes key and reports whether it existed.
func (c *Cache) Remove(ctx context.Context, key string) bool {
	client, err := c.conns.Client(ctx, RoleWrite)
	if err != nil {
		c.fail("remove", key, err)
		return false
	}

	n, err := client.Del(ctx, key).Result()
	if err != nil {
		c.fail("remove", key, err)
		return false
	}

	return n > 0
}

// Exists reports whether key is present on the write connection, the one
// Remove deletes from. ok is false when the store could not be asked.
func (c *Cache) Exists(ctx context.Context, key string) (exists, ok bool) {
	client, err := c.conns.Client(ctx, RoleWrite)
	if err != nil {
		c.fail("exists", key, err)
		return false, false
	}

	n, err := client.Exists(ctx, key).Result()
	if err != nil {
		c.fail("exists", key, err)
		return false, false
	}
	return n > 0, true
}

// SetValue stores a gob-encoded value. Nil values are not stored.
func (c *Cache) SetValue(ctx context.Context, key string, v any, ttl time.Duration) bool {
	data, err := c.codec.EncodeValue(key, v)
	if err != nil {
		c.fail("set_value", key, err)
		return false
	}
	if data == nil {
		return false
	}
	return c.setBytes(ctx, "set_value", key, data, ttl)
}

// GetValue reads a value stored with SetValue.
func GetValue[T any](ctx context.Context, c *Cache, key string, refresh bool) (T, bool) {
	var zero T

	data, ok := c.getBytes(ctx, "get_value", key, refresh)
	if !ok {
		return zero, false
	}

	v, err := codec.Decode[T](c.codec, data)
	if err != nil {
		c.fail("get_value", key, err)
		return zero, false
	}

	return v, true
}

// GetAsync runs Get in the background. The channel receives exactly one result.
func (c *Cache) GetAsync(ctx context.Context, key string, refresh bool) <-chan GetResult {
	ch := make(chan GetResult, 1)
	go func() {
		defer close(ch)
		v, ok := c.Get(ctx, key, refresh)
		ch <- GetResult{Value: v, OK: ok}
	}()
	return ch
}

// SetAsync runs Set in the background. The channel receives exactly one result.
func (c *Cache) SetAsync(ctx context.Context, key, value string, ttl time.Duration) <-chan bool {
	ch := make(chan bool, 1)
	go func() {
		defer close(ch)
		ch <- c.Set(ctx, key, value, ttl)
	}()
	return ch
}

// RemoveAsync runs Remove in the background. The channel receives exactly one result.
func (c *Cache) RemoveAsync(ctx context.Context, key string) <-chan bool {
	ch := make(chan bool, 1)
	go func() {
		defer close(ch)
		ch <- c.Remove(ctx, key)
	}()
	return ch
}

func (c *Cache) getBytes(ctx context.Context, op, key string, refresh bool) ([]byte, bool) {
	if refresh {
		c.Remove(ctx, key)
		StoreRefreshes.Inc()
		c.logger.Debug().Str("key", key).Msg("Refresh requested, entry dropped")
		return nil, false
	}

	client, err := c.conns.Client(ctx, RoleRead)
	if err != nil {
		c.fail(op, key, err)
		return nil, false
	}

	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			StoreMisses.Inc()
			return nil, false
		}
		c.fail(op, key, err)
		return nil, false
	}
	if len(data) == 0 {
		StoreMisses.Inc()
		return nil, false
	}

	StoreHits.Inc()
	return data, true
}

func (c *Cache) setBytes(ctx context.Context, op, key string, data []byte, ttl time.Duration) bool {
	client, err := c.conns.Client(ctx, RoleWrite)
	if err != nil {
		c.fail(op, key, err)
		return false
	}

	// go-redis treats negative expirations as KEEPTTL.
	if ttl < 0 {
		ttl = 0
	}

	if err := client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.fail(op, key, err)
		return false
	}

	return true
}

func (c *Cache) fail(op, key string, err error) {
	StoreErrors.WithLabelValues(op).Inc()
	c.logger.Warn().
		Err(err).
		Str("operation", op).
		Str("key", key).
		Msg("Store operation failed")
}
