package store

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/page-cache/internal/testutil"
)

// dialCounter counts client creations.
type dialCounter struct {
	n atomic.Int32
}

func (d *dialCounter) dial(opts *redis.Options) *redis.Client {
	d.n.Add(1)
	return redis.NewClient(opts)
}

func (d *dialCounter) count() int {
	return int(d.n.Load())
}

// newTestManager creates a connection manager against a fresh miniredis.
func newTestManager(t *testing.T, opts ...Option) (*ConnectionManager, *miniredis.Miniredis) {
	t.Helper()

	mr, host, port := testutil.MiniRedis(t)

	cfg := DefaultConfig()
	cfg.Server = host
	cfg.Port = port
	cfg.Timeout = time.Second

	m := NewConnectionManager(cfg, zerolog.Nop(), opts...)
	t.Cleanup(func() { m.Close() })

	return m, mr
}

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	m, mr := newTestManager(t)
	return NewCache(m, nil, zerolog.Nop()), mr
}

func newTestQueue(t *testing.T) (*Queue, *miniredis.Miniredis) {
	t.Helper()
	m, mr := newTestManager(t)
	return NewQueue(m, zerolog.Nop()), mr
}

// unreachableManager points at a port nothing listens on.
func unreachableManager(t *testing.T) *ConnectionManager {
	t.Helper()

	mr, host, port := testutil.MiniRedis(t)
	mr.Close()

	cfg := DefaultConfig()
	cfg.Server = host
	cfg.Port = port
	cfg.Timeout = 200 * time.Millisecond

	m := NewConnectionManager(cfg, zerolog.Nop())
	t.Cleanup(func() { m.Close() })
	return m
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}
