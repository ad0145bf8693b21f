package store

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrClosed is returned once the connection manager has been closed.
var ErrClosed = errors.New("connection manager closed")

// Role selects one of the two long-lived connections.
type Role int

const (
	// RoleRead serves lookups.
	RoleRead Role = iota

	// RoleWrite serves writes and deletions.
	RoleWrite
)

func (r Role) String() string {
	switch r {
	case RoleRead:
		return "read"
	case RoleWrite:
		return "write"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// DialFunc creates a client for the given options. It must not block.
type DialFunc func(opts *redis.Options) *redis.Client

// Option configures a ConnectionManager.
type Option func(*ConnectionManager)

// WithDialer replaces redis.NewClient.
func WithDialer(dial DialFunc) Option {
	return func(m *ConnectionManager) {
		m.dial = dial
	}
}

// WithClock replaces time.Now for health check scheduling.
func WithClock(now func() time.Time) Option {
	return func(m *ConnectionManager) {
		m.now = now
	}
}

type connection struct {
	client    *redis.Client
	checkedAt atomic.Int64 // unix nanos of the last successful PING
}

// ConnectionManager owns the read and write connections. Each role holds at
// most one live client, created on first use and replaced when a health
// check fails. Creation is check-then-create without a lock: concurrent
// first callers may both dial, and the one that loses the slot closes its
// own client.
type ConnectionManager struct {
	cfg    Config
	dial   DialFunc
	now    func() time.Time
	logger zerolog.Logger

	slots  [2]atomic.Pointer[connection]
	closed atomic.Bool
}

// NewConnectionManager creates a manager. No connection is made until the
// first Client call.
func NewConnectionManager(cfg Config, logger zerolog.Logger, opts ...Option) *ConnectionManager {
	m := &ConnectionManager{
		cfg:    cfg,
		dial:   redis.NewClient,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Client returns the live client for role, connecting or reconnecting as needed.
func (m *ConnectionManager) Client(ctx context.Context, role Role) (*redis.Client, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}
	slot, err := m.slot(role)
	if err != nil {
		return nil, err
	}

	if conn := slot.Load(); conn != nil {
		if m.healthy(ctx, role, conn) {
			return conn.client, nil
		}
		if slot.CompareAndSwap(conn, nil) {
			_ = conn.client.Close()
		}
	}

	return m.connect(ctx, role, slot)
}

// Ping checks that the store answers on the read connection.
func (m *ConnectionManager) Ping(ctx context.Context) error {
	client, err := m.Client(ctx, RoleRead)
	if err != nil {
		return err
	}
	return client.Ping(ctx).Err()
}

// Close closes both connections. Only call this on process shutdown.
func (m *ConnectionManager) Close() error {
	m.closed.Store(true)

	var errs []error
	for i := range m.slots {
		if conn := m.slots[i].Swap(nil); conn != nil {
			if err := conn.client.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", Role(i), err))
			}
		}
	}

	m.logger.Info().Msg("Store connections closed")
	return errors.Join(errs...)
}

func (m *ConnectionManager) slot(role Role) (*atomic.Pointer[connection], error) {
	if role < RoleRead || role > RoleWrite {
		return nil, fmt.Errorf("unknown connection role %d", int(role))
	}
	return &m.slots[role], nil
}

// healthy PINGs the connection when the last successful check is older than
// the health check interval.
func (m *ConnectionManager) healthy(ctx context.Context, role Role, conn *connection) bool {
	now := m.now()
	if now.Sub(time.Unix(0, conn.checkedAt.Load())) < m.cfg.HealthCheckInterval {
		return true
	}

	pingCtx, cancel := m.withTimeout(ctx)
	defer cancel()

	if err := conn.client.Ping(pingCtx).Err(); err != nil {
		m.logger.Warn().
			Err(err).
			Str("role", role.String()).
			Msg("Store connection unhealthy, reconnecting")
		return false
	}

	conn.checkedAt.Store(now.UnixNano())
	m.logger.Debug().Str("role", role.String()).Msg("Store connection health check passed")
	return true
}

func (m *ConnectionManager) connect(ctx context.Context, role Role, slot *atomic.Pointer[connection]) (*redis.Client, error) {
	client := m.dial(m.cfg.Options())

	pingCtx, cancel := m.withTimeout(ctx)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect %s to %s: %w", role, m.cfg.Addr(), err)
	}

	conn := &connection{client: client}
	conn.checkedAt.Store(m.now().UnixNano())

	for !slot.CompareAndSwap(nil, conn) {
		if existing := slot.Load(); existing != nil {
			// Lost the race to another caller.
			_ = client.Close()
			return existing.client, nil
		}
	}

	if m.closed.Load() {
		if slot.CompareAndSwap(conn, nil) {
			_ = client.Close()
		}
		return nil, ErrClosed
	}

	ConnectionsCreated.WithLabelValues(role.String()).Inc()
	m.logger.Info().
		Str("role", role.String()).
		Str("addr", m.cfg.Addr()).
		Int("db", m.cfg.Database).
		Msg("Store connection established")

	return client, nil
}

func (m *ConnectionManager) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, m.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}
