package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrNotImplemented marks queue operations that are declared but not supported.
var ErrNotImplemented = errors.New("not implemented")

// Queue provides ordered-set, list and hash counter primitives for
// out-of-band producers and consumers. It shares connections with Cache.
type Queue struct {
	conns  *ConnectionManager
	logger zerolog.Logger
	now    func() time.Time
}

// NewQueue creates a queue store over conns.
func NewQueue(conns *ConnectionManager, logger zerolog.Logger) *Queue {
	if conns == nil {
		panic("connection manager cannot be nil")
	}
	return &Queue{
		conns:  conns,
		logger: logger,
		now:    time.Now,
	}
}

// Enqueue adds item to the sorted set at key. A score <= 0 is replaced by
// the current time in microseconds, which orders items FIFO by arrival.
func (q *Queue) Enqueue(ctx context.Context, key, item string, score int64) bool {
	if score <= 0 {
		score = q.now().UnixMicro()
	}

	client, err := q.conns.Client(ctx, RoleWrite)
	if err != nil {
		q.fail("enqueue", key, err)
		return false
	}

	if err := client.ZAdd(ctx, key, redis.Z{Score: float64(score), Member: item}).Err(); err != nil {
		q.fail("enqueue", key, err)
		return false
	}
	return true
}

// EnqueueValue JSON-encodes v and enqueues it.
func (q *Queue) EnqueueValue(ctx context.Context, key string, v any, score int64) bool {
	data, err := json.Marshal(v)
	if err != nil {
		q.fail("enqueue", key, fmt.Errorf("marshal item: %w", err))
		return false
	}
	return q.Enqueue(ctx, key, string(data), score)
}

// Dequeue pops the head of the list at key.
func (q *Queue) Dequeue(ctx context.Context, key string) (string, bool) {
	return q.pop(ctx, "dequeue", key, func(client *redis.Client) *redis.StringCmd {
		return client.LPop(ctx, key)
	})
}

// DequeueValue pops the head of the list at key and JSON-decodes it.
func DequeueValue[T any](ctx context.Context, q *Queue, key string) (T, bool) {
	var zero T

	raw, ok := q.Dequeue(ctx, key)
	if !ok || raw == "" {
		return zero, false
	}

	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		q.fail("dequeue", key, fmt.Errorf("unmarshal item: %w", err))
		return zero, false
	}
	return v, true
}

// QueueLength returns the number of members of the sorted set at key.
func (q *Queue) QueueLength(ctx context.Context, key string) int64 {
	client, err := q.conns.Client(ctx, RoleRead)
	if err != nil {
		q.fail("queue_length", key, err)
		return 0
	}

	n, err := client.ZCard(ctx, key).Result()
	if err != nil {
		q.fail("queue_length", key, err)
		return 0
	}
	return n
}

// Push prepends item to the list at key.
func (q *Queue) Push(ctx context.Context, key, item string) bool {
	client, err := q.conns.Client(ctx, RoleWrite)
	if err != nil {
		q.fail("push", key, err)
		return false
	}

	if err := client.LPush(ctx, key, item).Err(); err != nil {
		q.fail("push", key, err)
		return false
	}
	return true
}

// Pop removes and returns the tail of the list at key. Combined with Push
// this hands out items in the order they were pushed.
func (q *Queue) Pop(ctx context.Context, key string) (string, bool) {
	return q.pop(ctx, "pop", key, func(client *redis.Client) *redis.StringCmd {
		return client.RPop(ctx, key)
	})
}

// Requeue returns items to the tail of the list at key so that items[0]
// is the next one Pop hands out.
func (q *Queue) Requeue(ctx context.Context, key string, items ...string) bool {
	if len(items) == 0 {
		return true
	}

	client, err := q.conns.Client(ctx, RoleWrite)
	if err != nil {
		q.fail("requeue", key, err)
		return false
	}

	values := make([]interface{}, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		values = append(values, items[i])
	}
	if err := client.RPush(ctx, key, values...).Err(); err != nil {
		q.fail("requeue", key, err)
		return false
	}
	return true
}

// HashIncrement increments field hashKey of the hash at key and returns the
// new count (0 on failure).
func (q *Queue) HashIncrement(ctx context.Context, hashKey, key string) int64 {
	client, err := q.conns.Client(ctx, RoleWrite)
	if err != nil {
		q.fail("hash_increment", key, err)
		return 0
	}

	n, err := client.HIncrBy(ctx, key, hashKey, 1).Result()
	if err != nil {
		q.fail("hash_increment", key, err)
		return 0
	}
	return n
}

// DrainList returns every item of the list at key, head first, and removes
// the list in the same transaction.
func (q *Queue) DrainList(ctx context.Context, key string) []string {
	client, err := q.conns.Client(ctx, RoleWrite)
	if err != nil {
		q.fail("drain_list", key, err)
		return nil
	}

	var items *redis.StringSliceCmd
	_, err = client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		items = pipe.LRange(ctx, key, 0, -1)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		q.fail("drain_list", key, err)
		return nil
	}

	return items.Val()
}

// DequeueList is not supported.
func (q *Queue) DequeueList(ctx context.Context, key string) ([]string, error) {
	return nil, fmt.Errorf("dequeue list %q: %w", key, ErrNotImplemented)
}

// DrainQueue is not supported.
func (q *Queue) DrainQueue(ctx context.Context, key string) ([]string, error) {
	return nil, fmt.Errorf("drain queue %q: %w", key, ErrNotImplemented)
}

func (q *Queue) pop(ctx context.Context, op, key string, cmd func(*redis.Client) *redis.StringCmd) (string, bool) {
	client, err := q.conns.Client(ctx, RoleWrite)
	if err != nil {
		q.fail(op, key, err)
		return "", false
	}

	v, err := cmd(client).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			q.fail(op, key, err)
		}
		return "", false
	}
	return v, true
}

func (q *Queue) fail(op, key string, err error) {
	StoreErrors.WithLabelValues(op).Inc()
	q.logger.Warn().
		Err(err).
		Str("operation", op).
		Str("key", key).
		Msg("Queue operation failed")
}
