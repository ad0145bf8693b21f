package jobs

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// RemoveQueue is the list the server consumes cache removal requests from.
const RemoveQueue = "pagecache:jobs:remove"

var processed = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "pagecache_jobs_processed_total",
		Help: "Total number of processed job items, by queue and result",
	},
	[]string{"queue", "result"}, // "ok", "failed"
)

// Config holds consumer configuration
type Config struct {
	// Workers is the number of parallel handlers
	Workers int
	// PollInterval is the sleep between polls of an empty list
	PollInterval time.Duration
	// Timeout per handled item
	Timeout time.Duration
}

// DefaultConfig returns the default consumer configuration
func DefaultConfig() Config {
	return Config{
		Workers:      2,
		PollInterval: time.Second,
		Timeout:      15 * time.Second,
	}
}

// Source is the list backend. store.Queue implements it.
type Source interface {
	Pop(ctx context.Context, key string) (string, bool)
	DrainList(ctx context.Context, key string) []string
	Requeue(ctx context.Context, key string, items ...string) bool
}

// Handler processes one item.
type Handler interface {
	Handle(ctx context.Context, item string) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, item string) error

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, item string) error {
	return f(ctx, item)
}

// Stats summarizes a RunOnce call.
type Stats struct {
	Processed int
	Failed    int
	// Requeued items were drained but not handled before ctx ended.
	Requeued int
}

// Consumer pops items from a list and runs a Handler for each.
type Consumer struct {
	source  Source
	handler Handler
	config  Config
	logger  zerolog.Logger
}

// NewConsumer creates a consumer
func NewConsumer(source Source, handler Handler, config Config, logger zerolog.Logger) *Consumer {
	if source == nil {
		panic("job source cannot be nil")
	}
	if handler == nil {
		panic("job handler cannot be nil")
	}

	def := DefaultConfig()
	if config.Workers <= 0 {
		config.Workers = def.Workers
	}
	if config.PollInterval <= 0 {
		config.PollInterval = def.PollInterval
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}

	return &Consumer{
		source:  source,
		handler: handler,
		config:  config,
		logger:  logger,
	}
}

// Run consumes key until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context, key string) {
	c.logger.Info().
		Str("key", key).
		Int("workers", c.config.Workers).
		Msg("Job consumer started")

	var wg sync.WaitGroup
	for i := 0; i < c.config.Workers; i++ {
		wg.Add(1)
		go c.poll(ctx, key, &wg, i)
	}
	wg.Wait()

	c.logger.Info().Str("key", key).Msg("Job consumer stopped")
}

// poll is one long-running worker of Run
func (c *Consumer) poll(ctx context.Context, key string, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	itemsProcessed := 0

	for {
		select {
		case <-ctx.Done():
			c.logger.Debug().
				Int("worker_id", workerID).
				Int("items_processed", itemsProcessed).
				Msg("Worker stopping (context cancelled)")
			return
		default:
		}

		item, ok := c.source.Pop(ctx, key)
		if !ok {
			timer := time.NewTimer(c.config.PollInterval)
			select {
			case <-ctx.Done():
				timer.Stop()
			case <-timer.C:
			}
			continue
		}

		c.handle(ctx, key, item, workerID)
		itemsProcessed++
	}
}

// RunOnce takes every item currently in key and processes them in parallel,
// oldest first. It returns when all items are handled or ctx is cancelled;
// items not handled by then are put back on the list.
func (c *Consumer) RunOnce(ctx context.Context, key string) Stats {
	start := time.Now()

	drained := c.source.DrainList(ctx, key)
	if len(drained) == 0 {
		return Stats{}
	}

	// DrainList returns the head first, which is the newest item.
	items := make([]string, len(drained))
	for i, item := range drained {
		items[len(drained)-1-i] = item
	}

	queue := make(chan int, len(items))
	for i := range items {
		queue <- i
	}
	close(queue)

	var (
		mu      sync.Mutex
		stats   Stats
		skipped []int
		wg      sync.WaitGroup
	)
	for i := 0; i < c.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for idx := range queue {
				if ctx.Err() != nil {
					mu.Lock()
					skipped = append(skipped, idx)
					mu.Unlock()
					continue
				}

				ok := c.handle(ctx, key, items[idx], workerID)

				mu.Lock()
				if ok {
					stats.Processed++
				} else {
					stats.Failed++
				}
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if len(skipped) > 0 {
		stats.Requeued = c.requeue(ctx, key, items, skipped)
	}

	c.logger.Info().
		Str("key", key).
		Int("processed", stats.Processed).
		Int("failed", stats.Failed).
		Int("requeued", stats.Requeued).
		Dur("duration", time.Since(start)).
		Msg("Batch complete")

	return stats
}

// requeue puts the skipped items back in their original order. ctx is
// already cancelled here, so the push gets its own deadline.
func (c *Consumer) requeue(ctx context.Context, key string, items []string, skipped []int) int {
	sort.Ints(skipped)
	rest := make([]string, len(skipped))
	for i, idx := range skipped {
		rest[i] = items[idx]
	}

	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.config.Timeout)
	defer cancel()

	if !c.source.Requeue(pushCtx, key, rest...) {
		c.logger.Error().
			Str("key", key).
			Strs("items", rest).
			Msg("Failed to requeue unprocessed items")
		return 0
	}
	return len(rest)
}

func (c *Consumer) handle(ctx context.Context, key, item string, workerID int) bool {
	itemCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	if err := c.handler.Handle(itemCtx, item); err != nil {
		processed.WithLabelValues(key, "failed").Inc()
		c.logger.Warn().
			Err(err).
			Int("worker_id", workerID).
			Str("key", key).
			Str("item", item).
			Msg("Job handler failed")
		return false
	}

	processed.WithLabelValues(key, "ok").Inc()
	return true
}
