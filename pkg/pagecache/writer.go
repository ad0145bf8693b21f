package pagecache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrWriterClosed is returned by Submit after Close.
var ErrWriterClosed = errors.New("background writer closed")

// BackgroundWriter runs store writes detached from the request that
// produced them. Each write gets its own timeout; panics are recovered.
type BackgroundWriter struct {
	timeout time.Duration
	logger  zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewBackgroundWriter creates a writer. A non-positive timeout selects
// DefaultWriteTimeout.
func NewBackgroundWriter(timeout time.Duration, logger zerolog.Logger) *BackgroundWriter {
	if timeout <= 0 {
		timeout = DefaultWriteTimeout
	}
	return &BackgroundWriter{
		timeout: timeout,
		logger:  logger,
	}
}

// Submit starts fn on its own goroutine.
func (b *BackgroundWriter) Submit(fn func(ctx context.Context)) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrWriterClosed
	}

	b.wg.Add(1)
	go b.run(fn)
	return nil
}

func (b *BackgroundWriter) run(fn func(ctx context.Context)) {
	defer b.wg.Done()
	defer func() {
		if rec := recover(); rec != nil {
			b.logger.Error().
				Interface("panic", rec).
				Msg("Recovered panic in background write")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	fn(ctx)
}

// Wait blocks until all submitted writes have finished.
func (b *BackgroundWriter) Wait() {
	b.wg.Wait()
}

// Close stops accepting writes and waits for pending ones until ctx ends.
func (b *BackgroundWriter) Close(ctx context.Context) error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
