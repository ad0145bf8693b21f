package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/page-cache/internal/testutil"
	"github.com/Sternrassler/page-cache/pkg/store"
)

func TestRemoveKeys(t *testing.T) {
	mr, host, port := testutil.MiniRedis(t)
	cfg := store.DefaultConfig()
	cfg.Server = host
	cfg.Port = port

	conns := store.NewConnectionManager(cfg, zerolog.Nop())
	t.Cleanup(func() { conns.Close() })
	cache := store.NewCache(conns, nil, zerolog.Nop())
	queue := store.NewQueue(conns, zerolog.Nop())

	ctx := context.Background()
	cache.Set(ctx, "products:desktop", "<html></html>", time.Hour)
	cache.Set(ctx, "home:mobile", "<html></html>", time.Hour)

	queue.Push(ctx, RemoveQueue, "products:desktop")
	queue.Push(ctx, RemoveQueue, " home:mobile ")
	queue.Push(ctx, RemoveQueue, "missing:desktop")
	queue.Push(ctx, RemoveQueue, "   ")

	stats := NewConsumer(queue, RemoveKeys(cache), fastConfig(), zerolog.Nop()).RunOnce(ctx, RemoveQueue)

	if stats.Processed != 3 || stats.Failed != 1 {
		t.Errorf("RunOnce() = %+v, want 3 processed, 1 failed", stats)
	}
	if mr.Exists("products:desktop") || mr.Exists("home:mobile") {
		t.Error("cache keys should be removed")
	}
}

// fakeRemover scripts Remove and Exists results.
type fakeRemover struct {
	removed   bool
	exists    bool
	reachable bool
}

func (f fakeRemover) Remove(context.Context, string) bool { return f.removed }

func (f fakeRemover) Exists(context.Context, string) (bool, bool) {
	return f.exists, f.reachable
}

func TestRemoveKeys_Outcomes(t *testing.T) {
	tests := []struct {
		name    string
		remover fakeRemover
		item    string
		wantErr error
	}{
		{"removed", fakeRemover{removed: true}, "home:desktop", nil},
		{"already gone", fakeRemover{reachable: true}, "home:desktop", nil},
		{"store unavailable", fakeRemover{}, "home:desktop", ErrRemoveUnconfirmed},
		{"still present", fakeRemover{exists: true, reachable: true}, "home:desktop", ErrRemoveUnconfirmed},
		{"blank item", fakeRemover{removed: true}, "  ", ErrEmptyKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RemoveKeys(tt.remover)(context.Background(), tt.item)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("RemoveKeys() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRemoveKeys_StoreDownFailsItem(t *testing.T) {
	mr, host, port := testutil.MiniRedis(t)
	cfg := store.DefaultConfig()
	cfg.Server = host
	cfg.Port = port

	conns := store.NewConnectionManager(cfg, zerolog.Nop())
	t.Cleanup(func() { conns.Close() })
	cache := store.NewCache(conns, nil, zerolog.Nop())

	ctx := context.Background()
	cache.Set(ctx, "products:desktop", "<html></html>", time.Hour)
	mr.SetError("ERR simulated failure")

	err := RemoveKeys(cache)(ctx, "products:desktop")
	if !errors.Is(err, ErrRemoveUnconfirmed) {
		t.Errorf("RemoveKeys() error = %v, want %v", err, ErrRemoveUnconfirmed)
	}

	mr.SetError("")
	if !mr.Exists("products:desktop") {
		t.Error("entry should survive a failed removal")
	}
}
