package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyKey is returned for blank removal items.
	ErrEmptyKey = errors.New("empty cache key")

	// ErrRemoveUnconfirmed is returned when the store could not confirm
	// that a key is gone.
	ErrRemoveUnconfirmed = errors.New("cache key removal unconfirmed")
)

// Remover deletes cache keys. store.Cache implements it.
type Remover interface {
	Remove(ctx context.Context, key string) bool
	Exists(ctx context.Context, key string) (exists, ok bool)
}

// RemoveKeys returns a handler that deletes the cache key named by each
// item. Removing a key that does not exist is not an error; a removal the
// store cannot confirm fails the item.
func RemoveKeys(r Remover) HandlerFunc {
	return func(ctx context.Context, item string) error {
		key := strings.TrimSpace(item)
		if key == "" {
			return ErrEmptyKey
		}
		if r.Remove(ctx, key) {
			return nil
		}

		// Remove reports false for missing keys and for store failures.
		exists, ok := r.Exists(ctx, key)
		if !ok || exists {
			return fmt.Errorf("remove %q: %w", key, ErrRemoveUnconfirmed)
		}
		return nil
	}
}
