package pagecache

import (
	"time"

	"github.com/Sternrassler/page-cache/pkg/config"
)

// DefaultWriteTimeout bounds one background store write.
const DefaultWriteTimeout = 5 * time.Second

// Config holds the page cache settings (section Cache:CachePage).
type Config struct {
	// Enabled turns the middleware on. When false every request passes through.
	Enabled bool

	// ExcludedPathPattern is an optional regular expression matched
	// case-insensitively against host+path. Matching requests are not cached.
	ExcludedPathPattern string

	// KeyPrefix is prepended to every cache key.
	KeyPrefix string

	// LegacySeparatorOnError joins path segments with ':' instead of '-'
	// when device detection fails, matching keys written by older deployments.
	LegacySeparatorOnError bool

	// WriteTimeout bounds each background store write.
	WriteTimeout time.Duration
}

// DefaultConfig returns a disabled configuration.
func DefaultConfig() Config {
	return Config{
		LegacySeparatorOnError: true,
		WriteTimeout:           DefaultWriteTimeout,
	}
}

// ConfigFromSettings reads Cache:CachePage.
func ConfigFromSettings(s *config.Settings) Config {
	def := DefaultConfig()
	return Config{
		Enabled:                s.Bool("Cache:CachePage:Used", def.Enabled),
		ExcludedPathPattern:    s.String("Cache:CachePage:ExcludedPathPattern", ""),
		KeyPrefix:              s.String("Cache:CachePage:KeyPrefix", ""),
		LegacySeparatorOnError: s.Bool("Cache:CachePage:LegacySeparatorOnError", def.LegacySeparatorOnError),
		WriteTimeout:           s.Duration("Cache:CachePage:WriteTimeout", def.WriteTimeout),
	}
}
