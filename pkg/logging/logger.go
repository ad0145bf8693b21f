// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/page-cache/pkg/config"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// ConfigFromSettings reads Logging:Level and Logging:Pretty.
func ConfigFromSettings(s *config.Settings) Config {
	cfg := DefaultConfig()
	cfg.Level = LogLevel(s.String("Logging:Level", string(LevelInfo)))
	cfg.Pretty = s.Bool("Logging:Pretty", false)
	return cfg
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Cache lookups (hit/miss, key, device)
//   - Policy resolution (controller, action, ttl)
//   - Payloads above the monitoring size threshold
//   - Connection health checks
//
// Info: Normal operation events
//   - Store connections established
//   - Server startup/shutdown
//   - Job consumer start/stop
//
// Warn: Warning conditions that don't prevent operation
//   - Store errors (the cache fails open)
//   - Device detection failures (desktop fallback)
//   - Policy lookup errors
//   - Job handler failures
//
// Error: Error conditions requiring attention
//   - Panics recovered from background store writes
//   - Configuration errors
//
// Context Fields:
//   - component: emitting package
//   - key: cache or queue key
//   - role: store connection role (read, write)
//   - operation: store operation (get, set, remove, enqueue, ...)
//   - device: device class (desktop, mobile)
//   - url: host+path of the request
//   - ttl: cache entry TTL
//   - size: encoded payload size in bytes
