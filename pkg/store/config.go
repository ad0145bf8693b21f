package store

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Sternrassler/page-cache/pkg/codec"
	"github.com/Sternrassler/page-cache/pkg/config"
)

// DefaultSection is the settings section holding the page cache Redis instance.
const DefaultSection = "Cache:Redis:Page"

// Config holds the Redis instance parameters shared by both connection roles.
type Config struct {
	// Server is the Redis host name or IP.
	Server string

	// Port is the Redis TCP port.
	Port int

	// Database is the logical database index.
	Database int

	// Timeout bounds connect, read and write calls. Zero leaves go-redis defaults.
	Timeout time.Duration

	// AuthName and AuthPassword are the ACL credentials (both optional).
	AuthName     string
	AuthPassword string

	// HealthCheckInterval is how long a connection is trusted after a
	// successful PING before it is checked again.
	HealthCheckInterval time.Duration

	// MaxValueSizeForMonitor is the payload size above which encodes are logged.
	MaxValueSizeForMonitor int
}

// DefaultConfig returns a configuration for a local Redis.
func DefaultConfig() Config {
	return Config{
		Server:                 "localhost",
		Port:                   6379,
		Timeout:                5 * time.Second,
		HealthCheckInterval:    5 * time.Second,
		MaxValueSizeForMonitor: codec.DefaultMaxSizeForMonitor,
	}
}

// ConfigFromSettings reads the instance under section (e.g. DefaultSection).
// Timeout is expressed in milliseconds.
func ConfigFromSettings(s *config.Settings, section string) Config {
	def := DefaultConfig()
	key := func(name string) string { return section + ":" + name }

	return Config{
		Server:                 s.String(key("Server"), def.Server),
		Port:                   s.Int(key("Port"), def.Port),
		Database:               s.Int(key("Database"), def.Database),
		Timeout:                time.Duration(s.Int(key("Timeout"), int(def.Timeout/time.Millisecond))) * time.Millisecond,
		AuthName:               s.String(key("AuthName"), ""),
		AuthPassword:           s.String(key("AuthPassword"), ""),
		HealthCheckInterval:    s.Duration(key("HealthCheckInterval"), def.HealthCheckInterval),
		MaxValueSizeForMonitor: s.Int("Cache:Redis:MaxValueSizeForMonitor", def.MaxValueSizeForMonitor),
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Server == "" {
		return fmt.Errorf("redis server is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid redis port: %d", c.Port)
	}
	if c.Database < 0 {
		return fmt.Errorf("invalid redis database: %d", c.Database)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("invalid redis timeout: %s", c.Timeout)
	}
	return nil
}

// Addr returns host:port.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Server, strconv.Itoa(c.Port))
}

// Options builds go-redis client options. Each client keeps a single
// multiplexed pool; MinIdleConns keeps one connection warm.
func (c Config) Options() *redis.Options {
	opts := &redis.Options{
		Addr:         c.Addr(),
		Username:     c.AuthName,
		Password:     c.AuthPassword,
		DB:           c.Database,
		MinIdleConns: 1,
	}
	if c.Timeout > 0 {
		opts.DialTimeout = c.Timeout
		opts.ReadTimeout = c.Timeout
		opts.WriteTimeout = c.Timeout
	}
	return opts
}
