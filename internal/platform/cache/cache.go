// Package cache connects to Dragonfly or Redis, which hold chat sessions and
// AI token budgets when LEARN_CACHE_ENABLED is set.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	dialTimeout  = 5 * time.Second
	ioTimeout    = 3 * time.Second
	clientName   = "pai-practice"
	defaultPool  = 10
	probeTimeout = 2 * time.Second
)

// Cache wraps a Redis/Dragonfly client.
type Cache struct {
	Client redis.UniversalClient
}

// Option adjusts connection settings parsed from the URL.
type Option func(*redis.Options)

// WithPoolSize sets the maximum number of socket connections.
func WithPoolSize(n int) Option {
	return func(o *redis.Options) {
		if n > 0 {
			o.PoolSize = n
		}
	}
}

// ParseURL validates a Redis connection URL.
func ParseURL(url string) (*redis.Options, error) {
	if url == "" {
		return nil, fmt.Errorf("cache URL is empty")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid cache URL: %w", err)
	}
	return opts, nil
}

// New connects to the cache and verifies it answers a PING.
func New(ctx context.Context, url string, options ...Option) (*Cache, error) {
	opts, err := ParseURL(url)
	if err != nil {
		return nil, err
	}

	opts.ClientName = clientName
	opts.DialTimeout = dialTimeout
	opts.ReadTimeout = ioTimeout
	opts.WriteTimeout = ioTimeout
	opts.PoolSize = defaultPool
	for _, o := range options {
		o(opts)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging cache %s: %w", opts.Addr, err)
	}

	return &Cache{Client: client}, nil
}

// Close shuts down the cache client.
func (c *Cache) Close() error {
	return c.Client.Close()
}

// Name identifies the cache in readiness reports.
func (c *Cache) Name() string { return "cache" }

// HealthCheck verifies the cache connection is alive.
func (c *Cache) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("cache ping: %w", err)
	}
	return nil
}
