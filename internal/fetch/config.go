package fetch

import (
	"context"
	"fmt"
	"log"
	"strings"

	"legisdraft/api/internal/config"
)

// NewFromConfig builds a Fetcher with the shared cache cfg selects. Redis
// wins when both Redis and Memcached are configured. The returned func
// releases the shared cache connection.
func NewFromConfig(ctx context.Context, cfg config.Config) (*Fetcher, func() error, error) {
	opts := Options{
		Timeout:   cfg.Fetch.Timeout,
		CacheTTL:  cfg.Fetch.CacheTTL,
		Retries:   cfg.Fetch.Retries,
		RPS:       cfg.Fetch.RPS,
		Burst:     cfg.Fetch.Burst,
		UserAgent: cfg.Fetch.UserAgent,
	}
	closeShared := func() error { return nil }

	switch {
	case strings.TrimSpace(cfg.RedisURL) != "":
		redisCache, err := NewRedisCache(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		if err := redisCache.Ping(ctx); err != nil {
			_ = redisCache.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		log.Printf("fetch: using redis shared page cache")
		opts.Shared = redisCache
		closeShared = redisCache.Close
	case strings.TrimSpace(cfg.MemcachedAddr) != "":
		memcached := NewMemcachedCache(cfg.MemcachedAddr)
		if err := memcached.Ping(ctx); err != nil {
			return nil, nil, fmt.Errorf("ping memcached: %w", err)
		}
		log.Printf("fetch: using memcached shared page cache at %s", cfg.MemcachedAddr)
		opts.Shared = memcached
	}

	return New(opts), closeShared, nil
}
