package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// memcachedMaxItem is the default memcached item size limit.
const memcachedMaxItem = 1 << 20

// MemcachedCache stores fetched pages in memcached. Pages larger than the
// item limit are skipped and stay in the local cache only.
type MemcachedCache struct {
	client *memcache.Client
	prefix string
}

func NewMemcachedCache(addr string) *MemcachedCache {
	return NewMemcachedCacheWithClient(memcache.New(addr))
}

func NewMemcachedCacheWithClient(client *memcache.Client) *MemcachedCache {
	return &MemcachedCache{client: client, prefix: "legis:"}
}

func (c *MemcachedCache) Get(_ context.Context, key string) (string, bool, error) {
	item, err := c.client.Get(c.prefix + key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("memcached get: %w", err)
	}
	return string(item.Value), true, nil
}

func (c *MemcachedCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if len(value) >= memcachedMaxItem {
		return nil
	}
	err := c.client.Set(&memcache.Item{
		Key:        c.prefix + key,
		Value:      []byte(value),
		Expiration: int32(ttl / time.Second),
	})
	if err != nil {
		return fmt.Errorf("memcached set: %w", err)
	}
	return nil
}

func (c *MemcachedCache) Ping(_ context.Context) error {
	return c.client.Ping()
}
