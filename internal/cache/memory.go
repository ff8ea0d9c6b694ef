package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	memoryDefaultTTL      = 5 * time.Minute
	memoryCleanupInterval = 10 * time.Minute
)

// MemoryCache implements Cache in process with patrickmn/go-cache. It backs
// single-instance deployments without Redis.
type MemoryCache struct {
	client *gocache.Cache
}

// NewMemoryCache creates an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{client: gocache.New(memoryDefaultTTL, memoryCleanupInterval)}
}

func (c *MemoryCache) Ping(context.Context) error {
	return nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)
	c.client.Set(key, stored, expiration(ttl))
	return nil
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := c.client.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, true, nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.client.Delete(key)
	return nil
}

// IncrWithExpiry starts a counter with the given expiry; later increments
// keep the window of the first one.
func (c *MemoryCache) IncrWithExpiry(_ context.Context, key string, expiry time.Duration) (int64, error) {
	for {
		if err := c.client.Add(key, int64(1), expiration(expiry)); err == nil {
			return 1, nil
		}
		n, err := c.client.IncrementInt64(key, 1)
		if err == nil {
			return n, nil
		}
		if _, found := c.client.Get(key); found {
			return 0, err
		}
		// The counter expired between Add and IncrementInt64; start over.
	}
}

func expiration(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return gocache.NoExpiration
	}
	return ttl
}
