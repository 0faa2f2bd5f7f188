// Package ttlcache is a size bounded in-process cache whose entries expire.
package ttlcache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// Cache maps string keys to values of type V.
type Cache[V any] struct {
	cache *lru.Cache
	ttl   time.Duration
	now   func() time.Time
	mu    sync.Mutex
}

type cacheEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// New builds a cache holding at most maxSize entries for ttl each.
func New[V any](maxSize int, ttl time.Duration) (*Cache[V], error) {
	cache, err := lru.New(maxSize)
	if err != nil {
		return nil, err
	}
	return &Cache[V]{cache: cache, ttl: ttl, now: time.Now}, nil
}

// Get returns the value for key if present and not expired.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	val, ok := c.cache.Get(key)
	if !ok {
		return zero, false
	}
	entry := val.(cacheEntry[V])
	if c.now().After(entry.expiresAt) {
		c.cache.Remove(key)
		return zero, false
	}
	return entry.value, true
}

// Set stores value under key with the cache TTL.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Add(key, cacheEntry[V]{value: value, expiresAt: c.now().Add(c.ttl)})
}

// Remove drops key.
func (c *Cache[V]) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Remove(key)
}

// Purge drops every entry.
func (c *Cache[V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Purge()
}

// GetOrLoad returns the cached value or calls load and caches its result.
// Load errors are returned and nothing is cached.
func (c *Cache[V]) GetOrLoad(key string, load func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	c.Set(key, v)
	return v, nil
}
