// Package cache provides a small generic TTL cache.
package cache

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type item[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is a concurrency-safe map whose entries expire after a fixed TTL.
type Cache[K comparable, V any] struct {
	ttl   time.Duration
	clock clockwork.Clock

	mu    sync.RWMutex
	items map[K]item[V]

	hits   uint64
	misses uint64
}

// Option customizes a Cache.
type Option func(*options)

type options struct {
	clock clockwork.Clock
}

// WithClock overrides the wall clock.
func WithClock(c clockwork.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// New creates a cache with the given TTL.
func New[K comparable, V any](ttl time.Duration, opts ...Option) *Cache[K, V] {
	o := options{clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[K, V]{
		ttl:   ttl,
		clock: o.clock,
		items: make(map[K]item[V]),
	}
}

// Get returns a live entry.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	it, ok := c.items[key]
	if !ok || !now.Before(it.expiresAt) {
		if ok {
			delete(c.items, key)
		}
		c.misses++
		var zero V
		return zero, false
	}
	c.hits++
	return it.value, true
}

// Set stores value under key for one TTL.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	c.items[key] = item[V]{value: value, expiresAt: c.clock.Now().Add(c.ttl)}
	c.mu.Unlock()
}

// Delete drops key.
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Len counts stored entries, expired ones included until touched or purged.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Purge removes expired entries.
func (c *Cache[K, V]) Purge() {
	now := c.clock.Now()
	c.mu.Lock()
	for k, it := range c.items {
		if !now.Before(it.expiresAt) {
			delete(c.items, k)
		}
	}
	c.mu.Unlock()
}

// HitRate returns hits/(hits+misses), 0 when unused.
func (c *Cache[K, V]) HitRate() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	total := c.hits + c.misses
	if total == 0 {
		return 0
	}
	return float64(c.hits) / float64(total)
}
