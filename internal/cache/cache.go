// Package cache provides a small generic expiring cache shared by the RAG
// processor and the per-turn injector. Entries are best-effort: dropping or
// clearing the cache at any time is safe, the authoritative data always
// lives in the memory store.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Expiring is a TTL cache keyed by K. Expired entries are evicted lazily on
// read and in bulk by Purge. Safe for concurrent use.
type Expiring[K comparable, V any] struct {
	ttl time.Duration
	mu  sync.RWMutex
	m   map[K]entry[V]
	now func() time.Time
}

// New creates a cache whose entries live for ttl. A ttl <= 0 disables
// caching entirely: Set becomes a no-op and Get always misses.
func New[K comparable, V any](ttl time.Duration) *Expiring[K, V] {
	return &Expiring[K, V]{
		ttl: ttl,
		m:   make(map[K]entry[V]),
		now: time.Now,
	}
}

// Get returns the cached value and true on a live hit.
func (c *Expiring[K, V]) Get(key K) (V, bool) {
	var zero V
	if c.ttl <= 0 {
		return zero, false
	}

	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()

	if !ok {
		return zero, false
	}
	if c.now().After(e.expiresAt) {
		c.mu.Lock()
		// re-check under the write lock, a Set may have raced the eviction
		if cur, ok := c.m[key]; ok && c.now().After(cur.expiresAt) {
			delete(c.m, key)
		}
		c.mu.Unlock()
		return zero, false
	}
	return e.value, true
}

// Set stores value under key for the configured TTL.
func (c *Expiring[K, V]) Set(key K, value V) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.m[key] = entry[V]{value: value, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// Delete removes key if present.
func (c *Expiring[K, V]) Delete(key K) {
	c.mu.Lock()
	delete(c.m, key)
	c.mu.Unlock()
}

// Purge evicts every expired entry and returns how many were removed.
func (c *Expiring[K, V]) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for k, e := range c.m {
		if now.After(e.expiresAt) {
			delete(c.m, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries currently held, expired or not.
func (c *Expiring[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

// Clear drops all entries.
func (c *Expiring[K, V]) Clear() {
	c.mu.Lock()
	c.m = make(map[K]entry[V])
	c.mu.Unlock()
}
