// Package ttlcache provides a thread-safe, TTL-based cache with an optional
// maximum entry count. Expired entries are evicted lazily on lookup; when the
// entry bound is exceeded the least recently used entry is dropped.
package ttlcache

import (
	"container/list"
	"sync"
	"time"
)

// Cache is a generic TTL cache safe for concurrent use.
type Cache[K comparable, V any] struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
	items      map[K]*list.Element
	order      *list.List // front is most recently used
}

type entry[K comparable, V any] struct {
	key      K
	value    V
	storedAt time.Time
}

// New creates a cache whose entries live for ttl.
// maxEntries <= 0 disables the size bound.
func New[K comparable, V any](ttl time.Duration, maxEntries int) *Cache[K, V] {
	return &Cache[K, V]{
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
		items:      make(map[K]*list.Element),
		order:      list.New(),
	}
}

// WithClock replaces the time source (for testing).
func (c *Cache[K, V]) WithClock(now func() time.Time) *Cache[K, V] {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
	return c
}

// TTL returns the configured time-to-live.
func (c *Cache[K, V]) TTL() time.Duration {
	return c.ttl
}

// Get returns the value for key if it is younger than the TTL.
// An expired entry is removed and reported as absent.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.items[key]
	if !ok {
		return zero, false
	}
	e := el.Value.(*entry[K, V])
	if c.now().Sub(e.storedAt) >= c.ttl {
		c.removeElement(el)
		return zero, false
	}
	c.order.MoveToFront(el)
	return e.value, true
}

// Set stores value under key, always overwriting.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry[K, V])
		e.value = value
		e.storedAt = now
		c.order.MoveToFront(el)
		return
	}

	c.items[key] = c.order.PushFront(&entry[K, V]{key: key, value: value, storedAt: now})
	if c.maxEntries > 0 && c.order.Len() > c.maxEntries {
		c.removeElement(c.order.Back())
	}
}

// Delete removes key from the cache.
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
}

// Len returns the number of stored entries, including expired ones that
// have not been looked up yet.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Purge removes all entries.
func (c *Cache[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[K]*list.Element)
	c.order.Init()
}

func (c *Cache[K, V]) removeElement(el *list.Element) {
	e := c.order.Remove(el).(*entry[K, V])
	delete(c.items, e.key)
}
