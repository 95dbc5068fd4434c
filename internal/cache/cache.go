package cache

import (
	"errors"
	"sync"
)

// ErrFull is returned by Acquire when a new entry is needed, the cache is
// at capacity and every entry is pinned.
var ErrFull = errors.New("cache: full and every entry is pinned")

// Cache is a bounded LRU cache with pinning.
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	entries  map[K]*lruNode[K, V]
	order    lruList[K, V]
	capacity int
	onEvict  func(K, V)

	hits      uint64
	misses    uint64
	evictions uint64
}

// New creates a cache holding at most capacity entries. onEvict, if not
// nil, is called for every entry that leaves the cache, outside the lock.
// A capacity below 1 is treated as 1.
func New[K comparable, V any](capacity int, onEvict func(K, V)) *Cache[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	return &Cache[K, V]{
		entries:  make(map[K]*lruNode[K, V], capacity),
		capacity: capacity,
		onEvict:  onEvict,
	}
}

// Acquire returns the value stored under key and pins it. On a miss the
// value is built with create, stored and pinned. create runs under the
// cache lock so that concurrent misses on the same key build it once.
//
// Every successful Acquire must be balanced by a Release.
func (c *Cache[K, V]) Acquire(key K, create func() (V, error)) (V, error) {
	var evicted []*lruNode[K, V]
	defer func() { c.notify(evicted) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	if n, ok := c.entries[key]; ok {
		c.hits++
		n.pins++
		c.order.moveToFront(n)
		return n.value, nil
	}
	c.misses++

	for len(c.entries) >= c.capacity {
		victim := c.order.oldestUnpinned()
		if victim == nil {
			var zero V
			return zero, ErrFull
		}
		c.remove(victim)
		evicted = append(evicted, victim)
	}

	value, err := create()
	if err != nil {
		var zero V
		return zero, err
	}
	n := &lruNode[K, V]{key: key, value: value, pins: 1}
	c.entries[key] = n
	c.order.pushFront(n)
	return value, nil
}

// Release drops one pin from key. Releasing an unknown or unpinned key is
// a no-op.
func (c *Cache[K, V]) Release(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n, ok := c.entries[key]; ok && n.pins > 0 {
		n.pins--
	}
}

// Contains reports whether key is cached, without touching its recency.
func (c *Cache[K, V]) Contains(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.entries[key]
	return ok
}

// Purge evicts every unpinned entry and returns how many were evicted.
func (c *Cache[K, V]) Purge() int {
	var evicted []*lruNode[K, V]
	c.mu.Lock()
	for n := c.order.tail; n != nil; {
		prev := n.prev
		if n.pins == 0 {
			c.remove(n)
			evicted = append(evicted, n)
		}
		n = prev
	}
	c.mu.Unlock()

	c.notify(evicted)
	return len(evicted)
}

// Clear evicts every entry, pinned or not.
func (c *Cache[K, V]) Clear() {
	var evicted []*lruNode[K, V]
	c.mu.Lock()
	for n := c.order.tail; n != nil; {
		prev := n.prev
		c.remove(n)
		evicted = append(evicted, n)
		n = prev
	}
	c.mu.Unlock()

	c.notify(evicted)
}

// Len returns the number of entries in the cache.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Capacity returns the maximum number of entries.
func (c *Cache[K, V]) Capacity() int {
	return c.capacity
}

// Stats returns cache statistics.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	pinned := 0
	for _, n := range c.entries {
		if n.pins > 0 {
			pinned++
		}
	}
	return Stats{
		Len:       len(c.entries),
		Capacity:  c.capacity,
		Pinned:    pinned,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

// remove unlinks n. Caller must hold c.mu.
func (c *Cache[K, V]) remove(n *lruNode[K, V]) {
	delete(c.entries, n.key)
	c.order.unlink(n)
	c.evictions++
}

func (c *Cache[K, V]) notify(evicted []*lruNode[K, V]) {
	if c.onEvict == nil {
		return
	}
	for _, n := range evicted {
		c.onEvict(n.key, n.value)
	}
}

// Stats contains cache statistics.
type Stats struct {
	// Len is the current number of entries.
	Len int
	// Capacity is the maximum number of entries.
	Capacity int
	// Pinned is the number of entries with at least one pin.
	Pinned int
	// Hits is the number of Acquire calls served from the cache.
	Hits uint64
	// Misses is the number of Acquire calls that needed a new entry.
	Misses uint64
	// Evictions is the number of entries removed from the cache.
	Evictions uint64
}
