// Package cache provides a bounded LRU cache whose entries can be pinned.
//
// A pinned entry is in use by someone outside the cache (for example a
// texture bound to a command buffer that has not completed yet) and is never
// evicted. When the cache is full and every entry is pinned, Acquire fails
// with [ErrFull] instead of growing.
//
//	c := cache.New[key, *entry](8, func(k key, e *entry) { e.destroy() })
//	v, err := c.Acquire(k, create)
//	...
//	c.Release(k)
//
// Cache is safe for concurrent use and must not be copied after creation.
package cache
