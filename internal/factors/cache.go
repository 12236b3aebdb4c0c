package factors

import (
	"sync"
	"time"
)

// Cache is the process-local store backing the resolver. Entries are stamped
// on write and expired lazily by the resolver; a stale-but-recent read within
// the TTL window is acceptable, so no cross-request linearizability is
// required beyond what the mutex provides.
type Cache interface {
	Get(key string) (Resolved, time.Time, bool)
	Set(key string, value Resolved, storedAt time.Time)
	Delete(key string)
	Clear()
}

type memoryCacheEntry struct {
	value    Resolved
	storedAt time.Time
}

// MemoryCache is the in-process Cache implementation shared by concurrent
// calculation requests within one process. Each process holds its own cache;
// there is no cross-process invalidation.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryCacheEntry
}

// NewMemoryCache returns an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryCacheEntry)}
}

// Get returns the cached value and its write timestamp.
func (c *MemoryCache) Get(key string) (Resolved, time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	if !ok {
		return Resolved{}, time.Time{}, false
	}
	return entry.value, entry.storedAt, true
}

// Set stores the value with the provided write timestamp.
func (c *MemoryCache) Set(key string, value Resolved, storedAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryCacheEntry{value: value, storedAt: storedAt}
}

// Delete removes a single entry; used for lazy TTL expiry.
func (c *MemoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear resets the cache for this process.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]memoryCacheEntry)
}

// Len reports the number of live entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
