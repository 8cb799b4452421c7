package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// MemoryCache is a process-local TTL cache with a capacity ceiling.
// Eviction is oldest-first by insertion order; expired entries are dropped
// lazily on read and eagerly when capacity is reached.
type MemoryCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	order    *list.List // front = oldest

	// now is swappable for tests.
	now func() time.Time
}

type memoryEntry struct {
	key       string
	value     string
	expiresAt time.Time
}

// NewMemoryCache creates a capacity-bounded in-memory cache.
func NewMemoryCache(capacity int) *MemoryCache {
	if capacity <= 0 {
		capacity = DefaultQueryCapacity
	}
	return &MemoryCache{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
		now:      time.Now,
	}
}

var _ Cache = (*MemoryCache)(nil)

// Get returns the cached value if present and unexpired.
func (c *MemoryCache) Get(_ context.Context, key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return "", false
	}
	entry := el.Value.(*memoryEntry)
	if c.now().After(entry.expiresAt) {
		c.removeLocked(el)
		return "", false
	}
	return entry.value, true
}

// Set stores a value with the given TTL, evicting the oldest entry when the
// capacity ceiling is reached.
func (c *MemoryCache) Set(_ context.Context, key, value string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.removeLocked(el)
	}
	for c.order.Len() >= c.capacity {
		oldest := c.order.Front()
		if oldest == nil {
			break
		}
		c.removeLocked(oldest)
	}
	el := c.order.PushBack(&memoryEntry{key: key, value: value, expiresAt: c.now().Add(ttl)})
	c.entries[key] = el
}

// Len reports the number of live entries, counting expired but uncollected ones.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *MemoryCache) removeLocked(el *list.Element) {
	entry := el.Value.(*memoryEntry)
	c.order.Remove(el)
	delete(c.entries, entry.key)
}
