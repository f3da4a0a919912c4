package cache

import (
	"sync"
	"time"

	"github.com/worthit/backend/internal/domain"
)

// cacheItem represents a single item in the cache with expiration.
// A zero Expiration pins the item: it never expires and is never evicted.
type cacheItem[V any] struct {
	Value      V
	Expiration time.Time
}

func (i cacheItem[V]) expired(now time.Time) bool {
	return !i.Expiration.IsZero() && now.After(i.Expiration)
}

// MemoryCache is a thread-safe in-memory cache with TTL support and an
// optional entry cap
type MemoryCache[V any] struct {
	data       map[string]cacheItem[V]
	maxEntries int
	mutex      sync.RWMutex
	stop       chan struct{}
	stopOnce   sync.Once
	now        func() time.Time
}

// NewMemoryCache creates a new in-memory cache. maxEntries <= 0 disables the cap.
func NewMemoryCache[V any](maxEntries int, cleanupInterval time.Duration) *MemoryCache[V] {
	cache := &MemoryCache[V]{
		data:       make(map[string]cacheItem[V]),
		maxEntries: maxEntries,
		stop:       make(chan struct{}),
		now:        time.Now,
	}

	if cleanupInterval <= 0 {
		cleanupInterval = 10 * time.Minute
	}
	go cache.cleanupExpired(cleanupInterval)

	return cache
}

// Get retrieves a value from the cache
func (c *MemoryCache[V]) Get(key string) (V, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var zero V
	item, exists := c.data[key]
	if !exists || item.expired(c.now()) {
		return zero, domain.ErrCacheMiss
	}

	return item.Value, nil
}

// Set stores a value in the cache. ttl <= 0 pins the entry.
func (c *MemoryCache[V]) Set(key string, value V, ttl time.Duration) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	item := cacheItem[V]{Value: value}
	if ttl > 0 {
		item.Expiration = c.now().Add(ttl)
	}

	if _, exists := c.data[key]; !exists && c.maxEntries > 0 && len(c.data) >= c.maxEntries {
		c.evictLocked()
	}
	c.data[key] = item

	return nil
}

// Delete removes a value from the cache
func (c *MemoryCache[V]) Delete(key string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.data, key)
	return nil
}

// evictLocked drops expired entries, then the unpinned entry closest to
// expiry if the cache is still full. Pinned entries may push the cache past
// its cap.
func (c *MemoryCache[V]) evictLocked() {
	now := c.now()
	for key, item := range c.data {
		if item.expired(now) {
			delete(c.data, key)
		}
	}
	if len(c.data) < c.maxEntries {
		return
	}

	var (
		oldestKey string
		oldest    time.Time
	)
	for key, item := range c.data {
		if item.Expiration.IsZero() {
			continue
		}
		if oldestKey == "" || item.Expiration.Before(oldest) {
			oldestKey, oldest = key, item.Expiration
		}
	}
	if oldestKey != "" {
		delete(c.data, oldestKey)
	}
}

// cleanupExpired removes expired entries from the cache periodically
func (c *MemoryCache[V]) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mutex.Lock()
			now := c.now()
			for key, item := range c.data {
				if item.expired(now) {
					delete(c.data, key)
				}
			}
			c.mutex.Unlock()
		case <-c.stop:
			return
		}
	}
}

// Size returns the current number of items in the cache (for debugging/monitoring)
func (c *MemoryCache[V]) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.data)
}

// Close stops the cleanup goroutine
func (c *MemoryCache[V]) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}
