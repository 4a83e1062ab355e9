// SPDX-License-Identifier: MIT

// Package cache provides a typed cache with TTL support, used to skip
// repeated metadata extraction for identical payloads.
package cache

import (
	"sync"
	"time"
)

// Cache provides thread-safe caching with expiration support.
type Cache[T any] interface {
	// Get retrieves a value from the cache. The second return is false
	// if the key is absent or expired.
	Get(key string) (T, bool)
	// Set stores a value in the cache with the specified TTL.
	Set(key string, value T, ttl time.Duration)
	// Delete removes a value from the cache.
	Delete(key string)
	// Clear removes all values from the cache.
	Clear()
	// Stats returns cache statistics.
	Stats() Stats
	// Close releases backend resources.
	Close() error
}

// Stats holds cache performance metrics.
type Stats struct {
	Hits        int64 // successful Get operations
	Misses      int64 // failed Get operations (not found or expired)
	Sets        int64 // Set operations
	Evictions   int64 // expired entries cleaned up
	CurrentSize int   // current number of cached entries
}

type entry[T any] struct {
	value      T
	expiration time.Time
}

func (e *entry[T]) isExpired() bool {
	return time.Now().After(e.expiration)
}

// memoryCache is an in-memory implementation of Cache.
type memoryCache[T any] struct {
	mu      sync.RWMutex
	entries map[string]*entry[T]
	stats   Stats
	janitor *janitor[T]
}

// NewMemoryCache creates a new in-memory cache with automatic cleanup.
// The cleanupInterval determines how often expired entries are removed;
// zero disables the cleanup goroutine.
func NewMemoryCache[T any](cleanupInterval time.Duration) Cache[T] {
	c := &memoryCache[T]{
		entries: make(map[string]*entry[T]),
	}

	if cleanupInterval > 0 {
		c.janitor = &janitor[T]{
			interval: cleanupInterval,
			stop:     make(chan struct{}),
		}
		go c.janitor.run(c)
	}

	return c
}

func (c *memoryCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	e, found := c.entries[key]
	if !found || e.isExpired() {
		c.stats.Misses++
		return zero, false
	}

	c.stats.Hits++
	return e.value, true
}

func (c *memoryCache[T]) Set(key string, value T, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &entry[T]{
		value:      value,
		expiration: time.Now().Add(ttl),
	}
	c.stats.Sets++
}

func (c *memoryCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *memoryCache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry[T])
}

func (c *memoryCache[T]) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := c.stats
	stats.CurrentSize = len(c.entries)
	return stats
}

func (c *memoryCache[T]) Close() error {
	if c.janitor != nil {
		c.janitor.stopOnce.Do(func() { close(c.janitor.stop) })
	}
	return nil
}

// janitor periodically evicts expired entries.
type janitor[T any] struct {
	interval time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

func (j *janitor[T]) run(c *memoryCache[T]) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.evictExpired()
		case <-j.stop:
			return
		}
	}
}

func (c *memoryCache[T]) evictExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, e := range c.entries {
		if e.isExpired() {
			delete(c.entries, key)
			c.stats.Evictions++
		}
	}
}
