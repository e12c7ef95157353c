/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package lrucache

import (
	"container/list"
	"fmt"
	"sync"
)

type cacheEntry[K comparable, V any] struct {
	key   K
	value V
}

// LRUCache represents an LRU cache with eviction mechanism and Prometheus metrics.
type LRUCache[K comparable, V any] struct {
	maxEntries int

	mu      sync.RWMutex
	lruList *list.List
	cache   map[K]*list.Element // map of cache entries, value is a lruList element

	onEvict          func(key K, value V)
	metricsCollector MetricsCollector
}

// Options represents options for the cache.
type Options[K comparable, V any] struct {
	// OnEvict is called (under the cache lock) for every entry removed because the cache is full.
	// Entries removed explicitly (Remove, RemoveFunc, Purge) are not reported.
	OnEvict func(key K, value V)
}

// New creates a new LRUCache with the provided maximum number of entries and metrics collector.
func New[K comparable, V any](maxEntries int, metricsCollector MetricsCollector) (*LRUCache[K, V], error) {
	return NewWithOpts[K, V](maxEntries, metricsCollector, Options[K, V]{})
}

// NewWithOpts creates a new LRUCache with the provided maximum number of entries, metrics collector, and options.
// Metrics collector is used to collect statistics about cache usage.
// It can be nil, in this case, metrics will be disabled.
func NewWithOpts[K comparable, V any](
	maxEntries int, metricsCollector MetricsCollector, opts Options[K, V],
) (*LRUCache[K, V], error) {
	if maxEntries <= 0 {
		return nil, fmt.Errorf("maxEntries must be greater than 0")
	}
	if metricsCollector == nil {
		metricsCollector = disabledMetricsCollector
	}
	return &LRUCache[K, V]{
		maxEntries:       maxEntries,
		lruList:          list.New(),
		cache:            make(map[K]*list.Element),
		onEvict:          opts.OnEvict,
		metricsCollector: metricsCollector,
	}, nil
}

// Get returns a value from the cache by the provided key.
func (c *LRUCache[K, V]) Get(key K) (value V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.get(key)
}

// Add adds a value to the cache with the provided key.
// If the cache is full, the least recently used entry will be removed.
func (c *LRUCache[K, V]) Add(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		c.lruList.MoveToFront(elem)
		elem.Value = &cacheEntry[K, V]{key: key, value: value}
		return
	}
	c.addNew(key, value)
}

// GetOrAdd returns a value from the cache by the provided key.
// If the key does not exist, it adds a new value (produced by valueProvider) to the cache.
func (c *LRUCache[K, V]) GetOrAdd(key K, valueProvider func() V) (value V, exists bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if value, exists = c.get(key); exists {
		return value, exists
	}
	value = valueProvider()
	c.addNew(key, value)
	return value, false
}

// Remove removes a value from the cache by the provided key.
func (c *LRUCache[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.cache[key]
	if !ok {
		return false
	}

	c.lruList.Remove(elem)
	delete(c.cache, key)
	c.metricsCollector.SetAmount(len(c.cache))
	return true
}

// RemoveFunc removes all entries for which shouldRemove returns true and returns the number of removed entries.
// shouldRemove is called under the cache lock, so it must not call other cache methods.
func (c *LRUCache[K, V]) RemoveFunc(shouldRemove func(key K, value V) bool) (removed int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for elem := c.lruList.Back(); elem != nil; {
		prev := elem.Prev()
		entry := elem.Value.(*cacheEntry[K, V])
		if shouldRemove(entry.key, entry.value) {
			c.lruList.Remove(elem)
			delete(c.cache, entry.key)
			removed++
		}
		elem = prev
	}
	if removed > 0 {
		c.metricsCollector.SetAmount(len(c.cache))
	}
	return removed
}

// Purge clears the cache.
// Keep in mind that this method does not reset Prometheus metrics except for the total number of entries.
// All removed entries will not be counted as evictions.
func (c *LRUCache[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.metricsCollector.SetAmount(0)
	c.cache = make(map[K]*list.Element)
	c.lruList.Init()
}

// Len returns the number of items in the cache.
func (c *LRUCache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

func (c *LRUCache[K, V]) get(key K) (value V, ok bool) {
	elem, hit := c.cache[key]
	if !hit {
		c.metricsCollector.IncMisses()
		return value, false
	}
	c.lruList.MoveToFront(elem)
	c.metricsCollector.IncHits()
	return elem.Value.(*cacheEntry[K, V]).value, true
}

func (c *LRUCache[K, V]) addNew(key K, value V) {
	c.cache[key] = c.lruList.PushFront(&cacheEntry[K, V]{key: key, value: value})
	if len(c.cache) <= c.maxEntries {
		c.metricsCollector.SetAmount(len(c.cache))
		return
	}
	if evictedEntry := c.removeOldest(); evictedEntry != nil {
		c.metricsCollector.AddEvictions(1)
		if c.onEvict != nil {
			c.onEvict(evictedEntry.key, evictedEntry.value)
		}
	}
}

func (c *LRUCache[K, V]) removeOldest() *cacheEntry[K, V] {
	elem := c.lruList.Back()
	if elem == nil {
		return nil
	}
	c.lruList.Remove(elem)
	entry := elem.Value.(*cacheEntry[K, V])
	delete(c.cache, entry.key)
	return entry
}
