// Package cache provides an in-memory LRU and a persistent JSON-backed
// store for parsed entities and symbol lookups.
package cache

import (
	"container/list"
	"sync"
)

// LRU is a size-bounded least-recently-used cache. Safe for concurrent
// use.
type LRU[K comparable, V any] struct {
	mu      sync.Mutex
	maxSize int
	order   *list.List // front = most recent
	items   map[K]*list.Element
	hits    int
	misses  int
}

type lruEntry[K comparable, V any] struct {
	key   K
	value V
}

// NewLRU returns a cache holding at most maxSize items. maxSize <= 0
// defaults to 10000.
func NewLRU[K comparable, V any](maxSize int) *LRU[K, V] {
	if maxSize <= 0 {
		maxSize = 10000
	}
	return &LRU[K, V]{
		maxSize: maxSize,
		order:   list.New(),
		items:   make(map[K]*list.Element),
	}
}

// Get returns the value for key, marking it most recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.order.MoveToFront(el)
		c.hits++
		return el.Value.(*lruEntry[K, V]).value, true
	}
	c.misses++
	var zero V
	return zero, false
}

// Put inserts or updates key, evicting the least recently used entry when
// full.
func (c *LRU[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*lruEntry[K, V]).value = value
		c.order.MoveToFront(el)
		return
	}
	if c.order.Len() >= c.maxSize {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*lruEntry[K, V]).key)
		}
	}
	c.items[key] = c.order.PushFront(&lruEntry[K, V]{key: key, value: value})
}

// Len returns the current item count.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Clear drops all entries and resets the counters.
func (c *LRU[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	clear(c.items)
	c.hits, c.misses = 0, 0
}

// Stats reports hit/miss counters since the last Clear.
type Stats struct {
	Size    int
	MaxSize int
	Hits    int
	Misses  int
}

// HitRate is the fraction of lookups served from the cache, 0 when no
// lookups happened yet.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Stats returns a snapshot of the counters.
func (c *LRU[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Size: c.order.Len(), MaxSize: c.maxSize, Hits: c.hits, Misses: c.misses}
}
