// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package drift

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/AleutianAI/DocDrift/services/drift/decision"
	"github.com/AleutianAI/DocDrift/services/drift/docmeta"
)

// lruCache is a thread-safe fixed-size LRU cache.
//
// Uses container/list for O(1) access and eviction. Front = most
// recent, back = least recent.
//
// Thread Safety: all methods are safe for concurrent use.
type lruCache[K comparable, V any] struct {
	mu       sync.RWMutex
	capacity int
	items    map[K]*list.Element
	order    *list.List

	// Stats (atomic for lock-free reads)
	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// lruEntry holds the key-value pair in the list.
type lruEntry[K comparable, V any] struct {
	key   K
	value V
}

// newLRUCache creates an LRU cache. Capacity <= 0 falls back to 100.
func newLRUCache[K comparable, V any](capacity int) *lruCache[K, V] {
	if capacity <= 0 {
		capacity = 100
	}
	return &lruCache[K, V]{
		capacity: capacity,
		items:    make(map[K]*list.Element, capacity),
		order:    list.New(),
	}
}

// Get returns the value for key and marks it most recently used.
func (c *lruCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		c.hits.Add(1)
		return elem.Value.(*lruEntry[K, V]).value, true
	}

	c.misses.Add(1)
	var zero V
	return zero, false
}

// Set adds or updates a value, evicting the least recently used entry
// when at capacity.
func (c *lruCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		elem.Value.(*lruEntry[K, V]).value = value
		return
	}

	if c.order.Len() >= c.capacity {
		if elem := c.order.Back(); elem != nil {
			c.removeElement(elem)
			c.evictions.Add(1)
		}
	}

	entry := &lruEntry[K, V]{key: key, value: value}
	c.items[key] = c.order.PushFront(entry)
}

// Len returns the number of entries.
func (c *lruCache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.order.Len()
}

// Stats returns hit/miss/eviction counters.
func (c *lruCache[K, V]) Stats() (hits, misses, evictions int64) {
	return c.hits.Load(), c.misses.Load(), c.evictions.Load()
}

// removeElement removes an element from both the list and map.
// Caller must hold the write lock.
func (c *lruCache[K, V]) removeElement(elem *list.Element) {
	c.order.Remove(elem)
	entry := elem.Value.(*lruEntry[K, V])
	delete(c.items, entry.key)
}

// decisionCache memoizes engine verdicts for direct analysis requests.
//
// # Description
//
// The engine is deterministic, so a verdict can be reused as long as the
// inputs that feed it are unchanged. Keys hash the file path, both
// source versions, and the documentation content; any edit to any of
// them forms a different key, which makes invalidation automatic.
//
// # Thread Safety
//
// Safe for concurrent use. singleflight collapses concurrent requests
// for the same key into one engine run.
type decisionCache struct {
	lru    *lruCache[string, *decision.Result]
	flight singleflight.Group
}

// newDecisionCache creates a cache holding up to capacity verdicts.
func newDecisionCache(capacity int) *decisionCache {
	return &decisionCache{
		lru: newLRUCache[string, *decision.Result](capacity),
	}
}

// key derives the cache key from everything the engine reads.
func (c *decisionCache) key(filePath, oldSource, newSource string, doc *docmeta.Metadata) string {
	h := sha256.New()
	io.WriteString(h, filePath)
	h.Write([]byte{0})
	io.WriteString(h, oldSource)
	h.Write([]byte{0})
	io.WriteString(h, newSource)
	h.Write([]byte{0})
	if doc != nil {
		io.WriteString(h, doc.Path)
		h.Write([]byte{0})
		io.WriteString(h, doc.Content)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// getOrDecide returns the cached verdict for key or runs decide once.
//
// Concurrent callers with the same key share a single decide call.
func (c *decisionCache) getOrDecide(key string, decide func() *decision.Result) *decision.Result {
	if res, ok := c.lru.Get(key); ok {
		return res
	}

	v, _, _ := c.flight.Do(key, func() (interface{}, error) {
		// Double-check: may have been populated while waiting.
		if res, ok := c.lru.Get(key); ok {
			return res, nil
		}
		res := decide()
		c.lru.Set(key, res)
		return res, nil
	})
	return v.(*decision.Result)
}

// Stats returns hit/miss/eviction counters for readiness reporting.
func (c *decisionCache) Stats() (hits, misses, evictions int64) {
	return c.lru.Stats()
}
