// Package cache provides the bounded recency cache fronting the document
// store. Entries are kept most-recently-used first; a hit promotes, an insert
// past capacity evicts from the back. There is no time-based expiry.
package cache

import "sync"

// DefaultCapacity bounds each cache kind unless overridden.
const DefaultCapacity = 1000

// Entry is anything the cache can index: addressable by logical key and by
// opaque id.
type Entry interface {
	LogicalKey() string
	OpaqueID() string
}

// Recency is a bounded MRU-ordered container. Lookup matches on logical key
// OR opaque id (inclusive or), never both-required.
type Recency[T Entry] struct {
	mu    sync.RWMutex
	cap   int
	items []T
}

func New[T Entry](capacity int) *Recency[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Recency[T]{cap: capacity}
}

// Put inserts at the front and evicts from the back until within capacity.
func (c *Recency[T]) Put(item T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append([]T{item}, c.items...)
	for len(c.items) > c.cap {
		c.items = c.items[:len(c.items)-1]
	}
}

func match[T Entry](item T, logicalKey, opaqueID string) bool {
	if logicalKey != "" && item.LogicalKey() == logicalKey {
		return true
	}
	if opaqueID != "" && item.OpaqueID() == opaqueID {
		return true
	}
	return false
}

// Find returns the first entry matching either key and moves it to the front.
func (c *Recency[T]) Find(logicalKey, opaqueID string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, item := range c.items {
		if match(item, logicalKey, opaqueID) {
			copy(c.items[1:i+1], c.items[:i])
			c.items[0] = item
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Remove drops the first entry matching either key.
func (c *Recency[T]) Remove(logicalKey, opaqueID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, item := range c.items {
		if match(item, logicalKey, opaqueID) {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return true
		}
	}
	return false
}

func (c *Recency[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Items returns a snapshot in recency order, most recent first.
func (c *Recency[T]) Items() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}
