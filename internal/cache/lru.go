// Package cache implements the three-level cache described in the design:
// a plain recency-tracked LRU, a probatory admission filter stacked on two
// LRUs, and a sharded fan-out of independently locked probatory caches.
package cache

import (
	"time"

	"github.com/ogxd/risu/internal/collections/arenalist"
)

// ExpirationMode selects how an LRU entry's lifetime is computed.
type ExpirationMode int

const (
	// Absolute expiration: lifetime is fixed at admit time.
	Absolute ExpirationMode = iota
	// Sliding expiration: lifetime is extended on every successful read.
	Sliding
)

type lruEntry[V any] struct {
	node      arenalist.Handle
	insertion time.Time
	value     V
}

// LRU maps keys to values with recency tracking via an arena-backed
// intrusive list. It enforces a capacity and an expiration policy; it
// never rejects an admit for being full, it displaces instead (trim runs
// after every successful TryAdd).
type LRU[K comparable, V any] struct {
	list       *arenalist.List[K]
	entries    map[K]*lruEntry[V]
	maxSize    int
	expiration time.Duration
	mode       ExpirationMode
	now        func() time.Time
}

// NewLRU creates an LRU cache with the given capacity, expiration
// duration and expiration mode. A non-positive expiration means entries
// never expire on their own (only capacity evicts them).
func NewLRU[K comparable, V any](maxSize int, expiration time.Duration, mode ExpirationMode) *LRU[K, V] {
	return &LRU[K, V]{
		list:       arenalist.New[K](16),
		entries:    make(map[K]*lruEntry[V]),
		maxSize:    maxSize,
		expiration: expiration,
		mode:       mode,
		now:        time.Now,
	}
}

// TryAdd inserts key/value if key is not already present. Returns true
// iff the key was newly inserted. A successful insert always appends a
// new recency-list tail, even if doing so pushes the cache over
// capacity — trim is run afterwards to restore the invariant.
func (c *LRU[K, V]) TryAdd(key K, value V) bool {
	if _, exists := c.entries[key]; exists {
		return false
	}

	node := c.list.AddLast(key)
	c.entries[key] = &lruEntry[V]{
		node:      node,
		insertion: c.now(),
		value:     value,
	}
	c.trim()
	return true
}

// TryGet looks up key, applying expiration and recency-bump semantics.
// A key read exactly at the expiration boundary is considered live.
func (c *LRU[K, V]) TryGet(key K) (V, bool) {
	var zero V
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}

	if c.expired(e) {
		c.removeEntry(key, e)
		return zero, false
	}

	if c.mode == Sliding {
		e.insertion = c.now()
	}

	// Move to the tail: remove and re-append, recording the new handle.
	_ = c.list.Remove(e.node)
	e.node = c.list.AddLast(key)

	return e.value, true
}

// Len returns the number of entries currently held.
func (c *LRU[K, V]) Len() int { return len(c.entries) }

func (c *LRU[K, V]) expired(e *lruEntry[V]) bool {
	if c.expiration <= 0 {
		return false
	}
	return c.now().Sub(e.insertion) > c.expiration
}

func (c *LRU[K, V]) removeEntry(key K, e *lruEntry[V]) {
	_ = c.list.Remove(e.node)
	delete(c.entries, key)
}

// trim walks the recency list from the head, evicting entries while
// either the cache is over capacity or the head entry has expired. It
// stops at the first head satisfying neither condition.
func (c *LRU[K, V]) trim() {
	for {
		h := c.list.First()
		if h == arenalist.NoHandle {
			return
		}
		keyPtr, err := c.list.Get(h)
		if err != nil {
			return
		}
		key := *keyPtr
		e, ok := c.entries[key]
		if !ok {
			// Shouldn't happen under the invariant, but keep trim total.
			_ = c.list.Remove(h)
			continue
		}

		overCapacity := c.maxSize > 0 && len(c.entries) > c.maxSize
		if overCapacity || c.expired(e) {
			c.removeEntry(key, e)
			continue
		}
		return
	}
}
