package cache

import (
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// KeyHasher produces a deterministic, fixed-seed hash of a key. xxhash is
// a fast, non-cryptographic hash; collision resistance good enough for
// cache keying is all shard selection needs.
type KeyHasher[K comparable] func(K) uint64

// StringKeyHasher hashes a key by way of its string representation.
func StringKeyHasher[K ~string]() KeyHasher[K] {
	return func(k K) uint64 {
		return xxhash.Sum64String(string(k))
	}
}

// BytesKeyHasher hashes a fixed-size byte-array key (e.g. a 128-bit
// fingerprint) directly, with no intermediate allocation.
func BytesKeyHasher[K ~[16]byte]() KeyHasher[K] {
	return func(k K) uint64 {
		return xxhash.Sum64(k[:])
	}
}

// Sharded fans a Probatory cache out over a fixed number of independently
// locked shards, selected by a stable hash of the key. A key's shard is
// stable for the process lifetime given a fixed shard count.
type Sharded[K comparable, V any] struct {
	shards []*shard[K, V]
	hash   KeyHasher[K]
}

type shard[K comparable, V any] struct {
	mu    sync.Mutex
	cache *Probatory[K, V]
}

// NewSharded creates a sharded cache of n independently locked probatory
// caches, each with the given resident capacity, expiration and mode.
func NewSharded[K comparable, V any](n int, residentSize int, expiration time.Duration, mode ExpirationMode, hash KeyHasher[K]) *Sharded[K, V] {
	if n < 1 {
		n = 1
	}
	s := &Sharded[K, V]{
		shards: make([]*shard[K, V], n),
		hash:   hash,
	}
	for i := range s.shards {
		s.shards[i] = &shard[K, V]{cache: NewProbatory[K, V](residentSize, expiration, mode)}
	}
	return s
}

func (s *Sharded[K, V]) shardFor(key K) *shard[K, V] {
	idx := int(s.hash(key) % uint64(len(s.shards)))
	return s.shards[idx]
}

// TryAdd admits key/value into the owning shard's probatory cache.
func (s *Sharded[K, V]) TryAdd(key K, value V) bool {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.cache.TryAdd(key, value)
}

// TryGet looks up key in the owning shard's resident tier.
func (s *Sharded[K, V]) TryGet(key K) (V, bool) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.cache.TryGet(key)
}

// ShardLen returns the resident-tier size of the shard owning key, for
// diagnostics and tests of shard distribution.
func (s *Sharded[K, V]) ShardLen(key K) int {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.cache.ResidentLen()
}

// ShardCount returns the number of shards.
func (s *Sharded[K, V]) ShardCount() int { return len(s.shards) }

// ShardIndex returns the shard index a key is routed to, for tests.
func (s *Sharded[K, V]) ShardIndex(key K) int {
	return int(s.hash(key) % uint64(len(s.shards)))
}

// GetOrCompute looks up key_of(item) under the owning shard's lock; on
// miss, it releases the lock and invokes value_of (which may suspend —
// e.g. a backend round trip), then re-acquires the lock to admit the
// result. The lock is deliberately not held across value_of, so a slow
// value_of never blocks the shard; concurrent callers with the same key
// may each invoke value_of and race harmlessly on admission.
func GetOrCompute[I any, K comparable, V any](
	s *Sharded[K, V],
	item I,
	keyOf func(I) K,
	valueOf func(I) (V, error),
) (V, error) {
	key := keyOf(item)

	sh := s.shardFor(key)
	sh.mu.Lock()
	if v, ok := sh.cache.TryGet(key); ok {
		sh.mu.Unlock()
		return v, nil
	}
	sh.mu.Unlock()

	value, err := valueOf(item)
	if err != nil {
		var zero V
		return zero, err
	}

	sh.mu.Lock()
	sh.cache.TryAdd(key, value)
	sh.mu.Unlock()

	return value, nil
}
