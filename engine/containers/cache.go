package containers

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
)

const (
	// cacheShardCount must be a power of 2 for fast modulo via bitwise AND.
	cacheShardCount = 16
	cacheShardMask  = cacheShardCount - 1

	// DefaultShardCapacity caps the entries per shard when the caller
	// passes a non-positive capacity.
	DefaultShardCapacity = 256
)

// Hasher computes the shard-selection hash for a key.
type Hasher[K any] func(K) uint64

// StringHasher computes FNV-1a hash of a string key.
func StringHasher(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

// Cache is a thread-safe, sharded get-or-create cache. The same key always
// yields the same value instance regardless of which goroutine asks first;
// the create function runs at most once per key while the entry lives.
//
// There is no eviction beyond the per-shard capacity guard: cached values
// are expected to live for the lifetime of the cache.
type Cache[K comparable, V any] struct {
	shards   [cacheShardCount]*cacheShard[K, V]
	hasher   Hasher[K]
	capacity int

	hits   atomic.Uint64
	misses atomic.Uint64
}

type cacheShard[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]V
}

// NewCache creates a sharded cache holding up to capacity entries per shard.
func NewCache[K comparable, V any](capacity int, hasher Hasher[K]) *Cache[K, V] {
	if capacity <= 0 {
		capacity = DefaultShardCapacity
	}

	c := &Cache[K, V]{
		hasher:   hasher,
		capacity: capacity,
	}
	for i := range c.shards {
		c.shards[i] = &cacheShard[K, V]{
			entries: make(map[K]V),
		}
	}
	return c
}

func (c *Cache[K, V]) getShard(key K) *cacheShard[K, V] {
	return c.shards[c.hasher(key)&cacheShardMask]
}

// Get retrieves a cached value by key.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	shard := c.getShard(key)

	shard.mu.RLock()
	value, ok := shard.entries[key]
	shard.mu.RUnlock()

	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return value, ok
}

// GetOrCreate returns the cached value for key, calling create under the
// shard lock when the entry does not exist yet. A failed create leaves the
// cache untouched so the next request retries.
func (c *Cache[K, V]) GetOrCreate(key K, create func() (V, error)) (V, error) {
	shard := c.getShard(key)

	shard.mu.RLock()
	value, ok := shard.entries[key]
	shard.mu.RUnlock()

	if ok {
		c.hits.Add(1)
		return value, nil
	}

	shard.mu.Lock()
	defer shard.mu.Unlock()

	// Re-check after acquiring the write lock.
	if value, ok := shard.entries[key]; ok {
		c.hits.Add(1)
		return value, nil
	}

	c.misses.Add(1)

	value, err := create()
	if err != nil {
		var zero V
		return zero, err
	}

	if len(shard.entries) < c.capacity {
		shard.entries[key] = value
	}
	return value, nil
}

// Delete removes an entry from the cache.
func (c *Cache[K, V]) Delete(key K) bool {
	shard := c.getShard(key)

	shard.mu.Lock()
	defer shard.mu.Unlock()

	if _, ok := shard.entries[key]; !ok {
		return false
	}
	delete(shard.entries, key)
	return true
}

// Clear removes all entries from the cache.
func (c *Cache[K, V]) Clear() {
	for _, shard := range c.shards {
		shard.mu.Lock()
		shard.entries = make(map[K]V)
		shard.mu.Unlock()
	}
}

// Len returns the total number of entries across all shards.
func (c *Cache[K, V]) Len() int {
	total := 0
	for _, shard := range c.shards {
		shard.mu.RLock()
		total += len(shard.entries)
		shard.mu.RUnlock()
	}
	return total
}

// Hits and Misses expose the atomic counters for monitoring.
func (c *Cache[K, V]) Hits() uint64   { return c.hits.Load() }
func (c *Cache[K, V]) Misses() uint64 { return c.misses.Load() }
