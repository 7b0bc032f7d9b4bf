// Package cache provides a TTL-bounded memoization store with single-flight
// de-duplication.
//
// Concurrent callers asking for the same key while a computation is in flight
// join that computation instead of starting their own; at most one compute
// runs per key at any time. Failed computations are never stored, so a
// transient upstream error does not poison the cache for its TTL.
package cache

import (
	"context"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// shardCount spreads entries over independent locks so unrelated keys do not
// serialize on one mutex.
const shardCount = 32

type entry struct {
	value     interface{}
	expiresAt time.Time
}

type shard struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// Cache is an in-memory TTL cache with single-flight de-duplication. Entries
// are expired lazily on access; Sweep can be called to bound memory between
// runs.
type Cache struct {
	shards [shardCount]*shard
	flight singleflight.Group
	logger *slog.Logger

	// now is swappable for tests
	now func() time.Time
}

// New creates an empty cache
func New(logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Cache{
		logger: logger,
		now:    time.Now,
	}
	for i := range c.shards {
		c.shards[i] = &shard{entries: make(map[string]entry)}
	}
	return c
}

func (c *Cache) shardFor(key string) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return c.shards[h.Sum32()%shardCount]
}

// Get returns the live value for key, if any
func (c *Cache) Get(key string) (interface{}, bool) {
	s := c.shardFor(key)

	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		// Expired: clean up lazily.
		s.mu.Lock()
		if cur, ok := s.entries[key]; ok && cur.expiresAt.Equal(e.expiresAt) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

// GetOrCompute returns the live cached value for key, or runs compute once
// and stores its result for ttl. Concurrent callers for the same key block on
// the one in-flight compute and all receive its result; a compute failure is
// propagated to every waiter and nothing is stored.
func (c *Cache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(context.Context) (interface{}, error)) (interface{}, error) {
	if value, ok := c.Get(key); ok {
		c.logger.Debug("cache hit", "key", key)
		return value, nil
	}

	value, err, shared := c.flight.Do(key, func() (interface{}, error) {
		// Re-check under the flight: another caller may have stored the
		// value between our miss and winning the flight slot.
		if value, ok := c.Get(key); ok {
			return value, nil
		}

		value, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		c.Set(key, value, ttl)
		return value, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.Debug("cache single-flight join", "key", key)
	}
	return value, nil
}

// Set stores value for key with the given ttl. Non-positive ttl disables
// storage.
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	s := c.shardFor(key)
	s.mu.Lock()
	s.entries[key] = entry{value: value, expiresAt: c.now().Add(ttl)}
	s.mu.Unlock()
}

// Delete removes key. Idempotent.
func (c *Cache) Delete(key string) {
	s := c.shardFor(key)
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// Len returns the number of stored entries, expired ones included
func (c *Cache) Len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.RLock()
		n += len(s.entries)
		s.mu.RUnlock()
	}
	return n
}

// Sweep drops all expired entries and reports how many were removed. Callers
// that keep a cache alive across many runs can invoke this periodically to
// bound memory; correctness never depends on it.
func (c *Cache) Sweep() int {
	now := c.now()
	removed := 0
	for _, s := range c.shards {
		s.mu.Lock()
		for key, e := range s.entries {
			if now.After(e.expiresAt) {
				delete(s.entries, key)
				removed++
			}
		}
		s.mu.Unlock()
	}
	if removed > 0 {
		c.logger.Debug("cache sweep", "removed", removed)
	}
	return removed
}
