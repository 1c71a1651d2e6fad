// StreamCache - IPTV Catalog Cache and Sync Core
// Copyright 2026 Kybers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kybers/streamcache

package cache

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kybers/streamcache/internal/metrics"
)

// Stats is a read-only snapshot of a cache's counters.
type Stats struct {
	Name      string
	Size      int
	MaxSize   int
	Hits      int64
	Misses    int64
	Evictions int64
	HitRate   float64
}

// Cache is a thread-safe, single-namespace key/value store with per-entry
// TTL and a configurable eviction strategy.
//
// A single mutex guards storage, access order, and counters together, so
// every public operation is atomic with respect to the others on the same
// cache. The producer passed to GetOrPut is the one thing that runs outside
// the lock.
//
// Expired entries are discovered lazily: the first Get after expiry removes
// the entry and counts a miss. Periodic cleanup is the caller's job (see
// CleanupExpired and Config.CleanupInterval); eviction-on-put already bounds
// growth between sweeps.
type Cache[K comparable, V any] struct {
	name string
	cfg  Config

	mu          sync.Mutex
	storage     map[K]Entry[V]
	accessOrder map[K]time.Time
	inflight    map[K]*inflightCall[V]

	hits      int64
	misses    int64
	evictions int64

	// now is swappable in tests.
	now func() time.Time
}

// inflightCall is a pending GetOrPut producer shared by concurrent misses
// for the same key.
type inflightCall[V any] struct {
	done chan struct{}
	val  V
	err  error
}

// New creates a cache with the given name and config. Zero config fields
// fall back to DefaultConfig values.
func New[K comparable, V any](name string, cfg Config) *Cache[K, V] {
	return &Cache[K, V]{
		name:        name,
		cfg:         cfg.withDefaults(),
		storage:     make(map[K]Entry[V]),
		accessOrder: make(map[K]time.Time),
		inflight:    make(map[K]*inflightCall[V]),
		now:         time.Now,
	}
}

// Name returns the cache's namespace name.
func (c *Cache[K, V]) Name() string {
	return c.name
}

// Config returns the immutable configuration the cache was created with.
func (c *Cache[K, V]) Config() Config {
	return c.cfg
}

// Get returns the value for key if present and not expired.
//
// A present-but-expired entry is removed as a side effect of the read and
// counted as a miss. Successful reads refresh the key's access time for LRU
// ordering and count a hit.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getLocked(key)
}

func (c *Cache[K, V]) getLocked(key K) (V, bool) {
	var zero V
	now := c.now()

	entry, ok := c.storage[key]
	if !ok {
		c.recordMiss()
		return zero, false
	}

	if entry.isExpiredAt(now) {
		delete(c.storage, key)
		delete(c.accessOrder, key)
		c.recordMiss()
		c.updateEntriesGauge()
		return zero, false
	}

	c.accessOrder[key] = now
	c.hits++
	metrics.CacheHits.WithLabelValues(c.name).Inc()
	return entry.Value, true
}

// Put stores value under key with the cache's default TTL.
func (c *Cache[K, V]) Put(key K, value V) {
	c.PutTTL(key, value, c.cfg.DefaultTTL)
}

// PutTTL stores value under key with an explicit TTL, unconditionally
// overwriting any existing entry and refreshing its access time. If the
// insert pushes the cache over MaxSize, the eviction strategy runs
// synchronously before PutTTL returns.
func (c *Cache[K, V]) PutTTL(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.putLocked(key, value, ttl)
}

func (c *Cache[K, V]) putLocked(key K, value V, ttl time.Duration) {
	now := c.now()
	c.storage[key] = newEntry(value, now, ttl)
	c.accessOrder[key] = now

	if len(c.storage) > c.cfg.MaxSize {
		c.evictLocked()
	}
	c.updateEntriesGauge()
}

// Remove deletes key and returns its prior value, if any.
func (c *Cache[K, V]) Remove(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	entry, ok := c.storage[key]
	if !ok {
		return zero, false
	}
	delete(c.storage, key)
	delete(c.accessOrder, key)
	c.updateEntriesGauge()
	return entry.Value, true
}

// Contains reports whether key is present and not expired. It is a read-only
// existence check: access order and counters are untouched, and expired
// entries are left for Get or CleanupExpired to reap.
func (c *Cache[K, V]) Contains(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.storage[key]
	return ok && !entry.isExpiredAt(c.now())
}

// Clear empties the cache. Hit/miss/eviction counters are preserved.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.storage = make(map[K]Entry[V])
	c.accessOrder = make(map[K]time.Time)
	c.updateEntriesGauge()
}

// CleanupExpired removes every expired entry and returns the count removed.
// Intended to be driven by an external scheduler at Config.CleanupInterval.
func (c *Cache[K, V]) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removeExpiredLocked()
}

// Len returns the current number of entries, expired or not.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.storage)
}

// GetOrPut returns the cached value for key, or invokes producer, stores the
// result with the given TTL, and returns it.
//
// Concurrent misses for the same key share a single producer invocation:
// one caller runs producer (outside the lock, so it may block on I/O) and
// the rest wait for its result. A waiting caller's context cancellation
// releases only that caller, not the producer. Producer errors are returned
// without caching anything.
func (c *Cache[K, V]) GetOrPut(ctx context.Context, key K, ttl time.Duration, producer func(context.Context) (V, error)) (V, error) {
	var zero V
	if ttl <= 0 {
		ttl = c.cfg.DefaultTTL
	}

	c.mu.Lock()
	if value, ok := c.getLocked(key); ok {
		c.mu.Unlock()
		return value, nil
	}

	if call, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		select {
		case <-call.done:
			return call.val, call.err
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}

	call := &inflightCall[V]{done: make(chan struct{})}
	c.inflight[key] = call
	c.mu.Unlock()

	call.val, call.err = producer(ctx)

	c.mu.Lock()
	delete(c.inflight, key)
	if call.err == nil {
		c.putLocked(key, call.val, ttl)
	}
	c.mu.Unlock()
	close(call.done)

	return call.val, call.err
}

// GetStats returns a snapshot of the cache's counters under the lock.
// HitRate is hits/(hits+misses), or 0 when the cache has never been read.
func (c *Cache[K, V]) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}

	return Stats{
		Name:      c.name,
		Size:      len(c.storage),
		MaxSize:   c.cfg.MaxSize,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		HitRate:   hitRate,
	}
}

// evictLocked applies the configured strategy. Must be called with mu held.
func (c *Cache[K, V]) evictLocked() {
	switch c.cfg.Strategy {
	case LRU:
		c.evictRankedLocked(func(key K) time.Time { return c.accessOrder[key] })
	case SizeLimit:
		c.evictRankedLocked(func(key K) time.Time { return c.storage[key].CreatedAt })
	case TTLOnly:
		removed := c.removeExpiredLocked()
		_ = removed // TTLOnly may leave the cache over MaxSize
	}
}

// evictRankedLocked removes entries until the cache is back at 80% of
// MaxSize, ordered by the given timestamp (oldest first). The 20% headroom
// is hysteresis: dropping below the limit avoids evicting on every insert
// once at capacity. Equal timestamps are broken by key order so eviction is
// deterministic.
func (c *Cache[K, V]) evictRankedLocked(rank func(K) time.Time) {
	target := int(float64(c.cfg.MaxSize) * 0.8)
	toRemove := len(c.storage) - target
	if toRemove <= 0 {
		return
	}

	type ranked struct {
		key K
		ts  time.Time
		ord string
	}
	candidates := make([]ranked, 0, len(c.storage))
	for key := range c.storage {
		candidates = append(candidates, ranked{key: key, ts: rank(key), ord: fmt.Sprint(key)})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].ts.Equal(candidates[j].ts) {
			return candidates[i].ord < candidates[j].ord
		}
		return candidates[i].ts.Before(candidates[j].ts)
	})

	for _, victim := range candidates[:toRemove] {
		delete(c.storage, victim.key)
		delete(c.accessOrder, victim.key)
		c.recordEviction()
	}
}

// removeExpiredLocked reaps expired entries. Must be called with mu held.
func (c *Cache[K, V]) removeExpiredLocked() int {
	now := c.now()
	removed := 0
	for key, entry := range c.storage {
		if entry.isExpiredAt(now) {
			delete(c.storage, key)
			delete(c.accessOrder, key)
			c.recordEviction()
			removed++
		}
	}
	c.updateEntriesGauge()
	return removed
}

func (c *Cache[K, V]) recordMiss() {
	c.misses++
	metrics.CacheMisses.WithLabelValues(c.name).Inc()
}

func (c *Cache[K, V]) recordEviction() {
	c.evictions++
	metrics.CacheEvictions.WithLabelValues(c.name).Inc()
}

func (c *Cache[K, V]) updateEntriesGauge() {
	metrics.CacheEntries.WithLabelValues(c.name).Set(float64(len(c.storage)))
}
