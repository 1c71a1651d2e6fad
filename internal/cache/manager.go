// StreamCache - IPTV Catalog Cache and Sync Core
// Copyright 2026 Kybers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kybers/streamcache

package cache

import (
	"fmt"
	"sync"
)

// namespace is the registry's view of a cache, independent of its key and
// value types.
type namespace interface {
	Name() string
	Clear()
	CleanupExpired() int
	GetStats() Stats
}

// Manager is a registry of named caches. Each logical namespace (metadata,
// categories, EPG, thumbnails, ...) gets one cache instance, created lazily
// on first request and kept for the process lifetime.
//
// The registry lock only guards the name-to-cache map; each cache serializes
// its own contents behind its own lock. Two tiers keep unrelated namespaces
// from contending on a single global lock.
//
// Construct one Manager at startup and pass it to consumers; there is no
// package-level singleton.
type Manager struct {
	mu     sync.Mutex
	caches map[string]namespace
}

// NewManager creates an empty cache registry.
func NewManager() *Manager {
	return &Manager{caches: make(map[string]namespace)}
}

// GetCache returns the cache registered under name, creating it with cfg if
// it does not exist yet. The first creation wins: a differing cfg on a later
// call is silently ignored.
//
// Requesting an existing name with different key or value types is a caller
// bug and returns an error.
func GetCache[K comparable, V any](m *Manager, name string, cfg Config) (*Cache[K, V], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.caches[name]; ok {
		typed, ok := existing.(*Cache[K, V])
		if !ok {
			return nil, fmt.Errorf("cache %q already registered with different types", name)
		}
		return typed, nil
	}

	c := New[K, V](name, cfg)
	m.caches[name] = c
	return c, nil
}

// ClearAll empties every registered cache. The caches stay registered; only
// their contents are dropped.
func (m *Manager) ClearAll() {
	for _, c := range m.snapshot() {
		c.Clear()
	}
}

// CleanupExpired sweeps expired entries from every registered cache and
// returns the total removed. Driven by the sweeper at the configured
// cleanup interval.
func (m *Manager) CleanupExpired() int {
	removed := 0
	for _, c := range m.snapshot() {
		removed += c.CleanupExpired()
	}
	return removed
}

// GetStats returns a stats snapshot for every registered cache, keyed by
// cache name.
func (m *Manager) GetStats() map[string]Stats {
	caches := m.snapshot()
	stats := make(map[string]Stats, len(caches))
	for name, c := range caches {
		stats[name] = c.GetStats()
	}
	return stats
}

// snapshot copies the registry map so per-cache calls run outside the
// registry lock.
func (m *Manager) snapshot() map[string]namespace {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]namespace, len(m.caches))
	for name, c := range m.caches {
		out[name] = c
	}
	return out
}
