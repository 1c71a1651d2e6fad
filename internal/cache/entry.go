// StreamCache - IPTV Catalog Cache and Sync Core
// Copyright 2026 Kybers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kybers/streamcache

package cache

import "time"

// Entry wraps a cached value with its creation time and time-to-live.
// Entries are immutable: an update replaces the entry, never mutates it.
// Expiry is derived on read, so callers must re-check on every access.
type Entry[V any] struct {
	Value     V
	CreatedAt time.Time
	TTL       time.Duration
}

// newEntry creates an entry stamped with the given clock reading.
func newEntry[V any](value V, now time.Time, ttl time.Duration) Entry[V] {
	return Entry[V]{Value: value, CreatedAt: now, TTL: ttl}
}

// IsExpired reports whether the entry has outlived its TTL.
// An entry with TTL 0 expires on the first read after creation.
func (e Entry[V]) IsExpired() bool {
	return e.isExpiredAt(time.Now())
}

func (e Entry[V]) isExpiredAt(now time.Time) bool {
	return now.Sub(e.CreatedAt) > e.TTL
}

// RemainingTTL returns the time left before the entry expires, or 0 if it
// already has.
func (e Entry[V]) RemainingTTL() time.Duration {
	remaining := e.TTL - time.Since(e.CreatedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}
