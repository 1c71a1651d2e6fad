// StreamCache - IPTV Catalog Cache and Sync Core
// Copyright 2026 Kybers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kybers/streamcache

package cache

import "time"

// EvictionStrategy selects how a cache sheds entries once it exceeds its
// configured maximum size.
type EvictionStrategy int

const (
	// LRU evicts the least recently accessed entries first.
	LRU EvictionStrategy = iota

	// TTLOnly evicts only expired entries. If nothing has expired the
	// cache is allowed to exceed its maximum size.
	TTLOnly

	// SizeLimit evicts the oldest-inserted entries first, regardless of
	// access recency.
	SizeLimit
)

// String returns the strategy name for logs and stats.
func (s EvictionStrategy) String() string {
	switch s {
	case LRU:
		return "lru"
	case TTLOnly:
		return "ttl_only"
	case SizeLimit:
		return "size_limit"
	default:
		return "unknown"
	}
}

// Config holds per-cache tuning. It is supplied at cache creation and is
// immutable for the cache's lifetime.
type Config struct {
	// DefaultTTL applies to entries stored without an explicit TTL.
	DefaultTTL time.Duration

	// MaxSize is the entry count that triggers eviction on insert.
	MaxSize int

	// Strategy selects the eviction policy.
	Strategy EvictionStrategy

	// CleanupInterval is the suggested period for the external sweeper to
	// call CleanupExpired. The cache itself never schedules cleanup.
	CleanupInterval time.Duration
}

// DefaultConfig returns the general-purpose cache profile.
func DefaultConfig() Config {
	return Config{
		DefaultTTL:      5 * time.Minute,
		MaxSize:         1000,
		Strategy:        LRU,
		CleanupInterval: time.Minute,
	}
}

// Predefined profiles for the common cache namespaces. They differ only in
// TTL, size, and strategy.
var (
	// MetadataConfig caches stream/series display metadata.
	MetadataConfig = Config{
		DefaultTTL:      10 * time.Minute,
		MaxSize:         500,
		Strategy:        LRU,
		CleanupInterval: time.Minute,
	}

	// CategoriesConfig caches category listings, which change rarely.
	CategoriesConfig = Config{
		DefaultTTL:      30 * time.Minute,
		MaxSize:         100,
		Strategy:        TTLOnly,
		CleanupInterval: time.Minute,
	}

	// EPGConfig caches short-lived programme guide data.
	EPGConfig = Config{
		DefaultTTL:      15 * time.Minute,
		MaxSize:         1000,
		Strategy:        LRU,
		CleanupInterval: time.Minute,
	}

	// ThumbnailsConfig caches rendered artwork references.
	ThumbnailsConfig = Config{
		DefaultTTL:      time.Hour,
		MaxSize:         200,
		Strategy:        SizeLimit,
		CleanupInterval: time.Minute,
	}

	// ShortLivedConfig caches transient lookups (search results, counters).
	ShortLivedConfig = Config{
		DefaultTTL:      2 * time.Minute,
		MaxSize:         100,
		Strategy:        TTLOnly,
		CleanupInterval: time.Minute,
	}
)

// withDefaults fills zero values so a partially specified config behaves.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.DefaultTTL <= 0 {
		c.DefaultTTL = d.DefaultTTL
	}
	if c.MaxSize <= 0 {
		c.MaxSize = d.MaxSize
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = d.CleanupInterval
	}
	return c
}
