// StreamCache - IPTV Catalog Cache and Sync Core
// Copyright 2026 Kybers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kybers/streamcache

// Package cache implements the in-memory tier of the caching core: a generic
// TTL key/value store with configurable eviction (LRU, TTL-only, or
// size-limited), hit/miss/eviction accounting, and a registry of named cache
// instances.
//
// This tier is ephemeral by design. It serves short-lived working sets (EPG
// slices, thumbnails, search results) that are cheap to refetch; the durable
// per-tenant catalog lives in the catalogcache/database packages.
//
// # Usage
//
//	manager := cache.NewManager()
//	epg, err := cache.GetCache[string, []models.Programme](manager, "epg", cache.EPGConfig)
//	if err != nil { ... }
//
//	listing, err := epg.GetOrPut(ctx, channelID, 0, func(ctx context.Context) ([]models.Programme, error) {
//	    return fetchEPG(ctx, channelID)
//	})
//
// Every cache exports its hits, misses, evictions, and size to Prometheus
// under the cache's name label.
package cache
