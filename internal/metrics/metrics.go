// StreamCache - IPTV Catalog Cache and Sync Core
// Copyright 2026 Kybers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kybers/streamcache

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the caching core:
// - In-memory cache efficiency (per named cache)
// - Persistent catalog writes and sync freshness
// - Expiry sweep activity
// - DuckDB query errors

var (
	// In-memory cache metrics, labeled by cache name.
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memory_cache_hits_total",
			Help: "Total number of in-memory cache hits",
		},
		[]string{"cache"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memory_cache_misses_total",
			Help: "Total number of in-memory cache misses",
		},
		[]string{"cache"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memory_cache_evictions_total",
			Help: "Total number of in-memory cache evictions",
		},
		[]string{"cache"},
	)

	CacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "memory_cache_entries",
			Help: "Current number of entries per in-memory cache",
		},
		[]string{"cache"},
	)

	// Persistent catalog metrics.
	CatalogRowsCached = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_rows_cached_total",
			Help: "Total catalog rows written to the persistent cache",
		},
		[]string{"type"}, // "movies", "series", "channels", "categories"
	)

	CatalogSyncsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_full_syncs_total",
			Help: "Total number of completed full catalog syncs",
		},
	)

	CatalogLastSyncTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_last_sync_timestamp_seconds",
			Help: "Unix timestamp of the most recent completed full sync",
		},
	)

	EnrichmentRowsCached = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrichment_rows_cached_total",
			Help: "Total TMDB enrichment rows written to the persistent cache",
		},
		[]string{"type"}, // "movie", "series"
	)

	// Sweep metrics.
	SweepDeletedRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweep_deleted_rows_total",
			Help: "Total rows deleted by expiry sweeps",
		},
		[]string{"table"},
	)

	SweepRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sweep_runs_total",
			Help: "Total number of completed expiry sweep passes",
		},
	)

	// Database metrics.
	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation"},
	)
)
