// StreamCache - IPTV Catalog Cache and Sync Core
// Copyright 2026 Kybers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kybers/streamcache

// Package sweeper runs the periodic expiry pass over both cache tiers:
// expired entries in the in-memory caches and aged rows in the persistent
// store.
package sweeper

import (
	"context"
	"time"

	"github.com/kybers/streamcache/internal/cache"
	"github.com/kybers/streamcache/internal/catalogcache"
	"github.com/kybers/streamcache/internal/logging"
	"github.com/kybers/streamcache/internal/metrics"
)

// Sweeper is a supervised service that removes expired cache state on a
// fixed interval.
type Sweeper struct {
	caches   *cache.Manager
	catalog  *catalogcache.Manager
	interval time.Duration
}

// New creates a sweeper over the in-memory cache registry and the persistent
// catalog cache. A non-positive interval falls back to one hour.
func New(caches *cache.Manager, catalog *catalogcache.Manager, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{
		caches:   caches,
		catalog:  catalog,
		interval: interval,
	}
}

// Serve implements suture.Service. It sweeps immediately on start, then on
// every interval tick until the context is canceled. A failed sweep is
// logged and retried on the next tick rather than crashing the service.
func (s *Sweeper) Serve(ctx context.Context) error {
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// String implements fmt.Stringer for supervisor logging.
func (s *Sweeper) String() string {
	return "cache-sweeper"
}

func (s *Sweeper) sweep(ctx context.Context) {
	entriesRemoved := s.caches.CleanupExpired()

	rowsDeleted, err := s.catalog.CleanupExpiredData(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("Persistent cache sweep failed")
		return
	}

	metrics.SweepRunsTotal.Inc()
	logging.Debug().
		Int("memory_entries", entriesRemoved).
		Int64("db_rows", rowsDeleted).
		Msg("Expiry sweep completed")
}
