// StreamCache - IPTV Catalog Cache and Sync Core
// Copyright 2026 Kybers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kybers/streamcache

// Package main is the entry point for the streamcached daemon.
//
// StreamCache is the caching core for Xtream-Codes IPTV clients: it keeps a
// per-account catalog (movies, series, live channels, categories) in DuckDB
// with a 12-hour freshness window, TMDB enrichment metadata with a 7-day
// window, and a set of named in-memory TTL/LRU caches for hot working sets.
//
// # Startup Order
//
//  1. Configuration: Koanf v2 layered load (defaults, YAML file, env vars)
//  2. Logging: zerolog with configured level/format
//  3. Database: DuckDB store with catalog and enrichment schema
//  4. Cache registry: named in-memory caches for the standard profiles
//  5. Supervisor tree: expiry sweeper + ops HTTP under suture
//
// # Configuration
//
// Environment variables override the optional config file, which overrides
// built-in defaults. See internal/config for the full variable list; the
// common ones:
//
//	export DUCKDB_PATH=/data/streamcache.duckdb
//	export CACHE_XTREAM_TTL=12h
//	export CACHE_TMDB_TTL=168h
//	export HTTP_PORT=8475
//	./streamcached
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger a graceful shutdown: the supervisor stops its
// services, the ops HTTP server drains in-flight requests, and the database
// is checkpointed and closed.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/kybers/streamcache/internal/cache"
	"github.com/kybers/streamcache/internal/catalogcache"
	"github.com/kybers/streamcache/internal/config"
	"github.com/kybers/streamcache/internal/database"
	"github.com/kybers/streamcache/internal/logging"
	"github.com/kybers/streamcache/internal/ops"
	"github.com/kybers/streamcache/internal/supervisor"
	"github.com/kybers/streamcache/internal/supervisor/services"
	"github.com/kybers/streamcache/internal/sweeper"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Config not yet available; the default logger applies.
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Dur("xtream_ttl", cfg.Cache.XtreamTTL).
		Dur("tmdb_ttl", cfg.Cache.TMDBTTL).
		Msg("Starting streamcached")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized")

	caches := cache.NewManager()
	registerStandardCaches(caches)

	catalog := catalogcache.New(db, cfg.Cache)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Bridge zerolog to slog for sutureslog.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())

	tree.AddMaintenanceService(sweeper.New(caches, catalog, cfg.Cache.SweepInterval))

	opsServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      ops.NewRouter(db, caches, cfg.Server.Timeout),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}
	tree.AddOpsService(services.NewHTTPService(opsServer, cfg.Server.Timeout))

	logging.Info().Str("addr", opsServer.Addr).Msg("Supervisor tree starting")

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Fatal().Err(err).Msg("Supervisor tree failed")
	}
	logging.Info().Msg("Shutdown complete")
}

// registerStandardCaches creates the named in-memory caches for the standard
// working-set profiles so their stats and metrics exist from startup.
func registerStandardCaches(m *cache.Manager) {
	register := func(name string, cfg cache.Config) {
		if _, err := cache.GetCache[string, any](m, name, cfg); err != nil {
			logging.Fatal().Err(err).Str("cache", name).Msg("Failed to register cache")
		}
	}
	register("metadata", cache.MetadataConfig)
	register("categories", cache.CategoriesConfig)
	register("epg", cache.EPGConfig)
	register("thumbnails", cache.ThumbnailsConfig)
	register("short_lived", cache.ShortLivedConfig)
}
