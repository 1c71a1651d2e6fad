// StreamCache - IPTV Catalog Cache and Sync Core
// Copyright 2026 Kybers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kybers/streamcache

package database

import (
	"context"
	"fmt"
)

// createTables creates the catalog and enrichment tables.
//
// Xtream tables are tenant-scoped by user_hash and keyed by the upstream
// identifier plus the tenant. TMDB tables are shared across tenants: the
// same id describes the same content for every account.
func (db *DB) createTables(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS xtream_movies (
			stream_id INTEGER NOT NULL,
			user_hash VARCHAR NOT NULL,
			name VARCHAR NOT NULL,
			icon VARCHAR,
			category_id VARCHAR,
			rating VARCHAR,
			rating_5based DOUBLE DEFAULT 0,
			added_timestamp BIGINT DEFAULT 0,
			is_adult BOOLEAN DEFAULT false,
			container_extension VARCHAR,
			tmdb_id VARCHAR,
			last_sync TIMESTAMP NOT NULL,
			PRIMARY KEY (stream_id, user_hash)
		)`,
		`CREATE TABLE IF NOT EXISTS xtream_series (
			series_id INTEGER NOT NULL,
			user_hash VARCHAR NOT NULL,
			name VARCHAR NOT NULL,
			cover VARCHAR,
			category_id VARCHAR,
			plot VARCHAR,
			cast_names VARCHAR,
			director VARCHAR,
			genre VARCHAR,
			release_date VARCHAR,
			last_modified VARCHAR,
			rating VARCHAR,
			rating_5based DOUBLE DEFAULT 0,
			backdrop_path VARCHAR,
			youtube_trailer VARCHAR,
			episode_run_time VARCHAR,
			tmdb_id VARCHAR,
			last_sync TIMESTAMP NOT NULL,
			PRIMARY KEY (series_id, user_hash)
		)`,
		`CREATE TABLE IF NOT EXISTS xtream_channels (
			stream_id INTEGER NOT NULL,
			user_hash VARCHAR NOT NULL,
			name VARCHAR NOT NULL,
			icon VARCHAR,
			category_id VARCHAR,
			epg_channel_id VARCHAR,
			is_adult BOOLEAN DEFAULT false,
			tv_archive BOOLEAN DEFAULT false,
			tv_archive_duration INTEGER DEFAULT 0,
			added_timestamp BIGINT DEFAULT 0,
			last_sync TIMESTAMP NOT NULL,
			PRIMARY KEY (stream_id, user_hash)
		)`,
		`CREATE TABLE IF NOT EXISTS xtream_categories (
			category_id VARCHAR NOT NULL,
			category_type VARCHAR NOT NULL,
			user_hash VARCHAR NOT NULL,
			name VARCHAR NOT NULL,
			last_sync TIMESTAMP NOT NULL,
			PRIMARY KEY (category_id, category_type, user_hash)
		)`,
		`CREATE TABLE IF NOT EXISTS xtream_sync_metadata (
			user_hash VARCHAR PRIMARY KEY,
			last_full_sync TIMESTAMP NOT NULL,
			movies_count INTEGER DEFAULT 0,
			series_count INTEGER DEFAULT 0,
			channels_count INTEGER DEFAULT 0,
			categories_count INTEGER DEFAULT 0,
			is_valid BOOLEAN DEFAULT false
		)`,
		`CREATE TABLE IF NOT EXISTS tmdb_movies (
			tmdb_id VARCHAR PRIMARY KEY,
			title VARCHAR NOT NULL,
			original_title VARCHAR,
			overview VARCHAR,
			poster_path VARCHAR,
			backdrop_path VARCHAR,
			release_date VARCHAR,
			vote_average DOUBLE DEFAULT 0,
			vote_count INTEGER DEFAULT 0,
			runtime INTEGER DEFAULT 0,
			genres VARCHAR DEFAULT '[]',
			adult BOOLEAN DEFAULT false,
			budget BIGINT DEFAULT 0,
			revenue BIGINT DEFAULT 0,
			tagline VARCHAR,
			status VARCHAR,
			original_language VARCHAR,
			popularity DOUBLE DEFAULT 0,
			homepage VARCHAR,
			imdb_id VARCHAR,
			last_sync TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS tmdb_series (
			tmdb_id VARCHAR PRIMARY KEY,
			name VARCHAR NOT NULL,
			original_name VARCHAR,
			overview VARCHAR,
			poster_path VARCHAR,
			backdrop_path VARCHAR,
			first_air_date VARCHAR,
			last_air_date VARCHAR,
			vote_average DOUBLE DEFAULT 0,
			vote_count INTEGER DEFAULT 0,
			genres VARCHAR DEFAULT '[]',
			adult BOOLEAN DEFAULT false,
			episode_run_time VARCHAR DEFAULT '[]',
			in_production BOOLEAN DEFAULT false,
			number_of_episodes INTEGER DEFAULT 0,
			number_of_seasons INTEGER DEFAULT 0,
			original_language VARCHAR,
			popularity DOUBLE DEFAULT 0,
			status VARCHAR,
			tagline VARCHAR,
			series_type VARCHAR,
			homepage VARCHAR,
			last_sync TIMESTAMP NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// createIndexes creates secondary indexes for the tenant and cross-reference
// lookups the cache manager issues.
func (db *DB) createIndexes(ctx context.Context) error {
	statements := []string{
		`CREATE INDEX IF NOT EXISTS idx_movies_user ON xtream_movies (user_hash)`,
		`CREATE INDEX IF NOT EXISTS idx_movies_tmdb ON xtream_movies (user_hash, tmdb_id)`,
		`CREATE INDEX IF NOT EXISTS idx_series_user ON xtream_series (user_hash)`,
		`CREATE INDEX IF NOT EXISTS idx_series_tmdb ON xtream_series (user_hash, tmdb_id)`,
		`CREATE INDEX IF NOT EXISTS idx_channels_user ON xtream_channels (user_hash)`,
		`CREATE INDEX IF NOT EXISTS idx_categories_user ON xtream_categories (user_hash, category_type)`,
	}

	for _, stmt := range statements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}
