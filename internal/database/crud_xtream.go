// StreamCache - IPTV Catalog Cache and Sync Core
// Copyright 2026 Kybers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kybers/streamcache

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kybers/streamcache/internal/logging"
	"github.com/kybers/streamcache/internal/metrics"
	"github.com/kybers/streamcache/internal/models"
)

// ReplaceMovies bulk insert-or-replaces the movie catalog for a tenant,
// stamping every row with syncTime. Rows are written in one transaction so a
// cancelled bulk write rolls back instead of leaving a torn catalog.
func (db *DB) ReplaceMovies(ctx context.Context, userHash string, movies []models.Movie, syncTime time.Time) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin movie replace: %w", err)
	}
	defer rollbackQuietly(tx)

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO xtream_movies (
		stream_id, user_hash, name, icon, category_id, rating, rating_5based,
		added_timestamp, is_adult, container_extension, tmdb_id, last_sync
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare movie insert: %w", err)
	}
	defer stmt.Close()

	for i := range movies {
		m := &movies[i]
		if _, err := stmt.ExecContext(ctx,
			m.StreamID, userHash, m.Name, m.Icon, m.CategoryID, m.Rating, m.Rating5Based,
			m.AddedTimestamp, m.IsAdult, m.ContainerExtension, m.TMDBID, syncTime,
		); err != nil {
			metrics.DBQueryErrors.WithLabelValues("replace_movies").Inc()
			return fmt.Errorf("failed to insert movie %d: %w", m.StreamID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit movie replace: %w", err)
	}
	return nil
}

// MoviesByUser returns every cached movie row for a tenant, regardless of
// freshness.
func (db *DB) MoviesByUser(ctx context.Context, userHash string) ([]models.Movie, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT
		stream_id, name, icon, category_id, rating, rating_5based,
		added_timestamp, is_adult, container_extension, tmdb_id
	FROM xtream_movies WHERE user_hash = ? ORDER BY stream_id`, userHash)
	if err != nil {
		metrics.DBQueryErrors.WithLabelValues("movies_by_user").Inc()
		return nil, fmt.Errorf("failed to query movies: %w", err)
	}
	defer rows.Close()

	return scanMovies(rows)
}

// MoviesByTMDBID returns a tenant's movie rows sharing one TMDB id. Multiple
// provider streams can reference the same content (quality variants).
func (db *DB) MoviesByTMDBID(ctx context.Context, userHash, tmdbID string) ([]models.Movie, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT
		stream_id, name, icon, category_id, rating, rating_5based,
		added_timestamp, is_adult, container_extension, tmdb_id
	FROM xtream_movies WHERE user_hash = ? AND tmdb_id = ? ORDER BY stream_id`, userHash, tmdbID)
	if err != nil {
		metrics.DBQueryErrors.WithLabelValues("movies_by_tmdb").Inc()
		return nil, fmt.Errorf("failed to query movies by tmdb id: %w", err)
	}
	defer rows.Close()

	return scanMovies(rows)
}

// MovieTMDBIDs returns the distinct non-empty TMDB ids in a tenant's movie
// catalog, for batch enrichment lookups.
func (db *DB) MovieTMDBIDs(ctx context.Context, userHash string) ([]string, error) {
	return db.distinctTMDBIDs(ctx, "xtream_movies", userHash)
}

// SeriesTMDBIDs returns the distinct non-empty TMDB ids in a tenant's series
// catalog.
func (db *DB) SeriesTMDBIDs(ctx context.Context, userHash string) ([]string, error) {
	return db.distinctTMDBIDs(ctx, "xtream_series", userHash)
}

func (db *DB) distinctTMDBIDs(ctx context.Context, table, userHash string) ([]string, error) {
	query := fmt.Sprintf(`SELECT DISTINCT tmdb_id FROM %s
		WHERE user_hash = ? AND tmdb_id IS NOT NULL AND tmdb_id != '' ORDER BY tmdb_id`, table)

	rows, err := db.conn.QueryContext(ctx, query, userHash)
	if err != nil {
		metrics.DBQueryErrors.WithLabelValues("distinct_tmdb_ids").Inc()
		return nil, fmt.Errorf("failed to query tmdb ids from %s: %w", table, err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan tmdb id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tmdb ids: %w", err)
	}
	return ids, nil
}

// ReplaceSeries bulk insert-or-replaces the series catalog for a tenant.
func (db *DB) ReplaceSeries(ctx context.Context, userHash string, series []models.Series, syncTime time.Time) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin series replace: %w", err)
	}
	defer rollbackQuietly(tx)

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO xtream_series (
		series_id, user_hash, name, cover, category_id, plot, cast_names, director,
		genre, release_date, last_modified, rating, rating_5based, backdrop_path,
		youtube_trailer, episode_run_time, tmdb_id, last_sync
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare series insert: %w", err)
	}
	defer stmt.Close()

	for i := range series {
		s := &series[i]
		if _, err := stmt.ExecContext(ctx,
			s.SeriesID, userHash, s.Name, s.Cover, s.CategoryID, s.Plot, s.Cast, s.Director,
			s.Genre, s.ReleaseDate, s.LastModified, s.Rating, s.Rating5Based, s.BackdropPath,
			s.YoutubeTrailer, s.EpisodeRunTime, s.TMDBID, syncTime,
		); err != nil {
			metrics.DBQueryErrors.WithLabelValues("replace_series").Inc()
			return fmt.Errorf("failed to insert series %d: %w", s.SeriesID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit series replace: %w", err)
	}
	return nil
}

// SeriesByUser returns every cached series row for a tenant.
func (db *DB) SeriesByUser(ctx context.Context, userHash string) ([]models.Series, error) {
	rows, err := db.conn.QueryContext(ctx, seriesSelect+` WHERE user_hash = ? ORDER BY series_id`, userHash)
	if err != nil {
		metrics.DBQueryErrors.WithLabelValues("series_by_user").Inc()
		return nil, fmt.Errorf("failed to query series: %w", err)
	}
	defer rows.Close()

	return scanSeries(rows)
}

// SeriesByTMDBID returns a tenant's series rows sharing one TMDB id.
func (db *DB) SeriesByTMDBID(ctx context.Context, userHash, tmdbID string) ([]models.Series, error) {
	rows, err := db.conn.QueryContext(ctx, seriesSelect+` WHERE user_hash = ? AND tmdb_id = ? ORDER BY series_id`, userHash, tmdbID)
	if err != nil {
		metrics.DBQueryErrors.WithLabelValues("series_by_tmdb").Inc()
		return nil, fmt.Errorf("failed to query series by tmdb id: %w", err)
	}
	defer rows.Close()

	return scanSeries(rows)
}

// ReplaceChannels bulk insert-or-replaces the live channel catalog for a
// tenant.
func (db *DB) ReplaceChannels(ctx context.Context, userHash string, channels []models.Channel, syncTime time.Time) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin channel replace: %w", err)
	}
	defer rollbackQuietly(tx)

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO xtream_channels (
		stream_id, user_hash, name, icon, category_id, epg_channel_id,
		is_adult, tv_archive, tv_archive_duration, added_timestamp, last_sync
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare channel insert: %w", err)
	}
	defer stmt.Close()

	for i := range channels {
		ch := &channels[i]
		if _, err := stmt.ExecContext(ctx,
			ch.StreamID, userHash, ch.Name, ch.Icon, ch.CategoryID, ch.EPGChannelID,
			ch.IsAdult, ch.TVArchive, ch.TVArchiveDuration, ch.AddedTimestamp, syncTime,
		); err != nil {
			metrics.DBQueryErrors.WithLabelValues("replace_channels").Inc()
			return fmt.Errorf("failed to insert channel %d: %w", ch.StreamID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit channel replace: %w", err)
	}
	return nil
}

// ChannelsByUser returns every cached channel row for a tenant.
func (db *DB) ChannelsByUser(ctx context.Context, userHash string) ([]models.Channel, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT
		stream_id, name, icon, category_id, epg_channel_id,
		is_adult, tv_archive, tv_archive_duration, added_timestamp
	FROM xtream_channels WHERE user_hash = ? ORDER BY stream_id`, userHash)
	if err != nil {
		metrics.DBQueryErrors.WithLabelValues("channels_by_user").Inc()
		return nil, fmt.Errorf("failed to query channels: %w", err)
	}
	defer rows.Close()

	channels := make([]models.Channel, 0)
	for rows.Next() {
		var ch models.Channel
		var icon, categoryID, epgID sql.NullString
		if err := rows.Scan(
			&ch.StreamID, &ch.Name, &icon, &categoryID, &epgID,
			&ch.IsAdult, &ch.TVArchive, &ch.TVArchiveDuration, &ch.AddedTimestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan channel: %w", err)
		}
		ch.Icon = icon.String
		ch.CategoryID = categoryID.String
		ch.EPGChannelID = epgID.String
		channels = append(channels, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating channels: %w", err)
	}
	return channels, nil
}

// ReplaceCategories bulk insert-or-replaces a tenant's categories of one
// content type.
func (db *DB) ReplaceCategories(ctx context.Context, userHash string, categoryType models.CategoryType, categories []models.Category, syncTime time.Time) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin category replace: %w", err)
	}
	defer rollbackQuietly(tx)

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO xtream_categories (
		category_id, category_type, user_hash, name, last_sync
	) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare category insert: %w", err)
	}
	defer stmt.Close()

	for i := range categories {
		cat := &categories[i]
		if _, err := stmt.ExecContext(ctx,
			cat.CategoryID, string(categoryType), userHash, cat.Name, syncTime,
		); err != nil {
			metrics.DBQueryErrors.WithLabelValues("replace_categories").Inc()
			return fmt.Errorf("failed to insert category %s: %w", cat.CategoryID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit category replace: %w", err)
	}
	return nil
}

// CategoriesByUser returns a tenant's categories of one content type.
func (db *DB) CategoriesByUser(ctx context.Context, userHash string, categoryType models.CategoryType) ([]models.Category, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT category_id, name
	FROM xtream_categories WHERE user_hash = ? AND category_type = ? ORDER BY category_id`,
		userHash, string(categoryType))
	if err != nil {
		metrics.DBQueryErrors.WithLabelValues("categories_by_user").Inc()
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := make([]models.Category, 0)
	for rows.Next() {
		cat := models.Category{Type: categoryType}
		if err := rows.Scan(&cat.CategoryID, &cat.Name); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}
	return categories, nil
}

// UpsertSyncMetadata writes a tenant's sync bookkeeping record.
func (db *DB) UpsertSyncMetadata(ctx context.Context, meta *models.SyncMetadata) error {
	_, err := db.conn.ExecContext(ctx, `INSERT OR REPLACE INTO xtream_sync_metadata (
		user_hash, last_full_sync, movies_count, series_count,
		channels_count, categories_count, is_valid
	) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		meta.UserHash, meta.LastFullSync, meta.MoviesCount, meta.SeriesCount,
		meta.ChannelsCount, meta.CategoriesCount, meta.IsValid,
	)
	if err != nil {
		metrics.DBQueryErrors.WithLabelValues("upsert_sync_metadata").Inc()
		return fmt.Errorf("failed to upsert sync metadata: %w", err)
	}
	return nil
}

// SyncMetadataByUser returns a tenant's sync record, or nil when the tenant
// has never completed a sync. Absence is not an error.
func (db *DB) SyncMetadataByUser(ctx context.Context, userHash string) (*models.SyncMetadata, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT
		user_hash, last_full_sync, movies_count, series_count,
		channels_count, categories_count, is_valid
	FROM xtream_sync_metadata WHERE user_hash = ?`, userHash)

	var meta models.SyncMetadata
	err := row.Scan(
		&meta.UserHash, &meta.LastFullSync, &meta.MoviesCount, &meta.SeriesCount,
		&meta.ChannelsCount, &meta.CategoriesCount, &meta.IsValid,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		metrics.DBQueryErrors.WithLabelValues("sync_metadata_by_user").Inc()
		return nil, fmt.Errorf("failed to query sync metadata: %w", err)
	}
	return &meta, nil
}

// DeleteUserCatalog removes every Xtream row and the sync record for one
// tenant. Used on logout or account switch.
func (db *DB) DeleteUserCatalog(ctx context.Context, userHash string) error {
	return db.deleteCatalogWhere(ctx, "user_hash = ?", userHash)
}

// DeleteOtherUsersCatalog removes every Xtream row and sync record NOT
// belonging to the given tenant, enforcing the single-active-profile design.
func (db *DB) DeleteOtherUsersCatalog(ctx context.Context, currentUserHash string) error {
	return db.deleteCatalogWhere(ctx, "user_hash != ?", currentUserHash)
}

func (db *DB) deleteCatalogWhere(ctx context.Context, where string, arg any) error {
	tables := []string{
		"xtream_movies", "xtream_series", "xtream_channels",
		"xtream_categories", "xtream_sync_metadata",
	}
	for _, table := range tables {
		query := fmt.Sprintf("DELETE FROM %s WHERE %s", table, where)
		if _, err := db.conn.ExecContext(ctx, query, arg); err != nil {
			metrics.DBQueryErrors.WithLabelValues("delete_catalog").Inc()
			return fmt.Errorf("failed to delete from %s: %w", table, err)
		}
	}
	return nil
}

// DeleteCatalogOlderThan removes Xtream rows whose last_sync predates the
// cutoff, across all tenants. Returns rows deleted per table for metrics.
func (db *DB) DeleteCatalogOlderThan(ctx context.Context, cutoff time.Time) (map[string]int64, error) {
	tables := []string{"xtream_movies", "xtream_series", "xtream_channels", "xtream_categories"}
	deleted := make(map[string]int64, len(tables))

	for _, table := range tables {
		query := fmt.Sprintf("DELETE FROM %s WHERE last_sync < ?", table)
		result, err := db.conn.ExecContext(ctx, query, cutoff)
		if err != nil {
			metrics.DBQueryErrors.WithLabelValues("delete_catalog_expired").Inc()
			return deleted, fmt.Errorf("failed to sweep %s: %w", table, err)
		}
		if n, err := result.RowsAffected(); err == nil {
			deleted[table] = n
		}
	}
	return deleted, nil
}

const seriesSelect = `SELECT
	series_id, name, cover, category_id, plot, cast_names, director,
	genre, release_date, last_modified, rating, rating_5based, backdrop_path,
	youtube_trailer, episode_run_time, tmdb_id
FROM xtream_series`

// scanMovies scans movie rows into domain objects.
func scanMovies(rows *sql.Rows) ([]models.Movie, error) {
	movies := make([]models.Movie, 0)
	for rows.Next() {
		var m models.Movie
		var icon, categoryID, rating, container, tmdbID sql.NullString
		if err := rows.Scan(
			&m.StreamID, &m.Name, &icon, &categoryID, &rating, &m.Rating5Based,
			&m.AddedTimestamp, &m.IsAdult, &container, &tmdbID,
		); err != nil {
			return nil, fmt.Errorf("failed to scan movie: %w", err)
		}
		m.Icon = icon.String
		m.CategoryID = categoryID.String
		m.Rating = rating.String
		m.ContainerExtension = container.String
		m.TMDBID = tmdbID.String
		movies = append(movies, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating movies: %w", err)
	}
	return movies, nil
}

// scanSeries scans series rows into domain objects.
func scanSeries(rows *sql.Rows) ([]models.Series, error) {
	series := make([]models.Series, 0)
	for rows.Next() {
		var s models.Series
		var cover, categoryID, plot, cast, director, genre sql.NullString
		var releaseDate, lastModified, rating, backdrop, trailer, runTime, tmdbID sql.NullString
		if err := rows.Scan(
			&s.SeriesID, &s.Name, &cover, &categoryID, &plot, &cast, &director,
			&genre, &releaseDate, &lastModified, &rating, &s.Rating5Based, &backdrop,
			&trailer, &runTime, &tmdbID,
		); err != nil {
			return nil, fmt.Errorf("failed to scan series: %w", err)
		}
		s.Cover = cover.String
		s.CategoryID = categoryID.String
		s.Plot = plot.String
		s.Cast = cast.String
		s.Director = director.String
		s.Genre = genre.String
		s.ReleaseDate = releaseDate.String
		s.LastModified = lastModified.String
		s.Rating = rating.String
		s.BackdropPath = backdrop.String
		s.YoutubeTrailer = trailer.String
		s.EpisodeRunTime = runTime.String
		s.TMDBID = tmdbID.String
		series = append(series, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating series: %w", err)
	}
	return series, nil
}

// rollbackQuietly rolls back a transaction, ignoring the error returned when
// the transaction already committed.
func rollbackQuietly(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		logging.Warn().Err(err).Msg("Failed to roll back transaction")
	}
}
