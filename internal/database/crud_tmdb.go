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
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/kybers/streamcache/internal/metrics"
	"github.com/kybers/streamcache/internal/models"
)

// Batched IN lookups are chunked so a large catalog never builds an
// unbounded parameter list.
const tmdbBatchSize = 500

// TMDBMovieRow pairs a stored enrichment record with its fetch time. The
// caller decides freshness; this layer only reports when the row was written.
type TMDBMovieRow struct {
	Data      models.TMDBMovieData
	FetchedAt time.Time
}

// TMDBSeriesRow pairs a stored series enrichment record with its fetch time.
type TMDBSeriesRow struct {
	Data      models.TMDBSeriesData
	FetchedAt time.Time
}

// UpsertTMDBMovie insert-or-replaces one movie enrichment row. The key is the
// provider-supplied TMDB id string, which may differ in form from data.ID.
func (db *DB) UpsertTMDBMovie(ctx context.Context, tmdbID string, data *models.TMDBMovieData, fetchedAt time.Time) error {
	genres, err := json.Marshal(data.Genres)
	if err != nil {
		return fmt.Errorf("failed to encode movie genres: %w", err)
	}

	_, err = db.conn.ExecContext(ctx, `INSERT OR REPLACE INTO tmdb_movies (
		tmdb_id, title, original_title, overview, poster_path, backdrop_path,
		release_date, vote_average, vote_count, runtime, genres, adult,
		budget, revenue, tagline, status, original_language, popularity,
		homepage, imdb_id, last_sync
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tmdbID, data.Title, data.OriginalTitle, data.Overview, data.PosterPath, data.BackdropPath,
		data.ReleaseDate, data.VoteAverage, data.VoteCount, data.Runtime, string(genres), data.Adult,
		data.Budget, data.Revenue, data.Tagline, data.Status, data.OriginalLanguage, data.Popularity,
		data.Homepage, data.IMDBID, fetchedAt,
	)
	if err != nil {
		metrics.DBQueryErrors.WithLabelValues("upsert_tmdb_movie").Inc()
		return fmt.Errorf("failed to upsert tmdb movie %s: %w", tmdbID, err)
	}
	return nil
}

// TMDBMovieByID returns one movie enrichment row, or nil when no row exists
// for the id. Absence is not an error.
func (db *DB) TMDBMovieByID(ctx context.Context, tmdbID string) (*TMDBMovieRow, error) {
	row := db.conn.QueryRowContext(ctx, tmdbMovieSelect+` WHERE tmdb_id = ?`, tmdbID)

	result, err := scanTMDBMovie(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		metrics.DBQueryErrors.WithLabelValues("tmdb_movie_by_id").Inc()
		return nil, fmt.Errorf("failed to query tmdb movie %s: %w", tmdbID, err)
	}
	return result, nil
}

// TMDBMoviesByIDs returns the enrichment rows present for a set of ids, keyed
// by id. Ids with no stored row are simply absent from the result.
func (db *DB) TMDBMoviesByIDs(ctx context.Context, tmdbIDs []string) (map[string]TMDBMovieRow, error) {
	result := make(map[string]TMDBMovieRow, len(tmdbIDs))

	for _, chunk := range chunkIDs(tmdbIDs, tmdbBatchSize) {
		query := tmdbMovieSelect + ` WHERE tmdb_id IN (` + placeholders(len(chunk)) + `)`
		rows, err := db.conn.QueryContext(ctx, query, chunk...)
		if err != nil {
			metrics.DBQueryErrors.WithLabelValues("tmdb_movies_by_ids").Inc()
			return nil, fmt.Errorf("failed to query tmdb movie batch: %w", err)
		}

		err = func() error {
			defer rows.Close()
			for rows.Next() {
				var id string
				movie, err := scanTMDBMovieRows(rows, &id)
				if err != nil {
					return err
				}
				result[id] = *movie
			}
			return rows.Err()
		}()
		if err != nil {
			return nil, fmt.Errorf("error iterating tmdb movie batch: %w", err)
		}
	}
	return result, nil
}

// UpsertTMDBSeries insert-or-replaces one series enrichment row.
func (db *DB) UpsertTMDBSeries(ctx context.Context, tmdbID string, data *models.TMDBSeriesData, fetchedAt time.Time) error {
	genres, err := json.Marshal(data.Genres)
	if err != nil {
		return fmt.Errorf("failed to encode series genres: %w", err)
	}
	runTimes, err := json.Marshal(data.EpisodeRunTime)
	if err != nil {
		return fmt.Errorf("failed to encode episode run times: %w", err)
	}

	_, err = db.conn.ExecContext(ctx, `INSERT OR REPLACE INTO tmdb_series (
		tmdb_id, name, original_name, overview, poster_path, backdrop_path,
		first_air_date, last_air_date, vote_average, vote_count, genres, adult,
		episode_run_time, in_production, number_of_episodes, number_of_seasons,
		original_language, popularity, status, tagline, series_type, homepage, last_sync
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tmdbID, data.Name, data.OriginalName, data.Overview, data.PosterPath, data.BackdropPath,
		data.FirstAirDate, data.LastAirDate, data.VoteAverage, data.VoteCount, string(genres), data.Adult,
		string(runTimes), data.InProduction, data.NumberOfEpisodes, data.NumberOfSeasons,
		data.OriginalLanguage, data.Popularity, data.Status, data.Tagline, data.Type, data.Homepage, fetchedAt,
	)
	if err != nil {
		metrics.DBQueryErrors.WithLabelValues("upsert_tmdb_series").Inc()
		return fmt.Errorf("failed to upsert tmdb series %s: %w", tmdbID, err)
	}
	return nil
}

// TMDBSeriesByID returns one series enrichment row, or nil when no row exists
// for the id.
func (db *DB) TMDBSeriesByID(ctx context.Context, tmdbID string) (*TMDBSeriesRow, error) {
	row := db.conn.QueryRowContext(ctx, tmdbSeriesSelect+` WHERE tmdb_id = ?`, tmdbID)

	result, err := scanTMDBSeries(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		metrics.DBQueryErrors.WithLabelValues("tmdb_series_by_id").Inc()
		return nil, fmt.Errorf("failed to query tmdb series %s: %w", tmdbID, err)
	}
	return result, nil
}

// TMDBSeriesByIDs returns the series enrichment rows present for a set of
// ids, keyed by id.
func (db *DB) TMDBSeriesByIDs(ctx context.Context, tmdbIDs []string) (map[string]TMDBSeriesRow, error) {
	result := make(map[string]TMDBSeriesRow, len(tmdbIDs))

	for _, chunk := range chunkIDs(tmdbIDs, tmdbBatchSize) {
		query := tmdbSeriesSelect + ` WHERE tmdb_id IN (` + placeholders(len(chunk)) + `)`
		rows, err := db.conn.QueryContext(ctx, query, chunk...)
		if err != nil {
			metrics.DBQueryErrors.WithLabelValues("tmdb_series_by_ids").Inc()
			return nil, fmt.Errorf("failed to query tmdb series batch: %w", err)
		}

		err = func() error {
			defer rows.Close()
			for rows.Next() {
				var id string
				series, err := scanTMDBSeriesRows(rows, &id)
				if err != nil {
					return err
				}
				result[id] = *series
			}
			return rows.Err()
		}()
		if err != nil {
			return nil, fmt.Errorf("error iterating tmdb series batch: %w", err)
		}
	}
	return result, nil
}

// DeleteTMDBOlderThan removes enrichment rows fetched before the cutoff.
// Returns rows deleted per table.
func (db *DB) DeleteTMDBOlderThan(ctx context.Context, cutoff time.Time) (map[string]int64, error) {
	tables := []string{"tmdb_movies", "tmdb_series"}
	deleted := make(map[string]int64, len(tables))

	for _, table := range tables {
		query := fmt.Sprintf("DELETE FROM %s WHERE last_sync < ?", table)
		result, err := db.conn.ExecContext(ctx, query, cutoff)
		if err != nil {
			metrics.DBQueryErrors.WithLabelValues("delete_tmdb_expired").Inc()
			return deleted, fmt.Errorf("failed to sweep %s: %w", table, err)
		}
		if n, err := result.RowsAffected(); err == nil {
			deleted[table] = n
		}
	}
	return deleted, nil
}

const tmdbMovieSelect = `SELECT
	tmdb_id, title, original_title, overview, poster_path, backdrop_path,
	release_date, vote_average, vote_count, runtime, genres, adult,
	budget, revenue, tagline, status, original_language, popularity,
	homepage, imdb_id, last_sync
FROM tmdb_movies`

const tmdbSeriesSelect = `SELECT
	tmdb_id, name, original_name, overview, poster_path, backdrop_path,
	first_air_date, last_air_date, vote_average, vote_count, genres, adult,
	episode_run_time, in_production, number_of_episodes, number_of_seasons,
	original_language, popularity, status, tagline, series_type, homepage, last_sync
FROM tmdb_series`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTMDBMovie(row rowScanner) (*TMDBMovieRow, error) {
	var id string
	return scanTMDBMovieRows(row, &id)
}

func scanTMDBMovieRows(row rowScanner, id *string) (*TMDBMovieRow, error) {
	var r TMDBMovieRow
	var genres string
	var originalTitle, overview, poster, backdrop, releaseDate sql.NullString
	var tagline, status, language, homepage, imdbID sql.NullString
	if err := row.Scan(
		id, &r.Data.Title, &originalTitle, &overview, &poster, &backdrop,
		&releaseDate, &r.Data.VoteAverage, &r.Data.VoteCount, &r.Data.Runtime, &genres, &r.Data.Adult,
		&r.Data.Budget, &r.Data.Revenue, &tagline, &status, &language, &r.Data.Popularity,
		&homepage, &imdbID, &r.FetchedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(genres), &r.Data.Genres); err != nil {
		return nil, fmt.Errorf("failed to decode movie genres: %w", err)
	}
	r.Data.ID = parseNumericID(*id)
	r.Data.OriginalTitle = originalTitle.String
	r.Data.Overview = overview.String
	r.Data.PosterPath = poster.String
	r.Data.BackdropPath = backdrop.String
	r.Data.ReleaseDate = releaseDate.String
	r.Data.Tagline = tagline.String
	r.Data.Status = status.String
	r.Data.OriginalLanguage = language.String
	r.Data.Homepage = homepage.String
	r.Data.IMDBID = imdbID.String
	return &r, nil
}

func scanTMDBSeries(row rowScanner) (*TMDBSeriesRow, error) {
	var id string
	return scanTMDBSeriesRows(row, &id)
}

func scanTMDBSeriesRows(row rowScanner, id *string) (*TMDBSeriesRow, error) {
	var r TMDBSeriesRow
	var genres, runTimes string
	var originalName, overview, poster, backdrop, firstAir, lastAir sql.NullString
	var language, status, tagline, seriesType, homepage sql.NullString
	if err := row.Scan(
		id, &r.Data.Name, &originalName, &overview, &poster, &backdrop,
		&firstAir, &lastAir, &r.Data.VoteAverage, &r.Data.VoteCount, &genres, &r.Data.Adult,
		&runTimes, &r.Data.InProduction, &r.Data.NumberOfEpisodes, &r.Data.NumberOfSeasons,
		&language, &r.Data.Popularity, &status, &tagline, &seriesType, &homepage, &r.FetchedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(genres), &r.Data.Genres); err != nil {
		return nil, fmt.Errorf("failed to decode series genres: %w", err)
	}
	if err := json.Unmarshal([]byte(runTimes), &r.Data.EpisodeRunTime); err != nil {
		return nil, fmt.Errorf("failed to decode episode run times: %w", err)
	}
	r.Data.ID = parseNumericID(*id)
	r.Data.OriginalName = originalName.String
	r.Data.Overview = overview.String
	r.Data.PosterPath = poster.String
	r.Data.BackdropPath = backdrop.String
	r.Data.FirstAirDate = firstAir.String
	r.Data.LastAirDate = lastAir.String
	r.Data.OriginalLanguage = language.String
	r.Data.Status = status.String
	r.Data.Tagline = tagline.String
	r.Data.Type = seriesType.String
	r.Data.Homepage = homepage.String
	return &r, nil
}

// parseNumericID converts a provider id string to its numeric form, returning
// 0 for non-numeric ids rather than failing the whole read.
func parseNumericID(id string) int {
	n := 0
	for _, c := range id {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}

// chunkIDs splits an id list into size-bounded slices of query arguments.
func chunkIDs(ids []string, size int) [][]any {
	if len(ids) == 0 {
		return nil
	}
	chunks := make([][]any, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunk := make([]any, 0, end-start)
		for _, id := range ids[start:end] {
			chunk = append(chunk, id)
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}

// placeholders returns n comma-separated SQL parameter markers.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
