// StreamCache - IPTV Catalog Cache and Sync Core
// Copyright 2026 Kybers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kybers/streamcache

// Package catalogcache bridges ephemeral working sets and the durable
// per-tenant catalog store, encoding the two independent validity policies:
// a provider catalog is fresh for 12 hours after a completed full sync, and
// TMDB enrichment rows are fresh for 7 days after fetch (both configurable).
//
// Data presence and validity are deliberately separate: reads return
// whatever rows exist regardless of age, so a caller can render stale data
// immediately while refreshing in the background. IsXtreamCacheValid and
// IsTMDBCacheValid are the freshness gates.
package catalogcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/kybers/streamcache/internal/config"
	"github.com/kybers/streamcache/internal/database"
	"github.com/kybers/streamcache/internal/logging"
	"github.com/kybers/streamcache/internal/metrics"
	"github.com/kybers/streamcache/internal/models"
)

// Manager orchestrates the persistent catalog cache. Every operation
// performs storage I/O; concurrency control is delegated to the store.
type Manager struct {
	db  *database.DB
	cfg config.CacheConfig

	// Injectable for window tests.
	now func() time.Time
}

// New creates a catalog cache manager over the given store.
func New(db *database.DB, cfg config.CacheConfig) *Manager {
	return &Manager{
		db:  db,
		cfg: cfg,
		now: time.Now,
	}
}

// GenerateUserHash derives the tenant key from account credentials: the
// SHA-256 hex digest of "username:password:serverURL". Deterministic, so the
// same account always maps to the same tenant.
func GenerateUserHash(username, password, serverURL string) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s:%s:%s", username, password, serverURL))
	return hex.EncodeToString(sum[:])
}

// IsXtreamCacheValid reports whether a tenant's catalog is fresh: a sync
// record exists, its valid flag is set, and the last full sync is within the
// validity window. A tenant that never synced is invalid, not an error.
func (m *Manager) IsXtreamCacheValid(ctx context.Context, userHash string) (bool, error) {
	meta, err := m.db.SyncMetadataByUser(ctx, userHash)
	if err != nil {
		return false, err
	}
	if meta == nil || !meta.IsValid {
		return false, nil
	}
	return m.now().Sub(meta.LastFullSync) < m.cfg.XtreamTTL, nil
}

// XtreamCacheValidUntil returns the instant a tenant's catalog stops being
// fresh, or the zero time when no valid sync record exists.
func (m *Manager) XtreamCacheValidUntil(ctx context.Context, userHash string) (time.Time, error) {
	meta, err := m.db.SyncMetadataByUser(ctx, userHash)
	if err != nil {
		return time.Time{}, err
	}
	if meta == nil || !meta.IsValid {
		return time.Time{}, nil
	}
	return meta.LastFullSync.Add(m.cfg.XtreamTTL), nil
}

// CacheXtreamMovies full-replaces a tenant's movie catalog. Callers pass the
// complete current catalog, not a delta.
func (m *Manager) CacheXtreamMovies(ctx context.Context, userHash string, movies []models.Movie) error {
	if err := m.db.ReplaceMovies(ctx, userHash, movies, m.now()); err != nil {
		return err
	}
	metrics.CatalogRowsCached.WithLabelValues("movies").Add(float64(len(movies)))
	return nil
}

// CacheXtreamSeries full-replaces a tenant's series catalog.
func (m *Manager) CacheXtreamSeries(ctx context.Context, userHash string, series []models.Series) error {
	if err := m.db.ReplaceSeries(ctx, userHash, series, m.now()); err != nil {
		return err
	}
	metrics.CatalogRowsCached.WithLabelValues("series").Add(float64(len(series)))
	return nil
}

// CacheXtreamChannels full-replaces a tenant's live channel catalog.
func (m *Manager) CacheXtreamChannels(ctx context.Context, userHash string, channels []models.Channel) error {
	if err := m.db.ReplaceChannels(ctx, userHash, channels, m.now()); err != nil {
		return err
	}
	metrics.CatalogRowsCached.WithLabelValues("channels").Add(float64(len(channels)))
	return nil
}

// CacheXtreamCategories full-replaces a tenant's categories of one content
// type.
func (m *Manager) CacheXtreamCategories(ctx context.Context, userHash string, categoryType models.CategoryType, categories []models.Category) error {
	if err := m.db.ReplaceCategories(ctx, userHash, categoryType, categories, m.now()); err != nil {
		return err
	}
	metrics.CatalogRowsCached.WithLabelValues("categories").Add(float64(len(categories)))
	return nil
}

// UpdateXtreamSyncMetadata records a completed full sync, marking the
// tenant's catalog valid as of now. This is the single authoritative "cache
// is fresh" signal: call it only after every catalog write has succeeded.
// Partial writes without this update leave the cache correctly marked stale.
func (m *Manager) UpdateXtreamSyncMetadata(ctx context.Context, userHash string, moviesCount, seriesCount, channelsCount, categoriesCount int) error {
	syncedAt := m.now()
	err := m.db.UpsertSyncMetadata(ctx, &models.SyncMetadata{
		UserHash:        userHash,
		LastFullSync:    syncedAt,
		MoviesCount:     moviesCount,
		SeriesCount:     seriesCount,
		ChannelsCount:   channelsCount,
		CategoriesCount: categoriesCount,
		IsValid:         true,
	})
	if err != nil {
		return err
	}
	metrics.CatalogSyncsTotal.Inc()
	metrics.CatalogLastSyncTimestamp.Set(float64(syncedAt.Unix()))
	return nil
}

// CatalogSnapshot is a tenant's complete catalog as fetched from the
// provider, passed to SyncCatalogs in one unit. Categories carry their
// content type.
type CatalogSnapshot struct {
	Movies     []models.Movie
	Series     []models.Series
	Channels   []models.Channel
	Categories []models.Category
}

// SyncCatalogs persists a complete catalog snapshot and marks the tenant
// fresh, as one logical unit: all content writes first, the metadata write
// only after every one succeeded. An error part-way through leaves rows
// written but the catalog still marked stale, which is safe — the next
// validity check reports invalid and the caller re-syncs.
func (m *Manager) SyncCatalogs(ctx context.Context, userHash string, snapshot CatalogSnapshot) error {
	if err := m.CacheXtreamMovies(ctx, userHash, snapshot.Movies); err != nil {
		return fmt.Errorf("sync movies: %w", err)
	}
	if err := m.CacheXtreamSeries(ctx, userHash, snapshot.Series); err != nil {
		return fmt.Errorf("sync series: %w", err)
	}
	if err := m.CacheXtreamChannels(ctx, userHash, snapshot.Channels); err != nil {
		return fmt.Errorf("sync channels: %w", err)
	}

	byType := make(map[models.CategoryType][]models.Category)
	for _, cat := range snapshot.Categories {
		byType[cat.Type] = append(byType[cat.Type], cat)
	}
	for categoryType, categories := range byType {
		if err := m.CacheXtreamCategories(ctx, userHash, categoryType, categories); err != nil {
			return fmt.Errorf("sync %s categories: %w", categoryType, err)
		}
	}

	if err := m.UpdateXtreamSyncMetadata(ctx, userHash,
		len(snapshot.Movies), len(snapshot.Series), len(snapshot.Channels), len(snapshot.Categories)); err != nil {
		return fmt.Errorf("sync metadata: %w", err)
	}

	logging.Info().
		Str("user_hash", userHash).
		Int("movies", len(snapshot.Movies)).
		Int("series", len(snapshot.Series)).
		Int("channels", len(snapshot.Channels)).
		Int("categories", len(snapshot.Categories)).
		Msg("Catalog sync completed")
	return nil
}

// GetCachedXtreamMovies returns a tenant's stored movie catalog regardless
// of freshness.
func (m *Manager) GetCachedXtreamMovies(ctx context.Context, userHash string) ([]models.Movie, error) {
	return m.db.MoviesByUser(ctx, userHash)
}

// GetCachedXtreamSeries returns a tenant's stored series catalog regardless
// of freshness.
func (m *Manager) GetCachedXtreamSeries(ctx context.Context, userHash string) ([]models.Series, error) {
	return m.db.SeriesByUser(ctx, userHash)
}

// GetCachedXtreamChannels returns a tenant's stored channel catalog
// regardless of freshness.
func (m *Manager) GetCachedXtreamChannels(ctx context.Context, userHash string) ([]models.Channel, error) {
	return m.db.ChannelsByUser(ctx, userHash)
}

// GetCachedXtreamCategories returns a tenant's stored categories of one
// content type regardless of freshness.
func (m *Manager) GetCachedXtreamCategories(ctx context.Context, userHash string, categoryType models.CategoryType) ([]models.Category, error) {
	return m.db.CategoriesByUser(ctx, userHash, categoryType)
}

// IsTMDBCacheValid reports whether fresh enrichment data exists for an id:
// either a movie row OR a series row fetched within the enrichment window.
// The two tables are checked independently since the id space is shared.
func (m *Manager) IsTMDBCacheValid(ctx context.Context, tmdbID string) (bool, error) {
	movie, err := m.db.TMDBMovieByID(ctx, tmdbID)
	if err != nil {
		return false, err
	}
	if movie != nil && m.enrichmentFresh(movie.FetchedAt) {
		return true, nil
	}

	series, err := m.db.TMDBSeriesByID(ctx, tmdbID)
	if err != nil {
		return false, err
	}
	return series != nil && m.enrichmentFresh(series.FetchedAt), nil
}

// CacheTMDBMovie insert-or-replaces one movie enrichment row, stamped with
// now as its fetch time.
func (m *Manager) CacheTMDBMovie(ctx context.Context, tmdbID string, data *models.TMDBMovieData) error {
	if err := m.db.UpsertTMDBMovie(ctx, tmdbID, data, m.now()); err != nil {
		return err
	}
	metrics.EnrichmentRowsCached.WithLabelValues("movie").Inc()
	return nil
}

// CacheTMDBSeries insert-or-replaces one series enrichment row.
func (m *Manager) CacheTMDBSeries(ctx context.Context, tmdbID string, data *models.TMDBSeriesData) error {
	if err := m.db.UpsertTMDBSeries(ctx, tmdbID, data, m.now()); err != nil {
		return err
	}
	metrics.EnrichmentRowsCached.WithLabelValues("series").Inc()
	return nil
}

// GetCachedTMDBMovie returns one fresh movie enrichment record, or nil when
// the row is absent or past the enrichment window.
func (m *Manager) GetCachedTMDBMovie(ctx context.Context, tmdbID string) (*models.TMDBMovieData, error) {
	row, err := m.db.TMDBMovieByID(ctx, tmdbID)
	if err != nil {
		return nil, err
	}
	if row == nil || !m.enrichmentFresh(row.FetchedAt) {
		return nil, nil
	}
	return &row.Data, nil
}

// GetCachedTMDBSeries returns one fresh series enrichment record, or nil
// when the row is absent or past the enrichment window.
func (m *Manager) GetCachedTMDBSeries(ctx context.Context, tmdbID string) (*models.TMDBSeriesData, error) {
	row, err := m.db.TMDBSeriesByID(ctx, tmdbID)
	if err != nil {
		return nil, err
	}
	if row == nil || !m.enrichmentFresh(row.FetchedAt) {
		return nil, nil
	}
	return &row.Data, nil
}

// GetCachedTMDBMovies batch-reads movie enrichment for a set of ids,
// returning only ids with a fresh row. Absent and stale ids are omitted;
// partial results are expected, not an error.
func (m *Manager) GetCachedTMDBMovies(ctx context.Context, tmdbIDs []string) (map[string]models.TMDBMovieData, error) {
	rows, err := m.db.TMDBMoviesByIDs(ctx, tmdbIDs)
	if err != nil {
		return nil, err
	}

	result := make(map[string]models.TMDBMovieData, len(rows))
	for id, row := range rows {
		if m.enrichmentFresh(row.FetchedAt) {
			result[id] = row.Data
		}
	}
	return result, nil
}

// GetCachedTMDBSeriesBatch batch-reads series enrichment for a set of ids,
// returning only ids with a fresh row.
func (m *Manager) GetCachedTMDBSeriesBatch(ctx context.Context, tmdbIDs []string) (map[string]models.TMDBSeriesData, error) {
	rows, err := m.db.TMDBSeriesByIDs(ctx, tmdbIDs)
	if err != nil {
		return nil, err
	}

	result := make(map[string]models.TMDBSeriesData, len(rows))
	for id, row := range rows {
		if m.enrichmentFresh(row.FetchedAt) {
			result[id] = row.Data
		}
	}
	return result, nil
}

// AvailableMovieTMDBIDs lists the distinct TMDB ids referenced by a tenant's
// movie catalog, the input for batch enrichment.
func (m *Manager) AvailableMovieTMDBIDs(ctx context.Context, userHash string) ([]string, error) {
	return m.db.MovieTMDBIDs(ctx, userHash)
}

// AvailableSeriesTMDBIDs lists the distinct TMDB ids referenced by a
// tenant's series catalog.
func (m *Manager) AvailableSeriesTMDBIDs(ctx context.Context, userHash string) ([]string, error) {
	return m.db.SeriesTMDBIDs(ctx, userHash)
}

// MoviesByTMDBID returns a tenant's movie streams for one TMDB id, grouping
// quality variants of the same content.
func (m *Manager) MoviesByTMDBID(ctx context.Context, userHash, tmdbID string) ([]models.Movie, error) {
	return m.db.MoviesByTMDBID(ctx, userHash, tmdbID)
}

// SeriesByTMDBID returns a tenant's series entries for one TMDB id.
func (m *Manager) SeriesByTMDBID(ctx context.Context, userHash, tmdbID string) ([]models.Series, error) {
	return m.db.SeriesByTMDBID(ctx, userHash, tmdbID)
}

// InvalidateXtreamCache removes a tenant's entire catalog and sync record.
// Used on logout or account switch.
func (m *Manager) InvalidateXtreamCache(ctx context.Context, userHash string) error {
	return m.db.DeleteUserCatalog(ctx, userHash)
}

// CleanupOtherUsersData removes every other tenant's catalog rows and sync
// records, keeping storage bounded to the single active profile.
func (m *Manager) CleanupOtherUsersData(ctx context.Context, currentUserHash string) error {
	return m.db.DeleteOtherUsersCatalog(ctx, currentUserHash)
}

// CleanupExpiredData sweeps both tiers: enrichment rows past the TMDB window
// and catalog rows past the Xtream window. Returns total rows deleted.
func (m *Manager) CleanupExpiredData(ctx context.Context) (int64, error) {
	now := m.now()
	var total int64

	tmdbDeleted, err := m.db.DeleteTMDBOlderThan(ctx, now.Add(-m.cfg.TMDBTTL))
	for table, n := range tmdbDeleted {
		metrics.SweepDeletedRows.WithLabelValues(table).Add(float64(n))
		total += n
	}
	if err != nil {
		return total, fmt.Errorf("enrichment sweep: %w", err)
	}

	catalogDeleted, err := m.db.DeleteCatalogOlderThan(ctx, now.Add(-m.cfg.XtreamTTL))
	for table, n := range catalogDeleted {
		metrics.SweepDeletedRows.WithLabelValues(table).Add(float64(n))
		total += n
	}
	if err != nil {
		return total, fmt.Errorf("catalog sweep: %w", err)
	}

	if total > 0 {
		logging.Debug().Int64("rows", total).Msg("Expired cache rows deleted")
	}
	return total, nil
}

func (m *Manager) enrichmentFresh(fetchedAt time.Time) bool {
	return m.now().Sub(fetchedAt) < m.cfg.TMDBTTL
}
