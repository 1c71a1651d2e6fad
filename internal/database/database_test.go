// StreamCache - IPTV Catalog Cache and Sync Core
// Copyright 2026 Kybers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kybers/streamcache

package database

import (
	"context"
	"testing"
	"time"

	"github.com/kybers/streamcache/internal/config"
	"github.com/kybers/streamcache/internal/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(&config.DatabaseConfig{
		Path:      ":memory:",
		MaxMemory: "256MB",
		Threads:   2,
	})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close test database: %v", err)
		}
	})
	return db
}

func TestPing(t *testing.T) {
	db := newTestDB(t)
	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Unexpected ping error: %v", err)
	}
}

func TestMovieRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	syncTime := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	movies := []models.Movie{
		{StreamID: 101, Name: "First Film", Icon: "http://cdn/1.png", CategoryID: "5",
			Rating: "7.4", Rating5Based: 3.7, AddedTimestamp: 1700000000,
			ContainerExtension: "mkv", TMDBID: "550"},
		{StreamID: 102, Name: "Second Film", IsAdult: true, TMDBID: "680"},
	}
	if err := db.ReplaceMovies(ctx, "hashA", movies, syncTime); err != nil {
		t.Fatalf("Failed to replace movies: %v", err)
	}

	got, err := db.MoviesByUser(ctx, "hashA")
	if err != nil {
		t.Fatalf("Failed to read movies: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 movies, got %d", len(got))
	}
	if got[0] != movies[0] {
		t.Errorf("Movie round trip mismatch:\n got %+v\nwant %+v", got[0], movies[0])
	}
	if !got[1].IsAdult || got[1].TMDBID != "680" {
		t.Errorf("Unexpected second movie: %+v", got[1])
	}
}

func TestReplaceMoviesOverwritesExistingRow(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	first := []models.Movie{{StreamID: 1, Name: "Old Title"}}
	if err := db.ReplaceMovies(ctx, "hashA", first, now); err != nil {
		t.Fatalf("Failed initial replace: %v", err)
	}
	second := []models.Movie{{StreamID: 1, Name: "New Title"}}
	if err := db.ReplaceMovies(ctx, "hashA", second, now.Add(time.Hour)); err != nil {
		t.Fatalf("Failed second replace: %v", err)
	}

	got, err := db.MoviesByUser(ctx, "hashA")
	if err != nil {
		t.Fatalf("Failed to read movies: %v", err)
	}
	if len(got) != 1 || got[0].Name != "New Title" {
		t.Errorf("Expected overwritten row, got %+v", got)
	}
}

func TestTenantIsolation(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := db.ReplaceMovies(ctx, "hashA", []models.Movie{{StreamID: 1, Name: "A"}}, now); err != nil {
		t.Fatalf("Failed to write tenant A: %v", err)
	}
	if err := db.ReplaceMovies(ctx, "hashB", []models.Movie{{StreamID: 1, Name: "B"}, {StreamID: 2, Name: "B2"}}, now); err != nil {
		t.Fatalf("Failed to write tenant B: %v", err)
	}

	a, err := db.MoviesByUser(ctx, "hashA")
	if err != nil {
		t.Fatalf("Failed to read tenant A: %v", err)
	}
	if len(a) != 1 || a[0].Name != "A" {
		t.Errorf("Tenant A sees wrong rows: %+v", a)
	}

	b, err := db.MoviesByUser(ctx, "hashB")
	if err != nil {
		t.Fatalf("Failed to read tenant B: %v", err)
	}
	if len(b) != 2 {
		t.Errorf("Tenant B sees wrong rows: %+v", b)
	}
}

func TestSeriesRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	series := []models.Series{{
		SeriesID: 7, Name: "Show", Cover: "http://cdn/c.png", CategoryID: "9",
		Plot: "A plot", Cast: "Actor One, Actor Two", Director: "Director",
		Genre: "Drama", ReleaseDate: "2020-01-01", LastModified: "1700000000",
		Rating: "8", Rating5Based: 4.0, BackdropPath: `["http://cdn/b.png"]`,
		YoutubeTrailer: "abc123", EpisodeRunTime: "45", TMDBID: "1399",
	}}
	if err := db.ReplaceSeries(ctx, "hashA", series, now); err != nil {
		t.Fatalf("Failed to replace series: %v", err)
	}

	got, err := db.SeriesByUser(ctx, "hashA")
	if err != nil {
		t.Fatalf("Failed to read series: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Expected 1 series, got %d", len(got))
	}
	if got[0] != series[0] {
		t.Errorf("Series round trip mismatch:\n got %+v\nwant %+v", got[0], series[0])
	}
}

func TestChannelRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	channels := []models.Channel{{
		StreamID: 33, Name: "News HD", Icon: "http://cdn/n.png", CategoryID: "2",
		EPGChannelID: "news.example", TVArchive: true, TVArchiveDuration: 7,
		AddedTimestamp: 1700000001,
	}}
	if err := db.ReplaceChannels(ctx, "hashA", channels, now); err != nil {
		t.Fatalf("Failed to replace channels: %v", err)
	}

	got, err := db.ChannelsByUser(ctx, "hashA")
	if err != nil {
		t.Fatalf("Failed to read channels: %v", err)
	}
	if len(got) != 1 || got[0] != channels[0] {
		t.Errorf("Channel round trip mismatch: %+v", got)
	}
}

func TestCategoriesScopedByType(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	vod := []models.Category{{CategoryID: "1", Name: "Action", Type: models.CategoryVOD}}
	live := []models.Category{{CategoryID: "1", Name: "Sports", Type: models.CategoryLiveTV}}
	if err := db.ReplaceCategories(ctx, "hashA", models.CategoryVOD, vod, now); err != nil {
		t.Fatalf("Failed to replace vod categories: %v", err)
	}
	if err := db.ReplaceCategories(ctx, "hashA", models.CategoryLiveTV, live, now); err != nil {
		t.Fatalf("Failed to replace live categories: %v", err)
	}

	// Same category id under different types must not collide.
	gotVOD, err := db.CategoriesByUser(ctx, "hashA", models.CategoryVOD)
	if err != nil {
		t.Fatalf("Failed to read vod categories: %v", err)
	}
	if len(gotVOD) != 1 || gotVOD[0].Name != "Action" || gotVOD[0].Type != models.CategoryVOD {
		t.Errorf("Unexpected vod categories: %+v", gotVOD)
	}

	gotLive, err := db.CategoriesByUser(ctx, "hashA", models.CategoryLiveTV)
	if err != nil {
		t.Fatalf("Failed to read live categories: %v", err)
	}
	if len(gotLive) != 1 || gotLive[0].Name != "Sports" {
		t.Errorf("Unexpected live categories: %+v", gotLive)
	}
}

func TestSyncMetadataAbsentReturnsNil(t *testing.T) {
	db := newTestDB(t)

	meta, err := db.SyncMetadataByUser(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if meta != nil {
		t.Errorf("Expected nil for unknown tenant, got %+v", meta)
	}
}

func TestSyncMetadataRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	meta := &models.SyncMetadata{
		UserHash:        "hashA",
		LastFullSync:    time.Date(2026, 8, 15, 9, 30, 0, 0, time.UTC),
		MoviesCount:     120,
		SeriesCount:     40,
		ChannelsCount:   300,
		CategoriesCount: 25,
		IsValid:         true,
	}
	if err := db.UpsertSyncMetadata(ctx, meta); err != nil {
		t.Fatalf("Failed to upsert sync metadata: %v", err)
	}

	got, err := db.SyncMetadataByUser(ctx, "hashA")
	if err != nil {
		t.Fatalf("Failed to read sync metadata: %v", err)
	}
	if got == nil {
		t.Fatal("Expected sync metadata, got nil")
	}
	if !got.LastFullSync.Equal(meta.LastFullSync) || got.MoviesCount != 120 || !got.IsValid {
		t.Errorf("Sync metadata mismatch: %+v", got)
	}
}

func TestDeleteUserCatalog(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := db.ReplaceMovies(ctx, "hashA", []models.Movie{{StreamID: 1, Name: "A"}}, now); err != nil {
		t.Fatalf("Failed to seed: %v", err)
	}
	if err := db.UpsertSyncMetadata(ctx, &models.SyncMetadata{UserHash: "hashA", LastFullSync: now, IsValid: true}); err != nil {
		t.Fatalf("Failed to seed metadata: %v", err)
	}

	if err := db.DeleteUserCatalog(ctx, "hashA"); err != nil {
		t.Fatalf("Failed to delete user catalog: %v", err)
	}

	movies, err := db.MoviesByUser(ctx, "hashA")
	if err != nil {
		t.Fatalf("Failed to read movies: %v", err)
	}
	if len(movies) != 0 {
		t.Errorf("Expected no movies after delete, got %d", len(movies))
	}
	meta, err := db.SyncMetadataByUser(ctx, "hashA")
	if err != nil {
		t.Fatalf("Failed to read metadata: %v", err)
	}
	if meta != nil {
		t.Error("Expected sync metadata deleted")
	}
}

func TestDeleteOtherUsersCatalog(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := db.ReplaceMovies(ctx, "current", []models.Movie{{StreamID: 1, Name: "Keep"}}, now); err != nil {
		t.Fatalf("Failed to seed current: %v", err)
	}
	if err := db.ReplaceMovies(ctx, "stale", []models.Movie{{StreamID: 2, Name: "Drop"}}, now); err != nil {
		t.Fatalf("Failed to seed stale: %v", err)
	}

	if err := db.DeleteOtherUsersCatalog(ctx, "current"); err != nil {
		t.Fatalf("Failed to delete other users: %v", err)
	}

	kept, err := db.MoviesByUser(ctx, "current")
	if err != nil {
		t.Fatalf("Failed to read current: %v", err)
	}
	if len(kept) != 1 {
		t.Errorf("Expected current tenant kept, got %d rows", len(kept))
	}
	dropped, err := db.MoviesByUser(ctx, "stale")
	if err != nil {
		t.Fatalf("Failed to read stale: %v", err)
	}
	if len(dropped) != 0 {
		t.Errorf("Expected stale tenant purged, got %d rows", len(dropped))
	}
}

func TestDeleteCatalogOlderThan(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	old := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	fresh := old.Add(24 * time.Hour)

	if err := db.ReplaceMovies(ctx, "hashA", []models.Movie{{StreamID: 1, Name: "Old"}}, old); err != nil {
		t.Fatalf("Failed to seed old: %v", err)
	}
	if err := db.ReplaceMovies(ctx, "hashB", []models.Movie{{StreamID: 2, Name: "Fresh"}}, fresh); err != nil {
		t.Fatalf("Failed to seed fresh: %v", err)
	}

	deleted, err := db.DeleteCatalogOlderThan(ctx, old.Add(time.Hour))
	if err != nil {
		t.Fatalf("Failed to sweep: %v", err)
	}
	if deleted["xtream_movies"] != 1 {
		t.Errorf("Expected 1 movie swept, got %d", deleted["xtream_movies"])
	}

	rows, err := db.MoviesByUser(ctx, "hashB")
	if err != nil {
		t.Fatalf("Failed to read fresh: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("Expected fresh row kept, got %d", len(rows))
	}
}

func TestDistinctTMDBIDs(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	movies := []models.Movie{
		{StreamID: 1, Name: "A", TMDBID: "550"},
		{StreamID: 2, Name: "A again", TMDBID: "550"}, // duplicate id
		{StreamID: 3, Name: "B", TMDBID: "680"},
		{StreamID: 4, Name: "No id", TMDBID: ""},
	}
	if err := db.ReplaceMovies(ctx, "hashA", movies, now); err != nil {
		t.Fatalf("Failed to seed: %v", err)
	}

	ids, err := db.MovieTMDBIDs(ctx, "hashA")
	if err != nil {
		t.Fatalf("Failed to list ids: %v", err)
	}
	if len(ids) != 2 || ids[0] != "550" || ids[1] != "680" {
		t.Errorf("Unexpected id list: %v", ids)
	}
}

func TestMoviesByTMDBID(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	movies := []models.Movie{
		{StreamID: 1, Name: "SD", TMDBID: "550"},
		{StreamID: 2, Name: "HD", TMDBID: "550"},
		{StreamID: 3, Name: "Other", TMDBID: "680"},
	}
	if err := db.ReplaceMovies(ctx, "hashA", movies, now); err != nil {
		t.Fatalf("Failed to seed: %v", err)
	}

	got, err := db.MoviesByTMDBID(ctx, "hashA", "550")
	if err != nil {
		t.Fatalf("Failed to read by tmdb id: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Expected 2 variants for tmdb id 550, got %d", len(got))
	}
}

func TestTMDBMovieRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	fetchedAt := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	data := &models.TMDBMovieData{
		ID: 550, Title: "Fight Club", OriginalTitle: "Fight Club",
		Overview: "An overview.", PosterPath: "/p.jpg", BackdropPath: "/b.jpg",
		ReleaseDate: "1999-10-15", VoteAverage: 8.4, VoteCount: 26000, Runtime: 139,
		Genres: []models.TMDBGenre{{ID: 18, Name: "Drama"}, {ID: 53, Name: "Thriller"}},
		Budget: 63000000, Revenue: 100853753, Tagline: "A tagline.",
		Status: "Released", OriginalLanguage: "en", Popularity: 61.4,
		Homepage: "http://example.com", IMDBID: "tt0137523",
	}
	if err := db.UpsertTMDBMovie(ctx, "550", data, fetchedAt); err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}

	row, err := db.TMDBMovieByID(ctx, "550")
	if err != nil {
		t.Fatalf("Failed to read: %v", err)
	}
	if row == nil {
		t.Fatal("Expected row, got nil")
	}
	if row.Data.ID != 550 || row.Data.Title != "Fight Club" {
		t.Errorf("Unexpected row data: %+v", row.Data)
	}
	if len(row.Data.Genres) != 2 || row.Data.Genres[0].ID != 18 || row.Data.Genres[1].Name != "Thriller" {
		t.Errorf("Genre ids lost in round trip: %+v", row.Data.Genres)
	}
	if !row.FetchedAt.Equal(fetchedAt) {
		t.Errorf("Expected fetch time %s, got %s", fetchedAt, row.FetchedAt)
	}
}

func TestTMDBMovieAbsentReturnsNil(t *testing.T) {
	db := newTestDB(t)

	row, err := db.TMDBMovieByID(context.Background(), "999999")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if row != nil {
		t.Errorf("Expected nil for unknown id, got %+v", row)
	}
}

func TestTMDBMoviesByIDsReturnsPresentSubset(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, id := range []string{"100", "200"} {
		if err := db.UpsertTMDBMovie(ctx, id, &models.TMDBMovieData{Title: "Movie " + id}, now); err != nil {
			t.Fatalf("Failed to seed %s: %v", id, err)
		}
	}

	got, err := db.TMDBMoviesByIDs(ctx, []string{"100", "200", "300"})
	if err != nil {
		t.Fatalf("Failed batch read: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(got))
	}
	if _, ok := got["300"]; ok {
		t.Error("Expected absent id to be omitted")
	}
	if got["100"].Data.Title != "Movie 100" {
		t.Errorf("Unexpected row: %+v", got["100"])
	}
}

func TestTMDBSeriesRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	data := &models.TMDBSeriesData{
		ID: 1399, Name: "A Show", OriginalName: "A Show",
		Overview: "Series overview.", FirstAirDate: "2011-04-17", LastAirDate: "2019-05-19",
		VoteAverage: 8.4, VoteCount: 21000,
		Genres:         []models.TMDBGenre{{ID: 10765, Name: "Sci-Fi & Fantasy"}},
		EpisodeRunTime: []int{60}, InProduction: false,
		NumberOfEpisodes: 73, NumberOfSeasons: 8,
		OriginalLanguage: "en", Popularity: 300.1, Status: "Ended",
		Type: "Scripted",
	}
	if err := db.UpsertTMDBSeries(ctx, "1399", data, now); err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}

	row, err := db.TMDBSeriesByID(ctx, "1399")
	if err != nil {
		t.Fatalf("Failed to read: %v", err)
	}
	if row == nil {
		t.Fatal("Expected row, got nil")
	}
	if row.Data.NumberOfSeasons != 8 || row.Data.Type != "Scripted" {
		t.Errorf("Unexpected row data: %+v", row.Data)
	}
	if len(row.Data.EpisodeRunTime) != 1 || row.Data.EpisodeRunTime[0] != 60 {
		t.Errorf("Episode run times lost: %v", row.Data.EpisodeRunTime)
	}
}

func TestDeleteTMDBOlderThan(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	old := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	if err := db.UpsertTMDBMovie(ctx, "1", &models.TMDBMovieData{Title: "Old"}, old); err != nil {
		t.Fatalf("Failed to seed old: %v", err)
	}
	if err := db.UpsertTMDBMovie(ctx, "2", &models.TMDBMovieData{Title: "Fresh"}, old.Add(48*time.Hour)); err != nil {
		t.Fatalf("Failed to seed fresh: %v", err)
	}

	deleted, err := db.DeleteTMDBOlderThan(ctx, old.Add(time.Hour))
	if err != nil {
		t.Fatalf("Failed to sweep: %v", err)
	}
	if deleted["tmdb_movies"] != 1 {
		t.Errorf("Expected 1 movie swept, got %d", deleted["tmdb_movies"])
	}

	row, err := db.TMDBMovieByID(ctx, "2")
	if err != nil {
		t.Fatalf("Failed to read fresh: %v", err)
	}
	if row == nil {
		t.Error("Expected fresh row kept")
	}
}

func TestParseNumericID(t *testing.T) {
	if got := parseNumericID("550"); got != 550 {
		t.Errorf("Expected 550, got %d", got)
	}
	if got := parseNumericID("tt0137523"); got != 0 {
		t.Errorf("Expected 0 for non-numeric id, got %d", got)
	}
}
