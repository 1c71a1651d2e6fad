// StreamCache - IPTV Catalog Cache and Sync Core
// Copyright 2026 Kybers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kybers/streamcache

package models

// TMDBGenre is a genre reference from the enrichment catalog.
type TMDBGenre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// TMDBMovieData is the enrichment metadata for a movie, keyed by TMDB id.
// Enrichment rows are shared across tenants: the same TMDB id describes the
// same content regardless of which provider account surfaced it.
//
// The persistent cache is a display cache. Structured sub-objects that only
// matter on a detail screen (credits, videos, production companies) are not
// persisted; a cached read returns them empty.
type TMDBMovieData struct {
	ID               int
	Title            string
	OriginalTitle    string
	Overview         string
	PosterPath       string
	BackdropPath     string
	ReleaseDate      string
	VoteAverage      float64
	VoteCount        int
	Runtime          int
	Genres           []TMDBGenre
	Adult            bool
	Budget           int64
	Revenue          int64
	Tagline          string
	Status           string
	OriginalLanguage string
	Popularity       float64
	Homepage         string
	IMDBID           string
}

// TMDBSeriesData is the enrichment metadata for a series, keyed by TMDB id.
type TMDBSeriesData struct {
	ID               int
	Name             string
	OriginalName     string
	Overview         string
	PosterPath       string
	BackdropPath     string
	FirstAirDate     string
	LastAirDate      string
	VoteAverage      float64
	VoteCount        int
	Genres           []TMDBGenre
	Adult            bool
	EpisodeRunTime   []int
	InProduction     bool
	NumberOfEpisodes int
	NumberOfSeasons  int
	OriginalLanguage string
	Popularity       float64
	Status           string
	Tagline          string
	Type             string
	Homepage         string
}
