// StreamCache - IPTV Catalog Cache and Sync Core
// Copyright 2026 Kybers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kybers/streamcache

// Package models defines the domain types shared between the persistent
// catalog cache and its callers: the Xtream-sourced catalog (movies, series,
// live channels, categories), the per-tenant sync bookkeeping record, and the
// TMDB enrichment metadata.
package models

import "time"

// CategoryType identifies which catalog a category belongs to.
type CategoryType string

const (
	CategoryLiveTV CategoryType = "live"
	CategoryVOD    CategoryType = "vod"
	CategorySeries CategoryType = "series"
)

// Movie is a VOD entry from the Xtream catalog.
type Movie struct {
	StreamID           int
	Name               string
	Icon               string
	CategoryID         string
	Rating             string
	Rating5Based       float64
	AddedTimestamp     int64
	IsAdult            bool
	ContainerExtension string

	// TMDBID cross-references the enrichment catalog. Empty when the
	// provider did not supply one.
	TMDBID string
}

// Series is a series entry from the Xtream catalog.
type Series struct {
	SeriesID       int
	Name           string
	Cover          string
	CategoryID     string
	Plot           string
	Cast           string
	Director       string
	Genre          string
	ReleaseDate    string
	LastModified   string
	Rating         string
	Rating5Based   float64
	BackdropPath   string
	YoutubeTrailer string
	EpisodeRunTime string
	TMDBID         string
}

// Channel is a live TV entry from the Xtream catalog.
type Channel struct {
	StreamID          int
	Name              string
	Icon              string
	CategoryID        string
	EPGChannelID      string
	IsAdult           bool
	TVArchive         bool
	TVArchiveDuration int
	AddedTimestamp    int64
}

// Category is a catalog grouping, scoped by content type.
type Category struct {
	CategoryID string
	Name       string
	Type       CategoryType
}

// SyncMetadata is the per-tenant bookkeeping record marking when the full
// Xtream catalog was last refreshed. It is the single authority for catalog
// freshness: rows without a matching valid record are treated as stale.
type SyncMetadata struct {
	UserHash        string
	LastFullSync    time.Time
	MoviesCount     int
	SeriesCount     int
	ChannelsCount   int
	CategoriesCount int
	IsValid         bool
}
