// StreamCache - IPTV Catalog Cache and Sync Core
// Copyright 2026 Kybers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kybers/streamcache

// Package config provides layered configuration for the caching daemon.
//
// Loading order (Koanf v2):
//  1. Defaults: built-in sensible defaults for every setting
//  2. Config file: optional YAML file (config.yaml)
//  3. Environment variables: override any setting
//
// Config is immutable after Load() and safe for concurrent reads.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds all daemon configuration.
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Cache    CacheConfig    `koanf:"cache"`
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// DatabaseConfig holds DuckDB settings for the persistent catalog store.
//
// Environment Variables:
//   - DUCKDB_PATH: Database file path, or ":memory:" (default: /data/streamcache.duckdb)
//   - DUCKDB_MAX_MEMORY: DuckDB memory limit (default: 1GB)
//   - DUCKDB_THREADS: Worker threads, 0 = runtime.NumCPU() (default: 0)
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"`
}

// CacheConfig holds the validity windows and sweep cadence for the
// persistent catalog cache.
//
// Environment Variables:
//   - CACHE_XTREAM_TTL: How long a synced provider catalog stays fresh (default: 12h)
//   - CACHE_TMDB_TTL: How long enrichment metadata stays fresh (default: 168h)
//   - CACHE_SWEEP_INTERVAL: How often expired rows and entries are swept (default: 1h)
type CacheConfig struct {
	XtreamTTL     time.Duration `koanf:"xtream_ttl"`
	TMDBTTL       time.Duration `koanf:"tmdb_ttl"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// ServerConfig holds the operational HTTP endpoint settings (health and
// metrics).
//
// Environment Variables:
//   - HTTP_HOST: Listen address (default: 0.0.0.0)
//   - HTTP_PORT: Listen port (default: 8475)
//   - HTTP_TIMEOUT: Read/write timeout (default: 30s)
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// LoggingConfig holds log output settings.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json or console (default: json)
//   - LOG_CALLER: include caller file:line (default: false)
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for values that would fail at runtime.
func (c *Config) Validate() error {
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database path must not be empty")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("database threads must not be negative, got %d", c.Database.Threads)
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.XtreamTTL <= 0 {
		return fmt.Errorf("cache xtream_ttl must be positive, got %s", c.Cache.XtreamTTL)
	}
	if c.Cache.TMDBTTL <= 0 {
		return fmt.Errorf("cache tmdb_ttl must be positive, got %s", c.Cache.TMDBTTL)
	}
	if c.Cache.SweepInterval <= 0 {
		return fmt.Errorf("cache sweep_interval must be positive, got %s", c.Cache.SweepInterval)
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server timeout must be positive, got %s", c.Server.Timeout)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format %q", c.Logging.Format)
	}
	return nil
}
