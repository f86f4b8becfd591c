// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package config loads the recommendation service configuration.
//
// Values are layered with koanf: struct defaults first, then an optional
// YAML file (CONFIG_PATH or config.yaml), then a fixed set of environment
// variables. See envMappings for the supported variable names.
package config

import (
	"time"

	"github.com/VernAnge/recommendations-app/internal/dataset"
	"github.com/VernAnge/recommendations-app/internal/logging"
	"github.com/VernAnge/recommendations-app/internal/recommend"
)

// Config is the complete service configuration.
type Config struct {
	Data      DataConfig      `koanf:"data"`
	Recommend RecommendConfig `koanf:"recommend"`
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Storage   StorageConfig   `koanf:"storage"`
	Refresh   RefreshConfig   `koanf:"refresh"`
}

// DataConfig locates the interaction logs.
type DataConfig struct {
	// TrainingPath is the interaction log the snapshot is built from.
	TrainingPath string `koanf:"training_path"`

	// EvaluationPath is the optional bootstrap log used by "evaluate".
	EvaluationPath string `koanf:"evaluation_path"`

	// Format is csv, duckdb or parquet. Empty infers from the extension.
	Format string `koanf:"format"`

	Columns dataset.Columns `koanf:"columns"`

	// DuckDBThreads limits DuckDB worker threads. 0 = runtime.NumCPU().
	DuckDBThreads int `koanf:"duckdb_threads"`

	// DuckDBMaxMemory caps DuckDB memory, e.g. "1GB".
	DuckDBMaxMemory string `koanf:"duckdb_max_memory"`
}

// RecommendConfig holds engine tuning.
type RecommendConfig struct {
	DefaultTopN int    `koanf:"default_top_n"`
	MaxTopN     int    `koanf:"max_top_n"`
	Mode        string `koanf:"mode"`

	// BlockSize is the number of similarity rows computed per task.
	BlockSize int `koanf:"block_size"`

	// Workers bounds concurrent similarity tasks. 0 = runtime.NumCPU().
	Workers int `koanf:"workers"`

	CacheEnabled    bool          `koanf:"cache_enabled"`
	CacheTTL        time.Duration `koanf:"cache_ttl"`
	CacheMaxEntries int           `koanf:"cache_max_entries"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// StorageConfig controls snapshot persistence and the export store.
type StorageConfig struct {
	// SnapshotDir holds gzip'd snapshot files. Empty disables persistence.
	SnapshotDir string `koanf:"snapshot_dir"`

	// SnapshotName is the file name stem of stored snapshots.
	SnapshotName string `koanf:"snapshot_name"`

	// Retain is the number of snapshot versions kept by Prune.
	Retain int `koanf:"retain"`

	// ExportPath is the BadgerDB directory for precomputed lists.
	// Empty disables exporting after a refresh.
	ExportPath string `koanf:"export_path"`

	// ExportTopN is the list length written per user.
	ExportTopN int `koanf:"export_top_n"`
}

// RefreshConfig controls periodic snapshot rebuilds.
type RefreshConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Interval time.Duration `koanf:"interval"`

	// OnStartup rebuilds from the training log even when a stored snapshot
	// could be restored.
	OnStartup bool `koanf:"on_startup"`
}

// defaultConfig returns a Config with all default values.
func defaultConfig() *Config {
	engine := recommend.DefaultConfig()
	return &Config{
		Data: DataConfig{
			TrainingPath: "training_log.csv",
			Columns:      dataset.DefaultColumns(),
		},
		Recommend: RecommendConfig{
			DefaultTopN:     engine.Ranking.DefaultTopN,
			MaxTopN:         engine.Ranking.MaxTopN,
			Mode:            engine.Ranking.Mode.String(),
			BlockSize:       engine.Similarity.BlockSize,
			Workers:         engine.Similarity.Workers,
			CacheEnabled:    engine.Cache.Enabled,
			CacheTTL:        engine.Cache.TTL,
			CacheMaxEntries: engine.Cache.MaxEntries,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Storage: StorageConfig{
			SnapshotDir:  "data/snapshots",
			SnapshotName: "recommendations",
			Retain:       3,
			ExportTopN:   recommend.DefaultTopN,
		},
		Refresh: RefreshConfig{
			Enabled:  true,
			Interval: time.Hour,
		},
	}
}

// Default returns the default configuration.
func Default() *Config {
	return defaultConfig()
}

// EngineConfig converts the recommend section to a recommend.Config.
func (c *Config) EngineConfig() (*recommend.Config, error) {
	mode, err := recommend.ParseScoringMode(c.Recommend.Mode)
	if err != nil {
		return nil, err
	}
	cfg := &recommend.Config{
		Similarity: recommend.SimilarityConfig{
			BlockSize: c.Recommend.BlockSize,
			Workers:   c.Recommend.Workers,
		},
		Ranking: recommend.RankingConfig{
			DefaultTopN: c.Recommend.DefaultTopN,
			MaxTopN:     c.Recommend.MaxTopN,
			Mode:        mode,
		},
		Cache: recommend.CacheConfig{
			Enabled:    c.Recommend.CacheEnabled,
			TTL:        c.Recommend.CacheTTL,
			MaxEntries: c.Recommend.CacheMaxEntries,
		},
	}
	return cfg, cfg.Validate()
}

// LoggingOptions converts the logging section to a logging.Config.
func (c *Config) LoggingOptions() logging.Config {
	out := logging.DefaultConfig()
	out.Level = c.Logging.Level
	out.Format = c.Logging.Format
	out.Caller = c.Logging.Caller
	return out
}

// TrainingSource returns the data source of the training log.
func (c *Config) TrainingSource() (dataset.Source, error) {
	return c.source(c.Data.TrainingPath)
}

// EvaluationSource returns the data source of the evaluation log.
func (c *Config) EvaluationSource() (dataset.Source, error) {
	return c.source(c.Data.EvaluationPath)
}

func (c *Config) source(path string) (dataset.Source, error) {
	src, err := dataset.NewSource(c.Data.Format, path, c.Data.Columns)
	if err != nil {
		return nil, err
	}
	if duck, ok := src.(*dataset.DuckDBSource); ok {
		duck.Threads = c.Data.DuckDBThreads
		duck.MaxMemory = c.Data.DuckDBMaxMemory
	}
	return src, nil
}
