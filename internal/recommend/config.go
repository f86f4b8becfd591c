// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package recommend

import (
	"fmt"
	"time"
)

const (
	// DefaultTopN is the number of items returned when a request leaves TopN unset.
	DefaultTopN = 10

	// DefaultBlockSize is the number of similarity rows computed per task.
	DefaultBlockSize = 256
)

// Config contains all configuration for the recommendation engine.
type Config struct {
	// Similarity contains parameters for the similarity computation.
	Similarity SimilarityConfig `json:"similarity"`

	// Ranking contains ranking and scoring parameters.
	Ranking RankingConfig `json:"ranking"`

	// Cache contains result caching parameters.
	Cache CacheConfig `json:"cache"`
}

// SimilarityConfig contains parameters for the similarity computation.
type SimilarityConfig struct {
	// BlockSize is the number of user rows per block task.
	// Peak scratch memory per task is BlockSize x users floats.
	// Default: 256.
	BlockSize int `json:"block_size"`

	// Workers is the number of block tasks run concurrently.
	// Default: runtime.NumCPU().
	Workers int `json:"workers"`
}

// RankingConfig contains ranking and scoring parameters.
type RankingConfig struct {
	// DefaultTopN is used when a request does not set TopN.
	// Default: 10.
	DefaultTopN int `json:"default_top_n"`

	// MaxTopN caps the requested TopN.
	// Default: 100.
	MaxTopN int `json:"max_top_n"`

	// Mode is the default scoring mode.
	// Default: ScoreMeanSimilarity.
	Mode ScoringMode `json:"mode"`
}

// CacheConfig contains caching parameters.
type CacheConfig struct {
	// Enabled controls whether responses are cached per snapshot.
	// Default: true.
	Enabled bool `json:"enabled"`

	// TTL is the cache entry time-to-live.
	// Default: 5m.
	TTL time.Duration `json:"ttl"`

	// MaxEntries is the maximum number of cached responses.
	// Default: 10000.
	MaxEntries int `json:"max_entries"`
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() *Config {
	return &Config{
		Similarity: SimilarityConfig{
			BlockSize: DefaultBlockSize,
			Workers:   0, // 0 = runtime.NumCPU()
		},
		Ranking: RankingConfig{
			DefaultTopN: DefaultTopN,
			MaxTopN:     100,
			Mode:        ScoreMeanSimilarity,
		},
		Cache: CacheConfig{
			Enabled:    true,
			TTL:        5 * time.Minute,
			MaxEntries: 10000,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Similarity.BlockSize < 0 {
		return fmt.Errorf("similarity.block_size must be non-negative, got %d", c.Similarity.BlockSize)
	}
	if c.Similarity.Workers < 0 {
		return fmt.Errorf("similarity.workers must be non-negative, got %d", c.Similarity.Workers)
	}

	if c.Ranking.DefaultTopN < 1 {
		return fmt.Errorf("ranking.default_top_n must be positive, got %d", c.Ranking.DefaultTopN)
	}
	if c.Ranking.MaxTopN < c.Ranking.DefaultTopN {
		return fmt.Errorf("ranking.max_top_n must be >= ranking.default_top_n, got %d < %d",
			c.Ranking.MaxTopN, c.Ranking.DefaultTopN)
	}
	if c.Ranking.Mode != ScoreMeanSimilarity && c.Ranking.Mode != ScoreWeighted {
		return fmt.Errorf("ranking.mode is invalid: %d", c.Ranking.Mode)
	}

	if c.Cache.Enabled {
		if c.Cache.TTL <= 0 {
			return fmt.Errorf("cache.ttl must be positive, got %v", c.Cache.TTL)
		}
		if c.Cache.MaxEntries < 1 {
			return fmt.Errorf("cache.max_entries must be positive, got %d", c.Cache.MaxEntries)
		}
	}

	return nil
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	// All nested structs contain only value types.
	cp := *c
	return &cp
}
