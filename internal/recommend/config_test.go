// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package recommend

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v", err)
	}
	if cfg.Ranking.DefaultTopN != DefaultTopN {
		t.Errorf("Ranking.DefaultTopN = %d, want %d", cfg.Ranking.DefaultTopN, DefaultTopN)
	}
	if cfg.Ranking.Mode != ScoreMeanSimilarity {
		t.Errorf("Ranking.Mode = %v, want baseline", cfg.Ranking.Mode)
	}
	if cfg.Similarity.BlockSize != DefaultBlockSize {
		t.Errorf("Similarity.BlockSize = %d, want %d", cfg.Similarity.BlockSize, DefaultBlockSize)
	}
	if !cfg.Cache.Enabled || cfg.Cache.TTL <= 0 {
		t.Errorf("cache defaults = %+v", cfg.Cache)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"default is valid", func(c *Config) {}, false},
		{"negative block size", func(c *Config) { c.Similarity.BlockSize = -1 }, true},
		{"negative workers", func(c *Config) { c.Similarity.Workers = -2 }, true},
		{"zero default top_n", func(c *Config) { c.Ranking.DefaultTopN = 0 }, true},
		{"max below default", func(c *Config) { c.Ranking.MaxTopN = 5 }, true},
		{"unknown mode", func(c *Config) { c.Ranking.Mode = ScoringMode(7) }, true},
		{"weighted mode", func(c *Config) { c.Ranking.Mode = ScoreWeighted }, false},
		{"enabled cache zero ttl", func(c *Config) { c.Cache.TTL = 0 }, true},
		{"enabled cache zero size", func(c *Config) { c.Cache.MaxEntries = 0 }, true},
		{"disabled cache ignores ttl", func(c *Config) {
			c.Cache.Enabled = false
			c.Cache.TTL = 0
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigClone(t *testing.T) {
	cfg := DefaultConfig()
	clone := cfg.Clone()
	clone.Ranking.DefaultTopN = 50
	clone.Cache.TTL = time.Hour

	if cfg.Ranking.DefaultTopN != DefaultTopN {
		t.Error("modifying clone changed original ranking config")
	}
	if cfg.Cache.TTL != 5*time.Minute {
		t.Error("modifying clone changed original cache config")
	}
}

func TestConfigJSON(t *testing.T) {
	data, err := json.Marshal(DefaultConfig())
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var decoded Config
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if decoded != *DefaultConfig() {
		t.Errorf("decoded config = %+v, want defaults", decoded)
	}
}
