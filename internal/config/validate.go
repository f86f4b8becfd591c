// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package config

import (
	"fmt"
	"strings"

	"github.com/VernAnge/recommendations-app/internal/dataset"
)

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validateData(); err != nil {
		return err
	}
	if _, err := c.EngineConfig(); err != nil {
		return fmt.Errorf("recommend: %w", err)
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.LoggingOptions().Validate(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	return c.validateRefresh()
}

func (c *Config) validateData() error {
	if strings.TrimSpace(c.Data.TrainingPath) == "" {
		return fmt.Errorf("TRAINING_PATH is required")
	}
	switch strings.ToLower(c.Data.Format) {
	case "", dataset.FormatCSV, dataset.FormatDuckDB, dataset.FormatParquet:
	default:
		return fmt.Errorf("DATA_FORMAT must be csv, duckdb or parquet, got %q", c.Data.Format)
	}
	if err := c.Data.Columns.Validate(); err != nil {
		return fmt.Errorf("data.columns: %w", err)
	}
	if c.Data.DuckDBThreads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must be non-negative, got %d", c.Data.DuckDBThreads)
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %v", c.Server.Timeout)
	}
	if !c.Server.RateLimitDisabled {
		if c.Server.RateLimitReqs < 1 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive, got %d", c.Server.RateLimitReqs)
		}
		if c.Server.RateLimitWindow <= 0 {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %v", c.Server.RateLimitWindow)
		}
	}
	return nil
}

func (c *Config) validateStorage() error {
	if c.Storage.SnapshotDir != "" && strings.TrimSpace(c.Storage.SnapshotName) == "" {
		return fmt.Errorf("SNAPSHOT_NAME is required when SNAPSHOT_DIR is set")
	}
	if c.Storage.Retain < 0 {
		return fmt.Errorf("SNAPSHOT_RETAIN must be non-negative, got %d", c.Storage.Retain)
	}
	if c.Storage.ExportTopN < 0 {
		return fmt.Errorf("EXPORT_TOP_N must be non-negative, got %d", c.Storage.ExportTopN)
	}
	return nil
}

func (c *Config) validateRefresh() error {
	if c.Refresh.Enabled && c.Refresh.Interval <= 0 {
		return fmt.Errorf("REFRESH_INTERVAL must be positive when refresh is enabled, got %v", c.Refresh.Interval)
	}
	return nil
}
