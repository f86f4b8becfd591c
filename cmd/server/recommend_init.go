// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/VernAnge/recommendations-app/internal/config"
	"github.com/VernAnge/recommendations-app/internal/dataset"
	"github.com/VernAnge/recommendations-app/internal/export"
	"github.com/VernAnge/recommendations-app/internal/metrics"
	"github.com/VernAnge/recommendations-app/internal/recommend"
	"github.com/VernAnge/recommendations-app/internal/recommend/storage"
	"github.com/VernAnge/recommendations-app/internal/supervisor"
	"github.com/VernAnge/recommendations-app/internal/supervisor/services"
)

// RecommendComponents holds the recommendation runtime.
type RecommendComponents struct {
	Engine    *recommend.Engine
	Source    dataset.Source
	Snapshots *storage.Store // nil when persistence is disabled
	Exports   *export.Store  // nil when export is disabled
	Refresh   *services.RefreshService
}

// Close releases the export store.
func (c *RecommendComponents) Close() error {
	if c.Exports == nil {
		return nil
	}
	return c.Exports.Close()
}

// initRecommend creates the engine and its stores and loads the first
// snapshot. A restored snapshot is preferred over a rebuild unless
// REFRESH_ON_STARTUP is set.
//
//nolint:gocritic // hugeParam: logger passed by value for zerolog chaining
func initRecommend(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*RecommendComponents, error) {
	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}
	engine, err := recommend.NewEngine(engineCfg, logger, recommend.WithRecorder(metrics.Recorder{}))
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}

	source, err := cfg.TrainingSource()
	if err != nil {
		return nil, fmt.Errorf("training source: %w", err)
	}

	c := &RecommendComponents{Engine: engine, Source: source}

	if cfg.Storage.SnapshotDir != "" {
		if c.Snapshots, err = storage.NewStore(cfg.Storage.SnapshotDir); err != nil {
			return nil, err
		}
	}
	if cfg.Storage.ExportPath != "" {
		if c.Exports, err = export.Open(cfg.Storage.ExportPath); err != nil {
			return nil, err
		}
	}

	var opts []services.RefreshOption
	if c.Snapshots != nil {
		opts = append(opts, services.WithSnapshotStore(c.Snapshots))
	}
	if c.Exports != nil {
		opts = append(opts, services.WithExporter(c.Exports))
	}
	c.Refresh = services.NewRefreshService(source, engine, services.RefreshConfig{
		Interval:     refreshInterval(cfg),
		SnapshotName: cfg.Storage.SnapshotName,
		Retain:       cfg.Storage.Retain,
		ExportTopN:   cfg.Storage.ExportTopN,
	}, logger, opts...)

	if !cfg.Refresh.OnStartup && c.restore(ctx, cfg.Storage.SnapshotName, logger) {
		return c, nil
	}
	if err := c.Refresh.Refresh(ctx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("initial build: %w", err)
	}
	return c, nil
}

// restore loads the newest persisted snapshot. Returns false when none is
// usable, in which case the caller builds from the log.
//
//nolint:gocritic // hugeParam: logger passed by value for zerolog chaining
func (c *RecommendComponents) restore(ctx context.Context, name string, logger zerolog.Logger) bool {
	if c.Snapshots == nil {
		return false
	}
	snap, meta, err := c.Snapshots.Load(ctx, name, 0)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logger.Warn().Err(err).Msg("stored snapshot unusable, rebuilding")
		}
		return false
	}
	if err := c.Engine.Load(snap); err != nil {
		logger.Warn().Err(err).Msg("stored snapshot rejected, rebuilding")
		return false
	}
	logger.Info().
		Int("version", meta.Version).
		Time("built_at", meta.BuiltAt).
		Msg("restored snapshot from storage")
	return true
}

// addServices registers the refresh loop with the data layer.
func (c *RecommendComponents) addServices(cfg *config.Config, tree *supervisor.Tree) {
	if !cfg.Refresh.Enabled {
		return
	}
	tree.AddDataService(c.Refresh)
}

func refreshInterval(cfg *config.Config) time.Duration {
	if !cfg.Refresh.Enabled {
		return 0
	}
	return cfg.Refresh.Interval
}
