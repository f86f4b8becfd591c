// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package services provides suture service wrappers for the recommendation
// server: the HTTP server and the snapshot refresh loop.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/VernAnge/recommendations-app/internal/dataset"
	"github.com/VernAnge/recommendations-app/internal/export"
	"github.com/VernAnge/recommendations-app/internal/metrics"
	"github.com/VernAnge/recommendations-app/internal/recommend"
	"github.com/VernAnge/recommendations-app/internal/recommend/storage"
)

// Engine is the part of recommend.Engine the refresh loop drives.
type Engine interface {
	Build(ctx context.Context, records []recommend.InteractionRecord) (*recommend.Snapshot, error)
	SeedVersion(version int)
	export.Recommender
}

// SnapshotStore persists built snapshots. *storage.Store implements it.
type SnapshotStore interface {
	Save(ctx context.Context, name string, snap *recommend.Snapshot) (*storage.SnapshotMetadata, error)
	LatestVersion(name string) (int, bool)
	Prune(ctx context.Context, name string, keep int) (int, error)
}

// Exporter writes precomputed lists. *export.Store implements it.
type Exporter interface {
	Export(ctx context.Context, rec export.Recommender, topN int) (*export.Manifest, error)
}

// RefreshConfig holds configuration for the refresh loop.
type RefreshConfig struct {
	// Interval between rebuilds. Zero or less disables the schedule.
	Interval time.Duration

	// OnStartup runs one refresh as soon as the service starts.
	OnStartup bool

	// Timeout bounds one refresh cycle. Default: 30m
	Timeout time.Duration

	// SnapshotName and Retain control persistence.
	SnapshotName string
	Retain       int

	// ExportTopN is the list length written by the exporter.
	ExportTopN int
}

// RefreshService periodically reloads the interaction log, rebuilds the
// snapshot, persists it and refreshes the precomputed export. A failed
// cycle leaves the previous snapshot serving.
type RefreshService struct {
	source   dataset.Source
	engine   Engine
	store    SnapshotStore
	exporter Exporter
	config   RefreshConfig
	logger   zerolog.Logger
}

// RefreshOption configures optional collaborators.
type RefreshOption func(*RefreshService)

// WithSnapshotStore persists every built snapshot.
func WithSnapshotStore(s SnapshotStore) RefreshOption {
	return func(r *RefreshService) { r.store = s }
}

// WithExporter refreshes the export after every build.
func WithExporter(e Exporter) RefreshOption {
	return func(r *RefreshService) { r.exporter = e }
}

// NewRefreshService creates the refresh loop.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRefreshService(source dataset.Source, engine Engine, cfg RefreshConfig, logger zerolog.Logger, opts ...RefreshOption) *RefreshService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Minute
	}
	if cfg.SnapshotName == "" {
		cfg.SnapshotName = "recommendations"
	}
	if cfg.ExportTopN <= 0 {
		cfg.ExportTopN = recommend.DefaultTopN
	}
	s := &RefreshService{
		source: source,
		engine: engine,
		config: cfg,
		logger: logger.With().Str("service", "refresh").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serve implements suture.Service.
func (s *RefreshService) Serve(ctx context.Context) error {
	s.logger.Info().
		Str("source", s.source.String()).
		Bool("on_startup", s.config.OnStartup).
		Dur("interval", s.config.Interval).
		Msg("refresh service starting")

	if s.config.OnStartup {
		if err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
			s.logger.Warn().Err(err).Msg("startup refresh failed (will retry on schedule)")
		}
	}

	if s.config.Interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("refresh service shutting down")
			return ctx.Err()
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn().Err(err).Msg("scheduled refresh failed")
			}
		}
	}
}

// Refresh runs one cycle: load, build, persist, prune and export. Storage
// and export failures are reported after the new snapshot is already live.
func (s *RefreshService) Refresh(ctx context.Context) (err error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()
	defer func() { metrics.RecordRefresh(err) }()

	start := time.Now()
	records, err := s.source.Load(ctx)
	if err != nil {
		return fmt.Errorf("load %s: %w", s.source, err)
	}

	// Number the build above anything already on disk, otherwise Prune
	// would drop it in favour of older snapshots with higher numbers.
	if s.store != nil {
		if latest, ok := s.store.LatestVersion(s.config.SnapshotName); ok {
			s.engine.SeedVersion(latest)
		}
	}

	snap, err := s.engine.Build(ctx, records)
	if err != nil {
		return fmt.Errorf("build snapshot: %w", err)
	}

	if s.store != nil {
		meta, err := s.store.Save(ctx, s.config.SnapshotName, snap)
		if err != nil {
			return fmt.Errorf("save snapshot v%d: %w", snap.Version, err)
		}
		removed, err := s.store.Prune(ctx, s.config.SnapshotName, s.config.Retain)
		if err != nil {
			s.logger.Warn().Err(err).Msg("snapshot prune failed")
		}
		s.logger.Debug().
			Int("version", meta.Version).
			Int64("size_bytes", meta.SizeBytes).
			Int("pruned", removed).
			Msg("snapshot saved")
	}

	if s.exporter != nil {
		exportStart := time.Now()
		manifest, err := s.exporter.Export(ctx, s.engine, s.config.ExportTopN)
		if err != nil {
			return fmt.Errorf("export snapshot v%d: %w", snap.Version, err)
		}
		metrics.RecordExport(manifest.Users, time.Since(exportStart))
	}

	s.logger.Info().
		Int("version", snap.Version).
		Int("records", len(records)).
		Dur("duration", time.Since(start)).
		Msg("refresh complete")
	return nil
}

// String implements fmt.Stringer.
func (s *RefreshService) String() string {
	return "refresh-service"
}
