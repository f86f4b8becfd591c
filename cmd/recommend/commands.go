// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/VernAnge/recommendations-app/internal/config"
	"github.com/VernAnge/recommendations-app/internal/dataset"
	"github.com/VernAnge/recommendations-app/internal/export"
	"github.com/VernAnge/recommendations-app/internal/logging"
	"github.com/VernAnge/recommendations-app/internal/recommend"
	"github.com/VernAnge/recommendations-app/internal/recommend/storage"
)

// loadConfig resolves settings from the config file, the environment and
// the persistent flags, then sets up stderr logging.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if training, _ := cmd.Flags().GetString("training"); training != "" {
		cfg.Data.TrainingPath = training
	}
	if format, _ := cmd.Flags().GetString("data-format"); format != "" {
		cfg.Data.Format = format
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, _ := cmd.Flags().GetString("log-level")
	logCfg := cfg.LoggingOptions()
	logCfg.Level = level
	logCfg.Format = "console"
	logCfg.Output = cmd.ErrOrStderr()
	if err := logCfg.Validate(); err != nil {
		return nil, err
	}
	logging.Init(logCfg)
	return cfg, nil
}

func newEngine(cfg *config.Config) (*recommend.Engine, error) {
	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		return nil, err
	}
	return recommend.NewEngine(engineCfg, logging.WithComponent("recommend"))
}

// loadSnapshot builds from the training log, or restores the newest stored
// snapshot when fromSnapshot is set.
func loadSnapshot(ctx context.Context, cfg *config.Config, engine *recommend.Engine, fromSnapshot bool) (*recommend.Snapshot, error) {
	if fromSnapshot {
		store, err := storage.NewStore(cfg.Storage.SnapshotDir)
		if err != nil {
			return nil, err
		}
		snap, _, err := store.Load(ctx, cfg.Storage.SnapshotName, 0)
		if err != nil {
			return nil, err
		}
		if err := engine.Load(snap); err != nil {
			return nil, err
		}
		return snap, nil
	}

	src, err := cfg.TrainingSource()
	if err != nil {
		return nil, err
	}
	records, err := src.Load(ctx)
	if err != nil {
		return nil, err
	}
	return engine.Build(ctx, records)
}

func parseMode(cmd *cobra.Command) (*recommend.ScoringMode, error) {
	raw, _ := cmd.Flags().GetString("mode")
	if raw == "" {
		return nil, nil
	}
	mode, err := recommend.ParseScoringMode(raw)
	if err != nil {
		return nil, err
	}
	return &mode, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	topN, _ := cmd.Flags().GetInt("top-n")
	output, _ := cmd.Flags().GetString("output")
	outputFormat, _ := cmd.Flags().GetString("output-format")
	fromSnapshot, _ := cmd.Flags().GetBool("from-snapshot")
	mode, err := parseMode(cmd)
	if err != nil {
		return err
	}

	engine, err := newEngine(cfg)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if _, err := loadSnapshot(ctx, cfg, engine, fromSnapshot); err != nil {
		return err
	}

	resp, err := engine.Recommend(ctx, recommend.Request{UserID: args[0], TopN: topN, Mode: mode})
	if err != nil {
		return err
	}

	if output == "" {
		return dataset.Write(cmd.OutOrStdout(), outputFormat, resp.Items)
	}
	return writeOutput(output, outputFormat, resp.Items)
}

// writeOutput writes items to path, including any error from closing it.
func writeOutput(path, format string, items []recommend.Recommendation) (err error) {
	f, err := os.Create(path) //nolint:gosec // path comes from the operator
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close output: %w", cerr)
		}
	}()
	return dataset.Write(f, format, items)
}

func runBuild(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if dir, _ := cmd.Flags().GetString("snapshot-dir"); dir != "" {
		cfg.Storage.SnapshotDir = dir
	}
	if cfg.Storage.SnapshotDir == "" {
		return fmt.Errorf("SNAPSHOT_DIR or --snapshot-dir is required")
	}

	store, err := storage.NewStore(cfg.Storage.SnapshotDir)
	if err != nil {
		return err
	}
	engine, err := newEngine(cfg)
	if err != nil {
		return err
	}

	// Continue the version sequence of what is already stored, even when the
	// newest file is unreadable.
	ctx := cmd.Context()
	if latest, ok := store.LatestVersion(cfg.Storage.SnapshotName); ok {
		engine.SeedVersion(latest)
	}

	snap, err := loadSnapshot(ctx, cfg, engine, false)
	if err != nil {
		return err
	}
	meta, err := store.Save(ctx, cfg.Storage.SnapshotName, snap)
	if err != nil {
		return err
	}
	if _, err := store.Prune(ctx, cfg.Storage.SnapshotName, cfg.Storage.Retain); err != nil {
		logging.Warn().Err(err).Msg("snapshot prune failed")
	}
	return writeJSON(cmd.OutOrStdout(), meta)
}

func runExport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if path, _ := cmd.Flags().GetString("path"); path != "" {
		cfg.Storage.ExportPath = path
	}
	if cfg.Storage.ExportPath == "" {
		return fmt.Errorf("EXPORT_PATH or --path is required")
	}
	topN, _ := cmd.Flags().GetInt("top-n")
	if topN <= 0 {
		topN = cfg.Storage.ExportTopN
	}
	fromSnapshot, _ := cmd.Flags().GetBool("from-snapshot")

	engine, err := newEngine(cfg)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if _, err := loadSnapshot(ctx, cfg, engine, fromSnapshot); err != nil {
		return err
	}

	store, err := export.Open(cfg.Storage.ExportPath)
	if err != nil {
		return err
	}
	defer store.Close()

	start := time.Now()
	manifest, err := store.Export(ctx, engine, topN)
	if err != nil {
		return err
	}
	logging.Info().Int("users", manifest.Users).Dur("duration", time.Since(start)).Msg("export complete")
	return writeJSON(cmd.OutOrStdout(), manifest)
}

func runEvaluate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if path, _ := cmd.Flags().GetString("evaluation"); path != "" {
		cfg.Data.EvaluationPath = path
	}
	if cfg.Data.EvaluationPath == "" {
		return fmt.Errorf("EVALUATION_PATH or --evaluation is required")
	}
	topN, _ := cmd.Flags().GetInt("top-n")
	modePtr, err := parseMode(cmd)
	if err != nil {
		return err
	}

	engine, err := newEngine(cfg)
	if err != nil {
		return err
	}
	mode := engine.Config().Ranking.Mode
	if modePtr != nil {
		mode = *modePtr
	}
	if topN <= 0 {
		topN = engine.Config().Ranking.DefaultTopN
	}
	ctx := cmd.Context()
	snap, err := loadSnapshot(ctx, cfg, engine, false)
	if err != nil {
		return err
	}

	src, err := cfg.EvaluationSource()
	if err != nil {
		return err
	}
	records, err := src.Load(ctx)
	if err != nil {
		return err
	}
	eval, err := recommend.Align(snap.Training, records)
	if err != nil {
		return err
	}

	report, err := recommend.Evaluate(ctx, snap, eval, topN, mode)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), report)
}
