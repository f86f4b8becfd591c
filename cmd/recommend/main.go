// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package main provides the recommend CLI for one-off batch work against an
// interaction log: querying one user, building and persisting snapshots,
// exporting precomputed lists and evaluating against a second log.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "recommend",
		Short: "User-based collaborative filtering over an interaction log",
		Long: `recommend builds a user-user cosine similarity snapshot from an
interaction log (one row per user/item event) and ranks unseen or
reinforcing items for a user by the mean similarity of their neighbors.

Settings come from config.yaml and the environment, the same as the
server. Flags override both.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("config", "", "Config file (default: CONFIG_PATH or ./config.yaml)")
	rootCmd.PersistentFlags().String("training", "", "Training log path (overrides TRAINING_PATH)")
	rootCmd.PersistentFlags().String("data-format", "", "Log format: csv, parquet or duckdb (inferred when empty)")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level written to stderr")

	queryCmd := &cobra.Command{
		Use:   "query [user_id]",
		Short: "Print the recommendations of one user",
		Args:  cobra.ExactArgs(1),
		RunE:  runQuery,
	}
	queryCmd.Flags().Int("top-n", 0, "Number of recommendations (default: RECOMMEND_DEFAULT_TOP_N)")
	queryCmd.Flags().String("mode", "", "Scoring mode: mean_similarity or weighted")
	queryCmd.Flags().String("output", "", "Output file (default: stdout)")
	queryCmd.Flags().String("output-format", "csv", "Output format: csv or json")
	queryCmd.Flags().Bool("from-snapshot", false, "Load the newest stored snapshot instead of building")
	rootCmd.AddCommand(queryCmd)

	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "Build a snapshot and persist it to the snapshot directory",
		RunE:  runBuild,
	}
	buildCmd.Flags().String("snapshot-dir", "", "Snapshot directory (overrides SNAPSHOT_DIR)")
	rootCmd.AddCommand(buildCmd)

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Precompute recommendations for every user into BadgerDB",
		RunE:  runExport,
	}
	exportCmd.Flags().String("path", "", "Export directory (overrides EXPORT_PATH)")
	exportCmd.Flags().Int("top-n", 0, "List length per user (default: EXPORT_TOP_N)")
	exportCmd.Flags().Bool("from-snapshot", false, "Load the newest stored snapshot instead of building")
	rootCmd.AddCommand(exportCmd)

	evaluateCmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score recommendations against an evaluation log",
		RunE:  runEvaluate,
	}
	evaluateCmd.Flags().String("evaluation", "", "Evaluation log path (overrides EVALUATION_PATH)")
	evaluateCmd.Flags().Int("top-n", 0, "Recommendations per user (default: RECOMMEND_DEFAULT_TOP_N)")
	evaluateCmd.Flags().String("mode", "", "Scoring mode: mean_similarity or weighted")
	rootCmd.AddCommand(evaluateCmd)

	return rootCmd
}
