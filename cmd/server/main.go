// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/VernAnge/recommendations-app/internal/api"
	"github.com/VernAnge/recommendations-app/internal/config"
	"github.com/VernAnge/recommendations-app/internal/logging"
	"github.com/VernAnge/recommendations-app/internal/supervisor"
	"github.com/VernAnge/recommendations-app/internal/supervisor/services"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Init(cfg.LoggingOptions())

	logging.Info().
		Str("training_path", cfg.Data.TrainingPath).
		Str("mode", cfg.Recommend.Mode).
		Str("snapshot_dir", cfg.Storage.SnapshotDir).
		Bool("export_enabled", cfg.Storage.ExportPath != "").
		Bool("refresh_enabled", cfg.Refresh.Enabled).
		Msg("Configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rc, err := initRecommend(ctx, cfg, logging.WithComponent("recommend"))
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize recommendation engine")
	}
	defer func() {
		if err := rc.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing export store")
		}
	}()

	tree := supervisor.NewTree(
		logging.NewSlogLogger(logging.WithComponent("supervisor")),
		supervisor.TreeConfig{ShutdownTimeout: cfg.Server.ShutdownTimeout},
	)
	rc.addServices(cfg, tree)
	tree.AddAPIService(newHTTPService(cfg, rc))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	if err := <-tree.ServeBackground(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Server stopped gracefully")
}

// newHTTPService wires the router into a supervised HTTP server.
func newHTTPService(cfg *config.Config, rc *RecommendComponents) *services.HTTPService {
	opts := []api.HandlerOption{api.WithRequestTimeout(cfg.Server.Timeout)}
	if rc.Exports != nil {
		opts = append(opts, api.WithExports(rc.Exports))
	}
	handler := api.NewHandler(rc.Engine, opts...)

	mwCfg := api.DefaultChiMiddlewareConfig()
	mwCfg.CORSAllowedOrigins = cfg.Server.CORSOrigins
	mwCfg.RateLimitRequests = cfg.Server.RateLimitReqs
	mwCfg.RateLimitWindow = cfg.Server.RateLimitWindow
	mwCfg.RateLimitDisabled = cfg.Server.RateLimitDisabled

	server := &http.Server{
		Handler:           api.NewRouter(handler, api.NewChiMiddleware(mwCfg)),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}
	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	return services.NewHTTPService(server, addr, cfg.Server.ShutdownTimeout, logging.WithComponent("http"))
}
