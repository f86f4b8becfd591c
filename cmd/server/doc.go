// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

/*
Package main is the entry point of the recommendation server.

The server loads an interaction log, builds a user-based collaborative
filtering snapshot and serves top-N recommendations over HTTP. The work runs
under a Suture v4 supervisor tree:

	RootSupervisor ("recommendations")
	├── DataSupervisor ("data-layer")
	│   └── Refresh service (rebuild, persist, export)
	└── APISupervisor ("api-layer")
	    └── HTTP server

Startup order:

 1. Configuration: Koanf v2 with defaults, config file and environment
 2. Logging: zerolog with JSON or console output
 3. Engine: restore the newest persisted snapshot, or build from the log
 4. Export store: BadgerDB with precomputed lists (optional)
 5. Supervisor tree: refresh service and HTTP server

# Configuration

Priority: Environment variables > Config file > Defaults

	TRAINING_PATH=training_log.csv   # interaction log (csv, parquet or duckdb)
	DATA_FORMAT=                     # csv, parquet, duckdb; inferred when empty
	USER_COLUMN=idcol
	ITEM_COLUMN=item_descrip

	RECOMMEND_DEFAULT_TOP_N=10
	RECOMMEND_MAX_TOP_N=100
	RECOMMEND_MODE=mean_similarity    # or weighted

	HTTP_HOST=0.0.0.0
	HTTP_PORT=8080
	LOG_LEVEL=info
	LOG_FORMAT=json

	SNAPSHOT_DIR=data/snapshots      # empty disables persistence
	SNAPSHOT_RETAIN=3
	EXPORT_PATH=                     # BadgerDB directory; empty disables export

	REFRESH_ENABLED=true
	REFRESH_INTERVAL=1h
	REFRESH_ON_STARTUP=false

CONFIG_PATH points at a YAML file when it is not in the working directory.

# Endpoints

	GET /api/v1/recommendations/{userID}?top_n=&mode=
	GET /api/v1/recommendations/{userID}/neighbors?limit=
	GET /api/v1/recommendations/{userID}/precomputed
	GET /api/v1/recommendations/status
	GET /api/v1/health/live
	GET /api/v1/health/ready
	GET /metrics

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains in-flight
requests for SHUTDOWN_TIMEOUT before the export store is closed.
*/
package main
