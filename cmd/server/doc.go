// Homography Backend - Point Annotation and Homography Bridge Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homography-backend

/*
Package main is the entry point for the homography backend.

The server sits between the point annotation UI and homography.py. It
stores the image and map points an operator clicks, runs the script to
compute a homography matrix, applies that matrix to uploaded ground frames,
backs up finished working sets, and launches the demo and lifecycle
commands in the background.

# Application Architecture

Long-running components run under a Suture v4 supervisor tree:

	RootSupervisor ("homography-backend")
	├── DataSupervisor ("data-layer")
	│   └── task-store-gc (badger value log GC, badger task store only)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── websocket-hub (task event fan-out)
	│   └── task-relay (task bus to hub)
	└── APISupervisor ("api-layer")
	    └── http-server (chi router)

Startup order:

 1. Configuration: Koanf v2 (defaults, optional YAML file, environment)
 2. Logging: zerolog, JSON or console
 3. Resources store: viant/afs over ./resources
 4. Task store: BadgerDB (or memory); interrupted tasks are marked failed
 5. Task bus: Watermill gochannel
 6. Process bridge: os/exec runner behind a gobreaker circuit breaker
 7. Homography service: resource locks, backups, script invocation
 8. HTTP router and supervisor tree

# Configuration

	PORT=3001                          # HTTP port
	RESOURCES_DIR=./resources          # working artifacts
	PYTHON_BIN=python                  # interpreter for homography.py
	HOMOGRAPHY_SCRIPT=./resources/homography.py
	PROCESS_TIMEOUT=5m                 # per process run
	SHELL_COMMAND="python ./resources/demo.py"
	START_COMMAND="python ./resources/start_process.py"
	STOP_COMMAND="python ./resources/stop_process.py"  # empty disables a hook
	TASK_STORE=badger                  # badger or memory
	TASK_STORE_PATH=./data/tasks
	LOCK_WAIT_TIMEOUT=30s
	CORS_ORIGINS=*
	LOG_LEVEL=info LOG_FORMAT=json

A YAML file is read from CONFIG_PATH or ./config.yaml when present.

# Signal Handling

SIGINT and SIGTERM stop the supervisor tree: the HTTP server drains
in-flight requests, then background processes are killed and their tasks
recorded as failed within the shutdown timeout.
*/
package main
