// Homography Backend - Point Annotation and Homography Bridge Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homography-backend

/*
Package supervisor runs the server's long-lived services under suture v4.

The tree has three layers for failure isolation:

	root ("homography-backend")
	├── data-layer
	│   └── task-store-gc (badger task store only)
	├── messaging-layer
	│   ├── websocket-hub
	│   └── task-relay
	└── api-layer
	    └── http-server

A crashing relay or hub is restarted without touching the HTTP server, so
homography requests keep working while the live task stream recovers.

Supervisor events are logged through sutureslog on top of the zerolog
backed slog handler from the logging package.
*/
package supervisor
