// Homography Backend - Point Annotation and Homography Bridge Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homography-backend

/*
Package services adapts long-running components to suture.Service.

Each wrapper depends on a small interface instead of the concrete package,
so the supervisor layer stays free of import cycles and is easy to test:

  - HTTPServerService: *http.Server with graceful Shutdown
  - WebSocketHubService: *websocket.Hub via RunWithContext
  - MaintenanceService: periodic housekeeping such as task store value log GC

A Serve method returns ctx.Err() on normal shutdown. Any other return is a
failure and suture restarts the service with backoff.
*/
package services
