// Homography Backend - Point Annotation and Homography Bridge Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homography-backend

/*
Package websocket streams background task lifecycle events to browsers.

Components:

  - Hub: owns the client set and fans messages out; run under suture via
    RunWithContext
  - Client: one gorilla/websocket connection with read and write pumps
  - TaskRelay: subscribes to the task event bus and broadcasts each event
  - NewHandler: upgrades GET /api/tasks/ws requests into hub clients

Every frame is a JSON object:

	{"type":"task_succeeded","data":{"id":"...","kind":"shell","status":"succeeded",...}}

Clients may send {"type":"ping"} and receive {"type":"pong"}. Slow clients
whose send buffer fills are disconnected; the task list endpoint remains
the source of truth for anything missed.
*/
package websocket
