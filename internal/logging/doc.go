// Homography Backend - Point Annotation and Homography Bridge Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homography-backend

/*
Package logging wraps zerolog behind a small global API.

# Configuration

	LOG_LEVEL   trace, debug, info, warn, error (default: info)
	LOG_FORMAT  json, console (default: json)
	LOG_CALLER  include caller file:line (default: false)

# Context

HTTP middleware stores request_id and correlation_id in the request context;
background process tasks add task_id. Ctx(ctx) returns a logger carrying
whichever of these are present.

# Adapters

NewSlogLogger feeds suture's sutureslog handler, and NewWatermillLogger feeds
the in-process task event bus. Both write through the global zerolog sink.
*/
package logging
