// Homography Backend - Point Annotation and Homography Bridge Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homography-backend

/*
Package api exposes the homography workflow over HTTP using the chi router.

Endpoints:

	GET  /api/shell                  launch the demo command, returns a task id
	POST /api/compute_homography     persist point sets, run compute_homography
	POST /api/visualize_homography   multipart frame + points, run apply_homography
	POST /api/backups                move the working set into backups/<name>
	GET  /api/backups                list backups
	POST /api/start_process          launch the start command
	POST /api/stop_process           launch the stop command
	GET  /api/tasks                  recent background tasks, newest first
	GET  /api/tasks/{id}             one task
	GET  /api/tasks/ws               live task events (WebSocket)
	GET  /api/health/live            liveness
	GET  /api/health/ready           readiness (homography script present)
	GET  /metrics                    Prometheus exposition
	GET  /public/{name}              visualization outputs

Errors share one body shape:

	{"error":{"code":"PROCESS_FAILED","message":"...","details":{"exit_code":1}},"message":"..."}

The top-level message duplicates error.message for clients that only read
{message}. Service errors are classified into status codes in one place,
writeServiceError.
*/
package api
