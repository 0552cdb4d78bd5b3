// Homography Backend - Point Annotation and Homography Bridge Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homography-backend

// Package metrics defines the Prometheus collectors exported on /metrics:
// API traffic, external process invocations, task transitions, working
// directory lock contention, circuit breaker state and backup activity.
package metrics
