// Homography Backend - Point Annotation and Homography Bridge Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homography-backend

/*
Package middleware provides chi-compatible HTTP middleware.

Key Components:

  - RequestID: X-Request-ID propagation plus request and correlation IDs
    in the logging context
  - PrometheusMetrics: request counters, latency histograms and the
    in-flight gauge, labeled by chi route pattern
  - SecurityHeaders: nosniff, frame denial and referrer policy

Middleware Stack:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.PrometheusMetrics)

All middleware here keeps http.Hijacker reachable so the task WebSocket
endpoint can upgrade through the full stack.
*/
package middleware
