// Homography Backend - Point Annotation and Homography Bridge Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homography-backend

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/homography-backend/internal/middleware"
)

// jsonBodyLimit caps JSON request bodies; point sets are small.
const jsonBodyLimit = 1 << 20

// Router binds handlers to routes and middleware.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a Router. A nil mw uses the default middleware config.
func NewRouter(handler *Handler, mw *ChiMiddleware) *Router {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	return &Router{handler: handler, chiMiddleware: mw}
}

// SetupChi builds the HTTP handler.
func (router *Router) SetupChi() http.Handler {
	h := router.handler
	r := chi.NewRouter()

	// Global stack, applied in order.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())
	r.Use(middleware.PrometheusMetrics)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, CodeNotFound, "Not found", nil, nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil, nil)
	})

	// Health and metrics are not rate limited so probes never flap.
	r.Route("/api/health", func(r chi.Router) {
		r.Use(middleware.SecurityHeaders)
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(middleware.SecurityHeaders)

		r.Get("/shell", h.Shell)
		r.Post("/start_process", h.StartProcess)
		r.Post("/stop_process", h.StopProcess)

		r.With(MaxBodySize(jsonBodyLimit)).Post("/compute_homography", h.ComputeHomography)
		// multipart limit is enforced by the handler
		r.Post("/visualize_homography", h.VisualizeHomography)

		r.With(MaxBodySize(jsonBodyLimit)).Post("/backups", h.CreateBackup)
		r.Get("/backups", h.ListBackups)

		r.Get("/tasks", h.ListTasks)
		r.Get("/tasks/ws", h.TaskStream)
		r.Get("/tasks/{id}", h.GetTask)
	})

	r.Get("/public/{name}", h.PublicFile)

	return r
}
