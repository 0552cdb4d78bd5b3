// Homography Backend - Point Annotation and Homography Bridge Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homography-backend

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/homography-backend/internal/backup"
	"github.com/tomtom215/homography-backend/internal/bridge"
	"github.com/tomtom215/homography-backend/internal/homography"
	"github.com/tomtom215/homography-backend/internal/tasks"
	"github.com/tomtom215/homography-backend/internal/validation"
)

// HomographyService is the workflow the handlers drive. Satisfied by
// *homography.Service.
type HomographyService interface {
	Compute(ctx context.Context, req homography.ComputeRequest) (*bridge.Result, error)
	Visualize(ctx context.Context, req homography.VisualizeRequest) (*homography.VisualizeResult, error)
	Backup(ctx context.Context, name string) (*backup.Result, error)
	Backups(ctx context.Context) ([]backup.Backup, error)
	Shell(ctx context.Context) (*tasks.Task, error)
	StartProcess(ctx context.Context) (*tasks.Task, error)
	StopProcess(ctx context.Context) (*tasks.Task, error)
	PublicFile(ctx context.Context, name string) ([]byte, error)
	Ready() error
}

// TaskReader reads background task records. Satisfied by *tasks.Registry.
type TaskReader interface {
	Get(ctx context.Context, id string) (*tasks.Task, error)
	List(ctx context.Context, limit int) ([]*tasks.Task, error)
}

// HandlerOptions tune request handling.
type HandlerOptions struct {
	TaskListLimit  int   // default and maximum ?limit for GET /api/tasks
	MaxUploadBytes int64 // multipart body limit for visualize
}

// Handler serves the HTTP API.
type Handler struct {
	svc        HomographyService
	tasks      TaskReader
	taskStream http.Handler
	opts       HandlerOptions
	startTime  time.Time
}

// NewHandler creates a Handler. taskStream serves GET /api/tasks/ws and may
// be nil, in which case the route answers 404.
func NewHandler(svc HomographyService, taskReader TaskReader, taskStream http.Handler, opts HandlerOptions) *Handler {
	if opts.TaskListLimit <= 0 {
		opts.TaskListLimit = 100
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 32 << 20
	}
	return &Handler{
		svc:        svc,
		tasks:      taskReader,
		taskStream: taskStream,
		opts:       opts,
		startTime:  time.Now(),
	}
}

// MessageResponse is the plain success body.
type MessageResponse struct {
	Message string `json:"message"`
}

// TaskLaunchResponse answers the fire-and-forget endpoints.
type TaskLaunchResponse struct {
	Message string      `json:"message,omitempty"`
	Output  string      `json:"output,omitempty"`
	TaskID  string      `json:"task_id"`
	Task    *tasks.Task `json:"task"`
}

// decodeJSON reads a JSON body into v, answering the client on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, r, http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "Request body too large",
				map[string]any{"limit_bytes": tooLarge.Limit}, nil)
			return false
		}
		respondError(w, r, http.StatusBadRequest, CodeInvalidJSON, "Request body is not valid JSON", nil, nil)
		return false
	}
	return true
}

// Shell handles GET /api/shell.
func (h *Handler) Shell(w http.ResponseWriter, r *http.Request) {
	task, err := h.svc.Shell(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, &TaskLaunchResponse{Output: "Waiting...", TaskID: task.ID, Task: task})
}

// ComputeHomography handles POST /api/compute_homography. It blocks until
// homography.py exits.
func (h *Handler) ComputeHomography(w http.ResponseWriter, r *http.Request) {
	var req homography.ComputeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if _, err := h.svc.Compute(r.Context(), req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, &MessageResponse{Message: "Execution completed!!"})
}

// BackupRequest is the body of POST /api/backups.
type BackupRequest struct {
	BackupFolder string `json:"backup_folder" validate:"required,foldername"`
}

// BackupResponse reports a completed backup.
type BackupResponse struct {
	Message string   `json:"message"`
	Backup  string   `json:"backup"`
	Moved   []string `json:"moved"`
}

// CreateBackup handles POST /api/backups.
func (h *Handler) CreateBackup(w http.ResponseWriter, r *http.Request) {
	var req BackupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidation(w, r, verr)
		return
	}

	res, err := h.svc.Backup(r.Context(), req.BackupFolder)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, &BackupResponse{
		Message: "Files backed up successfully!!",
		Backup:  res.Name,
		Moved:   res.Moved,
	})
}

// ListBackups handles GET /api/backups.
func (h *Handler) ListBackups(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Backups(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []backup.Backup{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"backups": list})
}

// StartProcess handles POST /api/start_process.
func (h *Handler) StartProcess(w http.ResponseWriter, r *http.Request) {
	task, err := h.svc.StartProcess(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, &TaskLaunchResponse{Message: "Process started", TaskID: task.ID, Task: task})
}

// StopProcess handles POST /api/stop_process.
func (h *Handler) StopProcess(w http.ResponseWriter, r *http.Request) {
	task, err := h.svc.StopProcess(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, &TaskLaunchResponse{Message: "Process stopped", TaskID: task.ID, Task: task})
}

// ListTasks handles GET /api/tasks?limit=N.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	limit := h.opts.TaskListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(w, r, http.StatusBadRequest, CodeValidation, "limit must be a positive integer", nil, nil)
			return
		}
		limit = min(n, h.opts.TaskListLimit)
	}

	list, err := h.tasks.List(r.Context(), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []*tasks.Task{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"tasks": list})
}

// GetTask handles GET /api/tasks/{id}.
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.tasks.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// TaskStream handles GET /api/tasks/ws.
func (h *Handler) TaskStream(w http.ResponseWriter, r *http.Request) {
	if h.taskStream == nil {
		respondError(w, r, http.StatusNotFound, CodeNotFound, "Task stream disabled", nil, nil)
		return
	}
	h.taskStream.ServeHTTP(w, r)
}

// HealthLive handles GET /api/health/live.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(h.startTime).Seconds()),
	})
}

// HealthReady handles GET /api/health/ready.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Ready(); err != nil {
		respondError(w, r, http.StatusServiceUnavailable, "NOT_READY", "Homography script unavailable",
			map[string]any{"error": err.Error()}, nil)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}
