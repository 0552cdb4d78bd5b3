// Homography Backend - Point Annotation and Homography Bridge Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homography-backend

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/homography-backend/internal/backup"
	"github.com/tomtom215/homography-backend/internal/bridge"
	"github.com/tomtom215/homography-backend/internal/homography"
	"github.com/tomtom215/homography-backend/internal/lock"
	"github.com/tomtom215/homography-backend/internal/logging"
	"github.com/tomtom215/homography-backend/internal/storage"
	"github.com/tomtom215/homography-backend/internal/tasks"
	"github.com/tomtom215/homography-backend/internal/validation"
)

// Error codes returned in error.code.
const (
	CodeMissingFile        = "MISSING_FILE"
	CodeInvalidFileType    = "INVALID_FILE_TYPE"
	CodeMissingData        = "MISSING_DATA"
	CodeInvalidData        = "INVALID_DATA"
	CodeInvalidJSON        = "INVALID_JSON"
	CodeValidation         = "VALIDATION_ERROR"
	CodePayloadTooLarge    = "PAYLOAD_TOO_LARGE"
	CodeHomographyNotFound = "HOMOGRAPHY_NOT_FOUND"
	CodeMapNotFound        = "MAP_NOT_FOUND"
	CodeNotFound           = "NOT_FOUND"
	CodeBackupExists       = "BACKUP_EXISTS"
	CodeBackupFailed       = "BACKUP_FAILED"
	CodeResourceBusy       = "RESOURCE_BUSY"
	CodeProcessFailed      = "PROCESS_FAILED"
	CodeProcessStartFailed = "PROCESS_START_FAILED"
	CodeProcessTimeout     = "PROCESS_TIMEOUT"
	CodeProcessUnavailable = "PROCESS_UNAVAILABLE"
	CodeNotConfigured      = "NOT_CONFIGURED"
	CodeTaskNotFound       = "TASK_NOT_FOUND"
	CodeRateLimited        = "RATE_LIMITED"
	CodeInternal           = "INTERNAL_ERROR"
)

// stderrTailBytes bounds the stderr excerpt returned to clients.
const stderrTailBytes = 2048

// APIError is the error object of an error response.
type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   APIError `json:"error"`
	Message string   `json:"message"`
}

// respondJSON writes body as JSON with the given status.
func respondJSON(w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Debug().Err(err).Msg("Failed to write JSON response")
	}
}

// respondError writes an error body. err, when set, is logged but never
// serialized unless the caller put it into details.
func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]any, err error) {
	if err != nil {
		event := logging.Ctx(r.Context()).Warn()
		if status >= http.StatusInternalServerError {
			event = logging.Ctx(r.Context()).Error()
		}
		event.Str("code", code).
			Int("status", status).
			Str("error", logging.SanitizeValue(err.Error())).
			Msg("API error")
	}

	respondJSON(w, status, &ErrorResponse{
		Error:   APIError{Code: code, Message: message, Details: details},
		Message: message,
	})
}

// respondValidation writes a VALIDATION_ERROR body built from validator
// field errors.
func respondValidation(w http.ResponseWriter, r *http.Request, verr *validation.RequestValidationError) {
	apiErr := verr.ToAPIError()
	respondError(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details, nil)
}

// writeServiceError classifies errors returned by the homography service,
// the bridge and the task registry.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var procErr *bridge.ProcessError
	var busyErr *lock.BusyError

	switch {
	case errors.As(err, &busyErr):
		respondError(w, r, http.StatusConflict, CodeResourceBusy,
			"Resource is busy, try again later",
			map[string]any{"resource": busyErr.Resource, "waited_ms": busyErr.Waited.Milliseconds()}, err)

	case errors.Is(err, lock.ErrBusy):
		respondError(w, r, http.StatusConflict, CodeResourceBusy, "Resource is busy, try again later", nil, err)

	case errors.As(err, &procErr):
		respondError(w, r, http.StatusBadGateway, CodeProcessFailed,
			"Homography process failed",
			map[string]any{
				"exit_code": procErr.ExitCode,
				"stderr":    logging.Tail(procErr.Stderr, stderrTailBytes),
			}, err)

	case errors.Is(err, bridge.ErrStartFailed):
		respondError(w, r, http.StatusBadGateway, CodeProcessStartFailed, "Failed to start process", nil, err)

	case errors.Is(err, bridge.ErrTimeout):
		respondError(w, r, http.StatusGatewayTimeout, CodeProcessTimeout, "Process timed out", nil, err)

	case errors.Is(err, bridge.ErrUnavailable):
		respondError(w, r, http.StatusServiceUnavailable, CodeProcessUnavailable,
			"Process runner temporarily unavailable", nil, err)

	case errors.Is(err, homography.ErrInvalidPoints):
		respondError(w, r, http.StatusBadRequest, CodeInvalidData, err.Error(), nil, nil)

	case errors.Is(err, homography.ErrMatrixMissing):
		respondError(w, r, http.StatusNotFound, CodeHomographyNotFound,
			"Homography matrix not found, run compute_homography first", nil, nil)

	case errors.Is(err, homography.ErrMapMissing):
		respondError(w, r, http.StatusNotFound, CodeMapNotFound, "Map image not found", nil, nil)

	case errors.Is(err, homography.ErrHookNotConfigured):
		respondError(w, r, http.StatusServiceUnavailable, CodeNotConfigured, "Command is not configured", nil, err)

	case errors.Is(err, backup.ErrInvalidName):
		respondError(w, r, http.StatusBadRequest, CodeValidation, "Invalid backup folder name", nil, nil)

	case errors.Is(err, backup.ErrExists):
		respondError(w, r, http.StatusNotFound, CodeBackupExists, "Backup folder already exists", nil, nil)

	case errors.Is(err, backup.ErrFailed):
		respondError(w, r, http.StatusInternalServerError, CodeBackupFailed,
			"Error backing up files", map[string]any{"error": err.Error()}, err)

	case errors.Is(err, tasks.ErrNotFound):
		respondError(w, r, http.StatusNotFound, CodeTaskNotFound, "Task not found", nil, nil)

	case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrInvalidKey):
		respondError(w, r, http.StatusNotFound, CodeNotFound, "Not found", nil, nil)

	case errors.Is(err, context.Canceled):
		// client went away; nobody reads the body
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Request canceled")
		w.WriteHeader(499)

	default:
		respondError(w, r, http.StatusInternalServerError, CodeInternal, "Internal server error", nil, err)
	}
}
