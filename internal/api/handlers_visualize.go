// Homography Backend - Point Annotation and Homography Bridge Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homography-backend

package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/homography-backend/internal/homography"
	"github.com/tomtom215/homography-backend/internal/metrics"
)

// frameImageTypes are the raster formats homography.py can decode.
var frameImageTypes = []string{"image/png", "image/jpeg", "image/bmp", "image/tiff", "image/webp"}

// multipartMemory is how much of a multipart body is held in memory before
// spilling to temp files.
const multipartMemory = 8 << 20

// VisualizeResponse is the success body of POST /api/visualize_homography.
type VisualizeResponse struct {
	Message   string                      `json:"message"`
	Resources *homography.VisualizeResult `json:"resources"`
}

// VisualizeHomography handles POST /api/visualize_homography. The body is
// multipart with an image "file" and a JSON "data" field. Input is fully
// validated before anything touches the store or spawns a process.
func (h *Handler) VisualizeHomography(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			metrics.UploadRejected.WithLabelValues("too_large").Inc()
			respondError(w, r, http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "Upload too large",
				map[string]any{"limit_bytes": tooLarge.Limit}, nil)
			return
		}
		metrics.UploadRejected.WithLabelValues("missing_file").Inc()
		respondError(w, r, http.StatusBadRequest, CodeMissingFile, "No file uploaded", nil, nil)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	frame, ok := h.readImage(w, r)
	if !ok {
		return
	}

	raw := r.FormValue("data")
	if strings.TrimSpace(raw) == "" {
		metrics.UploadRejected.WithLabelValues("missing_data").Inc()
		respondError(w, r, http.StatusBadRequest, CodeMissingData, "No data provided", nil, nil)
		return
	}
	var data homography.VisualizeData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		metrics.UploadRejected.WithLabelValues("invalid_json").Inc()
		respondError(w, r, http.StatusBadRequest, CodeInvalidJSON, "Invalid JSON data", nil, nil)
		return
	}

	metrics.UploadBytes.Add(float64(len(frame)))

	res, err := h.svc.Visualize(r.Context(), homography.VisualizeRequest{Data: data, Frame: frame})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, &VisualizeResponse{
		Message:   "Homography applied successfully!!",
		Resources: res,
	})
}

// readImage returns the "file" part if its content sniffs as an image.
func (h *Handler) readImage(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	file, header, err := r.FormFile("file")
	if err != nil {
		metrics.UploadRejected.WithLabelValues("missing_file").Inc()
		respondError(w, r, http.StatusBadRequest, CodeMissingFile, "No file uploaded", nil, nil)
		return nil, false
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, CodeMissingFile, "Uploaded file could not be read", nil, err)
		return nil, false
	}

	// The declared Content-Type is client controlled; trust the bytes.
	detected := mimetype.Detect(data)
	if len(data) == 0 || !mimetype.EqualsAny(detected.String(), frameImageTypes...) {
		metrics.UploadRejected.WithLabelValues("invalid_type").Inc()
		respondError(w, r, http.StatusBadRequest, CodeInvalidFileType, "Only image files are allowed",
			map[string]any{"filename": header.Filename, "detected": detected.String()}, nil)
		return nil, false
	}
	return data, true
}

// PublicFile handles GET /public/{name}, serving visualization outputs.
func (h *Handler) PublicFile(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.PublicFile(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", mimetype.Detect(data).String())
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
