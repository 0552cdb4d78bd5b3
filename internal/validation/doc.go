// Homography Backend - Point Annotation and Homography Bridge Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homography-backend

// Package validation wraps go-playground/validator v10 with a shared
// instance, JSON field names in messages, and the custom "foldername" tag
// used for backup folder names.
//
//	type BackupRequest struct {
//	    BackupFolder string `json:"backup_folder" validate:"required,foldername"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
//	}
package validation
