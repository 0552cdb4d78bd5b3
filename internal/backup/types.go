// Homography Backend - Point Annotation and Homography Bridge Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homography-backend

// Package backup moves the current working artifacts into a named folder
// under backups/ so a new annotation session can start clean.
//
// A backup copies each file of every working directory into
// backups/<name>/<dir>/ and deletes the original once its copy is written.
// The operator-provided cricket_map.png stays in place. The move is not
// atomic across files: a failure part way leaves the files moved so far in
// the backup and the rest in the working directories.
package backup

import (
	"errors"
	"time"
)

// Root is the storage prefix holding all backups.
const Root = "backups"

// Working directories moved by a backup, in lock order.
var WorkingDirs = []string{
	"compute-homography",
	"uploads",
	"visualize-homography",
}

// preserved lists files that are never moved, keyed by base name.
var preserved = map[string]struct{}{
	"cricket_map.png": {},
}

var (
	// ErrExists is returned when the target backup folder already exists.
	ErrExists = errors.New("backup folder already exists")

	// ErrInvalidName is returned for names that are not a single safe
	// folder name.
	ErrInvalidName = errors.New("invalid backup folder name")

	// ErrFailed wraps storage errors hit while moving files.
	ErrFailed = errors.New("backup failed")
)

// Backup describes one backup folder.
type Backup struct {
	Name      string    `json:"name"`
	Files     []string  `json:"files"`
	CreatedAt time.Time `json:"created_at"`
}

// Result reports what a Create call moved.
type Result struct {
	Name     string        `json:"name"`
	Moved    []string      `json:"moved"`
	Skipped  []string      `json:"skipped,omitempty"`
	Duration time.Duration `json:"duration"`
}
