// Homography Backend - Point Annotation and Homography Bridge Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homography-backend

package tasks

import (
	"errors"
	"time"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Task kinds launched by the HTTP API.
const (
	KindShell        = "shell"
	KindStartProcess = "start_process"
	KindStopProcess  = "stop_process"
)

var (
	// ErrNotFound is returned when a task ID is unknown or expired.
	ErrNotFound = errors.New("task not found")

	// ErrInvalidTransition is returned when a status change would move a
	// task backwards or out of a terminal state.
	ErrInvalidTransition = errors.New("invalid task status transition")
)

// Task is the observable record of one background process.
type Task struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	Status     Status     `json:"status"`
	Command    string     `json:"command"`
	ExitCode   *int       `json:"exit_code,omitempty"`
	Stdout     string     `json:"stdout,omitempty"`
	Stderr     string     `json:"stderr,omitempty"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	DurationMS int64      `json:"duration_ms,omitempty"`
}

// Clone returns a deep copy so callers can hand tasks across goroutines.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	if t.ExitCode != nil {
		code := *t.ExitCode
		c.ExitCode = &code
	}
	if t.StartedAt != nil {
		ts := *t.StartedAt
		c.StartedAt = &ts
	}
	if t.FinishedAt != nil {
		ts := *t.FinishedAt
		c.FinishedAt = &ts
	}
	return &c
}

// Outcome is what a finished process reports back to the registry.
type Outcome struct {
	ExitCode *int
	Stdout   string
	Stderr   string
	Err      error
}

// canTransition allows pending->running, pending->failed (never started)
// and running->terminal.
func canTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusRunning || to == StatusFailed
	case StatusRunning:
		return to.Terminal()
	default:
		return false
	}
}
