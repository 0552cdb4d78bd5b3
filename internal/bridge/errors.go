// Homography Backend - Point Annotation and Homography Bridge Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homography-backend

package bridge

import (
	"errors"
	"fmt"
)

var (
	// ErrProcessFailed means the process ran and exited non-zero.
	ErrProcessFailed = errors.New("process exited with non-zero status")

	// ErrStartFailed means the process could not be started at all
	// (missing interpreter, permission denied, bad work dir).
	ErrStartFailed = errors.New("process failed to start")

	// ErrTimeout means the process was killed after exceeding its timeout.
	ErrTimeout = errors.New("process timed out")

	// ErrUnavailable means the circuit breaker is rejecting calls.
	ErrUnavailable = errors.New("process bridge unavailable")
)

// ProcessError carries the exit status of a failed process.
type ProcessError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("%s: exit status %d", e.Command, e.ExitCode)
}

// Unwrap lets errors.Is match ErrProcessFailed.
func (e *ProcessError) Unwrap() error {
	return ErrProcessFailed
}

// Outcome classifies err for metrics labels.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrStartFailed):
		return "start_failed"
	case errors.Is(err, ErrUnavailable):
		return "rejected"
	case errors.Is(err, ErrProcessFailed):
		return "failed"
	default:
		return "error"
	}
}
