// Homography Backend - Point Annotation and Homography Bridge Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homography-backend

package bridge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/tomtom215/homography-backend/internal/metrics"
)

// Runner executes a single command and waits for it to exit.
//
// Implementations return a non-nil Result whenever the process started,
// together with one of the bridge sentinel errors when it did not succeed.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// DefaultOutputLimit bounds each captured stream when no limit is set.
const DefaultOutputLimit = 64 * 1024

// waitDelay bounds how long Wait blocks on inherited pipes after the
// process itself has been killed.
const waitDelay = 5 * time.Second

// ExecRunner runs commands as OS processes.
type ExecRunner struct {
	// OutputLimit is the number of bytes kept per stream. Stdout keeps the
	// head, stderr keeps the tail where tracebacks end.
	OutputLimit int
	// Env is appended to the server's environment.
	Env []string
}

// Run starts cmd and waits for it. Cancellation or deadline of ctx kills
// the process.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	limit := r.OutputLimit
	if limit <= 0 {
		limit = DefaultOutputLimit
	}

	c := exec.CommandContext(ctx, cmd.Path, cmd.Args...)
	c.Dir = cmd.Dir
	if len(r.Env) > 0 {
		c.Env = append(os.Environ(), r.Env...)
	}
	c.WaitDelay = waitDelay

	stdout := &cappedBuffer{limit: limit}
	stderr := &cappedBuffer{limit: limit, keepTail: true}
	c.Stdout = stdout
	c.Stderr = stderr

	start := time.Now()
	if err := c.Start(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStartFailed, err)
	}

	metrics.TrackRunningProcess(true)
	waitErr := c.Wait()
	metrics.TrackRunningProcess(false)

	res := &Result{
		ExitCode:  c.ProcessState.ExitCode(),
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		Duration:  time.Since(start),
		Truncated: stdout.truncated || stderr.truncated,
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return res, fmt.Errorf("%w after %s: %s", ErrTimeout, res.Duration.Round(time.Millisecond), cmd.Label)
		}
		return res, fmt.Errorf("%s canceled: %w", cmd.Label, ctxErr)
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, &ProcessError{Command: cmd.Label, ExitCode: res.ExitCode, Stderr: res.Stderr}
		}
		return res, fmt.Errorf("wait for %s: %w", cmd.Label, waitErr)
	}
	return res, nil
}

// cappedBuffer is an io.Writer that retains at most limit bytes, either the
// first or the last ones. Writes never fail so the child never sees EPIPE.
type cappedBuffer struct {
	buf       []byte
	limit     int
	keepTail  bool
	truncated bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if b.keepTail {
		b.buf = append(b.buf, p...)
		if over := len(b.buf) - b.limit; over > 0 {
			b.buf = append(b.buf[:0], b.buf[over:]...)
			b.truncated = true
		}
		return n, nil
	}

	room := b.limit - len(b.buf)
	if room <= 0 {
		if n > 0 {
			b.truncated = true
		}
		return n, nil
	}
	if n > room {
		p = p[:room]
		b.truncated = true
	}
	b.buf = append(b.buf, p...)
	return n, nil
}

func (b *cappedBuffer) String() string {
	return string(b.buf)
}

var _ Runner = (*ExecRunner)(nil)
