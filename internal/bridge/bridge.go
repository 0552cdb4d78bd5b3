// Homography Backend - Point Annotation and Homography Bridge Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homography-backend

package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/homography-backend/internal/config"
	"github.com/tomtom215/homography-backend/internal/logging"
	"github.com/tomtom215/homography-backend/internal/metrics"
	"github.com/tomtom215/homography-backend/internal/tasks"
)

const breakerName = "process-bridge"

// Bridge turns commands into external processes. Synchronous calls go
// through a circuit breaker; background calls are tracked as tasks and
// run under the bridge's own lifecycle context.
type Bridge struct {
	cfg      config.BridgeConfig
	workDir  string
	runner   Runner
	registry *tasks.Registry
	cb       *gobreaker.CircuitBreaker[*Result]

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a Bridge. registry may be nil when Start is never used.
func New(cfg *config.BridgeConfig, runner Runner, registry *tasks.Registry) (*Bridge, error) {
	workDir, err := ResolveDir(cfg.WorkDir)
	if err != nil {
		return nil, err
	}
	if runner == nil {
		runner = &ExecRunner{OutputLimit: cfg.OutputLimit}
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	b := &Bridge{
		cfg:      *cfg,
		workDir:  workDir,
		runner:   runner,
		registry: registry,
		baseCtx:  baseCtx,
		cancel:   cancel,
	}
	if cfg.BreakerEnabled {
		b.cb = newBreaker(cfg.BreakerFailureThreshold, cfg.BreakerTimeout)
	}
	return b, nil
}

func newBreaker(threshold uint32, timeout time.Duration) *gobreaker.CircuitBreaker[*Result] {
	if threshold == 0 {
		threshold = 5
	}
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	return gobreaker.NewCircuitBreaker[*Result](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,       // One probe run in half-open state
		Interval:    0,       // Never reset counts while closed
		Timeout:     timeout, // Open -> half-open

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			trip := counts.ConsecutiveFailures >= threshold
			if trip {
				logging.Warn().Uint32("consecutive_failures", counts.ConsecutiveFailures).Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return trip
		},

		// A caller abandoning its request says nothing about the script.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr, toStr := stateToString(from), stateToString(to)
			logging.Info().Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})
}

// Homography builds an invocation of the configured homography script.
func (b *Bridge) Homography(mode string, opts *Options) Command {
	return ScriptCommand(b.cfg.Interpreter, b.cfg.Script, mode, opts)
}

// Hook parses one of the configured lifecycle command lines.
func (b *Bridge) Hook(label, line string) (Command, error) {
	return ParseCommandLine(label, line)
}

// ScriptPath returns the configured homography script path.
func (b *Bridge) ScriptPath() string {
	return b.cfg.Script
}

// Run executes cmd and waits for it. A non-zero exit returns the Result
// together with a *ProcessError.
func (b *Bridge) Run(ctx context.Context, cmd Command) (*Result, error) {
	cmd = b.prepare(cmd)
	log := logging.Ctx(ctx)
	log.Info().Str("command", cmd.String()).Str("mode", "sync").Msg("Running external process")

	res, err := b.execute(ctx, cmd)
	metrics.RecordBridgeInvocation(cmd.Label, "sync", Outcome(err), resultDuration(res))

	if err != nil {
		ev := log.Warn().Err(err).Str("label", cmd.Label)
		if res != nil {
			ev = ev.Int("exit_code", res.ExitCode).Str("stderr_tail", logging.Tail(res.Stderr, 512))
		}
		ev.Msg("External process failed")
		return res, err
	}

	log.Info().
		Str("label", cmd.Label).
		Dur("duration", res.Duration).
		Msg("External process finished")
	return res, nil
}

func (b *Bridge) execute(ctx context.Context, cmd Command) (*Result, error) {
	if b.cb == nil {
		return b.runWithTimeout(ctx, cmd)
	}

	res, err := b.cb.Execute(func() (*Result, error) {
		return b.runWithTimeout(ctx, cmd)
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "rejected").Inc()
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	case err != nil:
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "failure").Inc()
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "success").Inc()
	}
	return res, err
}

func (b *Bridge) runWithTimeout(ctx context.Context, cmd Command) (*Result, error) {
	if b.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.Timeout)
		defer cancel()
	}
	return b.runner.Run(ctx, cmd)
}

func (b *Bridge) prepare(cmd Command) Command {
	if cmd.Dir == "" {
		cmd.Dir = b.workDir
	}
	if cmd.Label == "" {
		cmd.Label = "command"
	}
	return cmd
}

// Start launches cmd in the background and returns its pending task
// immediately. The process outlives ctx; only Shutdown cancels it.
func (b *Bridge) Start(ctx context.Context, kind string, cmd Command) (*tasks.Task, error) {
	if b.registry == nil {
		return nil, errors.New("bridge: background tasks not configured")
	}
	if err := b.baseCtx.Err(); err != nil {
		return nil, fmt.Errorf("bridge: shutting down: %w", err)
	}

	cmd = b.prepare(cmd)
	task, err := b.registry.Create(ctx, kind, cmd.String())
	if err != nil {
		return nil, err
	}

	// The run outlives the request, so only its identifiers are carried over.
	runCtx := logging.ContextWithTaskID(b.baseCtx, task.ID)
	if id := logging.RequestIDFromContext(ctx); id != "" {
		runCtx = logging.ContextWithRequestID(runCtx, id)
	}
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		runCtx = logging.ContextWithCorrelationID(runCtx, id)
	}

	b.wg.Add(1)
	go b.runTask(runCtx, task.ID, cmd)

	logging.Ctx(runCtx).Info().
		Str("kind", kind).
		Str("command", cmd.String()).
		Msg("Background process accepted")
	return task, nil
}

func (b *Bridge) runTask(ctx context.Context, id string, cmd Command) {
	defer b.wg.Done()
	log := logging.Ctx(ctx)

	// Store writes must land even when shutdown cancels the process.
	recordCtx := context.WithoutCancel(ctx)

	if _, err := b.registry.MarkRunning(recordCtx, id); err != nil {
		log.Error().Err(err).Msg("Failed to mark task running")
		return
	}

	res, err := b.runWithTimeout(ctx, cmd)
	metrics.RecordBridgeInvocation(cmd.Label, "async", Outcome(err), resultDuration(res))

	out := tasks.Outcome{Err: err}
	if res != nil {
		code := res.ExitCode
		out.ExitCode = &code
		out.Stdout = res.Stdout
		out.Stderr = res.Stderr
	}
	if _, cerr := b.registry.Complete(recordCtx, id, out); cerr != nil {
		log.Error().Err(cerr).Msg("Failed to record task outcome")
	}
}

// Shutdown cancels background processes and waits for their tasks to be
// recorded, or for ctx to end.
func (b *Bridge) Shutdown(ctx context.Context) error {
	b.cancel()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for background processes: %w", ctx.Err())
	}
}

// BreakerState returns "closed", "half-open", "open" or "disabled".
func (b *Bridge) BreakerState() string {
	if b.cb == nil {
		return "disabled"
	}
	return stateToString(b.cb.State())
}

func resultDuration(res *Result) time.Duration {
	if res == nil {
		return 0
	}
	return res.Duration
}

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
