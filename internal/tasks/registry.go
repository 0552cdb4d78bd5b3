// Homography Backend - Point Annotation and Homography Bridge Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homography-backend

package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/homography-backend/internal/logging"
	"github.com/tomtom215/homography-backend/internal/metrics"
)

// Registry owns task state transitions. Every transition is persisted to
// the Store and then published on the Bus.
type Registry struct {
	store Store
	bus   *Bus

	mu    sync.Mutex
	done  map[string]chan struct{}
	now   func() time.Time
	newID func() string
}

// NewRegistry creates a registry. bus may be nil when nobody listens.
func NewRegistry(store Store, bus *Bus) *Registry {
	return &Registry{
		store: store,
		bus:   bus,
		done:  make(map[string]chan struct{}),
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Create records a pending task.
func (r *Registry) Create(ctx context.Context, kind, command string) (*Task, error) {
	task := &Task{
		ID:        r.newID(),
		Kind:      kind,
		Status:    StatusPending,
		Command:   command,
		CreatedAt: r.now().UTC(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.store.Save(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	r.done[task.ID] = make(chan struct{})
	r.announce(task)
	return task.Clone(), nil
}

// MarkRunning moves a pending task to running.
func (r *Registry) MarkRunning(ctx context.Context, id string) (*Task, error) {
	return r.transition(ctx, id, StatusRunning, func(t *Task) {
		started := r.now().UTC()
		t.StartedAt = &started
	})
}

// Complete records the outcome. A nil Err with a zero exit code (or no
// exit code) means success; anything else is a failure.
func (r *Registry) Complete(ctx context.Context, id string, out Outcome) (*Task, error) {
	status := StatusSucceeded
	if out.Err != nil || (out.ExitCode != nil && *out.ExitCode != 0) {
		status = StatusFailed
	}
	return r.transition(ctx, id, status, func(t *Task) {
		finished := r.now().UTC()
		t.FinishedAt = &finished
		if t.StartedAt != nil {
			t.DurationMS = finished.Sub(*t.StartedAt).Milliseconds()
		}
		if out.ExitCode != nil {
			code := *out.ExitCode
			t.ExitCode = &code
		}
		t.Stdout = out.Stdout
		t.Stderr = out.Stderr
		if out.Err != nil {
			t.Error = out.Err.Error()
		}
	})
}

func (r *Registry) transition(ctx context.Context, id string, to Status, mutate func(*Task)) (*Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canTransition(task.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, task.Status, to)
	}

	task.Status = to
	mutate(task)
	if err := r.store.Save(ctx, task); err != nil {
		return nil, fmt.Errorf("save task %s: %w", id, err)
	}

	if to.Terminal() {
		if ch, ok := r.done[id]; ok {
			close(ch)
			delete(r.done, id)
		}
	}
	r.announce(task)
	return task.Clone(), nil
}

// announce must be called with r.mu held so events leave in transition order.
func (r *Registry) announce(task *Task) {
	metrics.RecordTaskTransition(task.Kind, string(task.Status))

	ev := logging.Debug()
	if task.Status == StatusFailed {
		ev = logging.Warn()
	}
	ev.Str("task_id", task.ID).
		Str("kind", task.Kind).
		Str("status", string(task.Status)).
		Str("error", task.Error).
		Msg("Task status changed")

	if r.bus == nil {
		return
	}
	if err := r.bus.Publish(Event{Type: eventTypeFor(task.Status), Task: task.Clone()}); err != nil {
		logging.Warn().Err(err).Str("task_id", task.ID).Msg("Failed to publish task event")
	}
}

// Get returns a task by ID.
func (r *Registry) Get(ctx context.Context, id string) (*Task, error) {
	return r.store.Get(ctx, id)
}

// List returns up to limit tasks, newest first.
func (r *Registry) List(ctx context.Context, limit int) ([]*Task, error) {
	return r.store.List(ctx, limit)
}

// Done returns a channel closed when the task reaches a terminal state.
// Tasks not started by this registry instance return a closed channel.
func (r *Registry) Done(id string) <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ch, ok := r.done[id]; ok {
		return ch
	}
	closed := make(chan struct{})
	close(closed)
	return closed
}

// Wait blocks until the task is terminal or ctx ends, then returns the
// latest record.
func (r *Registry) Wait(ctx context.Context, id string) (*Task, error) {
	select {
	case <-r.Done(id):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return r.store.Get(ctx, id)
}

// Recover fails every task left pending or running by a previous process.
// Call it once at startup, before any new task is created.
func (r *Registry) Recover(ctx context.Context) (int, error) {
	list, err := r.store.List(ctx, 0)
	if err != nil {
		return 0, fmt.Errorf("scan tasks: %w", err)
	}

	recovered := 0
	for _, t := range list {
		if t.Status.Terminal() {
			continue
		}
		finished := r.now().UTC()
		t.Status = StatusFailed
		t.Error = "interrupted by server restart"
		t.FinishedAt = &finished
		if err := r.store.Save(ctx, t); err != nil {
			return recovered, fmt.Errorf("recover task %s: %w", t.ID, err)
		}
		recovered++
	}
	if recovered > 0 {
		logging.Warn().Int("count", recovered).Msg("Marked interrupted tasks as failed")
	}
	return recovered, nil
}
