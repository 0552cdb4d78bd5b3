// Homography Backend - Point Annotation and Homography Bridge Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homography-backend

package websocket

import (
	"context"
	"fmt"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/homography-backend/internal/logging"
	"github.com/tomtom215/homography-backend/internal/tasks"
)

// EventSource yields task lifecycle events. Satisfied by *tasks.Bus.
type EventSource interface {
	Subscribe(ctx context.Context) (<-chan tasks.Event, error)
}

// TaskRelay forwards task events from the bus to every websocket client.
// It implements suture.Service.
type TaskRelay struct {
	source EventSource
	hub    *Hub
}

// NewTaskRelay creates a relay from source to hub.
func NewTaskRelay(source EventSource, hub *Hub) *TaskRelay {
	return &TaskRelay{source: source, hub: hub}
}

// Serve subscribes and relays until ctx ends. A closed bus stops the relay
// for good instead of triggering supervisor restarts.
func (r *TaskRelay) Serve(ctx context.Context) error {
	events, err := r.source.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to task events: %w", err)
	}
	logging.Debug().Str("component", "task-relay").Msg("relaying task events to websocket clients")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-events:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logging.Info().Str("component", "task-relay").Msg("task event bus closed")
				return suture.ErrDoNotRestart
			}
			r.hub.Broadcast(string(evt.Type), evt.Task)
		}
	}
}

// String implements fmt.Stringer for supervisor logs.
func (r *TaskRelay) String() string {
	return "task-relay"
}
