// Homography Backend - Point Annotation and Homography Bridge Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homography-backend

package tasks

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/homography-backend/internal/logging"
	"github.com/tomtom215/homography-backend/internal/metrics"
)

// Topic carries every task lifecycle event.
const Topic = "tasks.events"

// EventType names a task lifecycle transition.
type EventType string

const (
	EventCreated   EventType = "task_created"
	EventStarted   EventType = "task_started"
	EventSucceeded EventType = "task_succeeded"
	EventFailed    EventType = "task_failed"
)

// eventTypeFor maps a status to the event announcing it.
func eventTypeFor(s Status) EventType {
	switch s {
	case StatusRunning:
		return EventStarted
	case StatusSucceeded:
		return EventSucceeded
	case StatusFailed:
		return EventFailed
	default:
		return EventCreated
	}
}

// Event is the payload published on Topic.
type Event struct {
	Type EventType `json:"type"`
	Task *Task     `json:"data"`
}

// Bus is an in-process Watermill pub/sub for task events. Subscribers that
// attach late miss earlier events; the task store is the source of truth.
type Bus struct {
	pubsub *gochannel.GoChannel
}

// NewBus creates a bus whose subscriber channels buffer up to buffer
// messages.
func NewBus(buffer int64) *Bus {
	return &Bus{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: buffer},
			logging.NewWatermillLogger("task-bus"),
		),
	}
}

// Publish encodes and publishes evt.
func (b *Bus) Publish(evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal task event: %w", err)
	}
	msg := message.NewMessage(uuid.NewString(), payload)
	if err := b.pubsub.Publish(Topic, msg); err != nil {
		return fmt.Errorf("publish task event: %w", err)
	}
	metrics.TaskEventsPublished.WithLabelValues(string(evt.Type)).Inc()
	return nil
}

// Subscribe returns decoded events until ctx is canceled or the bus is
// closed. Undecodable messages are acknowledged and dropped.
func (b *Bus) Subscribe(ctx context.Context) (<-chan Event, error) {
	messages, err := b.pubsub.Subscribe(ctx, Topic)
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", Topic, err)
	}

	out := make(chan Event)
	go func() {
		defer close(out)
		for msg := range messages {
			var evt Event
			if err := json.Unmarshal(msg.Payload, &evt); err != nil {
				logging.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("Dropping malformed task event")
				msg.Ack()
				continue
			}
			select {
			case out <- evt:
				msg.Ack()
			case <-ctx.Done():
				msg.Ack()
				return
			}
		}
	}()
	return out, nil
}

// Close shuts the bus down and closes all subscriber channels.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}
