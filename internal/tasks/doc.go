// Homography Backend - Point Annotation and Homography Bridge Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homography-backend

/*
Package tasks tracks background processes launched without waiting for
their result.

A task moves pending -> running -> succeeded|failed. A pending task may
also fail directly when its process never starts. The Registry enforces
those transitions, persists every change to a Store and publishes an
Event on an in-process Watermill bus:

	registry := tasks.NewRegistry(store, bus)
	task, _ := registry.Create(ctx, tasks.KindStartProcess, "python start_process.py")
	registry.MarkRunning(ctx, task.ID)
	registry.Complete(ctx, task.ID, tasks.Outcome{ExitCode: &code})

Stores:

  - BadgerStore: durable, entries expire after the retention window
  - MemoryStore: process-local, used in tests and with TASK_STORE=memory

Events are best effort; a subscriber that needs the final state should
read it from the registry.
*/
package tasks
