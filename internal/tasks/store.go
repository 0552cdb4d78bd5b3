// Homography Backend - Point Annotation and Homography Bridge Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homography-backend

package tasks

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Store persists task records.
type Store interface {
	Save(ctx context.Context, task *Task) error
	Get(ctx context.Context, id string) (*Task, error)
	// List returns up to limit tasks, newest first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]*Task, error)
	Close() error
}

// sortNewestFirst orders by creation time, breaking ties by ID so the
// order is stable across calls.
func sortNewestFirst(list []*Task) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID > list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
}

func truncate(list []*Task, limit int) []*Task {
	if limit > 0 && len(list) > limit {
		return list[:limit]
	}
	return list
}

// MemoryStore keeps tasks in a map. Entries older than the retention are
// dropped lazily on access.
type MemoryStore struct {
	mu        sync.RWMutex
	tasks     map[string]*Task
	retention time.Duration
	now       func() time.Time
}

// NewMemoryStore creates an in-process store. A zero retention keeps
// tasks until the process exits.
func NewMemoryStore(retention time.Duration) *MemoryStore {
	return &MemoryStore{
		tasks:     make(map[string]*Task),
		retention: retention,
		now:       time.Now,
	}
}

func (s *MemoryStore) expired(t *Task) bool {
	return s.retention > 0 && s.now().Sub(t.CreatedAt) > s.retention
}

// Save inserts or replaces a task.
func (s *MemoryStore) Save(_ context.Context, task *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = task.Clone()
	return nil
}

// Get returns a copy of the task.
func (s *MemoryStore) Get(_ context.Context, id string) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok || s.expired(t) {
		return nil, ErrNotFound
	}
	return t.Clone(), nil
}

// List returns copies of the stored tasks, newest first.
func (s *MemoryStore) List(_ context.Context, limit int) ([]*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Task, 0, len(s.tasks))
	for id, t := range s.tasks {
		if s.expired(t) {
			delete(s.tasks, id)
			continue
		}
		out = append(out, t.Clone())
	}
	sortNewestFirst(out)
	return truncate(out, limit), nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

var _ Store = (*MemoryStore)(nil)
