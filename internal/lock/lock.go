// Homography Backend - Point Annotation and Homography Bridge Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homography-backend

// Package lock provides named mutual exclusion keyed by working directory.
//
// Requests that read or write the same directory serialize; requests on
// unrelated directories proceed in parallel. Multi-key acquisition always
// takes keys in sorted order, so two callers can never deadlock on each
// other's keys.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/tomtom215/homography-backend/internal/logging"
	"github.com/tomtom215/homography-backend/internal/metrics"
)

// ErrBusy is returned when a key stays held past the wait timeout.
var ErrBusy = errors.New("lock: resource busy")

// BusyError names the resource that could not be acquired.
type BusyError struct {
	Resource string
	Waited   time.Duration
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("resource %q busy after %s", e.Resource, e.Waited.Round(time.Millisecond))
}

// Unwrap lets errors.Is match ErrBusy.
func (e *BusyError) Unwrap() error {
	return ErrBusy
}

// Manager hands out per-key locks. The zero value is not usable; use New.
type Manager struct {
	mu    sync.Mutex
	sems  map[string]*semaphore.Weighted
	wait  time.Duration
	clock func() time.Time
}

// New creates a Manager. A zero wait makes acquisition fail immediately
// when the key is held.
func New(wait time.Duration) *Manager {
	return &Manager{
		sems:  make(map[string]*semaphore.Weighted),
		wait:  wait,
		clock: time.Now,
	}
}

func (m *Manager) sem(key string) *semaphore.Weighted {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sems[key]
	if !ok {
		s = semaphore.NewWeighted(1)
		m.sems[key] = s
	}
	return s
}

// Acquire takes every key in sorted order and returns a release function
// that frees them in reverse. Duplicate keys are taken once. If any key
// cannot be taken within the wait timeout the keys already held are
// released and a *BusyError is returned; if ctx ends first, ctx.Err().
func (m *Manager) Acquire(ctx context.Context, keys ...string) (func(), error) {
	ordered := dedupeSorted(keys)
	held := make([]*semaphore.Weighted, 0, len(ordered))

	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Release(1)
		}
	}

	for _, key := range ordered {
		s := m.sem(key)
		if err := m.acquireOne(ctx, key, s); err != nil {
			release()
			return nil, err
		}
		held = append(held, s)
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}

func (m *Manager) acquireOne(ctx context.Context, key string, s *semaphore.Weighted) error {
	start := m.clock()

	if s.TryAcquire(1) {
		metrics.RecordLockWait(key, 0, false)
		return nil
	}
	if m.wait <= 0 {
		metrics.RecordLockWait(key, 0, true)
		return &BusyError{Resource: key}
	}

	waitCtx, cancel := context.WithTimeout(ctx, m.wait)
	defer cancel()

	logging.Ctx(ctx).Debug().Str("resource", key).Msg("waiting for working directory lock")
	err := s.Acquire(waitCtx, 1)
	waited := m.clock().Sub(start)
	if err == nil {
		metrics.RecordLockWait(key, waited, false)
		return nil
	}

	// The caller's own context ending is not contention.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	metrics.RecordLockWait(key, waited, true)
	logging.Ctx(ctx).Warn().Str("resource", key).Dur("waited", waited).Msg("working directory lock timed out")
	return &BusyError{Resource: key, Waited: waited}
}

// Do runs fn while holding keys.
func (m *Manager) Do(ctx context.Context, keys []string, fn func(ctx context.Context) error) error {
	release, err := m.Acquire(ctx, keys...)
	if err != nil {
		return err
	}
	defer release()
	return fn(ctx)
}

// Held reports whether key is currently locked. Intended for tests and
// health output; the answer may be stale by the time it is read.
func (m *Manager) Held(key string) bool {
	s := m.sem(key)
	if s.TryAcquire(1) {
		s.Release(1)
		return false
	}
	return true
}

func dedupeSorted(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
