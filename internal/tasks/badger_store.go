// Homography Backend - Point Annotation and Homography Bridge Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homography-backend

package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/homography-backend/internal/logging"
)

const taskKeyPrefix = "task:"

// BadgerStore persists tasks in BadgerDB. Each record carries a TTL equal
// to the retention window, so badger garbage-collects old tasks itself.
type BadgerStore struct {
	db        *badger.DB
	retention time.Duration
}

// BadgerOptions configures OpenBadgerStore.
type BadgerOptions struct {
	Path      string
	InMemory  bool
	Retention time.Duration
}

// OpenBadgerStore opens (or creates) the task database.
func OpenBadgerStore(opts BadgerOptions) (*BadgerStore, error) {
	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.Path == "" {
			return nil, errors.New("badger task store requires a path")
		}
		bopts = badger.DefaultOptions(opts.Path)
	}
	// Reduce logging verbosity
	bopts.Logger = nil

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open task store: %w", err)
	}

	logging.Info().
		Str("path", opts.Path).
		Bool("in_memory", opts.InMemory).
		Dur("retention", opts.Retention).
		Msg("Task store opened")

	return &BadgerStore{db: db, retention: opts.Retention}, nil
}

// Save writes the task, refreshing its TTL.
func (s *BadgerStore) Save(ctx context.Context, task *Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(taskKeyPrefix+task.ID), data)
		if s.retention > 0 {
			e = e.WithTTL(s.retention)
		}
		if err := txn.SetEntry(e); err != nil {
			return fmt.Errorf("set task: %w", err)
		}
		return nil
	})
}

// Get retrieves a task by ID.
func (s *BadgerStore) Get(ctx context.Context, id string) (*Task, error) {
	var task Task

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(taskKeyPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get task: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &task)
		})
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// List scans every task and returns them newest first.
func (s *BadgerStore) List(ctx context.Context, limit int) ([]*Task, error) {
	var list []*Task

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(taskKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var task Task
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &task)
			})
			if err != nil {
				logging.Warn().Err(err).Str("key", string(it.Item().Key())).Msg("Skipping unreadable task record")
				continue
			}
			list = append(list, &task)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	sortNewestFirst(list)
	return truncate(list, limit), nil
}

// Close closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

var _ Store = (*BadgerStore)(nil)

// RunGC reclaims value log space left behind by expired and overwritten
// task records. It rewrites files until badger reports nothing to do.
func (s *BadgerStore) RunGC(ctx context.Context) error {
	for rewrites := 0; ; rewrites++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.db.RunValueLogGC(0.5)
		switch {
		case err == nil:
			continue
		case errors.Is(err, badger.ErrNoRewrite), errors.Is(err, badger.ErrGCInMemoryMode):
			if rewrites > 0 {
				logging.Debug().Int("rewrites", rewrites).Msg("Task store value log compacted")
			}
			return nil
		default:
			return fmt.Errorf("task store value log gc: %w", err)
		}
	}
}
