// Homography Backend - Point Annotation and Homography Bridge Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homography-backend

package backup

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/tomtom215/homography-backend/internal/logging"
	"github.com/tomtom215/homography-backend/internal/metrics"
	"github.com/tomtom215/homography-backend/internal/storage"
	"github.com/tomtom215/homography-backend/internal/validation"
)

// Manager creates and lists backups. It does not lock the working
// directories; callers hold the working directory locks around Create.
type Manager struct {
	store storage.Store
	now   func() time.Time
}

// NewManager creates a backup manager over store.
func NewManager(store storage.Store) *Manager {
	return &Manager{store: store, now: time.Now}
}

// Create moves every working file into backups/<name>. An existing folder
// fails with ErrExists before anything is touched.
func (m *Manager) Create(ctx context.Context, name string) (*Result, error) {
	if !validation.IsFolderName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	start := m.now()
	target := storage.Join(Root, name)

	exists, err := m.store.Exists(ctx, target)
	if err != nil {
		metrics.RecordBackup("failed", 0)
		return nil, fmt.Errorf("%w: check %s: %w", ErrFailed, target, err)
	}
	if exists {
		metrics.RecordBackup("exists", 0)
		return nil, fmt.Errorf("%w: %s", ErrExists, name)
	}

	if err := m.store.MakeDir(ctx, target); err != nil {
		metrics.RecordBackup("failed", 0)
		return nil, fmt.Errorf("%w: create %s: %w", ErrFailed, target, err)
	}

	result := &Result{Name: name, Moved: []string{}}
	for _, dir := range WorkingDirs {
		if err := m.moveDir(ctx, dir, target, result); err != nil {
			result.Duration = m.now().Sub(start)
			metrics.RecordBackup("failed", len(result.Moved))
			logging.Ctx(ctx).Error().Err(err).
				Str("backup", name).
				Int("moved", len(result.Moved)).
				Msg("Backup stopped part way")
			return result, fmt.Errorf("%w: %w", ErrFailed, err)
		}
	}

	result.Duration = m.now().Sub(start)
	metrics.RecordBackup("success", len(result.Moved))
	logging.Ctx(ctx).Info().
		Str("backup", name).
		Int("moved", len(result.Moved)).
		Dur("duration", result.Duration).
		Msg("Backup completed")
	return result, nil
}

// moveDir copies then deletes the plain files of one working directory.
// Subdirectories are left alone.
func (m *Manager) moveDir(ctx context.Context, dir, target string, result *Result) error {
	entries, err := m.store.List(ctx, dir)
	if err != nil {
		return fmt.Errorf("list %s: %w", dir, err)
	}

	for _, e := range entries {
		if e.IsDir {
			continue
		}
		if _, keep := preserved[e.Name]; keep {
			result.Skipped = append(result.Skipped, e.Key)
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		dst := storage.Join(target, dir, e.Name)
		if _, err := storage.Copy(ctx, m.store, e.Key, dst); err != nil {
			return fmt.Errorf("copy %s: %w", e.Key, err)
		}
		if err := m.store.Delete(ctx, e.Key); err != nil {
			return fmt.Errorf("delete %s: %w", e.Key, err)
		}
		result.Moved = append(result.Moved, e.Key)
	}
	return nil
}

// List returns all backups sorted by name with the files each contains,
// relative to the backup folder.
func (m *Manager) List(ctx context.Context) ([]Backup, error) {
	folders, err := m.store.List(ctx, Root)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}

	backups := make([]Backup, 0, len(folders))
	for _, f := range folders {
		if !f.IsDir {
			continue
		}
		files, err := m.files(ctx, f.Key, "")
		if err != nil {
			return nil, err
		}
		backups = append(backups, Backup{Name: f.Name, Files: files, CreatedAt: f.ModTime})
	}
	sort.Slice(backups, func(i, j int) bool { return backups[i].Name < backups[j].Name })
	return backups, nil
}

func (m *Manager) files(ctx context.Context, key, rel string) ([]string, error) {
	entries, err := m.store.List(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", key, err)
	}
	out := []string{}
	for _, e := range entries {
		name := e.Name
		if rel != "" {
			name = rel + "/" + e.Name
		}
		if e.IsDir {
			nested, err := m.files(ctx, e.Key, name)
			if err != nil {
				return nil, err
			}
			out = append(out, nested...)
			continue
		}
		out = append(out, name)
	}
	return out, nil
}
