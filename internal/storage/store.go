// Homography Backend - Point Annotation and Homography Bridge Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homography-backend

package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a key does not exist.
	ErrNotFound = errors.New("storage: not found")

	// ErrInvalidKey is returned for empty, absolute or escaping keys.
	ErrInvalidKey = errors.New("storage: invalid key")
)

// Entry describes one object under a listed prefix.
type Entry struct {
	Key     string    `json:"key"`
	Name    string    `json:"name"`
	IsDir   bool      `json:"is_dir"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Store is a document store addressed by slash-separated logical keys such
// as "compute-homography/image_points.json". Keys never start with "/" and
// never contain "..".
type Store interface {
	// Get returns the object's bytes or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put creates or overwrites an object, creating parent folders as needed.
	Put(ctx context.Context, key string, data []byte) error

	// Delete removes an object or ErrNotFound.
	Delete(ctx context.Context, key string) error

	// Exists reports whether an object or folder exists at key.
	Exists(ctx context.Context, key string) (bool, error)

	// List returns the direct children of a folder, sorted by name.
	// A missing folder lists as empty.
	List(ctx context.Context, prefix string) ([]Entry, error)

	// MakeDir creates a folder and its parents.
	MakeDir(ctx context.Context, key string) error

	// LocalPath returns the path an external process should use for key.
	LocalPath(key string) string
}

// CleanKey validates and normalizes a logical key.
func CleanKey(key string) (string, error) {
	key = strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	if key == "" || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	cleaned := path.Clean(key)
	if cleaned == "." {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return cleaned, nil
}

// Join builds a logical key from parts.
func Join(parts ...string) string {
	return path.Join(parts...)
}

// Copy copies src to dst within one store and returns the bytes copied.
func Copy(ctx context.Context, s Store, src, dst string) (int, error) {
	data, err := s.Get(ctx, src)
	if err != nil {
		return 0, err
	}
	if err := s.Put(ctx, dst, data); err != nil {
		return 0, err
	}
	return len(data), nil
}
