// Homography Backend - Point Annotation and Homography Bridge Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homography-backend

package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/mem"
	afsstorage "github.com/viant/afs/storage"
	"github.com/viant/afs/url"
)

const (
	fileMode = 0o644
	dirMode  = os.ModeDir | 0o755
)

// AFSStore implements Store on top of viant/afs. The same code serves the
// file:// scheme in production and mem:// in tests.
type AFSStore struct {
	fs      afs.Service
	baseURL string
	root    string
}

// NewDiskStore returns a store rooted at dir on the local filesystem.
// The directory is created if missing.
func NewDiskStore(ctx context.Context, dir string) (*AFSStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root %s: %w", dir, err)
	}
	s := &AFSStore{
		fs:      afs.New(),
		baseURL: file.Scheme + "://" + filepath.ToSlash(abs),
		root:    abs,
	}
	if err := s.fs.Create(ctx, s.baseURL, dirMode, true); err != nil {
		if ok, _ := s.fs.Exists(ctx, s.baseURL); !ok {
			return nil, fmt.Errorf("create storage root %s: %w", abs, err)
		}
	}
	return s, nil
}

// NewMemoryStore returns an isolated in-memory store. Each call gets its own
// namespace, so tests never observe each other's objects.
func NewMemoryStore() *AFSStore {
	ns := uuid.New().String()
	s := &AFSStore{
		fs:      afs.New(),
		baseURL: mem.Scheme + "://localhost/" + ns,
		root:    "/" + ns,
	}
	_ = s.fs.Create(context.Background(), s.baseURL, dirMode, true)
	return s
}

// BaseURL returns the afs URL of the store root.
func (s *AFSStore) BaseURL() string {
	return s.baseURL
}

func (s *AFSStore) objectURL(key string) (string, error) {
	cleaned, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	return url.Join(s.baseURL, cleaned), nil
}

// Get returns the object's bytes.
func (s *AFSStore) Get(ctx context.Context, key string) ([]byte, error) {
	u, err := s.objectURL(key)
	if err != nil {
		return nil, err
	}
	ok, err := s.fs.Exists(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	data, err := s.fs.DownloadWithURL(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

// Put creates or overwrites an object.
func (s *AFSStore) Put(ctx context.Context, key string, data []byte) error {
	u, err := s.objectURL(key)
	if err != nil {
		return err
	}
	if err := s.ensureParent(ctx, u); err != nil {
		return fmt.Errorf("prepare %s: %w", key, err)
	}
	if err := s.fs.Upload(ctx, u, fileMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (s *AFSStore) ensureParent(ctx context.Context, objectURL string) error {
	idx := strings.LastIndex(objectURL, "/")
	if idx <= len(s.baseURL) {
		return nil
	}
	return s.mkdirAll(ctx, objectURL[:idx])
}

// mkdirAll creates dirURL and any missing ancestors below the store root.
func (s *AFSStore) mkdirAll(ctx context.Context, dirURL string) error {
	if len(dirURL) <= len(s.baseURL) {
		return nil
	}
	ok, err := s.fs.Exists(ctx, dirURL)
	if err != nil || ok {
		return err
	}
	if idx := strings.LastIndex(dirURL, "/"); idx > len(s.baseURL) {
		if err := s.mkdirAll(ctx, dirURL[:idx]); err != nil {
			return err
		}
	}
	return s.fs.Create(ctx, dirURL, dirMode, true)
}

// Delete removes an object.
func (s *AFSStore) Delete(ctx context.Context, key string) error {
	u, err := s.objectURL(key)
	if err != nil {
		return err
	}
	ok, err := s.fs.Exists(ctx, u)
	if err != nil {
		return fmt.Errorf("stat %s: %w", key, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err := s.fs.Delete(ctx, u); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Exists reports whether key exists.
func (s *AFSStore) Exists(ctx context.Context, key string) (bool, error) {
	u, err := s.objectURL(key)
	if err != nil {
		return false, err
	}
	return s.fs.Exists(ctx, u)
}

// List returns the direct children of prefix. The listed folder itself,
// which afs reports as the first object, is skipped.
func (s *AFSStore) List(ctx context.Context, prefix string) ([]Entry, error) {
	u, err := s.objectURL(prefix)
	if err != nil {
		return nil, err
	}
	ok, err := s.fs.Exists(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", prefix, err)
	}
	if !ok {
		return nil, nil
	}

	objects, err := s.fs.List(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}

	self := strings.TrimSuffix(url.Path(u), "/")
	cleanPrefix, _ := CleanKey(prefix)
	entries := make([]Entry, 0, len(objects))
	for _, obj := range objects {
		if strings.TrimSuffix(url.Path(obj.URL()), "/") == self {
			continue
		}
		size, err := s.objectSize(ctx, obj)
		if err != nil {
			return nil, fmt.Errorf("size %s: %w", Join(cleanPrefix, obj.Name()), err)
		}
		entries = append(entries, Entry{
			Key:     Join(cleanPrefix, obj.Name()),
			Name:    obj.Name(),
			IsDir:   obj.IsDir(),
			Size:    size,
			ModTime: obj.ModTime(),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// objectSize returns the byte length of a file object. The mem:// backend
// reports zero in listings, so a zero size is confirmed from the content.
func (s *AFSStore) objectSize(ctx context.Context, obj afsstorage.Object) (int64, error) {
	if obj.IsDir() || obj.Size() > 0 {
		return obj.Size(), nil
	}
	data, err := s.fs.Download(ctx, obj)
	if err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

// MakeDir creates a folder and its parents.
func (s *AFSStore) MakeDir(ctx context.Context, key string) error {
	u, err := s.objectURL(key)
	if err != nil {
		return err
	}
	if err := s.mkdirAll(ctx, u); err != nil {
		return fmt.Errorf("mkdir %s: %w", key, err)
	}
	return nil
}

// LocalPath returns the OS path for key. For in-memory stores the path is
// only meaningful to fakes that never touch the real filesystem.
func (s *AFSStore) LocalPath(key string) string {
	cleaned, err := CleanKey(key)
	if err != nil {
		return s.root
	}
	return filepath.Join(s.root, filepath.FromSlash(cleaned))
}

var _ Store = (*AFSStore)(nil)
