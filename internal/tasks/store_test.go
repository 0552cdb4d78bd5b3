// Homography Backend - Point Annotation and Homography Bridge Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homography-backend

package tasks

import (
	"context"
	"errors"
	"testing"
	"time"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	bs, err := OpenBadgerStore(BadgerOptions{InMemory: true, Retention: time.Hour})
	if err != nil {
		t.Fatalf("OpenBadgerStore: %v", err)
	}
	t.Cleanup(func() { _ = bs.Close() })
	return map[string]Store{
		"memory": NewMemoryStore(time.Hour),
		"badger": bs,
	}
}

func TestStore_SaveGet(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			code := 3
			started := time.Now().UTC().Truncate(time.Millisecond)
			in := &Task{
				ID:        "t-1",
				Kind:      KindShell,
				Status:    StatusFailed,
				Command:   "python demo.py",
				ExitCode:  &code,
				Stderr:    "boom",
				CreatedAt: started,
				StartedAt: &started,
			}
			if err := s.Save(ctx, in); err != nil {
				t.Fatalf("Save: %v", err)
			}
			got, err := s.Get(ctx, "t-1")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.Status != StatusFailed || got.Command != in.Command || got.Stderr != "boom" {
				t.Errorf("Get = %+v", got)
			}
			if got.ExitCode == nil || *got.ExitCode != 3 {
				t.Errorf("ExitCode = %v, want 3", got.ExitCode)
			}
			if !got.CreatedAt.Equal(started) {
				t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, started)
			}
		})
	}
}

func TestStore_GetMissing(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.Get(ctx, "nope"); !errors.Is(err, ErrNotFound) {
				t.Errorf("error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStore_ListOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	base := time.Now().UTC()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for i, id := range []string{"a", "b", "c", "d"} {
				task := &Task{ID: id, Kind: KindShell, Status: StatusPending, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
				if err := s.Save(ctx, task); err != nil {
					t.Fatal(err)
				}
			}

			all, err := s.List(ctx, 0)
			if err != nil {
				t.Fatal(err)
			}
			if len(all) != 4 || all[0].ID != "d" || all[3].ID != "a" {
				t.Errorf("List(0) order wrong: %v", ids(all))
			}

			limited, err := s.List(ctx, 2)
			if err != nil {
				t.Fatal(err)
			}
			if len(limited) != 2 || limited[0].ID != "d" || limited[1].ID != "c" {
				t.Errorf("List(2) = %v", ids(limited))
			}
		})
	}
}

func TestMemoryStore_Retention(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	_ = s.Save(ctx, &Task{ID: "old", CreatedAt: now.Add(-2 * time.Minute)})
	_ = s.Save(ctx, &Task{ID: "new", CreatedAt: now.Add(-30 * time.Second)})

	if _, err := s.Get(ctx, "old"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expired task should be gone, err = %v", err)
	}
	list, _ := s.List(ctx, 0)
	if len(list) != 1 || list[0].ID != "new" {
		t.Errorf("List = %v, want [new]", ids(list))
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	_ = s.Save(ctx, &Task{ID: "x", Status: StatusPending})

	got, _ := s.Get(ctx, "x")
	got.Status = StatusFailed

	again, _ := s.Get(ctx, "x")
	if again.Status != StatusPending {
		t.Error("mutating a returned task changed the stored record")
	}
}

func ids(list []*Task) []string {
	out := make([]string, len(list))
	for i, t := range list {
		out[i] = t.ID
	}
	return out
}

func TestBadgerStore_RunGC(t *testing.T) {
	ctx := context.Background()

	mem, err := OpenBadgerStore(BadgerOptions{InMemory: true})
	if err != nil {
		t.Fatal(err)
	}
	defer mem.Close()
	if err := mem.RunGC(ctx); err != nil {
		t.Errorf("in-memory RunGC = %v, want nil", err)
	}

	disk, err := OpenBadgerStore(BadgerOptions{Path: t.TempDir(), Retention: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	defer disk.Close()
	for i := 0; i < 10; i++ {
		if err := disk.Save(ctx, &Task{ID: "same", Kind: KindShell, Status: StatusPending, CreatedAt: time.Now()}); err != nil {
			t.Fatal(err)
		}
	}
	if err := disk.RunGC(ctx); err != nil {
		t.Errorf("disk RunGC = %v, want nil", err)
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if err := disk.RunGC(canceled); !errors.Is(err, context.Canceled) {
		t.Errorf("RunGC with canceled ctx = %v", err)
	}
}

func TestOpenBadgerStore_RequiresPath(t *testing.T) {
	if _, err := OpenBadgerStore(BadgerOptions{}); err == nil {
		t.Error("expected error without path")
	}
}
