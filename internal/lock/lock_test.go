// Homography Backend - Point Annotation and Homography Bridge Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homography-backend

package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestAcquireRelease(t *testing.T) {
	m := New(time.Second)
	release, err := m.Acquire(context.Background(), "compute-homography")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if !m.Held("compute-homography") {
		t.Error("key should be held")
	}
	release()
	if m.Held("compute-homography") {
		t.Error("key should be free after release")
	}
	// double release is harmless
	release()
}

func TestAcquire_BusyWithZeroWait(t *testing.T) {
	m := New(0)
	release, err := m.Acquire(context.Background(), "uploads")
	if err != nil {
		t.Fatal(err)
	}
	defer release()

	_, err = m.Acquire(context.Background(), "uploads")
	if !errors.Is(err, ErrBusy) {
		t.Fatalf("err = %v, want ErrBusy", err)
	}
	var busy *BusyError
	if !errors.As(err, &busy) || busy.Resource != "uploads" {
		t.Errorf("BusyError = %+v", busy)
	}
}

func TestAcquire_TimesOut(t *testing.T) {
	m := New(30 * time.Millisecond)
	release, err := m.Acquire(context.Background(), "visualize-homography")
	if err != nil {
		t.Fatal(err)
	}
	defer release()

	start := time.Now()
	_, err = m.Acquire(context.Background(), "visualize-homography")
	if !errors.Is(err, ErrBusy) {
		t.Fatalf("err = %v, want ErrBusy", err)
	}
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Errorf("returned after %v, expected to wait for the timeout", elapsed)
	}
}

func TestAcquire_CallerContextCanceled(t *testing.T) {
	m := New(time.Minute)
	release, err := m.Acquire(context.Background(), "uploads")
	if err != nil {
		t.Fatal(err)
	}
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err = m.Acquire(ctx, "uploads")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestAcquire_WaitsForRelease(t *testing.T) {
	m := New(time.Second)
	release, err := m.Acquire(context.Background(), "compute-homography")
	if err != nil {
		t.Fatal(err)
	}

	acquired := make(chan struct{})
	go func() {
		r, err := m.Acquire(context.Background(), "compute-homography")
		if err == nil {
			r()
		}
		close(acquired)
	}()

	time.Sleep(20 * time.Millisecond)
	select {
	case <-acquired:
		t.Fatal("second acquire should block while the key is held")
	default:
	}

	release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second acquire never completed")
	}
}

func TestAcquire_MultiKeyRollsBackOnBusy(t *testing.T) {
	m := New(0)
	hold, err := m.Acquire(context.Background(), "visualize-homography")
	if err != nil {
		t.Fatal(err)
	}
	defer hold()

	// compute-homography sorts first and must be released when
	// visualize-homography turns out to be busy.
	if _, err := m.Acquire(context.Background(), "visualize-homography", "compute-homography"); !errors.Is(err, ErrBusy) {
		t.Fatalf("err = %v, want ErrBusy", err)
	}
	if m.Held("compute-homography") {
		t.Error("compute-homography should have been rolled back")
	}
}

func TestAcquire_DuplicateKeys(t *testing.T) {
	m := New(0)
	release, err := m.Acquire(context.Background(), "uploads", "uploads")
	if err != nil {
		t.Fatalf("duplicate keys should not self-deadlock: %v", err)
	}
	release()
}

func TestDo_SerializesSameKey(t *testing.T) {
	m := New(5 * time.Second)
	var inside, maxInside int32
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := m.Do(context.Background(), []string{"compute-homography"}, func(context.Context) error {
				n := atomic.AddInt32(&inside, 1)
				for {
					cur := atomic.LoadInt32(&maxInside)
					if n <= cur || atomic.CompareAndSwapInt32(&maxInside, cur, n) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
			if err != nil {
				t.Errorf("Do: %v", err)
			}
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Errorf("max concurrent holders = %d, want 1", maxInside)
	}
}

func TestDo_PropagatesError(t *testing.T) {
	m := New(time.Second)
	want := errors.New("boom")
	if err := m.Do(context.Background(), []string{"uploads"}, func(context.Context) error { return want }); !errors.Is(err, want) {
		t.Errorf("Do error = %v, want %v", err, want)
	}
	if m.Held("uploads") {
		t.Error("lock should be released after fn returns")
	}
}
