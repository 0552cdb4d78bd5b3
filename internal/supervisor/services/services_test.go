// Homography Backend - Point Annotation and Homography Bridge Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homography-backend

package services

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

var (
	_ suture.Service = (*HTTPServerService)(nil)
	_ suture.Service = (*WebSocketHubService)(nil)
	_ suture.Service = (*MaintenanceService)(nil)
)

type fakeServer struct {
	listenErr   error
	shutdownErr error
	stop        chan struct{}
	shutdowns   atomic.Int32
}

func newFakeServer() *fakeServer {
	return &fakeServer{stop: make(chan struct{})}
}

func (f *fakeServer) ListenAndServe() error {
	if f.listenErr != nil {
		return f.listenErr
	}
	<-f.stop
	return http.ErrServerClosed
}

func (f *fakeServer) Shutdown(ctx context.Context) error {
	f.shutdowns.Add(1)
	close(f.stop)
	return f.shutdownErr
}

func TestHTTPServerService_GracefulShutdown(t *testing.T) {
	srv := newFakeServer()
	svc := NewHTTPServerService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}
	if srv.shutdowns.Load() != 1 {
		t.Errorf("Shutdown called %d times", srv.shutdowns.Load())
	}
}

func TestHTTPServerService_ListenFailure(t *testing.T) {
	srv := newFakeServer()
	srv.listenErr = errors.New("address already in use")

	err := NewHTTPServerService(srv, 0).Serve(context.Background())
	if err == nil || !errors.Is(err, srv.listenErr) {
		t.Errorf("Serve = %v, want wrapped listen error", err)
	}
}

func TestHTTPServerService_ShutdownFailure(t *testing.T) {
	srv := newFakeServer()
	srv.shutdownErr = errors.New("deadline")
	svc := NewHTTPServerService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := svc.Serve(ctx); !errors.Is(err, srv.shutdownErr) {
		t.Errorf("Serve = %v, want shutdown error", err)
	}
	if svc.String() != "http-server" {
		t.Errorf("String = %q", svc.String())
	}
}

type fakeHub struct {
	runs atomic.Int32
}

func (f *fakeHub) RunWithContext(ctx context.Context) error {
	f.runs.Add(1)
	<-ctx.Done()
	return ctx.Err()
}

func TestWebSocketHubService(t *testing.T) {
	hub := &fakeHub{}
	svc := NewWebSocketHubService(hub)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := svc.Serve(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Serve = %v", err)
	}
	if hub.runs.Load() != 1 {
		t.Errorf("RunWithContext called %d times", hub.runs.Load())
	}
	if svc.String() != "websocket-hub" {
		t.Errorf("String = %q", svc.String())
	}
}

func TestMaintenanceService_RunsPeriodicallyAndSurvivesErrors(t *testing.T) {
	var calls atomic.Int32
	svc := NewMaintenanceService("task-store-gc", 10*time.Millisecond, func(ctx context.Context) error {
		if calls.Add(1) == 1 {
			return errors.New("first pass fails")
		}
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if err := svc.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve = %v, want deadline", err)
	}
	if calls.Load() < 3 {
		t.Errorf("run called %d times, want at least 3", calls.Load())
	}
	if svc.String() != "task-store-gc" {
		t.Errorf("String = %q", svc.String())
	}
}

func TestMaintenanceService_DefaultInterval(t *testing.T) {
	svc := NewMaintenanceService("x", 0, func(context.Context) error { return nil })
	if svc.interval != 10*time.Minute {
		t.Errorf("interval = %v", svc.interval)
	}
}
