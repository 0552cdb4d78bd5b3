// Homography Backend - Point Annotation and Homography Bridge Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homography-backend

package homography

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/homography-backend/internal/backup"
	"github.com/tomtom215/homography-backend/internal/bridge"
	"github.com/tomtom215/homography-backend/internal/config"
	"github.com/tomtom215/homography-backend/internal/lock"
	"github.com/tomtom215/homography-backend/internal/storage"
	"github.com/tomtom215/homography-backend/internal/tasks"
)

// scriptStub plays homography.py against the store: compute writes the
// matrix, apply writes the stitched image.
type scriptStub struct {
	store storage.Store
	fail  error

	mu    sync.Mutex
	calls []bridge.Command
}

func (s *scriptStub) Run(ctx context.Context, cmd bridge.Command) (*bridge.Result, error) {
	s.mu.Lock()
	s.calls = append(s.calls, cmd)
	s.mu.Unlock()

	if s.fail != nil {
		return &bridge.Result{ExitCode: 1, Stderr: "Traceback"}, s.fail
	}
	switch cmd.Label {
	case ModeCompute:
		_ = s.store.Put(ctx, MatrixKey, []byte{0x93, 'N', 'U', 'M', 'P', 'Y'})
	case ModeApply:
		_ = s.store.Put(ctx, StitchedKey, []byte{0x89, 'P', 'N', 'G'})
	}
	return &bridge.Result{ExitCode: 0, Duration: time.Millisecond}, nil
}

func (s *scriptStub) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *scriptStub) last() bridge.Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[len(s.calls)-1]
}

type fixture struct {
	svc      *Service
	store    storage.Store
	stub     *scriptStub
	registry *tasks.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := storage.NewMemoryStore()
	stub := &scriptStub{store: store}
	registry := tasks.NewRegistry(tasks.NewMemoryStore(0), nil)

	br, err := bridge.New(&config.BridgeConfig{
		Interpreter: "python",
		Script:      "./resources/homography.py",
		Timeout:     time.Second,
	}, stub, registry)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = br.Shutdown(context.Background()) })

	svc := NewService(store, lock.New(50*time.Millisecond), br, backup.NewManager(store), Config{
		ShellCommand: "python ./resources/demo.py",
		StartCommand: "python ./resources/start_process.py",
		StopCommand:  "python ./resources/stop_process.py",
	})
	return &fixture{svc: svc, store: store, stub: stub, registry: registry}
}

func argValue(cmd bridge.Command, flag string) (string, bool) {
	for i, a := range cmd.Args {
		if a == flag {
			if i+1 < len(cmd.Args) {
				return cmd.Args[i+1], true
			}
			return "", true
		}
	}
	return "", false
}

func hasFlag(cmd bridge.Command, flag string) bool {
	for _, a := range cmd.Args {
		if a == flag {
			return true
		}
	}
	return false
}

func TestCompute_PersistsPointsAndRunsScript(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := ComputeRequest{
		ImagePoints: json.RawMessage(`[[100,200],[300,400],[500,600],[700,800]]`),
		MapPoints:   json.RawMessage(`[{"x":1,"y":2},{"x":3,"y":4},{"x":5,"y":6},{"x":7,"y":8}]`),
	}
	if _, err := f.svc.Compute(ctx, req); err != nil {
		t.Fatalf("Compute: %v", err)
	}

	for key, want := range map[string]string{
		ImagePointsKey: `[[100,200],[300,400],[500,600],[700,800]]`,
		MapPointsKey:   `[{"x":1,"y":2},{"x":3,"y":4},{"x":5,"y":6},{"x":7,"y":8}]`,
	} {
		data, err := f.store.Get(ctx, key)
		if err != nil {
			t.Fatalf("Get %s: %v", key, err)
		}
		var doc struct {
			Points json.RawMessage `json:"points"`
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			t.Fatalf("%s is not JSON: %v", key, err)
		}
		if string(doc.Points) != want {
			t.Errorf("%s points = %s, want %s", key, doc.Points, want)
		}
	}

	cmd := f.stub.last()
	if mode, _ := argValue(cmd, "--mode"); mode != ModeCompute {
		t.Errorf("--mode = %q", mode)
	}
	if p, _ := argValue(cmd, "--image_points_path"); p != f.store.LocalPath(ImagePointsKey) {
		t.Errorf("--image_points_path = %q", p)
	}
	if p, _ := argValue(cmd, "--output_dir"); p != f.store.LocalPath(ComputeDir) {
		t.Errorf("--output_dir = %q", p)
	}
}

func TestCompute_InvalidPointsSkipProcess(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Compute(context.Background(), ComputeRequest{
		ImagePoints: json.RawMessage(`[[1,2]]`),
		MapPoints:   json.RawMessage(`"nope"`),
	})
	if !errors.Is(err, ErrInvalidPoints) {
		t.Fatalf("err = %v, want ErrInvalidPoints", err)
	}
	if f.stub.count() != 0 {
		t.Error("process must not run for invalid input")
	}
	if ok, _ := f.store.Exists(context.Background(), ImagePointsKey); ok {
		t.Error("nothing should be written for invalid input")
	}
}

func TestCompute_ProcessFailureSurfaces(t *testing.T) {
	f := newFixture(t)
	f.stub.fail = &bridge.ProcessError{Command: ModeCompute, ExitCode: 1, Stderr: "Traceback"}

	_, err := f.svc.Compute(context.Background(), ComputeRequest{
		ImagePoints: json.RawMessage(`[[1,2]]`),
		MapPoints:   json.RawMessage(`[[3,4]]`),
	})
	if !errors.Is(err, bridge.ErrProcessFailed) {
		t.Errorf("err = %v, want ErrProcessFailed", err)
	}
}

func TestCompute_BusyWhileLocked(t *testing.T) {
	f := newFixture(t)
	release, err := f.svc.locks.Acquire(context.Background(), ComputeDir)
	if err != nil {
		t.Fatal(err)
	}
	defer release()

	_, err = f.svc.Compute(context.Background(), ComputeRequest{
		ImagePoints: json.RawMessage(`[[1,2]]`),
		MapPoints:   json.RawMessage(`[[3,4]]`),
	})
	if !errors.Is(err, lock.ErrBusy) {
		t.Errorf("err = %v, want lock.ErrBusy", err)
	}
}

func seedVisualizePrereqs(t *testing.T, f *fixture) {
	t.Helper()
	ctx := context.Background()
	if err := f.store.Put(ctx, MatrixKey, []byte("matrix")); err != nil {
		t.Fatal(err)
	}
	if err := f.store.Put(ctx, MapImageKey, []byte("map")); err != nil {
		t.Fatal(err)
	}
}

func TestVisualize_Success(t *testing.T) {
	tests := []struct {
		name       string
		isBoundary bool
		pointsKey  string
	}{
		{"image points", false, "visualize-homography/vis_image_points.json"},
		{"boundary", true, "visualize-homography/boundary_points.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			seedVisualizePrereqs(t, f)
			ctx := context.Background()

			res, err := f.svc.Visualize(ctx, VisualizeRequest{
				Data:  VisualizeData{ImagePoints: json.RawMessage(`[[1,2],[3,4]]`), IsBoundary: tt.isBoundary},
				Frame: []byte("frame-bytes"),
			})
			if err != nil {
				t.Fatalf("Visualize: %v", err)
			}
			if res.StitchedImageURL != "/public/annotated_stitched_image.png" {
				t.Errorf("StitchedImageURL = %q", res.StitchedImageURL)
			}

			frame, err := f.store.Get(ctx, FrameKey)
			if err != nil || string(frame) != "frame-bytes" {
				t.Errorf("frame = %q, %v", frame, err)
			}
			if ok, _ := f.store.Exists(ctx, tt.pointsKey); !ok {
				t.Errorf("%s not written", tt.pointsKey)
			}

			cmd := f.stub.last()
			if mode, _ := argValue(cmd, "--mode"); mode != ModeApply {
				t.Errorf("--mode = %q", mode)
			}
			if p, _ := argValue(cmd, "--image_points_path"); p != f.store.LocalPath(tt.pointsKey) {
				t.Errorf("--image_points_path = %q", p)
			}
			if p, _ := argValue(cmd, "--homography_path"); p != f.store.LocalPath(MatrixKey) {
				t.Errorf("--homography_path = %q", p)
			}
			if hasFlag(cmd, "--is_boundary") != tt.isBoundary {
				t.Errorf("--is_boundary present = %v, want %v", !tt.isBoundary, tt.isBoundary)
			}
		})
	}
}

func TestVisualize_MissingPrerequisites(t *testing.T) {
	tests := []struct {
		name    string
		seed    []string
		wantErr error
	}{
		{"no matrix", []string{MapImageKey}, ErrMatrixMissing},
		{"no map", []string{MatrixKey}, ErrMapMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			for _, key := range tt.seed {
				_ = f.store.Put(ctx, key, []byte("x"))
			}

			_, err := f.svc.Visualize(ctx, VisualizeRequest{
				Data:  VisualizeData{ImagePoints: json.RawMessage(`[[1,2]]`)},
				Frame: []byte("frame"),
			})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if f.stub.count() != 0 {
				t.Error("process must not run without prerequisites")
			}
			if ok, _ := f.store.Exists(ctx, FrameKey); ok {
				t.Error("upload must not be written when prerequisites are missing")
			}
		})
	}
}

func TestPublicFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_ = f.store.Put(ctx, StitchedKey, []byte("png"))
	_ = f.store.Put(ctx, ImagePointsKey, []byte("secret"))

	data, err := f.svc.PublicFile(ctx, StitchedImageFile)
	if err != nil || string(data) != "png" {
		t.Errorf("PublicFile = %q, %v", data, err)
	}

	for _, name := range []string{"../compute-homography/image_points.json", "nested/x.png", "missing.png"} {
		if _, err := f.svc.PublicFile(ctx, name); err == nil {
			t.Errorf("PublicFile(%q) should fail", name)
		}
	}
}

func TestBackup_MovesAndLists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedVisualizePrereqs(t, f)
	_ = f.store.Put(ctx, ImagePointsKey, []byte(`{"points":[[1,2]]}`))

	res, err := f.svc.Backup(ctx, "run-1")
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if len(res.Moved) != 2 {
		t.Errorf("Moved = %v", res.Moved)
	}

	if _, err := f.svc.Backup(ctx, "run-1"); !errors.Is(err, backup.ErrExists) {
		t.Errorf("second Backup err = %v, want ErrExists", err)
	}

	list, err := f.svc.Backups(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Name != "run-1" {
		t.Errorf("Backups = %+v", list)
	}
}

func TestLifecycleCommands(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	launchers := map[string]func(context.Context) (*tasks.Task, error){
		tasks.KindShell:        f.svc.Shell,
		tasks.KindStartProcess: f.svc.StartProcess,
		tasks.KindStopProcess:  f.svc.StopProcess,
	}
	for kind, launch := range launchers {
		task, err := launch(ctx)
		if err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
		if task.Kind != kind {
			t.Errorf("Kind = %q, want %q", task.Kind, kind)
		}

		waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		done, err := f.registry.Wait(waitCtx, task.ID)
		cancel()
		if err != nil {
			t.Fatalf("%s wait: %v", kind, err)
		}
		if done.Status != tasks.StatusSucceeded {
			t.Errorf("%s status = %s", kind, done.Status)
		}
	}
}

func TestLifecycleCommand_NotConfigured(t *testing.T) {
	f := newFixture(t)
	f.svc.cfg.StopCommand = ""
	if _, err := f.svc.StopProcess(context.Background()); !errors.Is(err, ErrHookNotConfigured) {
		t.Errorf("err = %v, want ErrHookNotConfigured", err)
	}
}

func TestReady(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "homography.py")

	br, err := bridge.New(&config.BridgeConfig{Interpreter: "python", Script: script}, &scriptStub{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	svc := NewService(storage.NewMemoryStore(), lock.New(0), br, nil, Config{})

	if err := svc.Ready(); err == nil {
		t.Error("Ready should fail when the script is missing")
	}
	if err := os.WriteFile(script, []byte("print('ok')\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := svc.Ready(); err != nil {
		t.Errorf("Ready: %v", err)
	}
}
