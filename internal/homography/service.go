// Homography Backend - Point Annotation and Homography Bridge Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homography-backend

package homography

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/homography-backend/internal/backup"
	"github.com/tomtom215/homography-backend/internal/bridge"
	"github.com/tomtom215/homography-backend/internal/lock"
	"github.com/tomtom215/homography-backend/internal/logging"
	"github.com/tomtom215/homography-backend/internal/storage"
	"github.com/tomtom215/homography-backend/internal/tasks"
)

var (
	// ErrMatrixMissing means compute_homography has not produced a matrix yet.
	ErrMatrixMissing = errors.New("homography matrix not found")

	// ErrMapMissing means the operator has not provided cricket_map.png.
	ErrMapMissing = errors.New("map image not found")

	// ErrHookNotConfigured means a lifecycle command line is empty.
	ErrHookNotConfigured = errors.New("command not configured")
)

// Config holds the lifecycle command lines and the public URL prefix of
// the visualization directory.
type Config struct {
	ShellCommand string
	StartCommand string
	StopCommand  string
	PublicPath   string
}

// Service composes storage, locks and the process bridge into the
// operations exposed over HTTP.
type Service struct {
	store   storage.Store
	locks   *lock.Manager
	bridge  *bridge.Bridge
	backups *backup.Manager
	cfg     Config
}

// NewService wires a Service.
func NewService(store storage.Store, locks *lock.Manager, br *bridge.Bridge, backups *backup.Manager, cfg Config) *Service {
	if cfg.PublicPath == "" {
		cfg.PublicPath = "/public"
	}
	return &Service{store: store, locks: locks, bridge: br, backups: backups, cfg: cfg}
}

// ComputeRequest is the body of POST /api/compute_homography.
type ComputeRequest struct {
	ImagePoints json.RawMessage `json:"image-points"`
	MapPoints   json.RawMessage `json:"map-points"`
}

// Validate checks both point sets.
func (r *ComputeRequest) Validate() error {
	if err := ValidatePoints("image-points", r.ImagePoints); err != nil {
		return err
	}
	return ValidatePoints("map-points", r.MapPoints)
}

// Compute persists both point sets and runs compute_homography.
func (s *Service) Compute(ctx context.Context, req ComputeRequest) (*bridge.Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	imageDoc, err := EncodePointSet(req.ImagePoints)
	if err != nil {
		return nil, err
	}
	mapDoc, err := EncodePointSet(req.MapPoints)
	if err != nil {
		return nil, err
	}

	release, err := s.locks.Acquire(ctx, ComputeDir)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.store.Put(ctx, ImagePointsKey, imageDoc); err != nil {
		return nil, fmt.Errorf("write image points: %w", err)
	}
	if err := s.store.Put(ctx, MapPointsKey, mapDoc); err != nil {
		return nil, fmt.Errorf("write map points: %w", err)
	}

	opts := bridge.NewOptions().
		Set("image_points_path", s.store.LocalPath(ImagePointsKey)).
		Set("map_points_path", s.store.LocalPath(MapPointsKey)).
		Set("output_dir", s.store.LocalPath(ComputeDir))

	return s.bridge.Run(ctx, s.bridge.Homography(ModeCompute, opts))
}

// VisualizeData is the JSON carried in the multipart "data" field.
type VisualizeData struct {
	ImagePoints json.RawMessage `json:"image-points"`
	IsBoundary  bool            `json:"is-boundary"`
}

// VisualizeRequest is a decoded visualize upload.
type VisualizeRequest struct {
	Data  VisualizeData
	Frame []byte
}

// VisualizeResult points at the stitched output.
type VisualizeResult struct {
	StitchedImageURL string         `json:"stitched_image_url"`
	Process          *bridge.Result `json:"-"`
}

// Visualize stores the uploaded frame and points, then runs
// apply_homography. Missing prerequisites fail before anything is written.
func (s *Service) Visualize(ctx context.Context, req VisualizeRequest) (*VisualizeResult, error) {
	if err := ValidatePoints("image-points", req.Data.ImagePoints); err != nil {
		return nil, err
	}
	pointsDoc, err := EncodePointSet(req.Data.ImagePoints)
	if err != nil {
		return nil, err
	}

	release, err := s.locks.Acquire(ctx, ComputeDir, VisualizeDir, UploadsDir)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.require(ctx, MatrixKey, ErrMatrixMissing); err != nil {
		return nil, err
	}
	if err := s.require(ctx, MapImageKey, ErrMapMissing); err != nil {
		return nil, err
	}

	if err := s.store.Put(ctx, FrameKey, req.Frame); err != nil {
		return nil, fmt.Errorf("write uploaded frame: %w", err)
	}
	pointsKey := visualizePointsKey(req.Data.IsBoundary)
	if err := s.store.Put(ctx, pointsKey, pointsDoc); err != nil {
		return nil, fmt.Errorf("write visualization points: %w", err)
	}

	opts := bridge.NewOptions().
		Set("image_points_path", s.store.LocalPath(pointsKey)).
		Set("homography_path", s.store.LocalPath(MatrixKey)).
		Set("frame_path", s.store.LocalPath(FrameKey)).
		Set("map_path", s.store.LocalPath(MapImageKey)).
		Set("output_dir", s.store.LocalPath(VisualizeDir)).
		Flag("is_boundary", req.Data.IsBoundary)

	res, err := s.bridge.Run(ctx, s.bridge.Homography(ModeApply, opts))
	if err != nil {
		return nil, err
	}
	return &VisualizeResult{StitchedImageURL: s.PublicURL(StitchedImageFile), Process: res}, nil
}

func (s *Service) require(ctx context.Context, key string, missing error) error {
	ok, err := s.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check %s: %w", key, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", missing, key)
	}
	return nil
}

// PublicURL returns the URL path serving a visualization output file.
func (s *Service) PublicURL(name string) string {
	return strings.TrimSuffix(s.cfg.PublicPath, "/") + "/" + name
}

// PublicFile reads one file of the visualization directory for /public.
// Names must stay inside that directory.
func (s *Service) PublicFile(ctx context.Context, name string) ([]byte, error) {
	cleaned, err := storage.CleanKey(name)
	if err != nil {
		return nil, err
	}
	if cleaned != path.Base(cleaned) {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, name)
	}
	return s.store.Get(ctx, storage.Join(VisualizeDir, cleaned))
}

// Backup moves the working set into backups/<name> while holding every
// working directory lock.
func (s *Service) Backup(ctx context.Context, name string) (*backup.Result, error) {
	release, err := s.locks.Acquire(ctx, backup.WorkingDirs...)
	if err != nil {
		return nil, err
	}
	defer release()
	return s.backups.Create(ctx, name)
}

// Backups lists existing backups.
func (s *Service) Backups(ctx context.Context) ([]backup.Backup, error) {
	return s.backups.List(ctx)
}

// Shell launches the configured demo command in the background.
func (s *Service) Shell(ctx context.Context) (*tasks.Task, error) {
	return s.launch(ctx, tasks.KindShell, s.cfg.ShellCommand)
}

// StartProcess launches the configured start command in the background.
func (s *Service) StartProcess(ctx context.Context) (*tasks.Task, error) {
	return s.launch(ctx, tasks.KindStartProcess, s.cfg.StartCommand)
}

// StopProcess launches the configured stop command in the background.
func (s *Service) StopProcess(ctx context.Context) (*tasks.Task, error) {
	return s.launch(ctx, tasks.KindStopProcess, s.cfg.StopCommand)
}

func (s *Service) launch(ctx context.Context, kind, line string) (*tasks.Task, error) {
	if strings.TrimSpace(line) == "" {
		return nil, fmt.Errorf("%w: %s", ErrHookNotConfigured, kind)
	}
	cmd, err := s.bridge.Hook(kind, line)
	if err != nil {
		return nil, err
	}
	task, err := s.bridge.Start(ctx, kind, cmd)
	if err != nil {
		return nil, err
	}
	logging.Ctx(ctx).Info().Str("task_id", task.ID).Str("kind", kind).Msg("Background command started")
	return task, nil
}

// Ready reports whether the homography script is present on disk.
func (s *Service) Ready() error {
	script := s.bridge.ScriptPath()
	info, err := os.Stat(script)
	if err != nil {
		return fmt.Errorf("homography script %s: %w", script, err)
	}
	if info.IsDir() {
		return fmt.Errorf("homography script %s is a directory", script)
	}
	return nil
}
