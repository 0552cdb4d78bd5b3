// Homography Backend - Point Annotation and Homography Bridge Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homography-backend

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/tomtom215/homography-backend/internal/api"
	"github.com/tomtom215/homography-backend/internal/backup"
	"github.com/tomtom215/homography-backend/internal/bridge"
	"github.com/tomtom215/homography-backend/internal/config"
	"github.com/tomtom215/homography-backend/internal/homography"
	"github.com/tomtom215/homography-backend/internal/lock"
	"github.com/tomtom215/homography-backend/internal/logging"
	"github.com/tomtom215/homography-backend/internal/storage"
	"github.com/tomtom215/homography-backend/internal/supervisor"
	"github.com/tomtom215/homography-backend/internal/supervisor/services"
	"github.com/tomtom215/homography-backend/internal/tasks"
	ws "github.com/tomtom215/homography-backend/internal/websocket"
)

// taskBusBuffer is the per-subscriber channel buffer of the task event bus.
const taskBusBuffer = 256

// taskStoreGCInterval is how often badger's value log is compacted.
const taskStoreGCInterval = 10 * time.Minute

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("Server failed")
	}
}

//nolint:gocyclo // Sequential startup wiring
func run() error {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Str("storage", cfg.Storage.Backend).
		Str("resources", cfg.Storage.Root).
		Str("task_store", cfg.Tasks.Store).
		Str("environment", cfg.Server.Environment).
		Msg("Starting homography backend")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, &cfg.Storage)
	if err != nil {
		return err
	}

	taskStore, err := openTaskStore(&cfg.Tasks)
	if err != nil {
		return err
	}
	defer func() {
		if err := taskStore.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing task store")
		}
	}()

	bus := tasks.NewBus(taskBusBuffer)
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing task bus")
		}
	}()

	registry := tasks.NewRegistry(taskStore, bus)
	if n, err := registry.Recover(ctx); err != nil {
		logging.Warn().Err(err).Msg("Failed to recover interrupted tasks")
	} else if n > 0 {
		logging.Info().Int("count", n).Msg("Marked interrupted tasks as failed")
	}

	br, err := bridge.New(&cfg.Bridge, nil, registry)
	if err != nil {
		return fmt.Errorf("create process bridge: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := br.Shutdown(shutdownCtx); err != nil {
			logging.Warn().Err(err).Msg("Background processes did not finish before shutdown")
		}
	}()

	svc := homography.NewService(store, lock.New(cfg.Locks.WaitTimeout), br, backup.NewManager(store), homography.Config{
		ShellCommand: cfg.Bridge.ShellCommand,
		StartCommand: cfg.Bridge.StartCommand,
		StopCommand:  cfg.Bridge.StopCommand,
	})
	if err := svc.Ready(); err != nil {
		logging.Warn().Err(err).Msg("Homography script not found; compute and visualize will fail until it exists")
	}

	hub := ws.NewHub()
	taskStream := ws.NewHandler(hub, cfg.Security.CORSOrigins)

	logSecurityWarnings(cfg)

	handler := api.NewHandler(svc, registry, taskStream, api.HandlerOptions{
		TaskListLimit:  cfg.Tasks.ListLimit,
		MaxUploadBytes: cfg.Upload.MaxBytes,
	})
	router := api.NewRouter(handler, api.NewChiMiddleware(api.ChiMiddlewareConfigFrom(&cfg.Security)))

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       120 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	if gc, ok := taskStore.(*tasks.BadgerStore); ok {
		tree.AddDataService(services.NewMaintenanceService("task-store-gc", taskStoreGCInterval, gc.RunGC))
	}
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddMessagingService(ws.NewTaskRelay(bus, hub))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, stopping services")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}
	stop()

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, s := range unstopped {
		logging.Warn().Str("service", s.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Server stopped")
	return nil
}

// openStorage opens the resources directory on disk.
func openStorage(ctx context.Context, cfg *config.StorageConfig) (storage.Store, error) {
	if err := os.MkdirAll(cfg.Root, 0o755); err != nil {
		return nil, fmt.Errorf("create resources directory: %w", err)
	}
	store, err := storage.NewDiskStore(ctx, cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("open resources directory: %w", err)
	}
	return store, nil
}

// openTaskStore opens the task record store.
func openTaskStore(cfg *config.TasksConfig) (tasks.Store, error) {
	if cfg.Store == "memory" {
		return tasks.NewMemoryStore(cfg.Retention), nil
	}
	store, err := tasks.OpenBadgerStore(tasks.BadgerOptions{
		Path:      cfg.Path,
		Retention: cfg.Retention,
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

func logSecurityWarnings(cfg *config.Config) {
	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}
	if cfg.Server.Environment == "production" && slices.Contains(cfg.Security.CORSOrigins, "*") {
		logging.Warn().Msg("CORS allows any origin in production; set CORS_ORIGINS to the annotation UI origin")
	}
}
