// Homography Backend - Point Annotation and Homography Bridge Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homography-backend

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/homography-backend/internal/logging"
)

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// homography.py reads and writes the resources directory itself, so it must
// be on disk.
var validStorageBackends = map[string]bool{
	"disk": true,
}

var validTaskStores = map[string]bool{
	"badger": true,
	"memory": true,
}

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateStorage,
		c.validateBridge,
		c.validateTasks,
		c.validateLocks,
		c.validateUpload,
		c.validateSecurity,
		c.validateLogging,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("HTTP_SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateStorage() error {
	if !validStorageBackends[c.Storage.Backend] {
		return fmt.Errorf("STORAGE_BACKEND must be disk (got %q)", c.Storage.Backend)
	}
	if strings.TrimSpace(c.Storage.Root) == "" {
		return fmt.Errorf("RESOURCES_DIR is required")
	}
	return nil
}

func (c *Config) validateBridge() error {
	if strings.TrimSpace(c.Bridge.Interpreter) == "" {
		return fmt.Errorf("PYTHON_BIN is required")
	}
	if strings.TrimSpace(c.Bridge.Script) == "" {
		return fmt.Errorf("HOMOGRAPHY_SCRIPT is required")
	}
	if c.Bridge.Timeout <= 0 {
		return fmt.Errorf("PROCESS_TIMEOUT must be positive")
	}
	if c.Bridge.OutputLimit < 1024 {
		return fmt.Errorf("PROCESS_OUTPUT_LIMIT must be at least 1024 bytes")
	}
	if c.Bridge.BreakerEnabled {
		if c.Bridge.BreakerFailureThreshold == 0 {
			return fmt.Errorf("BREAKER_FAILURE_THRESHOLD must be at least 1 when BREAKER_ENABLED=true")
		}
		if c.Bridge.BreakerTimeout <= 0 {
			return fmt.Errorf("BREAKER_TIMEOUT must be positive when BREAKER_ENABLED=true")
		}
	}
	// Synchronous runs hold the HTTP connection for up to the process timeout.
	if c.Server.Timeout < c.Bridge.Timeout {
		return fmt.Errorf("HTTP_TIMEOUT (%s) must not be shorter than PROCESS_TIMEOUT (%s)", c.Server.Timeout, c.Bridge.Timeout)
	}
	return nil
}

func (c *Config) validateTasks() error {
	if !validTaskStores[c.Tasks.Store] {
		return fmt.Errorf("TASK_STORE must be one of: badger, memory")
	}
	if c.Tasks.Store == "badger" && strings.TrimSpace(c.Tasks.Path) == "" {
		return fmt.Errorf("TASK_STORE_PATH is required when TASK_STORE=badger")
	}
	if c.Tasks.Retention < time.Minute {
		return fmt.Errorf("TASK_RETENTION must be at least 1m")
	}
	if c.Tasks.ListLimit < 1 || c.Tasks.ListLimit > 10000 {
		return fmt.Errorf("TASK_LIST_LIMIT must be between 1 and 10000")
	}
	return nil
}

func (c *Config) validateLocks() error {
	if c.Locks.WaitTimeout < 0 {
		return fmt.Errorf("LOCK_WAIT_TIMEOUT must not be negative")
	}
	return nil
}

func (c *Config) validateUpload() error {
	if c.Upload.MaxBytes < 1024 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be at least 1024")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if len(c.Security.CORSOrigins) == 0 {
		return fmt.Errorf("CORS_ORIGINS must contain at least one origin (use * to allow all)")
	}
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitRequests < 1 || c.Security.RateLimitRequests > 100000 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between 1 and 100000")
	}
	if c.Security.RateLimitWindow < time.Second {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be at least 1s")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error, fatal, panic, disabled (got %q)", c.Logging.Level)
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}
