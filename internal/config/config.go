// Homography Backend - Point Annotation and Homography Bridge Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homography-backend

package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
// Struct tags map fields onto koanf paths (see koanf.go).
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Storage  StorageConfig  `koanf:"storage"`
	Bridge   BridgeConfig   `koanf:"bridge"`
	Tasks    TasksConfig    `koanf:"tasks"`
	Locks    LocksConfig    `koanf:"locks"`
	Upload   UploadConfig   `koanf:"upload"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"`          // read/write timeout; must cover the longest synchronous process run
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"` // graceful shutdown budget
	Environment     string        `koanf:"environment"`      // development, production
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig selects where working artifacts live.
type StorageConfig struct {
	Backend string `koanf:"backend"` // disk
	Root    string `koanf:"root"`    // resources directory
}

// BridgeConfig configures the external process bridge.
type BridgeConfig struct {
	Interpreter string        `koanf:"interpreter"`
	Script      string        `koanf:"script"`
	WorkDir     string        `koanf:"work_dir"`
	Timeout     time.Duration `koanf:"timeout"`
	OutputLimit int           `koanf:"output_limit"` // bytes of stdout/stderr retained per stream

	// Lifecycle hooks are full command lines split with shell word rules.
	ShellCommand string `koanf:"shell_command"`
	StartCommand string `koanf:"start_command"`
	StopCommand  string `koanf:"stop_command"`

	BreakerEnabled          bool          `koanf:"breaker_enabled"`
	BreakerFailureThreshold uint32        `koanf:"breaker_failure_threshold"`
	BreakerTimeout          time.Duration `koanf:"breaker_timeout"`
}

// TasksConfig configures the background task registry.
type TasksConfig struct {
	Store     string        `koanf:"store"` // badger or memory
	Path      string        `koanf:"path"`
	Retention time.Duration `koanf:"retention"`
	ListLimit int           `koanf:"list_limit"`
}

// LocksConfig configures working directory locks.
type LocksConfig struct {
	WaitTimeout time.Duration `koanf:"wait_timeout"`
}

// UploadConfig bounds multipart uploads.
type UploadConfig struct {
	MaxBytes int64 `koanf:"max_bytes"`
}

// SecurityConfig holds CORS and rate limiting settings.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load reads configuration from defaults, an optional YAML file and the
// environment, in that order of increasing precedence.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
