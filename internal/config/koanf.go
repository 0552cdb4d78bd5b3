// Homography Backend - Point Annotation and Homography Bridge Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homography-backend

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists config file locations in priority order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/homography/config.yaml",
	"/etc/homography/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns the built-in defaults. The resource layout matches
// what homography.py expects when launched from the repository root.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            3001,
			Host:            "0.0.0.0",
			Timeout:         10 * time.Minute,
			ShutdownTimeout: 15 * time.Second,
			Environment:     "development",
		},
		Storage: StorageConfig{
			Backend: "disk",
			Root:    "./resources",
		},
		Bridge: BridgeConfig{
			Interpreter:             "python",
			Script:                  "./resources/homography.py",
			WorkDir:                 "",
			Timeout:                 5 * time.Minute,
			OutputLimit:             64 * 1024,
			ShellCommand:            "python ./resources/demo.py",
			StartCommand:            "python ./resources/start_process.py",
			StopCommand:             "python ./resources/stop_process.py",
			BreakerEnabled:          true,
			BreakerFailureThreshold: 5,
			BreakerTimeout:          30 * time.Second,
		},
		Tasks: TasksConfig{
			Store:     "badger",
			Path:      "./data/tasks",
			Retention: 24 * time.Hour,
			ListLimit: 100,
		},
		Locks: LocksConfig{
			WaitTimeout: 30 * time.Second,
		},
		Upload: UploadConfig{
			MaxBytes: 32 << 20,
		},
		Security: SecurityConfig{
			CORSOrigins:       []string{"*"},
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration in three layers:
//
//  1. Defaults from defaultConfig()
//  2. Optional YAML file (CONFIG_PATH or DefaultConfigPaths)
//  3. Environment variables listed in envMappings
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed from comma-separated env values.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated strings into slices for
// known slice fields. YAML lists are left untouched.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
// Unlisted variables are ignored.
var envMappings = map[string]string{
	// Server
	"port":                  "server.port",
	"http_port":             "server.port",
	"http_host":             "server.host",
	"http_timeout":          "server.timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"environment":           "server.environment",

	// Storage
	"storage_backend": "storage.backend",
	"resources_dir":   "storage.root",

	// Bridge
	"python_bin":                "bridge.interpreter",
	"homography_script":         "bridge.script",
	"process_work_dir":          "bridge.work_dir",
	"process_timeout":           "bridge.timeout",
	"process_output_limit":      "bridge.output_limit",
	"shell_command":             "bridge.shell_command",
	"start_command":             "bridge.start_command",
	"stop_command":              "bridge.stop_command",
	"breaker_enabled":           "bridge.breaker_enabled",
	"breaker_failure_threshold": "bridge.breaker_failure_threshold",
	"breaker_timeout":           "bridge.breaker_timeout",

	// Tasks
	"task_store":      "tasks.store",
	"task_store_path": "tasks.path",
	"task_retention":  "tasks.retention",
	"task_list_limit": "tasks.list_limit",

	// Locks
	"lock_wait_timeout": "locks.wait_timeout",

	// Upload
	"upload_max_bytes": "upload.max_bytes",

	// Security
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_requests",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable name to its koanf path,
// returning "" for variables that are not configuration.
//
//	RESOURCES_DIR   -> storage.root
//	PROCESS_TIMEOUT -> bridge.timeout
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
