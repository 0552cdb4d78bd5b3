// Homography Backend - Point Annotation and Homography Bridge Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homography-backend

/*
Package config loads and validates server configuration.

# Configuration Sources

Values are layered with koanf, later layers overriding earlier ones:

 1. Built-in defaults
 2. YAML file from CONFIG_PATH, or config.yaml in the working directory
 3. Environment variables

# Environment Variables

Server:
  - PORT / HTTP_PORT: Listen port (default: 3001)
  - HTTP_HOST: Bind address (default: 0.0.0.0)
  - HTTP_TIMEOUT: Read/write timeout (default: 10m)
  - HTTP_SHUTDOWN_TIMEOUT: Graceful shutdown budget (default: 15s)

Storage:
  - STORAGE_BACKEND: disk (default: disk); homography.py needs real files
  - RESOURCES_DIR: Working artifact root (default: ./resources)

Process bridge:
  - PYTHON_BIN: Interpreter (default: python)
  - HOMOGRAPHY_SCRIPT: Script path (default: ./resources/homography.py)
  - PROCESS_WORK_DIR: Working directory for spawned processes
  - PROCESS_TIMEOUT: Per-process timeout (default: 5m)
  - PROCESS_OUTPUT_LIMIT: Bytes of stdout/stderr retained (default: 65536)
  - SHELL_COMMAND, START_COMMAND, STOP_COMMAND: Lifecycle hook command lines
  - BREAKER_ENABLED, BREAKER_FAILURE_THRESHOLD, BREAKER_TIMEOUT

Tasks and locks:
  - TASK_STORE: badger or memory (default: badger)
  - TASK_STORE_PATH: Badger directory (default: ./data/tasks)
  - TASK_RETENTION: Task record TTL (default: 24h)
  - TASK_LIST_LIMIT: Max tasks returned by GET /api/tasks (default: 100)
  - LOCK_WAIT_TIMEOUT: Max wait for a busy working directory (default: 30s)

HTTP surface:
  - UPLOAD_MAX_BYTES: Multipart body limit (default: 32 MiB)
  - CORS_ORIGINS: Comma-separated origins (default: *)
  - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, DISABLE_RATE_LIMIT

Logging:
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER
*/
package config
