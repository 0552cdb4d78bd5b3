// Homography Backend - Point Annotation and Homography Bridge Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homography-backend

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Process durations are bucketed for scripts that run from a fraction of a
// second up to several minutes.
var processBuckets = []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300}

var (
	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Number of in-flight API requests",
		},
	)

	// Command bridge metrics
	BridgeInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_invocations_total",
			Help: "Total number of external process invocations",
		},
		[]string{"command", "mode", "outcome"}, // mode: sync, async; outcome: success, failed, timeout, start_failed, rejected
	)

	BridgeProcessDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bridge_process_duration_seconds",
			Help:    "Wall-clock duration of external processes",
			Buckets: processBuckets,
		},
		[]string{"command"},
	)

	BridgeProcessesRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bridge_processes_running",
			Help: "Number of external processes currently running",
		},
	)

	// Task metrics
	TaskTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_status_transitions_total",
			Help: "Total number of task status transitions",
		},
		[]string{"kind", "status"},
	)

	TaskEventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_events_published_total",
			Help: "Total number of task events published on the event bus",
		},
		[]string{"type"},
	)

	// Resource lock metrics
	LockWaitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "resource_lock_wait_seconds",
			Help:    "Time spent waiting for a working directory lock",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"resource"},
	)

	LockContention = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resource_lock_timeouts_total",
			Help: "Total number of lock acquisitions that timed out",
		},
		[]string{"resource"},
	)

	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: success, failure, rejected
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Backup metrics
	BackupOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backup_operations_total",
			Help: "Total number of backup operations",
		},
		[]string{"outcome"}, // success, exists, failed
	)

	BackupFilesMoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "backup_files_moved_total",
			Help: "Total number of working files moved into backups",
		},
	)

	// Upload metrics
	UploadBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "upload_bytes_total",
			Help: "Total bytes accepted from multipart uploads",
		},
	)

	UploadRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upload_rejected_total",
			Help: "Total number of rejected uploads",
		},
		[]string{"reason"},
	)

	// WebSocket metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Number of connected task stream clients",
		},
	)
)

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks in-flight API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordBridgeInvocation records the outcome of one external process run.
// A zero duration (process never started) is not observed.
func RecordBridgeInvocation(command, mode, outcome string, duration time.Duration) {
	BridgeInvocations.WithLabelValues(command, mode, outcome).Inc()
	if duration > 0 {
		BridgeProcessDuration.WithLabelValues(command).Observe(duration.Seconds())
	}
}

// TrackRunningProcess tracks the number of live external processes.
func TrackRunningProcess(inc bool) {
	if inc {
		BridgeProcessesRunning.Inc()
	} else {
		BridgeProcessesRunning.Dec()
	}
}

// RecordTaskTransition records a task entering status.
func RecordTaskTransition(kind, status string) {
	TaskTransitions.WithLabelValues(kind, status).Inc()
}

// RecordLockWait records how long a lock acquisition waited and whether it timed out.
func RecordLockWait(resource string, waited time.Duration, timedOut bool) {
	LockWaitDuration.WithLabelValues(resource).Observe(waited.Seconds())
	if timedOut {
		LockContention.WithLabelValues(resource).Inc()
	}
}

// RecordBackup records a backup outcome and the number of files moved.
func RecordBackup(outcome string, filesMoved int) {
	BackupOperations.WithLabelValues(outcome).Inc()
	if filesMoved > 0 {
		BackupFilesMoved.Add(float64(filesMoved))
	}
}
