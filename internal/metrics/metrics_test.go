// Homography Backend - Point Annotation and Homography Bridge Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homography-backend

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("POST", "/api/compute_homography", "200"))
	RecordAPIRequest("POST", "/api/compute_homography", "200", 25*time.Millisecond)
	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("POST", "/api/compute_homography", "200"))
	if after-before != 1 {
		t.Errorf("api_requests_total delta = %v, want 1", after-before)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	if got := testutil.ToFloat64(APIActiveRequests); got != before+1 {
		t.Errorf("active requests = %v, want %v", got, before+1)
	}
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != before {
		t.Errorf("active requests = %v, want %v", got, before)
	}
}

func TestRecordBridgeInvocation(t *testing.T) {
	tests := []struct {
		name     string
		outcome  string
		duration time.Duration
	}{
		{"success", "success", 2 * time.Second},
		{"failed", "failed", 500 * time.Millisecond},
		{"never started", "start_failed", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := BridgeInvocations.WithLabelValues("homography", "sync", tt.outcome)
			before := testutil.ToFloat64(c)
			RecordBridgeInvocation("homography", "sync", tt.outcome, tt.duration)
			if got := testutil.ToFloat64(c); got != before+1 {
				t.Errorf("bridge_invocations_total = %v, want %v", got, before+1)
			}
		})
	}
}

func TestRecordLockWait(t *testing.T) {
	c := LockContention.WithLabelValues("compute-homography")
	before := testutil.ToFloat64(c)

	RecordLockWait("compute-homography", time.Millisecond, false)
	if got := testutil.ToFloat64(c); got != before {
		t.Errorf("timeouts should not increase on success: %v", got)
	}

	RecordLockWait("compute-homography", time.Second, true)
	if got := testutil.ToFloat64(c); got != before+1 {
		t.Errorf("timeouts = %v, want %v", got, before+1)
	}
}

func TestRecordBackup(t *testing.T) {
	before := testutil.ToFloat64(BackupFilesMoved)
	RecordBackup("success", 4)
	if got := testutil.ToFloat64(BackupFilesMoved); got != before+4 {
		t.Errorf("backup_files_moved_total = %v, want %v", got, before+4)
	}
	RecordBackup("exists", 0)
	if got := testutil.ToFloat64(BackupOperations.WithLabelValues("exists")); got < 1 {
		t.Errorf("backup_operations_total{exists} = %v, want >= 1", got)
	}
}

func TestRecordTaskTransition(t *testing.T) {
	c := TaskTransitions.WithLabelValues("shell", "running")
	before := testutil.ToFloat64(c)
	RecordTaskTransition("shell", "running")
	if got := testutil.ToFloat64(c); got != before+1 {
		t.Errorf("task transitions = %v, want %v", got, before+1)
	}
}
