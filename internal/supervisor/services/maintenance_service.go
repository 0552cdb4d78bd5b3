// Homography Backend - Point Annotation and Homography Bridge Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homography-backend

package services

import (
	"context"
	"time"

	"github.com/tomtom215/homography-backend/internal/logging"
)

// MaintenanceService calls run every interval until shutdown. Errors are
// logged and the loop continues; a failing housekeeping pass must not take
// the data layer down.
type MaintenanceService struct {
	name     string
	interval time.Duration
	run      func(ctx context.Context) error
}

// NewMaintenanceService creates a periodic job. A non-positive interval
// means 10 minutes.
func NewMaintenanceService(name string, interval time.Duration, run func(ctx context.Context) error) *MaintenanceService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &MaintenanceService{name: name, interval: interval, run: run}
}

// Serve implements suture.Service.
func (m *MaintenanceService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			if err := m.run(ctx); err != nil {
				logging.Warn().Err(err).Str("service", m.name).Msg("Maintenance pass failed")
				continue
			}
			logging.Debug().Str("service", m.name).Dur("duration", time.Since(start)).Msg("Maintenance pass completed")
		}
	}
}

// String implements fmt.Stringer for supervisor logs.
func (m *MaintenanceService) String() string {
	return m.name
}
