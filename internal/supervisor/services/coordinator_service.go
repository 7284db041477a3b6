// UniFi Insights - UniFi Network and Protect State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/unifi-insights

package services

import (
	"context"
	"fmt"
)

// StartStopCoordinator matches the coordinator's lifecycle methods.
//
// Satisfied by *coordinator.Coordinator:
//   - Start(ctx context.Context) error
//   - Stop() error
type StartStopCoordinator interface {
	Start(ctx context.Context) error
	Stop() error
}

// CoordinatorService wraps the coordinator as a supervised service.
//
// It adapts the Start/Stop lifecycle pattern to suture's Serve pattern:
//  1. Calls Start(ctx) to begin the refresh loop and event stream
//  2. Waits for context cancellation
//  3. Calls Stop() for graceful shutdown
type CoordinatorService struct {
	coord StartStopCoordinator
	name  string
}

// NewCoordinatorService creates a new coordinator service wrapper.
//
// Example usage:
//
//	coord := coordinator.New(networkClient, protectClient, stream, cfg)
//	svc := services.NewCoordinatorService(coord)
//	tree.AddSyncService(svc)
func NewCoordinatorService(coord StartStopCoordinator) *CoordinatorService {
	return &CoordinatorService{
		coord: coord,
		name:  "coordinator",
	}
}

// Serve implements suture.Service.
//
// If Start() fails, the error is returned immediately, causing suture to
// restart the service according to its backoff policy.
func (s *CoordinatorService) Serve(ctx context.Context) error {
	// Start spawns the refresh loop but returns immediately.
	if err := s.coord.Start(ctx); err != nil {
		return fmt.Errorf("coordinator start failed: %w", err)
	}

	<-ctx.Done()

	// Stop blocks until the refresh loop has drained.
	if err := s.coord.Stop(); err != nil {
		return fmt.Errorf("coordinator stop failed: %w", err)
	}

	return ctx.Err()
}

// String implements fmt.Stringer for logging.
// Suture uses this to identify the service in log messages.
func (s *CoordinatorService) String() string {
	return s.name
}
