// UniFi Insights - UniFi Network and Protect State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/unifi-insights

/*
Package services provides suture.Service wrappers for UniFi Insights components.

This package adapts existing application components to the suture v4 supervision
model, translating various lifecycle patterns (Start/Stop, RunWithContext,
ListenAndServe) into suture's context-aware Serve pattern.

# Overview

Each wrapper implements the suture.Service interface:

	type Service interface {
	    Serve(ctx context.Context) error
	}

The wrappers handle:
  - Lifecycle translation (Start/Stop to Serve pattern)
  - Graceful shutdown via context cancellation
  - Error propagation for supervisor restart decisions
  - Service identification via fmt.Stringer

# Available Services

Coordinator (CoordinatorService):
  - Wraps coordinator.Coordinator with Start/Stop lifecycle
  - Runs the periodic refresh loop and the Protect event stream
  - A start failure (bad API key, unreachable controller) triggers a
    supervised restart with backoff

WebSocket Hub (WebSocketHubService):
  - Wraps websocket.Hub's RunWithContext
  - Handles client connection cleanup on shutdown

HTTP Server (HTTPServerService):
  - Wraps *http.Server with graceful shutdown
  - Converts ListenAndServe pattern to Serve
  - Configurable shutdown timeout for draining connections

# Design Notes

Each wrapper accepts a small interface rather than the concrete type, so
the wrappers can be tested with mocks and the package stays free of
dependencies on the wrapped packages.

See Also:

  - internal/supervisor: the tree these services are added to
*/
package services
