// UniFi Insights - UniFi Network and Protect State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/unifi-insights

/*
Package supervisor provides process supervision for UniFi Insights using suture v4.

This package implements a hierarchical supervisor tree that manages the lifecycle
of all long-running services in the application. It provides Erlang/OTP-style
supervision with automatic restart, failure isolation, and graceful shutdown.

# Overview

The supervisor tree organizes services into three layers for failure isolation:

	RootSupervisor ("unifi-insights")
	├── SyncSupervisor ("sync-layer")
	│   └── CoordinatorService (refresh loop + Protect event stream)
	├── MessagingSupervisor ("messaging-layer")
	│   └── WebSocketHubService
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

This hierarchy ensures that:
  - A coordinator crash doesn't drop websocket connections
  - The API keeps serving the last good snapshot while sync restarts
  - Each layer has independent failure counting and backoff

# Key Features

Automatic Restart:
  - Crashed services are automatically restarted
  - Exponential backoff prevents restart storms
  - Configurable failure thresholds and decay rates

Graceful Shutdown:
  - Context cancellation triggers orderly shutdown
  - Configurable shutdown timeout per service
  - UnstoppedServiceReport for debugging hangs

Structured Logging:
  - Integration with slog for structured events
  - Logs service starts, stops, failures, and restarts
  - Event hooks via sutureslog adapter

# Usage Example

Basic setup in main.go:

	logger := logging.NewSlogLogger()
	tree, err := supervisor.NewSupervisorTree(logger, supervisor.DefaultTreeConfig())
	if err != nil {
	    log.Fatal(err)
	}

	tree.AddSyncService(services.NewCoordinatorService(coord))
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    log.Fatal(err)
	}

# Service Wrappers

The services subpackage adapts each component's native lifecycle to
suture's Serve(ctx) pattern:

  - CoordinatorService: Start/Stop lifecycle
  - WebSocketHubService: RunWithContext delegation
  - HTTPServerService: ListenAndServe plus graceful Shutdown

See Also:

  - internal/supervisor/services: the service wrappers
  - internal/logging: the slog adapter used for event hooks
*/
package supervisor
