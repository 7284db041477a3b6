// UniFi Insights - UniFi Network and Protect State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/unifi-insights

// Package main is the entry point for the UniFi Insights server application.
//
// UniFi Insights is a self-hosted state synchronization service for UniFi
// Network and Protect controllers. It maintains an in-memory snapshot of
// sites, devices, clients, statistics, and Protect devices, refreshed on a
// fixed interval and updated in real time from the Protect event stream,
// and exposes the snapshot over a REST API with WebSocket push updates.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: Load settings from environment variables and config files (Koanf v2)
//  2. Network Client: UniFi Network API client with circuit breaker protection
//  3. Protect Client: UniFi Protect API client and event stream (optional)
//  4. Coordinator: Periodic refresh loop maintaining the state snapshot
//  5. WebSocket Hub: Real-time snapshot updates to connected clients
//  6. HTTP Server: REST API with health, state, and command endpoints
//
// All long-running components are managed by a suture v4 supervisor tree
// which restarts failed services with exponential backoff.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest priority wins):
//   - Environment variables (see .env.example)
//   - Config file (config.yaml)
//   - Built-in defaults
//
// Required settings:
//   - UNIFI_HOST: Controller URL (e.g., https://192.168.1.1)
//   - UNIFI_API_KEY: API key from the UniFi console
//
// Optional Protect integration:
//   - PROTECT_ENABLED=true (default: false)
//   - PROTECT_HOST: Protect controller URL (defaults to UNIFI_HOST)
//   - PROTECT_API_KEY: Protect API key (defaults to UNIFI_API_KEY)
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM:
//   - Stops accepting new connections
//   - Waits for in-flight requests to complete (configurable timeout)
//   - Stops the coordinator refresh loop and Protect event stream
//   - Closes WebSocket connections
//
// # Example Usage
//
// Network only:
//
//	export UNIFI_HOST=https://192.168.1.1
//	export UNIFI_API_KEY=your-api-key
//	./unifi-insights
//
// With Protect on the same console:
//
//	export UNIFI_HOST=https://192.168.1.1
//	export UNIFI_API_KEY=your-api-key
//	export PROTECT_ENABLED=true
//	./unifi-insights
//
// Docker:
//
//	docker run -d \
//	  -e UNIFI_HOST=https://192.168.1.1 \
//	  -e UNIFI_API_KEY=your-api-key \
//	  -p 8420:8420 \
//	  ghcr.io/tomtom215/unifi-insights
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/unifi-insights/internal/api"
	"github.com/tomtom215/unifi-insights/internal/config"
	"github.com/tomtom215/unifi-insights/internal/coordinator"
	"github.com/tomtom215/unifi-insights/internal/logging"
	"github.com/tomtom215/unifi-insights/internal/protect"
	"github.com/tomtom215/unifi-insights/internal/supervisor"
	"github.com/tomtom215/unifi-insights/internal/supervisor/services"
	"github.com/tomtom215/unifi-insights/internal/unifi"
	ws "github.com/tomtom215/unifi-insights/internal/websocket"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		// Use default logger for config errors (config not yet available)
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize zerolog with configuration
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Msg("Starting UniFi Insights with supervisor tree")

	logging.Info().
		Str("unifi_host", cfg.UniFi.Host).
		Bool("protect_enabled", cfg.Protect.Enabled).
		Dur("sync_interval", cfg.Sync.Interval).
		Msg("Configuration loaded")

	// Initialize Network API client with circuit breaker for fault tolerance.
	// The circuit breaker prevents cascading failures when the controller is
	// unreachable or overloaded.
	networkClient := unifi.NewCircuitBreakerClient(&cfg.UniFi)

	// Initialize Protect client and event stream (optional)
	var protectClient protect.ClientInterface
	var eventStream coordinator.EventStreamInterface
	if cfg.Protect.Enabled {
		protectClient = protect.NewClient(&cfg.Protect, cfg.ProtectHost(), cfg.ProtectAPIKey())
		eventStream = protect.NewEventStream(cfg.ProtectHost(), cfg.ProtectAPIKey(), cfg.Protect.VerifySSL)
		logging.Info().Str("protect_host", cfg.ProtectHost()).Msg("Protect integration enabled")
	} else {
		logging.Info().Msg("Protect integration disabled - Network state only")
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create structured logger for supervisor using our slog adapter.
	// This bridges zerolog to slog for sutureslog compatibility.
	slogLogger := logging.NewSlogLogger()

	// Create supervisor tree
	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	// Create WebSocket hub for real-time updates (before the coordinator,
	// which broadcasts through it after every refresh)
	wsHub := ws.NewHub()

	// Create the coordinator that owns the state snapshot
	coord := coordinator.New(networkClient, protectClient, eventStream, cfg)
	coord.AddListener(func() {
		snap := coord.Snapshot()
		wsHub.BroadcastSnapshotUpdate(snap.Available(), snap.LastUpdate(), snap.Counts())
	})

	handler := api.NewHandler(coord, networkClient, protectClient, wsHub, cfg)
	middleware := api.NewMiddleware(&api.MiddlewareConfig{
		CORSAllowedOrigins: cfg.Server.CORSOrigins,
		RateLimitRequests:  cfg.Server.RateLimitReqs,
		RateLimitWindow:    cfg.Server.RateLimitWindow,
	})
	router := api.NewRouter(handler, middleware)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	// === ADD SERVICES TO SUPERVISOR TREE ===

	tree.AddSyncService(services.NewCoordinatorService(coord))
	logging.Info().Msg("Coordinator added to supervisor tree")

	tree.AddMessagingService(services.NewWebSocketHubService(wsHub))
	logging.Info().Msg("WebSocket hub added to supervisor tree")

	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// === START SUPERVISOR TREE ===

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// Wait for supervisor to finish (either from signal or error)
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Wait for the error channel to close (supervisor finished)
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	// Report any services that failed to stop within timeout
	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}
