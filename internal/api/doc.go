// UniFi Insights - UniFi Network and Protect State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/unifi-insights

/*
Package api provides the HTTP REST API layer for UniFi Insights.

Every read endpoint serves from the coordinator's in-memory snapshot and
never calls the controllers, so reads are fast and keep working while an
upstream controller is down. Command endpoints forward to the Network or
Protect client directly and report upstream failures as 502 responses.

Key Components:

  - Router: chi route tree with per-route middleware chains
  - Handler: request handlers backed by the coordinator snapshot
  - Response formatting: standardized JSON envelope with request metadata
  - Middleware: CORS, rate limiting, security headers, Prometheus metrics
  - Validation: request body validation via go-playground/validator

API Categories:

1. Health and status (/api/v1/health, /api/v1/status):
  - Liveness and readiness probes for orchestrators
  - Snapshot availability, entity counts, connected websocket clients

2. Network state (/api/v1/sites/...):
  - Sites, devices, device statistics, clients
  - Device restart and PoE port power-cycle commands

3. Protect state (/api/v1/protect/...):
  - Cameras, lights, sensors, NVRs, viewers, chimes, recent events
  - Camera, light, and chime commands (recording mode, PTZ, ringtones)

4. Refresh (/api/v1/refresh):
  - Triggers a full or site-scoped refresh cycle in the background

5. WebSocket (/api/v1/ws):
  - Snapshot update and Protect event broadcasts

Usage Example:

	handler := api.NewHandler(coord, networkClient, protectClient, hub, cfg)
	middleware := api.NewMiddleware(&api.MiddlewareConfig{
	    CORSAllowedOrigins: cfg.Server.CORSOrigins,
	    RateLimitRequests:  cfg.Server.RateLimitReqs,
	    RateLimitWindow:    cfg.Server.RateLimitWindow,
	})
	router := api.NewRouter(handler, middleware)
	http.ListenAndServe(":8080", router.Setup())

Thread Safety:

All handlers are safe for concurrent use. Snapshot reads go through the
coordinator's read-locked accessors; command handlers hold no shared
state beyond the controller clients, which synchronize internally.

See Also:

  - internal/coordinator: refresh cycles and snapshot management
  - internal/unifi: Network controller client
  - internal/protect: Protect controller client and event stream
  - internal/websocket: broadcast hub
*/
package api
