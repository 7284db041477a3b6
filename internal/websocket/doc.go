// UniFi Insights - UniFi Network and Protect State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/unifi-insights

/*
Package websocket provides real-time push of snapshot changes to frontend clients.

This package implements WebSocket support for broadcasting snapshot updates,
refresh completion events, and Protect event notifications to connected
clients. It uses the gorilla/websocket library with a hub-client architecture
for efficient message broadcasting.

Key Components:

  - Hub: Central message broker that manages client connections and broadcasts
  - Client: Represents a single WebSocket connection with read/write goroutines
  - Message: Typed message structure for different event types

Each client has two goroutines:
  - readPump: Reads from WebSocket, handles pings
  - writePump: Writes to WebSocket, sends pings on an interval

Message Types:

  - snapshot_update: The in-memory snapshot changed (available, last_update, counts)
  - refresh_completed: A refresh cycle finished
  - protect_event: A Protect push event was received
  - ping/pong: Application-level keepalive initiated by the client

Usage:

	hub := websocket.NewHub()
	go hub.RunWithContext(ctx)

	http.HandleFunc("/api/v1/ws", func(w http.ResponseWriter, r *http.Request) {
	    websocket.ServeWS(hub, w, r)
	})

	hub.BroadcastSnapshotUpdate(true, lastUpdate, counts)

Connection Lifecycle:

 1. Client connects via HTTP upgrade
 2. Hub registers client
 3. Client starts read/write goroutines
 4. Hub broadcasts messages to all clients
 5. Client disconnects (network error or explicit close)
 6. Hub unregisters client and cleans up

Thread Safety:

The hub guards its client map with a mutex; channels coordinate goroutine
communication; each client has separate read and write goroutines.

Timing:

  - writeWait: 10 seconds (time allowed to write a message)
  - pongWait: 60 seconds (time allowed to read the next pong)
  - pingPeriod: 54 seconds (ping interval, must be < pongWait)
  - maxMessageSize: 64 KB (clients only send small control messages)

See Also:

  - github.com/gorilla/websocket: Underlying WebSocket library
  - internal/api: WebSocket endpoint handler
  - internal/coordinator: Snapshot update broadcasts
*/
package websocket
