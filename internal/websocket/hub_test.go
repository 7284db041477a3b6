// UniFi Insights - UniFi Network and Protect State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/unifi-insights

package websocket

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/unifi-insights/internal/logging"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "info",
		Format: "console",
		Output: io.Discard,
	})
}

// setupHub creates a hub, starts its run loop, and stops it when the
// test finishes.
func setupHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.RunWithContext(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	time.Sleep(10 * time.Millisecond)
	return hub
}

// createTestClient creates a client without a live connection
func createTestClient(hub *Hub) *Client {
	return NewClient(hub, nil)
}

// registerClient registers a client and waits for registration to complete
func registerClient(hub *Hub, client *Client) {
	hub.Register <- client
	time.Sleep(20 * time.Millisecond)
}

func TestNewHub(t *testing.T) {
	hub := NewHub()

	if hub == nil {
		t.Fatal("NewHub returned nil")
	}

	checks := []struct {
		name   string
		check  bool
		errMsg string
	}{
		{"clients map", hub.clients != nil, "clients map not initialized"},
		{"broadcast channel", hub.broadcast != nil, "broadcast channel not initialized"},
		{"Register channel", hub.Register != nil, "Register channel not initialized"},
		{"Unregister channel", hub.Unregister != nil, "Unregister channel not initialized"},
		{"empty clients", len(hub.clients) == 0, "clients map should be empty"},
	}

	for _, c := range checks {
		if !c.check {
			t.Error(c.errMsg)
		}
	}
}

func TestHub_GetClientCount(t *testing.T) {
	hub := NewHub()

	if hub.GetClientCount() != 0 {
		t.Errorf("Expected 0 clients initially, got %d", hub.GetClientCount())
	}

	for i := 0; i < 5; i++ {
		hub.clients[createTestClient(hub)] = true
	}

	if hub.GetClientCount() != 5 {
		t.Errorf("Expected 5 clients, got %d", hub.GetClientCount())
	}
}

func TestHub_ClientRegistration(t *testing.T) {
	hub := setupHub(t)
	client := createTestClient(hub)
	registerClient(hub, client)

	if hub.GetClientCount() != 1 {
		t.Errorf("Expected 1 client, got %d", hub.GetClientCount())
	}

	hub.mu.RLock()
	if !hub.clients[client] {
		t.Error("Client should be registered")
	}
	hub.mu.RUnlock()

	hub.Unregister <- client
	time.Sleep(20 * time.Millisecond)

	if hub.GetClientCount() != 0 {
		t.Errorf("Expected 0 clients after unregister, got %d", hub.GetClientCount())
	}
}

func TestHub_UnregisterNonExistentClient(t *testing.T) {
	hub := setupHub(t)
	client := createTestClient(hub)

	hub.Unregister <- client
	time.Sleep(20 * time.Millisecond)

	if hub.GetClientCount() != 0 {
		t.Errorf("Expected 0 clients, got %d", hub.GetClientCount())
	}
}

func TestHub_BroadcastToClients(t *testing.T) {
	hub := setupHub(t)

	const numClients = 3
	clients := make([]*Client, numClients)
	var mu sync.Mutex
	received := make([]bool, numClients)
	var wg sync.WaitGroup

	for i := 0; i < numClients; i++ {
		clients[i] = createTestClient(hub)
		registerClient(hub, clients[i])
	}

	if hub.GetClientCount() != numClients {
		t.Fatalf("Expected %d clients, got %d", numClients, hub.GetClientCount())
	}

	for i := 0; i < numClients; i++ {
		wg.Add(1)
		go func(idx int, c *Client) {
			defer wg.Done()
			select {
			case msg := <-c.send:
				if msg.Type == "test_broadcast" {
					mu.Lock()
					received[idx] = true
					mu.Unlock()
				}
			case <-time.After(500 * time.Millisecond):
			}
		}(i, clients[i])
	}

	time.Sleep(20 * time.Millisecond)
	hub.BroadcastJSON("test_broadcast", map[string]string{"message": "hello"})
	wg.Wait()

	mu.Lock()
	for i, r := range received {
		if !r {
			t.Errorf("Client %d did not receive broadcast", i)
		}
	}
	mu.Unlock()
}

func TestHub_BroadcastSnapshotUpdate(t *testing.T) {
	t.Run("carries availability and counts", func(t *testing.T) {
		hub := setupHub(t)
		client := createTestClient(hub)
		registerClient(hub, client)

		lastUpdate := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
		hub.BroadcastSnapshotUpdate(true, lastUpdate, map[string]int{"devices": 4, "clients": 12})

		select {
		case msg := <-client.send:
			if msg.Type != MessageTypeSnapshotUpdate {
				t.Errorf("Type = %q, want %q", msg.Type, MessageTypeSnapshotUpdate)
			}
			data, ok := msg.Data.(SnapshotUpdateData)
			if !ok {
				t.Fatalf("Expected SnapshotUpdateData, got %T", msg.Data)
			}
			if !data.Available {
				t.Error("Expected available=true")
			}
			if data.LastUpdate != "2026-08-30T12:00:00Z" {
				t.Errorf("LastUpdate = %q, want %q", data.LastUpdate, "2026-08-30T12:00:00Z")
			}
			if data.Counts["devices"] != 4 || data.Counts["clients"] != 12 {
				t.Errorf("Counts = %v", data.Counts)
			}
			if data.Timestamp == "" {
				t.Error("Expected non-empty timestamp")
			}
		case <-time.After(100 * time.Millisecond):
			t.Error("Timeout waiting for snapshot_update")
		}
	})

	t.Run("omits zero last update", func(t *testing.T) {
		hub := setupHub(t)
		client := createTestClient(hub)
		registerClient(hub, client)

		hub.BroadcastSnapshotUpdate(false, time.Time{}, nil)

		select {
		case msg := <-client.send:
			data, ok := msg.Data.(SnapshotUpdateData)
			if !ok {
				t.Fatalf("Expected SnapshotUpdateData, got %T", msg.Data)
			}
			if data.Available {
				t.Error("Expected available=false")
			}
			if data.LastUpdate != "" {
				t.Errorf("Expected empty LastUpdate, got %q", data.LastUpdate)
			}
		case <-time.After(100 * time.Millisecond):
			t.Error("Timeout waiting for snapshot_update")
		}
	})
}

func TestHub_MessageTypes(t *testing.T) {
	expected := map[string]string{
		MessageTypePing:            "ping",
		MessageTypePong:            "pong",
		MessageTypeSnapshotUpdate:  "snapshot_update",
		MessageTypeRefreshComplete: "refresh_completed",
		MessageTypeProtectEvent:    "protect_event",
	}

	for got, want := range expected {
		if got != want {
			t.Errorf("Message type = %q, want %q", got, want)
		}
	}
}

func TestHub_ChannelFullBehavior(t *testing.T) {
	tests := []struct {
		name      string
		broadcast func(*Hub)
	}{
		{"BroadcastSnapshotUpdate", func(h *Hub) { h.BroadcastSnapshotUpdate(true, time.Now(), nil) }},
		{"BroadcastJSON", func(h *Hub) { h.BroadcastJSON("test", map[string]string{"test": "data"}) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub := NewHub() // Don't start the run loop so the channel fills

			for i := 0; i < 256; i++ {
				tt.broadcast(hub)
			}
			tt.broadcast(hub) // Should hit the default case and not block
		})
	}
}

// TestHub_BroadcastToFullClient tests broadcasting when a client's send channel is full
func TestHub_BroadcastToFullClient(t *testing.T) {
	hub := setupHub(t)

	// Tiny buffer that will fill up
	client := &Client{id: clientIDCounter.Add(1), hub: hub, conn: nil, send: make(chan Message, 1)}
	registerClient(hub, client)

	client.send <- Message{Type: "filler", Data: nil}

	// The full send channel forces the hub to drop the client
	hub.BroadcastJSON("test_overflow", map[string]string{"overflow": "test"})

	var clientCount int
	for i := 0; i < 10; i++ {
		time.Sleep(20 * time.Millisecond)
		clientCount = hub.GetClientCount()
		if clientCount == 0 {
			break
		}
	}

	if clientCount != 0 {
		t.Errorf("Expected 0 clients after overflow handling, got %d", clientCount)
	}
}

func TestHub_RunWithContext(t *testing.T) {
	t.Run("shuts down on context cancellation", func(t *testing.T) {
		hub := NewHub()
		ctx, cancel := context.WithCancel(context.Background())

		errCh := make(chan error, 1)
		go func() {
			errCh <- hub.RunWithContext(ctx)
		}()

		time.Sleep(20 * time.Millisecond)
		cancel()

		select {
		case err := <-errCh:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled, got %v", err)
			}
		case <-time.After(time.Second):
			t.Error("RunWithContext did not return after context cancellation")
		}
	})

	t.Run("shuts down on context deadline", func(t *testing.T) {
		hub := NewHub()
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		errCh := make(chan error, 1)
		go func() {
			errCh <- hub.RunWithContext(ctx)
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, context.DeadlineExceeded) {
				t.Errorf("expected context.DeadlineExceeded, got %v", err)
			}
		case <-time.After(time.Second):
			t.Error("RunWithContext did not return after deadline")
		}
	})

	t.Run("closes all clients on shutdown", func(t *testing.T) {
		hub := NewHub()
		ctx, cancel := context.WithCancel(context.Background())

		errCh := make(chan error, 1)
		go func() {
			errCh <- hub.RunWithContext(ctx)
		}()

		clients := make([]*Client, 3)
		for i := 0; i < 3; i++ {
			clients[i] = createTestClient(hub)
			hub.Register <- clients[i]
		}

		var clientCount int
		for i := 0; i < 10; i++ {
			time.Sleep(20 * time.Millisecond)
			clientCount = hub.GetClientCount()
			if clientCount == 3 {
				break
			}
		}

		if clientCount != 3 {
			t.Fatalf("expected 3 clients, got %d", clientCount)
		}

		cancel()

		select {
		case <-errCh:
		case <-time.After(time.Second):
			t.Fatal("RunWithContext did not return after context cancellation")
		}

		if hub.GetClientCount() != 0 {
			t.Errorf("expected 0 clients after shutdown, got %d", hub.GetClientCount())
		}
	})

	t.Run("handles messages before shutdown", func(t *testing.T) {
		hub := NewHub()
		ctx, cancel := context.WithCancel(context.Background())

		errCh := make(chan error, 1)
		go func() {
			errCh <- hub.RunWithContext(ctx)
		}()

		client := createTestClient(hub)
		hub.Register <- client
		time.Sleep(20 * time.Millisecond)

		hub.BroadcastJSON("test_message", map[string]string{"key": "value"})

		select {
		case msg := <-client.send:
			if msg.Type != "test_message" {
				t.Errorf("expected message type 'test_message', got %q", msg.Type)
			}
		case <-time.After(100 * time.Millisecond):
			t.Error("did not receive message")
		}

		cancel()
		<-errCh
	})
}

func TestHub_ConcurrentOperations(t *testing.T) {
	hub := setupHub(t)
	done := make(chan bool)

	go func() {
		for i := 0; i < 10; i++ {
			registerClient(hub, createTestClient(hub))
		}
		done <- true
	}()

	go func() {
		for i := 0; i < 20; i++ {
			hub.BroadcastJSON("test", map[string]int{"i": i})
			time.Sleep(2 * time.Millisecond)
		}
		done <- true
	}()

	go func() {
		for i := 0; i < 50; i++ {
			hub.GetClientCount()
			time.Sleep(1 * time.Millisecond)
		}
		done <- true
	}()

	for i := 0; i < 3; i++ {
		<-done
	}
	time.Sleep(100 * time.Millisecond)

	if hub.GetClientCount() != 10 {
		t.Errorf("Expected 10 clients, got %d", hub.GetClientCount())
	}
}

func BenchmarkHub_BroadcastJSON(b *testing.B) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = hub.RunWithContext(ctx) }()
	time.Sleep(10 * time.Millisecond)

	for i := 0; i < 10; i++ {
		client := createTestClient(hub)
		hub.Register <- client
		go func(c *Client) {
			for range c.send {
			}
		}(client)
	}

	time.Sleep(100 * time.Millisecond)

	testData := map[string]interface{}{"test": "data", "count": 42}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		hub.BroadcastJSON("test", testData)
	}
}
