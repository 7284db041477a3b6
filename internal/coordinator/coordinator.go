// UniFi Insights - UniFi Network and Protect State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/unifi-insights

/*
coordinator.go - State Synchronization Coordinator

The Coordinator owns the Snapshot and is the only component that mutates
it. It merges two sources:

  - a scheduled pull refresh of the Network resource hierarchy plus a
    Protect bulk pass (refresh.go), and
  - the asynchronous Protect push feed (events.go).

Refresh cycles are serialized: a tick or manual trigger that fires while
a cycle is running queues behind it, never alongside it. Registered
listeners are notified synchronously after every mutation batch; a
panicking listener is recovered and logged without affecting the others.
*/

package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/unifi-insights/internal/config"
	"github.com/tomtom215/unifi-insights/internal/logging"
	"github.com/tomtom215/unifi-insights/internal/protect"
	"github.com/tomtom215/unifi-insights/internal/unifi"
)

// Listener receives a notification after each snapshot mutation batch.
type Listener func()

// EventStreamInterface is the push feed surface the coordinator needs.
// Implemented by protect.EventStream.
type EventStreamInterface interface {
	SetCallbacks(onDevice protect.DeviceCallback, onEvent protect.EventCallback)
	Start(ctx context.Context) error
	Close()
}

// Coordinator orchestrates pull refresh and push merge into the Snapshot.
type Coordinator struct {
	network unifi.NetworkClientInterface
	protect protect.ClientInterface // nil when the Protect subsystem is disabled
	stream  EventStreamInterface    // nil when the Protect subsystem is disabled
	cfg     *config.Config
	snap    *Snapshot

	running  bool
	mu       sync.RWMutex
	cycleMu  sync.Mutex // Serializes refresh cycles
	stopChan chan struct{}
	wg       sync.WaitGroup

	listenerMu sync.RWMutex
	listeners  map[string]Listener
}

// New creates a Coordinator. protectClient and stream may be nil when
// the Protect subsystem is disabled.
func New(network unifi.NetworkClientInterface, protectClient protect.ClientInterface, stream EventStreamInterface, cfg *config.Config) *Coordinator {
	c := &Coordinator{
		network:   network,
		protect:   protectClient,
		stream:    stream,
		cfg:       cfg,
		snap:      NewSnapshot(),
		stopChan:  make(chan struct{}),
		listeners: make(map[string]Listener),
	}

	if stream != nil {
		stream.SetCallbacks(c.onDeviceReplace, c.onEventNotify)
	}

	return c
}

// Snapshot returns the state store for read access.
func (c *Coordinator) Snapshot() *Snapshot {
	return c.snap
}

// Start runs an initial refresh in the background and begins the
// periodic refresh loop.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("coordinator is already running")
	}
	c.running = true
	c.mu.Unlock()

	logging.Info().Dur("interval", c.cfg.Sync.Interval).Msg("Starting coordinator...")

	c.wg.Add(2)

	// Initial refresh in background to avoid blocking server startup
	go func() {
		defer c.wg.Done()
		if err := c.Refresh(ctx, ""); err != nil {
			logging.Warn().Err(err).Msg("Initial refresh failed (will retry)")
		}
	}()

	go c.refreshLoop(ctx)

	return nil
}

// Stop gracefully stops the coordinator and the push feed.
func (c *Coordinator) Stop() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return fmt.Errorf("coordinator is not running")
	}
	c.running = false
	c.mu.Unlock()

	logging.Info().Msg("Stopping coordinator...")

	if c.stream != nil {
		c.stream.Close()
	}

	close(c.stopChan)
	c.wg.Wait()
	logging.Info().Msg("Coordinator stopped")

	return nil
}

// refreshLoop runs scheduled refresh cycles until stopped.
func (c *Coordinator) refreshLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.Sync.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopChan:
			return
		case <-ticker.C:
			if err := c.Refresh(ctx, ""); err != nil {
				logging.Warn().Err(err).Msg("Scheduled refresh failed")
			}
		}
	}
}

// AddListener registers a snapshot-change listener and returns its
// removal token.
func (c *Coordinator) AddListener(fn Listener) string {
	c.listenerMu.Lock()
	defer c.listenerMu.Unlock()

	id := uuid.NewString()
	c.listeners[id] = fn
	return id
}

// RemoveListener unregisters a listener by token.
func (c *Coordinator) RemoveListener(id string) {
	c.listenerMu.Lock()
	defer c.listenerMu.Unlock()
	delete(c.listeners, id)
}

// notifyListeners invokes all listeners synchronously. A panic in one
// listener is recovered so the rest still run.
func (c *Coordinator) notifyListeners() {
	c.listenerMu.RLock()
	listeners := make([]Listener, 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.listenerMu.RUnlock()

	for _, fn := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logging.Error().Interface("panic", r).Msg("Snapshot listener panicked")
				}
			}()
			fn()
		}()
	}
}
