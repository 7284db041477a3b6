// UniFi Insights - UniFi Network and Protect State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/unifi-insights

/*
websocket.go - Protect Push Update Feed Client

Persistent WebSocket connection to the controller's Protect update feed.
The feed delivers two message families: device-state replacements (a
full entity record for one of the recognized model kinds) and event
notifications (motion, smartDetectZone, ring, ...). Both are handed to
registered callbacks as raw payloads; interpretation belongs to the
coordinator.

The client owns its reconnect loop with exponential backoff (1s to 32s),
a keep-alive ping loop, and read deadlines. Start is idempotent.

WebSocket Endpoint: wss://{host}/proxy/protect/integration/v1/subscribe/events
*/

package protect

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/unifi-insights/internal/logging"
	"github.com/tomtom215/unifi-insights/internal/metrics"
	"github.com/tomtom215/unifi-insights/internal/models"
)

// DeviceCallback receives a device-state replacement: the model kind the
// payload claims plus the raw entity record.
type DeviceCallback func(modelKind string, payload json.RawMessage)

// EventCallback receives an event notification: the event type plus the
// raw event record.
type EventCallback func(eventType string, payload json.RawMessage)

// EventStream manages the WebSocket connection to the Protect update feed.
type EventStream struct {
	wsURL     string
	apiKey    string
	verifySSL bool

	// WebSocket connection
	conn   *websocket.Conn
	connMu sync.RWMutex

	// Lifecycle management
	started  bool
	startMu  sync.Mutex
	stopChan chan struct{}
	wg       sync.WaitGroup

	// Callbacks (protected by mutex)
	callbackMu sync.RWMutex
	onDevice   DeviceCallback
	onEvent    EventCallback
}

// streamMessage is the envelope every feed message arrives in.
type streamMessage struct {
	Type string          `json:"type"` // "add" | "update" | "event"
	Item json.RawMessage `json:"item,omitempty"`
}

// streamItem peeks at the identifying fields of a feed item.
type streamItem struct {
	ModelKey string `json:"modelKey,omitempty"`
	Type     string `json:"type,omitempty"`
}

// NewEventStream creates a Protect update feed client. host is the
// controller base URL (https://...); the ws scheme is derived from it.
func NewEventStream(host, apiKey string, verifySSL bool) *EventStream {
	wsURL := strings.TrimSuffix(host, "/")
	wsURL = strings.Replace(wsURL, "https://", "wss://", 1)
	wsURL = strings.Replace(wsURL, "http://", "ws://", 1)
	wsURL += basePath + "/v1/subscribe/events"

	return &EventStream{
		wsURL:     wsURL,
		apiKey:    apiKey,
		verifySSL: verifySSL,
		stopChan:  make(chan struct{}),
	}
}

// SetCallbacks registers the device-replace and event-notify callbacks.
// Registration is safe before or after Start.
func (s *EventStream) SetCallbacks(onDevice DeviceCallback, onEvent EventCallback) {
	s.callbackMu.Lock()
	defer s.callbackMu.Unlock()

	s.onDevice = onDevice
	s.onEvent = onEvent
}

// Start connects to the feed and launches the listener and ping loops.
// Calling Start on a running stream is a no-op.
func (s *EventStream) Start(ctx context.Context) error {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	if s.started {
		return nil
	}

	if err := s.connect(ctx); err != nil {
		return err
	}

	s.started = true
	s.wg.Add(2)
	go s.listen(ctx)
	go s.pingLoop(ctx)

	return nil
}

// connect dials the feed endpoint.
func (s *EventStream) connect(ctx context.Context) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.conn != nil {
		return nil // Already connected
	}

	logging.Info().Str("url", s.wsURL).Msg("[protect-ws] Connecting")

	dialer := websocket.Dialer{
		HandshakeTimeout:  10 * time.Second,
		EnableCompression: true,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: !s.verifySSL, //nolint:gosec // Self-signed controller certs are the norm
		},
	}

	header := http.Header{}
	header.Set("X-API-Key", s.apiKey)

	conn, resp, err := dialer.DialContext(ctx, s.wsURL, header)
	if err != nil {
		metrics.ProtectStreamUp.Set(0)
		if resp != nil {
			_ = resp.Body.Close()
			return fmt.Errorf("protect: websocket dial failed (status %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("protect: websocket dial failed: %w", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	s.conn = conn
	metrics.ProtectStreamUp.Set(1)
	logging.Info().Msg("[protect-ws] Connected successfully")
	return nil
}

// listen processes incoming feed messages and owns reconnection.
func (s *EventStream) listen(ctx context.Context) {
	defer s.wg.Done()

	reconnectDelay := 1 * time.Second
	maxReconnectDelay := 32 * time.Second

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("[protect-ws] Listener stopping (context canceled)")
			return
		case <-s.stopChan:
			logging.Info().Msg("[protect-ws] Listener stopping (stop signal)")
			return
		default:
			s.connMu.RLock()
			conn := s.conn
			s.connMu.RUnlock()

			if conn == nil {
				logging.Info().Dur("delay", reconnectDelay).Msg("[protect-ws] Connection lost, reconnecting...")
				select {
				case <-time.After(reconnectDelay):
					// Continue with reconnection
				case <-ctx.Done():
					return
				case <-s.stopChan:
					return
				}
				reconnectDelay *= 2
				if reconnectDelay > maxReconnectDelay {
					reconnectDelay = maxReconnectDelay
				}

				metrics.ProtectReconnects.Inc()
				if err := s.connect(ctx); err != nil {
					logging.Warn().Err(err).Msg("[protect-ws] Reconnection failed")
					continue
				}
				reconnectDelay = 1 * time.Second // Reset on success
				continue
			}

			if err := conn.SetReadDeadline(time.Now().Add(60 * time.Second)); err != nil {
				logging.Warn().Err(err).Msg("[protect-ws] Failed to set read deadline")
			}

			_, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logging.Info().Msg("[protect-ws] Connection closed normally")
				} else if ctx.Err() != nil {
					return
				} else {
					logging.Warn().Err(err).Msg("[protect-ws] Read error")
				}
				s.closeConnection()
				continue
			}

			reconnectDelay = 1 * time.Second // Reset on successful read
			s.handleMessage(message)
		}
	}
}

// handleMessage classifies one feed message and dispatches callbacks.
func (s *EventStream) handleMessage(data []byte) {
	var msg streamMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		logging.Warn().Err(err).Msg("[protect-ws] Failed to parse message")
		metrics.ProtectEventsDropped.Inc()
		return
	}

	var item streamItem
	if len(msg.Item) > 0 {
		if err := json.Unmarshal(msg.Item, &item); err != nil {
			logging.Warn().Err(err).Msg("[protect-ws] Failed to parse message item")
			metrics.ProtectEventsDropped.Inc()
			return
		}
	}

	s.callbackMu.RLock()
	onDevice := s.onDevice
	onEvent := s.onEvent
	s.callbackMu.RUnlock()

	switch msg.Type {
	case "add", "update":
		metrics.WSMessagesReceived.Inc()
		if item.ModelKey == "event" {
			// Events arrive as model updates on some firmware lines.
			metrics.RecordProtectEvent(eventMetricLabel(item.Type))
			if onEvent != nil {
				onEvent(item.Type, msg.Item)
			}
			return
		}
		metrics.RecordProtectEvent("device")
		if onDevice != nil {
			onDevice(item.ModelKey, msg.Item)
		}

	case "event":
		metrics.WSMessagesReceived.Inc()
		metrics.RecordProtectEvent(eventMetricLabel(item.Type))
		if onEvent != nil {
			onEvent(item.Type, msg.Item)
		}

	default:
		logging.Debug().Str("type", msg.Type).Msg("[protect-ws] Unknown message type")
	}
}

// eventMetricLabel keeps the event-type metric label set bounded.
func eventMetricLabel(eventType string) string {
	switch eventType {
	case models.EventTypeMotion, models.EventTypeSmartDetectZone, models.EventTypeRing:
		return eventType
	default:
		return "other"
	}
}

// pingLoop sends periodic keep-alive pings.
func (s *EventStream) pingLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.connMu.Lock()
			conn := s.conn
			var err error
			if conn != nil {
				err = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			}
			s.connMu.Unlock()

			if conn != nil && err != nil {
				logging.Warn().Err(err).Msg("[protect-ws] Keep-alive failed")
				s.closeConnection()
			}
		}
	}
}

// closeConnection safely closes the WebSocket connection.
func (s *EventStream) closeConnection() {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.conn != nil {
		_ = s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(1*time.Second),
		)
		if err := s.conn.Close(); err != nil {
			logging.Debug().Err(err).Msg("[protect-ws] Failed to close connection")
		}
		s.conn = nil
		metrics.ProtectStreamUp.Set(0)
	}
}

// Close gracefully shuts down the stream and waits for its goroutines.
func (s *EventStream) Close() {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	if !s.started {
		return
	}

	close(s.stopChan)
	s.closeConnection()
	s.wg.Wait()
	s.started = false
	s.stopChan = make(chan struct{})
}
