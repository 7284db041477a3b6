// UniFi Insights - UniFi Network and Protect State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/unifi-insights

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus Metrics Integration for Production Observability
// This package provides comprehensive instrumentation for:
// - Refresh cycle duration and outcomes
// - Per-resource fetch failures
// - Protect push event throughput
// - API endpoint latency and throughput
// - Circuit breakers on upstream controllers
// - WebSocket connections

var (
	// Refresh Cycle Metrics
	RefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "refresh_duration_seconds",
			Help:    "Duration of full refresh cycles in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}, // A cycle fans out dozens of controller calls
		},
	)

	RefreshCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refresh_cycles_total",
			Help: "Total number of refresh cycles by outcome",
		},
		[]string{"outcome"}, // "success", "auth", "connectivity", "unexpected"
	)

	RefreshLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "refresh_last_success_timestamp",
			Help: "Unix timestamp of the last successful refresh cycle",
		},
	)

	RefreshResourceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refresh_resource_failures_total",
			Help: "Total number of per-resource fetch failures contained within a cycle",
		},
		[]string{"resource"}, // "device_info", "device_stats", "clients", "protect_bootstrap"
	)

	SnapshotDevices = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "snapshot_devices",
			Help: "Current number of devices held in the snapshot by site",
		},
		[]string{"site"},
	)

	SnapshotClients = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "snapshot_clients",
			Help: "Current number of clients held in the snapshot by site",
		},
		[]string{"site"},
	)

	// Protect Push Metrics
	ProtectEventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "protect_events_received_total",
			Help: "Total number of Protect push events received by type",
		},
		[]string{"event_type"}, // "motion", "smartDetectZone", "ring", "device", "other"
	)

	ProtectEventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "protect_events_dropped_total",
			Help: "Total number of Protect push events dropped (unknown device or malformed payload)",
		},
	)

	ProtectReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "protect_stream_reconnects_total",
			Help: "Total number of Protect event stream reconnection attempts",
		},
	)

	ProtectStreamUp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "protect_stream_up",
			Help: "Whether the Protect event stream is currently connected (1=connected)",
		},
	)

	// Controller API Metrics
	ControllerRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "controller_request_duration_seconds",
			Help:    "Duration of upstream controller API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"subsystem", "operation"}, // subsystem: "network", "protect"
	)

	ControllerRequestErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "controller_request_errors_total",
			Help: "Total number of upstream controller API request errors",
		},
		[]string{"subsystem", "operation", "error_type"}, // error_type: "auth", "connectivity", "decode", "other"
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}, // Optimized for API latency
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSMessagesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_received_total",
			Help: "Total number of WebSocket messages received",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// RecordRefreshCycle records the outcome and duration of one refresh cycle.
func RecordRefreshCycle(duration time.Duration, outcome string) {
	RefreshDuration.Observe(duration.Seconds())
	RefreshCycles.WithLabelValues(outcome).Inc()
	if outcome == "success" {
		RefreshLastSuccess.Set(float64(time.Now().Unix()))
	}
}

// RecordResourceFailure records a per-resource fetch failure that was
// contained within a cycle rather than failing it.
func RecordResourceFailure(resource string) {
	RefreshResourceFailures.WithLabelValues(resource).Inc()
}

// RecordControllerRequest records an upstream controller API call.
func RecordControllerRequest(subsystem, operation string, duration time.Duration, errorType string) {
	ControllerRequestDuration.WithLabelValues(subsystem, operation).Observe(duration.Seconds())
	if errorType != "" {
		ControllerRequestErrors.WithLabelValues(subsystem, operation, errorType).Inc()
	}
}

// RecordProtectEvent records a received Protect push event.
func RecordProtectEvent(eventType string) {
	ProtectEventsReceived.WithLabelValues(eventType).Inc()
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
