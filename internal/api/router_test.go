// UniFi Insights - UniFi Network and Protect State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/unifi-insights

package api

import (
	"net/http"
	"strings"
	"testing"
)

func TestRouterUnknownRoute(t *testing.T) {
	ts := newTestServer(t, testNetwork(), nil)

	rec := ts.do(t, http.MethodGet, "/api/v1/nonsense", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestRouterMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, testNetwork(), nil)

	rec := ts.do(t, http.MethodGet, "/api/v1/refresh", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /refresh status = %d, want 405", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, "/api/v1/sites", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /sites status = %d, want 405", rec.Code)
	}
}

func TestRouterMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, testNetwork(), nil)

	rec := ts.do(t, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("metrics exposition missing runtime collectors")
	}
}

func TestRouterWebSocketWithoutHub(t *testing.T) {
	ts := newTestServer(t, testNetwork(), nil)

	rec := ts.do(t, http.MethodGet, "/api/v1/ws", nil)
	assertErrorCode(t, rec, http.StatusServiceUnavailable, ErrCodeServiceUnavailable)
}

func TestRouterResponsesCarryRequestID(t *testing.T) {
	ts := newTestServer(t, testNetwork(), nil)

	rec := ts.do(t, http.MethodGet, "/api/v1/status", nil)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}

	env := decodeEnvelope(t, rec)
	if env.Meta == nil || env.Meta.RequestID == "" {
		t.Error("meta request_id missing")
	}
	if env.Meta.RequestID != rec.Header().Get("X-Request-ID") {
		t.Error("meta request_id does not match header")
	}
}

func TestRouterSecurityHeadersApplied(t *testing.T) {
	ts := newTestServer(t, testNetwork(), nil)

	rec := ts.do(t, http.MethodGet, "/api/v1/health", nil)
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers not applied to API routes")
	}
}
