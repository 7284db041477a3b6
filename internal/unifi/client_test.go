// UniFi Insights - UniFi Network and Protect State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/unifi-insights

package unifi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tomtom215/unifi-insights/internal/config"
)

// newTestClient builds a Client pointed at a httptest server.
func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.UniFiConfig{
		Host:              srv.URL,
		APIKey:            "test-key",
		Timeout:           5 * time.Second,
		RequestsPerSecond: 0, // unlimited in tests
	}
	return NewClient(cfg), srv
}

func TestGetSitesDecodesDataEnvelope(t *testing.T) {
	var gotPath, gotKey string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-API-Key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"offset":0,"limit":25,"count":2,"totalCount":2,"data":[
			{"id":"site-1","name":"default"},
			{"id":"site-2","name":"branch"}
		]}`))
	}))

	sites, err := client.GetSites(context.Background())
	if err != nil {
		t.Fatalf("GetSites failed: %v", err)
	}

	if gotPath != "/proxy/network/integration/v1/sites" {
		t.Errorf("request path = %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("X-API-Key = %q, want test-key", gotKey)
	}
	if len(sites) != 2 || sites[0].ID != "site-1" || sites[1].Name != "branch" {
		t.Errorf("unexpected sites: %+v", sites)
	}
}

func TestAuthStatusCodesReturnErrAuth(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(status)
			}))

			_, err := client.GetSites(context.Background())
			if !errors.Is(err, ErrAuth) {
				t.Errorf("status %d: error = %v, want ErrAuth", status, err)
			}
		})
	}
}

func TestServerErrorReturnsErrConnection(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := client.GetDevices(context.Background(), "site-1")
	if !errors.Is(err, ErrConnection) {
		t.Errorf("error = %v, want ErrConnection", err)
	}
}

func TestUnreachableControllerReturnsErrConnection(t *testing.T) {
	client, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	srv.Close()

	_, err := client.GetSites(context.Background())
	if !errors.Is(err, ErrConnection) {
		t.Errorf("error = %v, want ErrConnection", err)
	}
}

func TestGetDeviceStatsDecodesLatest(t *testing.T) {
	var gotPath string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"uptimeSec": 86400,
			"cpuUtilizationPct": 12.5,
			"memoryUtilizationPct": 40.0,
			"uplink": {"txRateBps": 1000, "rxRateBps": 2000}
		}`))
	}))

	stats, err := client.GetDeviceStats(context.Background(), "site-1", "dev-1")
	if err != nil {
		t.Fatalf("GetDeviceStats failed: %v", err)
	}

	if gotPath != "/proxy/network/integration/v1/sites/site-1/devices/dev-1/statistics/latest" {
		t.Errorf("request path = %q", gotPath)
	}
	if stats.UptimeSec != 86400 || stats.CPUUtilizationPct != 12.5 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.Uplink == nil || stats.Uplink.TxRateBps != 1000 {
		t.Errorf("unexpected uplink: %+v", stats.Uplink)
	}
	if stats.ID != "" {
		t.Errorf("stats ID should not be set by the client, got %q", stats.ID)
	}
}

func TestRestartDevicePostsAction(t *testing.T) {
	var gotMethod, gotPath, gotBody string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))

	if err := client.RestartDevice(context.Background(), "site-1", "dev-1"); err != nil {
		t.Fatalf("RestartDevice failed: %v", err)
	}

	if gotMethod != http.MethodPost {
		t.Errorf("method = %q, want POST", gotMethod)
	}
	if gotPath != "/proxy/network/integration/v1/sites/site-1/devices/dev-1/actions" {
		t.Errorf("request path = %q", gotPath)
	}
	if gotBody != `{"action":"RESTART"}` {
		t.Errorf("body = %q", gotBody)
	}
}

func TestPowerCyclePortPostsAction(t *testing.T) {
	var gotPath, gotBody string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))

	if err := client.PowerCyclePort(context.Background(), "site-1", "dev-1", 4); err != nil {
		t.Fatalf("PowerCyclePort failed: %v", err)
	}

	if gotPath != "/proxy/network/integration/v1/sites/site-1/devices/dev-1/interfaces/ports/4/actions" {
		t.Errorf("request path = %q", gotPath)
	}
	if gotBody != `{"action":"POWER_CYCLE"}` {
		t.Errorf("body = %q", gotBody)
	}
}

func TestGetClientsEmptyData(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"offset":0,"limit":25,"count":0,"totalCount":0,"data":[]}`))
	}))

	clients, err := client.GetClients(context.Background(), "site-1")
	if err != nil {
		t.Fatalf("GetClients failed: %v", err)
	}
	if len(clients) != 0 {
		t.Errorf("expected empty client list, got %+v", clients)
	}
}

func TestErrorTypeClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"auth", authError("sites", 401), "auth"},
		{"connectivity", connectionError("sites", errors.New("refused")), "connectivity"},
		{"other", errors.New("boom"), "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorType(tt.err); got != tt.want {
				t.Errorf("ErrorType(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}
