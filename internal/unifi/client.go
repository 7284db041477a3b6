// UniFi Insights - UniFi Network and Protect State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/unifi-insights

/*
client.go - UniFi Network Integration API Client

This file implements a REST client for the Network Integration API
exposed by UniFi controllers under /proxy/network/integration. It
provides methods to list sites, devices, clients, and per-device
statistics, and to issue device actions (restart, port power-cycle).

All requests carry the X-API-Key header. The controller serializes
poorly under concurrent load, so the client funnels requests through a
single-in-flight lock plus a token-bucket rate limiter.

API Reference: https://developer.ui.com/unifi-api/
*/

package unifi

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/unifi-insights/internal/config"
	"github.com/tomtom215/unifi-insights/internal/metrics"
	"github.com/tomtom215/unifi-insights/internal/models"
)

// NetworkClientInterface defines the interface for Network API operations.
// Both Client and CircuitBreakerClient implement this interface.
type NetworkClientInterface interface {
	ValidateAPIKey(ctx context.Context) error
	GetSites(ctx context.Context) ([]models.Site, error)
	GetDevices(ctx context.Context, siteID string) ([]models.Device, error)
	GetDeviceInfo(ctx context.Context, siteID, deviceID string) (*models.DeviceInfo, error)
	GetDeviceStats(ctx context.Context, siteID, deviceID string) (*models.DeviceStats, error)
	GetClients(ctx context.Context, siteID string) ([]models.Client, error)
	RestartDevice(ctx context.Context, siteID, deviceID string) error
	PowerCyclePort(ctx context.Context, siteID, deviceID string, portIdx int) error
}

// Ensure Client implements NetworkClientInterface
var _ NetworkClientInterface = (*Client)(nil)

// basePath is where the controller proxies the Network Integration API.
const basePath = "/proxy/network/integration"

// Client provides access to the Network Integration API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	gate       chan struct{} // single-in-flight request gate
}

// listResponse is the envelope the Integration API wraps collections in.
type listResponse[T any] struct {
	Offset     int `json:"offset"`
	Limit      int `json:"limit"`
	Count      int `json:"count"`
	TotalCount int `json:"totalCount"`
	Data       []T `json:"data"`
}

// actionRequest is the body for device and port action endpoints.
type actionRequest struct {
	Action string `json:"action"`
}

// NewClient creates a Network Integration API client.
//
// Controllers ship self-signed certificates, so TLS verification is
// governed by cfg.VerifySSL rather than always on.
func NewClient(cfg *config.UniFiConfig) *Client {
	baseURL := strings.TrimSuffix(cfg.Host, "/")

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: !cfg.VerifySSL, //nolint:gosec // Self-signed controller certs are the norm
		},
	}

	rps := cfg.RequestsPerSecond
	limiter := rate.NewLimiter(rate.Inf, 1)
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		limiter: limiter,
		gate:    make(chan struct{}, 1),
	}
}

// ValidateAPIKey verifies the configured credentials by listing sites.
func (c *Client) ValidateAPIKey(ctx context.Context) error {
	_, err := c.GetSites(ctx)
	return err
}

// GetSites retrieves the authoritative site list.
func (c *Client) GetSites(ctx context.Context) ([]models.Site, error) {
	return getList[models.Site](ctx, c, "sites", "/v1/sites")
}

// GetDevices retrieves the base device listing for a site.
func (c *Client) GetDevices(ctx context.Context, siteID string) ([]models.Device, error) {
	endpoint := fmt.Sprintf("/v1/sites/%s/devices", url.PathEscape(siteID))
	return getList[models.Device](ctx, c, "devices", endpoint)
}

// GetDeviceInfo retrieves the supplementary detail object for one device.
func (c *Client) GetDeviceInfo(ctx context.Context, siteID, deviceID string) (*models.DeviceInfo, error) {
	endpoint := fmt.Sprintf("/v1/sites/%s/devices/%s", url.PathEscape(siteID), url.PathEscape(deviceID))
	return getObject[models.DeviceInfo](ctx, c, "device_info", endpoint)
}

// GetDeviceStats retrieves the latest statistics reading for one device.
// The returned stats do not carry an ID or client list; the caller
// derives both.
func (c *Client) GetDeviceStats(ctx context.Context, siteID, deviceID string) (*models.DeviceStats, error) {
	endpoint := fmt.Sprintf("/v1/sites/%s/devices/%s/statistics/latest", url.PathEscape(siteID), url.PathEscape(deviceID))
	return getObject[models.DeviceStats](ctx, c, "device_stats", endpoint)
}

// GetClients retrieves all connected clients for a site.
func (c *Client) GetClients(ctx context.Context, siteID string) ([]models.Client, error) {
	endpoint := fmt.Sprintf("/v1/sites/%s/clients", url.PathEscape(siteID))
	return getList[models.Client](ctx, c, "clients", endpoint)
}

// RestartDevice asks the controller to restart a device.
func (c *Client) RestartDevice(ctx context.Context, siteID, deviceID string) error {
	endpoint := fmt.Sprintf("/v1/sites/%s/devices/%s/actions", url.PathEscape(siteID), url.PathEscape(deviceID))
	return c.postAction(ctx, "restart_device", endpoint, actionRequest{Action: "RESTART"})
}

// PowerCyclePort power-cycles a PoE port on a device.
func (c *Client) PowerCyclePort(ctx context.Context, siteID, deviceID string, portIdx int) error {
	endpoint := fmt.Sprintf("/v1/sites/%s/devices/%s/interfaces/ports/%d/actions",
		url.PathEscape(siteID), url.PathEscape(deviceID), portIdx)
	return c.postAction(ctx, "power_cycle_port", endpoint, actionRequest{Action: "POWER_CYCLE"})
}

// getList fetches an endpoint and unwraps the {"data": [...]} envelope.
func getList[T any](ctx context.Context, c *Client, operation, endpoint string) ([]T, error) {
	body, err := c.doRequest(ctx, operation, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var wrapped listResponse[T]
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("unifi: failed to decode %s response: %w", operation, err)
	}
	return wrapped.Data, nil
}

// getObject fetches an endpoint returning a single unwrapped object.
func getObject[T any](ctx context.Context, c *Client, operation, endpoint string) (*T, error) {
	body, err := c.doRequest(ctx, operation, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	obj := new(T)
	if err := json.Unmarshal(body, obj); err != nil {
		return nil, fmt.Errorf("unifi: failed to decode %s response: %w", operation, err)
	}
	return obj, nil
}

// postAction submits a device action and discards the response body.
func (c *Client) postAction(ctx context.Context, operation, endpoint string, action actionRequest) error {
	payload, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("unifi: failed to encode %s request: %w", operation, err)
	}
	_, err = c.doRequest(ctx, operation, http.MethodPost, endpoint, payload)
	return err
}

// doRequest performs one API call behind the request gate and rate
// limiter, classifies the response status, and returns the raw body.
func (c *Client) doRequest(ctx context.Context, operation, method, endpoint string, payload []byte) ([]byte, error) {
	select {
	case c.gate <- struct{}{}:
		defer func() { <-c.gate }()
	case <-ctx.Done():
		return nil, connectionError(operation, ctx.Err())
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, connectionError(operation, err)
	}

	fullURL := c.baseURL + basePath + endpoint

	var reqBody io.Reader = http.NoBody
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("unifi: failed to create %s request: %w", operation, err)
	}

	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordControllerRequest("network", operation, time.Since(start), "connectivity")
		return nil, connectionError(operation, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := statusError(operation, resp.StatusCode)
		metrics.RecordControllerRequest("network", operation, time.Since(start), ErrorType(err))
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.RecordControllerRequest("network", operation, time.Since(start), "connectivity")
		return nil, connectionError(operation, err)
	}

	metrics.RecordControllerRequest("network", operation, time.Since(start), "")
	return body, nil
}
