// UniFi Insights - UniFi Network and Protect State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/unifi-insights

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/unifi-insights/internal/config"
	"github.com/tomtom215/unifi-insights/internal/coordinator"
	"github.com/tomtom215/unifi-insights/internal/protect"
	"github.com/tomtom215/unifi-insights/internal/unifi"
	"github.com/tomtom215/unifi-insights/internal/websocket"
)

// Handler holds dependencies for all HTTP handlers. Reads are served from
// the coordinator's in-memory snapshot; commands go straight to the
// controller clients and never touch the snapshot.
type Handler struct {
	coord     *coordinator.Coordinator
	network   unifi.NetworkClientInterface
	protect   protect.ClientInterface
	hub       *websocket.Hub
	config    *config.Config
	startTime time.Time
}

// NewHandler creates a handler with the given dependencies.
// The protect client may be nil when the Protect subsystem is disabled.
func NewHandler(coord *coordinator.Coordinator, network unifi.NetworkClientInterface, protectClient protect.ClientInterface, hub *websocket.Hub, cfg *config.Config) *Handler {
	return &Handler{
		coord:     coord,
		network:   network,
		protect:   protectClient,
		hub:       hub,
		config:    cfg,
		startTime: time.Now(),
	}
}

// HealthStatus is the payload for the /health endpoint.
type HealthStatus struct {
	Status              string     `json:"status"`
	ControllerAvailable bool       `json:"controller_available"`
	ProtectEnabled      bool       `json:"protect_enabled"`
	LastUpdate          *time.Time `json:"last_update,omitempty"`
	UptimeSeconds       float64    `json:"uptime_seconds"`
}

// Health reports coordinator availability and process uptime.
// Returns "degraded" (still 200) when the controller is unreachable, so
// monitors can distinguish a down process from a down controller.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	snap := h.coord.Snapshot()

	status := "healthy"
	if !snap.Available() {
		status = "degraded"
	}

	health := HealthStatus{
		Status:              status,
		ControllerAvailable: snap.Available(),
		ProtectEnabled:      h.protect != nil,
		UptimeSeconds:       time.Since(h.startTime).Seconds(),
	}
	if lastUpdate := snap.LastUpdate(); !lastUpdate.IsZero() {
		health.LastUpdate = &lastUpdate
	}

	rw.Success(health)
}

// HealthLive is a Kubernetes-style liveness probe. It returns 200 whenever
// the process is up, regardless of controller connectivity.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady is a Kubernetes-style readiness probe. It returns 503 until
// the first successful refresh cycle has populated the snapshot.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	snap := h.coord.Snapshot()

	if !snap.Available() {
		rw.ServiceUnavailable("snapshot not yet available")
		return
	}

	rw.Success(map[string]interface{}{
		"ready":       true,
		"last_update": snap.LastUpdate(),
	})
}

// StatusResponse is the payload for the /status endpoint.
type StatusResponse struct {
	Available        bool           `json:"available"`
	LastUpdate       *time.Time     `json:"last_update,omitempty"`
	Counts           map[string]int `json:"counts"`
	ConnectedClients int            `json:"connected_clients"`
}

// Status reports snapshot availability, entity counts, and websocket fanout.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	snap := h.coord.Snapshot()

	status := StatusResponse{
		Available: snap.Available(),
		Counts:    snap.Counts(),
	}
	if lastUpdate := snap.LastUpdate(); !lastUpdate.IsZero() {
		status.LastUpdate = &lastUpdate
	}
	if h.hub != nil {
		status.ConnectedClients = h.hub.GetClientCount()
	}

	rw.Success(status)
}

// Sites lists all sites in the snapshot.
func (h *Handler) Sites(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	sites := h.coord.Snapshot().Sites()
	rw.SuccessWithCount(sites, len(sites))
}

// Site returns a single site by ID.
func (h *Handler) Site(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	siteID := chi.URLParam(r, "siteID")

	site, ok := h.coord.Snapshot().Site(siteID)
	if !ok {
		rw.NotFound("site not found: " + siteID)
		return
	}

	rw.Success(site)
}

// SiteDevices lists the devices of a site.
func (h *Handler) SiteDevices(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	siteID := chi.URLParam(r, "siteID")

	snap := h.coord.Snapshot()
	if _, ok := snap.Site(siteID); !ok {
		rw.NotFound("site not found: " + siteID)
		return
	}

	devices := snap.DevicesForSite(siteID)
	rw.SuccessWithCount(devices, len(devices))
}

// SiteDevice returns a single device by site and device ID.
func (h *Handler) SiteDevice(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	siteID := chi.URLParam(r, "siteID")
	deviceID := chi.URLParam(r, "deviceID")

	device, ok := h.coord.Snapshot().Device(siteID, deviceID)
	if !ok {
		rw.NotFound("device not found: " + deviceID)
		return
	}

	rw.Success(device)
}

// SiteDeviceStatistics returns the latest statistics record for a device.
// A device that exists but whose statistics fetch failed last cycle still
// has a record here, with only the ID populated.
func (h *Handler) SiteDeviceStatistics(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	siteID := chi.URLParam(r, "siteID")
	deviceID := chi.URLParam(r, "deviceID")

	stats, ok := h.coord.Snapshot().DeviceStats(siteID, deviceID)
	if !ok {
		rw.NotFound("device not found: " + deviceID)
		return
	}

	rw.Success(stats)
}

// SiteClients lists the active clients of a site.
func (h *Handler) SiteClients(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	siteID := chi.URLParam(r, "siteID")

	snap := h.coord.Snapshot()
	if _, ok := snap.Site(siteID); !ok {
		rw.NotFound("site not found: " + siteID)
		return
	}

	clients := snap.ClientsForSite(siteID)
	rw.SuccessWithCount(clients, len(clients))
}

// ProtectCameras lists all cameras in the snapshot.
func (h *Handler) ProtectCameras(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	cameras := h.coord.Snapshot().Cameras()
	rw.SuccessWithCount(cameras, len(cameras))
}

// ProtectCamera returns a single camera by ID.
func (h *Handler) ProtectCamera(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id := chi.URLParam(r, "id")

	camera, ok := h.coord.Snapshot().Camera(id)
	if !ok {
		rw.NotFound("camera not found: " + id)
		return
	}

	rw.Success(camera)
}

// ProtectLights lists all lights in the snapshot.
func (h *Handler) ProtectLights(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	lights := h.coord.Snapshot().Lights()
	rw.SuccessWithCount(lights, len(lights))
}

// ProtectLight returns a single light by ID.
func (h *Handler) ProtectLight(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id := chi.URLParam(r, "id")

	light, ok := h.coord.Snapshot().Light(id)
	if !ok {
		rw.NotFound("light not found: " + id)
		return
	}

	rw.Success(light)
}

// ProtectSensors lists all sensors in the snapshot.
func (h *Handler) ProtectSensors(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	sensors := h.coord.Snapshot().Sensors()
	rw.SuccessWithCount(sensors, len(sensors))
}

// ProtectSensor returns a single sensor by ID.
func (h *Handler) ProtectSensor(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id := chi.URLParam(r, "id")

	sensor, ok := h.coord.Snapshot().Sensor(id)
	if !ok {
		rw.NotFound("sensor not found: " + id)
		return
	}

	rw.Success(sensor)
}

// ProtectNVRs lists all NVRs in the snapshot.
func (h *Handler) ProtectNVRs(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	nvrs := h.coord.Snapshot().NVRs()
	rw.SuccessWithCount(nvrs, len(nvrs))
}

// ProtectViewers lists all viewers in the snapshot.
func (h *Handler) ProtectViewers(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	viewers := h.coord.Snapshot().Viewers()
	rw.SuccessWithCount(viewers, len(viewers))
}

// ProtectChimes lists all chimes in the snapshot.
func (h *Handler) ProtectChimes(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	chimes := h.coord.Snapshot().Chimes()
	rw.SuccessWithCount(chimes, len(chimes))
}

// ProtectChime returns a single chime by ID.
func (h *Handler) ProtectChime(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id := chi.URLParam(r, "id")

	chime, ok := h.coord.Snapshot().Chime(id)
	if !ok {
		rw.NotFound("chime not found: " + id)
		return
	}

	rw.Success(chime)
}

// ProtectEvents returns all stored Protect events grouped by event type.
func (h *Handler) ProtectEvents(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	events := h.coord.Snapshot().Events()

	total := 0
	for _, list := range events {
		total += len(list)
	}

	rw.SuccessWithCount(events, total)
}

// WebSocket upgrades the connection and registers it with the hub.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		NewResponseWriter(w, r).ServiceUnavailable("websocket hub not running")
		return
	}
	websocket.ServeWS(h.hub, w, r)
}
