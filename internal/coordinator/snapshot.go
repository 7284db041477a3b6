// UniFi Insights - UniFi Network and Protect State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/unifi-insights

/*
snapshot.go - Canonical In-Memory State Store

Snapshot holds the current merged view of both subsystems: the Network
resource hierarchy (sites -> devices, clients, stats) and the Protect
entity maps plus the event store. Two writers feed it — the scheduled
refresh cycle and the push-event merge — so every top-level key
replacement happens atomically under one RWMutex; readers never observe
a half-written record.

Bulk accessors return copies. Point lookups return the stored value and
an ok flag.
*/

package coordinator

import (
	"sync"
	"time"

	"github.com/tomtom215/unifi-insights/internal/models"
)

// Snapshot is the canonical state store.
type Snapshot struct {
	mu sync.RWMutex

	sites   map[string]models.Site
	devices map[string]map[string]models.Device      // siteID -> deviceID
	clients map[string]map[string]models.Client      // siteID -> clientID
	stats   map[string]map[string]models.DeviceStats // siteID -> deviceID

	cameras map[string]models.Camera
	lights  map[string]models.Light
	sensors map[string]models.Sensor
	nvrs    map[string]models.NVR
	viewers map[string]models.Viewer
	chimes  map[string]models.Chime

	events map[string]map[string]models.ProtectEvent // eventType -> eventID

	available  bool
	lastUpdate time.Time
}

// NewSnapshot creates an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		sites:   make(map[string]models.Site),
		devices: make(map[string]map[string]models.Device),
		clients: make(map[string]map[string]models.Client),
		stats:   make(map[string]map[string]models.DeviceStats),
		cameras: make(map[string]models.Camera),
		lights:  make(map[string]models.Light),
		sensors: make(map[string]models.Sensor),
		nvrs:    make(map[string]models.NVR),
		viewers: make(map[string]models.Viewer),
		chimes:  make(map[string]models.Chime),
		events:  make(map[string]map[string]models.ProtectEvent),
	}
}

// replaceSites replaces the site map wholesale and prunes nested maps
// for sites no longer present.
func (s *Snapshot) replaceSites(sites []models.Site) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]models.Site, len(sites))
	for _, site := range sites {
		next[site.ID] = site
	}
	s.sites = next

	for siteID := range s.devices {
		if _, ok := next[siteID]; !ok {
			delete(s.devices, siteID)
			delete(s.clients, siteID)
			delete(s.stats, siteID)
		}
	}
}

// replaceSiteData atomically installs a site's freshly fetched devices,
// clients, and stats. Called only after the site's whole subtree has
// been assembled, so readers flip from fully-previous to fully-current.
func (s *Snapshot) replaceSiteData(siteID string, devices map[string]models.Device, clients map[string]models.Client, stats map[string]models.DeviceStats) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.devices[siteID] = devices
	s.clients[siteID] = clients
	s.stats[siteID] = stats
}

// setAvailable records the top-level refresh outcome.
func (s *Snapshot) setAvailable(available bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.available = available
	if available {
		s.lastUpdate = time.Now()
	}
}

// Available reports whether the most recent refresh succeeded at the
// top level.
func (s *Snapshot) Available() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.available
}

// LastUpdate returns the completion time of the last successful refresh.
func (s *Snapshot) LastUpdate() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdate
}

// Sites returns a copy of all sites.
func (s *Snapshot) Sites() []models.Site {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Site, 0, len(s.sites))
	for _, site := range s.sites {
		out = append(out, site)
	}
	return out
}

// Site looks up one site.
func (s *Snapshot) Site(id string) (models.Site, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	site, ok := s.sites[id]
	return site, ok
}

// DevicesForSite returns a copy of one site's devices.
func (s *Snapshot) DevicesForSite(siteID string) []models.Device {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Device, 0, len(s.devices[siteID]))
	for _, d := range s.devices[siteID] {
		out = append(out, d)
	}
	return out
}

// Device looks up one device.
func (s *Snapshot) Device(siteID, deviceID string) (models.Device, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.devices[siteID][deviceID]
	return d, ok
}

// ClientsForSite returns a copy of one site's clients.
func (s *Snapshot) ClientsForSite(siteID string) []models.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Client, 0, len(s.clients[siteID]))
	for _, c := range s.clients[siteID] {
		out = append(out, c)
	}
	return out
}

// DeviceStats looks up one device's statistics record.
func (s *Snapshot) DeviceStats(siteID, deviceID string) (models.DeviceStats, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.stats[siteID][deviceID]
	return st, ok
}

// replaceCameras installs a bulk camera fetch, key-level.
func (s *Snapshot) replaceCameras(cameras []models.Camera) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range cameras {
		s.cameras[c.ID] = c
	}
}

// replaceLights installs a bulk light fetch, key-level.
func (s *Snapshot) replaceLights(lights []models.Light) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range lights {
		s.lights[l.ID] = l
	}
}

// replaceSensors installs a bulk sensor fetch, key-level.
func (s *Snapshot) replaceSensors(sensors []models.Sensor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sn := range sensors {
		s.sensors[sn.ID] = sn
	}
}

// replaceNVRs installs a bulk NVR fetch, key-level.
func (s *Snapshot) replaceNVRs(nvrs []models.NVR) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range nvrs {
		s.nvrs[n.ID] = n
	}
}

// replaceViewers installs viewer records, key-level. Viewers arrive
// both from the bulk pass and from push device-replace.
func (s *Snapshot) replaceViewers(viewers []models.Viewer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range viewers {
		s.viewers[v.ID] = v
	}
}

// replaceChimes installs a bulk chime fetch, key-level.
func (s *Snapshot) replaceChimes(chimes []models.Chime) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range chimes {
		s.chimes[c.ID] = c
	}
}

// Cameras returns a copy of all cameras.
func (s *Snapshot) Cameras() []models.Camera {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Camera, 0, len(s.cameras))
	for _, c := range s.cameras {
		out = append(out, c)
	}
	return out
}

// Camera looks up one camera.
func (s *Snapshot) Camera(id string) (models.Camera, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cameras[id]
	return c, ok
}

// Lights returns a copy of all lights.
func (s *Snapshot) Lights() []models.Light {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Light, 0, len(s.lights))
	for _, l := range s.lights {
		out = append(out, l)
	}
	return out
}

// Light looks up one light.
func (s *Snapshot) Light(id string) (models.Light, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.lights[id]
	return l, ok
}

// Sensors returns a copy of all sensors.
func (s *Snapshot) Sensors() []models.Sensor {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Sensor, 0, len(s.sensors))
	for _, sn := range s.sensors {
		out = append(out, sn)
	}
	return out
}

// Sensor looks up one sensor.
func (s *Snapshot) Sensor(id string) (models.Sensor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sn, ok := s.sensors[id]
	return sn, ok
}

// NVRs returns a copy of all NVR records.
func (s *Snapshot) NVRs() []models.NVR {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.NVR, 0, len(s.nvrs))
	for _, n := range s.nvrs {
		out = append(out, n)
	}
	return out
}

// NVR looks up one NVR record.
func (s *Snapshot) NVR(id string) (models.NVR, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nvrs[id]
	return n, ok
}

// Viewers returns a copy of all viewers.
func (s *Snapshot) Viewers() []models.Viewer {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Viewer, 0, len(s.viewers))
	for _, v := range s.viewers {
		out = append(out, v)
	}
	return out
}

// Viewer looks up one viewer.
func (s *Snapshot) Viewer(id string) (models.Viewer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.viewers[id]
	return v, ok
}

// Chimes returns a copy of all chimes.
func (s *Snapshot) Chimes() []models.Chime {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Chime, 0, len(s.chimes))
	for _, c := range s.chimes {
		out = append(out, c)
	}
	return out
}

// Chime looks up one chime.
func (s *Snapshot) Chime(id string) (models.Chime, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chimes[id]
	return c, ok
}

// Events returns a copy of the event store, grouped by event type.
func (s *Snapshot) Events() map[string][]models.ProtectEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]models.ProtectEvent, len(s.events))
	for eventType, byID := range s.events {
		list := make([]models.ProtectEvent, 0, len(byID))
		for _, e := range byID {
			list = append(list, e)
		}
		out[eventType] = list
	}
	return out
}

// Counts returns the entity counts exposed by the status endpoint.
func (s *Snapshot) Counts() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	devices := 0
	for _, byID := range s.devices {
		devices += len(byID)
	}
	clients := 0
	for _, byID := range s.clients {
		clients += len(byID)
	}
	events := 0
	for _, byID := range s.events {
		events += len(byID)
	}

	return map[string]int{
		"sites":   len(s.sites),
		"devices": devices,
		"clients": clients,
		"cameras": len(s.cameras),
		"lights":  len(s.lights),
		"sensors": len(s.sensors),
		"nvrs":    len(s.nvrs),
		"viewers": len(s.viewers),
		"chimes":  len(s.chimes),
		"events":  events,
	}
}
