// UniFi Insights - UniFi Network and Protect State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/unifi-insights

/*
network.go - UniFi Network API Resource Types

Types for the Network Integration API resource hierarchy:
sites -> devices -> statistics, with clients attached per site.

API Reference: https://developer.ui.com/unifi-api/
*/

package models

import "time"

// DeviceStateOnline is the Device.State value reported for a reachable device.
const DeviceStateOnline = "ONLINE"

// Site is a top-level scoping unit for a deployment (a physical
// location's managed network). Sites are replaced wholesale from the
// authoritative list on each refresh cycle and are never partially merged.
type Site struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Desc string `json:"desc,omitempty"`
}

// Device is a managed network appliance within a site, keyed by
// (siteID, deviceID). The base listing object is merged with an
// independently fetched DeviceInfo patch; the patch may fail without
// invalidating the base record.
type Device struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Model             string   `json:"model,omitempty"`
	MACAddress        string   `json:"macAddress,omitempty"`
	IPAddress         string   `json:"ipAddress,omitempty"`
	State             string   `json:"state,omitempty"`
	FirmwareVersion   string   `json:"firmwareVersion,omitempty"`
	FirmwareUpdatable bool     `json:"firmwareUpdatable,omitempty"`
	Features          []string `json:"features,omitempty"`
	Uplink            *Uplink  `json:"uplink,omitempty"`
}

// IsOnline reports whether the controller considers the device reachable.
func (d *Device) IsOnline() bool {
	return d.State == DeviceStateOnline
}

// DeviceInfo is the supplementary detail object fetched per device in
// parallel with the base listing. Only the fields it carries are merged
// onto the Device record.
type DeviceInfo struct {
	ID                string `json:"id"`
	FirmwareVersion   string `json:"firmwareVersion,omitempty"`
	FirmwareUpdatable bool   `json:"firmwareUpdatable,omitempty"`
}

// ApplyTo merges the info patch onto a base device record.
// Zero-valued patch fields leave the base untouched.
func (i *DeviceInfo) ApplyTo(d *Device) {
	if i.FirmwareVersion != "" {
		d.FirmwareVersion = i.FirmwareVersion
	}
	if i.FirmwareUpdatable {
		d.FirmwareUpdatable = true
	}
}

// Client is an end-host connected to the network through some device.
// UplinkDeviceID is a lookup back-reference, not ownership: it is used
// each cycle to recompute the per-device client list on DeviceStats.
type Client struct {
	ID             string    `json:"id"`
	Name           string    `json:"name,omitempty"`
	MACAddress     string    `json:"macAddress,omitempty"`
	IPAddress      string    `json:"ipAddress,omitempty"`
	Type           string    `json:"type,omitempty"`
	UplinkDeviceID string    `json:"uplinkDeviceId,omitempty"`
	ConnectedAt    time.Time `json:"connectedAt,omitempty"`
}

// Uplink carries point-in-time uplink throughput readings.
type Uplink struct {
	TxRateBps int64 `json:"txRateBps"`
	RxRateBps int64 `json:"rxRateBps"`
}

// DeviceStats is the point-in-time statistics snapshot for one device.
// ID always equals the device identifier, and Clients is the freshly
// computed subset of the site's clients whose UplinkDeviceID matches.
// Both are set by the coordinator, not decoded from the API response.
type DeviceStats struct {
	ID                   string    `json:"id"`
	UptimeSec            int64     `json:"uptimeSec,omitempty"`
	CPUUtilizationPct    float64   `json:"cpuUtilizationPct,omitempty"`
	MemoryUtilizationPct float64   `json:"memoryUtilizationPct,omitempty"`
	LoadAverage1Min      float64   `json:"loadAverage1Min,omitempty"`
	Uplink               *Uplink   `json:"uplink,omitempty"`
	Clients              []Client  `json:"clients,omitempty"`
	RecordedAt           time.Time `json:"recordedAt,omitempty"`
}

// FilterClientsByUplink returns exactly the clients whose UplinkDeviceID
// equals deviceID, preserving input order.
func FilterClientsByUplink(clients []Client, deviceID string) []Client {
	matched := make([]Client, 0)
	for i := range clients {
		if clients[i].UplinkDeviceID == deviceID {
			matched = append(matched, clients[i])
		}
	}
	return matched
}
