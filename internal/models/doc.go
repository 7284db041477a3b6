// UniFi Insights - UniFi Network and Protect State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/unifi-insights

// Package models defines the data types shared across UniFi Insights:
// the Network API resource hierarchy (sites, devices, clients, device
// statistics) and the Protect subsystem entities (cameras, lights,
// sensors, NVRs, viewers, chimes) plus their push events.
//
// All types carry JSON tags matching the UniFi controller wire format so
// they can be decoded directly from API responses and re-serialized by
// the HTTP projection layer without translation.
package models
