// UniFi Insights - UniFi Network and Protect State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/unifi-insights

/*
refresh.go - Scheduled Pull Refresh

One refresh cycle walks the Network resource hierarchy top-down:

 1. Site list (fatal for the cycle on failure).
 2. Per site, in parallel: device list and client list (two independent
    failure domains; either failing leaves that site's prior data).
 3. Per device, in parallel: device-info patch and statistics.
 4. Stats annotated with the device ID and its uplinked clients.
 5. Join all sites, mark the snapshot available.
 6. Protect bulk pass (six resource kinds, each contained) and push
    feed (re)start.

Failure containment is deliberately asymmetric at the device level: a
device-info failure keeps the base device record untouched, while a
stats failure overwrites that device's stats with an empty record.
*/

package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/unifi-insights/internal/logging"
	"github.com/tomtom215/unifi-insights/internal/metrics"
	"github.com/tomtom215/unifi-insights/internal/models"
	"github.com/tomtom215/unifi-insights/internal/unifi"
)

// Refresh runs one full refresh cycle. siteID scopes the device walk to
// one site when non-empty; the site list itself is always refreshed.
// Cycles are serialized: concurrent callers queue.
func (c *Coordinator) Refresh(ctx context.Context, siteID string) (err error) {
	c.cycleMu.Lock()
	defer c.cycleMu.Unlock()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			c.snap.setAvailable(false)
			err = fmt.Errorf("unexpected refresh failure: %v", r)
		}
		metrics.RecordRefreshCycle(time.Since(start), outcomeLabel(err))
	}()

	sites, err := c.network.GetSites(ctx)
	if err != nil {
		switch {
		case errors.Is(err, unifi.ErrAuth):
			c.snap.setAvailable(false)
			logging.Error().Err(err).Msg("Refresh aborted: authentication failed")
		case errors.Is(err, unifi.ErrConnection):
			// Retryable; previous snapshot data stays intact, but the
			// cycle did not succeed, so availability is cleared.
			c.snap.setAvailable(false)
			logging.Warn().Err(err).Msg("Refresh aborted: controller unreachable")
		default:
			c.snap.setAvailable(false)
			logging.Error().Err(err).Msg("Refresh aborted: unexpected failure")
		}
		return err
	}

	c.snap.replaceSites(sites)

	var wg sync.WaitGroup
	for _, site := range sites {
		if siteID != "" && site.ID != siteID {
			continue
		}
		wg.Add(1)
		go func(site models.Site) {
			defer wg.Done()
			c.refreshSite(ctx, site.ID)
		}(site)
	}
	wg.Wait()

	c.snap.setAvailable(true)

	if c.protect != nil {
		c.refreshProtect(ctx)
	}

	c.notifyListeners()

	logging.Debug().Int("sites", len(sites)).Dur("duration", time.Since(start)).Msg("Refresh cycle complete")
	return nil
}

// outcomeLabel maps a cycle error to its metric label.
func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, unifi.ErrAuth):
		return "auth"
	case errors.Is(err, unifi.ErrConnection):
		return "connectivity"
	default:
		return "unexpected"
	}
}

// refreshSite rebuilds one site's devices, clients, and stats. Device
// and client listings are two independent failure domains: if either
// fails, the site's prior nested maps are left untouched this cycle.
func (c *Coordinator) refreshSite(ctx context.Context, siteID string) {
	var (
		devices []models.Device
		clients []models.Client
		devErr  error
		cliErr  error
	)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		devices, devErr = c.network.GetDevices(ctx, siteID)
	}()
	go func() {
		defer wg.Done()
		clients, cliErr = c.network.GetClients(ctx, siteID)
	}()
	wg.Wait()

	if devErr != nil {
		metrics.RecordResourceFailure("devices")
		logging.Warn().Err(devErr).Str("site", siteID).Msg("Device listing failed, keeping previous site data")
	}
	if cliErr != nil {
		metrics.RecordResourceFailure("clients")
		logging.Warn().Err(cliErr).Str("site", siteID).Msg("Client listing failed, keeping previous site data")
	}
	if devErr != nil || cliErr != nil {
		return
	}

	clientMap := make(map[string]models.Client, len(clients))
	for _, cl := range clients {
		clientMap[cl.ID] = cl
	}

	deviceMap := make(map[string]models.Device, len(devices))
	statsMap := make(map[string]models.DeviceStats, len(devices))
	var mapMu sync.Mutex

	var devWg sync.WaitGroup
	for i := range devices {
		devWg.Add(1)
		go func(device models.Device) {
			defer devWg.Done()
			stats := c.refreshDevice(ctx, siteID, &device, clients)

			mapMu.Lock()
			deviceMap[device.ID] = device
			statsMap[device.ID] = stats
			mapMu.Unlock()
		}(devices[i])
	}
	devWg.Wait()

	c.snap.replaceSiteData(siteID, deviceMap, clientMap, statsMap)

	metrics.SnapshotDevices.WithLabelValues(siteID).Set(float64(len(deviceMap)))
	metrics.SnapshotClients.WithLabelValues(siteID).Set(float64(len(clientMap)))
}

// refreshDevice fetches one device's info patch and statistics in
// parallel, applies the asymmetric failure policy, and returns the
// stats record to store.
func (c *Coordinator) refreshDevice(ctx context.Context, siteID string, device *models.Device, siteClients []models.Client) models.DeviceStats {
	var (
		info     *models.DeviceInfo
		stats    *models.DeviceStats
		infoErr  error
		statsErr error
	)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		info, infoErr = c.network.GetDeviceInfo(ctx, siteID, device.ID)
	}()
	go func() {
		defer wg.Done()
		stats, statsErr = c.network.GetDeviceStats(ctx, siteID, device.ID)
	}()
	wg.Wait()

	if infoErr != nil {
		// Base listing fields stand on their own.
		metrics.RecordResourceFailure("device_info")
		logging.Warn().Err(infoErr).Str("site", siteID).Str("device", device.ID).Msg("Device info fetch failed, keeping base record")
	} else if info != nil {
		info.ApplyTo(device)
	}

	if statsErr != nil {
		// Stale stats are worse than absent ones: overwrite with empty.
		metrics.RecordResourceFailure("device_stats")
		logging.Warn().Err(statsErr).Str("site", siteID).Str("device", device.ID).Msg("Stats fetch failed, storing empty record")
		return models.DeviceStats{ID: device.ID}
	}

	record := models.DeviceStats{}
	if stats != nil {
		record = *stats
	}
	record.ID = device.ID
	record.Clients = models.FilterClientsByUplink(siteClients, device.ID)
	record.RecordedAt = time.Now()
	return record
}

// refreshProtect bulk-fetches the six Protect resource kinds, each
// failure contained, then makes sure the push feed is running.
func (c *Coordinator) refreshProtect(ctx context.Context) {
	if cameras, err := c.protect.GetCameras(ctx); err != nil {
		metrics.RecordResourceFailure("protect_cameras")
		logging.Warn().Err(err).Msg("Camera bulk fetch failed")
	} else {
		c.snap.replaceCameras(cameras)
	}

	if lights, err := c.protect.GetLights(ctx); err != nil {
		metrics.RecordResourceFailure("protect_lights")
		logging.Warn().Err(err).Msg("Light bulk fetch failed")
	} else {
		c.snap.replaceLights(lights)
	}

	if sensors, err := c.protect.GetSensors(ctx); err != nil {
		metrics.RecordResourceFailure("protect_sensors")
		logging.Warn().Err(err).Msg("Sensor bulk fetch failed")
	} else {
		c.snap.replaceSensors(sensors)
	}

	if nvrs, err := c.protect.GetNVRs(ctx); err != nil {
		metrics.RecordResourceFailure("protect_nvrs")
		logging.Warn().Err(err).Msg("NVR bulk fetch failed")
	} else {
		c.snap.replaceNVRs(nvrs)
	}

	if viewers, err := c.protect.GetViewers(ctx); err != nil {
		metrics.RecordResourceFailure("protect_viewers")
		logging.Warn().Err(err).Msg("Viewer bulk fetch failed")
	} else {
		c.snap.replaceViewers(viewers)
	}

	if chimes, err := c.protect.GetChimes(ctx); err != nil {
		metrics.RecordResourceFailure("protect_chimes")
		logging.Warn().Err(err).Msg("Chime bulk fetch failed")
	} else {
		c.snap.replaceChimes(chimes)
	}

	if c.stream != nil {
		if err := c.stream.Start(ctx); err != nil {
			logging.Warn().Err(err).Msg("Push feed start failed (will retry next cycle)")
		}
	}
}
