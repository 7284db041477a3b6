// UniFi Insights - UniFi Network and Protect State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/unifi-insights

package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/unifi-insights/internal/config"
	"github.com/tomtom215/unifi-insights/internal/models"
	"github.com/tomtom215/unifi-insights/internal/protect"
	"github.com/tomtom215/unifi-insights/internal/unifi"
)

// fakeNetwork is a scriptable NetworkClientInterface.
type fakeNetwork struct {
	mu         sync.Mutex
	sites      []models.Site
	sitesErr   error
	devices    map[string][]models.Device
	devicesErr map[string]error
	clients    map[string][]models.Client
	clientsErr map[string]error
	info       map[string]*models.DeviceInfo
	infoErr    map[string]error
	stats      map[string]*models.DeviceStats
	statsErr   map[string]error
}

var _ unifi.NetworkClientInterface = (*fakeNetwork)(nil)

func devKey(siteID, deviceID string) string { return siteID + "/" + deviceID }

func (f *fakeNetwork) ValidateAPIKey(ctx context.Context) error {
	_, err := f.GetSites(ctx)
	return err
}

func (f *fakeNetwork) GetSites(context.Context) ([]models.Site, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sites, f.sitesErr
}

func (f *fakeNetwork) GetDevices(_ context.Context, siteID string) ([]models.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.devicesErr[siteID]; err != nil {
		return nil, err
	}
	return f.devices[siteID], nil
}

func (f *fakeNetwork) GetClients(_ context.Context, siteID string) ([]models.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.clientsErr[siteID]; err != nil {
		return nil, err
	}
	return f.clients[siteID], nil
}

func (f *fakeNetwork) GetDeviceInfo(_ context.Context, siteID, deviceID string) (*models.DeviceInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.infoErr[devKey(siteID, deviceID)]; err != nil {
		return nil, err
	}
	return f.info[devKey(siteID, deviceID)], nil
}

func (f *fakeNetwork) GetDeviceStats(_ context.Context, siteID, deviceID string) (*models.DeviceStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.statsErr[devKey(siteID, deviceID)]; err != nil {
		return nil, err
	}
	return f.stats[devKey(siteID, deviceID)], nil
}

func (f *fakeNetwork) RestartDevice(context.Context, string, string) error { return nil }

func (f *fakeNetwork) PowerCyclePort(context.Context, string, string, int) error { return nil }

// fakeProtect implements only the fetches the coordinator exercises;
// anything else panics via the nil embedded interface.
type fakeProtect struct {
	protect.ClientInterface
	cameras    []models.Camera
	camerasErr error
	lights     []models.Light
	lightsErr  error
	sensors    []models.Sensor
	nvrs       []models.NVR
	viewers    []models.Viewer
	chimes     []models.Chime
}

func (f *fakeProtect) GetCameras(context.Context) ([]models.Camera, error) {
	return f.cameras, f.camerasErr
}
func (f *fakeProtect) GetLights(context.Context) ([]models.Light, error) {
	return f.lights, f.lightsErr
}
func (f *fakeProtect) GetSensors(context.Context) ([]models.Sensor, error) { return f.sensors, nil }
func (f *fakeProtect) GetNVRs(context.Context) ([]models.NVR, error)       { return f.nvrs, nil }
func (f *fakeProtect) GetViewers(context.Context) ([]models.Viewer, error) { return f.viewers, nil }
func (f *fakeProtect) GetChimes(context.Context) ([]models.Chime, error)   { return f.chimes, nil }

// fakeStream records Start calls.
type fakeStream struct {
	mu         sync.Mutex
	startCalls int
	onDevice   protect.DeviceCallback
	onEvent    protect.EventCallback
}

func (f *fakeStream) SetCallbacks(onDevice protect.DeviceCallback, onEvent protect.EventCallback) {
	f.onDevice = onDevice
	f.onEvent = onEvent
}

func (f *fakeStream) Start(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startCalls++
	return nil
}

func (f *fakeStream) Close() {}

func testConfig() *config.Config {
	return &config.Config{
		Sync: config.SyncConfig{
			Interval:            30 * time.Second,
			EventRetentionLimit: 0,
		},
	}
}

// singleSiteNetwork builds a fake with one site, two devices, and three
// clients (two uplinked to dev-1, one to dev-2).
func singleSiteNetwork() *fakeNetwork {
	return &fakeNetwork{
		sites: []models.Site{{ID: "site-1", Name: "default"}},
		devices: map[string][]models.Device{
			"site-1": {
				{ID: "dev-1", Name: "Switch", State: "ONLINE"},
				{ID: "dev-2", Name: "AP", State: "ONLINE"},
			},
		},
		clients: map[string][]models.Client{
			"site-1": {
				{ID: "cl-1", UplinkDeviceID: "dev-1"},
				{ID: "cl-2", UplinkDeviceID: "dev-1"},
				{ID: "cl-3", UplinkDeviceID: "dev-2"},
			},
		},
		info: map[string]*models.DeviceInfo{
			devKey("site-1", "dev-1"): {ID: "dev-1", FirmwareVersion: "7.0.1"},
		},
		stats: map[string]*models.DeviceStats{
			devKey("site-1", "dev-1"): {UptimeSec: 1000, CPUUtilizationPct: 5},
			devKey("site-1", "dev-2"): {UptimeSec: 2000},
		},
		infoErr:    map[string]error{},
		statsErr:   map[string]error{},
		devicesErr: map[string]error{},
		clientsErr: map[string]error{},
	}
}

func mustRefresh(t *testing.T, c *Coordinator) {
	t.Helper()
	if err := c.Refresh(context.Background(), ""); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
}

func TestRefreshEveryDeviceHasStatsKey(t *testing.T) {
	net := singleSiteNetwork()
	c := New(net, nil, nil, testConfig())
	mustRefresh(t, c)

	for _, dev := range c.Snapshot().DevicesForSite("site-1") {
		if _, ok := c.Snapshot().DeviceStats("site-1", dev.ID); !ok {
			t.Errorf("device %s has no stats record", dev.ID)
		}
	}
}

func TestDeviceInfoMergedIntoDevice(t *testing.T) {
	net := singleSiteNetwork()
	c := New(net, nil, nil, testConfig())
	mustRefresh(t, c)

	dev, ok := c.Snapshot().Device("site-1", "dev-1")
	if !ok {
		t.Fatal("dev-1 missing")
	}
	if dev.FirmwareVersion != "7.0.1" {
		t.Errorf("FirmwareVersion = %q, want 7.0.1", dev.FirmwareVersion)
	}
	if dev.Name != "Switch" {
		t.Errorf("Name = %q, base listing field lost", dev.Name)
	}
}

func TestDeviceInfoFailureKeepsBaseFields(t *testing.T) {
	net := singleSiteNetwork()
	net.infoErr[devKey("site-1", "dev-1")] = errors.New("info unavailable")

	c := New(net, nil, nil, testConfig())
	mustRefresh(t, c)

	dev, ok := c.Snapshot().Device("site-1", "dev-1")
	if !ok {
		t.Fatal("dev-1 missing after info failure")
	}
	if dev.Name != "Switch" || dev.State != "ONLINE" {
		t.Errorf("base fields lost: %+v", dev)
	}
	if dev.FirmwareVersion != "" {
		t.Errorf("FirmwareVersion = %q, want empty when info fetch fails", dev.FirmwareVersion)
	}
}

func TestStatsFailureStoresEmptyRecord(t *testing.T) {
	net := singleSiteNetwork()
	c := New(net, nil, nil, testConfig())
	mustRefresh(t, c)

	// Prior cycle stored real stats; a failing fetch must overwrite
	// them with an empty record while the device itself survives.
	net.mu.Lock()
	net.statsErr[devKey("site-1", "dev-1")] = errors.New("stats unavailable")
	net.mu.Unlock()
	mustRefresh(t, c)

	stats, ok := c.Snapshot().DeviceStats("site-1", "dev-1")
	if !ok {
		t.Fatal("stats key missing after stats failure")
	}
	if stats.UptimeSec != 0 || stats.CPUUtilizationPct != 0 || len(stats.Clients) != 0 {
		t.Errorf("stats not emptied: %+v", stats)
	}
	if stats.ID != "dev-1" {
		t.Errorf("stats ID = %q, want dev-1", stats.ID)
	}

	if _, ok := c.Snapshot().Device("site-1", "dev-1"); !ok {
		t.Error("device record removed by stats failure")
	}
}

func TestStatsAnnotatedWithUplinkedClients(t *testing.T) {
	net := singleSiteNetwork()
	c := New(net, nil, nil, testConfig())
	mustRefresh(t, c)

	stats, ok := c.Snapshot().DeviceStats("site-1", "dev-1")
	if !ok {
		t.Fatal("dev-1 stats missing")
	}
	if stats.ID != "dev-1" {
		t.Errorf("stats ID = %q, want dev-1", stats.ID)
	}
	if len(stats.Clients) != 2 {
		t.Fatalf("dev-1 stats carry %d clients, want 2", len(stats.Clients))
	}
	for _, cl := range stats.Clients {
		if cl.UplinkDeviceID != "dev-1" {
			t.Errorf("client %s uplinked to %q leaked into dev-1 stats", cl.ID, cl.UplinkDeviceID)
		}
	}

	stats2, _ := c.Snapshot().DeviceStats("site-1", "dev-2")
	if len(stats2.Clients) != 1 || stats2.Clients[0].ID != "cl-3" {
		t.Errorf("dev-2 stats clients = %+v, want exactly cl-3", stats2.Clients)
	}
}

func TestSiteListingFailureKeepsPriorSiteData(t *testing.T) {
	net := singleSiteNetwork()
	c := New(net, nil, nil, testConfig())
	mustRefresh(t, c)

	net.mu.Lock()
	net.devicesErr["site-1"] = errors.New("device listing down")
	net.mu.Unlock()
	mustRefresh(t, c)

	// The failing cycle must not wipe the site's nested maps.
	if len(c.Snapshot().DevicesForSite("site-1")) != 2 {
		t.Error("prior device data lost after device listing failure")
	}
	if len(c.Snapshot().ClientsForSite("site-1")) != 3 {
		t.Error("prior client data lost after device listing failure")
	}
	if _, ok := c.Snapshot().DeviceStats("site-1", "dev-1"); !ok {
		t.Error("prior stats lost after device listing failure")
	}
}

func TestAuthFailureClearsAvailableThenRecovers(t *testing.T) {
	net := singleSiteNetwork()
	c := New(net, nil, nil, testConfig())
	mustRefresh(t, c)

	if !c.Snapshot().Available() {
		t.Fatal("available = false after successful refresh")
	}

	net.mu.Lock()
	net.sitesErr = fmt.Errorf("%w: sites returned status 401", unifi.ErrAuth)
	net.mu.Unlock()

	if err := c.Refresh(context.Background(), ""); !errors.Is(err, unifi.ErrAuth) {
		t.Fatalf("error = %v, want ErrAuth", err)
	}
	if c.Snapshot().Available() {
		t.Error("available = true after auth failure")
	}

	net.mu.Lock()
	net.sitesErr = nil
	net.mu.Unlock()
	mustRefresh(t, c)

	if !c.Snapshot().Available() {
		t.Error("available = false after recovery")
	}
}

func TestConnectivityFailurePreservesSnapshot(t *testing.T) {
	net := singleSiteNetwork()
	c := New(net, nil, nil, testConfig())
	mustRefresh(t, c)

	net.mu.Lock()
	net.sitesErr = fmt.Errorf("%w: connection refused", unifi.ErrConnection)
	net.mu.Unlock()

	if err := c.Refresh(context.Background(), ""); !errors.Is(err, unifi.ErrConnection) {
		t.Fatalf("error = %v, want ErrConnection", err)
	}

	// Retryable outcome: the data maps stay as they were, but the failed
	// cycle clears availability until a refresh succeeds again.
	if c.Snapshot().Available() {
		t.Error("available = true after connectivity failure")
	}
	if len(c.Snapshot().Sites()) != 1 {
		t.Error("site data lost on connectivity failure")
	}

	net.mu.Lock()
	net.sitesErr = nil
	net.mu.Unlock()
	mustRefresh(t, c)

	if !c.Snapshot().Available() {
		t.Error("available = false after recovery")
	}
}

func TestRemovedSitePrunedFromSnapshot(t *testing.T) {
	net := singleSiteNetwork()
	c := New(net, nil, nil, testConfig())
	mustRefresh(t, c)

	net.mu.Lock()
	net.sites = []models.Site{{ID: "site-2", Name: "replacement"}}
	net.mu.Unlock()
	mustRefresh(t, c)

	if _, ok := c.Snapshot().Site("site-1"); ok {
		t.Error("site-1 still present after removal upstream")
	}
	if len(c.Snapshot().DevicesForSite("site-1")) != 0 {
		t.Error("site-1 devices not pruned")
	}
}

func TestProtectBulkFailureContained(t *testing.T) {
	net := singleSiteNetwork()
	prot := &fakeProtect{
		camerasErr: errors.New("cameras endpoint down"),
		lights:     []models.Light{{ID: "light-1", Name: "Driveway"}},
		sensors:    []models.Sensor{{ID: "sensor-1"}},
		viewers:    []models.Viewer{{ID: "view-1", Name: "Lobby"}},
	}
	stream := &fakeStream{}

	c := New(net, prot, stream, testConfig())
	mustRefresh(t, c)

	// Camera failure must not abort the sibling fetches.
	if _, ok := c.Snapshot().Light("light-1"); !ok {
		t.Error("lights not stored despite camera fetch failure")
	}
	if _, ok := c.Snapshot().Sensor("sensor-1"); !ok {
		t.Error("sensors not stored despite camera fetch failure")
	}
	if _, ok := c.Snapshot().Viewer("view-1"); !ok {
		t.Error("viewers not stored despite camera fetch failure")
	}
	if stream.startCalls != 1 {
		t.Errorf("stream.Start called %d times, want 1", stream.startCalls)
	}
}

func TestDeviceReplaceStoresByKind(t *testing.T) {
	c := New(singleSiteNetwork(), &fakeProtect{}, &fakeStream{}, testConfig())

	payload, _ := json.Marshal(models.Camera{ID: "cam-1", Name: "Front"})
	c.onDeviceReplace("camera", payload)

	cam, ok := c.Snapshot().Camera("cam-1")
	if !ok || cam.Name != "Front" {
		t.Errorf("camera not stored: %+v ok=%v", cam, ok)
	}
}

func TestDeviceReplaceIdempotent(t *testing.T) {
	c := New(singleSiteNetwork(), &fakeProtect{}, &fakeStream{}, testConfig())

	payload, _ := json.Marshal(models.Viewer{ID: "view-1", Name: "Lobby"})
	c.onDeviceReplace("viewer", payload)
	c.onDeviceReplace("viewer", payload)

	if got := len(c.Snapshot().Viewers()); got != 1 {
		t.Errorf("viewer count = %d after replay, want 1", got)
	}
}

func TestUnknownModelKindIsNoOp(t *testing.T) {
	c := New(singleSiteNetwork(), &fakeProtect{}, &fakeStream{}, testConfig())

	payload, _ := json.Marshal(map[string]string{"id": "x-1", "name": "Mystery"})
	c.onDeviceReplace("doorLock", payload)

	counts := c.Snapshot().Counts()
	for key, n := range counts {
		if key != "sites" && n != 0 {
			t.Errorf("map %q has %d entries after unknown-kind update", key, n)
		}
	}
}

func TestDeviceReplaceWithoutIDDropped(t *testing.T) {
	c := New(singleSiteNetwork(), &fakeProtect{}, &fakeStream{}, testConfig())

	c.onDeviceReplace("camera", json.RawMessage(`{"name":"NoID"}`))

	if got := len(c.Snapshot().Cameras()); got != 0 {
		t.Errorf("camera count = %d, want 0 for payload without id", got)
	}
}

func TestEventCorrelationSmartDetectThenMotion(t *testing.T) {
	c := New(singleSiteNetwork(), &fakeProtect{}, &fakeStream{}, testConfig())

	camPayload, _ := json.Marshal(models.Camera{ID: "camX", Name: "Yard"})
	c.onDeviceReplace("camera", camPayload)

	smart, _ := json.Marshal(models.ProtectEvent{
		ID: "evt-1", Type: "smartDetectZone", Start: 1000,
		Device: "camX", SmartDetectTypes: []string{"person"},
	})
	c.onEventNotify("smartDetectZone", smart)

	cam, _ := c.Snapshot().Camera("camX")
	if cam.LastMotion != 1000 {
		t.Errorf("lastMotion = %d after smartDetectZone, want 1000", cam.LastMotion)
	}
	if len(cam.LastSmartDetectTypes) != 1 || cam.LastSmartDetectTypes[0] != "person" {
		t.Errorf("lastSmartDetectTypes = %v, want [person]", cam.LastSmartDetectTypes)
	}

	motion, _ := json.Marshal(models.ProtectEvent{
		ID: "evt-2", Type: "motion", Start: 2000, Device: "camX",
	})
	c.onEventNotify("motion", motion)

	cam, _ = c.Snapshot().Camera("camX")
	if cam.LastMotion != 2000 {
		t.Errorf("lastMotion = %d after motion, want 2000", cam.LastMotion)
	}
	if len(cam.LastSmartDetectTypes) != 0 {
		t.Errorf("lastSmartDetectTypes = %v, want reset to empty", cam.LastSmartDetectTypes)
	}
}

func TestMotionOnLightSetsLastMotion(t *testing.T) {
	c := New(singleSiteNetwork(), &fakeProtect{}, &fakeStream{}, testConfig())

	lightPayload, _ := json.Marshal(models.Light{ID: "light-9"})
	c.onDeviceReplace("light", lightPayload)

	motion, _ := json.Marshal(models.ProtectEvent{ID: "evt-3", Type: "motion", Start: 5000, Device: "light-9"})
	c.onEventNotify("motion", motion)

	light, _ := c.Snapshot().Light("light-9")
	if light.LastMotion != 5000 {
		t.Errorf("light lastMotion = %d, want 5000", light.LastMotion)
	}
}

func TestRingSetsLastRing(t *testing.T) {
	c := New(singleSiteNetwork(), &fakeProtect{}, &fakeStream{}, testConfig())

	camPayload, _ := json.Marshal(models.Camera{ID: "door-cam"})
	c.onDeviceReplace("camera", camPayload)

	ring, _ := json.Marshal(models.ProtectEvent{ID: "evt-4", Type: "ring", Start: 7000, Camera: "door-cam"})
	c.onEventNotify("ring", ring)

	cam, _ := c.Snapshot().Camera("door-cam")
	if cam.LastRing != 7000 {
		t.Errorf("lastRing = %d, want 7000", cam.LastRing)
	}
}

func TestEventForUnknownDeviceStoredWithoutCorrelation(t *testing.T) {
	c := New(singleSiteNetwork(), &fakeProtect{}, &fakeStream{}, testConfig())

	evt, _ := json.Marshal(models.ProtectEvent{ID: "evt-5", Type: "motion", Start: 9000, Device: "ghost"})
	c.onEventNotify("motion", evt)

	events := c.Snapshot().Events()
	if len(events["motion"]) != 1 {
		t.Errorf("motion events = %d, want 1", len(events["motion"]))
	}
}

func TestEventWithoutIDDropped(t *testing.T) {
	c := New(singleSiteNetwork(), &fakeProtect{}, &fakeStream{}, testConfig())

	c.onEventNotify("motion", json.RawMessage(`{"type":"motion","start":1}`))

	if events := c.Snapshot().Events(); len(events["motion"]) != 0 {
		t.Error("event without id was stored")
	}
}

func TestEventRetentionLimitEvictsOldest(t *testing.T) {
	cfg := testConfig()
	cfg.Sync.EventRetentionLimit = 2
	c := New(singleSiteNetwork(), &fakeProtect{}, &fakeStream{}, cfg)

	for i, start := range []int64{100, 200, 300} {
		evt, _ := json.Marshal(models.ProtectEvent{
			ID: fmt.Sprintf("evt-%d", i), Type: "motion", Start: start,
		})
		c.onEventNotify("motion", evt)
	}

	events := c.Snapshot().Events()["motion"]
	if len(events) != 2 {
		t.Fatalf("event count = %d, want 2", len(events))
	}
	for _, e := range events {
		if e.Start == 100 {
			t.Error("oldest event not evicted")
		}
	}
}

func TestEventRetentionLimitSkipsStaleInsert(t *testing.T) {
	cfg := testConfig()
	cfg.Sync.EventRetentionLimit = 2
	c := New(singleSiteNetwork(), &fakeProtect{}, &fakeStream{}, cfg)

	for i, start := range []int64{200, 300} {
		evt, _ := json.Marshal(models.ProtectEvent{
			ID: fmt.Sprintf("evt-%d", i), Type: "motion", Start: start,
		})
		c.onEventNotify("motion", evt)
	}

	var notifies int
	var mu sync.Mutex
	c.AddListener(func() {
		mu.Lock()
		notifies++
		mu.Unlock()
	})

	// At capacity, an event older than everything retained would be
	// evicted right back out; it must not displace a newer entry, and a
	// discarded event is not worth a listener wakeup.
	stale, _ := json.Marshal(models.ProtectEvent{ID: "evt-stale", Type: "motion", Start: 100})
	c.onEventNotify("motion", stale)

	mu.Lock()
	got := notifies
	mu.Unlock()
	if got != 0 {
		t.Errorf("listener notified %d times for a discarded event, want 0", got)
	}

	findEvent := func(events []models.ProtectEvent, id string) (models.ProtectEvent, bool) {
		for _, e := range events {
			if e.ID == id {
				return e, true
			}
		}
		return models.ProtectEvent{}, false
	}

	events := c.Snapshot().Events()["motion"]
	if len(events) != 2 {
		t.Fatalf("event count = %d, want 2", len(events))
	}
	if _, ok := findEvent(events, "evt-stale"); ok {
		t.Error("stale event displaced a retained one")
	}
	if _, ok := findEvent(events, "evt-0"); !ok {
		t.Error("evt-0 missing after stale insert attempt")
	}

	// Replacing an already-retained identifier is always allowed.
	update, _ := json.Marshal(models.ProtectEvent{ID: "evt-0", Type: "motion", Start: 250})
	c.onEventNotify("motion", update)

	events = c.Snapshot().Events()["motion"]
	evt0, ok := findEvent(events, "evt-0")
	if !ok {
		t.Fatal("evt-0 missing after in-place update")
	}
	if got := evt0.Start; got != 250 {
		t.Errorf("evt-0 start = %d after in-place update, want 250", got)
	}
}

func TestListenersNotifiedAndPanicsContained(t *testing.T) {
	c := New(singleSiteNetwork(), &fakeProtect{}, &fakeStream{}, testConfig())

	var calls int
	var mu sync.Mutex
	c.AddListener(func() { panic("listener blew up") })
	id := c.AddListener(func() {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	camPayload, _ := json.Marshal(models.Camera{ID: "cam-n"})
	c.onDeviceReplace("camera", camPayload)

	mu.Lock()
	got := calls
	mu.Unlock()
	if got != 1 {
		t.Errorf("listener calls = %d, want 1 (sibling panic must not block)", got)
	}

	c.RemoveListener(id)
	c.onDeviceReplace("camera", camPayload)

	mu.Lock()
	got = calls
	mu.Unlock()
	if got != 1 {
		t.Errorf("listener called after removal, calls = %d", got)
	}
}

func TestConcurrentRefreshesDoNotInterleave(t *testing.T) {
	net := singleSiteNetwork()
	c := New(net, nil, nil, testConfig())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Refresh(context.Background(), "")
		}()
	}
	wg.Wait()

	// Every cycle writes the same source data; if cycles serialized
	// correctly the snapshot equals exactly one cycle's output.
	if got := len(c.Snapshot().DevicesForSite("site-1")); got != 2 {
		t.Errorf("device count = %d, want 2", got)
	}
	stats, ok := c.Snapshot().DeviceStats("site-1", "dev-1")
	if !ok || len(stats.Clients) != 2 {
		t.Errorf("dev-1 stats inconsistent after concurrent refreshes: %+v", stats)
	}
}

func TestSiteScopedRefresh(t *testing.T) {
	net := singleSiteNetwork()
	net.sites = append(net.sites, models.Site{ID: "site-2", Name: "branch"})
	net.devices["site-2"] = []models.Device{{ID: "dev-9", Name: "Gateway"}}
	net.clients["site-2"] = nil

	c := New(net, nil, nil, testConfig())

	if err := c.Refresh(context.Background(), "site-2"); err != nil {
		t.Fatalf("scoped refresh failed: %v", err)
	}

	// Only site-2's subtree was walked.
	if got := len(c.Snapshot().DevicesForSite("site-2")); got != 1 {
		t.Errorf("site-2 devices = %d, want 1", got)
	}
	if got := len(c.Snapshot().DevicesForSite("site-1")); got != 0 {
		t.Errorf("site-1 devices = %d, want 0 for scoped refresh", got)
	}
	// But the site list itself is always refreshed.
	if len(c.Snapshot().Sites()) != 2 {
		t.Error("site list not refreshed during scoped refresh")
	}
}

func TestStartStopLifecycle(t *testing.T) {
	net := singleSiteNetwork()
	c := New(net, nil, nil, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := c.Start(ctx); err == nil {
		t.Error("second Start should fail")
	}
	if err := c.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := c.Stop(); err == nil {
		t.Error("second Stop should fail")
	}
}
