// UniFi Insights - UniFi Network and Protect State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/unifi-insights

/*
protect.go - UniFi Protect Entity and Event Types

Types for the Protect subsystem: the six recognized device model kinds
(camera, light, sensor, nvr, viewer, chime) and the push events the
controller delivers over the persistent update feed.

Protect entities are keyed by device identifier only (no site scoping)
and are mutated two ways: wholesale replacement from bulk list fetches
or push device-state messages, and field-level patches applied by the
event-correlation rules (motion, smartDetectZone, ring).

Timestamps on events and last-activity fields are controller epoch
milliseconds, kept as int64 rather than time.Time to avoid lossy
round-trips through the wire format.
*/

package models

// ModelKind identifies a Protect device model kind. Push payloads carry
// it as a string; it is parsed into this closed set at the decode
// boundary and unrecognized kinds are dropped, never stored.
type ModelKind string

const (
	ModelCamera ModelKind = "camera"
	ModelLight  ModelKind = "light"
	ModelSensor ModelKind = "sensor"
	ModelNVR    ModelKind = "nvr"
	ModelViewer ModelKind = "viewer"
	ModelChime  ModelKind = "chime"
)

// ParseModelKind maps a wire model-kind string to the closed ModelKind
// set. ok is false for anything outside the recognized six kinds.
func ParseModelKind(s string) (ModelKind, bool) {
	switch ModelKind(s) {
	case ModelCamera, ModelLight, ModelSensor, ModelNVR, ModelViewer, ModelChime:
		return ModelKind(s), true
	default:
		return "", false
	}
}

// Protect event types with defined correlation rules. Other event types
// are stored but trigger no field correlation.
const (
	EventTypeMotion          = "motion"
	EventTypeSmartDetectZone = "smartDetectZone"
	EventTypeRing            = "ring"
)

// RecordingSettings holds a camera's recording configuration.
type RecordingSettings struct {
	Mode string `json:"mode,omitempty"`
}

// Camera is a Protect camera record.
type Camera struct {
	ID                   string             `json:"id"`
	Name                 string             `json:"name,omitempty"`
	Type                 string             `json:"type,omitempty"`
	Mac                  string             `json:"mac,omitempty"`
	State                string             `json:"state,omitempty"`
	IsConnected          bool               `json:"isConnected,omitempty"`
	LastMotion           int64              `json:"lastMotion,omitempty"`
	LastRing             int64              `json:"lastRing,omitempty"`
	LastSmartDetectTypes []string           `json:"lastSmartDetectTypes,omitempty"`
	RecordingSettings    *RecordingSettings `json:"recordingSettings,omitempty"`
	HDRMode              string             `json:"hdrMode,omitempty"`
	VideoMode            string             `json:"videoMode,omitempty"`
	MicVolume            int                `json:"micVolume,omitempty"`
	FeatureFlags         *CameraFeatures    `json:"featureFlags,omitempty"`
}

// CameraFeatures flags the optional hardware capabilities a camera model
// exposes; the command layer consults them before forwarding setters.
type CameraFeatures struct {
	HasHDR         bool `json:"hasHdr,omitempty"`
	HasMic         bool `json:"hasMic,omitempty"`
	CanOpticalZoom bool `json:"canOpticalZoom,omitempty"`
	IsPTZ          bool `json:"isPtz,omitempty"`
}

// LightModeSettings holds a light's activation configuration.
type LightModeSettings struct {
	Mode     string `json:"mode,omitempty"`
	EnableAt string `json:"enableAt,omitempty"`
}

// LightDeviceSettings holds a light's output configuration.
type LightDeviceSettings struct {
	LEDLevel int `json:"ledLevel,omitempty"`
}

// Light is a Protect floodlight record.
type Light struct {
	ID                  string               `json:"id"`
	Name                string               `json:"name,omitempty"`
	Mac                 string               `json:"mac,omitempty"`
	State               string               `json:"state,omitempty"`
	IsConnected         bool                 `json:"isConnected,omitempty"`
	IsLightOn           bool                 `json:"isLightOn,omitempty"`
	LastMotion          int64                `json:"lastMotion,omitempty"`
	LightModeSettings   *LightModeSettings   `json:"lightModeSettings,omitempty"`
	LightDeviceSettings *LightDeviceSettings `json:"lightDeviceSettings,omitempty"`
}

// Sensor is a Protect multi-sensor record.
type Sensor struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	Mac         string `json:"mac,omitempty"`
	State       string `json:"state,omitempty"`
	IsConnected bool   `json:"isConnected,omitempty"`
	IsOpened    bool   `json:"isOpened,omitempty"`
	BatteryLow  bool   `json:"batteryLow,omitempty"`
}

// NVR is the Protect network video recorder record.
type NVR struct {
	ID                           string `json:"id"`
	Name                         string `json:"name,omitempty"`
	Mac                          string `json:"mac,omitempty"`
	Version                      string `json:"version,omitempty"`
	FirmwareVersion              string `json:"firmwareVersion,omitempty"`
	UptimeMs                     int64  `json:"uptime,omitempty"`
	RecordingRetentionDurationMs int64  `json:"recordingRetentionDurationMs,omitempty"`
}

// Viewer is a Protect viewport record.
type Viewer struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	Mac         string `json:"mac,omitempty"`
	State       string `json:"state,omitempty"`
	IsConnected bool   `json:"isConnected,omitempty"`
	Liveview    string `json:"liveview,omitempty"`
}

// RingSetting pairs a chime's configured ringtone with a camera.
type RingSetting struct {
	CameraID    string `json:"camera,omitempty"`
	RingtoneID  string `json:"ringtoneId,omitempty"`
	RepeatTimes int    `json:"repeatTimes,omitempty"`
	TrackNo     int    `json:"trackNo,omitempty"`
	Volume      int    `json:"volume,omitempty"`
}

// Chime is a Protect doorbell chime record.
type Chime struct {
	ID           string        `json:"id"`
	Name         string        `json:"name,omitempty"`
	Mac          string        `json:"mac,omitempty"`
	State        string        `json:"state,omitempty"`
	IsConnected  bool          `json:"isConnected,omitempty"`
	Volume       int           `json:"volume,omitempty"`
	RepeatTimes  int           `json:"repeatTimes,omitempty"`
	RingSettings []RingSetting `json:"ringSettings,omitempty"`
}

// ProtectEvent is one push event from the Protect update feed, stored at
// (Type, ID). Device or Camera references the originating device when
// the event carries one; correlation rules use whichever is set.
type ProtectEvent struct {
	ID               string   `json:"id"`
	Type             string   `json:"type"`
	Start            int64    `json:"start,omitempty"`
	End              int64    `json:"end,omitempty"`
	Device           string   `json:"device,omitempty"`
	Camera           string   `json:"camera,omitempty"`
	SmartDetectTypes []string `json:"smartDetectTypes,omitempty"`
	Score            int      `json:"score,omitempty"`
}

// DeviceID returns the device reference an event carries, preferring the
// generic Device field over the camera-specific one.
func (e *ProtectEvent) DeviceID() string {
	if e.Device != "" {
		return e.Device
	}
	return e.Camera
}
