// UniFi Insights - UniFi Network and Protect State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/unifi-insights

// Package api provides HTTP request validation structs with
// go-playground/validator tags. The structs are validated before any command
// is forwarded to the controller, so malformed input never leaves this layer.
package api

// RefreshRequest is the optional request body for POST /refresh.
// An empty SiteID refreshes every site.
type RefreshRequest struct {
	SiteID string `json:"site_id" validate:"omitempty,max=64"`
}

// PowerCyclePortRequest is the request body for POST power-cycle commands.
// Port indexes are 1-based; 52 covers the largest switch line.
type PowerCyclePortRequest struct {
	PortIdx int `json:"port_idx" validate:"min=1,max=52"`
}

// SetRecordingModeRequest is the request body for camera recording mode changes.
type SetRecordingModeRequest struct {
	Mode string `json:"mode" validate:"required,oneof=always never schedule detections"`
}

// SetHDRModeRequest is the request body for camera HDR mode changes.
type SetHDRModeRequest struct {
	Mode string `json:"mode" validate:"required,oneof=auto always off"`
}

// SetVideoModeRequest is the request body for camera video mode changes.
type SetVideoModeRequest struct {
	Mode string `json:"mode" validate:"required,oneof=default highFps sport slowShutter"`
}

// SetMicVolumeRequest is the request body for camera microphone volume changes.
type SetMicVolumeRequest struct {
	Volume int `json:"volume" validate:"min=0,max=100"`
}

// SetLightModeRequest is the request body for light mode changes.
// EnableAt is only meaningful for motion mode.
type SetLightModeRequest struct {
	Mode     string `json:"mode" validate:"required,oneof=motion always off"`
	EnableAt string `json:"enable_at" validate:"omitempty,oneof=fulltime dark"`
}

// SetLightLevelRequest is the request body for light LED level changes.
type SetLightLevelRequest struct {
	Level int `json:"level" validate:"min=1,max=6"`
}

// PTZMoveRequest is the request body for relative PTZ movement.
// Positions are normalized to the -1..1 range per axis.
type PTZMoveRequest struct {
	Pan  float64 `json:"pan" validate:"min=-1,max=1"`
	Tilt float64 `json:"tilt" validate:"min=-1,max=1"`
	Zoom float64 `json:"zoom" validate:"min=-1,max=1"`
}

// PTZPatrolStartRequest is the request body for starting a PTZ patrol.
type PTZPatrolStartRequest struct {
	Slot int `json:"slot" validate:"min=0,max=9"`
}

// SetChimeVolumeRequest is the request body for chime volume changes.
type SetChimeVolumeRequest struct {
	Volume int `json:"volume" validate:"min=0,max=100"`
}

// SetChimeRepeatTimesRequest is the request body for chime repeat count changes.
type SetChimeRepeatTimesRequest struct {
	RepeatTimes int `json:"repeat_times" validate:"min=1,max=6"`
}

// SetChimeRingtoneRequest is the request body for chime ringtone assignment.
type SetChimeRingtoneRequest struct {
	RingtoneID string `json:"ringtone_id" validate:"required,max=64"`
}

// PlayChimeRingtoneRequest is the request body for playing a ringtone once.
type PlayChimeRingtoneRequest struct {
	RingtoneID string `json:"ringtone_id" validate:"required,max=64"`
	Volume     int    `json:"volume" validate:"min=0,max=100"`
}
