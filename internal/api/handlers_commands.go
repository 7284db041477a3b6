// UniFi Insights - UniFi Network and Protect State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/unifi-insights

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/unifi-insights/internal/logging"
	"github.com/tomtom215/unifi-insights/internal/protect"
	"github.com/tomtom215/unifi-insights/internal/unifi"
	"github.com/tomtom215/unifi-insights/internal/validation"
)

// maxBodyBytes caps command request bodies. Commands carry a handful of
// scalar fields, so anything larger is garbage.
const maxBodyBytes = 64 * 1024

// decodeJSONBody decodes a JSON request body into dst. An empty body is an
// error; callers with optional bodies must check ContentLength first.
func decodeJSONBody(r *http.Request, dst interface{}) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	defer body.Close()

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// validateRequest validates a struct and writes a 400 response on failure.
// Returns true when the request is valid.
func validateRequest(rw *ResponseWriter, v interface{}) bool {
	if err := validation.ValidateStruct(v); err != nil {
		apiErr := err.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return false
	}
	return true
}

// respondUpstreamError maps controller client errors to API responses.
func respondUpstreamError(rw *ResponseWriter, service string, err error) {
	if errors.Is(err, unifi.ErrAuth) || errors.Is(err, protect.ErrAuth) {
		rw.UpstreamAuthError(service, err)
		return
	}
	rw.ExternalServiceError(service, err)
}

// Refresh triggers a refresh cycle, optionally scoped to one site via the
// request body. The cycle runs in the background; clients observe completion
// through the websocket snapshot_update message or by polling /status.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req RefreshRequest
	if r.ContentLength > 0 {
		if err := decodeJSONBody(r, &req); err != nil {
			rw.BadRequest("invalid request body: " + err.Error())
			return
		}
	}
	if !validateRequest(rw, &req) {
		return
	}

	if req.SiteID != "" {
		if _, ok := h.coord.Snapshot().Site(req.SiteID); !ok {
			rw.NotFound("site not found: " + req.SiteID)
			return
		}
	}

	go func(siteID string) {
		if err := h.coord.Refresh(context.Background(), siteID); err != nil {
			logging.Warn().Err(err).Str("site_id", siteID).Msg("triggered refresh failed")
		}
	}(req.SiteID)

	rw.Accepted(map[string]string{
		"status":  "refresh started",
		"site_id": req.SiteID,
	})
}

// RestartDevice asks the controller to restart a network device.
func (h *Handler) RestartDevice(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	siteID := chi.URLParam(r, "siteID")
	deviceID := chi.URLParam(r, "deviceID")

	if _, ok := h.coord.Snapshot().Device(siteID, deviceID); !ok {
		rw.NotFound("device not found: " + deviceID)
		return
	}

	if err := h.network.RestartDevice(r.Context(), siteID, deviceID); err != nil {
		respondUpstreamError(rw, "network", err)
		return
	}

	logging.Info().Str("site_id", siteID).Str("device_id", deviceID).Msg("device restart requested")
	rw.Accepted(map[string]string{"status": "restart requested"})
}

// PowerCyclePort power-cycles a PoE port on a switch.
func (h *Handler) PowerCyclePort(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	siteID := chi.URLParam(r, "siteID")
	deviceID := chi.URLParam(r, "deviceID")

	var req PowerCyclePortRequest
	if err := decodeJSONBody(r, &req); err != nil {
		rw.BadRequest("invalid request body: " + err.Error())
		return
	}
	if !validateRequest(rw, &req) {
		return
	}

	if _, ok := h.coord.Snapshot().Device(siteID, deviceID); !ok {
		rw.NotFound("device not found: " + deviceID)
		return
	}

	if err := h.network.PowerCyclePort(r.Context(), siteID, deviceID, req.PortIdx); err != nil {
		respondUpstreamError(rw, "network", err)
		return
	}

	logging.Info().
		Str("site_id", siteID).
		Str("device_id", deviceID).
		Int("port_idx", req.PortIdx).
		Msg("port power cycle requested")
	rw.Accepted(map[string]string{"status": "power cycle requested"})
}

// requireProtect writes a 503 when the Protect subsystem is disabled.
// Returns true when Protect is available.
func (h *Handler) requireProtect(rw *ResponseWriter) bool {
	if h.protect == nil {
		rw.ServiceUnavailable("protect subsystem is disabled")
		return false
	}
	return true
}

// SetRecordingMode changes a camera's recording mode.
func (h *Handler) SetRecordingMode(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if !h.requireProtect(rw) {
		return
	}
	id := chi.URLParam(r, "id")

	var req SetRecordingModeRequest
	if err := decodeJSONBody(r, &req); err != nil {
		rw.BadRequest("invalid request body: " + err.Error())
		return
	}
	if !validateRequest(rw, &req) {
		return
	}

	if err := h.protect.SetRecordingMode(r.Context(), id, req.Mode); err != nil {
		respondUpstreamError(rw, "protect", err)
		return
	}

	rw.Success(map[string]string{"mode": req.Mode})
}

// SetHDRMode changes a camera's HDR mode.
func (h *Handler) SetHDRMode(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if !h.requireProtect(rw) {
		return
	}
	id := chi.URLParam(r, "id")

	var req SetHDRModeRequest
	if err := decodeJSONBody(r, &req); err != nil {
		rw.BadRequest("invalid request body: " + err.Error())
		return
	}
	if !validateRequest(rw, &req) {
		return
	}

	if err := h.protect.SetHDRMode(r.Context(), id, req.Mode); err != nil {
		respondUpstreamError(rw, "protect", err)
		return
	}

	rw.Success(map[string]string{"mode": req.Mode})
}

// SetVideoMode changes a camera's video mode.
func (h *Handler) SetVideoMode(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if !h.requireProtect(rw) {
		return
	}
	id := chi.URLParam(r, "id")

	var req SetVideoModeRequest
	if err := decodeJSONBody(r, &req); err != nil {
		rw.BadRequest("invalid request body: " + err.Error())
		return
	}
	if !validateRequest(rw, &req) {
		return
	}

	if err := h.protect.SetVideoMode(r.Context(), id, req.Mode); err != nil {
		respondUpstreamError(rw, "protect", err)
		return
	}

	rw.Success(map[string]string{"mode": req.Mode})
}

// SetMicVolume changes a camera's microphone volume.
func (h *Handler) SetMicVolume(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if !h.requireProtect(rw) {
		return
	}
	id := chi.URLParam(r, "id")

	var req SetMicVolumeRequest
	if err := decodeJSONBody(r, &req); err != nil {
		rw.BadRequest("invalid request body: " + err.Error())
		return
	}
	if !validateRequest(rw, &req) {
		return
	}

	if err := h.protect.SetMicVolume(r.Context(), id, req.Volume); err != nil {
		respondUpstreamError(rw, "protect", err)
		return
	}

	rw.Success(map[string]int{"volume": req.Volume})
}

// SetLightMode changes a light's operating mode.
func (h *Handler) SetLightMode(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if !h.requireProtect(rw) {
		return
	}
	id := chi.URLParam(r, "id")

	var req SetLightModeRequest
	if err := decodeJSONBody(r, &req); err != nil {
		rw.BadRequest("invalid request body: " + err.Error())
		return
	}
	if !validateRequest(rw, &req) {
		return
	}

	if err := h.protect.SetLightMode(r.Context(), id, req.Mode, req.EnableAt); err != nil {
		respondUpstreamError(rw, "protect", err)
		return
	}

	rw.Success(map[string]string{"mode": req.Mode})
}

// SetLightLevel changes a light's LED level.
func (h *Handler) SetLightLevel(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if !h.requireProtect(rw) {
		return
	}
	id := chi.URLParam(r, "id")

	var req SetLightLevelRequest
	if err := decodeJSONBody(r, &req); err != nil {
		rw.BadRequest("invalid request body: " + err.Error())
		return
	}
	if !validateRequest(rw, &req) {
		return
	}

	if err := h.protect.SetLightLevel(r.Context(), id, req.Level); err != nil {
		respondUpstreamError(rw, "protect", err)
		return
	}

	rw.Success(map[string]int{"level": req.Level})
}

// PTZMove moves a PTZ camera relative to its current position.
func (h *Handler) PTZMove(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if !h.requireProtect(rw) {
		return
	}
	id := chi.URLParam(r, "id")

	var req PTZMoveRequest
	if err := decodeJSONBody(r, &req); err != nil {
		rw.BadRequest("invalid request body: " + err.Error())
		return
	}
	if !validateRequest(rw, &req) {
		return
	}

	if err := h.protect.PTZMove(r.Context(), id, req.Pan, req.Tilt, req.Zoom); err != nil {
		respondUpstreamError(rw, "protect", err)
		return
	}

	rw.Accepted(map[string]string{"status": "move requested"})
}

// PTZPatrolStart starts a PTZ patrol slot.
func (h *Handler) PTZPatrolStart(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if !h.requireProtect(rw) {
		return
	}
	id := chi.URLParam(r, "id")

	var req PTZPatrolStartRequest
	if r.ContentLength > 0 {
		if err := decodeJSONBody(r, &req); err != nil {
			rw.BadRequest("invalid request body: " + err.Error())
			return
		}
	}
	if !validateRequest(rw, &req) {
		return
	}

	if err := h.protect.PTZPatrolStart(r.Context(), id, req.Slot); err != nil {
		respondUpstreamError(rw, "protect", err)
		return
	}

	rw.Accepted(map[string]string{"status": "patrol started"})
}

// PTZPatrolStop stops the running PTZ patrol.
func (h *Handler) PTZPatrolStop(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if !h.requireProtect(rw) {
		return
	}
	id := chi.URLParam(r, "id")

	if err := h.protect.PTZPatrolStop(r.Context(), id); err != nil {
		respondUpstreamError(rw, "protect", err)
		return
	}

	rw.Accepted(map[string]string{"status": "patrol stopped"})
}

// SetChimeVolume changes a chime's ring volume.
func (h *Handler) SetChimeVolume(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if !h.requireProtect(rw) {
		return
	}
	id := chi.URLParam(r, "id")

	var req SetChimeVolumeRequest
	if err := decodeJSONBody(r, &req); err != nil {
		rw.BadRequest("invalid request body: " + err.Error())
		return
	}
	if !validateRequest(rw, &req) {
		return
	}

	if err := h.protect.SetChimeVolume(r.Context(), id, req.Volume); err != nil {
		respondUpstreamError(rw, "protect", err)
		return
	}

	rw.Success(map[string]int{"volume": req.Volume})
}

// SetChimeRepeatTimes changes how many times a chime repeats its ringtone.
func (h *Handler) SetChimeRepeatTimes(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if !h.requireProtect(rw) {
		return
	}
	id := chi.URLParam(r, "id")

	var req SetChimeRepeatTimesRequest
	if err := decodeJSONBody(r, &req); err != nil {
		rw.BadRequest("invalid request body: " + err.Error())
		return
	}
	if !validateRequest(rw, &req) {
		return
	}

	if err := h.protect.SetChimeRepeatTimes(r.Context(), id, req.RepeatTimes); err != nil {
		respondUpstreamError(rw, "protect", err)
		return
	}

	rw.Success(map[string]int{"repeat_times": req.RepeatTimes})
}

// SetChimeRingtone assigns a ringtone to a chime.
func (h *Handler) SetChimeRingtone(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if !h.requireProtect(rw) {
		return
	}
	id := chi.URLParam(r, "id")

	var req SetChimeRingtoneRequest
	if err := decodeJSONBody(r, &req); err != nil {
		rw.BadRequest("invalid request body: " + err.Error())
		return
	}
	if !validateRequest(rw, &req) {
		return
	}

	if err := h.protect.SetChimeRingtone(r.Context(), id, req.RingtoneID); err != nil {
		respondUpstreamError(rw, "protect", err)
		return
	}

	rw.Success(map[string]string{"ringtone_id": req.RingtoneID})
}

// PlayChimeRingtone plays a ringtone on a chime once.
func (h *Handler) PlayChimeRingtone(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if !h.requireProtect(rw) {
		return
	}
	id := chi.URLParam(r, "id")

	var req PlayChimeRingtoneRequest
	if err := decodeJSONBody(r, &req); err != nil {
		rw.BadRequest("invalid request body: " + err.Error())
		return
	}
	if !validateRequest(rw, &req) {
		return
	}

	if err := h.protect.PlayChimeRingtone(r.Context(), id, req.RingtoneID, req.Volume); err != nil {
		respondUpstreamError(rw, "protect", err)
		return
	}

	rw.Accepted(map[string]string{"status": "playback requested"})
}
