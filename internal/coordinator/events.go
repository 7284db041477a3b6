// UniFi Insights - UniFi Network and Protect State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/unifi-insights

/*
events.go - Protect Push-Event Merge

The push feed delivers two callback kinds asynchronously with respect to
the scheduled refresh:

  - device-replace: a full entity record wholesale-replaces the stored
    record for its model kind, key-level. Unknown kinds are dropped at
    the decode boundary, never stored.
  - event-notify: the event is stored at events[type][id] and, when it
    references a known device, kind-specific field correlation is
    applied (motion, smartDetectZone, ring).

Both paths mutate the snapshot under the same lock the bulk pass uses,
so a push replace and a bulk replace of the same key are last-writer-
wins, never interleaved.
*/

package coordinator

import (
	"github.com/goccy/go-json"

	"github.com/tomtom215/unifi-insights/internal/logging"
	"github.com/tomtom215/unifi-insights/internal/metrics"
	"github.com/tomtom215/unifi-insights/internal/models"
)

// onDeviceReplace handles a device-state message from the push feed.
func (c *Coordinator) onDeviceReplace(modelKind string, payload json.RawMessage) {
	kind, ok := models.ParseModelKind(modelKind)
	if !ok {
		logging.Debug().Str("model_kind", modelKind).Msg("Dropping device update for unrecognized model kind")
		metrics.ProtectEventsDropped.Inc()
		return
	}

	if !c.applyDeviceReplace(kind, payload) {
		metrics.ProtectEventsDropped.Inc()
		return
	}

	c.notifyListeners()
}

// applyDeviceReplace decodes the payload for its model kind and
// installs it. Returns false when the payload is malformed or carries
// no identifier.
func (c *Coordinator) applyDeviceReplace(kind models.ModelKind, payload json.RawMessage) bool {
	switch kind {
	case models.ModelCamera:
		var cam models.Camera
		if err := json.Unmarshal(payload, &cam); err != nil || cam.ID == "" {
			logDroppedDevice(kind, err != nil)
			return false
		}
		c.snap.replaceCameras([]models.Camera{cam})

	case models.ModelLight:
		var light models.Light
		if err := json.Unmarshal(payload, &light); err != nil || light.ID == "" {
			logDroppedDevice(kind, err != nil)
			return false
		}
		c.snap.replaceLights([]models.Light{light})

	case models.ModelSensor:
		var sensor models.Sensor
		if err := json.Unmarshal(payload, &sensor); err != nil || sensor.ID == "" {
			logDroppedDevice(kind, err != nil)
			return false
		}
		c.snap.replaceSensors([]models.Sensor{sensor})

	case models.ModelNVR:
		var nvr models.NVR
		if err := json.Unmarshal(payload, &nvr); err != nil || nvr.ID == "" {
			logDroppedDevice(kind, err != nil)
			return false
		}
		c.snap.replaceNVRs([]models.NVR{nvr})

	case models.ModelViewer:
		var viewer models.Viewer
		if err := json.Unmarshal(payload, &viewer); err != nil || viewer.ID == "" {
			logDroppedDevice(kind, err != nil)
			return false
		}
		c.snap.replaceViewers([]models.Viewer{viewer})

	case models.ModelChime:
		var chime models.Chime
		if err := json.Unmarshal(payload, &chime); err != nil || chime.ID == "" {
			logDroppedDevice(kind, err != nil)
			return false
		}
		c.snap.replaceChimes([]models.Chime{chime})
	}

	return true
}

func logDroppedDevice(kind models.ModelKind, malformed bool) {
	if malformed {
		logging.Warn().Str("model_kind", string(kind)).Msg("Dropping malformed device update")
		return
	}
	logging.Debug().Str("model_kind", string(kind)).Msg("Dropping device update without identifier")
}

// onEventNotify handles an event message from the push feed.
func (c *Coordinator) onEventNotify(eventType string, payload json.RawMessage) {
	var event models.ProtectEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		logging.Warn().Err(err).Str("event_type", eventType).Msg("Dropping malformed event")
		metrics.ProtectEventsDropped.Inc()
		return
	}
	if event.ID == "" {
		logging.Debug().Str("event_type", eventType).Msg("Dropping event without identifier")
		metrics.ProtectEventsDropped.Inc()
		return
	}
	if event.Type == "" {
		event.Type = eventType
	}

	if c.snap.storeEvent(event, c.cfg.Sync.EventRetentionLimit) {
		c.notifyListeners()
	}
}

// storeEvent stores an event and applies its correlation rules in one
// critical section, so readers never see the event without its derived
// field updates. Returns false when the event was discarded without
// changing the snapshot.
func (s *Snapshot) storeEvent(e models.ProtectEvent, retentionLimit int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID := s.events[e.Type]
	if byID == nil {
		byID = make(map[string]models.ProtectEvent)
		s.events[e.Type] = byID
	}

	_, replacing := byID[e.ID]
	if !replacing && retentionLimit > 0 && len(byID) >= retentionLimit {
		// At capacity with a new identifier: an event no newer than the
		// oldest retained one would be evicted right back out, so skip
		// the insert instead of churning the map.
		oldestID, oldestStart := oldestEvent(byID)
		if e.Start <= oldestStart {
			return false
		}
		delete(byID, oldestID)
	}
	byID[e.ID] = e

	deviceID := e.DeviceID()
	if deviceID == "" {
		return true
	}

	switch e.Type {
	case models.EventTypeMotion:
		if cam, ok := s.cameras[deviceID]; ok {
			// Plain motion supersedes prior smart-detection classification.
			cam.LastMotion = e.Start
			cam.LastSmartDetectTypes = []string{}
			s.cameras[deviceID] = cam
		} else if light, ok := s.lights[deviceID]; ok {
			light.LastMotion = e.Start
			s.lights[deviceID] = light
		}

	case models.EventTypeSmartDetectZone:
		if cam, ok := s.cameras[deviceID]; ok {
			cam.LastMotion = e.Start
			types := e.SmartDetectTypes
			if types == nil {
				types = []string{}
			}
			cam.LastSmartDetectTypes = types
			s.cameras[deviceID] = cam
		}

	case models.EventTypeRing:
		if cam, ok := s.cameras[deviceID]; ok {
			cam.LastRing = e.Start
			s.cameras[deviceID] = cam
		}
	}
	return true
}

// oldestEvent returns the entry with the smallest start timestamp.
func oldestEvent(byID map[string]models.ProtectEvent) (string, int64) {
	var oldestID string
	var oldestStart int64
	first := true
	for id, e := range byID {
		if first || e.Start < oldestStart {
			oldestID = id
			oldestStart = e.Start
			first = false
		}
	}
	return oldestID, oldestStart
}
