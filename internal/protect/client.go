// UniFi Insights - UniFi Network and Protect State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/unifi-insights

/*
client.go - UniFi Protect Integration API Client

REST client for the Protect subsystem proxied by the controller under
/proxy/protect/integration. It bulk-fetches the six recognized device
model kinds, resolves single-device detail fetches, and forwards
device commands (recording mode, HDR, PTZ, chime controls) with the
payload shapes the controller expects.

All requests carry the X-API-Key header, same as the Network client.
*/

package protect

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/unifi-insights/internal/config"
	"github.com/tomtom215/unifi-insights/internal/logging"
	"github.com/tomtom215/unifi-insights/internal/metrics"
	"github.com/tomtom215/unifi-insights/internal/models"
)

// ClientInterface defines the interface for Protect API operations.
type ClientInterface interface {
	GetCameras(ctx context.Context) ([]models.Camera, error)
	GetLights(ctx context.Context) ([]models.Light, error)
	GetSensors(ctx context.Context) ([]models.Sensor, error)
	GetNVRs(ctx context.Context) ([]models.NVR, error)
	GetViewers(ctx context.Context) ([]models.Viewer, error)
	GetChimes(ctx context.Context) ([]models.Chime, error)
	GetCamera(ctx context.Context, id string) (*models.Camera, error)

	SetRecordingMode(ctx context.Context, cameraID, mode string) error
	SetHDRMode(ctx context.Context, cameraID, mode string) error
	SetVideoMode(ctx context.Context, cameraID, mode string) error
	SetMicVolume(ctx context.Context, cameraID string, volume int) error
	SetLightMode(ctx context.Context, lightID, mode, enableAt string) error
	SetLightLevel(ctx context.Context, lightID string, level int) error
	PTZMove(ctx context.Context, cameraID string, pan, tilt, zoom float64) error
	PTZPatrolStart(ctx context.Context, cameraID string, slot int) error
	PTZPatrolStop(ctx context.Context, cameraID string) error
	SetChimeVolume(ctx context.Context, chimeID string, volume int) error
	SetChimeRepeatTimes(ctx context.Context, chimeID string, repeatTimes int) error
	SetChimeRingtone(ctx context.Context, chimeID, ringtoneID string) error
	PlayChimeRingtone(ctx context.Context, chimeID, ringtoneID string, volume int) error
}

// Ensure Client implements ClientInterface
var _ ClientInterface = (*Client)(nil)

// basePath is where the controller proxies the Protect Integration API.
const basePath = "/proxy/protect/integration"

// Client provides access to the Protect Integration API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a Protect Integration API client.
func NewClient(cfg *config.ProtectConfig, host, apiKey string) *Client {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: !cfg.VerifySSL, //nolint:gosec // Self-signed controller certs are the norm
		},
	}

	return &Client{
		baseURL: strings.TrimSuffix(host, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
	}
}

// GetCameras retrieves all cameras, tolerating shape drift in the
// response. A bare-identifier response is resolved with a detail fetch.
func (c *Client) GetCameras(ctx context.Context) ([]models.Camera, error) {
	return getBulk(ctx, c, "cameras", "/v1/cameras", func(id string) (*models.Camera, error) {
		return c.GetCamera(ctx, id)
	})
}

// GetLights retrieves all floodlights.
func (c *Client) GetLights(ctx context.Context) ([]models.Light, error) {
	return getBulk(ctx, c, "lights", "/v1/lights", func(id string) (*models.Light, error) {
		return getDetail[models.Light](ctx, c, "light", "/v1/lights/"+url.PathEscape(id))
	})
}

// GetSensors retrieves all sensors.
func (c *Client) GetSensors(ctx context.Context) ([]models.Sensor, error) {
	return getBulk(ctx, c, "sensors", "/v1/sensors", func(id string) (*models.Sensor, error) {
		return getDetail[models.Sensor](ctx, c, "sensor", "/v1/sensors/"+url.PathEscape(id))
	})
}

// GetNVRs retrieves the NVR record(s). Most deployments have exactly
// one, and some firmware returns it unwrapped.
func (c *Client) GetNVRs(ctx context.Context) ([]models.NVR, error) {
	return getBulk(ctx, c, "nvrs", "/v1/nvrs", func(id string) (*models.NVR, error) {
		return getDetail[models.NVR](ctx, c, "nvr", "/v1/nvrs/"+url.PathEscape(id))
	})
}

// GetViewers retrieves all viewports.
func (c *Client) GetViewers(ctx context.Context) ([]models.Viewer, error) {
	return getBulk(ctx, c, "viewers", "/v1/viewers", func(id string) (*models.Viewer, error) {
		return getDetail[models.Viewer](ctx, c, "viewer", "/v1/viewers/"+url.PathEscape(id))
	})
}

// GetChimes retrieves all chimes.
func (c *Client) GetChimes(ctx context.Context) ([]models.Chime, error) {
	return getBulk(ctx, c, "chimes", "/v1/chimes", func(id string) (*models.Chime, error) {
		return getDetail[models.Chime](ctx, c, "chime", "/v1/chimes/"+url.PathEscape(id))
	})
}

// GetCamera retrieves one camera by identifier.
func (c *Client) GetCamera(ctx context.Context, id string) (*models.Camera, error) {
	return getDetail[models.Camera](ctx, c, "camera", "/v1/cameras/"+url.PathEscape(id))
}

// SetRecordingMode sets a camera's recording mode (always/detections/never).
func (c *Client) SetRecordingMode(ctx context.Context, cameraID, mode string) error {
	return c.patch(ctx, "set_recording_mode", "/v1/cameras/"+url.PathEscape(cameraID), map[string]any{
		"recordingSettings": map[string]any{"mode": mode},
	})
}

// SetHDRMode sets a camera's HDR mode (auto/on/off).
func (c *Client) SetHDRMode(ctx context.Context, cameraID, mode string) error {
	return c.patch(ctx, "set_hdr_mode", "/v1/cameras/"+url.PathEscape(cameraID), map[string]any{
		"hdrMode": mode,
	})
}

// SetVideoMode sets a camera's video mode (default/highFps/sport/slowShutter).
func (c *Client) SetVideoMode(ctx context.Context, cameraID, mode string) error {
	return c.patch(ctx, "set_video_mode", "/v1/cameras/"+url.PathEscape(cameraID), map[string]any{
		"videoMode": mode,
	})
}

// SetMicVolume sets a camera's microphone volume (0-100).
func (c *Client) SetMicVolume(ctx context.Context, cameraID string, volume int) error {
	return c.patch(ctx, "set_mic_volume", "/v1/cameras/"+url.PathEscape(cameraID), map[string]any{
		"micVolume": volume,
	})
}

// SetLightMode sets a floodlight's activation mode (motion/always/off)
// and optional schedule qualifier.
func (c *Client) SetLightMode(ctx context.Context, lightID, mode, enableAt string) error {
	settings := map[string]any{"mode": mode}
	if enableAt != "" {
		settings["enableAt"] = enableAt
	}
	return c.patch(ctx, "set_light_mode", "/v1/lights/"+url.PathEscape(lightID), map[string]any{
		"lightModeSettings": settings,
	})
}

// SetLightLevel sets a floodlight's LED level (1-6).
func (c *Client) SetLightLevel(ctx context.Context, lightID string, level int) error {
	return c.patch(ctx, "set_light_level", "/v1/lights/"+url.PathEscape(lightID), map[string]any{
		"lightDeviceSettings": map[string]any{"ledLevel": level},
	})
}

// PTZMove moves a PTZ camera by relative pan/tilt/zoom deltas.
func (c *Client) PTZMove(ctx context.Context, cameraID string, pan, tilt, zoom float64) error {
	return c.post(ctx, "ptz_move", "/v1/cameras/"+url.PathEscape(cameraID)+"/ptz/move", map[string]any{
		"type": "relative",
		"payload": map[string]any{
			"panPos":  pan,
			"tiltPos": tilt,
			"zoomPos": zoom,
		},
	})
}

// PTZPatrolStart starts a PTZ patrol on the given preset slot.
func (c *Client) PTZPatrolStart(ctx context.Context, cameraID string, slot int) error {
	endpoint := fmt.Sprintf("/v1/cameras/%s/ptz/patrol/start/%d", url.PathEscape(cameraID), slot)
	return c.post(ctx, "ptz_patrol_start", endpoint, nil)
}

// PTZPatrolStop stops a running PTZ patrol.
func (c *Client) PTZPatrolStop(ctx context.Context, cameraID string) error {
	return c.post(ctx, "ptz_patrol_stop", "/v1/cameras/"+url.PathEscape(cameraID)+"/ptz/patrol/stop", nil)
}

// SetChimeVolume sets a chime's base volume (0-100).
func (c *Client) SetChimeVolume(ctx context.Context, chimeID string, volume int) error {
	return c.patch(ctx, "set_chime_volume", "/v1/chimes/"+url.PathEscape(chimeID), map[string]any{
		"volume": volume,
	})
}

// SetChimeRepeatTimes sets how many times a chime repeats its ringtone.
func (c *Client) SetChimeRepeatTimes(ctx context.Context, chimeID string, repeatTimes int) error {
	return c.patch(ctx, "set_chime_repeat_times", "/v1/chimes/"+url.PathEscape(chimeID), map[string]any{
		"repeatTimes": repeatTimes,
	})
}

// SetChimeRingtone sets a chime's configured ringtone.
func (c *Client) SetChimeRingtone(ctx context.Context, chimeID, ringtoneID string) error {
	return c.patch(ctx, "set_chime_ringtone", "/v1/chimes/"+url.PathEscape(chimeID), map[string]any{
		"ringSettings": []map[string]any{{"ringtoneId": ringtoneID}},
	})
}

// PlayChimeRingtone plays a ringtone on a chime immediately.
func (c *Client) PlayChimeRingtone(ctx context.Context, chimeID, ringtoneID string, volume int) error {
	payload := map[string]any{}
	if ringtoneID != "" {
		payload["ringtoneId"] = ringtoneID
	}
	if volume > 0 {
		payload["volume"] = volume
	}
	return c.post(ctx, "play_chime_ringtone", "/v1/chimes/"+url.PathEscape(chimeID)+"/play-speaker", payload)
}

// getBulk fetches a bulk endpoint and decodes whatever shape comes back.
func getBulk[T any](ctx context.Context, c *Client, operation, endpoint string, fetchOne func(id string) (*T, error)) ([]T, error) {
	body, err := c.doRequest(ctx, operation, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	items, shape, err := decodeBulk(operation, body, fetchOne)
	if err != nil {
		return nil, err
	}
	if shape != shapeList {
		logging.Debug().Str("operation", operation).Str("shape", shape.String()).Msg("Bulk response arrived in non-list shape")
	}
	return items, nil
}

// getDetail fetches a single-entity endpoint.
func getDetail[T any](ctx context.Context, c *Client, operation, endpoint string) (*T, error) {
	body, err := c.doRequest(ctx, operation, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	obj := new(T)
	if err := json.Unmarshal(body, obj); err != nil {
		return nil, fmt.Errorf("protect: failed to decode %s response: %w", operation, err)
	}
	return obj, nil
}

// patch submits a PATCH command with a JSON body.
func (c *Client) patch(ctx context.Context, operation, endpoint string, payload map[string]any) error {
	return c.command(ctx, operation, http.MethodPatch, endpoint, payload)
}

// post submits a POST command with an optional JSON body.
func (c *Client) post(ctx context.Context, operation, endpoint string, payload map[string]any) error {
	return c.command(ctx, operation, http.MethodPost, endpoint, payload)
}

func (c *Client) command(ctx context.Context, operation, method, endpoint string, payload map[string]any) error {
	var body []byte
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("protect: failed to encode %s request: %w", operation, err)
		}
		body = encoded
	}
	_, err := c.doRequest(ctx, operation, method, endpoint, body)
	return err
}

// doRequest performs one API call, classifies the response status, and
// returns the raw body.
func (c *Client) doRequest(ctx context.Context, operation, method, endpoint string, payload []byte) ([]byte, error) {
	fullURL := c.baseURL + basePath + endpoint

	var reqBody io.Reader = http.NoBody
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("protect: failed to create %s request: %w", operation, err)
	}

	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordControllerRequest("protect", operation, time.Since(start), "connectivity")
		return nil, connectionError(operation, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := statusError(operation, resp.StatusCode)
		metrics.RecordControllerRequest("protect", operation, time.Since(start), errorType(err))
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.RecordControllerRequest("protect", operation, time.Since(start), "connectivity")
		return nil, connectionError(operation, err)
	}

	metrics.RecordControllerRequest("protect", operation, time.Since(start), "")
	return body, nil
}
