// UniFi Insights - UniFi Network and Protect State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/unifi-insights

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router assembles the HTTP routing tree.
type Router struct {
	handler    *Handler
	middleware *Middleware
}

// NewRouter creates a router for the given handler and middleware set.
func NewRouter(handler *Handler, middleware *Middleware) *Router {
	return &Router{handler: handler, middleware: middleware}
}

// Setup builds the chi routing tree.
//
// Read endpoints share a rate limit and per-request Prometheus metrics.
// Command endpoints use a tighter limit. The websocket route skips the
// metrics middleware because the status-capturing response writer does not
// implement http.Hijacker, which the upgrade handshake requires.
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(rt.middleware.CORS())
	r.Use(SecurityHeaders())

	metered := PrometheusMetrics()
	read := chi.Chain(rt.middleware.RateLimit(), metered)
	command := chi.Chain(rt.middleware.RateLimitCommands(), metered)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Health endpoints stay outside rate limiting so orchestrator
		// probes are never throttled.
		r.Route("/health", func(r chi.Router) {
			r.Get("/", rt.handler.Health)
			r.Get("/live", rt.handler.HealthLive)
			r.Get("/ready", rt.handler.HealthReady)
		})

		r.With(rt.middleware.RateLimit()).Get("/ws", rt.handler.WebSocket)

		r.With(read...).Get("/status", rt.handler.Status)
		r.With(command...).Post("/refresh", rt.handler.Refresh)

		r.Route("/sites", func(r chi.Router) {
			r.With(read...).Get("/", rt.handler.Sites)
			r.Route("/{siteID}", func(r chi.Router) {
				r.With(read...).Get("/", rt.handler.Site)
				r.With(read...).Get("/clients", rt.handler.SiteClients)
				r.Route("/devices", func(r chi.Router) {
					r.With(read...).Get("/", rt.handler.SiteDevices)
					r.Route("/{deviceID}", func(r chi.Router) {
						r.With(read...).Get("/", rt.handler.SiteDevice)
						r.With(read...).Get("/statistics", rt.handler.SiteDeviceStatistics)
						r.With(command...).Post("/restart", rt.handler.RestartDevice)
						r.With(command...).Post("/power-cycle", rt.handler.PowerCyclePort)
					})
				})
			})
		})

		r.Route("/protect", func(r chi.Router) {
			r.With(read...).Get("/events", rt.handler.ProtectEvents)
			r.With(read...).Get("/nvrs", rt.handler.ProtectNVRs)
			r.With(read...).Get("/viewers", rt.handler.ProtectViewers)

			r.Route("/cameras", func(r chi.Router) {
				r.With(read...).Get("/", rt.handler.ProtectCameras)
				r.Route("/{id}", func(r chi.Router) {
					r.With(read...).Get("/", rt.handler.ProtectCamera)
					r.With(command...).Post("/recording-mode", rt.handler.SetRecordingMode)
					r.With(command...).Post("/hdr-mode", rt.handler.SetHDRMode)
					r.With(command...).Post("/video-mode", rt.handler.SetVideoMode)
					r.With(command...).Post("/mic-volume", rt.handler.SetMicVolume)
					r.With(command...).Post("/ptz/move", rt.handler.PTZMove)
					r.With(command...).Post("/ptz/patrol/start", rt.handler.PTZPatrolStart)
					r.With(command...).Post("/ptz/patrol/stop", rt.handler.PTZPatrolStop)
				})
			})

			r.Route("/lights", func(r chi.Router) {
				r.With(read...).Get("/", rt.handler.ProtectLights)
				r.Route("/{id}", func(r chi.Router) {
					r.With(read...).Get("/", rt.handler.ProtectLight)
					r.With(command...).Post("/light-mode", rt.handler.SetLightMode)
					r.With(command...).Post("/light-level", rt.handler.SetLightLevel)
				})
			})

			r.Route("/sensors", func(r chi.Router) {
				r.With(read...).Get("/", rt.handler.ProtectSensors)
				r.With(read...).Get("/{id}", rt.handler.ProtectSensor)
			})

			r.Route("/chimes", func(r chi.Router) {
				r.With(read...).Get("/", rt.handler.ProtectChimes)
				r.Route("/{id}", func(r chi.Router) {
					r.With(read...).Get("/", rt.handler.ProtectChime)
					r.With(command...).Post("/volume", rt.handler.SetChimeVolume)
					r.With(command...).Post("/repeat-times", rt.handler.SetChimeRepeatTimes)
					r.With(command...).Post("/ringtone", rt.handler.SetChimeRingtone)
					r.With(command...).Post("/play", rt.handler.PlayChimeRingtone)
				})
			})
		})
	})

	return r
}
