// UniFi Insights - UniFi Network and Protect State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/unifi-insights

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config holds all application configuration.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for all optional settings
//  2. Config File: Optional YAML config file (config.yaml)
//  3. Environment Variables: Override any setting
//
// Config is immutable after Load() and safe for concurrent read access.
type Config struct {
	UniFi   UniFiConfig   `koanf:"unifi"`
	Protect ProtectConfig `koanf:"protect"` // Optional: Protect subsystem (cameras, lights, sensors)
	Sync    SyncConfig    `koanf:"sync"`
	Server  ServerConfig  `koanf:"server"`
	Logging LoggingConfig `koanf:"logging"`
}

// UniFiConfig configures the Network Integration API client.
type UniFiConfig struct {
	// Host is the controller base URL, e.g. https://192.168.1.1.
	Host string `koanf:"host"`

	// APIKey is the controller API key (Settings > Control Plane > API).
	APIKey string `koanf:"api_key"`

	// VerifySSL toggles TLS certificate verification. Controllers ship
	// self-signed certificates, so this defaults to false.
	VerifySSL bool `koanf:"verify_ssl"`

	// Timeout bounds each individual API request.
	Timeout time.Duration `koanf:"timeout"`

	// RequestsPerSecond limits the outgoing request rate in addition to
	// the single-in-flight gate. Zero disables rate limiting.
	RequestsPerSecond float64 `koanf:"requests_per_second"`
}

// ProtectConfig configures the Protect subsystem client.
type ProtectConfig struct {
	Enabled bool `koanf:"enabled"`

	// Host overrides the Protect base URL. Empty means the UniFi host
	// (Protect is reached through the same controller proxy).
	Host string `koanf:"host"`

	// APIKey overrides the Protect API key. Empty means the UniFi key.
	APIKey string `koanf:"api_key"`

	VerifySSL bool          `koanf:"verify_ssl"`
	Timeout   time.Duration `koanf:"timeout"`
}

// SyncConfig configures the coordinator refresh cycle.
type SyncConfig struct {
	// Interval is the scheduled refresh cadence.
	Interval time.Duration `koanf:"interval"`

	// EventRetentionLimit caps the stored push events per event type.
	// Zero mirrors the upstream behavior of unbounded retention.
	EventRetentionLimit int `koanf:"event_retention_limit"`
}

// ServerConfig configures the HTTP projection surface.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// ProtectHost returns the effective Protect base URL.
func (c *Config) ProtectHost() string {
	if c.Protect.Host != "" {
		return c.Protect.Host
	}
	return c.UniFi.Host
}

// ProtectAPIKey returns the effective Protect API key.
func (c *Config) ProtectAPIKey() string {
	if c.Protect.APIKey != "" {
		return c.Protect.APIKey
	}
	return c.UniFi.APIKey
}

// Validate checks the configuration for missing or malformed values.
func (c *Config) Validate() error {
	if c.UniFi.Host == "" {
		return fmt.Errorf("unifi.host is required (set UNIFI_HOST)")
	}
	if err := validateBaseURL("unifi.host", c.UniFi.Host); err != nil {
		return err
	}
	if c.UniFi.APIKey == "" {
		return fmt.Errorf("unifi.api_key is required (set UNIFI_API_KEY)")
	}
	if c.UniFi.Timeout <= 0 {
		return fmt.Errorf("unifi.timeout must be positive, got %s", c.UniFi.Timeout)
	}
	if c.UniFi.RequestsPerSecond < 0 {
		return fmt.Errorf("unifi.requests_per_second must not be negative, got %g", c.UniFi.RequestsPerSecond)
	}

	if c.Protect.Enabled && c.Protect.Host != "" {
		if err := validateBaseURL("protect.host", c.Protect.Host); err != nil {
			return err
		}
	}

	if c.Sync.Interval < time.Second {
		return fmt.Errorf("sync.interval must be at least 1s, got %s", c.Sync.Interval)
	}
	if c.Sync.EventRetentionLimit < 0 {
		return fmt.Errorf("sync.event_retention_limit must not be negative, got %d", c.Sync.EventRetentionLimit)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %s", c.Server.Timeout)
	}

	return nil
}

// validateBaseURL checks that a host setting is an absolute http(s) URL
// without trailing path noise the clients would mis-join.
func validateBaseURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: invalid URL %q: %w", field, raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s: URL %q must use http or https", field, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s: URL %q has no host", field, raw)
	}
	if strings.TrimSuffix(u.Path, "/") != "" {
		return fmt.Errorf("%s: URL %q must not carry a path", field, raw)
	}
	return nil
}
