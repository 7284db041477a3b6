// UniFi Insights - UniFi Network and Protect State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/unifi-insights

package unifi

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/unifi-insights/internal/config"
	"github.com/tomtom215/unifi-insights/internal/logging"
	"github.com/tomtom215/unifi-insights/internal/metrics"
	"github.com/tomtom215/unifi-insights/internal/models"
)

// CircuitBreakerClient wraps Client with the circuit breaker pattern to
// stop hammering a controller that is down or overloaded.
//
// DETERMINISM NOTE: The circuit breaker uses real time (via sony/gobreaker)
// for its interval and timeout calculations. This is intentional for
// production resilience: the timing determines when to recover from
// failures, not data integrity. For unit tests, test the wrapped client
// directly.
type CircuitBreakerClient struct {
	client *Client
	cb     *gobreaker.CircuitBreaker[interface{}]
	name   string
}

// Ensure CircuitBreakerClient implements NetworkClientInterface
var _ NetworkClientInterface = (*CircuitBreakerClient)(nil)

// NewCircuitBreakerClient creates a Network API client with circuit breaker.
// Circuit breaker configuration:
// - Max 3 concurrent requests in half-open state
// - 1 minute measurement window
// - 2 minute timeout before attempting recovery
// - Opens after 60% failure rate with minimum 10 requests
//
// Authentication failures do not count toward tripping: a bad API key is
// not a controller outage, and the caller needs to see it immediately.
func NewCircuitBreakerClient(cfg *config.UniFiConfig) *CircuitBreakerClient {
	client := NewClient(cfg)
	cbName := "unifi-network"

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}

			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6

			if shouldTrip {
				logging.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_rate", failureRatio*100).Msg("[CIRCUIT BREAKER] Opening circuit")
			}

			return shouldTrip
		},

		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrAuth)
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)

			logging.Info().Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	return &CircuitBreakerClient{
		client: client,
		cb:     cb,
		name:   cbName,
	}
}

// execute wraps a Network API call with circuit breaker protection.
func (cbc *CircuitBreakerClient) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := cbc.cb.Execute(fn)

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "rejected").Inc()
			logging.Warn().Err(err).Msg("[CIRCUIT BREAKER] Request rejected")
			// An open breaker means the controller is effectively unreachable.
			return nil, fmt.Errorf("%w: %v", ErrConnection, err)
		}
		metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "failure").Inc()
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "success").Inc()
	return result, nil
}

// castResult safely type-casts the circuit breaker result with error checking
func castResult[T any](result interface{}, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// stateToString converts circuit breaker state to string for logging
func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// ValidateAPIKey verifies credentials with circuit breaker protection.
func (cbc *CircuitBreakerClient) ValidateAPIKey(ctx context.Context) error {
	_, err := cbc.execute(func() (interface{}, error) {
		return nil, cbc.client.ValidateAPIKey(ctx)
	})
	return err
}

// GetSites retrieves the site list with circuit breaker protection.
func (cbc *CircuitBreakerClient) GetSites(ctx context.Context) ([]models.Site, error) {
	return castResult[[]models.Site](cbc.execute(func() (interface{}, error) {
		return cbc.client.GetSites(ctx)
	}))
}

// GetDevices retrieves a site's devices with circuit breaker protection.
func (cbc *CircuitBreakerClient) GetDevices(ctx context.Context, siteID string) ([]models.Device, error) {
	return castResult[[]models.Device](cbc.execute(func() (interface{}, error) {
		return cbc.client.GetDevices(ctx, siteID)
	}))
}

// GetDeviceInfo retrieves device detail with circuit breaker protection.
func (cbc *CircuitBreakerClient) GetDeviceInfo(ctx context.Context, siteID, deviceID string) (*models.DeviceInfo, error) {
	return castResult[*models.DeviceInfo](cbc.execute(func() (interface{}, error) {
		return cbc.client.GetDeviceInfo(ctx, siteID, deviceID)
	}))
}

// GetDeviceStats retrieves device statistics with circuit breaker protection.
func (cbc *CircuitBreakerClient) GetDeviceStats(ctx context.Context, siteID, deviceID string) (*models.DeviceStats, error) {
	return castResult[*models.DeviceStats](cbc.execute(func() (interface{}, error) {
		return cbc.client.GetDeviceStats(ctx, siteID, deviceID)
	}))
}

// GetClients retrieves a site's clients with circuit breaker protection.
func (cbc *CircuitBreakerClient) GetClients(ctx context.Context, siteID string) ([]models.Client, error) {
	return castResult[[]models.Client](cbc.execute(func() (interface{}, error) {
		return cbc.client.GetClients(ctx, siteID)
	}))
}

// RestartDevice restarts a device with circuit breaker protection.
func (cbc *CircuitBreakerClient) RestartDevice(ctx context.Context, siteID, deviceID string) error {
	_, err := cbc.execute(func() (interface{}, error) {
		return nil, cbc.client.RestartDevice(ctx, siteID, deviceID)
	})
	return err
}

// PowerCyclePort power-cycles a port with circuit breaker protection.
func (cbc *CircuitBreakerClient) PowerCyclePort(ctx context.Context, siteID, deviceID string, portIdx int) error {
	_, err := cbc.execute(func() (interface{}, error) {
		return nil, cbc.client.PowerCyclePort(ctx, siteID, deviceID, portIdx)
	})
	return err
}
