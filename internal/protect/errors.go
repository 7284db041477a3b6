// UniFi Insights - UniFi Network and Protect State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/unifi-insights

package protect

import (
	"errors"
	"fmt"
)

// Sentinel errors mirroring the Network client taxonomy so the
// coordinator can classify failures from either subsystem the same way.
var (
	// ErrAuth indicates the controller rejected the API key (401/403).
	ErrAuth = errors.New("protect: authentication failed")

	// ErrConnection indicates the controller could not be reached or
	// answered with a transient server-side failure.
	ErrConnection = errors.New("protect: cannot connect to controller")
)

// statusError classifies a non-2xx response into the sentinel taxonomy.
func statusError(operation string, status int) error {
	if status == 401 || status == 403 {
		return fmt.Errorf("%w: %s returned status %d", ErrAuth, operation, status)
	}
	if status >= 500 {
		return fmt.Errorf("%w: %s returned status %d", ErrConnection, operation, status)
	}
	return fmt.Errorf("protect: %s returned unexpected status %d", operation, status)
}

// connectionError wraps ErrConnection with the underlying cause.
func connectionError(operation string, cause error) error {
	return fmt.Errorf("%w: %s: %v", ErrConnection, operation, cause)
}

// errorType returns the metrics label for an error.
func errorType(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAuth):
		return "auth"
	case errors.Is(err, ErrConnection):
		return "connectivity"
	default:
		return "other"
	}
}
