// UniFi Insights - UniFi Network and Protect State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/unifi-insights

/*
decode.go - Defensive Bulk Response Decoding

Protect bulk endpoints are not stable across controller firmware
revisions: the same endpoint has been observed returning a plain JSON
array, a wrapper object carrying the list under a named key, and even a
bare identifier string that requires a secondary detail fetch. Rather
than guessing with interface{} probing at call sites, the response is
classified once into a closed shape kind and each call site handles
every kind explicitly.
*/

package protect

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
)

// bulkShape is the closed set of response shapes a bulk endpoint may take.
type bulkShape int

const (
	shapeList      bulkShape = iota // plain JSON array
	shapeWrapped                    // object with the list under a named key
	shapeSingleID                   // bare string identifier
	shapeMalformed                  // anything else
)

// String returns the shape name for logging.
func (s bulkShape) String() string {
	switch s {
	case shapeList:
		return "list"
	case shapeWrapped:
		return "wrapped"
	case shapeSingleID:
		return "singleID"
	default:
		return "malformed"
	}
}

// wrapperKeys are the keys a wrapper object may carry its list under,
// probed in order.
var wrapperKeys = []string{"data", "items"}

// classifyBulk inspects the first JSON token to classify a bulk response.
func classifyBulk(body []byte) bulkShape {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) == 0 {
		return shapeMalformed
	}
	switch trimmed[0] {
	case '[':
		return shapeList
	case '{':
		return shapeWrapped
	case '"':
		return shapeSingleID
	default:
		return shapeMalformed
	}
}

// decodeBulk decodes a bulk response body into a list of T, handling
// every recognized shape. fetchOne resolves the singleID shape by
// fetching the named item.
func decodeBulk[T any](operation string, body []byte, fetchOne func(id string) (*T, error)) ([]T, bulkShape, error) {
	shape := classifyBulk(body)

	switch shape {
	case shapeList:
		var items []T
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, shapeMalformed, fmt.Errorf("protect: failed to decode %s list: %w", operation, err)
		}
		return items, shape, nil

	case shapeWrapped:
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, shapeMalformed, fmt.Errorf("protect: failed to decode %s wrapper: %w", operation, err)
		}
		for _, key := range wrapperKeys {
			inner, ok := raw[key]
			if !ok {
				continue
			}
			var items []T
			if err := json.Unmarshal(inner, &items); err != nil {
				return nil, shapeMalformed, fmt.Errorf("protect: failed to decode %s wrapper key %q: %w", operation, key, err)
			}
			return items, shape, nil
		}
		// A wrapper object that is itself a single entity decodes as a
		// one-element list.
		var single T
		if err := json.Unmarshal(body, &single); err != nil {
			return nil, shapeMalformed, fmt.Errorf("protect: %s wrapper carries no recognized list key", operation)
		}
		return []T{single}, shape, nil

	case shapeSingleID:
		var id string
		if err := json.Unmarshal(body, &id); err != nil || id == "" {
			return nil, shapeMalformed, fmt.Errorf("protect: failed to decode %s identifier: %v", operation, err)
		}
		if fetchOne == nil {
			return nil, shape, fmt.Errorf("protect: %s returned bare identifier %q with no detail fetch", operation, id)
		}
		item, err := fetchOne(id)
		if err != nil {
			return nil, shape, fmt.Errorf("protect: %s detail fetch for %q failed: %w", operation, id, err)
		}
		return []T{*item}, shape, nil

	default:
		return nil, shapeMalformed, fmt.Errorf("protect: %s response has unrecognized shape", operation)
	}
}
