// Homography Backend - Point Annotation and Homography Bridge Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homography-backend

package homography

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// ErrInvalidPoints is returned for point payloads of the wrong shape.
var ErrInvalidPoints = errors.New("invalid points")

// ValidatePoints checks that raw is a non-empty JSON array whose elements
// are either [x, y] number pairs or {"x": n, "y": n} objects. field names
// the payload in error messages.
func ValidatePoints(field string, raw json.RawMessage) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return fmt.Errorf("%w: %s is required", ErrInvalidPoints, field)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return fmt.Errorf("%w: %s must be an array of points", ErrInvalidPoints, field)
	}
	if items == nil {
		return fmt.Errorf("%w: %s must be an array of points", ErrInvalidPoints, field)
	}
	if len(items) == 0 {
		return fmt.Errorf("%w: %s must contain at least one point", ErrInvalidPoints, field)
	}

	for i, item := range items {
		if !validPoint(item) {
			return fmt.Errorf("%w: %s[%d] must be [x, y] or {\"x\": n, \"y\": n}", ErrInvalidPoints, field, i)
		}
	}
	return nil
}

func validPoint(item json.RawMessage) bool {
	trimmed := bytes.TrimSpace(item)
	if len(trimmed) == 0 {
		return false
	}

	switch trimmed[0] {
	case '[':
		var pair []json.RawMessage
		if err := json.Unmarshal(trimmed, &pair); err != nil {
			return false
		}
		return len(pair) == 2 && isNumber(pair[0]) && isNumber(pair[1])
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return false
		}
		return isNumber(obj["x"]) && isNumber(obj["y"])
	default:
		return false
	}
}

// isNumber accepts JSON number literals only; quoted numbers and null
// are rejected.
func isNumber(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return false
	}
	if c := trimmed[0]; c != '-' && (c < '0' || c > '9') {
		return false
	}
	var f float64
	return json.Unmarshal(trimmed, &f) == nil
}

// EncodePointSet renders {"points": <raw>} without re-encoding the
// numbers, so the stored array is exactly what the client sent.
func EncodePointSet(raw json.RawMessage) ([]byte, error) {
	// goccy's Compact re-emits whatever dst already holds, so compact into
	// an empty buffer first.
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPoints, err)
	}

	out := make([]byte, 0, compact.Len()+len(`{"points":}`))
	out = append(out, `{"points":`...)
	out = append(out, compact.Bytes()...)
	out = append(out, '}')
	return out, nil
}
