// Package device holds the error codes shared by the media capture
// primitives (camera, microphone). Implementations wrap platform errors
// into these so callers can pick the right advisory message.
package device

import "errors"

var (
	// ErrNotAllowed means the user denied the permission prompt.
	ErrNotAllowed = errors.New("permission denied")
	// ErrNotFound means no matching capture device exists.
	ErrNotFound = errors.New("no device found")
)
