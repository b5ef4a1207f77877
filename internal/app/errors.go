package service

import "errors"

// Sentinel kinds for service errors.
var (
	// ErrSessionNotFound means no live session or stored snapshot exists for
	// the requested ID.
	ErrSessionNotFound = errors.New("session not found")
)
