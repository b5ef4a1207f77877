package session

import "errors"

// Sentinel kinds for session errors.
var (
	// ErrValidation covers rejected user actions: missing justification,
	// finalizing without an active trait, unknown grades, sequencing misuse.
	// The caller surfaces it for correction; state is never touched.
	ErrValidation = errors.New("validation failed")

	// ErrOutOfRange means the pointer was read past the end of the sequence
	// while still advancing. That is a caller sequencing bug and a hard stop.
	ErrOutOfRange = errors.New("pointer out of range")

	// ErrNoActiveTrait is returned in review mode, where no trait is active
	// unless a re-evaluation override is present.
	ErrNoActiveTrait = errors.New("no active trait")
)
