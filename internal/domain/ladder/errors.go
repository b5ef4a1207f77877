package ladder

import "errors"

// Sentinel kinds for ladder errors.
var (
	ErrInvalidRung     = errors.New("invalid ladder rung")
	ErrInvalidDecision = errors.New("invalid ladder decision")
)
