package model

import "errors"

// Sentinel kinds for submission errors.
var (
	ErrInvalidSubmission = errors.New("invalid submission")
)
