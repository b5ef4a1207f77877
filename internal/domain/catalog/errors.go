package catalog

import "errors"

// Sentinel kinds for catalog errors.
var (
	ErrParse        = errors.New("catalog parse failed")
	ErrInvalid      = errors.New("catalog invalid")
	ErrUnknownTrait = errors.New("unknown trait")
	ErrUnknownGrade = errors.New("unknown grade")
)
