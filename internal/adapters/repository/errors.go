package repository

import "errors"

// Sentinel kinds for store errors.
var (
	// ErrNotFound means no value exists under the requested key.
	ErrNotFound = errors.New("key not found")

	// ErrQuotaExceeded means a write would push the store past its byte
	// budget. Nothing is written when this is returned.
	ErrQuotaExceeded = errors.New("storage quota exceeded")

	// ErrClosed means the store has already been closed.
	ErrClosed = errors.New("store closed")
)

// Result classifies a store outcome so callers branch on a type instead of
// inspecting error text.
type Result int

// Results.
const (
	// OK means the operation succeeded.
	OK Result = iota
	// QuotaExceeded means a write hit the byte budget and was not applied.
	QuotaExceeded
	// OtherFailure covers every remaining failure.
	OtherFailure
)

// String returns the metrics label for the result.
func (r Result) String() string {
	switch r {
	case OK:
		return "ok"
	case QuotaExceeded:
		return "quota"
	default:
		return "failure"
	}
}

// Classify maps an operation error to its Result.
func Classify(err error) Result {
	switch {
	case err == nil:
		return OK
	case errors.Is(err, ErrQuotaExceeded):
		return QuotaExceeded
	default:
		return OtherFailure
	}
}
