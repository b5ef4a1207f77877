package durability

import "errors"

// Sentinel kinds for durability errors.
var (
	// ErrStopped is returned when a save is requested after Shutdown.
	ErrStopped = errors.New("saver stopped")

	// ErrFlushQueue marks a queue flush that could not load or re-persist
	// the queue itself; individual entry failures are requeued, not errors.
	ErrFlushQueue = errors.New("queue flush failed")
)
