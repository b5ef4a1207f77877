// Package dedupe provides idempotency tracking for client-retried
// submissions.
package dedupe

import "time"

// Default deduper configuration constants.
const (
	defaultTTL     = 10 * time.Minute
	defaultMaxSize = 50000
)

// Option applies a configuration option to the in-memory deduper.
type Option func(*inMemoryDeduper)

// WithTTL sets how long a recorded key counts as a duplicate.
// A TTL of 0 means keys never expire.
func WithTTL(ttl time.Duration) Option {
	return func(d *inMemoryDeduper) {
		if ttl >= 0 {
			d.ttl = ttl
		}
	}
}

// WithMaxSize sets the maximum number of keys to keep in memory.
// If maxSize > 0: bounded mode with soonest-to-expire eviction.
// If maxSize <= 0: unbounded mode (no eviction, no size limit).
func WithMaxSize(maxSize int) Option {
	return func(d *inMemoryDeduper) {
		d.maxSize = maxSize
	}
}
