// Package dedupe provides idempotency tracking for client-retried
// submissions.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Deduper records seen submission keys so retried requests are applied at
// most once.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen and has not expired, false if it
	// was newly recorded. This is the ONLY method for deduplication -
	// thread-safe and atomic.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord removes a key from the seen set, allowing it to be retried.
	// This should only be used when a submission was marked as seen but
	// failed to be applied, so the client's retry is not swallowed.
	Unrecord(ctx context.Context, key string)

	// Size returns the approximate number of tracked keys; expired keys are
	// counted until they are swept.
	Size() int64
}

// inMemoryDeduper implements Deduper with a TTL per key: a key stops being
// a duplicate once its window elapses, matching how long clients retry.
// Expired keys are reclaimed lazily, and the map is bounded by maxSize with
// soonest-to-expire eviction when a sweep cannot make room.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]time.Time // key -> expiry; zero time = never expires
	ttl     time.Duration        // 0 = keys never expire
	maxSize int                  // 0 or negative = unbounded
	size    atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration
// options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		ttl:     defaultTTL,
		maxSize: defaultMaxSize,
	}

	// Apply all options
	for _, opt := range opts {
		opt(d)
	}

	d.seen = make(map[string]time.Time)
	return d
}

// SeenAndRecord atomically checks if key was seen and records it if not.
func (d *inMemoryDeduper) SeenAndRecord(ctx context.Context, key string) bool {
	now := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	if expiry, exists := d.seen[key]; exists {
		if d.ttl == 0 || now.Before(expiry) {
			return true // Already seen inside the window
		}
		// Window elapsed; the key is recordable again
		delete(d.seen, key)
	}

	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		d.sweepLocked(now)
		if len(d.seen) >= d.maxSize {
			d.evictSoonestLocked()
		}
	}

	var expiry time.Time
	if d.ttl > 0 {
		expiry = now.Add(d.ttl)
	}
	d.seen[key] = expiry
	d.size.Store(int64(len(d.seen)))
	return false
}

// Unrecord removes a key from the seen set, allowing it to be retried.
func (d *inMemoryDeduper) Unrecord(ctx context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.seen, key)
	d.size.Store(int64(len(d.seen)))
}

// sweepLocked drops every expired key. Must be called with d.mu held.
func (d *inMemoryDeduper) sweepLocked(now time.Time) {
	if d.ttl == 0 {
		return
	}
	for key, expiry := range d.seen {
		if !now.Before(expiry) {
			delete(d.seen, key)
		}
	}
}

// evictSoonestLocked removes the key closest to expiring to make room for a
// new one. With no TTL the map has no meaningful order and an arbitrary key
// is evicted. Must be called with d.mu held.
func (d *inMemoryDeduper) evictSoonestLocked() {
	var victim string
	var soonest time.Time
	first := true
	for key, expiry := range d.seen {
		if first || expiry.Before(soonest) {
			victim = key
			soonest = expiry
			first = false
		}
	}
	if !first {
		delete(d.seen, victim)
	}
}

// Size returns the approximate number of tracked keys.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
