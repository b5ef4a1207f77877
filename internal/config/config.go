// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() builds a Config with defaults; Load layers file and env on top.
// - External errors must be wrapped via this package's sentinel errors.
package config

import (
	"fmt"
	"time"
)

// Storage backends.
const (
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// HTTP configures the serving surface.
	HTTP HTTPConfig `koanf:"http"`

	// Storage configures the keyed durable store.
	Storage StorageConfig `koanf:"storage"`

	// Durability configures the save scheduler and write pipeline.
	Durability DurabilityConfig `koanf:"durability"`

	// Dedupe configures idempotency tracking for retried submissions.
	Dedupe DedupeConfig `koanf:"dedupe"`
}

// HTTPConfig holds the HTTP server knobs.
type HTTPConfig struct {
	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`
}

// StorageConfig selects and tunes the store backend.
type StorageConfig struct {
	// Backend is "badger" for the embedded durable store or "memory".
	Backend string `koanf:"backend"`

	// Path is the badger data directory.
	Path string `koanf:"path"`

	// MaxBytes bounds total stored bytes; 0 means unlimited.
	MaxBytes int64 `koanf:"max_bytes"`

	// SyncWrites makes badger fsync each write.
	SyncWrites bool `koanf:"sync_writes"`

	// GCInterval is how often badger value-log GC runs; 0 disables it.
	GCInterval time.Duration `koanf:"gc_interval"`
}

// DurabilityConfig tunes the save scheduler.
type DurabilityConfig struct {
	// Debounce is the quiet period after a mutation before a save fires.
	Debounce time.Duration `koanf:"debounce"`

	// ActivityWindow is the rolling window the adaptive interval counts
	// mutations over.
	ActivityWindow time.Duration `koanf:"activity_window"`

	// IntervalFloor and IntervalCeiling bound the adaptive periodic
	// interval.
	IntervalFloor   time.Duration `koanf:"interval_floor"`
	IntervalCeiling time.Duration `koanf:"interval_ceiling"`

	// RetryAttempts is the write pipeline's attempt budget per save.
	RetryAttempts int `koanf:"retry_attempts"`

	// RetryBaseDelay seeds the exponential backoff between attempts.
	RetryBaseDelay time.Duration `koanf:"retry_base_delay"`

	// HistoryCapacity bounds the per-session save history ring.
	HistoryCapacity int `koanf:"history_capacity"`
}

// DedupeConfig tunes idempotency tracking.
type DedupeConfig struct {
	// TTL is how long a submission key counts as a duplicate; 0 = forever.
	TTL time.Duration `koanf:"ttl"`

	// MaxEntries bounds tracked keys; 0 or negative means unbounded.
	MaxEntries int `koanf:"max_entries"`
}

// New creates a Config with the engine's defaults.
func New() *Config {
	return &Config{
		LogLevel: "info",
		HTTP: HTTPConfig{
			Addr: ":9080",
		},
		Storage: StorageConfig{
			Backend:    BackendBadger,
			Path:       "data/fitrep",
			MaxBytes:   0,
			SyncWrites: true,
			GCInterval: 5 * time.Minute,
		},
		Durability: DurabilityConfig{
			Debounce:        1200 * time.Millisecond,
			ActivityWindow:  20 * time.Second,
			IntervalFloor:   15 * time.Second,
			IntervalCeiling: 60 * time.Second,
			RetryAttempts:   3,
			RetryBaseDelay:  500 * time.Millisecond,
			HistoryCapacity: 10,
		},
		Dedupe: DedupeConfig{
			TTL:        10 * time.Minute,
			MaxEntries: 50_000,
		},
	}
}

// Validate checks for values the engine cannot run with.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	if c.HTTP.Addr == "" {
		return fmt.Errorf("%w: http.addr must not be empty", ErrInvalidConfig)
	}
	switch c.Storage.Backend {
	case BackendBadger:
		if c.Storage.Path == "" {
			return fmt.Errorf("%w: storage.path required for the badger backend", ErrInvalidConfig)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("%w: storage.backend %q", ErrInvalidConfig, c.Storage.Backend)
	}
	if c.Storage.MaxBytes < 0 {
		return fmt.Errorf("%w: storage.max_bytes must not be negative", ErrInvalidConfig)
	}
	if c.Durability.Debounce <= 0 {
		return fmt.Errorf("%w: durability.debounce must be positive", ErrInvalidConfig)
	}
	if c.Durability.ActivityWindow <= 0 {
		return fmt.Errorf("%w: durability.activity_window must be positive", ErrInvalidConfig)
	}
	if c.Durability.IntervalFloor <= 0 {
		return fmt.Errorf("%w: durability.interval_floor must be positive", ErrInvalidConfig)
	}
	if c.Durability.IntervalCeiling < c.Durability.IntervalFloor {
		return fmt.Errorf("%w: durability.interval_ceiling %s below floor %s",
			ErrInvalidConfig, c.Durability.IntervalCeiling, c.Durability.IntervalFloor)
	}
	if c.Durability.RetryAttempts < 1 {
		return fmt.Errorf("%w: durability.retry_attempts must be at least 1", ErrInvalidConfig)
	}
	if c.Durability.RetryBaseDelay <= 0 {
		return fmt.Errorf("%w: durability.retry_base_delay must be positive", ErrInvalidConfig)
	}
	if c.Durability.HistoryCapacity < 1 {
		return fmt.Errorf("%w: durability.history_capacity must be at least 1", ErrInvalidConfig)
	}
	if c.Dedupe.TTL < 0 {
		return fmt.Errorf("%w: dedupe.ttl must not be negative", ErrInvalidConfig)
	}
	return nil
}
