package repository

import (
	"time"

	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/pkg/logger"
)

// settings bundles the knobs shared by both store backends.
type settings struct {
	maxBytes   int64
	syncWrites bool
	gcInterval time.Duration
	inMemory   bool
	log        logger.Logger
}

func defaultSettings() settings {
	return settings{
		syncWrites: true,
		gcInterval: 5 * time.Minute,
	}
}

// Option applies a configuration option to a store backend.
type Option func(*settings)

// WithMaxBytes sets the byte budget a Put may not exceed. Zero or negative
// means unlimited.
func WithMaxBytes(n int64) Option {
	return func(s *settings) {
		s.maxBytes = n
	}
}

// WithSyncWrites toggles synchronous disk writes on the badger backend.
func WithSyncWrites(sync bool) Option {
	return func(s *settings) {
		s.syncWrites = sync
	}
}

// WithGCInterval sets how often the badger value log is garbage collected.
// Zero disables collection.
func WithGCInterval(interval time.Duration) Option {
	return func(s *settings) {
		s.gcInterval = interval
	}
}

// WithInMemory opens the badger backend without disk persistence.
func WithInMemory() Option {
	return func(s *settings) {
		s.inMemory = true
	}
}

// WithLogger sets a custom logger for the store.
func WithLogger(log logger.Logger) Option {
	return func(s *settings) {
		if log != nil {
			s.log = log
		}
	}
}
