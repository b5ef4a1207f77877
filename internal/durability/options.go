package durability

import (
	"time"

	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/pkg/logger"
)

// Default scheduler configuration constants.
const (
	defaultDebounce       = 1200 * time.Millisecond
	defaultActivityWindow = 20 * time.Second
	defaultIntervalFloor  = 15 * time.Second
	defaultIntervalCeil   = 60 * time.Second
	defaultRetryAttempts  = 3
	defaultRetryBaseDelay = 500 * time.Millisecond
	defaultHistoryCap     = 10

	// Mutation counts inside the activity window that select the floor and
	// the intermediate periodic interval.
	highActivityCount     = 10
	moderateActivityCount = 3
)

// Option applies a configuration option to the Saver.
type Option func(*Saver)

// WithDebounce sets the quiet period after a mutation before a save fires.
func WithDebounce(d time.Duration) Option {
	return func(s *Saver) {
		if d > 0 {
			s.debounceDelay = d
		}
	}
}

// WithActivityWindow sets the rolling window the adaptive interval counts
// mutations over.
func WithActivityWindow(d time.Duration) Option {
	return func(s *Saver) {
		if d > 0 {
			s.activityWindow = d
		}
	}
}

// WithIntervalBounds sets the floor and ceiling of the adaptive periodic
// interval. Ignored unless 0 < floor <= ceiling.
func WithIntervalBounds(floor, ceiling time.Duration) Option {
	return func(s *Saver) {
		if floor > 0 && floor <= ceiling {
			s.intervalFloor = floor
			s.intervalCeil = ceiling
		}
	}
}

// WithRetry sets the attempt budget and the backoff base delay.
func WithRetry(attempts int, baseDelay time.Duration) Option {
	return func(s *Saver) {
		if attempts > 0 {
			s.retryAttempts = attempts
		}
		if baseDelay > 0 {
			s.retryBaseDelay = baseDelay
		}
	}
}

// WithHistoryCapacity sets the save-history ring size.
func WithHistoryCapacity(n int) Option {
	return func(s *Saver) {
		if n > 0 {
			s.historyCap = n
		}
	}
}

// WithLogger sets a custom logger for the saver.
func WithLogger(log logger.Logger) Option {
	return func(s *Saver) {
		if log != nil {
			s.log = log
		}
	}
}
