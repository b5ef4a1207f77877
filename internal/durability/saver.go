// Package durability owns when and how session snapshots reach the store:
// the clean/dirty state machine, the debounce and adaptive periodic timers,
// the single-writer save pipeline with retry and compact fallback, and the
// persisted offline retry queue.
package durability

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/adapters/repository"
	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/domain/snapshot"
	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/domain/types"
	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/pkg/logger"
	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/pkg/metrics"
)

// Save trigger origins, used for logging and metrics labels.
const (
	TriggerDebounce = "debounce"
	TriggerInterval = "interval"
	TriggerManual   = "manual"
	TriggerRerun    = "rerun"
)

// WarnStorageFull is surfaced on the save status when a full snapshot hit
// the storage quota and the compact fallback was written instead.
const WarnStorageFull = "storage full, compact snapshot saved"

// SnapshotSource supplies the current persistable state of one session.
// The app layer implements it; the saver never touches the aggregate
// directly.
type SnapshotSource interface {
	Snapshot(compact bool) snapshot.Snapshot
}

// Saver drives saves for a single session. Mutations arrive via MarkDirty;
// the debounce and periodic timers turn them into save triggers consumed by
// one worker goroutine, so no two pipeline writes for the session ever run
// concurrently.
type Saver struct {
	id     string
	store  repository.Store
	source SnapshotSource

	debounceDelay  time.Duration
	activityWindow time.Duration
	intervalFloor  time.Duration
	intervalCeil   time.Duration
	retryAttempts  int
	retryBaseDelay time.Duration
	historyCap     int

	// mu guards the dirty flag, the mutation window, the adaptive interval
	// and the save status.
	mu        sync.Mutex
	dirty     bool
	epoch     uint64
	mutations []time.Time
	interval  time.Duration
	status    types.SaveStatus

	// writeMu serializes pipeline writes; flushing admits one queue flush.
	writeMu  sync.Mutex
	flushing atomic.Bool

	trigger  chan string
	shutdown chan struct{}
	done     chan struct{}
	stopped  atomic.Bool

	debounce *time.Timer
	periodic *time.Timer

	log logger.Logger
}

// NewSaver creates a saver for one session. Run must be called before the
// timers produce saves; the pipeline methods work without it.
func NewSaver(id string, store repository.Store, source SnapshotSource, opts ...Option) *Saver {
	s := &Saver{
		id:             id,
		store:          store,
		source:         source,
		debounceDelay:  defaultDebounce,
		activityWindow: defaultActivityWindow,
		intervalFloor:  defaultIntervalFloor,
		intervalCeil:   defaultIntervalCeil,
		retryAttempts:  defaultRetryAttempts,
		retryBaseDelay: defaultRetryBaseDelay,
		historyCap:     defaultHistoryCap,
		status:         types.SaveStatus{State: types.SaveStateSaved},
		trigger:        make(chan string, 1),
		shutdown:       make(chan struct{}),
		done:           make(chan struct{}),
		log:            logger.Get().Named("saver"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.interval = s.intervalCeil

	// Both timers exist from construction so MarkDirty can reset them
	// before Run starts; the debounce stays stopped until the first
	// mutation.
	s.debounce = time.NewTimer(s.debounceDelay)
	s.debounce.Stop()
	s.periodic = time.NewTimer(s.interval)
	return s
}

// Run consumes timer fires and save triggers until ctx is canceled or
// Shutdown is called.
func (s *Saver) Run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.shutdown:
			return
		case reason := <-s.trigger:
			s.mu.Lock()
			dirty := s.dirty
			s.mu.Unlock()
			if !dirty {
				// A save completed between the trigger and now; the
				// clean state needs no write.
				continue
			}
			if !s.SaveWithRetry(ctx) {
				s.log.Warn(ctx, "scheduled save failed",
					logger.String("session", s.id),
					logger.String("trigger", reason))
			}
		case <-s.debounce.C:
			s.requestSave(TriggerDebounce)
		case <-s.periodic.C:
			s.onPeriodic()
		}
	}
}

// Shutdown stops the worker and waits for it to drain, bounded by ctx.
func (s *Saver) Shutdown(ctx context.Context) error {
	if s.stopped.CompareAndSwap(false, true) {
		close(s.shutdown)
		s.debounce.Stop()
		s.periodic.Stop()
	}
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("saver shutdown timed out: %w", ctx.Err())
	}
}

// MarkDirty records one tracked mutation: the session needs saving, the
// debounce restarts, and the mutation enters the rolling activity window
// the periodic interval adapts to.
func (s *Saver) MarkDirty() {
	now := time.Now()
	s.mu.Lock()
	s.dirty = true
	s.epoch++
	s.mutations = append(s.mutations, now)
	s.pruneLocked(now)
	if s.status.State != types.SaveStateSaving {
		s.status.State = types.SaveStateUnsaved
	}
	s.debounce.Reset(s.debounceDelay)
	s.retuneLocked()
	s.mu.Unlock()
	metrics.RecordDirtyMark()
}

// SaveNow forces an immediate save through the regular pipeline, bypassing
// the debounce. A clean session needs no write and reports success.
func (s *Saver) SaveNow(ctx context.Context) bool {
	if s.stopped.Load() {
		return false
	}
	metrics.RecordSaveTrigger(TriggerManual)
	s.debounce.Stop()
	return s.SaveWithRetry(ctx)
}

// Status returns the current durability indicator.
func (s *Saver) Status() types.SaveStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Interval returns the current adaptive periodic interval.
func (s *Saver) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// requestSave funnels a trigger into the capacity-1 channel. A trigger
// arriving while one is already pending coalesces with it.
func (s *Saver) requestSave(reason string) {
	metrics.RecordSaveTrigger(reason)
	select {
	case s.trigger <- reason:
	default:
	}
}

// onPeriodic handles one baseline timer fire: retune the interval from the
// activity window, restart the timer, and request a save if anything is
// unsaved. A fire with clean state writes nothing.
func (s *Saver) onPeriodic() {
	s.mu.Lock()
	s.pruneLocked(time.Now())
	fire := s.dirty
	next := s.computeIntervalLocked()
	if next != s.interval {
		s.interval = next
		metrics.RecordIntervalChange()
		metrics.UpdateAutosaveInterval(next.Seconds())
	}
	s.periodic.Reset(s.interval)
	s.mu.Unlock()
	if fire {
		s.requestSave(TriggerInterval)
	}
}

// pruneLocked drops mutations that have left the activity window.
func (s *Saver) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.activityWindow)
	keep := s.mutations[:0]
	for _, t := range s.mutations {
		if t.After(cutoff) {
			keep = append(keep, t)
		}
	}
	s.mutations = keep
}

// computeIntervalLocked maps the windowed mutation count to an interval:
// high activity runs at the floor, moderate at the midpoint, idle at the
// ceiling.
func (s *Saver) computeIntervalLocked() time.Duration {
	switch n := len(s.mutations); {
	case n >= highActivityCount:
		return s.intervalFloor
	case n >= moderateActivityCount:
		return (s.intervalFloor + s.intervalCeil) / 2
	default:
		return s.intervalCeil
	}
}

// retuneLocked recomputes the adaptive interval after a mutation and, when
// it changed, restarts the periodic timer with the new value.
func (s *Saver) retuneLocked() {
	next := s.computeIntervalLocked()
	if next == s.interval {
		return
	}
	s.interval = next
	s.periodic.Reset(next)
	metrics.RecordIntervalChange()
	metrics.UpdateAutosaveInterval(next.Seconds())
}
