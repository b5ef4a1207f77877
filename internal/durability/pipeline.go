package durability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/adapters/repository"
	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/domain/snapshot"
	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/domain/types"
	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/pkg/logger"
	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/pkg/metrics"
)

// Save modes, used as metrics labels.
const (
	saveModeFull    = "full"
	saveModeCompact = "compact"
)

// SaveWithRetry runs the write pipeline with exponential backoff, up to the
// configured attempt budget. A clean session reports success without
// touching the store. After exhausting the attempts, exactly one compact
// queue entry is persisted for a later flush, the status turns error, and
// false is returned. A canceled context aborts between attempts without
// queueing.
func (s *Saver) SaveWithRetry(ctx context.Context) bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if !s.dirty {
		// Nothing changed since the last successful save; another write
		// would only duplicate the stored snapshot and grow the history.
		s.mu.Unlock()
		return true
	}
	startEpoch := s.epoch
	s.status.State = types.SaveStateSaving
	s.mu.Unlock()

	var lastErr error
	for attempt := 1; attempt <= s.retryAttempts; attempt++ {
		if attempt > 1 {
			metrics.RecordSaveRetry()
			delay := s.retryBaseDelay << (attempt - 2)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				s.setState(types.SaveStateUnsaved)
				s.log.Warn(ctx, "save retry aborted",
					logger.String("session", s.id), logger.Error(ctx.Err()))
				return false
			}
		}
		warn, err := s.saveOnce(ctx)
		if err == nil {
			if s.finishSuccess(startEpoch, warn) {
				s.requestSave(TriggerRerun)
			}
			return true
		}
		lastErr = err
		s.log.Warn(ctx, "save attempt failed",
			logger.String("session", s.id),
			logger.Int("attempt", attempt),
			logger.Error(err))
	}

	s.enqueueFailed(ctx)
	s.mu.Lock()
	s.status.State = types.SaveStateError
	s.status.LastError = lastErr.Error()
	s.mu.Unlock()
	return false
}

// saveOnce is one pipeline pass: write the full snapshot, and on a quota
// refusal fall back to the compact form. A successful full save appends to
// the history ring; a compact save skips it and surfaces a warning.
func (s *Saver) saveOnce(ctx context.Context) (warn string, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordSaveDuration(float64(time.Since(start).Milliseconds()))
	}()

	snap := s.source.Snapshot(false)
	data, err := snapshot.Marshal(snap)
	if err != nil {
		metrics.RecordSave(saveModeFull, repository.OtherFailure.String())
		return "", err
	}

	key := repository.SessionKey(s.id)
	err = s.store.Put(ctx, key, data)
	res := repository.Classify(err)
	metrics.RecordSave(saveModeFull, res.String())
	switch res {
	case repository.OK:
		s.appendHistory(ctx, snapshot.NewHistoryEntry(snap))
		return "", nil
	case repository.QuotaExceeded:
	default:
		return "", err
	}

	compact := s.source.Snapshot(true)
	cdata, cerr := snapshot.Marshal(compact)
	if cerr != nil {
		metrics.RecordSave(saveModeCompact, repository.OtherFailure.String())
		return "", cerr
	}
	cerr = s.store.Put(ctx, key, cdata)
	cres := repository.Classify(cerr)
	metrics.RecordSave(saveModeCompact, cres.String())
	if cres != repository.OK {
		return "", cerr
	}
	s.log.Warn(ctx, "full snapshot over quota, wrote compact fallback",
		logger.String("session", s.id))
	return WarnStorageFull, nil
}

// finishSuccess settles the status after a successful pipeline pass and
// reports whether mutations arrived mid-write, requiring a follow-up save.
func (s *Saver) finishSuccess(startEpoch uint64, warn string) (redeliver bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.LastSaved = time.Now()
	s.status.Warning = warn
	s.status.LastError = ""
	if s.epoch != startEpoch {
		s.status.State = types.SaveStateUnsaved
		return true
	}
	s.dirty = false
	s.status.State = types.SaveStateSaved
	return false
}

func (s *Saver) setState(state types.SaveState) {
	s.mu.Lock()
	s.status.State = state
	s.mu.Unlock()
}

// appendHistory prepends one entry to the capacity-bounded save history.
// History failures never fail a save; they are logged and dropped.
func (s *Saver) appendHistory(ctx context.Context, entry snapshot.HistoryEntry) {
	key := repository.HistoryKey(s.id)
	var entries []snapshot.HistoryEntry
	data, err := s.store.Get(ctx, key)
	switch {
	case err == nil:
		if uerr := json.Unmarshal(data, &entries); uerr != nil {
			s.log.Warn(ctx, "resetting corrupt save history",
				logger.String("session", s.id), logger.Error(uerr))
			entries = nil
		}
	case errors.Is(err, repository.ErrNotFound):
	default:
		s.log.Warn(ctx, "save history read failed",
			logger.String("session", s.id), logger.Error(err))
	}

	entries = append([]snapshot.HistoryEntry{entry}, entries...)
	if len(entries) > s.historyCap {
		entries = entries[:s.historyCap]
	}
	data, err = json.Marshal(entries)
	if err != nil {
		s.log.Warn(ctx, "save history encode failed",
			logger.String("session", s.id), logger.Error(err))
		return
	}
	if err := s.store.Put(ctx, key, data); err != nil {
		s.log.Warn(ctx, "save history append failed",
			logger.String("session", s.id), logger.Error(err))
		return
	}
	metrics.UpdateHistorySize(len(entries))
}

// enqueueFailed appends one compact queue entry to the persisted FIFO retry
// queue. It runs once per exhausted retry cycle.
func (s *Saver) enqueueFailed(ctx context.Context) {
	entry := snapshot.QueueEntry{
		EnqueuedAt: time.Now().UTC(),
		Snapshot:   s.source.Snapshot(true),
	}
	key := repository.QueueKey(s.id)
	var entries []snapshot.QueueEntry
	if data, err := s.store.Get(ctx, key); err == nil {
		if uerr := json.Unmarshal(data, &entries); uerr != nil {
			s.log.Warn(ctx, "resetting corrupt retry queue",
				logger.String("session", s.id), logger.Error(uerr))
			entries = nil
		}
	}
	entries = append(entries, entry)
	data, err := json.Marshal(entries)
	if err != nil {
		s.log.Error(ctx, "retry queue encode failed",
			logger.String("session", s.id), logger.Error(err))
		return
	}
	if err := s.store.Put(ctx, key, data); err != nil {
		s.log.Error(ctx, "retry queue persist failed",
			logger.String("session", s.id), logger.Error(err))
		return
	}
	metrics.UpdateRetryQueueDepth(len(entries))
	s.log.Info(ctx, "save deferred to retry queue",
		logger.String("session", s.id), logger.Int("depth", len(entries)))
}

// History returns the save history, most recent first.
func (s *Saver) History(ctx context.Context) ([]snapshot.HistoryEntry, error) {
	data, err := s.store.Get(ctx, repository.HistoryKey(s.id))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	var entries []snapshot.HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return entries, nil
}

// QueueDepth returns the number of queued deferred saves.
func (s *Saver) QueueDepth(ctx context.Context) (int, error) {
	data, err := s.store.Get(ctx, repository.QueueKey(s.id))
	if errors.Is(err, repository.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load queue: %w", err)
	}
	var entries []snapshot.QueueEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return 0, fmt.Errorf("decode queue: %w", err)
	}
	return len(entries), nil
}
