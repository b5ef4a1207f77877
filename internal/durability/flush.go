package durability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/adapters/repository"
	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/domain/snapshot"
	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/pkg/logger"
	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/pkg/metrics"
)

// Queue flush results, used as metrics labels.
const (
	flushResultFlushed  = "flushed"
	flushResultRequeued = "requeued"
)

// FlushResult summarizes one queue flush.
type FlushResult struct {
	Written   int `json:"written"`
	Remaining int `json:"remaining"`
}

// FlushQueue replays this session's deferred saves in FIFO order: successes
// are removed, failures re-persisted for the next flush. At most one flush
// runs at a time; an empty queue is a no-op. A flush that wrote anything
// marks the session dirty so a fresh full snapshot follows.
func (s *Saver) FlushQueue(ctx context.Context) (FlushResult, error) {
	if !s.flushing.CompareAndSwap(false, true) {
		return FlushResult{}, nil
	}
	defer s.flushing.Store(false)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := flushSessionQueue(ctx, s.store, s.id, s.log)
	if err != nil {
		return res, err
	}
	if res.Written > 0 {
		// Queued snapshots are compact and stale by now; schedule a
		// fresh full save over them.
		s.MarkDirty()
	}
	return res, nil
}

// FlushAll flushes every persisted queue in the store except the sessions in
// skip, whose live savers flush for themselves. It is called once at boot
// and on connectivity restore, and returns the number of sessions that had
// at least one entry replayed.
func FlushAll(ctx context.Context, store repository.Store, skip map[string]bool, log logger.Logger) (int, error) {
	if log == nil {
		log = logger.Get().Named("durability")
	}
	keys, err := store.Keys(ctx, repository.QueueKeyPrefix())
	if err != nil {
		return 0, fmt.Errorf("%w: list queues: %w", ErrFlushQueue, err)
	}
	flushed := 0
	for _, key := range keys {
		id, ok := repository.SessionIDFromQueueKey(key)
		if !ok {
			continue
		}
		if skip[id] {
			continue
		}
		res, ferr := flushSessionQueue(ctx, store, id, log)
		if ferr != nil {
			log.Warn(ctx, "queue flush failed",
				logger.String("session", id), logger.Error(ferr))
			continue
		}
		if res.Written > 0 {
			flushed++
		}
	}
	return flushed, nil
}

// flushSessionQueue replays one session's queue strictly in enqueue order.
// Each entry's snapshot is written to the live session key; later entries
// overwrite earlier ones, so the newest queued state wins.
func flushSessionQueue(ctx context.Context, store repository.Store, id string, log logger.Logger) (FlushResult, error) {
	key := repository.QueueKey(id)
	data, err := store.Get(ctx, key)
	if errors.Is(err, repository.ErrNotFound) {
		return FlushResult{}, nil
	}
	if err != nil {
		return FlushResult{}, fmt.Errorf("%w: load: %w", ErrFlushQueue, err)
	}

	var entries []snapshot.QueueEntry
	if uerr := json.Unmarshal(data, &entries); uerr != nil {
		log.Warn(ctx, "dropping corrupt retry queue",
			logger.String("session", id), logger.Error(uerr))
		if derr := store.Delete(ctx, key); derr != nil {
			return FlushResult{}, fmt.Errorf("%w: drop corrupt queue: %w", ErrFlushQueue, derr)
		}
		metrics.UpdateRetryQueueDepth(0)
		return FlushResult{}, nil
	}

	var remaining []snapshot.QueueEntry
	written := 0
	for _, entry := range entries {
		blob, merr := snapshot.Marshal(entry.Snapshot)
		if merr != nil {
			log.Warn(ctx, "dropping unencodable queue entry",
				logger.String("session", id), logger.Error(merr))
			continue
		}
		if perr := store.Put(ctx, repository.SessionKey(id), blob); perr != nil {
			metrics.RecordQueueFlush(flushResultRequeued)
			log.Warn(ctx, "queue entry replay failed",
				logger.String("session", id), logger.Error(perr))
			remaining = append(remaining, entry)
			continue
		}
		metrics.RecordQueueFlush(flushResultFlushed)
		written++
	}

	if len(remaining) == 0 {
		if derr := store.Delete(ctx, key); derr != nil {
			return FlushResult{Written: written}, fmt.Errorf("%w: clear: %w", ErrFlushQueue, derr)
		}
	} else {
		blob, merr := json.Marshal(remaining)
		if merr != nil {
			return FlushResult{Written: written, Remaining: len(remaining)}, fmt.Errorf("%w: encode remainder: %w", ErrFlushQueue, merr)
		}
		if perr := store.Put(ctx, key, blob); perr != nil {
			return FlushResult{Written: written, Remaining: len(remaining)}, fmt.Errorf("%w: re-persist remainder: %w", ErrFlushQueue, perr)
		}
	}
	metrics.UpdateRetryQueueDepth(len(remaining))
	if written > 0 {
		log.Info(ctx, "retry queue flushed",
			logger.String("session", id),
			logger.Int("written", written),
			logger.Int("remaining", len(remaining)))
	}
	return FlushResult{Written: written, Remaining: len(remaining)}, nil
}
