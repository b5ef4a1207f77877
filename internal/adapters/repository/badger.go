package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/pkg/logger"
	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/pkg/metrics"
)

// GC discard ratio for the badger value log.
const gcDiscardRatio = 0.5

// BadgerStore is the embedded durable backend. A configurable byte budget
// models the storage quota of the environment the snapshots ultimately
// target: a Put that would exceed it fails with ErrQuotaExceeded and leaves
// the stored value untouched.
type BadgerStore struct {
	db *badger.DB

	mu       sync.Mutex
	used     int64
	maxBytes int64
	closed   bool

	stopGC chan struct{}
	doneGC chan struct{}

	log logger.Logger
}

// badgerLogger adapts the engine logger to badger's Logger interface.
type badgerLogger struct {
	log logger.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error(context.Background(), fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warn(context.Background(), fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Debug(context.Background(), fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Debug(context.Background(), fmt.Sprintf(format, args...))
}

// NewBadgerStore opens the badger backend at path, creating the directory
// when missing. WithInMemory skips the disk entirely.
func NewBadgerStore(ctx context.Context, path string, opts ...Option) (*BadgerStore, error) {
	cfg := defaultSettings()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.log == nil {
		cfg.log = logger.Get().Named("badger")
	}

	var options badger.Options
	if cfg.inMemory {
		options = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if path == "" {
			return nil, errors.New("badger store requires a path")
		}
		if err := os.MkdirAll(path, 0o750); err != nil {
			return nil, fmt.Errorf("create store directory %s: %w", path, err)
		}
		options = badger.DefaultOptions(path)
	}
	options = options.
		WithSyncWrites(cfg.syncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(&badgerLogger{log: cfg.log})

	db, err := badger.Open(options)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}

	s := &BadgerStore{
		db:       db,
		maxBytes: cfg.maxBytes,
		stopGC:   make(chan struct{}),
		doneGC:   make(chan struct{}),
		log:      cfg.log,
	}

	if err := s.loadUsage(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("scan store usage: %w", err)
	}
	metrics.UpdateStoreBytes(s.used)

	if cfg.gcInterval > 0 && !cfg.inMemory {
		go s.runGC(cfg.gcInterval)
	} else {
		close(s.doneGC)
	}

	s.log.Info(ctx, "badger store opened",
		logger.String("path", path),
		logger.Bool("in_memory", cfg.inMemory),
		logger.Int64("used_bytes", s.used),
		logger.Int64("max_bytes", cfg.maxBytes),
	)
	return s, nil
}

// loadUsage sums existing entry sizes so the budget survives restarts.
func (s *BadgerStore) loadUsage() error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		var total int64
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			total += int64(len(item.Key())) + item.ValueSize()
		}
		s.used = total
		return nil
	})
}

// runGC collects the value log until the store closes.
func (s *BadgerStore) runGC(interval time.Duration) {
	defer close(s.doneGC)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopGC:
			return
		case <-ticker.C:
			err := s.db.RunValueLogGC(gcDiscardRatio)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				s.log.Warn(context.Background(), "badger value log GC failed", logger.Error(err))
			}
		}
	}
}

// entrySize approximates one entry's footprint against the budget.
func entrySize(key string, value []byte) int64 {
	return int64(len(key)) + int64(len(value))
}

// Put stores value under key, enforcing the byte budget.
func (s *BadgerStore) Put(ctx context.Context, key string, value []byte) error {
	start := time.Now()
	err := s.put(ctx, key, value)
	s.record("put", err, start)
	return err
}

func (s *BadgerStore) put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	newSize := entrySize(key, value)
	// The delta is applied only after the transaction commits: a closure
	// that badger re-runs, or a commit that fails after the closure
	// succeeded, must not move the usage counter.
	var delta int64
	err := s.db.Update(func(txn *badger.Txn) error {
		var oldSize int64
		item, err := txn.Get([]byte(key))
		switch {
		case err == nil:
			oldSize = int64(len(item.Key())) + item.ValueSize()
		case errors.Is(err, badger.ErrKeyNotFound):
			// first write for this key
		default:
			return fmt.Errorf("read existing %s: %w", key, err)
		}
		if s.maxBytes > 0 && s.used-oldSize+newSize > s.maxBytes {
			return fmt.Errorf("%w: %d of %d bytes used, entry needs %d",
				ErrQuotaExceeded, s.used, s.maxBytes, newSize)
		}
		if err := txn.Set([]byte(key), value); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
		delta = newSize - oldSize
		return nil
	})
	if err != nil {
		return err
	}
	s.used += delta
	metrics.UpdateStoreBytes(s.used)
	return nil
}

// Get returns the value stored under key.
func (s *BadgerStore) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	value, err := s.get(ctx, key)
	s.record("get", err, start)
	return value, err
}

func (s *BadgerStore) get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	s.mu.Unlock()

	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: %s", ErrNotFound, key)
			}
			return fmt.Errorf("get %s: %w", key, err)
		}
		value, err = item.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("copy %s: %w", key, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Delete removes key. Absent keys are a no-op.
func (s *BadgerStore) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := s.del(ctx, key)
	s.record("delete", err, start)
	return err
}

func (s *BadgerStore) del(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	var delta int64
	err := s.db.Update(func(txn *badger.Txn) error {
		delta = 0
		item, err := txn.Get([]byte(key))
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			return nil
		case err != nil:
			return fmt.Errorf("read existing %s: %w", key, err)
		}
		size := int64(len(item.Key())) + item.ValueSize()
		if err := txn.Delete([]byte(key)); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
		delta = -size
		return nil
	})
	if err != nil {
		return err
	}
	s.used += delta
	metrics.UpdateStoreBytes(s.used)
	return nil
}

// Keys returns all keys with the given prefix in lexical order.
func (s *BadgerStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("keys %s: %w", prefix, err)
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	s.mu.Unlock()

	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("keys %s: %w", prefix, err)
	}
	return keys, nil
}

// UsedBytes reports the approximate bytes held against the budget.
func (s *BadgerStore) UsedBytes(_ context.Context) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.used
}

// Close stops garbage collection and closes the database.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.stopGC)
	<-s.doneGC
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close badger store: %w", err)
	}
	return nil
}

// record registers metrics for one store operation.
func (s *BadgerStore) record(op string, err error, start time.Time) {
	result := Classify(err).String()
	if op == "get" && errors.Is(err, ErrNotFound) {
		result = "miss"
	}
	metrics.RecordStoreOp(op, result)
	metrics.RecordStoreLatency(float64(time.Since(start).Milliseconds()))
}
