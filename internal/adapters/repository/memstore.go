package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/pkg/metrics"
)

// MemStore is the map-backed backend used by tests and the memory storage
// mode. It enforces the same byte budget as the badger backend.
type MemStore struct {
	mu       sync.RWMutex
	data     map[string][]byte
	used     int64
	maxBytes int64
	closed   bool
}

// NewMemStore creates an empty in-memory store.
func NewMemStore(opts ...Option) *MemStore {
	cfg := defaultSettings()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &MemStore{
		data:     make(map[string][]byte),
		maxBytes: cfg.maxBytes,
	}
}

// Put stores value under key, enforcing the byte budget.
func (s *MemStore) Put(ctx context.Context, key string, value []byte) error {
	start := time.Now()
	err := s.put(ctx, key, value)
	s.record("put", err, start)
	return err
}

func (s *MemStore) put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	var oldSize int64
	if old, ok := s.data[key]; ok {
		oldSize = entrySize(key, old)
	}
	newSize := entrySize(key, value)
	if s.maxBytes > 0 && s.used-oldSize+newSize > s.maxBytes {
		return fmt.Errorf("%w: %d of %d bytes used, entry needs %d",
			ErrQuotaExceeded, s.used, s.maxBytes, newSize)
	}

	s.data[key] = append([]byte(nil), value...)
	s.used += newSize - oldSize
	metrics.UpdateStoreBytes(s.used)
	return nil
}

// Get returns the value stored under key.
func (s *MemStore) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	value, err := s.get(ctx, key)
	s.record("get", err, start)
	return value, err
}

func (s *MemStore) get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	value, ok := s.data[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return append([]byte(nil), value...), nil
}

// Delete removes key. Absent keys are a no-op.
func (s *MemStore) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := s.del(ctx, key)
	s.record("delete", err, start)
	return err
}

func (s *MemStore) del(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if old, ok := s.data[key]; ok {
		s.used -= entrySize(key, old)
		delete(s.data, key)
		metrics.UpdateStoreBytes(s.used)
	}
	return nil
}

// Keys returns all keys with the given prefix in lexical order.
func (s *MemStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("keys %s: %w", prefix, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	var keys []string
	for key := range s.data {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// UsedBytes reports the approximate bytes held against the budget.
func (s *MemStore) UsedBytes(_ context.Context) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.used
}

// Close releases the store.
func (s *MemStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.data = nil
	return nil
}

// record registers metrics for one store operation.
func (s *MemStore) record(op string, err error, start time.Time) {
	result := Classify(err).String()
	if op == "get" && errors.Is(err, ErrNotFound) {
		result = "miss"
	}
	metrics.RecordStoreOp(op, result)
	metrics.RecordStoreLatency(float64(time.Since(start).Milliseconds()))
}
