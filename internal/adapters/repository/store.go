// Package repository provides the keyed durable store behind the write
// pipeline. Failures carry typed sentinels so the pipeline can distinguish
// quota exhaustion from everything else without inspecting error text.
package repository

import (
	"context"
	"strings"
)

// Key prefixes of the persisted session layout. Each session owns one key
// per prefix: its live snapshot, its rolling history window, and its pending
// write-retry queue.
const (
	sessionKeyPrefix = "session:"
	historyKeyPrefix = "history:"
	queueKeyPrefix   = "queue:"
)

// SessionKey returns the key holding a session's live snapshot.
func SessionKey(sessionID string) string { return sessionKeyPrefix + sessionID }

// HistoryKey returns the key holding a session's rolling history window.
func HistoryKey(sessionID string) string { return historyKeyPrefix + sessionID }

// QueueKey returns the key holding a session's persisted retry queue.
func QueueKey(sessionID string) string { return queueKeyPrefix + sessionID }

// QueueKeyPrefix returns the prefix shared by all retry-queue keys, for
// discovering queues left behind by earlier runs.
func QueueKeyPrefix() string { return queueKeyPrefix }

// SessionIDFromQueueKey extracts the session ID from a retry-queue key.
func SessionIDFromQueueKey(key string) (string, bool) {
	id, ok := strings.CutPrefix(key, queueKeyPrefix)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// Store is the keyed durable store contract.
//
// Writes that would exceed a configured byte budget fail with
// ErrQuotaExceeded without touching the stored value; reads of absent keys
// fail with ErrNotFound. Implementations are safe for concurrent use.
type Store interface {
	// Put stores value under key, replacing any existing value.
	Put(ctx context.Context, key string, value []byte) error

	// Get returns the value stored under key.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes key. Deleting an absent key is a no-op.
	Delete(ctx context.Context, key string) error

	// Keys returns all keys with the given prefix in lexical order.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// UsedBytes reports the approximate bytes held against the budget.
	UsedBytes(ctx context.Context) int64

	// Close releases the store. Further operations fail with ErrClosed.
	Close() error
}
