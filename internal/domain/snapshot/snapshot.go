// Package snapshot converts between the live session aggregate and the JSON
// shapes the durability layer persists: the live snapshot, the bounded save
// history, and the offline retry queue.
package snapshot

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/domain/session"
	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/domain/types"
)

// Snapshot is the persisted form of a session. Structural fields (meta,
// sequence, pointer, ledger) are always present; a compact snapshot drops
// the two free-text drafts to shrink the write when storage is tight.
type Snapshot struct {
	Timestamp        time.Time                    `json:"timestamp"`
	Meta             types.EvaluationMeta         `json:"meta"`
	Sequence         []types.TraitRef             `json:"sequence"`
	Pointer          types.Pointer                `json:"pointer"`
	Ledger           map[string]types.GradeResult `json:"ledger"`
	DirectedComments string                       `json:"directed_comments,omitempty"`
	Narrative        string                       `json:"narrative,omitempty"`
	Compact          bool                         `json:"compact,omitempty"`
}

// Build captures the session's persistable state. The in-flight ladder walk,
// pending grade, and re-evaluation override are deliberately excluded: a
// restore resumes the active trait from scratch.
func Build(st *session.State, compact bool) Snapshot {
	snap := Snapshot{
		Timestamp: time.Now().UTC(),
		Meta:      st.Meta(),
		Sequence:  st.Sequence(),
		Pointer:   st.Pointer(),
		Ledger:    st.LedgerCopy(),
		Compact:   compact,
	}
	if !compact {
		snap.DirectedComments = st.DirectedComments()
		snap.Narrative = st.NarrativeDraft()
	}
	return snap
}

// Restore rebuilds the aggregate from a snapshot. Any structural defect
// (empty session ID or sequence, pointer outside [0,len], unknown mode,
// ledger keys not in the sequence, invalid grades) wraps ErrRestore so the
// caller can fall back to a fresh session.
func Restore(snap Snapshot, resolver session.NameResolver) (*session.State, error) {
	st, err := session.Rehydrate(
		snap.Meta,
		snap.Sequence,
		snap.Pointer,
		snap.Ledger,
		snap.DirectedComments,
		snap.Narrative,
		resolver,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRestore, err)
	}
	return st, nil
}

// Marshal encodes a snapshot for storage.
func Marshal(snap Snapshot) ([]byte, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// Unmarshal decodes a stored snapshot. Corrupt bytes wrap ErrRestore: a
// blob we cannot decode is as unrestorable as one that fails validation.
func Unmarshal(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("%w: decode: %w", ErrRestore, err)
	}
	return snap, nil
}

// HistoryEntry is one line of the bounded save history: enough to show when
// a save happened and how far along the session was, without carrying the
// whole snapshot again.
type HistoryEntry struct {
	ID        string     `json:"id"`
	Timestamp time.Time  `json:"timestamp"`
	Index     int        `json:"index"`
	Mode      types.Mode `json:"mode"`
	Graded    int        `json:"graded"`
	Total     int        `json:"total"`
}

// NewHistoryEntry derives the history line for a freshly written snapshot.
func NewHistoryEntry(snap Snapshot) HistoryEntry {
	return HistoryEntry{
		ID:        uuid.NewString(),
		Timestamp: snap.Timestamp,
		Index:     snap.Pointer.Index,
		Mode:      snap.Pointer.Mode,
		Graded:    len(snap.Ledger),
		Total:     len(snap.Sequence),
	}
}

// QueueEntry is one deferred write in the persisted FIFO retry queue. The
// snapshot is always the compact form.
type QueueEntry struct {
	EnqueuedAt time.Time `json:"enqueued_at"`
	Snapshot   Snapshot  `json:"snapshot"`
}
