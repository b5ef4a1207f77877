// Package types contains common types used across the application.
package types

import (
	"time"

	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/domain/ladder"
)

// TraitRef identifies one catalog entry by its section and trait keys.
type TraitRef struct {
	SectionKey string `json:"section_key"`
	TraitKey   string `json:"trait_key"`
}

// Key returns the composite ledger key, "section/trait".
func (r TraitRef) Key() string { return r.SectionKey + "/" + r.TraitKey }

// Zero reports whether the ref is empty.
func (r TraitRef) Zero() bool { return r.SectionKey == "" && r.TraitKey == "" }

// GradeResult is one finalized trait grade with its justification.
type GradeResult struct {
	Grade         ladder.Grade `json:"grade"`
	GradeNumber   int          `json:"grade_number"`
	SectionTitle  string       `json:"section_title"`
	TraitName     string       `json:"trait_name"`
	Justification string       `json:"justification"`
}

// Mode is the session pointer's phase.
type Mode string

// Modes.
const (
	ModeAdvancing Mode = "advancing"
	ModeReviewing Mode = "reviewing"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool { return m == ModeAdvancing || m == ModeReviewing }

// Pointer tracks linear progress through the active trait sequence.
type Pointer struct {
	Index int  `json:"index"`
	Mode  Mode `json:"mode"`
}

// ReturnDestination names where the client routes after a re-evaluation save.
type ReturnDestination string

// Return destinations.
const (
	ReturnToReview           ReturnDestination = "review"
	ReturnToDirectedComments ReturnDestination = "directed_comments"
)

// Valid reports whether d is a known destination.
func (d ReturnDestination) Valid() bool {
	return d == ReturnToReview || d == ReturnToDirectedComments
}

// EvaluationMeta carries the report's identifying fields. It is structural:
// a stored snapshot missing it is not restorable.
type EvaluationMeta struct {
	SessionID       string    `json:"session_id"`
	MarineName      string    `json:"marine_name"`
	MarineRank      string    `json:"marine_rank,omitempty"`
	PeriodFrom      string    `json:"period_from,omitempty"`
	PeriodTo        string    `json:"period_to,omitempty"`
	Occasion        string    `json:"occasion,omitempty"`
	ReportingSenior bool      `json:"reporting_senior"`
	CreatedAt       time.Time `json:"created_at"`
}

// TraitEvaluation is the flat per-trait shape handed to the sync layer.
type TraitEvaluation struct {
	Section       string `json:"section"`
	Trait         string `json:"trait"`
	Grade         string `json:"grade"`
	GradeNumber   int    `json:"grade_number"`
	Justification string `json:"justification"`
}

// UploadPayload bundles the finalized ledger with its metadata for upload.
// The engine never uploads it itself.
type UploadPayload struct {
	Meta        EvaluationMeta    `json:"meta"`
	Evaluations []TraitEvaluation `json:"evaluations"`
}

// SaveState is the UI-facing durability indicator.
type SaveState string

// Save states.
const (
	SaveStateSaved   SaveState = "saved"
	SaveStateUnsaved SaveState = "unsaved"
	SaveStateSaving  SaveState = "saving"
	SaveStateError   SaveState = "error"
)

// SaveStatus is the durability indicator plus its bookkeeping fields.
// LastSaved is zero until the first successful write.
type SaveStatus struct {
	State     SaveState `json:"state"`
	LastSaved time.Time `json:"last_saved,omitempty"`
	Warning   string    `json:"warning,omitempty"`
	LastError string    `json:"last_error,omitempty"`
}

// SectionProgress locates the active trait inside its section.
type SectionProgress struct {
	Key        string `json:"key"`
	Title      string `json:"title"`
	TraitIndex int    `json:"trait_index"` // 1-based position within the section
	TraitCount int    `json:"trait_count"`
}

// Progress is the overall and section-relative progress view.
type Progress struct {
	Index    int              `json:"index"`
	Total    int              `json:"total"`
	Graded   int              `json:"graded"`
	Complete bool             `json:"complete"`
	Section  *SectionProgress `json:"section,omitempty"`
}
