// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"

	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/domain/ladder"
	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/domain/types"
)

// SessionSetup carries the fields needed to open a new evaluation session.
type SessionSetup struct {
	MarineName      string
	MarineRank      string
	PeriodFrom      string
	PeriodTo        string
	Occasion        string
	ReportingSenior bool
}

// Validate checks the setup fields.
func (s SessionSetup) Validate() error {
	if strings.TrimSpace(s.MarineName) == "" {
		return fmt.Errorf("%w: marine name required", ErrInvalidSubmission)
	}
	return nil
}

// DecisionSubmission is one ladder decision for the active trait.
// SubmissionID is an optional client-supplied idempotency key.
type DecisionSubmission struct {
	Decision     ladder.Decision
	SubmissionID string
}

// Validate checks the decision value.
func (s DecisionSubmission) Validate() error {
	if !s.Decision.Valid() {
		return fmt.Errorf("%w: decision %q", ErrInvalidSubmission, string(s.Decision))
	}
	return nil
}

// FinalizeSubmission records the resolved grade with its justification.
type FinalizeSubmission struct {
	Grade         ladder.Grade
	Justification string
}

// Validate checks grade and justification.
func (s FinalizeSubmission) Validate() error {
	if !s.Grade.Valid() {
		return fmt.Errorf("%w: grade %q", ErrInvalidSubmission, string(s.Grade))
	}
	if strings.TrimSpace(s.Justification) == "" {
		return fmt.Errorf("%w: justification required", ErrInvalidSubmission)
	}
	return nil
}

// ReevaluationRequest asks to re-grade an already finalized trait.
type ReevaluationRequest struct {
	Trait    types.TraitRef
	ReturnTo types.ReturnDestination
}

// Validate checks the target trait and destination.
func (s ReevaluationRequest) Validate() error {
	if s.Trait.SectionKey == "" || s.Trait.TraitKey == "" {
		return fmt.Errorf("%w: trait ref required", ErrInvalidSubmission)
	}
	if !s.ReturnTo.Valid() {
		return fmt.Errorf("%w: return destination %q", ErrInvalidSubmission, string(s.ReturnTo))
	}
	return nil
}

// JustificationEdit overwrites the justification of an existing ledger entry.
type JustificationEdit struct {
	Trait         types.TraitRef
	Justification string
}

// Validate checks the target trait and text.
func (s JustificationEdit) Validate() error {
	if s.Trait.SectionKey == "" || s.Trait.TraitKey == "" {
		return fmt.Errorf("%w: trait ref required", ErrInvalidSubmission)
	}
	if strings.TrimSpace(s.Justification) == "" {
		return fmt.Errorf("%w: justification required", ErrInvalidSubmission)
	}
	return nil
}

// CommentsUpdate replaces the large free-text drafts. Nil fields are left
// untouched so the two drafts can be updated independently.
type CommentsUpdate struct {
	DirectedComments *string
	Narrative        *string
}

// Empty reports whether the update carries no change.
func (s CommentsUpdate) Empty() bool {
	return s.DirectedComments == nil && s.Narrative == nil
}
