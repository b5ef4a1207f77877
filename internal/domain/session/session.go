// Package session owns the evaluation session aggregate: the active trait
// sequence, the pointer, the result ledger, the in-flight ladder walk, and
// the re-evaluation override. All mutation goes through its operations; the
// aggregate itself is not safe for concurrent use and callers serialize
// access per session.
package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/domain/ladder"
	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/domain/types"
)

// NameResolver supplies display names for trait refs. The catalog satisfies
// it; tests use fakes.
type NameResolver interface {
	Names(ref types.TraitRef) (sectionTitle, traitName string, ok bool)
}

// Override redirects grading to a previously finalized trait without moving
// the pointer. It exists only between StartReevaluation and the finalize or
// cancel that destroys it.
type Override struct {
	ActiveTrait   types.TraitRef
	ReturnTo      types.ReturnDestination
	StartingGrade ladder.Grade
}

// Routing tells the caller where to go after a finalize.
type Routing struct {
	// Advanced is true when the pointer moved to the next trait.
	Advanced bool `json:"advanced"`
	// Complete is true once the pointer has passed the last trait.
	Complete bool `json:"complete"`
	// ReturnTo is set when an override finalize routed back out.
	ReturnTo types.ReturnDestination `json:"return_to,omitempty"`
}

// ReviewEntry pairs a ledger entry with its trait ref for review rendering.
type ReviewEntry struct {
	Trait  types.TraitRef    `json:"trait"`
	Result types.GradeResult `json:"result"`
}

// State is the session aggregate.
type State struct {
	meta     types.EvaluationMeta
	sequence []types.TraitRef
	pointer  types.Pointer
	ledger   map[string]types.GradeResult

	rung     ladder.Rung
	pending  *ladder.Grade
	override *Override

	directedComments string
	narrative        string

	resolver NameResolver
}

// New creates a fresh session at the first trait.
func New(meta types.EvaluationMeta, sequence []types.TraitRef, resolver NameResolver) (*State, error) {
	if err := checkSequence(meta, sequence, resolver); err != nil {
		return nil, err
	}
	return &State{
		meta:     meta,
		sequence: append([]types.TraitRef(nil), sequence...),
		pointer:  types.Pointer{Index: 0, Mode: types.ModeAdvancing},
		ledger:   make(map[string]types.GradeResult),
		rung:     ladder.RungB,
		resolver: resolver,
	}, nil
}

// Rehydrate rebuilds a session from persisted structural state. Transient
// state (ladder walk, pending grade, override) restarts clean: a reload
// mid-trait resumes that trait at rung B.
func Rehydrate(
	meta types.EvaluationMeta,
	sequence []types.TraitRef,
	pointer types.Pointer,
	ledger map[string]types.GradeResult,
	directedComments, narrative string,
	resolver NameResolver,
) (*State, error) {
	if err := checkSequence(meta, sequence, resolver); err != nil {
		return nil, err
	}
	if pointer.Index < 0 || pointer.Index > len(sequence) {
		return nil, fmt.Errorf("%w: index %d outside [0,%d]", ErrValidation, pointer.Index, len(sequence))
	}
	if !pointer.Mode.Valid() {
		return nil, fmt.Errorf("%w: mode %q", ErrValidation, string(pointer.Mode))
	}
	known := make(map[string]bool, len(sequence))
	for _, ref := range sequence {
		known[ref.Key()] = true
	}
	entries := make(map[string]types.GradeResult, len(ledger))
	for key, res := range ledger {
		if !known[key] {
			return nil, fmt.Errorf("%w: ledger key %q not in sequence", ErrValidation, key)
		}
		if !res.Grade.Valid() || res.GradeNumber != res.Grade.Number() {
			return nil, fmt.Errorf("%w: ledger entry %q has grade %q number %d", ErrValidation, key, string(res.Grade), res.GradeNumber)
		}
		entries[key] = res
	}
	return &State{
		meta:             meta,
		sequence:         append([]types.TraitRef(nil), sequence...),
		pointer:          pointer,
		ledger:           entries,
		rung:             ladder.RungB,
		directedComments: directedComments,
		narrative:        narrative,
		resolver:         resolver,
	}, nil
}

func checkSequence(meta types.EvaluationMeta, sequence []types.TraitRef, resolver NameResolver) error {
	if meta.SessionID == "" {
		return fmt.Errorf("%w: session id required", ErrValidation)
	}
	if len(sequence) == 0 {
		return fmt.Errorf("%w: empty trait sequence", ErrValidation)
	}
	if resolver == nil {
		return fmt.Errorf("%w: nil name resolver", ErrValidation)
	}
	seen := make(map[string]bool, len(sequence))
	for _, ref := range sequence {
		if ref.Zero() {
			return fmt.Errorf("%w: empty trait ref in sequence", ErrValidation)
		}
		if seen[ref.Key()] {
			return fmt.Errorf("%w: duplicate trait %q in sequence", ErrValidation, ref.Key())
		}
		seen[ref.Key()] = true
	}
	return nil
}

// CurrentTrait returns the trait grading operates on: the override's target
// when one is active, otherwise the trait under the pointer.
func (s *State) CurrentTrait() (types.TraitRef, error) {
	if s.override != nil {
		return s.override.ActiveTrait, nil
	}
	if s.pointer.Index < len(s.sequence) {
		return s.sequence[s.pointer.Index], nil
	}
	if s.pointer.Mode == types.ModeAdvancing {
		return types.TraitRef{}, fmt.Errorf("%w: index %d at end of sequence", ErrOutOfRange, s.pointer.Index)
	}
	return types.TraitRef{}, ErrNoActiveTrait
}

// Rung returns the ladder rung the next decision applies at.
func (s *State) Rung() ladder.Rung { return s.rung }

// PendingGrade returns the terminal grade awaiting justification, if any.
func (s *State) PendingGrade() (ladder.Grade, bool) {
	if s.pending == nil {
		return "", false
	}
	return *s.pending, true
}

// Decide applies one three-way decision to the active trait's ladder walk.
// A terminal outcome is held as the pending grade until FinalizeCurrent
// records it with a justification.
func (s *State) Decide(decision ladder.Decision) (ladder.Outcome, error) {
	if _, err := s.CurrentTrait(); err != nil {
		return ladder.Outcome{}, err
	}
	if s.pending != nil {
		return ladder.Outcome{}, fmt.Errorf("%w: grade %s already resolved, awaiting justification", ErrValidation, string(*s.pending))
	}
	out, err := ladder.Advance(s.rung, decision)
	if err != nil {
		return ladder.Outcome{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if out.Final {
		g := out.Grade
		s.pending = &g
	} else {
		s.rung = out.Next
	}
	return out, nil
}

// ResetTrait abandons the active trait's walk and starts it over at rung B.
func (s *State) ResetTrait() error {
	if _, err := s.CurrentTrait(); err != nil {
		return err
	}
	s.rung = ladder.RungB
	s.pending = nil
	return nil
}

// FinalizeCurrent records the grade for the active trait. Without an
// override the pointer advances and the ladder resets for the next trait;
// with one, the pointer is untouched, the override is destroyed, and the
// routing carries its return destination.
func (s *State) FinalizeCurrent(grade ladder.Grade, justification string) (Routing, error) {
	if !grade.Valid() {
		return Routing{}, fmt.Errorf("%w: grade %q", ErrValidation, string(grade))
	}
	if strings.TrimSpace(justification) == "" {
		return Routing{}, fmt.Errorf("%w: justification required", ErrValidation)
	}
	trait, err := s.CurrentTrait()
	if err != nil {
		if errors.Is(err, ErrNoActiveTrait) {
			return Routing{}, fmt.Errorf("%w: no active trait to finalize", ErrValidation)
		}
		return Routing{}, err
	}
	sectionTitle, traitName, ok := s.resolver.Names(trait)
	if !ok {
		return Routing{}, fmt.Errorf("%w: unknown trait %q", ErrValidation, trait.Key())
	}

	s.ledger[trait.Key()] = types.GradeResult{
		Grade:         grade,
		GradeNumber:   grade.Number(),
		SectionTitle:  sectionTitle,
		TraitName:     traitName,
		Justification: justification,
	}
	s.rung = ladder.RungB
	s.pending = nil

	if s.override == nil {
		s.pointer.Index++
		return Routing{
			Advanced: true,
			Complete: s.pointer.Index == len(s.sequence),
		}, nil
	}

	dest := s.override.ReturnTo
	s.override = nil
	s.restoreMode()
	return Routing{
		Complete: s.pointer.Index == len(s.sequence),
		ReturnTo: dest,
	}, nil
}

// EnterReview switches to review mode. Only valid once every trait has been
// passed.
func (s *State) EnterReview() error {
	if s.pointer.Index != len(s.sequence) {
		return fmt.Errorf("%w: %d of %d traits remain", ErrValidation, len(s.sequence)-s.pointer.Index, len(s.sequence))
	}
	s.pointer.Mode = types.ModeReviewing
	return nil
}

// GoBackOneTrait steps the pointer back to the previous trait and restarts
// its ladder. The previous grade stays in the ledger until overwritten.
func (s *State) GoBackOneTrait() error {
	if s.override != nil {
		return fmt.Errorf("%w: re-evaluation in progress", ErrValidation)
	}
	if s.pointer.Mode != types.ModeAdvancing {
		return fmt.Errorf("%w: not advancing", ErrValidation)
	}
	if s.pointer.Index == 0 {
		return fmt.Errorf("%w: already at the first trait", ErrValidation)
	}
	s.pointer.Index--
	s.rung = ladder.RungB
	s.pending = nil
	return nil
}

// StartReevaluation opens an override for an already graded trait, seeding
// the ladder at the rung its stored grade implies.
func (s *State) StartReevaluation(trait types.TraitRef, returnTo types.ReturnDestination) error {
	if !returnTo.Valid() {
		return fmt.Errorf("%w: return destination %q", ErrValidation, string(returnTo))
	}
	if s.override != nil {
		return fmt.Errorf("%w: re-evaluation already in progress", ErrValidation)
	}
	entry, ok := s.ledger[trait.Key()]
	if !ok {
		return fmt.Errorf("%w: trait %q has no recorded grade", ErrValidation, trait.Key())
	}
	s.override = &Override{
		ActiveTrait:   trait,
		ReturnTo:      returnTo,
		StartingGrade: entry.Grade,
	}
	s.rung = ladder.SeedRung(entry.Grade)
	s.pending = nil
	// The normal grading flow is reused while the override is active.
	s.pointer.Mode = types.ModeAdvancing
	return nil
}

// CancelReevaluation discards the override without touching ledger or
// pointer. Cancelling when none is active is a no-op.
func (s *State) CancelReevaluation() {
	if s.override == nil {
		return
	}
	s.override = nil
	s.rung = ladder.RungB
	s.pending = nil
	s.restoreMode()
}

// restoreMode returns the pointer mode after an override ends.
func (s *State) restoreMode() {
	if s.pointer.Index == len(s.sequence) {
		s.pointer.Mode = types.ModeReviewing
	} else {
		s.pointer.Mode = types.ModeAdvancing
	}
}

// EditJustification overwrites the justification of an existing entry.
func (s *State) EditJustification(trait types.TraitRef, justification string) error {
	if strings.TrimSpace(justification) == "" {
		return fmt.Errorf("%w: justification required", ErrValidation)
	}
	entry, ok := s.ledger[trait.Key()]
	if !ok {
		return fmt.Errorf("%w: trait %q has no recorded grade", ErrValidation, trait.Key())
	}
	entry.Justification = justification
	s.ledger[trait.Key()] = entry
	return nil
}

// SetDirectedComments replaces the directed-comments draft.
func (s *State) SetDirectedComments(text string) { s.directedComments = text }

// SetNarrativeDraft replaces the generated-narrative draft.
func (s *State) SetNarrativeDraft(text string) { s.narrative = text }

// Progress reports overall and section-relative position.
func (s *State) Progress() types.Progress {
	p := types.Progress{
		Index:    s.pointer.Index,
		Total:    len(s.sequence),
		Graded:   len(s.ledger),
		Complete: s.pointer.Index == len(s.sequence),
	}
	trait, err := s.CurrentTrait()
	if err != nil {
		return p
	}
	sectionTitle, _, _ := s.resolver.Names(trait)
	sp := &types.SectionProgress{
		Key:   trait.SectionKey,
		Title: sectionTitle,
	}
	for _, ref := range s.sequence {
		if ref.SectionKey != trait.SectionKey {
			continue
		}
		sp.TraitCount++
		if ref == trait {
			sp.TraitIndex = sp.TraitCount
		}
	}
	p.Section = sp
	return p
}

// Results returns the finalized entries in sequence order.
func (s *State) Results() []ReviewEntry {
	out := make([]ReviewEntry, 0, len(s.ledger))
	for _, ref := range s.sequence {
		if res, ok := s.ledger[ref.Key()]; ok {
			out = append(out, ReviewEntry{Trait: ref, Result: res})
		}
	}
	return out
}

// Upload produces the flat shape the sync layer consumes. The engine never
// performs the upload itself.
func (s *State) Upload() types.UploadPayload {
	payload := types.UploadPayload{Meta: s.meta}
	for _, ref := range s.sequence {
		res, ok := s.ledger[ref.Key()]
		if !ok {
			continue
		}
		payload.Evaluations = append(payload.Evaluations, types.TraitEvaluation{
			Section:       res.SectionTitle,
			Trait:         res.TraitName,
			Grade:         string(res.Grade),
			GradeNumber:   res.GradeNumber,
			Justification: res.Justification,
		})
	}
	return payload
}

// Meta returns the evaluation metadata.
func (s *State) Meta() types.EvaluationMeta { return s.meta }

// Sequence returns a copy of the active trait sequence.
func (s *State) Sequence() []types.TraitRef {
	return append([]types.TraitRef(nil), s.sequence...)
}

// Pointer returns the current pointer.
func (s *State) Pointer() types.Pointer { return s.pointer }

// LedgerCopy returns a copy of the result ledger keyed by composite key.
func (s *State) LedgerCopy() map[string]types.GradeResult {
	out := make(map[string]types.GradeResult, len(s.ledger))
	for k, v := range s.ledger {
		out[k] = v
	}
	return out
}

// OverrideInfo returns the active override, if any.
func (s *State) OverrideInfo() (Override, bool) {
	if s.override == nil {
		return Override{}, false
	}
	return *s.override, true
}

// DirectedComments returns the directed-comments draft.
func (s *State) DirectedComments() string { return s.directedComments }

// NarrativeDraft returns the generated-narrative draft.
func (s *State) NarrativeDraft() string { return s.narrative }
