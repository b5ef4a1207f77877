package service

import (
	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/domain/catalog"
	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/domain/ladder"
	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/domain/types"
)

// TraitView describes the trait grading currently operates on, with the
// display fields the rendering layer needs.
type TraitView struct {
	Ref          types.TraitRef  `json:"ref"`
	SectionTitle string          `json:"section_title"`
	TraitName    string          `json:"trait_name"`
	Anchors      catalog.Anchors `json:"anchors"`
}

// OverrideView describes an active re-evaluation override.
type OverrideView struct {
	Trait         types.TraitRef          `json:"trait"`
	ReturnTo      types.ReturnDestination `json:"return_to"`
	StartingGrade ladder.Grade            `json:"starting_grade"`
}

// SessionView is the full read model of one session: the active trait
// (override-aware), the ladder position, progress, and the save status.
type SessionView struct {
	Meta         types.EvaluationMeta `json:"meta"`
	Mode         types.Mode           `json:"mode"`
	Trait        *TraitView           `json:"trait,omitempty"`
	Rung         ladder.Rung          `json:"rung"`
	RungAnchor   string               `json:"rung_anchor,omitempty"`
	PendingGrade ladder.Grade         `json:"pending_grade,omitempty"`
	// PendingGradeText is the descriptive standard of the pending grade,
	// shown alongside the justification prompt.
	PendingGradeText string           `json:"pending_grade_text,omitempty"`
	Override         *OverrideView    `json:"override,omitempty"`
	Progress         types.Progress   `json:"progress"`
	SaveStatus       types.SaveStatus `json:"save_status"`
}

// view assembles the read model under the session lock.
func (s *Service) view(ms *managedSession) SessionView {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	st := ms.state
	v := SessionView{
		Meta:       st.Meta(),
		Mode:       st.Pointer().Mode,
		Rung:       st.Rung(),
		Progress:   st.Progress(),
		SaveStatus: ms.saver.Status(),
	}
	if grade, ok := st.PendingGrade(); ok {
		v.PendingGrade = grade
	}
	if ov, ok := st.OverrideInfo(); ok {
		v.Override = &OverrideView{
			Trait:         ov.ActiveTrait,
			ReturnTo:      ov.ReturnTo,
			StartingGrade: ov.StartingGrade,
		}
	}
	if ref, err := st.CurrentTrait(); err == nil {
		if tr, sec, ok := s.catalog.Trait(ref); ok {
			v.Trait = &TraitView{
				Ref:          ref,
				SectionTitle: sec.Title,
				TraitName:    tr.Name,
				Anchors:      tr.Anchors,
			}
			v.RungAnchor = tr.Anchors.ForRung(st.Rung())
		}
		if v.PendingGrade != "" {
			if text, terr := s.catalog.GradeText(ref, v.PendingGrade); terr == nil {
				v.PendingGradeText = text
			}
		}
	}
	return v
}

// View returns the read model for one session.
func (s *Service) View(id string) (SessionView, error) {
	ms, err := s.lookup(id)
	if err != nil {
		return SessionView{}, err
	}
	return s.view(ms), nil
}
