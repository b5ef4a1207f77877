package session_test

import (
	"testing"
	"time"

	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/domain/ladder"
	session "github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/domain/session"
	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeResolver names traits from a fixed table.
type fakeResolver struct {
	names map[string][2]string
}

func (f *fakeResolver) Names(ref types.TraitRef) (string, string, bool) {
	n, ok := f.names[ref.Key()]
	if !ok {
		return "", "", false
	}
	return n[0], n[1], true
}

func testFixture() (types.EvaluationMeta, []types.TraitRef, *fakeResolver) {
	meta := types.EvaluationMeta{
		SessionID:  "sess-1",
		MarineName: "Sgt Doe",
		CreatedAt:  time.Now(),
	}
	seq := []types.TraitRef{
		{SectionKey: "d", TraitKey: "performance"},
		{SectionKey: "d", TraitKey: "proficiency"},
		{SectionKey: "e", TraitKey: "courage"},
	}
	resolver := &fakeResolver{names: map[string][2]string{
		"d/performance": {"Mission Accomplishment", "Performance"},
		"d/proficiency": {"Mission Accomplishment", "Proficiency"},
		"e/courage":     {"Individual Character", "Courage"},
	}}
	return meta, seq, resolver
}

// grade walks the active trait to a terminal grade and finalizes it.
func grade(t *testing.T, st *session.State, justification string, decisions ...ladder.Decision) session.Routing {
	t.Helper()
	var out ladder.Outcome
	var err error
	for _, d := range decisions {
		out, err = st.Decide(d)
		if err != nil {
			t.Fatalf("decide failed: %v", err)
		}
	}
	if !out.Final {
		t.Fatalf("decision path did not finalize")
	}
	routing, err := st.FinalizeCurrent(out.Grade, justification)
	if err != nil {
		t.Fatalf("finalize failed: %v", err)
	}
	return routing
}

func TestNewValidation(t *testing.T) {
	Convey("Given session constructor inputs", t, func() {
		meta, seq, resolver := testFixture()

		Convey("When everything is valid", func() {
			st, err := session.New(meta, seq, resolver)
			So(err, ShouldBeNil)
			So(st, ShouldNotBeNil)
			So(st.Pointer(), ShouldResemble, types.Pointer{Index: 0, Mode: types.ModeAdvancing})
			So(st.Rung(), ShouldEqual, ladder.RungB)
		})

		Convey("When the session id is missing", func() {
			meta.SessionID = ""
			_, err := session.New(meta, seq, resolver)
			So(err, ShouldWrap, session.ErrValidation)
		})

		Convey("When the sequence is empty", func() {
			_, err := session.New(meta, nil, resolver)
			So(err, ShouldWrap, session.ErrValidation)
		})

		Convey("When the sequence repeats a trait", func() {
			dup := append(seq, seq[0])
			_, err := session.New(meta, dup, resolver)
			So(err, ShouldWrap, session.ErrValidation)
		})

		Convey("When the resolver is nil", func() {
			_, err := session.New(meta, seq, nil)
			So(err, ShouldWrap, session.ErrValidation)
		})
	})
}

func TestForwardFlow(t *testing.T) {
	Convey("Given a fresh three-trait session", t, func() {
		meta, seq, resolver := testFixture()
		st, err := session.New(meta, seq, resolver)
		So(err, ShouldBeNil)

		Convey("When grading the first trait up to F", func() {
			routing := grade(t, st, "Ran the range like clockwork.", ladder.Surpasses, ladder.Surpasses, ladder.Meets)

			Convey("Then the pointer advanced and the ladder reset", func() {
				So(routing.Advanced, ShouldBeTrue)
				So(routing.Complete, ShouldBeFalse)
				So(st.Pointer().Index, ShouldEqual, 1)
				So(st.Rung(), ShouldEqual, ladder.RungB)
			})

			Convey("Then the ledger holds one entry with resolved names", func() {
				ledger := st.LedgerCopy()
				So(len(ledger), ShouldEqual, 1)
				res := ledger["d/performance"]
				So(res.Grade, ShouldEqual, ladder.GradeF)
				So(res.GradeNumber, ShouldEqual, 6)
				So(res.SectionTitle, ShouldEqual, "Mission Accomplishment")
				So(res.TraitName, ShouldEqual, "Performance")
			})
		})

		Convey("When a justification is missing", func() {
			_, err := st.Decide(ladder.Meets)
			So(err, ShouldBeNil)
			_, err = st.FinalizeCurrent(ladder.GradeB, "  ")
			So(err, ShouldWrap, session.ErrValidation)
			So(st.Pointer().Index, ShouldEqual, 0)
		})

		Convey("When deciding twice past a terminal outcome", func() {
			_, err := st.Decide(ladder.Meets)
			So(err, ShouldBeNil)
			_, err = st.Decide(ladder.Meets)
			So(err, ShouldWrap, session.ErrValidation)

			Convey("Then resetting the trait reopens the walk", func() {
				So(st.ResetTrait(), ShouldBeNil)
				_, err := st.Decide(ladder.Surpasses)
				So(err, ShouldBeNil)
				So(st.Rung(), ShouldEqual, ladder.RungD)
			})
		})

		Convey("When the whole sequence is graded", func() {
			grade(t, st, "j1", ladder.Meets)
			grade(t, st, "j2", ladder.DoesNotMeet)
			routing := grade(t, st, "j3", ladder.Surpasses, ladder.Meets)

			Convey("Then the final routing reports completion", func() {
				So(routing.Complete, ShouldBeTrue)
				So(st.Pointer().Index, ShouldEqual, 3)
			})

			Convey("Then reading past the end while advancing is out of range", func() {
				_, err := st.CurrentTrait()
				So(err, ShouldWrap, session.ErrOutOfRange)
			})

			Convey("Then review can begin", func() {
				So(st.EnterReview(), ShouldBeNil)
				So(st.Pointer().Mode, ShouldEqual, types.ModeReviewing)
				_, err := st.CurrentTrait()
				So(err, ShouldWrap, session.ErrNoActiveTrait)
			})
		})

		Convey("When review is attempted early", func() {
			So(st.EnterReview(), ShouldWrap, session.ErrValidation)
		})
	})
}

func TestPointerMonotonicity(t *testing.T) {
	Convey("Given a session graded straight through", t, func() {
		meta, seq, resolver := testFixture()
		st, err := session.New(meta, seq, resolver)
		So(err, ShouldBeNil)

		Convey("Then the index never decreases across finalizes", func() {
			last := st.Pointer().Index
			for i := 0; i < len(seq); i++ {
				grade(t, st, "steady", ladder.Meets)
				So(st.Pointer().Index, ShouldBeGreaterThanOrEqualTo, last)
				last = st.Pointer().Index
			}
			So(last, ShouldEqual, len(seq))
		})
	})
}

func TestGoBackOneTrait(t *testing.T) {
	Convey("Given a session past its first trait", t, func() {
		meta, seq, resolver := testFixture()
		st, err := session.New(meta, seq, resolver)
		So(err, ShouldBeNil)
		grade(t, st, "first", ladder.Meets)
		So(st.Pointer().Index, ShouldEqual, 1)

		Convey("When stepping back", func() {
			_, err := st.Decide(ladder.Surpasses)
			So(err, ShouldBeNil)
			So(st.GoBackOneTrait(), ShouldBeNil)

			Convey("Then the pointer moved back and the walk restarted", func() {
				So(st.Pointer().Index, ShouldEqual, 0)
				So(st.Rung(), ShouldEqual, ladder.RungB)
				_, pending := st.PendingGrade()
				So(pending, ShouldBeFalse)
			})

			Convey("Then the earlier grade survives until overwritten", func() {
				So(len(st.LedgerCopy()), ShouldEqual, 1)
				grade(t, st, "revised", ladder.DoesNotMeet)
				So(len(st.LedgerCopy()), ShouldEqual, 1)
				So(st.LedgerCopy()["d/performance"].Grade, ShouldEqual, ladder.GradeA)
			})
		})

		Convey("When stepping back at the start", func() {
			So(st.GoBackOneTrait(), ShouldBeNil)
			So(st.GoBackOneTrait(), ShouldWrap, session.ErrValidation)
		})
	})
}

func TestReevaluationOverride(t *testing.T) {
	Convey("Given a completed session in review", t, func() {
		meta, seq, resolver := testFixture()
		st, err := session.New(meta, seq, resolver)
		So(err, ShouldBeNil)
		grade(t, st, "j1", ladder.Surpasses, ladder.Surpasses, ladder.Meets) // F
		grade(t, st, "j2", ladder.Meets)                                    // B
		grade(t, st, "j3", ladder.Meets)                                    // B
		So(st.EnterReview(), ShouldBeNil)

		target := types.TraitRef{SectionKey: "d", TraitKey: "performance"}

		Convey("When re-evaluating the F-graded trait", func() {
			So(st.StartReevaluation(target, types.ReturnToReview), ShouldBeNil)

			Convey("Then the override is seeded at the implied rung", func() {
				ov, ok := st.OverrideInfo()
				So(ok, ShouldBeTrue)
				So(ov.ActiveTrait, ShouldResemble, target)
				So(ov.StartingGrade, ShouldEqual, ladder.GradeF)
				So(st.Rung(), ShouldEqual, ladder.RungF)
				So(st.Pointer().Mode, ShouldEqual, types.ModeAdvancing)
			})

			Convey("Then the current trait is the override target", func() {
				cur, err := st.CurrentTrait()
				So(err, ShouldBeNil)
				So(cur, ShouldResemble, target)
			})

			Convey("When demoting and finalizing", func() {
				out, err := st.Decide(ladder.DoesNotMeet)
				So(err, ShouldBeNil)
				So(out.Final, ShouldBeTrue)
				So(out.Grade, ShouldEqual, ladder.GradeE)

				routing, err := st.FinalizeCurrent(out.Grade, "Reconsidered against peers.")
				So(err, ShouldBeNil)

				Convey("Then the pointer never moved and routing returns to review", func() {
					So(routing.Advanced, ShouldBeFalse)
					So(routing.ReturnTo, ShouldEqual, types.ReturnToReview)
					So(st.Pointer().Index, ShouldEqual, 3)
					So(st.Pointer().Mode, ShouldEqual, types.ModeReviewing)
				})

				Convey("Then the entry was overwritten, not duplicated", func() {
					ledger := st.LedgerCopy()
					So(len(ledger), ShouldEqual, 3)
					So(ledger["d/performance"].Grade, ShouldEqual, ladder.GradeE)
					So(ledger["d/performance"].GradeNumber, ShouldEqual, 5)
					So(ledger["d/proficiency"].Grade, ShouldEqual, ladder.GradeB)
				})

				Convey("Then the override is gone", func() {
					_, ok := st.OverrideInfo()
					So(ok, ShouldBeFalse)
				})
			})

			Convey("When cancelling instead", func() {
				st.CancelReevaluation()

				So(st.Pointer().Index, ShouldEqual, 3)
				So(st.Pointer().Mode, ShouldEqual, types.ModeReviewing)
				So(st.LedgerCopy()["d/performance"].Grade, ShouldEqual, ladder.GradeF)
				_, ok := st.OverrideInfo()
				So(ok, ShouldBeFalse)

				Convey("Then cancelling again is harmless", func() {
					st.CancelReevaluation()
					So(st.Pointer().Mode, ShouldEqual, types.ModeReviewing)
				})
			})

			Convey("When starting a second override on top", func() {
				err := st.StartReevaluation(types.TraitRef{SectionKey: "e", TraitKey: "courage"}, types.ReturnToReview)
				So(err, ShouldWrap, session.ErrValidation)
			})
		})

		Convey("When re-evaluating an ungraded trait ref", func() {
			err := st.StartReevaluation(types.TraitRef{SectionKey: "x", TraitKey: "y"}, types.ReturnToReview)
			So(err, ShouldWrap, session.ErrValidation)
		})

		Convey("When routing to directed comments", func() {
			So(st.StartReevaluation(target, types.ReturnToDirectedComments), ShouldBeNil)
			out, err := st.Decide(ladder.Meets)
			So(err, ShouldBeNil)
			routing, err := st.FinalizeCurrent(out.Grade, "Holds the line.")
			So(err, ShouldBeNil)
			So(routing.ReturnTo, ShouldEqual, types.ReturnToDirectedComments)
		})
	})
}

func TestEditJustification(t *testing.T) {
	Convey("Given a graded trait", t, func() {
		meta, seq, resolver := testFixture()
		st, err := session.New(meta, seq, resolver)
		So(err, ShouldBeNil)
		grade(t, st, "initial wording", ladder.Meets)
		ref := types.TraitRef{SectionKey: "d", TraitKey: "performance"}

		Convey("When editing its justification", func() {
			So(st.EditJustification(ref, "tightened wording"), ShouldBeNil)
			ledger := st.LedgerCopy()
			So(len(ledger), ShouldEqual, 1)
			So(ledger[ref.Key()].Justification, ShouldEqual, "tightened wording")
			So(ledger[ref.Key()].Grade, ShouldEqual, ladder.GradeB)
		})

		Convey("When the new text is empty", func() {
			So(st.EditJustification(ref, ""), ShouldWrap, session.ErrValidation)
		})

		Convey("When the trait was never graded", func() {
			err := st.EditJustification(types.TraitRef{SectionKey: "e", TraitKey: "courage"}, "text")
			So(err, ShouldWrap, session.ErrValidation)
		})
	})
}

func TestProgressAndViews(t *testing.T) {
	Convey("Given a partially graded session", t, func() {
		meta, seq, resolver := testFixture()
		st, err := session.New(meta, seq, resolver)
		So(err, ShouldBeNil)
		grade(t, st, "j1", ladder.Meets)

		Convey("Then progress locates the trait within its section", func() {
			p := st.Progress()
			So(p.Index, ShouldEqual, 1)
			So(p.Total, ShouldEqual, 3)
			So(p.Graded, ShouldEqual, 1)
			So(p.Complete, ShouldBeFalse)
			So(p.Section, ShouldNotBeNil)
			So(p.Section.Key, ShouldEqual, "d")
			So(p.Section.Title, ShouldEqual, "Mission Accomplishment")
			So(p.Section.TraitIndex, ShouldEqual, 2)
			So(p.Section.TraitCount, ShouldEqual, 2)
		})

		Convey("Then results come back in sequence order", func() {
			grade(t, st, "j2", ladder.Surpasses, ladder.Meets)
			results := st.Results()
			So(len(results), ShouldEqual, 2)
			So(results[0].Trait.TraitKey, ShouldEqual, "performance")
			So(results[1].Trait.TraitKey, ShouldEqual, "proficiency")
		})

		Convey("Then the upload shape is flat and ordered", func() {
			grade(t, st, "j2", ladder.Surpasses, ladder.DoesNotMeet)
			payload := st.Upload()
			So(payload.Meta.SessionID, ShouldEqual, "sess-1")
			So(len(payload.Evaluations), ShouldEqual, 2)
			So(payload.Evaluations[1].Trait, ShouldEqual, "Proficiency")
			So(payload.Evaluations[1].Grade, ShouldEqual, "C")
			So(payload.Evaluations[1].GradeNumber, ShouldEqual, 3)
			So(payload.Evaluations[1].Justification, ShouldEqual, "j2")
		})

		Convey("Then progress at completion drops the section locator", func() {
			grade(t, st, "j2", ladder.Meets)
			grade(t, st, "j3", ladder.Meets)
			p := st.Progress()
			So(p.Complete, ShouldBeTrue)
			So(p.Section, ShouldBeNil)
		})
	})
}

func TestRehydrate(t *testing.T) {
	Convey("Given persisted structural state", t, func() {
		meta, seq, resolver := testFixture()
		ledger := map[string]types.GradeResult{
			"d/performance": {
				Grade: ladder.GradeF, GradeNumber: 6,
				SectionTitle: "Mission Accomplishment", TraitName: "Performance",
				Justification: "solid",
			},
		}

		Convey("When rehydrating a mid-session pointer", func() {
			st, err := session.Rehydrate(meta, seq, types.Pointer{Index: 1, Mode: types.ModeAdvancing}, ledger, "draft", "", resolver)
			So(err, ShouldBeNil)

			Convey("Then structural state is back and transient state is clean", func() {
				So(st.Pointer().Index, ShouldEqual, 1)
				So(st.LedgerCopy(), ShouldResemble, ledger)
				So(st.DirectedComments(), ShouldEqual, "draft")
				So(st.Rung(), ShouldEqual, ladder.RungB)
				_, pending := st.PendingGrade()
				So(pending, ShouldBeFalse)
				_, override := st.OverrideInfo()
				So(override, ShouldBeFalse)
			})
		})

		Convey("When the pointer is outside the sequence", func() {
			_, err := session.Rehydrate(meta, seq, types.Pointer{Index: 4, Mode: types.ModeAdvancing}, nil, "", "", resolver)
			So(err, ShouldWrap, session.ErrValidation)
		})

		Convey("When the mode is unknown", func() {
			_, err := session.Rehydrate(meta, seq, types.Pointer{Index: 1, Mode: "paused"}, nil, "", "", resolver)
			So(err, ShouldWrap, session.ErrValidation)
		})

		Convey("When the ledger names a trait outside the sequence", func() {
			bad := map[string]types.GradeResult{"z/zz": ledger["d/performance"]}
			_, err := session.Rehydrate(meta, seq, types.Pointer{Index: 0, Mode: types.ModeAdvancing}, bad, "", "", resolver)
			So(err, ShouldWrap, session.ErrValidation)
		})

		Convey("When a ledger grade number disagrees with its grade", func() {
			bad := map[string]types.GradeResult{
				"d/performance": {Grade: ladder.GradeF, GradeNumber: 2, SectionTitle: "s", TraitName: "t", Justification: "j"},
			}
			_, err := session.Rehydrate(meta, seq, types.Pointer{Index: 0, Mode: types.ModeAdvancing}, bad, "", "", resolver)
			So(err, ShouldWrap, session.ErrValidation)
		})
	})
}
