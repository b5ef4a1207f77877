package model_test

import (
	"testing"

	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/domain/ladder"
	model "github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/domain/model"
	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/domain/types"
	"github.com/smartystreets/goconvey/convey"
)

func TestSessionSetup(t *testing.T) {
	convey.Convey("Given a session setup", t, func() {
		convey.Convey("When the marine name is present", func() {
			s := model.SessionSetup{MarineName: "Sgt Doe", ReportingSenior: true}
			convey.So(s.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("When the marine name is blank", func() {
			s := model.SessionSetup{MarineName: "   "}
			convey.So(s.Validate(), convey.ShouldNotBeNil)
		})
	})
}

func TestDecisionSubmission(t *testing.T) {
	convey.Convey("Given decision submissions", t, func() {
		convey.Convey("When the decision is known", func() {
			for _, d := range []ladder.Decision{ladder.DoesNotMeet, ladder.Meets, ladder.Surpasses} {
				s := model.DecisionSubmission{Decision: d}
				convey.So(s.Validate(), convey.ShouldBeNil)
			}
		})

		convey.Convey("When the decision is unknown", func() {
			s := model.DecisionSubmission{Decision: ladder.Decision("almost")}
			convey.So(s.Validate(), convey.ShouldNotBeNil)
		})
	})
}

func TestFinalizeSubmission(t *testing.T) {
	convey.Convey("Given finalize submissions", t, func() {
		convey.Convey("When grade and justification are present", func() {
			s := model.FinalizeSubmission{Grade: ladder.GradeF, Justification: "Led every field exercise."}
			convey.So(s.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("When the justification is whitespace", func() {
			s := model.FinalizeSubmission{Grade: ladder.GradeF, Justification: " \t"}
			convey.So(s.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("When the grade is unknown", func() {
			s := model.FinalizeSubmission{Grade: ladder.Grade("Z"), Justification: "x"}
			convey.So(s.Validate(), convey.ShouldNotBeNil)
		})
	})
}

func TestReevaluationRequest(t *testing.T) {
	convey.Convey("Given re-evaluation requests", t, func() {
		ref := types.TraitRef{SectionKey: "d", TraitKey: "performance"}

		convey.Convey("When trait and destination are valid", func() {
			s := model.ReevaluationRequest{Trait: ref, ReturnTo: types.ReturnToReview}
			convey.So(s.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("When the trait ref is empty", func() {
			s := model.ReevaluationRequest{ReturnTo: types.ReturnToReview}
			convey.So(s.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("When the destination is unknown", func() {
			s := model.ReevaluationRequest{Trait: ref, ReturnTo: types.ReturnDestination("exit")}
			convey.So(s.Validate(), convey.ShouldNotBeNil)
		})
	})
}

func TestCommentsUpdate(t *testing.T) {
	convey.Convey("Given comments updates", t, func() {
		convey.Convey("When no field is set", func() {
			convey.So(model.CommentsUpdate{}.Empty(), convey.ShouldBeTrue)
		})

		convey.Convey("When one field is set", func() {
			text := "Recommended for promotion ahead of peers."
			s := model.CommentsUpdate{DirectedComments: &text}
			convey.So(s.Empty(), convey.ShouldBeFalse)
		})
	})
}
