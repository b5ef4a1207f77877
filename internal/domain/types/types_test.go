package types_test

import (
	"testing"

	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/domain/ladder"
	types "github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestTraitRef(t *testing.T) {
	Convey("Given a TraitRef", t, func() {
		ref := types.TraitRef{SectionKey: "d", TraitKey: "performance"}

		Convey("Then its composite key joins section and trait", func() {
			So(ref.Key(), ShouldEqual, "d/performance")
			So(ref.Zero(), ShouldBeFalse)
		})

		Convey("Then the zero ref reports empty", func() {
			So(types.TraitRef{}.Zero(), ShouldBeTrue)
		})
	})
}

func TestEnums(t *testing.T) {
	Convey("Given the mode and destination enums", t, func() {
		Convey("Then known values validate", func() {
			So(types.ModeAdvancing.Valid(), ShouldBeTrue)
			So(types.ModeReviewing.Valid(), ShouldBeTrue)
			So(types.Mode("paused").Valid(), ShouldBeFalse)

			So(types.ReturnToReview.Valid(), ShouldBeTrue)
			So(types.ReturnToDirectedComments.Valid(), ShouldBeTrue)
			So(types.ReturnDestination("home").Valid(), ShouldBeFalse)
		})
	})
}

func TestGradeResult(t *testing.T) {
	Convey("Given a grade result", t, func() {
		res := types.GradeResult{
			Grade:         ladder.GradeF,
			GradeNumber:   ladder.GradeF.Number(),
			SectionTitle:  "Leadership",
			TraitName:     "Setting the Example",
			Justification: "Consistently modeled the standard for the platoon.",
		}

		Convey("Then the grade number matches the grade's ordinal", func() {
			So(res.GradeNumber, ShouldEqual, 6)
			So(res.Grade.Number(), ShouldEqual, res.GradeNumber)
		})
	})
}
