// Package ladder implements the grade-ladder decision algorithm: at most
// three three-way comparisons resolve one of seven ordinal grades.
package ladder

import "fmt"

// Grade is one of the seven ordinal attribute grades, A (lowest) to G (highest).
type Grade string

// Grades in ascending order.
const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeE Grade = "E"
	GradeF Grade = "F"
	GradeG Grade = "G"
)

// order maps each grade to its ordinal, 1..7.
var order = map[Grade]int{
	GradeA: 1, GradeB: 2, GradeC: 3, GradeD: 4, GradeE: 5, GradeF: 6, GradeG: 7,
}

// Number returns the grade's ordinal position, A=1 through G=7, or 0 for an
// unknown grade.
func (g Grade) Number() int { return order[g] }

// Valid reports whether g is one of the seven grades.
func (g Grade) Valid() bool { return order[g] != 0 }

// Rung is a ladder entry point where a comparison is made. Only B, D and F
// carry descriptive standards; the remaining grades are resolved relative to
// these three.
type Rung string

// Rungs in ascending order.
const (
	RungB Rung = "B"
	RungD Rung = "D"
	RungF Rung = "F"
)

// Valid reports whether r is one of the three rungs.
func (r Rung) Valid() bool { return r == RungB || r == RungD || r == RungF }

// Decision is the reviewer's three-way comparison against the current rung's
// standard.
type Decision string

// Decisions.
const (
	DoesNotMeet Decision = "does_not_meet"
	Meets       Decision = "meets"
	Surpasses   Decision = "surpasses"
)

// Valid reports whether d is one of the three decisions.
func (d Decision) Valid() bool {
	return d == DoesNotMeet || d == Meets || d == Surpasses
}

// Outcome is the result of applying one decision at a rung. Exactly one of
// Final or Next is meaningful: when Final is true, Grade holds the resolved
// grade; otherwise Next holds the rung the walk continues at.
type Outcome struct {
	Final bool
	Grade Grade
	Next  Rung
}

// steps encodes the full decision table. A demotion always finalizes one
// grade below the rung's own grade, so the walk can never descend past A.
var steps = map[Rung]map[Decision]Outcome{
	RungB: {
		DoesNotMeet: {Final: true, Grade: GradeA},
		Meets:       {Final: true, Grade: GradeB},
		Surpasses:   {Next: RungD},
	},
	RungD: {
		DoesNotMeet: {Final: true, Grade: GradeC},
		Meets:       {Final: true, Grade: GradeD},
		Surpasses:   {Next: RungF},
	},
	RungF: {
		DoesNotMeet: {Final: true, Grade: GradeE},
		Meets:       {Final: true, Grade: GradeF},
		Surpasses:   {Final: true, Grade: GradeG},
	},
}

// Advance applies one decision at the given rung. It is a pure function of
// its inputs; callers own the walk state and reset it to RungB when moving on
// to the next trait.
func Advance(rung Rung, decision Decision) (Outcome, error) {
	if !rung.Valid() {
		return Outcome{}, fmt.Errorf("%w: rung %q", ErrInvalidRung, string(rung))
	}
	if !decision.Valid() {
		return Outcome{}, fmt.Errorf("%w: decision %q", ErrInvalidDecision, string(decision))
	}
	return steps[rung][decision], nil
}

// SeedRung returns the rung a re-evaluation of a previously graded trait
// resumes at: the rung whose "meets" outcome equals the stored grade, or the
// nearest rung below it. Grades A..C seed at B, D..E at D, F..G at F.
func SeedRung(grade Grade) Rung {
	switch grade {
	case GradeF, GradeG:
		return RungF
	case GradeD, GradeE:
		return RungD
	default:
		return RungB
	}
}

// MinDecisions returns the minimum number of decisions required to finalize
// the given grade starting from RungB: 1 for A and B, 2 for C and D, 3 for
// E, F and G. Unknown grades return 0.
func MinDecisions(grade Grade) int {
	switch grade {
	case GradeA, GradeB:
		return 1
	case GradeC, GradeD:
		return 2
	case GradeE, GradeF, GradeG:
		return 3
	default:
		return 0
	}
}
