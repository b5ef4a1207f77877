package simulate

import (
	"fmt"
	"math/rand"
)

// walk is one complete decision path through the three-rung ladder together
// with the grade it must resolve. The table is written out by hand, not
// derived from the engine, so the simulation is an independent check of the
// ladder the engine implements.
type walk struct {
	decisions []string
	grade     string
	number    int
}

var walks = []walk{
	{[]string{"does_not_meet"}, "A", 1},
	{[]string{"meets"}, "B", 2},
	{[]string{"surpasses", "does_not_meet"}, "C", 3},
	{[]string{"surpasses", "meets"}, "D", 4},
	{[]string{"surpasses", "surpasses", "does_not_meet"}, "E", 5},
	{[]string{"surpasses", "surpasses", "meets"}, "F", 6},
	{[]string{"surpasses", "surpasses", "surpasses"}, "G", 7},
}

// seedWalks maps a previous grade to the decision paths reachable from the
// rung a re-evaluation resumes at: A-C restart at B (any walk), D-E at D,
// F-G at F.
func seedWalks(previous string) []walk {
	switch previous {
	case "F", "G":
		return []walk{
			{[]string{"does_not_meet"}, "E", 5},
			{[]string{"meets"}, "F", 6},
			{[]string{"surpasses"}, "G", 7},
		}
	case "D", "E":
		return []walk{
			{[]string{"does_not_meet"}, "C", 3},
			{[]string{"meets"}, "D", 4},
			{[]string{"surpasses", "does_not_meet"}, "E", 5},
			{[]string{"surpasses", "meets"}, "F", 6},
			{[]string{"surpasses", "surpasses"}, "G", 7},
		}
	default:
		return walks
	}
}

// newPlan draws one decision walk per trait.
func newPlan(rng *rand.Rand, traits int) []walk {
	plan := make([]walk, traits)
	for i := range plan {
		plan[i] = walks[rng.Intn(len(walks))]
	}
	return plan
}

// justificationFor fabricates a plausible justification for a grade.
func justificationFor(grade string, trait int) string {
	return fmt.Sprintf("Simulated justification for grade %s on trait %d.", grade, trait)
}
