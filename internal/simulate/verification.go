package simulate

import (
	"context"

	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/pkg/logger"
)

// verifyLedger compares the engine's finalized ledger against the expected
// plan and returns the number of mismatching entries. Results arrive in
// sequence order, so entry i corresponds to plan[i].
func verifyLedger(entries []resultEntry, plan []walk) int {
	mismatches := 0
	if len(entries) != len(plan) {
		logger.Get().Warn(context.Background(), "ledger size mismatch",
			logger.Int("expected", len(plan)),
			logger.Int("got", len(entries)))
		mismatches++
	}
	for i, entry := range entries {
		if i >= len(plan) {
			break
		}
		if entry.Result.Grade != plan[i].grade || entry.Result.GradeNumber != plan[i].number {
			logger.Get().Warn(context.Background(), "ledger grade mismatch",
				logger.Int("trait", i),
				logger.String("expected", plan[i].grade),
				logger.String("got", entry.Result.Grade))
			mismatches++
		}
		if entry.Result.Justification == "" {
			logger.Get().Warn(context.Background(), "ledger entry missing justification",
				logger.Int("trait", i))
			mismatches++
		}
	}
	return mismatches
}

// displayFinalStats prints the final simulation statistics.
func displayFinalStats(stats *Stats) {
	var sessionsPerSecond float64
	if stats.Duration > 0 {
		sessionsPerSecond = float64(stats.SessionsComplete) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("sessionsStarted", stats.SessionsStarted),
		logger.Int("sessionsComplete", stats.SessionsComplete),
		logger.Int("sessionsFailed", stats.SessionsFailed),
		logger.Int("decisionsSent", stats.DecisionsSent),
		logger.Int("duplicatesSeen", stats.DuplicatesSeen),
		logger.Int("gradesFinalized", stats.GradesFinalized),
		logger.Int("reevaluations", stats.Reevaluations),
		logger.Int("gradeMismatches", stats.GradeMismatches),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("sessionsPerSecond", sessionsPerSecond))
}
