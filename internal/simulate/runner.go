package simulate

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/pkg/logger"
)

// counters aggregates per-session outcomes across workers.
type counters struct {
	started    int64
	complete   int64
	failed     int64
	decisions  int64
	duplicates int64
	finalized  int64
	reevals    int64
	mismatches int64
}

// Run executes the complete session simulation.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{StartTime: time.Now()}

	logger.Get().Info(ctx, "starting evaluation session simulation",
		logger.String("baseURL", config.BaseURL),
		logger.Int("sessions", config.Sessions),
		logger.Int("workers", config.Workers),
		logger.Int64("seed", config.Seed),
		logger.String("timeout", config.Timeout.String()))

	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	client := newHTTPClient(config.Timeout)
	var c counters

	// Each session gets its own rng derived from the run seed, so a run is
	// replayable regardless of worker scheduling.
	jobs := make(chan int, config.Workers*2)
	var wg sync.WaitGroup
	for w := 0; w < config.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				rng := rand.New(rand.NewSource(config.Seed + int64(idx))) //nolint:gosec // deterministic replay, not crypto
				atomic.AddInt64(&c.started, 1)
				if err := simulateSession(ctx, client, config, rng, idx, &c); err != nil {
					atomic.AddInt64(&c.failed, 1)
					logger.Get().Warn(ctx, "session simulation failed",
						logger.Int("session", idx), logger.Error(err))
					continue
				}
				atomic.AddInt64(&c.complete, 1)
			}
		}()
	}

	for i := 0; i < config.Sessions; i++ {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return ctx.Err()
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	// Connectivity-restored flush so any queued saves drain before reporting.
	if _, err := client.sendJSON(ctx, http.MethodPost, config.BaseURL+"/v1/system/online", nil, nil, nil); err != nil {
		logger.Get().Warn(ctx, "online flush failed", logger.Error(err))
	}

	stats.SessionsStarted = int(atomic.LoadInt64(&c.started))
	stats.SessionsComplete = int(atomic.LoadInt64(&c.complete))
	stats.SessionsFailed = int(atomic.LoadInt64(&c.failed))
	stats.DecisionsSent = int(atomic.LoadInt64(&c.decisions))
	stats.DuplicatesSeen = int(atomic.LoadInt64(&c.duplicates))
	stats.GradesFinalized = int(atomic.LoadInt64(&c.finalized))
	stats.Reevaluations = int(atomic.LoadInt64(&c.reevals))
	stats.GradeMismatches = int(atomic.LoadInt64(&c.mismatches))
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	if stats.GradeMismatches > 0 {
		return fmt.Errorf("%d grade mismatches detected", stats.GradeMismatches)
	}
	if stats.SessionsFailed > 0 {
		return fmt.Errorf("%d sessions failed", stats.SessionsFailed)
	}
	logger.Get().Info(ctx, "simulation completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	client := newHTTPClient(config.Timeout)
	status, err := client.getJSON(ctx, config.BaseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", status)
	}
	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// simulateSession walks one full evaluation: create, grade every trait per
// the drawn plan, occasionally replay a decision to exercise idempotency,
// re-evaluate one trait, then verify the ledger and force a save.
func simulateSession(ctx context.Context, client *httpClient, config *Config, rng *rand.Rand, idx int, c *counters) error {
	setup := map[string]any{
		"marine_name":      fmt.Sprintf("Simulated Marine %04d", idx),
		"marine_rank":      "Sgt",
		"occasion":         "AN",
		"reporting_senior": idx%2 == 0,
	}

	var view sessionView
	status, err := client.sendJSON(ctx, http.MethodPost, config.BaseURL+"/v1/sessions", nil, setup, &view)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	if status != http.StatusCreated {
		return fmt.Errorf("create session: unexpected status %d", status)
	}
	id := view.Meta.SessionID
	base := config.BaseURL + "/v1/sessions/" + id

	plan := newPlan(rng, view.Progress.Total)
	for i, w := range plan {
		if err := gradeTrait(ctx, client, base, id, i, w, rng, c); err != nil {
			return fmt.Errorf("trait %d: %w", i, err)
		}
	}

	// Every trait is graded; switch to review mode like the UI would.
	if status, err := client.sendJSON(ctx, http.MethodPost, base+"/review", nil, nil, nil); err != nil || status != http.StatusOK {
		return fmt.Errorf("enter review: status %d: %w", status, err)
	}

	// The ledger is the source of truth; compare it against the plan.
	var results resultsResponse
	if _, err := client.getJSON(ctx, base+"/results", &results); err != nil {
		return fmt.Errorf("fetch results: %w", err)
	}
	mismatches := verifyLedger(results.Entries, plan)

	// Re-evaluate one graded trait and verify the ledger entry moved.
	if len(results.Entries) > 0 {
		target := rng.Intn(len(results.Entries))
		if err := reevaluate(ctx, client, base, id, target, &results.Entries[target], plan, rng, c); err != nil {
			return fmt.Errorf("re-evaluation: %w", err)
		}
		var after resultsResponse
		if _, err := client.getJSON(ctx, base+"/results", &after); err != nil {
			return fmt.Errorf("fetch results after re-evaluation: %w", err)
		}
		mismatches += verifyLedger(after.Entries, plan)
	}
	atomic.AddInt64(&c.mismatches, int64(mismatches))

	// Force a save and confirm the durability indicator settles.
	var saved saveResponse
	if _, err := client.sendJSON(ctx, http.MethodPost, base+"/save", nil, nil, &saved); err != nil {
		return fmt.Errorf("force save: %w", err)
	}
	if !saved.Saved {
		logger.Get().Warn(ctx, "forced save reported failure; snapshot queued",
			logger.String("session", id), logger.String("state", saved.Status.State))
	}

	if config.Verbose {
		logger.Get().Info(ctx, "session simulated",
			logger.String("session", id),
			logger.Int("traits", len(plan)),
			logger.Int("mismatches", mismatches))
	}
	return nil
}

// gradeTrait submits one trait's decision walk and finalizes the grade.
func gradeTrait(ctx context.Context, client *httpClient, base, id string, trait int, w walk, rng *rand.Rand, c *counters) error {
	var out decisionOutcome
	for step, decision := range w.decisions {
		key := fmt.Sprintf("%s-%d-%d", id, trait, step)
		headers := map[string]string{"Idempotency-Key": key}
		body := map[string]string{"decision": decision}

		status, err := client.sendJSON(ctx, http.MethodPost, base+"/decisions", headers, body, &out)
		if err != nil {
			return fmt.Errorf("decision %q: %w", decision, err)
		}
		if status != http.StatusOK {
			return fmt.Errorf("decision %q: unexpected status %d", decision, status)
		}
		atomic.AddInt64(&c.decisions, 1)

		// Replay roughly one decision in ten to exercise idempotency.
		if rng.Intn(10) == 0 {
			var replay decisionOutcome
			if _, err := client.sendJSON(ctx, http.MethodPost, base+"/decisions", headers, body, &replay); err == nil && replay.Duplicate {
				atomic.AddInt64(&c.duplicates, 1)
			}
		}
	}

	if !out.Final {
		return fmt.Errorf("walk ended without a final grade")
	}
	if out.Grade != w.grade || out.GradeNumber != w.number {
		atomic.AddInt64(&c.mismatches, 1)
		logger.Get().Warn(ctx, "grade mismatch",
			logger.String("session", id),
			logger.Int("trait", trait),
			logger.String("expected", w.grade),
			logger.String("got", out.Grade))
	}

	var routing routingView
	fin := map[string]string{
		"grade":         out.Grade,
		"justification": justificationFor(out.Grade, trait),
	}
	status, err := client.sendJSON(ctx, http.MethodPost, base+"/finalize", nil, fin, &routing)
	if err != nil {
		return fmt.Errorf("finalize: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("finalize: unexpected status %d", status)
	}
	atomic.AddInt64(&c.finalized, 1)
	return nil
}

// reevaluate re-grades one already-finalized trait through the override
// flow, updating the plan's expected grade in place.
func reevaluate(ctx context.Context, client *httpClient, base, id string, target int, entry *resultEntry, plan []walk, rng *rand.Rand, c *counters) error {
	req := map[string]string{
		"section":   entry.Trait.SectionKey,
		"trait":     entry.Trait.TraitKey,
		"return_to": "review",
	}
	status, err := client.sendJSON(ctx, http.MethodPost, base+"/reevaluations", nil, req, nil)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("start: unexpected status %d", status)
	}
	atomic.AddInt64(&c.reevals, 1)

	// The walk resumes at the rung seeded from the previous grade.
	options := seedWalks(entry.Result.Grade)
	w := options[rng.Intn(len(options))]
	plan[target] = w

	var out decisionOutcome
	for step, decision := range w.decisions {
		key := fmt.Sprintf("%s-re%d-%d", id, target, step)
		headers := map[string]string{"Idempotency-Key": key}
		if _, err := client.sendJSON(ctx, http.MethodPost, base+"/decisions", headers, map[string]string{"decision": decision}, &out); err != nil {
			return fmt.Errorf("decision %q: %w", decision, err)
		}
		atomic.AddInt64(&c.decisions, 1)
	}
	if !out.Final || out.Grade != w.grade {
		atomic.AddInt64(&c.mismatches, 1)
	}

	fin := map[string]string{
		"grade":         out.Grade,
		"justification": justificationFor(out.Grade, target),
	}
	var routing routingView
	if _, err := client.sendJSON(ctx, http.MethodPost, base+"/finalize", nil, fin, &routing); err != nil {
		return fmt.Errorf("finalize: %w", err)
	}
	if routing.ReturnTo != "review" {
		return fmt.Errorf("expected routing back to review, got %q", routing.ReturnTo)
	}
	return nil
}
