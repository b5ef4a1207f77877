// Package service owns the evaluation sessions held by the engine: it wires
// the trait catalog, the keyed durable store, and one durability saver per
// session, and implements the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/adapters/repository"
	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/domain/catalog"
	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/domain/dedupe"
	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/domain/ladder"
	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/domain/model"
	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/domain/session"
	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/domain/snapshot"
	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/domain/types"
	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/durability"
	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/pkg/logger"
	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/pkg/metrics"
)

// Session-open outcomes, used as metrics labels.
const (
	openOutcomeRestored = "restored"
	openOutcomeFresh    = "fresh"
)

// managedSession pairs one session aggregate with its saver. The mutex
// serializes every mutation and snapshot of the aggregate, preserving the
// single-writer model the engine guarantees per session.
type managedSession struct {
	mu    sync.Mutex
	state *session.State
	saver *durability.Saver
}

// snapshotSource adapts a managed session to the saver's snapshot contract,
// holding the session lock while the snapshot is built.
type snapshotSource struct {
	ms *managedSession
}

func (s snapshotSource) Snapshot(compact bool) snapshot.Snapshot {
	s.ms.mu.Lock()
	defer s.ms.mu.Unlock()
	return snapshot.Build(s.ms.state, compact)
}

// Service implements the API dependencies for the evaluation session engine.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    repository.Store
	catalog  *catalog.Catalog
	deduper  dedupe.Deduper
	sessions map[string]*managedSession

	// Configuration
	dedupeTTL        time.Duration
	dedupeMaxEntries int
	saverOpts        []durability.Option

	// State
	started   bool
	ownsStore bool
	runCtx    context.Context
	runCancel context.CancelFunc

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the keyed durable store. Without it the service opens an
// in-memory store and owns its lifecycle.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithCatalog sets the trait catalog. Without it the embedded catalog is
// loaded at Start.
func WithCatalog(c *catalog.Catalog) Option {
	return func(s *Service) {
		if c != nil {
			s.catalog = c
		}
	}
}

// WithDedupeTTL sets how long a submission idempotency key counts as a
// duplicate.
func WithDedupeTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl >= 0 {
			s.dedupeTTL = ttl
		}
	}
}

// WithDedupeMaxEntries bounds the idempotency-key cache.
func WithDedupeMaxEntries(n int) Option {
	return func(s *Service) {
		s.dedupeMaxEntries = n
	}
}

// WithSaverOptions sets the durability options applied to every session's
// saver.
func WithSaverOptions(opts ...durability.Option) Option {
	return func(s *Service) {
		s.saverOpts = opts
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		sessions:         make(map[string]*managedSession),
		dedupeTTL:        10 * time.Minute,
		dedupeMaxEntries: 50000,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes the service: catalog, store, deduper, and one boot-time
// flush of retry queues left behind by earlier runs (the same path a
// connectivity-restore event takes).
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("app")
	}

	if s.catalog == nil {
		c, err := catalog.Load()
		if err != nil {
			return fmt.Errorf("load trait catalog: %w", err)
		}
		s.catalog = c
	}

	if s.store == nil {
		s.store = repository.NewMemStore()
		s.ownsStore = true
		s.logger.Info(ctx, "using in-memory store")
	}

	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithTTL(s.dedupeTTL),
		dedupe.WithMaxSize(s.dedupeMaxEntries),
	)

	// Savers outlive the request contexts that create sessions.
	s.runCtx, s.runCancel = context.WithCancel(context.Background())

	flushed, err := durability.FlushAll(ctx, s.store, nil, s.logger)
	if err != nil {
		s.logger.Warn(ctx, "boot-time queue flush failed", logger.Error(err))
	} else if flushed > 0 {
		s.logger.Info(ctx, "boot-time queue flush replayed deferred saves",
			logger.Int("sessions", flushed))
	}

	s.started = true
	s.logger.Info(ctx, "evaluation engine started")
	return nil
}

// Stop gracefully shuts down the service: savers drain, the store closes if
// the service opened it.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for id, ms := range s.sessions {
		// Final forced save so nothing typed since the last debounce is lost.
		if !ms.saver.SaveNow(ctx) {
			s.logger.Warn(ctx, "final save failed during shutdown", logger.String("session", id))
		}
		if err := ms.saver.Shutdown(ctx); err != nil {
			s.logger.Warn(ctx, "saver shutdown failed", logger.String("session", id), logger.Error(err))
		}
	}
	s.runCancel()

	if s.ownsStore {
		if err := s.store.Close(); err != nil {
			s.logger.Warn(ctx, "store close failed", logger.Error(err))
		}
	}

	s.started = false
	s.logger.Info(ctx, "evaluation engine stopped")
}

// Catalog returns the trait catalog.
func (s *Service) Catalog() *catalog.Catalog {
	return s.catalog
}

// attachLocked registers a session and starts its saver. Caller holds s.mu.
func (s *Service) attachLocked(id string, st *session.State) *managedSession {
	ms := &managedSession{state: st}
	ms.saver = durability.NewSaver(id, s.store, snapshotSource{ms}, s.saverOpts...)
	go ms.saver.Run(s.runCtx)
	s.sessions[id] = ms
	metrics.UpdateSessionsActive(len(s.sessions))
	return ms
}

// lookup returns the managed session for id.
func (s *Service) lookup(id string) (*managedSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ms, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return ms, nil
}

// CreateSession opens a fresh evaluation session and persists its first
// snapshot.
func (s *Service) CreateSession(ctx context.Context, setup model.SessionSetup) (SessionView, error) {
	if err := setup.Validate(); err != nil {
		return SessionView{}, err
	}

	meta := types.EvaluationMeta{
		SessionID:       uuid.NewString(),
		MarineName:      setup.MarineName,
		MarineRank:      setup.MarineRank,
		PeriodFrom:      setup.PeriodFrom,
		PeriodTo:        setup.PeriodTo,
		Occasion:        setup.Occasion,
		ReportingSenior: setup.ReportingSenior,
		CreatedAt:       time.Now().UTC(),
	}
	st, err := session.New(meta, s.catalog.Sequence(setup.ReportingSenior), s.catalog)
	if err != nil {
		return SessionView{}, err
	}

	s.mu.Lock()
	ms := s.attachLocked(meta.SessionID, st)
	s.mu.Unlock()

	// A new session starts dirty so its first snapshot reaches the store.
	ms.saver.MarkDirty()
	if !ms.saver.SaveNow(ctx) {
		s.logger.Warn(ctx, "initial snapshot save failed",
			logger.String("session", meta.SessionID))
	}
	metrics.RecordSessionStarted()
	s.logger.Info(ctx, "session created",
		logger.String("session", meta.SessionID),
		logger.Bool("reporting_senior", setup.ReportingSenior))
	return s.view(ms), nil
}

// OpenResult reports how a session open resolved.
type OpenResult struct {
	Restored bool   `json:"restored"`
	Reason   string `json:"reason"`
}

// OpenSession resumes a session from its stored snapshot. A live session is
// returned as-is. When no valid snapshot exists the optional setup, if
// given, seeds a fresh session under the same ID; otherwise the open fails.
func (s *Service) OpenSession(ctx context.Context, id string, setup *model.SessionSetup) (SessionView, OpenResult, error) {
	s.mu.Lock()
	if ms, ok := s.sessions[id]; ok {
		s.mu.Unlock()
		return s.view(ms), OpenResult{Restored: false, Reason: "session already live"}, nil
	}
	s.mu.Unlock()

	st, reason, err := s.restore(ctx, id)
	if err == nil {
		s.mu.Lock()
		ms := s.attachLocked(id, st)
		s.mu.Unlock()
		metrics.RecordSessionOpened(openOutcomeRestored)
		s.logger.Info(ctx, "session restored", logger.String("session", id))
		return s.view(ms), OpenResult{Restored: true, Reason: reason}, nil
	}

	if setup == nil {
		return SessionView{}, OpenResult{}, err
	}
	if verr := setup.Validate(); verr != nil {
		return SessionView{}, OpenResult{}, verr
	}

	// Invalid or missing snapshot with setup supplied: fall back to a fresh
	// session rather than partially restoring corrupted state.
	meta := types.EvaluationMeta{
		SessionID:       id,
		MarineName:      setup.MarineName,
		MarineRank:      setup.MarineRank,
		PeriodFrom:      setup.PeriodFrom,
		PeriodTo:        setup.PeriodTo,
		Occasion:        setup.Occasion,
		ReportingSenior: setup.ReportingSenior,
		CreatedAt:       time.Now().UTC(),
	}
	st, serr := session.New(meta, s.catalog.Sequence(setup.ReportingSenior), s.catalog)
	if serr != nil {
		return SessionView{}, OpenResult{}, serr
	}
	s.mu.Lock()
	ms := s.attachLocked(id, st)
	s.mu.Unlock()
	ms.saver.MarkDirty()
	metrics.RecordSessionOpened(openOutcomeFresh)
	s.logger.Info(ctx, "session started fresh",
		logger.String("session", id), logger.Error(err))
	return s.view(ms), OpenResult{Restored: false, Reason: err.Error()}, nil
}

// restore loads and validates the stored snapshot for id.
func (s *Service) restore(ctx context.Context, id string) (*session.State, string, error) {
	data, err := s.store.Get(ctx, repository.SessionKey(id))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, "", fmt.Errorf("%w: %s: no stored snapshot", ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, "", fmt.Errorf("load snapshot %s: %w", id, err)
	}
	snap, err := snapshot.Unmarshal(data)
	if err != nil {
		return nil, "", err
	}
	if snap.Meta.SessionID != id {
		return nil, "", fmt.Errorf("%w: stored snapshot belongs to %q", snapshot.ErrRestore, snap.Meta.SessionID)
	}
	st, err := snapshot.Restore(snap, s.catalog)
	if err != nil {
		return nil, "", err
	}
	reason := "restored from snapshot"
	if snap.Compact {
		reason = "restored from compact snapshot; drafts were not retained"
	}
	return st, reason, nil
}

// DecisionOutcome is the result of one decision submission.
type DecisionOutcome struct {
	// Duplicate is true when the idempotency key was already seen; the
	// decision was not re-applied.
	Duplicate bool `json:"duplicate"`
	// Final is true when the decision resolved a grade now awaiting its
	// justification.
	Final       bool         `json:"final"`
	Grade       ladder.Grade `json:"grade,omitempty"`
	GradeNumber int          `json:"grade_number,omitempty"`
	NextRung    ladder.Rung  `json:"next_rung,omitempty"`
}

// Decide applies one ladder decision to the session's active trait. A replay
// carrying an already-seen idempotency key is acknowledged without being
// applied, since a duplicated "surpasses" would corrupt the walk.
func (s *Service) Decide(ctx context.Context, id string, sub model.DecisionSubmission) (DecisionOutcome, error) {
	if err := sub.Validate(); err != nil {
		return DecisionOutcome{}, err
	}
	ms, err := s.lookup(id)
	if err != nil {
		return DecisionOutcome{}, err
	}

	var dedupeKey string
	if sub.SubmissionID != "" {
		dedupeKey = id + ":" + sub.SubmissionID
		if s.deduper.SeenAndRecord(ctx, dedupeKey) {
			metrics.RecordDuplicateSubmission()
			return DecisionOutcome{Duplicate: true}, nil
		}
	}

	ms.mu.Lock()
	out, err := ms.state.Decide(sub.Decision)
	ms.mu.Unlock()
	if err != nil {
		if dedupeKey != "" {
			// The decision was rejected; let the client's retry through.
			s.deduper.Unrecord(ctx, dedupeKey)
		}
		return DecisionOutcome{}, err
	}

	ms.saver.MarkDirty()
	metrics.RecordDecision(string(sub.Decision))
	return DecisionOutcome{
		Final:       out.Final,
		Grade:       out.Grade,
		GradeNumber: out.Grade.Number(),
		NextRung:    out.Next,
	}, nil
}

// Finalize records the resolved grade with its justification and advances
// the session per the routing rules.
func (s *Service) Finalize(ctx context.Context, id string, sub model.FinalizeSubmission) (session.Routing, error) {
	if err := sub.Validate(); err != nil {
		return session.Routing{}, err
	}
	ms, err := s.lookup(id)
	if err != nil {
		return session.Routing{}, err
	}

	ms.mu.Lock()
	routing, err := ms.state.FinalizeCurrent(sub.Grade, sub.Justification)
	ms.mu.Unlock()
	if err != nil {
		return session.Routing{}, err
	}

	ms.saver.MarkDirty()
	metrics.RecordGradeFinalized(string(sub.Grade))
	return routing, nil
}

// ResetTrait abandons the active trait's walk and restarts it at the base
// rung, discarding any pending grade.
func (s *Service) ResetTrait(ctx context.Context, id string) error {
	ms, err := s.lookup(id)
	if err != nil {
		return err
	}
	ms.mu.Lock()
	err = ms.state.ResetTrait()
	ms.mu.Unlock()
	if err != nil {
		return err
	}
	ms.saver.MarkDirty()
	return nil
}

// GoBack steps the pointer back to the previous trait.
func (s *Service) GoBack(ctx context.Context, id string) error {
	ms, err := s.lookup(id)
	if err != nil {
		return err
	}
	ms.mu.Lock()
	err = ms.state.GoBackOneTrait()
	ms.mu.Unlock()
	if err != nil {
		return err
	}
	ms.saver.MarkDirty()
	return nil
}

// EnterReview switches a completed session into review mode.
func (s *Service) EnterReview(ctx context.Context, id string) error {
	ms, err := s.lookup(id)
	if err != nil {
		return err
	}
	ms.mu.Lock()
	err = ms.state.EnterReview()
	ms.mu.Unlock()
	if err != nil {
		return err
	}
	ms.saver.MarkDirty()
	return nil
}

// StartReevaluation opens a re-evaluation override for a graded trait.
func (s *Service) StartReevaluation(ctx context.Context, id string, req model.ReevaluationRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	ms, err := s.lookup(id)
	if err != nil {
		return err
	}
	ms.mu.Lock()
	err = ms.state.StartReevaluation(req.Trait, req.ReturnTo)
	ms.mu.Unlock()
	if err != nil {
		return err
	}
	ms.saver.MarkDirty()
	metrics.RecordReevaluation()
	return nil
}

// CancelReevaluation discards the active override, if any.
func (s *Service) CancelReevaluation(ctx context.Context, id string) error {
	ms, err := s.lookup(id)
	if err != nil {
		return err
	}
	ms.mu.Lock()
	ms.state.CancelReevaluation()
	ms.mu.Unlock()
	ms.saver.MarkDirty()
	return nil
}

// UpdateComments replaces the directed-comments and narrative drafts.
func (s *Service) UpdateComments(ctx context.Context, id string, upd model.CommentsUpdate) error {
	ms, err := s.lookup(id)
	if err != nil {
		return err
	}
	if upd.Empty() {
		return nil
	}
	ms.mu.Lock()
	if upd.DirectedComments != nil {
		ms.state.SetDirectedComments(*upd.DirectedComments)
	}
	if upd.Narrative != nil {
		ms.state.SetNarrativeDraft(*upd.Narrative)
	}
	ms.mu.Unlock()
	ms.saver.MarkDirty()
	return nil
}

// EditJustification overwrites the justification of an existing ledger entry.
func (s *Service) EditJustification(ctx context.Context, id string, edit model.JustificationEdit) error {
	if err := edit.Validate(); err != nil {
		return err
	}
	ms, err := s.lookup(id)
	if err != nil {
		return err
	}
	ms.mu.Lock()
	err = ms.state.EditJustification(edit.Trait, edit.Justification)
	ms.mu.Unlock()
	if err != nil {
		return err
	}
	ms.saver.MarkDirty()
	return nil
}

// Results returns the finalized ledger entries in sequence order.
func (s *Service) Results(ctx context.Context, id string) ([]session.ReviewEntry, error) {
	ms, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.state.Results(), nil
}

// Upload returns the flat ledger shape the sync layer consumes.
func (s *Service) Upload(ctx context.Context, id string) (types.UploadPayload, error) {
	ms, err := s.lookup(id)
	if err != nil {
		return types.UploadPayload{}, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.state.Upload(), nil
}

// Progress returns overall and section-relative progress.
func (s *Service) Progress(ctx context.Context, id string) (types.Progress, error) {
	ms, err := s.lookup(id)
	if err != nil {
		return types.Progress{}, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.state.Progress(), nil
}

// SaveStatus returns the session's durability indicator.
func (s *Service) SaveStatus(ctx context.Context, id string) (types.SaveStatus, error) {
	ms, err := s.lookup(id)
	if err != nil {
		return types.SaveStatus{}, err
	}
	return ms.saver.Status(), nil
}

// SaveHistory returns the session's bounded save history, most recent first.
func (s *Service) SaveHistory(ctx context.Context, id string) ([]snapshot.HistoryEntry, error) {
	ms, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return ms.saver.History(ctx)
}

// ForceSave runs the write pipeline immediately, bypassing the debounce.
func (s *Service) ForceSave(ctx context.Context, id string) (bool, types.SaveStatus, error) {
	ms, err := s.lookup(id)
	if err != nil {
		return false, types.SaveStatus{}, err
	}
	ok := ms.saver.SaveNow(ctx)
	return ok, ms.saver.Status(), nil
}

// FlushQueues replays every persisted retry queue, live sessions through
// their own savers and orphaned queues directly. It is the
// connectivity-restored entry point.
func (s *Service) FlushQueues(ctx context.Context) (int, error) {
	s.mu.RLock()
	live := make(map[string]bool, len(s.sessions))
	savers := make(map[string]*durability.Saver, len(s.sessions))
	for id, ms := range s.sessions {
		live[id] = true
		savers[id] = ms.saver
	}
	s.mu.RUnlock()

	flushed := 0
	for id, saver := range savers {
		res, err := saver.FlushQueue(ctx)
		if err != nil {
			s.logger.Warn(ctx, "queue flush failed",
				logger.String("session", id), logger.Error(err))
			continue
		}
		if res.Written > 0 {
			flushed++
		}
	}

	orphans, err := durability.FlushAll(ctx, s.store, live, s.logger)
	if err != nil {
		return flushed, err
	}
	return flushed + orphans, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	metrics.UpdateSessionsActive(len(s.sessions))
	return map[string]interface{}{
		"started":        s.started,
		"activeSessions": len(s.sessions),
		"dedupeEntries":  s.deduper.Size(),
		"storeBytes":     s.store.UsedBytes(context.Background()),
	}
}
