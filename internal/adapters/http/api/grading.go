// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	service "github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/app"
	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/domain/ladder"
	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/domain/model"
	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/domain/session"
	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/domain/types"
)

// IdempotencyKeyHeader carries the client's submission key for mutating
// decision routes; replays with a seen key are acknowledged, not re-applied.
const IdempotencyKeyHeader = "Idempotency-Key"

// GradingDependencies defines the interface for grading flow operations.
type GradingDependencies interface {
	Decide(ctx context.Context, id string, sub model.DecisionSubmission) (service.DecisionOutcome, error)
	Finalize(ctx context.Context, id string, sub model.FinalizeSubmission) (session.Routing, error)
	ResetTrait(ctx context.Context, id string) error
	GoBack(ctx context.Context, id string) error
	EnterReview(ctx context.Context, id string) error
	StartReevaluation(ctx context.Context, id string, req model.ReevaluationRequest) error
	CancelReevaluation(ctx context.Context, id string) error
	View(id string) (service.SessionView, error)
}

// GradingHandler handles ladder decisions and trait navigation.
type GradingHandler struct {
	deps GradingDependencies
}

// NewGradingHandler creates a new grading handler.
func NewGradingHandler(deps GradingDependencies) *GradingHandler {
	return &GradingHandler{deps: deps}
}

type decisionRequest struct {
	Decision string `json:"decision"`
}

type finalizeRequest struct {
	Grade         string `json:"grade"`
	Justification string `json:"justification"`
}

type reevaluationRequest struct {
	Section  string `json:"section"`
	Trait    string `json:"trait"`
	ReturnTo string `json:"return_to"`
}

// HandleDecision handles POST /v1/sessions/{id}/decisions requests.
func (h *GradingHandler) HandleDecision(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	out, err := h.deps.Decide(r.Context(), r.PathValue("id"), model.DecisionSubmission{
		Decision:     ladder.Decision(req.Decision),
		SubmissionID: r.Header.Get(IdempotencyKeyHeader),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleFinalize handles POST /v1/sessions/{id}/finalize requests.
func (h *GradingHandler) HandleFinalize(w http.ResponseWriter, r *http.Request) {
	var req finalizeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	routing, err := h.deps.Finalize(r.Context(), r.PathValue("id"), model.FinalizeSubmission{
		Grade:         ladder.Grade(req.Grade),
		Justification: req.Justification,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, routing)
}

// HandleReset handles POST /v1/sessions/{id}/reset requests: the active
// trait's walk starts over at the base rung.
func (h *GradingHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.deps.ResetTrait(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	h.writeView(w, id)
}

// HandleBack handles POST /v1/sessions/{id}/back requests.
func (h *GradingHandler) HandleBack(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.deps.GoBack(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	h.writeView(w, id)
}

// HandleReview handles POST /v1/sessions/{id}/review requests.
func (h *GradingHandler) HandleReview(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.deps.EnterReview(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	h.writeView(w, id)
}

// HandleStartReevaluation handles POST /v1/sessions/{id}/reevaluations.
func (h *GradingHandler) HandleStartReevaluation(w http.ResponseWriter, r *http.Request) {
	var req reevaluationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	id := r.PathValue("id")
	err := h.deps.StartReevaluation(r.Context(), id, model.ReevaluationRequest{
		Trait:    types.TraitRef{SectionKey: req.Section, TraitKey: req.Trait},
		ReturnTo: types.ReturnDestination(req.ReturnTo),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.writeView(w, id)
}

// HandleCancelReevaluation handles DELETE /v1/sessions/{id}/reevaluations.
func (h *GradingHandler) HandleCancelReevaluation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.deps.CancelReevaluation(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	h.writeView(w, id)
}

// writeView responds with the session's refreshed read model, so navigation
// actions return the state the client renders next.
func (h *GradingHandler) writeView(w http.ResponseWriter, id string) {
	view, err := h.deps.View(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
