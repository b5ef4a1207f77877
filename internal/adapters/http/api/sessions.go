// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	service "github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/app"
	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/domain/model"
)

// SessionDependencies defines the interface for session lifecycle operations.
type SessionDependencies interface {
	CreateSession(ctx context.Context, setup model.SessionSetup) (service.SessionView, error)
	OpenSession(ctx context.Context, id string, setup *model.SessionSetup) (service.SessionView, service.OpenResult, error)
	View(id string) (service.SessionView, error)
}

// SessionsHandler handles session lifecycle requests.
type SessionsHandler struct {
	deps SessionDependencies
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(deps SessionDependencies) *SessionsHandler {
	return &SessionsHandler{deps: deps}
}

// sessionSetupRequest mirrors the OpenAPI schema for session creation.
type sessionSetupRequest struct {
	MarineName      string `json:"marine_name"`
	MarineRank      string `json:"marine_rank"`
	PeriodFrom      string `json:"period_from"`
	PeriodTo        string `json:"period_to"`
	Occasion        string `json:"occasion"`
	ReportingSenior bool   `json:"reporting_senior"`
}

func (r sessionSetupRequest) setup() model.SessionSetup {
	return model.SessionSetup{
		MarineName:      r.MarineName,
		MarineRank:      r.MarineRank,
		PeriodFrom:      r.PeriodFrom,
		PeriodTo:        r.PeriodTo,
		Occasion:        r.Occasion,
		ReportingSenior: r.ReportingSenior,
	}
}

// openResponse pairs the open outcome with the resulting session view.
type openResponse struct {
	Restored bool                `json:"restored"`
	Reason   string              `json:"reason"`
	Session  service.SessionView `json:"session"`
}

// HandleCreate handles POST /v1/sessions requests.
func (h *SessionsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req sessionSetupRequest
	if !decodeBody(w, r, &req) {
		return
	}
	view, err := h.deps.CreateSession(r.Context(), req.setup())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// HandleOpen handles POST /v1/sessions/{id}/open requests. The body is
// optional: when present it seeds a fresh session if no valid snapshot
// exists; when absent a failed restore is an error.
func (h *SessionsHandler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var setup *model.SessionSetup
	var req sessionSetupRequest
	switch err := jsonDecodeOptional(r, &req); {
	case err == nil:
		s := req.setup()
		setup = &s
	case errors.Is(err, io.EOF):
		// No body; restore-only open.
	default:
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	view, result, err := h.deps.OpenSession(r.Context(), id, setup)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, openResponse{
		Restored: result.Restored,
		Reason:   result.Reason,
		Session:  view,
	})
}

// HandleGet handles GET /v1/sessions/{id} requests.
func (h *SessionsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	view, err := h.deps.View(r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
