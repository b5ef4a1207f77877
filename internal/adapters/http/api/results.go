// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/domain/model"
	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/domain/session"
	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/domain/types"
)

// ResultsDependencies defines the interface for ledger and draft access.
type ResultsDependencies interface {
	Results(ctx context.Context, id string) ([]session.ReviewEntry, error)
	Upload(ctx context.Context, id string) (types.UploadPayload, error)
	Progress(ctx context.Context, id string) (types.Progress, error)
	UpdateComments(ctx context.Context, id string, upd model.CommentsUpdate) error
	EditJustification(ctx context.Context, id string, edit model.JustificationEdit) error
}

// ResultsHandler handles ledger reads and draft/justification writes.
type ResultsHandler struct {
	deps ResultsDependencies
}

// NewResultsHandler creates a new results handler.
func NewResultsHandler(deps ResultsDependencies) *ResultsHandler {
	return &ResultsHandler{deps: deps}
}

type commentsRequest struct {
	DirectedComments *string `json:"directed_comments"`
	Narrative        *string `json:"narrative"`
}

type justificationRequest struct {
	Section       string `json:"section"`
	Trait         string `json:"trait"`
	Justification string `json:"justification"`
}

type resultsResponse struct {
	Entries []session.ReviewEntry `json:"entries"`
}

// HandleGetResults handles GET /v1/sessions/{id}/results requests.
func (h *ResultsHandler) HandleGetResults(w http.ResponseWriter, r *http.Request) {
	entries, err := h.deps.Results(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resultsResponse{Entries: entries})
}

// HandleGetUpload handles GET /v1/sessions/{id}/upload requests.
func (h *ResultsHandler) HandleGetUpload(w http.ResponseWriter, r *http.Request) {
	payload, err := h.deps.Upload(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

// HandleGetProgress handles GET /v1/sessions/{id}/progress requests.
func (h *ResultsHandler) HandleGetProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := h.deps.Progress(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

// HandlePutComments handles PUT /v1/sessions/{id}/comments requests.
func (h *ResultsHandler) HandlePutComments(w http.ResponseWriter, r *http.Request) {
	var req commentsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	err := h.deps.UpdateComments(r.Context(), r.PathValue("id"), model.CommentsUpdate{
		DirectedComments: req.DirectedComments,
		Narrative:        req.Narrative,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandlePutJustification handles PUT /v1/sessions/{id}/justification requests.
func (h *ResultsHandler) HandlePutJustification(w http.ResponseWriter, r *http.Request) {
	var req justificationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	err := h.deps.EditJustification(r.Context(), r.PathValue("id"), model.JustificationEdit{
		Trait:         types.TraitRef{SectionKey: req.Section, TraitKey: req.Trait},
		Justification: req.Justification,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
