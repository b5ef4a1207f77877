// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/domain/snapshot"
	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/domain/types"
)

// DurabilityDependencies defines the interface for save-status and flush
// operations.
type DurabilityDependencies interface {
	SaveStatus(ctx context.Context, id string) (types.SaveStatus, error)
	SaveHistory(ctx context.Context, id string) ([]snapshot.HistoryEntry, error)
	ForceSave(ctx context.Context, id string) (bool, types.SaveStatus, error)
	FlushQueues(ctx context.Context) (int, error)
}

// DurabilityHandler handles save-status reads, forced saves, and the
// connectivity-restored signal.
type DurabilityHandler struct {
	deps DurabilityDependencies
}

// NewDurabilityHandler creates a new durability handler.
func NewDurabilityHandler(deps DurabilityDependencies) *DurabilityHandler {
	return &DurabilityHandler{deps: deps}
}

type saveResponse struct {
	Saved  bool             `json:"saved"`
	Status types.SaveStatus `json:"status"`
}

type onlineResponse struct {
	FlushedSessions int `json:"flushed_sessions"`
}

type historyResponse struct {
	Entries []snapshot.HistoryEntry `json:"entries"`
}

// HandleGetSaveStatus handles GET /v1/sessions/{id}/save-status requests.
func (h *DurabilityHandler) HandleGetSaveStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.deps.SaveStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// HandleForceSave handles POST /v1/sessions/{id}/save requests. A failed
// save is not an HTTP error: the outcome and the resulting status are the
// response, matching the engine's never-throw durability contract.
func (h *DurabilityHandler) HandleForceSave(w http.ResponseWriter, r *http.Request) {
	saved, status, err := h.deps.ForceSave(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saveResponse{Saved: saved, Status: status})
}

// HandleGetHistory handles GET /v1/sessions/{id}/history requests. Entries
// are newest first, capped at the saver's ring size.
func (h *DurabilityHandler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.deps.SaveHistory(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{Entries: entries})
}

// HandleOnline handles POST /v1/system/online requests: connectivity is
// back, replay every persisted retry queue.
func (h *DurabilityHandler) HandleOnline(w http.ResponseWriter, r *http.Request) {
	flushed, err := h.deps.FlushQueues(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "flush_failed", err)
		return
	}
	writeJSON(w, http.StatusOK, onlineResponse{FlushedSessions: flushed})
}
