// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/app"
	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/domain/model"
	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/domain/session"
	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/domain/snapshot"
)

// Dependencies bundles everything the handlers need. Each handler declares
// its own narrow interface; this is their union, satisfied by the app
// service.
type Dependencies interface {
	SessionDependencies
	GradingDependencies
	ResultsDependencies
	DurabilityDependencies
	CatalogDependencies
}

// Server wires HTTP routes for the evaluation API.
type Server struct {
	healthHandler     *HealthHandler
	sessionsHandler   *SessionsHandler
	gradingHandler    *GradingHandler
	resultsHandler    *ResultsHandler
	durabilityHandler *DurabilityHandler
	catalogHandler    *CatalogHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:     NewHealthHandler(),
		sessionsHandler:   NewSessionsHandler(deps),
		gradingHandler:    NewGradingHandler(deps),
		resultsHandler:    NewResultsHandler(deps),
		durabilityHandler: NewDurabilityHandler(deps),
		catalogHandler:    NewCatalogHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /v1/catalog", MetricsMiddleware(s.catalogHandler.HandleGetCatalog, "catalog"))

	mux.HandleFunc("POST /v1/sessions", MetricsMiddleware(s.sessionsHandler.HandleCreate, "sessions"))
	mux.HandleFunc("POST /v1/sessions/{id}/open", MetricsMiddleware(s.sessionsHandler.HandleOpen, "session_open"))
	mux.HandleFunc("GET /v1/sessions/{id}", MetricsMiddleware(s.sessionsHandler.HandleGet, "session_view"))

	mux.HandleFunc("POST /v1/sessions/{id}/decisions", MetricsMiddleware(s.gradingHandler.HandleDecision, "decisions"))
	mux.HandleFunc("POST /v1/sessions/{id}/finalize", MetricsMiddleware(s.gradingHandler.HandleFinalize, "finalize"))
	mux.HandleFunc("POST /v1/sessions/{id}/reset", MetricsMiddleware(s.gradingHandler.HandleReset, "reset"))
	mux.HandleFunc("POST /v1/sessions/{id}/back", MetricsMiddleware(s.gradingHandler.HandleBack, "back"))
	mux.HandleFunc("POST /v1/sessions/{id}/review", MetricsMiddleware(s.gradingHandler.HandleReview, "review"))
	mux.HandleFunc("POST /v1/sessions/{id}/reevaluations", MetricsMiddleware(s.gradingHandler.HandleStartReevaluation, "reevaluations"))
	mux.HandleFunc("DELETE /v1/sessions/{id}/reevaluations", MetricsMiddleware(s.gradingHandler.HandleCancelReevaluation, "reevaluations"))

	mux.HandleFunc("PUT /v1/sessions/{id}/comments", MetricsMiddleware(s.resultsHandler.HandlePutComments, "comments"))
	mux.HandleFunc("PUT /v1/sessions/{id}/justification", MetricsMiddleware(s.resultsHandler.HandlePutJustification, "justification"))
	mux.HandleFunc("GET /v1/sessions/{id}/results", MetricsMiddleware(s.resultsHandler.HandleGetResults, "results"))
	mux.HandleFunc("GET /v1/sessions/{id}/upload", MetricsMiddleware(s.resultsHandler.HandleGetUpload, "upload"))
	mux.HandleFunc("GET /v1/sessions/{id}/progress", MetricsMiddleware(s.resultsHandler.HandleGetProgress, "progress"))

	mux.HandleFunc("GET /v1/sessions/{id}/save-status", MetricsMiddleware(s.durabilityHandler.HandleGetSaveStatus, "save_status"))
	mux.HandleFunc("POST /v1/sessions/{id}/save", MetricsMiddleware(s.durabilityHandler.HandleForceSave, "save"))
	mux.HandleFunc("GET /v1/sessions/{id}/history", MetricsMiddleware(s.durabilityHandler.HandleGetHistory, "history"))
	mux.HandleFunc("POST /v1/system/online", MetricsMiddleware(s.durabilityHandler.HandleOnline, "online"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError maps domain sentinels onto HTTP statuses: validation
// failures return to the caller for correction, missing sessions are 404,
// sequencing misuse is a conflict, everything else is internal.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, snapshot.ErrRestore):
		writeError(w, http.StatusConflict, "snapshot_invalid", err)
	case errors.Is(err, model.ErrInvalidSubmission), errors.Is(err, session.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation", err)
	case errors.Is(err, session.ErrOutOfRange), errors.Is(err, session.ErrNoActiveTrait):
		writeError(w, http.StatusConflict, "out_of_range", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// jsonDecodeOptional decodes a request body that may legitimately be empty;
// an absent body surfaces as io.EOF for the caller to treat as "no payload".
func jsonDecodeOptional(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return false
	}
	return true
}
