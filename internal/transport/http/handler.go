package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

// Identity headers set by the upstream authentication proxy. Every request
// is re-authenticated from these; no session affinity exists between polls.
const (
	headerUserID   = "X-User-ID"
	headerUserName = "X-User-Name"
)

// Handler exposes the polling sync protocol over JSON.
type Handler struct {
	service *app.SessionService
}

func NewHandler(service *app.SessionService) *Handler {
	return &Handler{service: service}
}

// Register mounts the protocol routes on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /sessions", h.createSession)
	mux.HandleFunc("GET /sessions", h.listSessions)
	mux.HandleFunc("GET /sessions/{id}", h.getSession)
	mux.HandleFunc("PATCH /sessions/{id}", h.applyAction)
	mux.HandleFunc("GET /sessions/{id}/leaderboard", h.leaderboard)
	mux.HandleFunc("GET /sessions/{id}/progress", h.progressFeed)
	mux.HandleFunc("GET /sessions/{id}/analytics", h.analytics)
}

type createSessionRequest struct {
	QuizSetID       string `json:"quizSetId"`
	DurationMinutes int    `json:"durationMinutes"`
}

type actionRequest struct {
	Action   app.Action      `json:"action"`
	Answers  []domain.Answer `json:"answers,omitempty"`
	Score    int             `json:"score,omitempty"`
	Progress int             `json:"progress,omitempty"`
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing identity"})
		return
	}
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	sessionID, err := h.service.Create(r.Context(), principal, req.QuizSetID, req.DurationMinutes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"sessionId": sessionID})
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFrom(r)
	view, err := h.service.Get(r.Context(), principal, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) applyAction(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing identity"})
		return
	}
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	payload := app.SubmitPayload{Answers: req.Answers, Score: req.Score, Progress: req.Progress}
	if err := h.service.Apply(r.Context(), principal, r.PathValue("id"), req.Action, payload); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if query.Get("owner") == "true" {
		principal, ok := principalFrom(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing identity"})
			return
		}
		summaries, err := h.service.ListByOwner(r.Context(), principal)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sessions": summaries})
		return
	}

	var summaries []domain.SessionSummary
	var err error
	if status := query.Get("status"); status != "" {
		summaries, err = h.service.ListByStatus(r.Context(), domain.Status(status))
	} else {
		summaries, err = h.service.ListOpen(r.Context())
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": summaries})
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFrom(r)
	board, err := h.service.Leaderboard(r.Context(), principal, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (h *Handler) progressFeed(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFrom(r)
	feed, err := h.service.ProgressFeed(r.Context(), principal, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"participants": feed})
}

func (h *Handler) analytics(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFrom(r)
	analytics, err := h.service.Analytics(r.Context(), principal, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analytics)
}

func principalFrom(r *http.Request) (domain.Principal, bool) {
	id := r.Header.Get(headerUserID)
	if id == "" {
		return domain.Principal{}, false
	}
	name := r.Header.Get(headerUserName)
	if name == "" {
		name = id
	}
	return domain.Principal{ID: id, DisplayName: name}, true
}

// writeError maps the error taxonomy onto HTTP statuses. Conflicts reach
// here only after the service exhausted its retries.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrQuizSetNotFound),
		errors.Is(err, domain.ErrParticipantNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidState):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrValidation):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrConflict):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "session busy, retry"})
	default:
		log.Printf("internal error: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write response: %v", err)
	}
}
