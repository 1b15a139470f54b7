package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/danielladerman/speakflow/internal/model"
	"github.com/danielladerman/speakflow/internal/service"
)

// SessionHandler handles session upload and report endpoints.
type SessionHandler struct {
	sessionSvc *service.SessionService
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(sessionSvc *service.SessionService) *SessionHandler {
	return &SessionHandler{sessionSvc: sessionSvc}
}

// CreateResponse is returned after an upload is accepted.
type CreateResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

// StatusResponse is the lightweight polling response.
type StatusResponse struct {
	SessionID    string     `json:"session_id"`
	Status       string     `json:"status"`
	DurationSec  float64    `json:"duration_sec,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// Create handles POST /v1/sessions: multipart audio upload.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing audio file")
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read audio file")
		return
	}

	contentType := header.Header.Get("Content-Type")
	session, err := h.sessionSvc.CreateFromUpload(r.Context(), audio, contentType)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnsupportedFormat):
			writeError(w, http.StatusBadRequest, "unsupported audio format, use WAV, MP3 or M4A")
		case errors.Is(err, service.ErrFileTooLarge):
			writeError(w, http.StatusBadRequest, "audio file too large")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusCreated, CreateResponse{
		SessionID: session.ID,
		Status:    string(session.Status),
		Message:   "analysis queued, poll /v1/sessions/{id}/status or subscribe to /v1/ws/sessions/{id}",
	})
}

// Get handles GET /v1/sessions/{id}: the full report.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	session, err := h.sessionSvc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// Status handles GET /v1/sessions/{id}/status.
func (h *SessionHandler) Status(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	session, err := h.sessionSvc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, statusOf(session))
}

// List handles GET /v1/sessions.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.sessionSvc.List(r.Context(), 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	statuses := make([]StatusResponse, 0, len(sessions))
	for _, s := range sessions {
		statuses = append(statuses, statusOf(s))
	}
	writeJSON(w, http.StatusOK, statuses)
}

func statusOf(s *model.Session) StatusResponse {
	return StatusResponse{
		SessionID:    s.ID,
		Status:       string(s.Status),
		DurationSec:  s.DurationSec,
		ErrorMessage: s.ErrorMessage,
		CreatedAt:    s.CreatedAt,
		CompletedAt:  s.CompletedAt,
	}
}
