package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"retroboard/internal/domain"
	"retroboard/internal/service"
	apperrors "retroboard/pkg/errors"
	"retroboard/pkg/logger"

	"github.com/go-chi/chi/v5"
)

type RetroHandler struct {
	retroService *service.RetroService
	logger       *logger.Logger
}

func NewRetroHandler(retroService *service.RetroService, logger *logger.Logger) *RetroHandler {
	return &RetroHandler{
		retroService: retroService,
		logger:       logger,
	}
}

// RegisterRoutes registers retro handler routes with the router
func (h *RetroHandler) RegisterRoutes(r chi.Router) {
	r.Route("/retros", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/by-name/{name}", h.GetIDByName)
		r.Get("/{id}", h.GetSnapshot)
		r.Post("/{id}/start", h.Start)
		r.Post("/{id}/notes", h.AddNote)
		r.Post("/{id}/vote", h.ToggleVote)
		r.Post("/{id}/join", h.Join)
	})
}

// CreateRetroRequest is the payload for POST /api/retros
type CreateRetroRequest struct {
	Team    string `json:"team"`
	DateISO string `json:"dateISO"`
	Name    string `json:"name,omitempty"`
}

// Create handles POST /api/retros
func (h *RetroHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRetroRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, apperrors.NewValidationError("invalid request body", nil))
		return
	}

	retro, err := h.retroService.Create(r.Context(), req.Team, req.DateISO, req.Name)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]string{
		"id":   retro.ID,
		"name": retro.Name,
	})
}

// List handles GET /api/retros
func (h *RetroHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.retroService.List(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, items)
}

// GetSnapshot handles GET /api/retros/{id}
func (h *RetroHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	snapshot, err := h.retroService.Snapshot(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, snapshot)
}

// GetIDByName handles GET /api/retros/by-name/{name}
func (h *RetroHandler) GetIDByName(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	id, err := h.retroService.IDByName(r.Context(), name)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"id": id})
}

// StartRetroRequest is the payload for POST /api/retros/{id}/start
type StartRetroRequest struct {
	DurationMinutes int    `json:"durationMinutes"`
	StarterUserID   string `json:"starterUserId"`
}

// Start handles POST /api/retros/{id}/start
func (h *RetroHandler) Start(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req StartRetroRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, apperrors.NewValidationError("invalid request body", nil))
		return
	}

	snapshot, err := h.retroService.Start(r.Context(), id, req.DurationMinutes, req.StarterUserID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, snapshot)
}

// AddNoteRequest is the payload for POST /api/retros/{id}/notes
type AddNoteRequest struct {
	Column     domain.Column `json:"column"`
	Text       string        `json:"text"`
	AuthorID   string        `json:"authorId"`
	AuthorName string        `json:"authorName,omitempty"`
}

// AddNote handles POST /api/retros/{id}/notes
func (h *RetroHandler) AddNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req AddNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, apperrors.NewValidationError("invalid request body", nil))
		return
	}

	snapshot, err := h.retroService.AddNote(r.Context(), id, req.Column, req.Text, req.AuthorID, req.AuthorName)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, snapshot)
}

// ToggleVoteRequest is the payload for POST /api/retros/{id}/vote
type ToggleVoteRequest struct {
	NoteID string `json:"noteId"`
	UserID string `json:"userId"`
}

// ToggleVote handles POST /api/retros/{id}/vote
func (h *RetroHandler) ToggleVote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ToggleVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, apperrors.NewValidationError("invalid request body", nil))
		return
	}

	snapshot, err := h.retroService.ToggleVote(r.Context(), id, req.NoteID, req.UserID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, snapshot)
}

// JoinRetroRequest is the payload for POST /api/retros/{id}/join
type JoinRetroRequest struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// Join handles POST /api/retros/{id}/join
func (h *RetroHandler) Join(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req JoinRetroRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, apperrors.NewValidationError("invalid request body", nil))
		return
	}

	snapshot, err := h.retroService.Join(r.Context(), id, domain.Participant{
		ID:     req.UserID,
		Name:   req.Name,
		Avatar: req.Avatar,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, snapshot)
}

func (h *RetroHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError maps AppError rejections to their HTTP status; anything else
// is an infrastructure failure surfaced as a 500.
func (h *RetroHandler) respondError(w http.ResponseWriter, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.NewInternalError("internal error", err)
	}
	if appErr.Type == apperrors.ErrorTypeInternal {
		h.logger.WithError(err).Error("Request failed")
	}
	h.respondJSON(w, appErr.StatusCode, map[string]interface{}{
		"error": appErr,
	})
}
