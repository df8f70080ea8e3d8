package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"retroboard/internal/domain"
	"retroboard/internal/service"
	apperrors "retroboard/pkg/errors"
	"retroboard/pkg/logger"

	"github.com/go-chi/chi/v5"
)

// GifHandler proxies GIF search so the Tenor API key stays server-side.
type GifHandler struct {
	gifService service.GifService
	logger     *logger.Logger
}

func NewGifHandler(gifService service.GifService, logger *logger.Logger) *GifHandler {
	return &GifHandler{
		gifService: gifService,
		logger:     logger,
	}
}

// RegisterRoutes registers GIF proxy routes with the router
func (h *GifHandler) RegisterRoutes(r chi.Router) {
	r.Route("/gifs", func(r chi.Router) {
		r.Get("/search", h.Search)
		r.Get("/trending", h.Trending)
	})
}

// Search handles GET /api/gifs/search?q=...&limit=...
func (h *GifHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	results, err := h.gifService.Search(r.Context(), query, parseLimit(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, domain.GifSearchResponse{Results: results})
}

// Trending handles GET /api/gifs/trending?limit=...
func (h *GifHandler) Trending(w http.ResponseWriter, r *http.Request) {
	results, err := h.gifService.Trending(r.Context(), parseLimit(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, domain.GifSearchResponse{Results: results})
}

func parseLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		return 0
	}
	return limit
}

func (h *GifHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *GifHandler) respondError(w http.ResponseWriter, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.NewInternalError("internal error", err)
	}
	h.logger.WithError(err).Warn("GIF proxy request failed")
	h.respondJSON(w, appErr.StatusCode, map[string]interface{}{
		"error": appErr,
	})
}
