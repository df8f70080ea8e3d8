package handler

import (
	"encoding/json"
	"net/http"

	"retroboard/internal/domain"
)

// AvatarHandler serves the catalog of selectable avatar tokens.
type AvatarHandler struct{}

func NewAvatarHandler() *AvatarHandler {
	return &AvatarHandler{}
}

// List handles GET /api/avatars
func (h *AvatarHandler) List(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string][]string{
		"avatars": domain.Avatars,
	})
}
