package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"podclip-backend/internal/middleware"
	"podclip-backend/internal/models"
)

type youtubeService interface {
	ProcessYouTube(ctx context.Context, userID uuid.UUID, rawURL, mode string) (*models.Job, error)
}

type YouTubeHandler struct {
	service youtubeService
}

func NewYouTubeHandler(service youtubeService) *YouTubeHandler {
	return &YouTubeHandler{service: service}
}

func (h *YouTubeHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitYouTubeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	job, err := h.service.ProcessYouTube(r.Context(), middleware.GetUserID(r.Context()), req.URL, req.Mode)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"message": "Processing started",
		"job":     job,
	})
}
