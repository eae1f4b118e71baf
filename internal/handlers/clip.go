package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"podclip-backend/internal/middleware"
	"podclip-backend/internal/models"
	"podclip-backend/internal/services"
)

type clipService interface {
	ClipPlayURL(ctx context.Context, userID, clipID uuid.UUID) (string, error)
	ListClips(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Clip, error)
}

type ClipHandler struct {
	service clipService
}

func NewClipHandler(service clipService) *ClipHandler {
	return &ClipHandler{service: service}
}

func (h *ClipHandler) List(w http.ResponseWriter, r *http.Request) {
	clips, err := h.service.ListClips(r.Context(), middleware.GetUserID(r.Context()), queryLimit(r))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if clips == nil {
		clips = []*models.Clip{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"clips": clips})
}

// PlayURL answers with a structured result instead of the error envelope;
// the player treats any failure as "clip unavailable".
func (h *ClipHandler) PlayURL(w http.ResponseWriter, r *http.Request) {
	clipID, err := urlParamID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.PlayURLResponse{Error: "Invalid clip ID"})
		return
	}

	url, err := h.service.ClipPlayURL(r.Context(), middleware.GetUserID(r.Context()), clipID)
	if err != nil {
		switch err.(type) {
		case *services.UnauthorizedError:
			writeJSON(w, http.StatusUnauthorized, models.PlayURLResponse{Error: "Unauthorized"})
		case *services.NotFoundError:
			writeJSON(w, http.StatusNotFound, models.PlayURLResponse{Error: "Failed to generate play URL."})
		default:
			writeJSON(w, http.StatusInternalServerError, models.PlayURLResponse{Error: "Failed to generate play URL."})
		}
		return
	}

	writeJSON(w, http.StatusOK, models.PlayURLResponse{Success: true, URL: url})
}
