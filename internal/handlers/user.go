package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"podclip-backend/internal/middleware"
	"podclip-backend/internal/models"
)

type userService interface {
	GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

type UserHandler struct {
	service userService
}

func NewUserHandler(service userService) *UserHandler {
	return &UserHandler{service: service}
}

// GetMe returns the signed-in user with the current credit balance.
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
