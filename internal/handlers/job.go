package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"podclip-backend/internal/middleware"
	"podclip-backend/internal/models"
)

type jobService interface {
	GetJob(ctx context.Context, userID, jobID uuid.UUID) (*models.Job, error)
	ListJobs(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Job, error)
}

type JobHandler struct {
	service jobService
}

func NewJobHandler(service jobService) *JobHandler {
	return &JobHandler{service: service}
}

func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid job ID", r))
		return
	}

	job, err := h.service.GetJob(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, job)
}

func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.service.ListJobs(r.Context(), middleware.GetUserID(r.Context()), queryLimit(r))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if jobs == nil {
		jobs = []*models.Job{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"jobs": jobs})
}
