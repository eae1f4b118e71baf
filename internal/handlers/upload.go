package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"podclip-backend/internal/middleware"
	"podclip-backend/internal/models"
	"podclip-backend/internal/services"
)

type uploadService interface {
	CreateUpload(ctx context.Context, userID uuid.UUID, req models.CreateUploadRequest) (*services.UploadTicket, error)
	ProcessUpload(ctx context.Context, userID, uploadedFileID uuid.UUID, mode string) (*models.Job, error)
	ListUploads(ctx context.Context, userID uuid.UUID, limit int) ([]*models.UploadedFile, error)
}

type UploadHandler struct {
	service uploadService
}

func NewUploadHandler(service uploadService) *UploadHandler {
	return &UploadHandler{service: service}
}

// Create issues a pre-signed PUT URL for a new source video.
func (h *UploadHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	ticket, err := h.service.CreateUpload(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, ticket)
}

// Process dispatches a finished upload. Repeated calls are accepted without
// starting a second job.
func (h *UploadHandler) Process(w http.ResponseWriter, r *http.Request) {
	uploadedFileID, err := urlParamID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid uploaded file ID", r))
		return
	}

	var req models.ProcessUploadRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	job, err := h.service.ProcessUpload(r.Context(), middleware.GetUserID(r.Context()), uploadedFileID, req.Mode)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	if job == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"message": "Upload already dispatched",
		})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"message": "Processing started",
		"job":     job,
	})
}

func (h *UploadHandler) List(w http.ResponseWriter, r *http.Request) {
	files, err := h.service.ListUploads(r.Context(), middleware.GetUserID(r.Context()), queryLimit(r))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if files == nil {
		files = []*models.UploadedFile{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"uploads": files})
}
