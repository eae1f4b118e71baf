package models

import (
	"time"

	"github.com/google/uuid"
)

// Upload statuses as persisted and rendered on the dashboard badge.
const (
	UploadStatusQueued     = "queued"
	UploadStatusProcessing = "processing"
	UploadStatusProcessed  = "processed"
	UploadStatusNoCredits  = "no credits"
	UploadStatusFailed     = "failed"
)

type UploadedFile struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	S3Key       string    `json:"s3_key"`
	DisplayName string    `json:"display_name"`
	Status      string    `json:"status"`
	Uploaded    bool      `json:"uploaded"`
	ClipCount   int       `json:"clip_count"`
	CreatedAt   time.Time `json:"created_at"`
}

type CreateUploadRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

type ProcessUploadRequest struct {
	Mode string `json:"mode"`
}

type SubmitYouTubeRequest struct {
	URL  string `json:"url"`
	Mode string `json:"mode"`
}
