package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Clip struct {
	ID             uuid.UUID  `json:"id"`
	S3Key          string     `json:"s3_key"`
	UploadedFileID *uuid.UUID `json:"-"`
	JobID          uuid.UUID  `json:"job_id"`
	UserID         uuid.UUID  `json:"user_id"`
	CreatedAt      time.Time  `json:"created_at"`
}

// MarshalJSON renders a missing uploaded file as an empty string so that
// YouTube-sourced clips keep the same shape as upload-sourced ones.
func (c Clip) MarshalJSON() ([]byte, error) {
	type alias Clip
	uploadedFileID := ""
	if c.UploadedFileID != nil {
		uploadedFileID = c.UploadedFileID.String()
	}
	return json.Marshal(struct {
		alias
		UploadedFileID string `json:"uploaded_file_id"`
	}{alias(c), uploadedFileID})
}

type PlayURLResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ClipModes lists the clip-extraction heuristics the compute endpoint understands.
var ClipModes = []string{
	"question",
	"story",
	"quote",
	"controversial",
	"educational",
	"emotional",
	"laughter",
	"insight",
	"contradiction",
	"vulnerability",
	"actionable",
	"energy",
}

const DefaultClipMode = "question"

func IsClipMode(mode string) bool {
	for _, m := range ClipModes {
		if m == mode {
			return true
		}
	}
	return false
}
