package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	SourceUpload  = "upload"
	SourceYouTube = "youtube"
)

// Job steps, in the order a successful job passes through them.
const (
	JobQueued          = "queued"
	JobChecked         = "checked"
	JobDispatched      = "dispatched"
	JobClipsRecorded   = "clips_recorded"
	JobCreditsDeducted = "credits_deducted"
	JobCompleted       = "completed"
	JobNoCredits       = "no_credits"
	JobFailed          = "failed"
)

// DefaultMaxAttempts allows one retry of the whole job.
const DefaultMaxAttempts = 2

var stepOrder = map[string]int{
	JobQueued:          0,
	JobChecked:         1,
	JobDispatched:      2,
	JobClipsRecorded:   3,
	JobCreditsDeducted: 4,
	JobCompleted:       5,
}

type Job struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"user_id"`
	SourceKind     string     `json:"source_kind"` // "upload" | "youtube"
	UploadedFileID *uuid.UUID `json:"uploaded_file_id,omitempty"`
	YouTubeURL     *string    `json:"youtube_url,omitempty"`
	Mode           string     `json:"mode"`
	Step           string     `json:"step"`
	Attempts       int        `json:"attempts"`
	MaxAttempts    int        `json:"max_attempts"`
	PriorCredits   *int       `json:"prior_credits,omitempty"`
	ClipsFound     int        `json:"clips_found"`
	ErrorMessage   *string    `json:"error_message"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	CompletedAt    *time.Time `json:"completed_at"`
}

// Reached reports whether the job has already passed through step.
func (j *Job) Reached(step string) bool {
	cur, ok := stepOrder[j.Step]
	if !ok {
		return false
	}
	want, ok := stepOrder[step]
	if !ok {
		return false
	}
	return cur >= want
}

func (j *Job) Terminal() bool {
	switch j.Step {
	case JobCompleted, JobNoCredits, JobFailed:
		return true
	}
	return false
}

func (j *Job) HasUpload() bool {
	return j.UploadedFileID != nil && *j.UploadedFileID != uuid.Nil
}

// ProcessingRequest is the trigger event handed from the web tier to the worker.
// Exactly one of UploadedFileID and YouTubeURL is set.
type ProcessingRequest struct {
	UserID         uuid.UUID
	UploadedFileID *uuid.UUID
	YouTubeURL     *string
	Mode           string
}

func (r ProcessingRequest) SourceKind() string {
	if r.UploadedFileID != nil {
		return SourceUpload
	}
	return SourceYouTube
}

// NewJob builds the persisted job record for a request.
func NewJob(req ProcessingRequest) *Job {
	mode := req.Mode
	if mode == "" {
		mode = DefaultClipMode
	}
	j := &Job{
		ID:          uuid.New(),
		UserID:      req.UserID,
		SourceKind:  req.SourceKind(),
		Mode:        mode,
		Step:        JobQueued,
		MaxAttempts: DefaultMaxAttempts,
	}
	if req.UploadedFileID != nil {
		id := *req.UploadedFileID
		j.UploadedFileID = &id
	} else if req.YouTubeURL != nil {
		url := *req.YouTubeURL
		j.YouTubeURL = &url
	}
	return j
}

// WebSocket message types
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type StatusEvent struct {
	JobID          uuid.UUID  `json:"job_id"`
	UploadedFileID *uuid.UUID `json:"uploaded_file_id,omitempty"`
	Step           string     `json:"step"`
	Status         string     `json:"status,omitempty"`
	ClipsFound     int        `json:"clips_found,omitempty"`
}

type ErrorEvent struct {
	JobID        uuid.UUID `json:"job_id"`
	ErrorCode    string    `json:"error_code"`
	ErrorMessage string    `json:"error_message"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
