package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"podclip-backend/internal/models"
	"podclip-backend/internal/storage"
)

const (
	uploadURLTTL = 15 * time.Minute
	playURLTTL   = time.Hour

	defaultListLimit = 50
	maxFilenameLen   = 255
)

type uploadRepository interface {
	Create(ctx context.Context, f *models.UploadedFile) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.UploadedFile, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.UploadedFile, error)
}

type jobRepository interface {
	Create(ctx context.Context, j *models.Job) error
	CreateForUpload(ctx context.Context, j *models.Job) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Job, error)
}

type clipRepository interface {
	GetForUser(ctx context.Context, id, userID uuid.UUID) (*models.Clip, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Clip, error)
}

type userRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type jobQueue interface {
	Enqueue(ctx context.Context, jobID uuid.UUID) error
}

type urlSigner interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
}

// SubmissionService holds the actions the web tier performs on behalf of a
// signed-in user: issuing upload URLs, dispatching jobs and serving clips.
type SubmissionService struct {
	uploads uploadRepository
	jobs    jobRepository
	clips   clipRepository
	users   userRepository
	queue   jobQueue
	signer  urlSigner
}

func NewSubmissionService(
	uploads uploadRepository,
	jobs jobRepository,
	clips clipRepository,
	users userRepository,
	queue jobQueue,
	signer urlSigner,
) *SubmissionService {
	return &SubmissionService{
		uploads: uploads,
		jobs:    jobs,
		clips:   clips,
		users:   users,
		queue:   queue,
		signer:  signer,
	}
}

type UploadTicket struct {
	File      *models.UploadedFile `json:"file"`
	UploadURL string               `json:"upload_url"`
	ExpiresIn int                  `json:"expires_in"`
}

// CreateUpload registers a new source video and returns a pre-signed PUT URL
// the browser uploads it to.
func (s *SubmissionService) CreateUpload(ctx context.Context, userID uuid.UUID, req models.CreateUploadRequest) (*UploadTicket, error) {
	if userID == uuid.Nil {
		return nil, &UnauthorizedError{Message: "Unauthorized"}
	}

	fields := map[string]string{}
	name := strings.TrimSpace(path.Base(strings.ReplaceAll(req.Filename, "\\", "/")))
	if name == "" || name == "." || name == "/" {
		fields["filename"] = "Filename is required"
	} else if len(name) > maxFilenameLen {
		fields["filename"] = "Filename is too long"
	}

	contentType := strings.TrimSpace(req.ContentType)
	if contentType == "" {
		contentType = "video/mp4"
	}
	if !strings.HasPrefix(contentType, "video/") {
		fields["content_type"] = "Only video files can be uploaded"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	file := &models.UploadedFile{
		UserID:      userID,
		S3Key:       storage.NewUploadKey(),
		DisplayName: name,
		Status:      models.UploadStatusQueued,
	}

	uploadURL, err := s.signer.PresignPut(ctx, file.S3Key, contentType, uploadURLTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign upload URL: %w", err)
	}

	if err := s.uploads.Create(ctx, file); err != nil {
		return nil, fmt.Errorf("failed to create uploaded file: %w", err)
	}

	return &UploadTicket{
		File:      file,
		UploadURL: uploadURL,
		ExpiresIn: int(uploadURLTTL.Seconds()),
	}, nil
}

// ProcessUpload dispatches an uploaded file. A file that was already
// dispatched is left alone and (nil, nil) is returned.
func (s *SubmissionService) ProcessUpload(ctx context.Context, userID, uploadedFileID uuid.UUID, mode string) (*models.Job, error) {
	if userID == uuid.Nil {
		return nil, &UnauthorizedError{Message: "Unauthorized"}
	}

	mode, err := normalizeMode(mode)
	if err != nil {
		return nil, err
	}

	file, err := s.uploads.GetByID(ctx, uploadedFileID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "Uploaded file not found"}
		}
		return nil, fmt.Errorf("failed to get uploaded file: %w", err)
	}
	if file.UserID != userID {
		return nil, &ForbiddenError{Message: "Access denied"}
	}
	if file.Uploaded {
		return nil, nil
	}

	job := models.NewJob(models.ProcessingRequest{
		UserID:         file.UserID,
		UploadedFileID: &file.ID,
		Mode:           mode,
	})

	created, err := s.jobs.CreateForUpload(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	if !created {
		return nil, nil
	}

	s.enqueue(ctx, job)
	return job, nil
}

// ProcessYouTube validates the URL and dispatches a YouTube job. Nothing is
// persisted for an invalid URL.
func (s *SubmissionService) ProcessYouTube(ctx context.Context, userID uuid.UUID, rawURL, mode string) (*models.Job, error) {
	if userID == uuid.Nil {
		return nil, &UnauthorizedError{Message: "Unauthorized"}
	}

	if _, err := ValidateYouTubeURL(rawURL); err != nil {
		return nil, err
	}
	mode, err := normalizeMode(mode)
	if err != nil {
		return nil, err
	}

	url := strings.TrimSpace(rawURL)
	job := models.NewJob(models.ProcessingRequest{
		UserID:     userID,
		YouTubeURL: &url,
		Mode:       mode,
	})

	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	s.enqueue(ctx, job)
	return job, nil
}

// enqueue hands a persisted job to the worker pool. A failed push leaves the
// job queued in the database, where boot recovery finds it.
func (s *SubmissionService) enqueue(ctx context.Context, job *models.Job) {
	if err := s.queue.Enqueue(ctx, job.ID); err != nil {
		log.Printf("Failed to enqueue job %s: %v", job.ID, err)
	}
}

// ClipPlayURL returns a one-hour pre-signed GET URL for a clip the user owns.
func (s *SubmissionService) ClipPlayURL(ctx context.Context, userID, clipID uuid.UUID) (string, error) {
	if userID == uuid.Nil {
		return "", &UnauthorizedError{Message: "Unauthorized"}
	}

	clip, err := s.clips.GetForUser(ctx, clipID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", &NotFoundError{Message: "Clip not found"}
		}
		return "", fmt.Errorf("failed to get clip: %w", err)
	}

	url, err := s.signer.PresignGet(ctx, clip.S3Key, playURLTTL)
	if err != nil {
		return "", fmt.Errorf("failed to sign play URL: %w", err)
	}
	return url, nil
}

func (s *SubmissionService) GetJob(ctx context.Context, userID, jobID uuid.UUID) (*models.Job, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "Job not found"}
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	if job.UserID != userID {
		return nil, &ForbiddenError{Message: "Access denied"}
	}
	return job, nil
}

func (s *SubmissionService) ListJobs(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Job, error) {
	return s.jobs.ListByUser(ctx, userID, clampLimit(limit))
}

func (s *SubmissionService) ListUploads(ctx context.Context, userID uuid.UUID, limit int) ([]*models.UploadedFile, error) {
	return s.uploads.ListByUser(ctx, userID, clampLimit(limit))
}

func (s *SubmissionService) ListClips(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Clip, error) {
	return s.clips.ListByUser(ctx, userID, clampLimit(limit))
}

func (s *SubmissionService) GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "User not found"}
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func normalizeMode(mode string) (string, error) {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		return models.DefaultClipMode, nil
	}
	if !models.IsClipMode(mode) {
		return "", &ValidationError{Fields: map[string]string{"mode": "Unknown clip mode"}}
	}
	return mode, nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > defaultListLimit {
		return defaultListLimit
	}
	return limit
}
