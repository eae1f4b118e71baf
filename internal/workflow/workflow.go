// Package workflow runs one processing job through credit check, external
// compute, clip discovery and credit deduction, checkpointing each step on
// the job record so a retried job resumes where the last attempt stopped.
package workflow

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"podclip-backend/internal/metrics"
	"podclip-backend/internal/models"
	"podclip-backend/internal/services"
	"podclip-backend/internal/storage"
)

type AccountStore interface {
	GetAccount(ctx context.Context, userID uuid.UUID) (*models.Account, error)
}

type UploadStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.UploadedFile, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

type JobStore interface {
	UpdateStep(ctx context.Context, id uuid.UUID, step string) error
	MarkChecked(ctx context.Context, id uuid.UUID, priorCredits int) error
	RecordClips(ctx context.Context, j *models.Job, keys []string) (int, error)
	DeductCredits(ctx context.Context, j *models.Job, amount int) error
}

type ObjectLister interface {
	List(ctx context.Context, prefix string) ([]storage.Object, error)
}

type Computer interface {
	Process(ctx context.Context, req services.ComputeRequest) (*services.ComputeResult, error)
}

type Publisher interface {
	Publish(ctx context.Context, userID uuid.UUID, msg models.WSMessage)
}

type Workflow struct {
	accounts        AccountStore
	uploads         UploadStore
	jobs            JobStore
	objects         ObjectLister
	compute         Computer
	publisher       Publisher
	metrics         *metrics.Metrics
	maxYouTubeClips int
}

func New(
	accounts AccountStore,
	uploads UploadStore,
	jobs JobStore,
	objects ObjectLister,
	compute Computer,
	publisher Publisher,
	m *metrics.Metrics,
	maxYouTubeClips int,
) *Workflow {
	return &Workflow{
		accounts:        accounts,
		uploads:         uploads,
		jobs:            jobs,
		objects:         objects,
		compute:         compute,
		publisher:       publisher,
		metrics:         m,
		maxYouTubeClips: maxYouTubeClips,
	}
}

// Run advances job to a terminal outcome. A nil return means the job either
// completed or stopped at the credit gate. On error the uploaded file (if
// any) is marked failed and the error is returned for the retry policy.
func (w *Workflow) Run(ctx context.Context, job *models.Job) (err error) {
	defer func() {
		if err == nil || !job.HasUpload() {
			return
		}
		// The attempt may have died on ctx; the failure mark must still land.
		failCtx := context.WithoutCancel(ctx)
		if statusErr := w.uploads.UpdateStatus(failCtx, *job.UploadedFileID, models.UploadStatusFailed); statusErr != nil {
			log.Printf("Job %s: failed to mark upload %s as failed: %v", job.ID, *job.UploadedFileID, statusErr)
		}
		w.notify(failCtx, job, models.UploadStatusFailed)
	}()

	userID := job.UserID
	var upload *models.UploadedFile
	if job.HasUpload() {
		upload, err = w.uploads.GetByID(ctx, *job.UploadedFileID)
		if err != nil {
			return fmt.Errorf("failed to get uploaded file %s: %w", *job.UploadedFileID, err)
		}
		userID = upload.UserID
	}

	credits, proceed, err := w.checkCredits(ctx, job, userID)
	if err != nil || !proceed {
		return err
	}

	if upload != nil {
		if err := w.uploads.UpdateStatus(ctx, upload.ID, models.UploadStatusProcessing); err != nil {
			return fmt.Errorf("failed to mark upload processing: %w", err)
		}
	}
	w.notify(ctx, job, models.UploadStatusProcessing)

	if !job.Reached(models.JobClipsRecorded) {
		prefix, err := w.dispatch(ctx, job, upload)
		if err != nil {
			return err
		}

		if err := w.recordClips(ctx, job, prefix); err != nil {
			return err
		}
	}

	if !job.Reached(models.JobCreditsDeducted) {
		amount := min(credits, job.ClipsFound)
		if err := w.jobs.DeductCredits(ctx, job, amount); err != nil {
			return fmt.Errorf("failed to deduct credits: %w", err)
		}
		job.Step = models.JobCreditsDeducted
		w.metrics.CreditsDeducted(amount)
		log.Printf("Job %s: deducted %d credit(s) from user %s", job.ID, amount, userID)
	}

	if upload != nil {
		if err := w.uploads.UpdateStatus(ctx, upload.ID, models.UploadStatusProcessed); err != nil {
			return fmt.Errorf("failed to mark upload processed: %w", err)
		}
	}
	if err := w.jobs.UpdateStep(ctx, job.ID, models.JobCompleted); err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}
	job.Step = models.JobCompleted

	w.notify(ctx, job, models.UploadStatusProcessed)
	w.metrics.JobFinished(job.SourceKind, models.UploadStatusProcessed)
	log.Printf("Job %s completed with %d clip(s)", job.ID, job.ClipsFound)
	return nil
}

// checkCredits returns the balance to charge against and whether the job may
// proceed. A resumed job reuses the balance recorded by its first attempt.
func (w *Workflow) checkCredits(ctx context.Context, job *models.Job, userID uuid.UUID) (int, bool, error) {
	if job.Reached(models.JobChecked) && job.PriorCredits != nil {
		return *job.PriorCredits, true, nil
	}

	account, err := w.accounts.GetAccount(ctx, userID)
	if err != nil {
		return 0, false, fmt.Errorf("failed to get credits for user %s: %w", userID, err)
	}

	if account.Credits <= 0 {
		if job.HasUpload() {
			if err := w.uploads.UpdateStatus(ctx, *job.UploadedFileID, models.UploadStatusNoCredits); err != nil {
				return 0, false, fmt.Errorf("failed to mark upload out of credits: %w", err)
			}
		}
		if err := w.jobs.UpdateStep(ctx, job.ID, models.JobNoCredits); err != nil {
			return 0, false, fmt.Errorf("failed to record no-credits outcome: %w", err)
		}
		job.Step = models.JobNoCredits

		w.notify(ctx, job, models.UploadStatusNoCredits)
		w.metrics.JobFinished(job.SourceKind, models.UploadStatusNoCredits)
		log.Printf("Job %s: user %s has no credits, skipping", job.ID, userID)
		return 0, false, nil
	}

	if err := w.jobs.MarkChecked(ctx, job.ID, account.Credits); err != nil {
		return 0, false, fmt.Errorf("failed to checkpoint credit check: %w", err)
	}
	credits := account.Credits
	job.PriorCredits = &credits
	job.Step = models.JobChecked
	return credits, true, nil
}

// dispatch calls the compute endpoint and returns the prefix its output was
// written under.
func (w *Workflow) dispatch(ctx context.Context, job *models.Job, upload *models.UploadedFile) (string, error) {
	req := services.ComputeRequest{Mode: job.Mode}
	var prefix string

	switch {
	case upload != nil:
		req.S3Key = upload.S3Key
		prefix = storage.JobPrefix(upload.S3Key)
	case job.YouTubeURL != nil && *job.YouTubeURL != "":
		req.YouTubeURL = *job.YouTubeURL
		prefix = storage.YouTubePrefix(job.ID)
		req.OutputPrefix = prefix
	default:
		return "", fmt.Errorf("job %s has neither an uploaded file nor a YouTube URL", job.ID)
	}

	if err := w.jobs.UpdateStep(ctx, job.ID, models.JobDispatched); err != nil {
		return "", fmt.Errorf("failed to checkpoint dispatch: %w", err)
	}
	job.Step = models.JobDispatched

	log.Printf("Job %s: calling process-video endpoint (source: %s, mode: %s)", job.ID, job.SourceKind, job.Mode)
	started := time.Now()
	result, err := w.compute.Process(ctx, req)
	w.metrics.ComputeCall(job.SourceKind, time.Since(started), err)
	if err != nil {
		return "", fmt.Errorf("process-video call failed: %w", err)
	}

	if job.SourceKind == models.SourceYouTube && result != nil && result.OutputPrefix != "" {
		prefix = withTrailingSlash(result.OutputPrefix)
	}
	return prefix, nil
}

func (w *Workflow) recordClips(ctx context.Context, job *models.Job, prefix string) error {
	objects, err := w.objects.List(ctx, prefix)
	if err != nil {
		return fmt.Errorf("failed to list clips under %s: %w", prefix, err)
	}

	limit := 0
	if job.SourceKind == models.SourceYouTube {
		limit = w.maxYouTubeClips
	}
	keys := clipKeys(objects, limit)

	found, err := w.jobs.RecordClips(ctx, job, keys)
	if err != nil {
		return fmt.Errorf("failed to record clips: %w", err)
	}
	job.ClipsFound = found
	job.Step = models.JobClipsRecorded

	w.metrics.ClipsRecorded(job.SourceKind, len(keys))
	log.Printf("Job %s: found %d clip(s) under %s", job.ID, found, prefix)
	return nil
}

func (w *Workflow) notify(ctx context.Context, job *models.Job, status string) {
	if w.publisher == nil {
		return
	}
	w.publisher.Publish(ctx, job.UserID, models.WSMessage{
		Type: "status_update",
		Payload: models.StatusEvent{
			JobID:          job.ID,
			UploadedFileID: job.UploadedFileID,
			Step:           job.Step,
			Status:         status,
			ClipsFound:     job.ClipsFound,
		},
	})
}
