package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"podclip-backend/internal/models"
)

type JobRepo struct {
	pool *pgxpool.Pool
}

func NewJobRepo(pool *pgxpool.Pool) *JobRepo {
	return &JobRepo{pool: pool}
}

const jobColumns = `id, user_id, source_kind, uploaded_file_id, youtube_url, mode, step, attempts,
	max_attempts, prior_credits, clips_found, error_message, created_at, updated_at, completed_at`

func scanJob(row pgx.Row) (*models.Job, error) {
	j := &models.Job{}
	err := row.Scan(
		&j.ID, &j.UserID, &j.SourceKind, &j.UploadedFileID, &j.YouTubeURL, &j.Mode, &j.Step,
		&j.Attempts, &j.MaxAttempts, &j.PriorCredits, &j.ClipsFound, &j.ErrorMessage,
		&j.CreatedAt, &j.UpdatedAt, &j.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return j, nil
}

func (r *JobRepo) Create(ctx context.Context, j *models.Job) error {
	return insertJob(ctx, r.pool, j)
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertJob(ctx context.Context, db queryRower, j *models.Job) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	if j.Step == "" {
		j.Step = models.JobQueued
	}
	if j.MaxAttempts == 0 {
		j.MaxAttempts = models.DefaultMaxAttempts
	}

	query := `INSERT INTO jobs (id, user_id, source_kind, uploaded_file_id, youtube_url, mode, step, attempts, max_attempts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING created_at, updated_at`

	return db.QueryRow(ctx, query,
		j.ID, j.UserID, j.SourceKind, j.UploadedFileID, j.YouTubeURL, j.Mode, j.Step, j.Attempts, j.MaxAttempts,
	).Scan(&j.CreatedAt, &j.UpdatedAt)
}

// CreateForUpload claims the uploaded file and inserts its job in one
// transaction. It returns false without creating anything when the file was
// already dispatched.
func (r *JobRepo) CreateForUpload(ctx context.Context, j *models.Job) (bool, error) {
	if j.UploadedFileID == nil {
		return false, fmt.Errorf("job %s has no uploaded file", j.ID)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		"UPDATE uploaded_files SET uploaded = TRUE WHERE id = $1 AND uploaded = FALSE", *j.UploadedFileID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to claim uploaded file: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if err := insertJob(ctx, tx, j); err != nil {
		return false, fmt.Errorf("failed to insert job: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (r *JobRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	return scanJob(r.pool.QueryRow(ctx, "SELECT "+jobColumns+" FROM jobs WHERE id = $1", id))
}

func (r *JobRepo) UpdateStep(ctx context.Context, id uuid.UUID, step string) error {
	query := "UPDATE jobs SET step = $1, updated_at = NOW() WHERE id = $2"
	switch step {
	case models.JobCompleted, models.JobNoCredits, models.JobFailed:
		query = "UPDATE jobs SET step = $1, updated_at = NOW(), completed_at = NOW() WHERE id = $2"
	}
	_, err := r.pool.Exec(ctx, query, step, id)
	return err
}

// MarkChecked stores the balance read at the credit gate so a resumed job
// deducts against the same figure.
func (r *JobRepo) MarkChecked(ctx context.Context, id uuid.UUID, priorCredits int) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE jobs SET step = $1, prior_credits = $2, updated_at = NOW() WHERE id = $3",
		models.JobChecked, priorCredits, id,
	)
	return err
}

// RecordClips inserts one clip row per key and advances the job to
// clips_recorded in a single transaction. Keys already recorded for the job
// are skipped, so a retried job cannot duplicate rows.
func (r *JobRepo) RecordClips(ctx context.Context, j *models.Job, keys []string) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin clip transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, key := range keys {
		batch.Queue(`INSERT INTO clips (id, s3_key, uploaded_file_id, job_id, user_id)
			VALUES ($1, $2, $3, $4, $5) ON CONFLICT (job_id, s3_key) DO NOTHING`,
			uuid.New(), key, j.UploadedFileID, j.ID, j.UserID)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return 0, fmt.Errorf("failed to insert clips: %w", err)
		}
	}

	var found int
	err = tx.QueryRow(ctx, "SELECT COUNT(*) FROM clips WHERE job_id = $1", j.ID).Scan(&found)
	if err != nil {
		return 0, fmt.Errorf("failed to count clips: %w", err)
	}

	_, err = tx.Exec(ctx,
		"UPDATE jobs SET step = $1, clips_found = $2, updated_at = NOW() WHERE id = $3",
		models.JobClipsRecorded, found, j.ID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to checkpoint clips: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit clips: %w", err)
	}
	return found, nil
}

// DeductCredits charges the job's user once. The job row is advanced only
// from clips_recorded, and the user update rides in the same transaction, so
// a second call for the same job is a no-op. The balance is floored at zero.
func (r *JobRepo) DeductCredits(ctx context.Context, j *models.Job, amount int) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin credit transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		"UPDATE jobs SET step = $1, updated_at = NOW() WHERE id = $2 AND step = $3",
		models.JobCreditsDeducted, j.ID, models.JobClipsRecorded,
	)
	if err != nil {
		return fmt.Errorf("failed to checkpoint deduction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil
	}

	if amount > 0 {
		_, err = tx.Exec(ctx,
			"UPDATE users SET credits = GREATEST(credits - $1, 0) WHERE id = $2",
			amount, j.UserID,
		)
		if err != nil {
			return fmt.Errorf("failed to deduct credits: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (r *JobRepo) UpdateError(ctx context.Context, id uuid.UUID, errMsg string, attempts int) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE jobs SET error_message = $1, attempts = $2, updated_at = NOW() WHERE id = $3",
		errMsg, attempts, id,
	)
	return err
}

func (r *JobRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Job, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+jobColumns+" FROM jobs WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2",
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// ListUnfinished returns jobs that were queued or mid-flight, oldest first.
func (r *JobRepo) ListUnfinished(ctx context.Context, olderThan time.Duration) ([]*models.Job, error) {
	query := "SELECT " + jobColumns + ` FROM jobs
		WHERE step IN ($1, $2, $3, $4, $5) AND updated_at < $6
		ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query,
		models.JobQueued, models.JobChecked, models.JobDispatched, models.JobClipsRecorded, models.JobCreditsDeducted,
		time.Now().Add(-olderThan),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}
