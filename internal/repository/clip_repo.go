package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"podclip-backend/internal/models"
)

type ClipRepo struct {
	pool *pgxpool.Pool
}

func NewClipRepo(pool *pgxpool.Pool) *ClipRepo {
	return &ClipRepo{pool: pool}
}

// GetForUser only returns the clip when it belongs to userID.
func (r *ClipRepo) GetForUser(ctx context.Context, id, userID uuid.UUID) (*models.Clip, error) {
	c := &models.Clip{}
	query := `SELECT id, s3_key, uploaded_file_id, job_id, user_id, created_at
		FROM clips WHERE id = $1 AND user_id = $2`

	err := r.pool.QueryRow(ctx, query, id, userID).Scan(
		&c.ID, &c.S3Key, &c.UploadedFileID, &c.JobID, &c.UserID, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *ClipRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Clip, error) {
	query := `SELECT id, s3_key, uploaded_file_id, job_id, user_id, created_at
		FROM clips WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clips []*models.Clip
	for rows.Next() {
		c := &models.Clip{}
		if err := rows.Scan(&c.ID, &c.S3Key, &c.UploadedFileID, &c.JobID, &c.UserID, &c.CreatedAt); err != nil {
			return nil, err
		}
		clips = append(clips, c)
	}
	return clips, rows.Err()
}
