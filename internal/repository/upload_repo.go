package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"podclip-backend/internal/models"
)

type UploadRepo struct {
	pool *pgxpool.Pool
}

func NewUploadRepo(pool *pgxpool.Pool) *UploadRepo {
	return &UploadRepo{pool: pool}
}

func (r *UploadRepo) Create(ctx context.Context, f *models.UploadedFile) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	if f.Status == "" {
		f.Status = models.UploadStatusQueued
	}

	query := `INSERT INTO uploaded_files (id, user_id, s3_key, display_name, status, uploaded)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		f.ID, f.UserID, f.S3Key, f.DisplayName, f.Status, f.Uploaded,
	).Scan(&f.CreatedAt)
}

func (r *UploadRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.UploadedFile, error) {
	f := &models.UploadedFile{}
	query := `SELECT id, user_id, s3_key, display_name, status, uploaded, created_at
		FROM uploaded_files WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&f.ID, &f.UserID, &f.S3Key, &f.DisplayName, &f.Status, &f.Uploaded, &f.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (r *UploadRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.pool.Exec(ctx, "UPDATE uploaded_files SET status = $1 WHERE id = $2", status, id)
	return err
}

func (r *UploadRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.UploadedFile, error) {
	query := `SELECT f.id, f.user_id, f.s3_key, f.display_name, f.status, f.uploaded, f.created_at,
			(SELECT COUNT(*) FROM clips c WHERE c.uploaded_file_id = f.id)
		FROM uploaded_files f
		WHERE f.user_id = $1
		ORDER BY f.created_at DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []*models.UploadedFile
	for rows.Next() {
		f := &models.UploadedFile{}
		if err := rows.Scan(&f.ID, &f.UserID, &f.S3Key, &f.DisplayName, &f.Status, &f.Uploaded, &f.CreatedAt, &f.ClipCount); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}
