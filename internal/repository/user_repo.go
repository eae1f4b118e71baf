package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"podclip-backend/internal/models"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) Create(ctx context.Context, u *models.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}

	query := `INSERT INTO users (id, email, credits) VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE SET credits = EXCLUDED.credits
		RETURNING id, created_at`

	return r.pool.QueryRow(ctx, query, u.ID, u.Email, u.Credits).Scan(&u.ID, &u.CreatedAt)
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u := &models.User{}
	err := r.pool.QueryRow(ctx,
		"SELECT id, email, credits, created_at FROM users WHERE id = $1", id,
	).Scan(&u.ID, &u.Email, &u.Credits, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *UserRepo) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	a := &models.Account{}
	err := r.pool.QueryRow(ctx, "SELECT id, credits FROM users WHERE id = $1", id).Scan(&a.UserID, &a.Credits)
	if err != nil {
		return nil, err
	}
	return a, nil
}
