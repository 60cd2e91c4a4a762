package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/certvault/certvault-backend/internal/model"
)

// CandidateRepository handles candidate account data access.
type CandidateRepository struct {
	pool *pgxpool.Pool
}

// NewCandidateRepository creates a new CandidateRepository.
func NewCandidateRepository(pool *pgxpool.Pool) *CandidateRepository {
	return &CandidateRepository{pool: pool}
}

// GetByEmail retrieves a candidate by email for login.
func (r *CandidateRepository) GetByEmail(ctx context.Context, email string) (*model.Candidate, error) {
	c := &model.Candidate{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, full_name, password_hash, created_at, updated_at
		 FROM candidates WHERE email = $1`, email,
	).Scan(&c.ID, &c.Email, &c.FullName, &c.PasswordHash, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetByID retrieves a candidate by id.
func (r *CandidateRepository) GetByID(ctx context.Context, id int) (*model.Candidate, error) {
	c := &model.Candidate{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, full_name, password_hash, created_at, updated_at
		 FROM candidates WHERE id = $1`, id,
	).Scan(&c.ID, &c.Email, &c.FullName, &c.PasswordHash, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}
