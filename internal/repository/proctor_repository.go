package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/certvault/certvault-backend/internal/model"
)

// ProctorRepository handles proctor account data access.
type ProctorRepository struct {
	pool *pgxpool.Pool
}

// NewProctorRepository creates a new ProctorRepository.
func NewProctorRepository(pool *pgxpool.Pool) *ProctorRepository {
	return &ProctorRepository{pool: pool}
}

// GetByEmail retrieves a proctor by email for login.
func (r *ProctorRepository) GetByEmail(ctx context.Context, email string) (*model.Proctor, error) {
	p := &model.Proctor{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, name, password_hash, created_at, updated_at
		 FROM proctors WHERE email = $1`, email,
	).Scan(&p.ID, &p.Email, &p.Name, &p.PasswordHash, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Create inserts a new proctor account.
func (r *ProctorRepository) Create(ctx context.Context, p *model.Proctor) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO proctors (email, name, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		p.Email, p.Name, p.PasswordHash,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}
