package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/certvault/certvault-backend/internal/model"
)

// AttemptRepository handles exam attempt data access. An attempt is owned by
// exactly one session; the unique constraint on session_id enforces it.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

// EnsureForSession creates the attempt linked to a session if it does not
// exist yet, returning the attempt either way. Safe under concurrent admits.
func (r *AttemptRepository) EnsureForSession(ctx context.Context, sessionID uuid.UUID) (*model.ExamAttempt, error) {
	a := &model.ExamAttempt{SessionID: sessionID}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO exam_attempts (session_id)
		 VALUES ($1)
		 ON CONFLICT (session_id) DO NOTHING
		 RETURNING id, started_at`,
		sessionID,
	).Scan(&a.ID, &a.StartedAt)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	// Concurrent admit won the insert; fetch the existing attempt.
	return r.GetBySession(ctx, sessionID)
}

// GetBySession retrieves the attempt owned by a session.
func (r *AttemptRepository) GetBySession(ctx context.Context, sessionID uuid.UUID) (*model.ExamAttempt, error) {
	a := &model.ExamAttempt{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, session_id, score, passed, grade, time_spent_minutes, started_at, completed_at
		 FROM exam_attempts WHERE session_id = $1`, sessionID,
	).Scan(&a.ID, &a.SessionID, &a.Score, &a.Passed, &a.Grade, &a.TimeSpentMinutes, &a.StartedAt, &a.CompletedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetBySessionTx is GetBySession inside the completion transaction.
func (r *AttemptRepository) GetBySessionTx(ctx context.Context, tx pgx.Tx, sessionID uuid.UUID) (*model.ExamAttempt, error) {
	a := &model.ExamAttempt{}
	err := tx.QueryRow(ctx,
		`SELECT id, session_id, score, passed, grade, time_spent_minutes, started_at, completed_at
		 FROM exam_attempts WHERE session_id = $1`, sessionID,
	).Scan(&a.ID, &a.SessionID, &a.Score, &a.Passed, &a.Grade, &a.TimeSpentMinutes, &a.StartedAt, &a.CompletedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// FinalizeTx writes the final outcome inside the completion transaction.
func (r *AttemptRepository) FinalizeTx(ctx context.Context, tx pgx.Tx, attemptID uuid.UUID, score float64, passed bool, grade string, timeSpentMinutes int, completedAt time.Time) error {
	_, err := tx.Exec(ctx,
		`UPDATE exam_attempts
		 SET score = $1, passed = $2, grade = $3, time_spent_minutes = $4, completed_at = $5
		 WHERE id = $6`,
		score, passed, grade, timeSpentMinutes, completedAt, attemptID)
	return err
}
