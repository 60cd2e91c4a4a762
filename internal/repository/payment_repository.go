package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PaymentRepository is the read-side gate onto the payment subsystem.
// Payment capture and refunds happen elsewhere; this engine only asks
// whether the exam fee for a (candidate, course) pair has cleared.
type PaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository creates a new PaymentRepository.
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

// HasPaidForExam reports whether a cleared exam payment exists.
func (r *PaymentRepository) HasPaidForExam(ctx context.Context, candidateID int, courseID uuid.UUID) (bool, error) {
	var paid bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM exam_payments
		   WHERE candidate_id = $1 AND course_id = $2 AND status = 'CLEARED'
		 )`, candidateID, courseID,
	).Scan(&paid)
	return paid, err
}
