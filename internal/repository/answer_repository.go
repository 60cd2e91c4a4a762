package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/certvault/certvault-backend/internal/model"
)

// AnswerAggregate is the per-attempt summary the scoring engine folds into
// the final score.
type AnswerAggregate struct {
	TotalAnswered    int
	CorrectCount     int
	TimeSpentSeconds int64
}

// AnswerRepository handles exam answer data access.
type AnswerRepository struct {
	pool *pgxpool.Pool
}

// NewAnswerRepository creates a new AnswerRepository.
func NewAnswerRepository(pool *pgxpool.Pool) *AnswerRepository {
	return &AnswerRepository{pool: pool}
}

// Upsert writes an answer keyed by (attempt_id, question_id). Resubmitting
// the same question overwrites the previous row, so retries and changed
// answers are both safe; the last write wins.
func (r *AnswerRepository) Upsert(ctx context.Context, a *model.ExamAnswer) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO exam_answers (attempt_id, question_id, selected_answer, is_correct, time_spent_seconds)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (attempt_id, question_id) DO UPDATE
		 SET selected_answer = EXCLUDED.selected_answer,
		     is_correct = EXCLUDED.is_correct,
		     time_spent_seconds = EXCLUDED.time_spent_seconds,
		     updated_at = NOW()`,
		a.AttemptID, a.QuestionID, a.SelectedAnswer, a.IsCorrect, a.TimeSpentSeconds)
	return err
}

// AggregateTx computes the attempt's answer summary inside the completion
// transaction so the score reflects exactly the committed answers.
func (r *AnswerRepository) AggregateTx(ctx context.Context, tx pgx.Tx, attemptID uuid.UUID) (*AnswerAggregate, error) {
	agg := &AnswerAggregate{}
	err := tx.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE is_correct),
		        COALESCE(SUM(time_spent_seconds), 0)
		 FROM exam_answers WHERE attempt_id = $1`, attemptID,
	).Scan(&agg.TotalAnswered, &agg.CorrectCount, &agg.TimeSpentSeconds)
	if err != nil {
		return nil, err
	}
	return agg, nil
}

// ListByAttempt retrieves all answers for an attempt, most recent first.
func (r *AnswerRepository) ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.ExamAnswer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT attempt_id, question_id, selected_answer, is_correct, time_spent_seconds, updated_at
		 FROM exam_answers
		 WHERE attempt_id = $1
		 ORDER BY updated_at DESC`, attemptID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []model.ExamAnswer
	for rows.Next() {
		var a model.ExamAnswer
		if err := rows.Scan(&a.AttemptID, &a.QuestionID, &a.SelectedAnswer, &a.IsCorrect, &a.TimeSpentSeconds, &a.UpdatedAt); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}
