package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/certvault/certvault-backend/internal/model"
)

// QuestionRepository reads immutable question bank data.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListByCourse retrieves all questions for a course including the correct
// answer index. Callers must strip CorrectIndex before any candidate-facing
// serialization.
func (r *QuestionRepository) ListByCourse(ctx context.Context, courseID uuid.UUID) ([]model.ExamQuestion, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, course_id, question_text, options, correct_index, difficulty, order_num
		 FROM exam_questions
		 WHERE course_id = $1
		 ORDER BY order_num ASC`, courseID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.ExamQuestion
	for rows.Next() {
		var q model.ExamQuestion
		if err := rows.Scan(
			&q.ID, &q.CourseID, &q.QuestionText, &q.Options,
			&q.CorrectIndex, &q.Difficulty, &q.OrderNum,
		); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// GetByID retrieves a single question with its correct answer index.
func (r *QuestionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamQuestion, error) {
	q := &model.ExamQuestion{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, course_id, question_text, options, correct_index, difficulty, order_num
		 FROM exam_questions WHERE id = $1`, id,
	).Scan(&q.ID, &q.CourseID, &q.QuestionText, &q.Options, &q.CorrectIndex, &q.Difficulty, &q.OrderNum)
	if err != nil {
		return nil, err
	}
	return q, nil
}
