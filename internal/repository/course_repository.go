package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/certvault/certvault-backend/internal/model"
)

// CourseRepository reads certification course reference data. Courses are
// written by the catalog sync subsystem, never by this engine.
type CourseRepository struct {
	pool *pgxpool.Pool
}

// NewCourseRepository creates a new CourseRepository.
func NewCourseRepository(pool *pgxpool.Pool) *CourseRepository {
	return &CourseRepository{pool: pool}
}

const courseColumns = `id, title, code, is_published, certificate_enabled,
	passing_score, exam_duration_minutes, total_questions, exam_config, created_at, updated_at`

// GetByID retrieves a course by its UUID.
func (r *CourseRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Course, error) {
	c := &model.Course{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+courseColumns+` FROM courses WHERE id = $1`, id,
	).Scan(
		&c.ID, &c.Title, &c.Code, &c.IsPublished, &c.CertificateEnabled,
		&c.PassingScore, &c.ExamDurationMinutes, &c.TotalQuestions,
		&c.ExamConfig, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListEligible retrieves all published, certificate-enabled courses.
func (r *CourseRepository) ListEligible(ctx context.Context) ([]model.Course, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+courseColumns+`
		 FROM courses
		 WHERE is_published = TRUE AND certificate_enabled = TRUE
		 ORDER BY title ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courses []model.Course
	for rows.Next() {
		var c model.Course
		if err := rows.Scan(
			&c.ID, &c.Title, &c.Code, &c.IsPublished, &c.CertificateEnabled,
			&c.PassingScore, &c.ExamDurationMinutes, &c.TotalQuestions,
			&c.ExamConfig, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}
