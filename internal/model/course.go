package model

import (
	"time"

	"github.com/google/uuid"
)

// Course is the certification course reference consumed by the exam engine.
// Catalog synchronization and payment capture live outside this service; the
// engine only reads eligibility fields.
type Course struct {
	ID                  uuid.UUID `json:"id"`
	Title               string    `json:"title"`
	Code                string    `json:"code"`
	IsPublished         bool      `json:"is_published"`
	CertificateEnabled  bool      `json:"certificate_enabled"`
	PassingScore        float64   `json:"passing_score"`
	ExamDurationMinutes int       `json:"exam_duration_minutes"`
	TotalQuestions      int       `json:"total_questions"`
	// ExamConfig is the lockdown configuration (key-value pairs) the
	// candidate's environment must commit to via the config key.
	ExamConfig map[string]string `json:"exam_config"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// ExamPaper is the Redis-cached payload sent to candidates (no correct answers).
type ExamPaper struct {
	CourseID        uuid.UUID              `json:"course_id"`
	Title           string                 `json:"title"`
	DurationMinutes int                    `json:"duration_minutes"`
	PassingScore    float64                `json:"passing_score"`
	Questions       []QuestionForCandidate `json:"questions"`
}
