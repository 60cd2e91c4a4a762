package model

import (
	"time"

	"github.com/google/uuid"
)

// Grade bands applied to passing attempts. A failed attempt carries no grade.
const (
	GradeA = "A"
	GradeB = "B"
	GradeC = "C"
	GradeD = "D"
	GradeF = "F"
)

// ExamAttempt is the scoring record owned by exactly one session.
// Created lazily at admission; mutated only by the scoring engine.
type ExamAttempt struct {
	ID               uuid.UUID  `json:"id"`
	SessionID        uuid.UUID  `json:"session_id"`
	Score            *float64   `json:"score,omitempty"`
	Passed           *bool      `json:"passed,omitempty"`
	Grade            *string    `json:"grade,omitempty"`
	TimeSpentMinutes *int       `json:"time_spent_minutes,omitempty"`
	StartedAt        time.Time  `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// ExamAnswer is keyed by (attempt_id, question_id): resubmission overwrites,
// never duplicates. Correctness is computed server-side, never trusted
// from the client.
type ExamAnswer struct {
	AttemptID        uuid.UUID `json:"attempt_id"`
	QuestionID       uuid.UUID `json:"question_id"`
	SelectedAnswer   int       `json:"selected_answer"`
	IsCorrect        bool      `json:"is_correct"`
	TimeSpentSeconds int       `json:"time_spent_seconds"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// SubmitAnswerRequest is the payload for answering a question.
type SubmitAnswerRequest struct {
	QuestionID       uuid.UUID `json:"question_id" binding:"required"`
	SelectedAnswer   int       `json:"selected_answer" binding:"min=0"`
	TimeSpentSeconds int       `json:"time_spent_seconds" binding:"min=0"`
}

// ExamResult is what the candidate sees after completion.
type ExamResult struct {
	SessionID uuid.UUID `json:"session_id"`
	Score     float64   `json:"score"`
	Passed    bool      `json:"passed"`
	Grade     string    `json:"grade"`
	// CertificateNumber is set only when a certificate was issued.
	CertificateNumber string `json:"certificate_number,omitempty"`
}
