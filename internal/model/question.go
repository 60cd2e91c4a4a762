package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

// QuestionDifficulty grades question hardness for reporting.
type QuestionDifficulty string

const (
	DifficultyEasy   QuestionDifficulty = "EASY"
	DifficultyMedium QuestionDifficulty = "MEDIUM"
	DifficultyHard   QuestionDifficulty = "HARD"
)

// ExamQuestion is immutable reference data. The engine reads it to grade
// answers; it never exposes CorrectIndex on candidate-facing paths.
type ExamQuestion struct {
	ID           uuid.UUID          `json:"id"`
	CourseID     uuid.UUID          `json:"course_id"`
	QuestionText string             `json:"question_text"`
	Options      json.RawMessage    `json:"options"`
	CorrectIndex int                `json:"correct_index"`
	Difficulty   QuestionDifficulty `json:"difficulty"`
	OrderNum     int                `json:"order_num"`
}

// QuestionForCandidate is a question stripped of the correct answer.
type QuestionForCandidate struct {
	ID           uuid.UUID       `json:"id"`
	QuestionText string          `json:"question_text"`
	Options      json.RawMessage `json:"options"`
	OrderNum     int             `json:"order_num"`
}
