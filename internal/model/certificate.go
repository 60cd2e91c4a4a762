package model

import (
	"time"

	"github.com/google/uuid"
)

// Certificate is the terminal, immutable proof-of-passing artifact.
// Issued at most once per qualifying attempt, inside the same transaction
// that finalizes the score. Only revocation (out of scope here) may change
// it after issuance.
type Certificate struct {
	ID                uuid.UUID `json:"id"`
	AttemptID         uuid.UUID `json:"attempt_id"`
	CandidateID       int       `json:"candidate_id"`
	CourseID          uuid.UUID `json:"course_id"`
	CertificateNumber string    `json:"certificate_number"`
	VerificationCode  string    `json:"verification_code"`
	Score             float64   `json:"score"`
	Grade             string    `json:"grade"`
	IssuedAt          time.Time `json:"issued_at"`
	IsValid           bool      `json:"is_valid"`
	IsRevoked         bool      `json:"is_revoked"`
}

// CertificateVerification is the public lookup result. It omits the
// verification code so the endpoint cannot be used to harvest codes
// from certificate numbers.
type CertificateVerification struct {
	CertificateNumber string    `json:"certificate_number"`
	CourseTitle       string    `json:"course_title"`
	Score             float64   `json:"score"`
	Grade             string    `json:"grade"`
	IssuedAt          time.Time `json:"issued_at"`
	IsValid           bool      `json:"is_valid"`
	IsRevoked         bool      `json:"is_revoked"`
}
