package model

import "time"

// Proctor is an administrative user who monitors live sessions, reviews the
// violation ledger, and may terminate sessions.
type Proctor struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ProctorLoginRequest is the payload for proctor authentication.
type ProctorLoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// TerminateSessionRequest is the proctor payload for explicit termination.
// OverrideSecret, when it matches the per-deployment emergency secret,
// authorizes termination of a session mid-completion; every use is recorded
// in the violation ledger for audit.
type TerminateSessionRequest struct {
	Reason         string `json:"reason" binding:"max=255"`
	OverrideSecret string `json:"override_secret" binding:"max=255"`
}
