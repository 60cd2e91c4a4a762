package model

import "time"

// Candidate is an exam-taking user. Identity management proper lives in the
// platform's auth subsystem; this engine only needs credentials and an id.
type Candidate struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CandidateLoginRequest is the payload for candidate authentication.
type CandidateLoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// CandidateLoginResponse is returned after successful candidate login.
type CandidateLoginResponse struct {
	Token     string    `json:"token"`
	Candidate Candidate `json:"candidate"`
}
