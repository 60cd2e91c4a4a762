package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates exam session states.
// COMPLETED and TERMINATED are absorbing: no operation may leave them.
type SessionStatus string

const (
	SessionStatusPending    SessionStatus = "PENDING"
	SessionStatusInProgress SessionStatus = "IN_PROGRESS"
	SessionStatusCompleted  SessionStatus = "COMPLETED"
	SessionStatusTerminated SessionStatus = "TERMINATED"
)

// IsActive reports whether the status counts toward the
// one-active-session-per-(candidate, course) invariant.
func (s SessionStatus) IsActive() bool {
	return s == SessionStatusPending || s == SessionStatusInProgress
}

// TerminationReason records why a session reached TERMINATED.
type TerminationReason string

const (
	ReasonMultipleViolations TerminationReason = "MULTIPLE_VIOLATIONS"
	ReasonSecurityViolation  TerminationReason = "SECURITY_VIOLATION"
	ReasonExpired            TerminationReason = "EXPIRED"
	ReasonProctorTerminated  TerminationReason = "PROCTOR_TERMINATED"
)

// ExamSession is the unit of locking for every proctoring operation.
// At most one session with an active status exists per (candidate, course);
// the partial unique index in migrations enforces it.
type ExamSession struct {
	ID                 uuid.UUID          `json:"id"`
	CandidateID        int                `json:"candidate_id"`
	CourseID           uuid.UUID          `json:"course_id"`
	Status             SessionStatus      `json:"status"`
	TrustTier          string             `json:"trust_tier"`
	TrustVerified      bool               `json:"trust_verified"`
	TrustMethod        string             `json:"trust_method"`
	IPAddress          string             `json:"ip_address"`
	BrowserFingerprint string             `json:"browser_fingerprint"`
	DurationSeconds    int                `json:"duration_seconds"`
	StartedAt          *time.Time         `json:"started_at,omitempty"`
	EndedAt            *time.Time         `json:"ended_at,omitempty"`
	TerminationReason  *TerminationReason `json:"termination_reason,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
}

// Deadline returns the instant after which the session is overdue.
// Both the lazy expiry check and the sweep worker call this, so the two
// paths always agree on the formula: startedAt + duration + grace.
// Returns false if the session has not been admitted yet.
func (s *ExamSession) Deadline(grace time.Duration) (time.Time, bool) {
	if s.StartedAt == nil {
		return time.Time{}, false
	}
	return s.StartedAt.Add(time.Duration(s.DurationSeconds)*time.Second + grace), true
}

// TimeRemaining returns the seconds left before the deadline, floored at zero.
func (s *ExamSession) TimeRemaining(now time.Time, grace time.Duration) float64 {
	deadline, ok := s.Deadline(grace)
	if !ok {
		return float64(s.DurationSeconds)
	}
	remaining := deadline.Sub(now).Seconds()
	if remaining < 0 {
		return 0
	}
	return remaining
}

// SessionState is the polling read model exposed to candidate UIs.
// Violation details are deliberately absent: only the count is public.
type SessionState struct {
	SessionID      uuid.UUID     `json:"session_id"`
	Status         SessionStatus `json:"status"`
	TrustTier      string        `json:"trust_tier"`
	ViolationCount int64         `json:"violation_count"`
	TimeRemaining  float64       `json:"time_remaining"`
}

// CreateSessionRequest is the payload for requesting exam admission.
type CreateSessionRequest struct {
	Environment ClientEnvironment `json:"environment" binding:"required"`
}

// RevalidateRequest re-submits the environment descriptor on heartbeat.
type RevalidateRequest struct {
	Environment ClientEnvironment `json:"environment" binding:"required"`
}
