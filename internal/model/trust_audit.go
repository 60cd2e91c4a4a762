package model

import (
	"time"

	"github.com/google/uuid"
)

// TrustAudit is one persisted snapshot of a trust evaluation. Assessments are
// queued to Redis on the hot path and batch-inserted by the audit worker, so
// revalidation latency never pays for a PostgreSQL write.
type TrustAudit struct {
	ID         int64     `json:"id"`
	SessionID  uuid.UUID `json:"session_id"`
	Tier       string    `json:"tier"`
	Verified   bool      `json:"verified"`
	Method     string    `json:"method"`
	Issues     []string  `json:"issues,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}
