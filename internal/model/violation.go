package model

import (
	"time"

	"github.com/google/uuid"
)

// ViolationType enumerates integrity events. The taxonomy is extensible;
// unknown types are accepted and recorded at LOW severity. Severity is always
// assigned server-side, never taken from the report.
type ViolationType string

const (
	ViolationTabSwitch         ViolationType = "TAB_SWITCH"
	ViolationWindowBlur        ViolationType = "WINDOW_BLUR"
	ViolationWindowFocus       ViolationType = "WINDOW_FOCUS"
	ViolationFullscreenExit    ViolationType = "FULLSCREEN_EXIT"
	ViolationProhibitedKeys    ViolationType = "PROHIBITED_KEY_COMBO"
	ViolationRightClick        ViolationType = "RIGHT_CLICK_ATTEMPT"
	ViolationCopyPaste         ViolationType = "COPY_PASTE_ATTEMPT"
	ViolationSecurityBreach    ViolationType = "SECURITY_BREACH"
	ViolationKeyMismatch       ViolationType = "KEY_MISMATCH"
	ViolationEmergencyOverride ViolationType = "EMERGENCY_OVERRIDE"
)

// ViolationSeverity orders violations for the escalation policy.
type ViolationSeverity int

const (
	SeverityInfo ViolationSeverity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
)

// String implements fmt.Stringer for log output.
func (s ViolationSeverity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	default:
		return "UNKNOWN"
	}
}

// DefaultSeverity returns the severity assigned to a violation type when the
// reporter does not override it downward. Server-detected drift and key
// mismatches are always HIGH. Regaining focus is informational: it is kept
// for audit but never counts toward termination.
func (t ViolationType) DefaultSeverity() ViolationSeverity {
	switch t {
	case ViolationSecurityBreach, ViolationKeyMismatch:
		return SeverityHigh
	case ViolationTabSwitch, ViolationFullscreenExit:
		return SeverityMedium
	case ViolationWindowBlur, ViolationProhibitedKeys,
		ViolationRightClick, ViolationCopyPaste:
		return SeverityLow
	case ViolationWindowFocus, ViolationEmergencyOverride:
		return SeverityInfo
	default:
		return SeverityLow
	}
}

// Violation is one append-only ledger entry. Entries are never edited or
// deleted; the full history is the audit record.
type Violation struct {
	ID         int64             `json:"id"`
	SessionID  uuid.UUID         `json:"session_id"`
	Type       ViolationType     `json:"type"`
	Severity   ViolationSeverity `json:"severity"`
	Detail     string            `json:"detail,omitempty"`
	RecordedAt time.Time         `json:"recorded_at"`
}

// ReportViolationRequest is the payload for client-observed integrity events.
type ReportViolationRequest struct {
	Type   ViolationType `json:"type" binding:"required,max=64"`
	Detail string        `json:"detail" binding:"max=2048"`
}
