package websocket

import "github.com/google/uuid"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer    Action = "answer"
	ActionViolation Action = "violation"
	ActionHeartbeat Action = "heartbeat"
	ActionSubmit    Action = "submit"
)

// Request is the single client message shape; the action discriminates
// which fields are meaningful.
type Request struct {
	Action Action `json:"action"`

	// answer
	QuestionID       string `json:"question_id,omitempty"`
	SelectedAnswer   int    `json:"selected_answer,omitempty"`
	TimeSpentSeconds int    `json:"time_spent_seconds,omitempty"`

	// violation
	Type   string `json:"type,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError      Event = "error"
	EventSaved      Event = "saved"
	EventViolation  Event = "violation"
	EventTerminated Event = "terminated"
	EventPong       Event = "pong"
	EventCompleted  Event = "completed"
)

type SavedResponse struct {
	Event Event `json:"event"`
}

type ViolationResponse struct {
	Event          Event `json:"event"`
	ViolationsLeft int   `json:"violations_left"`
}

type TerminatedResponse struct {
	Event  Event  `json:"event"`
	Reason string `json:"reason"`
}

type PongResponse struct {
	Event         Event   `json:"event"`
	Status        string  `json:"status"`
	TimeRemaining float64 `json:"time_remaining"`
}

type CompletedResponse struct {
	Event             Event     `json:"event"`
	SessionID         uuid.UUID `json:"session_id"`
	Score             float64   `json:"score"`
	Passed            bool      `json:"passed"`
	Grade             string    `json:"grade"`
	CertificateNumber string    `json:"certificate_number,omitempty"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}
