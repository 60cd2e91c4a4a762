package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden          ErrCode = "FORBIDDEN"
	ErrCandidateOnly      ErrCode = "CANDIDATE_ACCESS_ONLY"
	ErrProctorOnly        ErrCode = "PROCTOR_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Exam engine ───────────────────────────────────────────────────
	ErrCourseNotEligible  ErrCode = "COURSE_NOT_ELIGIBLE"
	ErrPaymentRequired    ErrCode = "PAYMENT_REQUIRED"
	ErrEnvironmentRefused ErrCode = "ENVIRONMENT_REFUSED"
	ErrInvalidTransition  ErrCode = "INVALID_TRANSITION"
	ErrInactiveSession    ErrCode = "INACTIVE_SESSION"
	ErrNoActiveAttempt    ErrCode = "NO_ACTIVE_ATTEMPT"
	ErrSessionTerminated  ErrCode = "SESSION_TERMINATED"

	// ─── Certificates ──────────────────────────────────────────────────
	ErrCertificateNotFound ErrCode = "CERTIFICATE_NOT_FOUND"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
// Trust and session failures deliberately stay generic: the candidate is
// directed to re-establish the required environment, never shown internals.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrInvalidCredentials:
		return "Email or password is incorrect."
	case ErrSessionInvalidated:
		return "Your login session has ended. Please sign in again."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."

	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrCandidateOnly:
		return "This resource is restricted to exam candidates."
	case ErrProctorOnly:
		return "This resource is restricted to proctors."

	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "The identifier format is invalid."
	case ErrInvalidPayload:
		return "The request payload is invalid."

	case ErrNotFound:
		return "The requested resource was not found."
	case ErrConflict:
		return "The resource already exists."

	case ErrCourseNotEligible:
		return "This course is not available for certification exams."
	case ErrPaymentRequired:
		return "The exam fee has not been paid. Please complete payment first."
	case ErrEnvironmentRefused:
		return "Your exam environment could not be verified. Please launch the exam from the secure browser."
	case ErrInvalidTransition:
		return "The exam session is not in a state that allows this action."
	case ErrInactiveSession:
		return "The exam session is no longer active."
	case ErrNoActiveAttempt:
		return "No exam attempt exists for this session."
	case ErrSessionTerminated:
		return "The exam session has been terminated due to integrity violations."

	case ErrCertificateNotFound:
		return "No certificate matches the given number or code."

	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
