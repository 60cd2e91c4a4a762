package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/certvault/certvault-backend/internal/middleware"
	"github.com/certvault/certvault-backend/internal/model"
	"github.com/certvault/certvault-backend/internal/response"
	"github.com/certvault/certvault-backend/internal/service"
	"github.com/certvault/certvault-backend/internal/validator"
)

// CandidateHandler handles candidate-facing exam endpoints: lobby, session
// lifecycle, answering, and results.
type CandidateHandler struct {
	courseService    *service.CourseService
	sessionService   *service.SessionService
	violationService *service.ViolationService
	scoringService   *service.ScoringService
	certService      *service.CertificateService
}

// NewCandidateHandler creates a new CandidateHandler.
func NewCandidateHandler(
	courseService *service.CourseService,
	sessionService *service.SessionService,
	violationService *service.ViolationService,
	scoringService *service.ScoringService,
	certService *service.CertificateService,
) *CandidateHandler {
	return &CandidateHandler{
		courseService:    courseService,
		sessionService:   sessionService,
		violationService: violationService,
		scoringService:   scoringService,
		certService:      certService,
	}
}

// failSessionErr maps session lifecycle errors onto response codes.
func failSessionErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrNotSessionOwner):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
	case errors.Is(err, service.ErrCourseNotEligible):
		response.Fail(c, http.StatusBadRequest, response.ErrCourseNotEligible)
	case errors.Is(err, service.ErrPaymentRequired):
		response.Fail(c, http.StatusPaymentRequired, response.ErrPaymentRequired)
	case errors.Is(err, service.ErrEnvironmentRefused):
		response.Fail(c, http.StatusForbidden, response.ErrEnvironmentRefused)
	case errors.Is(err, service.ErrInvalidTransition):
		response.Fail(c, http.StatusConflict, response.ErrInvalidTransition)
	case errors.Is(err, service.ErrInactiveSession):
		response.Fail(c, http.StatusConflict, response.ErrInactiveSession)
	case errors.Is(err, service.ErrNoActiveAttempt):
		response.Fail(c, http.StatusConflict, response.ErrNoActiveAttempt)
	case errors.Is(err, service.ErrSessionNotScorable):
		response.Fail(c, http.StatusConflict, response.ErrInvalidTransition)
	case errors.Is(err, service.ErrQuestionNotInExam):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

func sessionIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

// GetLobby godoc
// GET /api/v1/candidate/lobby
// Lists courses open for certification exams.
func (h *CandidateHandler) GetLobby(c *gin.Context) {
	courses, err := h.courseService.ListEligible(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"courses": courses})
}

// CreateSession godoc
// POST /api/v1/candidate/courses/:course_id/sessions
// Runs the admission gates and creates (or returns) the active session.
func (h *CandidateHandler) CreateSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	courseID, err := uuid.Parse(c.Param("course_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.CreateSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	admission, err := h.sessionService.Create(c.Request.Context(), claims.UserID, courseID, &req.Environment, c.ClientIP())
	if err != nil {
		failSessionErr(c, err)
		return
	}

	response.Success(c, http.StatusCreated, admission)
}

// AdmitSession godoc
// POST /api/v1/candidate/sessions/:session_id/admit
// Starts the exam clock: PENDING becomes IN_PROGRESS.
func (h *CandidateHandler) AdmitSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	session, err := h.sessionService.Admit(c.Request.Context(), sessionID, claims.UserID)
	if err != nil {
		failSessionErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": session})
}

// GetExamPaper godoc
// GET /api/v1/candidate/sessions/:session_id/paper
// Serves the cached paper. Requires an owned IN_PROGRESS session, so the
// questions are unreachable before admission and after termination.
func (h *CandidateHandler) GetExamPaper(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	session, err := h.sessionService.GetOwned(c.Request.Context(), sessionID, claims.UserID)
	if err != nil {
		failSessionErr(c, err)
		return
	}
	if session.Status != model.SessionStatusInProgress {
		response.Fail(c, http.StatusConflict, response.ErrInactiveSession)
		return
	}

	paper, err := h.courseService.GetExamPaper(c.Request.Context(), session.CourseID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"paper": paper})
}

// GetSessionState godoc
// GET /api/v1/candidate/sessions/:session_id/state
// Polling read model: status, trust tier, violation count, time remaining.
func (h *CandidateHandler) GetSessionState(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	state, err := h.sessionService.GetState(c.Request.Context(), sessionID, claims.UserID)
	if err != nil {
		failSessionErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"state": state})
}

// Revalidate godoc
// POST /api/v1/candidate/sessions/:session_id/revalidate
// Re-runs the trust evaluation against a fresh environment report.
func (h *CandidateHandler) Revalidate(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	var req model.RevalidateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	assessment, session, err := h.sessionService.Revalidate(c.Request.Context(), sessionID, claims.UserID, &req.Environment, c.ClientIP())
	if err != nil {
		if errors.Is(err, service.ErrInactiveSession) && session != nil {
			// Report the terminal state so the client can show the outcome.
			response.Success(c, http.StatusOK, gin.H{"session": session})
			return
		}
		failSessionErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"assessment": assessment,
		"session":    session,
	})
}

// ReportViolation godoc
// POST /api/v1/candidate/sessions/:session_id/violations
// Appends a client-observed integrity event to the ledger.
func (h *CandidateHandler) ReportViolation(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	var req model.ReportViolationRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if _, err := h.sessionService.GetOwned(c.Request.Context(), sessionID, claims.UserID); err != nil {
		failSessionErr(c, err)
		return
	}

	outcome, err := h.violationService.Record(c.Request.Context(), sessionID, req.Type, req.Detail)
	if err != nil {
		failSessionErr(c, err)
		return
	}

	if outcome.Terminated {
		response.Success(c, http.StatusOK, gin.H{
			"terminated": true,
			"reason":     outcome.Reason,
		})
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"terminated":      false,
		"violations_left": outcome.QualifyingLeft,
	})
}

// SubmitAnswer godoc
// POST /api/v1/candidate/sessions/:session_id/answers
// Grades and upserts one answer; resubmission overwrites.
func (h *CandidateHandler) SubmitAnswer(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	var req model.SubmitAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, err := h.sessionService.GetOwned(c.Request.Context(), sessionID, claims.UserID)
	if err != nil {
		failSessionErr(c, err)
		return
	}

	if err := h.scoringService.SubmitAnswer(c.Request.Context(), session, &req); err != nil {
		failSessionErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"saved": true})
}

// CompleteExam godoc
// POST /api/v1/candidate/sessions/:session_id/complete
// Finalizes the attempt: score, grade, certificate. Idempotent.
func (h *CandidateHandler) CompleteExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	if _, err := h.sessionService.GetOwned(c.Request.Context(), sessionID, claims.UserID); err != nil {
		failSessionErr(c, err)
		return
	}

	result, err := h.scoringService.CompleteExam(c.Request.Context(), sessionID)
	if err != nil {
		failSessionErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// GetResult godoc
// GET /api/v1/candidate/sessions/:session_id/result
func (h *CandidateHandler) GetResult(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	session, err := h.sessionService.GetOwned(c.Request.Context(), sessionID, claims.UserID)
	if err != nil {
		failSessionErr(c, err)
		return
	}

	result, err := h.scoringService.GetResult(c.Request.Context(), session)
	if err != nil {
		failSessionErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// GetCertificate godoc
// GET /api/v1/candidate/sessions/:session_id/certificate
// Returns the candidate's own certificate, verification code included.
func (h *CandidateHandler) GetCertificate(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	session, err := h.sessionService.GetOwned(c.Request.Context(), sessionID, claims.UserID)
	if err != nil {
		failSessionErr(c, err)
		return
	}

	cert, err := h.certService.GetForSession(c.Request.Context(), session)
	if err != nil {
		if errors.Is(err, service.ErrCertificateNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrCertificateNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"certificate": cert})
}
