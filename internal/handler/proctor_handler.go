package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/certvault/certvault-backend/internal/middleware"
	"github.com/certvault/certvault-backend/internal/model"
	"github.com/certvault/certvault-backend/internal/repository"
	"github.com/certvault/certvault-backend/internal/response"
	"github.com/certvault/certvault-backend/internal/service"
	"github.com/certvault/certvault-backend/internal/validator"
)

// ProctorHandler serves the monitoring surface: live session overviews, the
// violation ledger, trust history, and forced termination.
type ProctorHandler struct {
	sessionService   *service.SessionService
	violationService *service.ViolationService
	trustAuditRepo   *repository.TrustAuditRepository
}

// NewProctorHandler creates a new ProctorHandler.
func NewProctorHandler(
	sessionService *service.SessionService,
	violationService *service.ViolationService,
	trustAuditRepo *repository.TrustAuditRepository,
) *ProctorHandler {
	return &ProctorHandler{
		sessionService:   sessionService,
		violationService: violationService,
		trustAuditRepo:   trustAuditRepo,
	}
}

// ListSessions godoc
// GET /api/v1/proctor/courses/:course_id/sessions?page=&per_page=
// Paginated monitor view for one course.
func (h *ProctorHandler) ListSessions(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("course_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

	overviews, total, err := h.sessionService.ListByCourse(c.Request.Context(), courseID, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	totalPages := (int(total) + perPage - 1) / perPage
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"sessions": overviews}, &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: int(total),
		TotalPages: totalPages,
	})
}

// GetSession godoc
// GET /api/v1/proctor/sessions/:session_id
// Full detail for one session: row, ledger, trust history, last heartbeat.
func (h *ProctorHandler) GetSession(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	session, err := h.sessionService.GetByID(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	violations, err := h.violationService.ListBySession(c.Request.Context(), sessionID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	audits, err := h.trustAuditRepo.ListBySession(c.Request.Context(), sessionID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if audits == nil {
		audits = []model.TrustAudit{}
	}

	response.Success(c, http.StatusOK, gin.H{
		"session":        session,
		"violations":     violations,
		"trust_audit":    audits,
		"last_heartbeat": h.sessionService.LastHeartbeat(c.Request.Context(), sessionID),
	})
}

// ListViolations godoc
// GET /api/v1/proctor/sessions/:session_id/violations
// The full ledger for one session, in recording order.
func (h *ProctorHandler) ListViolations(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	violations, err := h.violationService.ListBySession(c.Request.Context(), sessionID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"violations": violations})
}

// TerminateSession godoc
// POST /api/v1/proctor/sessions/:session_id/terminate
// Force-terminates a session; idempotent on terminal sessions.
func (h *ProctorHandler) TerminateSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	var req model.TerminateSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, err := h.sessionService.TerminateByProctor(c.Request.Context(), sessionID, claims.UserID, &req)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrBadOverrideSecret):
			response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": session})
}
