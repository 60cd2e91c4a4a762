package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/certvault/certvault-backend/internal/middleware"
	"github.com/certvault/certvault-backend/internal/model"
	"github.com/certvault/certvault-backend/internal/repository"
	"github.com/certvault/certvault-backend/internal/response"
	"github.com/certvault/certvault-backend/internal/service"
	"github.com/certvault/certvault-backend/internal/validator"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService   *service.AuthService
	candidateRepo *repository.CandidateRepository
	proctorRepo   *repository.ProctorRepository
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(
	authService *service.AuthService,
	candidateRepo *repository.CandidateRepository,
	proctorRepo *repository.ProctorRepository,
) *AuthHandler {
	return &AuthHandler{
		authService:   authService,
		candidateRepo: candidateRepo,
		proctorRepo:   proctorRepo,
	}
}

// CandidateLogin godoc
// POST /api/v1/auth/candidate/login
// Validates email + password, rejects if another login is active, returns JWT.
func (h *AuthHandler) CandidateLogin(c *gin.Context) {
	var req model.CandidateLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	candidate, err := h.candidateRepo.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}

	if err := h.authService.CheckPassword(candidate.PasswordHash, req.Password); err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}

	token, err := h.authService.GenerateCandidateToken(c.Request.Context(), candidate.ID)
	if err != nil {
		if errors.Is(err, service.ErrSessionAlreadyActive) {
			response.Fail(c, http.StatusConflict, response.ErrConflict)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, model.CandidateLoginResponse{
		Token:     token,
		Candidate: *candidate,
	})
}

// CandidateLogout godoc
// POST /api/v1/auth/candidate/logout
// Releases the single-device login so a new device may sign in.
func (h *AuthHandler) CandidateLogout(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if err := h.authService.ResetCandidateLogin(c.Request.Context(), claims.UserID); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// GetCandidateProfile godoc
// GET /api/v1/auth/candidate/me
func (h *AuthHandler) GetCandidateProfile(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	candidate, err := h.candidateRepo.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"candidate": candidate})
}

// ProctorLogin godoc
// POST /api/v1/auth/proctor/login
func (h *AuthHandler) ProctorLogin(c *gin.Context) {
	var req model.ProctorLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	proctor, err := h.proctorRepo.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}

	if err := h.authService.CheckPassword(proctor.PasswordHash, req.Password); err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}

	token, err := h.authService.GenerateProctorToken(proctor.ID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"token":   token,
		"proctor": proctor,
	})
}
