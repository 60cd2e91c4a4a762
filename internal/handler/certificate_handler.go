package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/certvault/certvault-backend/internal/response"
	"github.com/certvault/certvault-backend/internal/service"
)

// CertificateHandler serves the public, unauthenticated verification surface.
type CertificateHandler struct {
	certService *service.CertificateService
}

// NewCertificateHandler creates a new CertificateHandler.
func NewCertificateHandler(certService *service.CertificateService) *CertificateHandler {
	return &CertificateHandler{certService: certService}
}

// Verify godoc
// GET /api/v1/public/certificates/verify?number=&code=
// Resolves a certificate by number or verification code. The response never
// includes the verification code, so numbers cannot be used to harvest codes.
func (h *CertificateHandler) Verify(c *gin.Context) {
	number := c.Query("number")
	code := c.Query("code")
	if number == "" && code == "" {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	verification, err := h.certService.Verify(c.Request.Context(), number, code)
	if err != nil {
		if errors.Is(err, service.ErrCertificateNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrCertificateNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"certificate": verification})
}
