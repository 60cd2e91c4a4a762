package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/certvault/certvault-backend/internal/model"
	"github.com/certvault/certvault-backend/internal/repository"
)

// ErrCertificateNotFound hides whether a probed number exists at all.
var ErrCertificateNotFound = errors.New("certificate not found")

// CertificateService serves the public verification endpoint and candidate
// certificate lookups. Issuance itself lives in the scoring transaction.
type CertificateService struct {
	certRepo    *repository.CertificateRepository
	attemptRepo *repository.AttemptRepository
	log         zerolog.Logger
}

// NewCertificateService creates a new CertificateService.
func NewCertificateService(
	certRepo *repository.CertificateRepository,
	attemptRepo *repository.AttemptRepository,
	log zerolog.Logger,
) *CertificateService {
	return &CertificateService{
		certRepo:    certRepo,
		attemptRepo: attemptRepo,
		log:         log.With().Str("component", "certificate_service").Logger(),
	}
}

// Verify resolves a public verification query by certificate number or
// verification code. Revoked and invalidated certificates still resolve;
// the caller sees the flags, not an absence.
func (s *CertificateService) Verify(ctx context.Context, number, code string) (*model.CertificateVerification, error) {
	if number == "" && code == "" {
		return nil, ErrCertificateNotFound
	}
	v, err := s.certRepo.Verify(ctx, number, code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCertificateNotFound
		}
		return nil, fmt.Errorf("verify certificate: %w", err)
	}
	return v, nil
}

// GetForSession returns the certificate issued for a session's attempt.
func (s *CertificateService) GetForSession(ctx context.Context, session *model.ExamSession) (*model.Certificate, error) {
	attempt, err := s.attemptRepo.GetBySession(ctx, session.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCertificateNotFound
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	cert, err := s.certRepo.GetByAttempt(ctx, attempt.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCertificateNotFound
		}
		return nil, fmt.Errorf("get certificate: %w", err)
	}
	return cert, nil
}
