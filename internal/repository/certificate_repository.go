package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/certvault/certvault-backend/internal/model"
)

// CertificateRepository handles certificate persistence and public lookup.
type CertificateRepository struct {
	pool *pgxpool.Pool
}

// NewCertificateRepository creates a new CertificateRepository.
func NewCertificateRepository(pool *pgxpool.Pool) *CertificateRepository {
	return &CertificateRepository{pool: pool}
}

// InsertTx mints the certificate inside the completion transaction, so a
// passed attempt and its certificate become visible in the same commit.
// Unique constraints on attempt_id, certificate_number and verification_code
// make double issuance impossible.
func (r *CertificateRepository) InsertTx(ctx context.Context, tx pgx.Tx, c *model.Certificate) error {
	return tx.QueryRow(ctx,
		`INSERT INTO certificates
		   (attempt_id, candidate_id, course_id, certificate_number, verification_code, score, grade)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, issued_at`,
		c.AttemptID, c.CandidateID, c.CourseID, c.CertificateNumber, c.VerificationCode, c.Score, c.Grade,
	).Scan(&c.ID, &c.IssuedAt)
}

// GetByAttempt retrieves the certificate issued for an attempt, if any.
func (r *CertificateRepository) GetByAttempt(ctx context.Context, attemptID uuid.UUID) (*model.Certificate, error) {
	c := &model.Certificate{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, attempt_id, candidate_id, course_id, certificate_number,
		        verification_code, score, grade, issued_at, is_valid, is_revoked
		 FROM certificates WHERE attempt_id = $1`, attemptID,
	).Scan(&c.ID, &c.AttemptID, &c.CandidateID, &c.CourseID, &c.CertificateNumber,
		&c.VerificationCode, &c.Score, &c.Grade, &c.IssuedAt, &c.IsValid, &c.IsRevoked)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Verify looks a certificate up by number or verification code and joins the
// course title for the public verification response.
func (r *CertificateRepository) Verify(ctx context.Context, number, code string) (*model.CertificateVerification, error) {
	v := &model.CertificateVerification{}
	err := r.pool.QueryRow(ctx,
		`SELECT cert.certificate_number, co.title, cert.score, cert.grade,
		        cert.issued_at, cert.is_valid, cert.is_revoked
		 FROM certificates cert
		 JOIN courses co ON cert.course_id = co.id
		 WHERE ($1 <> '' AND cert.certificate_number = $1)
		    OR ($2 <> '' AND cert.verification_code = $2)`,
		number, code,
	).Scan(&v.CertificateNumber, &v.CourseTitle, &v.Score, &v.Grade,
		&v.IssuedAt, &v.IsValid, &v.IsRevoked)
	if err != nil {
		return nil, err
	}
	return v, nil
}
