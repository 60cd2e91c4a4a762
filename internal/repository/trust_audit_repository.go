package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/certvault/certvault-backend/internal/model"
)

// TrustAuditRepository reads the trust evaluation history written by the
// audit worker.
type TrustAuditRepository struct {
	pool *pgxpool.Pool
}

// NewTrustAuditRepository creates a new TrustAuditRepository.
func NewTrustAuditRepository(pool *pgxpool.Pool) *TrustAuditRepository {
	return &TrustAuditRepository{pool: pool}
}

// ListBySession retrieves the trust history for a session in recording order.
func (r *TrustAuditRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.TrustAudit, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, tier, verified, method, issues, recorded_at
		 FROM trust_audits
		 WHERE session_id = $1
		 ORDER BY id ASC`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var audits []model.TrustAudit
	for rows.Next() {
		var a model.TrustAudit
		if err := rows.Scan(&a.ID, &a.SessionID, &a.Tier, &a.Verified, &a.Method, &a.Issues, &a.RecordedAt); err != nil {
			return nil, err
		}
		audits = append(audits, a)
	}
	return audits, rows.Err()
}
