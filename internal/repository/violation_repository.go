package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/certvault/certvault-backend/internal/model"
)

// ViolationRepository is the append-only violation ledger. Entries are never
// updated or deleted; no UPDATE/DELETE path exists here.
type ViolationRepository struct {
	pool *pgxpool.Pool
}

// NewViolationRepository creates a new ViolationRepository.
func NewViolationRepository(pool *pgxpool.Pool) *ViolationRepository {
	return &ViolationRepository{pool: pool}
}

// Begin opens the transaction the ledger's append-count-terminate sequence
// runs in.
func (r *ViolationRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// AppendTx inserts a ledger entry inside the caller's transaction.
func (r *ViolationRepository) AppendTx(ctx context.Context, tx pgx.Tx, v *model.Violation) error {
	return tx.QueryRow(ctx,
		`INSERT INTO violations (session_id, type, severity, detail)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, recorded_at`,
		v.SessionID, v.Type, int(v.Severity), v.Detail,
	).Scan(&v.ID, &v.RecordedAt)
}

// CountQualifyingTx counts entries at or above the severity floor inside the
// caller's transaction. Run after AppendTx in the same tx, the count observed
// here is serialized against concurrent appends to the same session, so two
// racing violations cannot both see threshold-1.
func (r *ViolationRepository) CountQualifyingTx(ctx context.Context, tx pgx.Tx, sessionID uuid.UUID, severityFloor int) (int64, error) {
	var count int64
	err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM violations
		 WHERE session_id = $1 AND severity >= $2`,
		sessionID, severityFloor,
	).Scan(&count)
	return count, err
}

// CountQualifying is the non-transactional count used by the read model.
func (r *ViolationRepository) CountQualifying(ctx context.Context, sessionID uuid.UUID, severityFloor int) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM violations
		 WHERE session_id = $1 AND severity >= $2`,
		sessionID, severityFloor,
	).Scan(&count)
	return count, err
}

// ListBySession retrieves the full ledger for a session in recording order.
// Audit/proctor use only, never exposed on candidate-facing paths.
func (r *ViolationRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.Violation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, type, severity, detail, recorded_at
		 FROM violations
		 WHERE session_id = $1
		 ORDER BY id ASC`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var violations []model.Violation
	for rows.Next() {
		var v model.Violation
		var severity int
		if err := rows.Scan(&v.ID, &v.SessionID, &v.Type, &severity, &v.Detail, &v.RecordedAt); err != nil {
			return nil, err
		}
		v.Severity = model.ViolationSeverity(severity)
		violations = append(violations, v)
	}
	return violations, rows.Err()
}
