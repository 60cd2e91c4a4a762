package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/certvault/certvault-backend/internal/model"
)

// SessionOverview combines a session with its qualifying violation count for
// the proctor monitor view.
type SessionOverview struct {
	model.ExamSession
	CandidateName  string `json:"candidate_name"`
	CandidateEmail string `json:"candidate_email"`
	ViolationCount int64  `json:"violation_count"`
}

// SessionRepository handles exam session data access. The session row is the
// unit of locking: every mutation is a status-guarded conditional update so
// concurrent requests cannot race a session out of its state machine.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

const sessionColumns = `id, candidate_id, course_id, status, trust_tier, trust_verified,
	trust_method, ip_address, browser_fingerprint, duration_seconds,
	started_at, ended_at, termination_reason, created_at`

func scanSession(row pgx.Row) (*model.ExamSession, error) {
	s := &model.ExamSession{}
	err := row.Scan(
		&s.ID, &s.CandidateID, &s.CourseID, &s.Status, &s.TrustTier, &s.TrustVerified,
		&s.TrustMethod, &s.IPAddress, &s.BrowserFingerprint, &s.DurationSeconds,
		&s.StartedAt, &s.EndedAt, &s.TerminationReason, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetByID retrieves a session by its UUID.
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamSession, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions WHERE id = $1`, id))
}

// GetActive retrieves the PENDING or IN_PROGRESS session for a
// (candidate, course) pair, if any.
func (r *SessionRepository) GetActive(ctx context.Context, candidateID int, courseID uuid.UUID) (*model.ExamSession, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+`
		 FROM exam_sessions
		 WHERE candidate_id = $1 AND course_id = $2
		   AND status IN ('PENDING', 'IN_PROGRESS')`,
		candidateID, courseID))
}

// CreateActive inserts a new PENDING session under the id the caller already
// generated (the browser exam key is derived from it before insert). The
// insert targets the partial unique index on (candidate_id, course_id) WHERE
// status is active, so two concurrent creates cannot both succeed: the loser
// gets pgx.ErrNoRows and must refetch the winner via GetActive. This is the
// single conditional write that enforces the one-active-session invariant,
// never check-then-insert.
func (r *SessionRepository) CreateActive(ctx context.Context, s *model.ExamSession) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exam_sessions
		   (id, candidate_id, course_id, status, trust_tier, trust_verified, trust_method,
		    ip_address, browser_fingerprint, duration_seconds)
		 VALUES ($1, $2, $3, 'PENDING', $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (candidate_id, course_id) WHERE status IN ('PENDING', 'IN_PROGRESS')
		 DO NOTHING
		 RETURNING created_at`,
		s.ID, s.CandidateID, s.CourseID, s.TrustTier, s.TrustVerified, s.TrustMethod,
		s.IPAddress, s.BrowserFingerprint, s.DurationSeconds,
	).Scan(&s.CreatedAt)
}

// Admit transitions PENDING → IN_PROGRESS and stamps the start time.
// Returns pgx.ErrNoRows if the session is not PENDING.
func (r *SessionRepository) Admit(ctx context.Context, id uuid.UUID) (time.Time, error) {
	var startedAt time.Time
	err := r.pool.QueryRow(ctx,
		`UPDATE exam_sessions
		 SET status = 'IN_PROGRESS', started_at = NOW()
		 WHERE id = $1 AND status = 'PENDING'
		 RETURNING started_at`, id,
	).Scan(&startedAt)
	return startedAt, err
}

// UpdateTrust persists a fresh trust assessment on an active session.
func (r *SessionRepository) UpdateTrust(ctx context.Context, id uuid.UUID, tier string, verified bool, method string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exam_sessions
		 SET trust_tier = $1, trust_verified = $2, trust_method = $3
		 WHERE id = $4 AND status IN ('PENDING', 'IN_PROGRESS')`,
		tier, verified, method, id)
	return err
}

// Terminate moves an active session to TERMINATED. Terminating a session
// that is already terminal affects zero rows and reports false; callers
// treat that as an idempotent no-op, not an error.
func (r *SessionRepository) Terminate(ctx context.Context, id uuid.UUID, reason model.TerminationReason) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exam_sessions
		 SET status = 'TERMINATED', ended_at = NOW(), termination_reason = $1
		 WHERE id = $2 AND status IN ('PENDING', 'IN_PROGRESS')`,
		reason, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// TerminateTx is Terminate inside a caller-owned transaction; used by the
// violation ledger so the append, the count, and the termination commit or
// roll back together.
func (r *SessionRepository) TerminateTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, reason model.TerminationReason) (bool, error) {
	tag, err := tx.Exec(ctx,
		`UPDATE exam_sessions
		 SET status = 'TERMINATED', ended_at = NOW(), termination_reason = $1
		 WHERE id = $2 AND status IN ('PENDING', 'IN_PROGRESS')`,
		reason, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// LockTx loads the session row FOR UPDATE inside a caller-owned transaction.
// Both the completion flow and the violation ledger take this lock first, so
// scoring, violation counting, and termination serialize per session.
func (r *SessionRepository) LockTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.ExamSession, error) {
	return scanSession(tx.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions WHERE id = $1 FOR UPDATE`, id))
}

// CompleteTx transitions an IN_PROGRESS session to COMPLETED within the
// scoring transaction.
func (r *SessionRepository) CompleteTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	tag, err := tx.Exec(ctx,
		`UPDATE exam_sessions
		 SET status = 'COMPLETED', ended_at = NOW()
		 WHERE id = $1 AND status = 'IN_PROGRESS'`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListOverdueCandidates returns IN_PROGRESS sessions whose raw duration has
// elapsed. The SQL filter deliberately omits the grace period; the sweep
// worker re-checks each row with ExamSession.Deadline so lazy and eager
// expiry share one formula.
func (r *SessionRepository) ListOverdueCandidates(ctx context.Context, limit int) ([]model.ExamSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+`
		 FROM exam_sessions
		 WHERE status = 'IN_PROGRESS'
		   AND started_at IS NOT NULL
		   AND started_at + make_interval(secs => duration_seconds) < NOW()
		 ORDER BY started_at ASC
		 LIMIT $1`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.ExamSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// ListByCourse retrieves the proctor monitor view: every session for a
// course joined with candidate identity and its qualifying violation count.
func (r *SessionRepository) ListByCourse(ctx context.Context, courseID uuid.UUID, severityFloor int, page, perPage int) ([]SessionOverview, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM exam_sessions WHERE course_id = $1`, courseID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage
	rows, err := r.pool.Query(ctx,
		`SELECT es.id, es.candidate_id, es.course_id, es.status, es.trust_tier,
		        es.trust_verified, es.trust_method, es.ip_address, es.browser_fingerprint,
		        es.duration_seconds, es.started_at, es.ended_at, es.termination_reason,
		        es.created_at,
		        c.full_name, c.email,
		        (SELECT COUNT(*) FROM violations v
		          WHERE v.session_id = es.id AND v.severity >= $2) AS violation_count
		 FROM exam_sessions es
		 JOIN candidates c ON es.candidate_id = c.id
		 WHERE es.course_id = $1
		 ORDER BY es.created_at DESC
		 LIMIT $3 OFFSET $4`,
		courseID, severityFloor, perPage, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var overviews []SessionOverview
	for rows.Next() {
		var o SessionOverview
		if err := rows.Scan(
			&o.ID, &o.CandidateID, &o.CourseID, &o.Status, &o.TrustTier,
			&o.TrustVerified, &o.TrustMethod, &o.IPAddress, &o.BrowserFingerprint,
			&o.DurationSeconds, &o.StartedAt, &o.EndedAt, &o.TerminationReason,
			&o.CreatedAt,
			&o.CandidateName, &o.CandidateEmail,
			&o.ViolationCount,
		); err != nil {
			return nil, 0, err
		}
		overviews = append(overviews, o)
	}
	return overviews, total, rows.Err()
}
