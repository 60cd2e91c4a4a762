package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/certvault/certvault-backend/internal/config"
	"github.com/certvault/certvault-backend/internal/model"
	"github.com/certvault/certvault-backend/internal/repository"
)

// ViolationService is the escalation policy on top of the append-only ledger.
// Record runs append, count, and (when the threshold trips) termination in
// one transaction that holds the session row lock, so two racing violations
// can never both observe threshold-1 and leave the session alive.
type ViolationService struct {
	violationRepo *repository.ViolationRepository
	sessionRepo   *repository.SessionRepository
	scoringSvc    *ScoringService
	cfg           *config.Config
	log           zerolog.Logger
}

// NewViolationService creates a new ViolationService.
func NewViolationService(
	violationRepo *repository.ViolationRepository,
	sessionRepo *repository.SessionRepository,
	scoringSvc *ScoringService,
	cfg *config.Config,
	log zerolog.Logger,
) *ViolationService {
	return &ViolationService{
		violationRepo: violationRepo,
		sessionRepo:   sessionRepo,
		scoringSvc:    scoringSvc,
		cfg:           cfg,
		log:           log.With().Str("component", "violation_service").Logger(),
	}
}

// RecordOutcome reports what the ledger transaction decided.
type RecordOutcome struct {
	Violation      *model.Violation
	QualifyingLeft int // violations remaining before forced termination; 0 when terminated
	Terminated     bool
	Reason         model.TerminationReason
}

// Record appends a violation and applies the escalation policy. Entries on
// already-terminal sessions are still appended for the audit trail but never
// re-terminate. When the transaction terminates the session, the attempt is
// scored afterwards on a best-effort basis; a failed finalization is logged
// and the termination itself stands.
func (s *ViolationService) Record(ctx context.Context, sessionID uuid.UUID, vtype model.ViolationType, detail string) (*RecordOutcome, error) {
	violation := &model.Violation{
		SessionID: sessionID,
		Type:      vtype,
		Severity:  vtype.DefaultSeverity(),
		Detail:    detail,
	}

	tx, err := s.violationRepo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	session, err := s.sessionRepo.LockTx(ctx, tx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("lock session: %w", err)
	}

	if err := s.violationRepo.AppendTx(ctx, tx, violation); err != nil {
		return nil, fmt.Errorf("append violation: %w", err)
	}

	outcome := &RecordOutcome{Violation: violation}

	if session.Status.IsActive() {
		count, err := s.violationRepo.CountQualifyingTx(ctx, tx, sessionID, s.cfg.ViolationSeverityFloor)
		if err != nil {
			return nil, fmt.Errorf("count violations: %w", err)
		}

		var reason model.TerminationReason
		switch {
		case count >= int64(s.cfg.ViolationThreshold):
			reason = model.ReasonMultipleViolations
		case s.cfg.TerminateOnBreach && isBreach(vtype):
			reason = model.ReasonSecurityViolation
		}

		if reason != "" {
			terminated, err := s.sessionRepo.TerminateTx(ctx, tx, sessionID, reason)
			if err != nil {
				return nil, fmt.Errorf("terminate session: %w", err)
			}
			outcome.Terminated = terminated
			outcome.Reason = reason
		} else {
			left := int64(s.cfg.ViolationThreshold) - count
			if left < 0 {
				left = 0
			}
			outcome.QualifyingLeft = int(left)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	if outcome.Terminated {
		s.log.Warn().
			Str("session_id", sessionID.String()).
			Str("type", string(vtype)).
			Str("reason", string(outcome.Reason)).
			Msg("Session terminated by violation policy")

		if _, err := s.scoringSvc.FinalizeTerminated(ctx, sessionID, outcome.Reason); err != nil {
			s.log.Error().Err(err).
				Str("session_id", sessionID.String()).
				Msg("Failed to finalize terminated session")
		}
	}

	return outcome, nil
}

// isBreach reports whether a violation type represents server-detected
// environment compromise rather than candidate behavior.
func isBreach(t model.ViolationType) bool {
	return t == model.ViolationSecurityBreach || t == model.ViolationKeyMismatch
}

// CountQualifying exposes the escalation-relevant count for the state read
// model.
func (s *ViolationService) CountQualifying(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	return s.violationRepo.CountQualifying(ctx, sessionID, s.cfg.ViolationSeverityFloor)
}

// ListBySession returns the full ledger for proctor review.
func (s *ViolationService) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.Violation, error) {
	violations, err := s.violationRepo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if violations == nil {
		violations = []model.Violation{}
	}
	return violations, nil
}
