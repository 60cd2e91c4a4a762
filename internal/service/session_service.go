package service

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/certvault/certvault-backend/internal/config"
	"github.com/certvault/certvault-backend/internal/model"
	"github.com/certvault/certvault-backend/internal/repository"
	"github.com/certvault/certvault-backend/internal/trust"
)

// Session lifecycle errors.
var (
	ErrCourseNotEligible  = errors.New("course is not open for certification exams")
	ErrPaymentRequired    = errors.New("exam fee has not been paid")
	ErrEnvironmentRefused = errors.New("exam environment could not be identified")
	ErrNotSessionOwner    = errors.New("session belongs to another candidate")
	ErrInvalidTransition  = errors.New("session state does not allow this operation")
	ErrInactiveSession    = errors.New("session is no longer active")
	ErrBadOverrideSecret  = errors.New("emergency override secret rejected")
)

// SessionAdmission is the create/admit response: the session plus everything
// the lockdown client needs to prove its environment on later revalidations.
type SessionAdmission struct {
	Session        *model.ExamSession `json:"session"`
	Assessment     trust.Assessment   `json:"assessment"`
	BrowserExamKey string             `json:"browser_exam_key"`
	ExamURL        string             `json:"exam_url"`
}

// SessionService drives the session state machine: admission gates, trust
// revalidation, lazy expiry, and proctor termination.
type SessionService struct {
	sessionRepo  *repository.SessionRepository
	attemptRepo  *repository.AttemptRepository
	paymentRepo  *repository.PaymentRepository
	courseSvc    *CourseService
	violationSvc *ViolationService
	scoringSvc   *ScoringService
	rdb          *redis.Client
	cfg          *config.Config
	log          zerolog.Logger
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	sessionRepo *repository.SessionRepository,
	attemptRepo *repository.AttemptRepository,
	paymentRepo *repository.PaymentRepository,
	courseSvc *CourseService,
	violationSvc *ViolationService,
	scoringSvc *ScoringService,
	rdb *redis.Client,
	cfg *config.Config,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		sessionRepo:  sessionRepo,
		attemptRepo:  attemptRepo,
		paymentRepo:  paymentRepo,
		courseSvc:    courseSvc,
		violationSvc: violationSvc,
		scoringSvc:   scoringSvc,
		rdb:          rdb,
		cfg:          cfg,
		log:          log.With().Str("component", "session_service").Logger(),
	}
}

// Create admits a candidate into a PENDING session after the eligibility,
// payment, and environment gates. Creation is idempotent: an existing active
// session for the pair is returned as-is, whoever wins a concurrent race.
func (s *SessionService) Create(ctx context.Context, candidateID int, courseID uuid.UUID, env *model.ClientEnvironment, ip string) (*SessionAdmission, error) {
	if existing, err := s.sessionRepo.GetActive(ctx, candidateID, courseID); err == nil {
		return s.admissionFor(ctx, existing)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check existing session: %w", err)
	}

	course, err := s.courseSvc.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCourseNotEligible
		}
		return nil, fmt.Errorf("get course: %w", err)
	}
	if !course.IsPublished || !course.CertificateEnabled {
		return nil, ErrCourseNotEligible
	}

	paid, err := s.paymentRepo.HasPaidForExam(ctx, candidateID, courseID)
	if err != nil {
		return nil, fmt.Errorf("check payment: %w", err)
	}
	if !paid {
		return nil, ErrPaymentRequired
	}

	// The session id is minted here, before insert, because the browser exam
	// key is derived from it and handed back in the admission response.
	sessionID := uuid.New()
	assessment := trust.Evaluate(env, trust.KeyMaterial{
		SessionID:   sessionID,
		CourseID:    courseID,
		CandidateID: candidateID,
		ExamURL:     s.cfg.ExamURL,
		ExamConfig:  course.ExamConfig,
	})
	if assessment.Tier == trust.TierNone {
		return nil, ErrEnvironmentRefused
	}

	session := &model.ExamSession{
		ID:                 sessionID,
		CandidateID:        candidateID,
		CourseID:           courseID,
		Status:             model.SessionStatusPending,
		TrustTier:          assessment.Tier.String(),
		TrustVerified:      assessment.IsVerified,
		TrustMethod:        assessment.Method,
		IPAddress:          ip,
		BrowserFingerprint: trust.Fingerprint(env.UserAgent, ip),
		DurationSeconds:    course.ExamDurationMinutes * 60,
	}

	if err := s.sessionRepo.CreateActive(ctx, session); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Concurrent create won; hand back the winner.
			existing, fetchErr := s.sessionRepo.GetActive(ctx, candidateID, courseID)
			if fetchErr != nil {
				return nil, fmt.Errorf("concurrent create detected, but fetch failed: %w", fetchErr)
			}
			return s.admissionFor(ctx, existing)
		}
		return nil, fmt.Errorf("create session: %w", err)
	}

	// The exam key derives from the id minted above, so any key presented at
	// creation is necessarily stale. The mismatch still goes to the ledger.
	mismatched := false
	for _, issue := range assessment.Issues {
		if !strings.HasPrefix(issue, "KEY_MISMATCH") {
			continue
		}
		if _, err := s.violationSvc.Record(ctx, sessionID, model.ViolationKeyMismatch, issue); err != nil {
			return nil, fmt.Errorf("record key mismatch: %w", err)
		}
		mismatched = true
	}
	if mismatched {
		// The ledger may have terminated the session; report current truth.
		if session, err = s.sessionRepo.GetByID(ctx, sessionID); err != nil {
			return nil, fmt.Errorf("reload session: %w", err)
		}
	}

	s.enqueueTrustAudit(ctx, sessionID, assessment)

	s.log.Info().
		Str("session_id", sessionID.String()).
		Int("candidate_id", candidateID).
		Str("trust_tier", session.TrustTier).
		Str("trust_method", session.TrustMethod).
		Msg("Session created")

	return &SessionAdmission{
		Session:        session,
		Assessment:     assessment,
		BrowserExamKey: trust.ExpectedExamKey(sessionID, courseID, candidateID),
		ExamURL:        s.cfg.ExamURL,
	}, nil
}

// admissionFor rebuilds the admission payload for an already-existing session
// without re-running the gates.
func (s *SessionService) admissionFor(_ context.Context, session *model.ExamSession) (*SessionAdmission, error) {
	return &SessionAdmission{
		Session: session,
		Assessment: trust.Assessment{
			Tier:       tierFromString(session.TrustTier),
			IsVerified: session.TrustVerified,
			Method:     session.TrustMethod,
		},
		BrowserExamKey: trust.ExpectedExamKey(session.ID, session.CourseID, session.CandidateID),
		ExamURL:        s.cfg.ExamURL,
	}, nil
}

func tierFromString(tier string) trust.Tier {
	switch tier {
	case "MAXIMUM":
		return trust.TierMaximum
	case "ENHANCED":
		return trust.TierEnhanced
	case "BASIC":
		return trust.TierBasic
	default:
		return trust.TierNone
	}
}

// Admit transitions PENDING to IN_PROGRESS, stamps the start time, and lazily
// creates the attempt. Admitting an IN_PROGRESS session is a no-op returning
// the current row.
func (s *SessionService) Admit(ctx context.Context, sessionID uuid.UUID, candidateID int) (*model.ExamSession, error) {
	session, err := s.loadOwned(ctx, sessionID, candidateID)
	if err != nil {
		return nil, err
	}

	switch session.Status {
	case model.SessionStatusPending:
		// Fall through to the transition.
	case model.SessionStatusInProgress:
		return session, nil
	default:
		return nil, ErrInvalidTransition
	}

	startedAt, err := s.sessionRepo.Admit(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Concurrent admit won; reload the row it produced.
			return s.loadOwned(ctx, sessionID, candidateID)
		}
		return nil, fmt.Errorf("admit session: %w", err)
	}

	if _, err := s.attemptRepo.EnsureForSession(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("ensure attempt: %w", err)
	}

	startKey := config.CacheKey.SessionStartKey(sessionID.String())
	if err := s.rdb.Set(ctx, startKey, startedAt.Unix(), 0).Err(); err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Failed to cache start time")
	}

	session.Status = model.SessionStatusInProgress
	session.StartedAt = &startedAt

	s.log.Info().
		Str("session_id", sessionID.String()).
		Time("started_at", startedAt).
		Msg("Session admitted")

	return session, nil
}

// Revalidate re-runs the trust evaluation against a fresh environment report.
// Key mismatches and fingerprint drift become ledger entries, which may
// terminate the session inside this call; the returned session reflects that.
func (s *SessionService) Revalidate(ctx context.Context, sessionID uuid.UUID, candidateID int, env *model.ClientEnvironment, ip string) (*trust.Assessment, *model.ExamSession, error) {
	session, err := s.loadOwned(ctx, sessionID, candidateID)
	if err != nil {
		return nil, nil, err
	}
	session, err = s.expireIfOverdue(ctx, session)
	if err != nil {
		return nil, nil, err
	}
	if !session.Status.IsActive() {
		return nil, session, ErrInactiveSession
	}

	examConfig, err := s.courseSvc.GetExamConfig(ctx, session.CourseID)
	if err != nil {
		return nil, nil, fmt.Errorf("get exam config: %w", err)
	}

	assessment := trust.Evaluate(env, trust.KeyMaterial{
		SessionID:   session.ID,
		CourseID:    session.CourseID,
		CandidateID: session.CandidateID,
		ExamURL:     s.cfg.ExamURL,
		ExamConfig:  examConfig,
	})

	if env != nil && trust.Fingerprint(env.UserAgent, ip) != session.BrowserFingerprint {
		if _, err := s.violationSvc.Record(ctx, sessionID, model.ViolationSecurityBreach,
			"environment fingerprint changed since admission"); err != nil {
			return nil, nil, fmt.Errorf("record fingerprint drift: %w", err)
		}
	}

	for _, issue := range assessment.Issues {
		if !strings.HasPrefix(issue, "KEY_MISMATCH") {
			continue
		}
		if _, err := s.violationSvc.Record(ctx, sessionID, model.ViolationKeyMismatch, issue); err != nil {
			return nil, nil, fmt.Errorf("record key mismatch: %w", err)
		}
	}

	if err := s.sessionRepo.UpdateTrust(ctx, sessionID,
		assessment.Tier.String(), assessment.IsVerified, assessment.Method); err != nil {
		return nil, nil, fmt.Errorf("update trust: %w", err)
	}

	s.enqueueTrustAudit(ctx, sessionID, assessment)

	// The ledger may have terminated the session above; report current truth.
	session, err = s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("reload session: %w", err)
	}
	return &assessment, session, nil
}

// GetState builds the candidate polling read model with lazy expiry applied.
func (s *SessionService) GetState(ctx context.Context, sessionID uuid.UUID, candidateID int) (*model.SessionState, error) {
	session, err := s.loadOwned(ctx, sessionID, candidateID)
	if err != nil {
		return nil, err
	}
	session, err = s.expireIfOverdue(ctx, session)
	if err != nil {
		return nil, err
	}

	count, err := s.violationSvc.CountQualifying(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("count violations: %w", err)
	}

	return &model.SessionState{
		SessionID:      session.ID,
		Status:         session.Status,
		TrustTier:      session.TrustTier,
		ViolationCount: count,
		TimeRemaining:  session.TimeRemaining(time.Now(), s.cfg.ExpiryGrace),
	}, nil
}

// GetOwned loads a session after verifying candidate ownership.
func (s *SessionService) GetOwned(ctx context.Context, sessionID uuid.UUID, candidateID int) (*model.ExamSession, error) {
	session, err := s.loadOwned(ctx, sessionID, candidateID)
	if err != nil {
		return nil, err
	}
	return s.expireIfOverdue(ctx, session)
}

// GetByID loads a session without ownership checks, for proctor surfaces.
func (s *SessionService) GetByID(ctx context.Context, sessionID uuid.UUID) (*model.ExamSession, error) {
	return s.sessionRepo.GetByID(ctx, sessionID)
}

// LastHeartbeat reads the candidate's most recent stream heartbeat from Redis.
// Returns nil when no heartbeat has been recorded or the key has expired.
func (s *SessionService) LastHeartbeat(ctx context.Context, sessionID uuid.UUID) *time.Time {
	unix, err := s.rdb.Get(ctx, config.CacheKey.SessionHeartbeatKey(sessionID.String())).Int64()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Failed to read heartbeat")
		}
		return nil
	}
	t := time.Unix(unix, 0)
	return &t
}

// ListByCourse serves the proctor monitor.
func (s *SessionService) ListByCourse(ctx context.Context, courseID uuid.UUID, page, perPage int) ([]repository.SessionOverview, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}
	overviews, total, err := s.sessionRepo.ListByCourse(ctx, courseID, s.cfg.ViolationSeverityFloor, page, perPage)
	if err != nil {
		return nil, 0, err
	}
	if overviews == nil {
		overviews = []repository.SessionOverview{}
	}
	return overviews, total, nil
}

// TerminateByProctor force-terminates a session. The emergency override
// secret authorizes termination with an audit entry in the ledger; without
// it the proctor's authenticated identity is authorization enough, but no
// ledger entry is written. Idempotent on terminal sessions.
func (s *SessionService) TerminateByProctor(ctx context.Context, sessionID uuid.UUID, proctorID int, req *model.TerminateSessionRequest) (*model.ExamSession, error) {
	override := req.OverrideSecret != ""
	if override {
		if s.cfg.EmergencyOverrideSecret == "" ||
			subtle.ConstantTimeCompare([]byte(req.OverrideSecret), []byte(s.cfg.EmergencyOverrideSecret)) != 1 {
			return nil, ErrBadOverrideSecret
		}
	}

	terminated, err := s.sessionRepo.Terminate(ctx, sessionID, model.ReasonProctorTerminated)
	if err != nil {
		return nil, fmt.Errorf("terminate session: %w", err)
	}

	if terminated {
		if override {
			detail := fmt.Sprintf("emergency override by proctor %d: %s", proctorID, req.Reason)
			if _, err := s.violationSvc.Record(ctx, sessionID, model.ViolationEmergencyOverride, detail); err != nil {
				s.log.Error().Err(err).Str("session_id", sessionID.String()).Msg("Failed to audit emergency override")
			}
		}
		if _, err := s.scoringSvc.FinalizeTerminated(ctx, sessionID, model.ReasonProctorTerminated); err != nil {
			s.log.Error().Err(err).Str("session_id", sessionID.String()).Msg("Failed to finalize terminated session")
		}
		s.log.Warn().
			Str("session_id", sessionID.String()).
			Int("proctor_id", proctorID).
			Bool("override", override).
			Str("note", req.Reason).
			Msg("Session terminated by proctor")
	}

	return s.sessionRepo.GetByID(ctx, sessionID)
}

// ExpireOverdue terminates and scores one overdue session. Shared by the lazy
// read path and the sweep worker. Reports whether this call did the work.
func (s *SessionService) ExpireOverdue(ctx context.Context, session *model.ExamSession) (bool, error) {
	deadline, ok := session.Deadline(s.cfg.ExpiryGrace)
	if !ok || session.Status != model.SessionStatusInProgress || time.Now().Before(deadline) {
		return false, nil
	}

	terminated, err := s.sessionRepo.Terminate(ctx, session.ID, model.ReasonExpired)
	if err != nil {
		return false, fmt.Errorf("terminate expired session: %w", err)
	}
	if !terminated {
		return false, nil
	}

	if _, err := s.scoringSvc.FinalizeTerminated(ctx, session.ID, model.ReasonExpired); err != nil {
		s.log.Error().Err(err).Str("session_id", session.ID.String()).Msg("Failed to finalize expired session")
	}

	s.log.Info().
		Str("session_id", session.ID.String()).
		Time("deadline", deadline).
		Msg("Session expired")
	return true, nil
}

// ListOverdue feeds the sweep worker.
func (s *SessionService) ListOverdue(ctx context.Context, limit int) ([]model.ExamSession, error) {
	return s.sessionRepo.ListOverdueCandidates(ctx, limit)
}

func (s *SessionService) expireIfOverdue(ctx context.Context, session *model.ExamSession) (*model.ExamSession, error) {
	expired, err := s.ExpireOverdue(ctx, session)
	if err != nil {
		return nil, err
	}
	if !expired {
		return session, nil
	}
	return s.sessionRepo.GetByID(ctx, session.ID)
}

func (s *SessionService) loadOwned(ctx context.Context, sessionID uuid.UUID, candidateID int) (*model.ExamSession, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.CandidateID != candidateID {
		return nil, ErrNotSessionOwner
	}
	return session, nil
}

// trustAuditMessage is the queue payload consumed by the audit worker.
type trustAuditMessage struct {
	SessionID string   `json:"session_id"`
	Tier      string   `json:"tier"`
	Verified  bool     `json:"verified"`
	Method    string   `json:"method"`
	Issues    []string `json:"issues,omitempty"`
	Timestamp int64    `json:"timestamp"`
}

// enqueueTrustAudit pushes the assessment snapshot onto the persistence
// queue. Best effort: a failed push loses one audit row, never the request.
func (s *SessionService) enqueueTrustAudit(ctx context.Context, sessionID uuid.UUID, a trust.Assessment) {
	msg := trustAuditMessage{
		SessionID: sessionID.String(),
		Tier:      a.Tier.String(),
		Verified:  a.IsVerified,
		Method:    a.Method,
		Issues:    a.Issues,
		Timestamp: time.Now().Unix(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistTrustAuditsQueue, data).Err(); err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Failed to enqueue trust audit")
	}
}
