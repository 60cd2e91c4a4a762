package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/certvault/certvault-backend/internal/model"
	"github.com/certvault/certvault-backend/internal/repository"
)

// Scoring errors.
var (
	ErrNoActiveAttempt    = errors.New("no attempt exists for this session")
	ErrSessionNotScorable = errors.New("session is not in a scorable state")
	ErrQuestionNotInExam  = errors.New("question does not belong to this exam")
)

// ScoringService grades answers against the Redis answer key and finalizes
// attempts. Finalization runs in a single transaction holding the session row
// lock, so a score, the status transition, and the certificate (when earned)
// become visible in one commit.
type ScoringService struct {
	pool        *pgxpool.Pool
	sessionRepo *repository.SessionRepository
	attemptRepo *repository.AttemptRepository
	answerRepo  *repository.AnswerRepository
	certRepo    *repository.CertificateRepository
	courseRepo  *repository.CourseRepository
	courseSvc   *CourseService
	log         zerolog.Logger
}

// NewScoringService creates a new ScoringService.
func NewScoringService(
	pool *pgxpool.Pool,
	sessionRepo *repository.SessionRepository,
	attemptRepo *repository.AttemptRepository,
	answerRepo *repository.AnswerRepository,
	certRepo *repository.CertificateRepository,
	courseRepo *repository.CourseRepository,
	courseSvc *CourseService,
	log zerolog.Logger,
) *ScoringService {
	return &ScoringService{
		pool:        pool,
		sessionRepo: sessionRepo,
		attemptRepo: attemptRepo,
		answerRepo:  answerRepo,
		certRepo:    certRepo,
		courseRepo:  courseRepo,
		courseSvc:   courseSvc,
		log:         log.With().Str("component", "scoring_service").Logger(),
	}
}

// ComputeScore returns 100 * correct / totalAnswered. Unanswered questions do
// not count against the candidate; zero answered means zero score.
func ComputeScore(correct, totalAnswered int) float64 {
	if totalAnswered == 0 {
		return 0
	}
	return 100 * float64(correct) / float64(totalAnswered)
}

// GradeFor maps a score onto the grade bands.
func GradeFor(score float64) string {
	switch {
	case score >= 90:
		return model.GradeA
	case score >= 80:
		return model.GradeB
	case score >= 70:
		return model.GradeC
	case score >= 60:
		return model.GradeD
	default:
		return model.GradeF
	}
}

// TimeSpentMinutes converts the summed per-answer seconds into minutes,
// rounded half up. Wall-clock time between admission and submit plays no
// part; only time the candidate reported spending on answers counts.
func TimeSpentMinutes(totalSeconds int64) int {
	return int((totalSeconds + 30) / 60)
}

// NewCertificateNumber builds a public certificate number from the course
// code plus 12 random hex characters.
func NewCertificateNumber(courseCode string) string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return fmt.Sprintf("CERT-%s-%s", courseCode, strings.ToUpper(raw[:12]))
}

// NewVerificationCode builds the private lookup code printed on the
// certificate document.
func NewVerificationCode() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
}

// disqualifies reports whether a termination reason bars the attempt from
// passing regardless of score.
func disqualifies(reason model.TerminationReason) bool {
	return reason == model.ReasonSecurityViolation || reason == model.ReasonMultipleViolations
}

// finalGrade bands the score for a passing attempt. A failed or disqualified
// attempt records F whatever the raw score was.
func finalGrade(score float64, passed bool) string {
	if !passed {
		return model.GradeF
	}
	return GradeFor(score)
}

// SubmitAnswer grades one answer against the cached answer key and upserts
// it. The correct index never leaves the server; clients only learn
// correctness after completion.
func (s *ScoringService) SubmitAnswer(ctx context.Context, session *model.ExamSession, req *model.SubmitAnswerRequest) error {
	if session.Status != model.SessionStatusInProgress {
		return ErrSessionNotScorable
	}

	attempt, err := s.attemptRepo.GetBySession(ctx, session.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNoActiveAttempt
		}
		return fmt.Errorf("get attempt: %w", err)
	}

	correctIdx, err := s.correctIndex(ctx, session.CourseID, req.QuestionID)
	if err != nil {
		return err
	}

	answer := &model.ExamAnswer{
		AttemptID:        attempt.ID,
		QuestionID:       req.QuestionID,
		SelectedAnswer:   req.SelectedAnswer,
		IsCorrect:        req.SelectedAnswer == correctIdx,
		TimeSpentSeconds: req.TimeSpentSeconds,
	}
	return s.answerRepo.Upsert(ctx, answer)
}

// correctIndex resolves a question's correct option from the Redis answer
// key, falling back to PostgreSQL if the hash is cold.
func (s *ScoringService) correctIndex(ctx context.Context, courseID, questionID uuid.UUID) (int, error) {
	key, err := s.courseSvc.GetAnswerKey(ctx, courseID)
	if err == nil {
		raw, ok := key[questionID.String()]
		if !ok {
			return 0, ErrQuestionNotInExam
		}
		idx, perr := strconv.Atoi(raw)
		if perr != nil {
			return 0, fmt.Errorf("corrupt answer key entry: %w", perr)
		}
		return idx, nil
	}
	if !errors.Is(err, ErrAnswerKeyAbsent) && !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Msg("Answer key cache unavailable, falling back to database")
	}

	q, err := s.courseSvc.questionRepo.GetByID(ctx, questionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrQuestionNotInExam
		}
		return 0, fmt.Errorf("get question: %w", err)
	}
	if q.CourseID != courseID {
		return 0, ErrQuestionNotInExam
	}
	return q.CorrectIndex, nil
}

// CompleteExam finalizes a candidate-submitted exam: score, grade, status
// transition to COMPLETED, and certificate issuance when earned. Calling it
// on an already-completed session returns the stored result unchanged.
func (s *ScoringService) CompleteExam(ctx context.Context, sessionID uuid.UUID) (*model.ExamResult, error) {
	return s.finalize(ctx, sessionID, nil)
}

// FinalizeTerminated scores a session that was just terminated. The
// termination itself already committed; this records the partial score and,
// when the reason is not disqualifying, the pass outcome. Idempotent.
func (s *ScoringService) FinalizeTerminated(ctx context.Context, sessionID uuid.UUID, reason model.TerminationReason) (*model.ExamResult, error) {
	return s.finalize(ctx, sessionID, &reason)
}

func (s *ScoringService) finalize(ctx context.Context, sessionID uuid.UUID, reason *model.TerminationReason) (*model.ExamResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	session, err := s.sessionRepo.LockTx(ctx, tx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("lock session: %w", err)
	}

	if reason == nil {
		switch session.Status {
		case model.SessionStatusInProgress:
			// Scorable, fall through.
		case model.SessionStatusCompleted:
			// Idempotent resubmit; reuse the stored outcome.
		default:
			return nil, ErrSessionNotScorable
		}
	} else if session.TerminationReason != nil {
		reason = session.TerminationReason
	}

	attempt, err := s.attemptRepo.GetBySessionTx(ctx, tx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoActiveAttempt
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}

	if attempt.CompletedAt != nil {
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("commit: %w", err)
		}
		return s.resultFor(ctx, session, attempt)
	}

	course, err := s.courseRepo.GetByID(ctx, session.CourseID)
	if err != nil {
		return nil, fmt.Errorf("get course: %w", err)
	}

	agg, err := s.answerRepo.AggregateTx(ctx, tx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("aggregate answers: %w", err)
	}

	now := time.Now()
	score := ComputeScore(agg.CorrectCount, agg.TotalAnswered)
	passed := score >= course.PassingScore
	if reason != nil && disqualifies(*reason) {
		passed = false
	}
	grade := finalGrade(score, passed)
	timeSpent := TimeSpentMinutes(agg.TimeSpentSeconds)

	if err := s.attemptRepo.FinalizeTx(ctx, tx, attempt.ID, score, passed, grade, timeSpent, now); err != nil {
		return nil, fmt.Errorf("finalize attempt: %w", err)
	}

	if reason == nil && session.Status == model.SessionStatusInProgress {
		if err := s.sessionRepo.CompleteTx(ctx, tx, sessionID); err != nil {
			return nil, fmt.Errorf("complete session: %w", err)
		}
	}

	result := &model.ExamResult{
		SessionID: sessionID,
		Score:     score,
		Passed:    passed,
		Grade:     grade,
	}

	if passed && course.CertificateEnabled {
		cert := &model.Certificate{
			AttemptID:         attempt.ID,
			CandidateID:       session.CandidateID,
			CourseID:          session.CourseID,
			CertificateNumber: NewCertificateNumber(course.Code),
			VerificationCode:  NewVerificationCode(),
			Score:             score,
			Grade:             grade,
		}
		if err := s.certRepo.InsertTx(ctx, tx, cert); err != nil {
			return nil, fmt.Errorf("issue certificate: %w", err)
		}
		result.CertificateNumber = cert.CertificateNumber
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	s.log.Info().
		Str("session_id", sessionID.String()).
		Float64("score", score).
		Bool("passed", passed).
		Str("grade", grade).
		Msg("Attempt finalized")

	return result, nil
}

// resultFor rebuilds the result payload for an already-finalized attempt.
func (s *ScoringService) resultFor(ctx context.Context, session *model.ExamSession, attempt *model.ExamAttempt) (*model.ExamResult, error) {
	result := &model.ExamResult{SessionID: session.ID}
	if attempt.Score != nil {
		result.Score = *attempt.Score
	}
	if attempt.Passed != nil {
		result.Passed = *attempt.Passed
	}
	if attempt.Grade != nil {
		result.Grade = *attempt.Grade
	}

	cert, err := s.certRepo.GetByAttempt(ctx, attempt.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return result, nil
		}
		return nil, fmt.Errorf("get certificate: %w", err)
	}
	result.CertificateNumber = cert.CertificateNumber
	return result, nil
}

// GetResult returns the outcome of a finalized session.
func (s *ScoringService) GetResult(ctx context.Context, session *model.ExamSession) (*model.ExamResult, error) {
	attempt, err := s.attemptRepo.GetBySession(ctx, session.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoActiveAttempt
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if attempt.CompletedAt == nil {
		return nil, ErrSessionNotScorable
	}
	return s.resultFor(ctx, session, attempt)
}
