package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/certvault/certvault-backend/internal/config"
	"github.com/certvault/certvault-backend/internal/model"
	"github.com/certvault/certvault-backend/internal/repository"
)

// Domain errors.
var (
	ErrNoQuestions     = errors.New("course has no exam questions")
	ErrPaperNotCached  = errors.New("exam paper not cached")
	ErrAnswerKeyAbsent = errors.New("answer key not found in cache")
)

// CourseService serves course eligibility data and keeps the per-course exam
// material (paper, answer key, lockdown config) hot in Redis.
type CourseService struct {
	courseRepo   *repository.CourseRepository
	questionRepo *repository.QuestionRepository
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewCourseService creates a new CourseService.
func NewCourseService(
	courseRepo *repository.CourseRepository,
	questionRepo *repository.QuestionRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *CourseService {
	return &CourseService{
		courseRepo:   courseRepo,
		questionRepo: questionRepo,
		rdb:          rdb,
		log:          log.With().Str("component", "course_service").Logger(),
	}
}

// GetByID retrieves a course by its UUID.
func (s *CourseService) GetByID(ctx context.Context, id uuid.UUID) (*model.Course, error) {
	return s.courseRepo.GetByID(ctx, id)
}

// ListEligible retrieves the exam lobby: published, certificate-enabled courses.
func (s *CourseService) ListEligible(ctx context.Context) ([]model.Course, error) {
	courses, err := s.courseRepo.ListEligible(ctx)
	if err != nil {
		return nil, err
	}
	if courses == nil {
		courses = []model.Course{}
	}
	return courses, nil
}

// WarmCourseCache loads a course's candidate paper, answer key, and lockdown
// config from PostgreSQL into Redis. Used by PrewarmAllCaches and on demand
// when a cache miss falls back to the database.
func (s *CourseService) WarmCourseCache(ctx context.Context, course *model.Course) error {
	questions, err := s.questionRepo.ListByCourse(ctx, course.ID)
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}
	if len(questions) == 0 {
		return ErrNoQuestions
	}

	// Candidate-facing paper: no correct answers.
	candidateQuestions := make([]model.QuestionForCandidate, len(questions))
	for i, q := range questions {
		candidateQuestions[i] = model.QuestionForCandidate{
			ID:           q.ID,
			QuestionText: q.QuestionText,
			Options:      q.Options,
			OrderNum:     q.OrderNum,
		}
	}

	paper := model.ExamPaper{
		CourseID:        course.ID,
		Title:           course.Title,
		DurationMinutes: course.ExamDurationMinutes,
		PassingScore:    course.PassingScore,
		Questions:       candidateQuestions,
	}

	paperJSON, err := json.Marshal(paper)
	if err != nil {
		return fmt.Errorf("marshal paper: %w", err)
	}

	answerKey := make(map[string]interface{}, len(questions))
	for _, q := range questions {
		answerKey[q.ID.String()] = strconv.Itoa(q.CorrectIndex)
	}

	configJSON, err := json.Marshal(course.ExamConfig)
	if err != nil {
		return fmt.Errorf("marshal exam config: %w", err)
	}

	courseID := course.ID.String()
	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, config.CacheKey.ExamPaperKey(courseID), paperJSON, 0)
	pipe.Del(ctx, config.CacheKey.AnswerKeyKey(courseID))
	pipe.HSet(ctx, config.CacheKey.AnswerKeyKey(courseID), answerKey)
	pipe.Set(ctx, config.CacheKey.ExamConfigKey(courseID), configJSON, 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache to redis: %w", err)
	}

	s.log.Debug().
		Str("course_id", courseID).
		Int("questions", len(questions)).
		Msg("Cache warmed")
	return nil
}

// PrewarmAllCaches loads every eligible course into Redis on startup so the
// first candidate of an exam window never hits a cold cache.
func (s *CourseService) PrewarmAllCaches(ctx context.Context) error {
	courses, err := s.courseRepo.ListEligible(ctx)
	if err != nil {
		return fmt.Errorf("list eligible courses: %w", err)
	}

	if len(courses) == 0 {
		s.log.Info().Msg("No eligible courses to prewarm")
		return nil
	}

	s.log.Info().Int("count", len(courses)).Msg("Prewarming eligible courses...")

	warmed := 0
	for i := range courses {
		if err := s.WarmCourseCache(ctx, &courses[i]); err != nil {
			s.log.Warn().
				Err(err).
				Str("course_id", courses[i].ID.String()).
				Msg("Failed to warm course, skipping")
			continue
		}
		warmed++
	}

	s.log.Info().
		Int("warmed", warmed).
		Int("total", len(courses)).
		Msg("Prewarming complete")
	return nil
}

// GetExamPaper retrieves the cached candidate paper, warming the cache from
// PostgreSQL on a miss.
func (s *CourseService) GetExamPaper(ctx context.Context, courseID uuid.UUID) (*model.ExamPaper, error) {
	data, err := s.rdb.Get(ctx, config.CacheKey.ExamPaperKey(courseID.String())).Bytes()
	if errors.Is(err, redis.Nil) {
		course, cerr := s.courseRepo.GetByID(ctx, courseID)
		if cerr != nil {
			return nil, cerr
		}
		if werr := s.WarmCourseCache(ctx, course); werr != nil {
			return nil, werr
		}
		data, err = s.rdb.Get(ctx, config.CacheKey.ExamPaperKey(courseID.String())).Bytes()
	}
	if err != nil {
		return nil, fmt.Errorf("get paper: %w", err)
	}

	var paper model.ExamPaper
	if err := json.Unmarshal(data, &paper); err != nil {
		return nil, fmt.Errorf("unmarshal paper: %w", err)
	}
	return &paper, nil
}

// GetAnswerKey retrieves the answer key hash from Redis for in-memory grading.
// Values are the correct option index as a decimal string.
func (s *CourseService) GetAnswerKey(ctx context.Context, courseID uuid.UUID) (map[string]string, error) {
	result, err := s.rdb.HGetAll(ctx, config.CacheKey.AnswerKeyKey(courseID.String())).Result()
	if err != nil {
		return nil, fmt.Errorf("get answer key: %w", err)
	}
	if len(result) == 0 {
		return nil, ErrAnswerKeyAbsent
	}
	return result, nil
}

// GetExamConfig retrieves the cached lockdown configuration for a course,
// falling back to PostgreSQL on a miss.
func (s *CourseService) GetExamConfig(ctx context.Context, courseID uuid.UUID) (map[string]string, error) {
	data, err := s.rdb.Get(ctx, config.CacheKey.ExamConfigKey(courseID.String())).Bytes()
	if errors.Is(err, redis.Nil) {
		course, cerr := s.courseRepo.GetByID(ctx, courseID)
		if cerr != nil {
			return nil, cerr
		}
		return course.ExamConfig, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get exam config: %w", err)
	}

	var cfg map[string]string
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal exam config: %w", err)
	}
	return cfg, nil
}
