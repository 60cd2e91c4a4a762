package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/certvault/certvault-backend/internal/config"
	"github.com/certvault/certvault-backend/internal/database"
	"github.com/certvault/certvault-backend/internal/handler"
	"github.com/certvault/certvault-backend/internal/logger"
	"github.com/certvault/certvault-backend/internal/repository"
	"github.com/certvault/certvault-backend/internal/router"
	"github.com/certvault/certvault-backend/internal/service"
	"github.com/certvault/certvault-backend/internal/validator"
	"github.com/certvault/certvault-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting CertVault Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	candidateRepo := repository.NewCandidateRepository(pool)
	proctorRepo := repository.NewProctorRepository(pool)
	courseRepo := repository.NewCourseRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	paymentRepo := repository.NewPaymentRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)
	answerRepo := repository.NewAnswerRepository(pool)
	violationRepo := repository.NewViolationRepository(pool)
	certRepo := repository.NewCertificateRepository(pool)
	trustAuditRepo := repository.NewTrustAuditRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb)
	courseService := service.NewCourseService(courseRepo, questionRepo, rdb, log)
	scoringService := service.NewScoringService(pool, sessionRepo, attemptRepo, answerRepo, certRepo, courseRepo, courseService, log)
	violationService := service.NewViolationService(violationRepo, sessionRepo, scoringService, cfg, log)
	sessionService := service.NewSessionService(sessionRepo, attemptRepo, paymentRepo, courseService, violationService, scoringService, rdb, cfg, log)
	certService := service.NewCertificateService(certRepo, attemptRepo, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:        handler.NewAuthHandler(authService, candidateRepo, proctorRepo),
		Candidate:   handler.NewCandidateHandler(courseService, sessionService, violationService, scoringService, certService),
		Proctor:     handler.NewProctorHandler(sessionService, violationService, trustAuditRepo),
		Certificate: handler.NewCertificateHandler(certService),
		WS:          handler.NewWSHandler(rdb, sessionService, violationService, scoringService, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	trustAuditWorker := worker.NewTrustAuditWorker(pool, rdb, log)
	expiryWorker := worker.NewExpiryWorker(sessionService, cfg.ExpirySweepInterval, log)

	go trustAuditWorker.Start(workerCtx)
	go expiryWorker.Start(workerCtx)

	// ─── Prewarm Redis Caches ─────────────────────────────────────────
	// Load every eligible course into Redis BEFORE accepting traffic, so
	// exam-window thundering herds never lazy-load a cold cache.
	if err := courseService.PrewarmAllCaches(ctx); err != nil {
		log.Warn().Err(err).Msg("Cache prewarm failed")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
