package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/certvault/certvault-backend/internal/config"
	"github.com/certvault/certvault-backend/internal/handler"
	"github.com/certvault/certvault-backend/internal/middleware"
	"github.com/certvault/certvault-backend/internal/response"
	"github.com/certvault/certvault-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth        *handler.AuthHandler
	Candidate   *handler.CandidateHandler
	Proctor     *handler.ProctorHandler
	Certificate *handler.CertificateHandler
	WS          *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for the unauthenticated surfaces (30 requests/min per IP).
	publicLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 0. Public Group (No Auth, Rate Limited) ───────────────────────
	publicAPI := router.Group("/api/v1/public")
	publicAPI.Use(publicLimiter.Middleware())
	{
		publicAPI.GET("/certificates/verify", handlers.Certificate.Verify)
	}

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(publicLimiter.Middleware())
	{
		auth.POST("/candidate/login", handlers.Auth.CandidateLogin)
		auth.POST("/proctor/login", handlers.Auth.ProctorLogin)

		// Authenticated profile routes
		auth.POST("/candidate/logout", middleware.RequireCandidateJWT(authService), handlers.Auth.CandidateLogout)
		auth.GET("/candidate/me", middleware.RequireCandidateJWT(authService), handlers.Auth.GetCandidateProfile)
	}

	// ─── 2. Candidate Group (JWT + Single Device) ──────────────────────
	candidateAPI := router.Group("/api/v1/candidate")
	candidateAPI.Use(
		middleware.RequireCandidateJWT(authService),
		middleware.CheckSingleDeviceLogin(authService),
	)
	{
		candidateAPI.GET("/lobby", handlers.Candidate.GetLobby)
		candidateAPI.POST("/courses/:course_id/sessions", handlers.Candidate.CreateSession)

		candidateAPI.POST("/sessions/:session_id/admit", handlers.Candidate.AdmitSession)
		candidateAPI.GET("/sessions/:session_id/paper", handlers.Candidate.GetExamPaper)
		candidateAPI.GET("/sessions/:session_id/state", handlers.Candidate.GetSessionState)
		candidateAPI.POST("/sessions/:session_id/revalidate", handlers.Candidate.Revalidate)
		candidateAPI.POST("/sessions/:session_id/violations", handlers.Candidate.ReportViolation)
		candidateAPI.POST("/sessions/:session_id/answers", handlers.Candidate.SubmitAnswer)
		candidateAPI.POST("/sessions/:session_id/complete", handlers.Candidate.CompleteExam)
		candidateAPI.GET("/sessions/:session_id/result", handlers.Candidate.GetResult)
		candidateAPI.GET("/sessions/:session_id/certificate", handlers.Candidate.GetCertificate)
	}

	// ─── 3. WebSocket Group (Candidate WS Auth) ────────────────────────
	wsGroup := router.Group("/ws/v1")
	wsGroup.Use(middleware.RequireCandidateWSAuth(authService))
	{
		wsGroup.GET("/candidate/sessions/:session_id/stream", handlers.WS.SessionStream)
	}

	// ─── 4. Proctor Group (JWT) ────────────────────────────────────────
	proctorAPI := router.Group("/api/v1/proctor")
	proctorAPI.Use(middleware.RequireProctorJWT(authService))
	{
		proctorAPI.GET("/courses/:course_id/sessions", handlers.Proctor.ListSessions)
		proctorAPI.GET("/sessions/:session_id", handlers.Proctor.GetSession)
		proctorAPI.GET("/sessions/:session_id/violations", handlers.Proctor.ListViolations)
		proctorAPI.POST("/sessions/:session_id/terminate", handlers.Proctor.TerminateSession)
	}

	return router
}
