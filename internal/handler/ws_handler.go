package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/certvault/certvault-backend/internal/config"
	"github.com/certvault/certvault-backend/internal/middleware"
	"github.com/certvault/certvault-backend/internal/model"
	"github.com/certvault/certvault-backend/internal/service"
	ws "github.com/certvault/certvault-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams the exam session: answers, heartbeats, and violations
// over one connection instead of per-event HTTP requests.
type WSHandler struct {
	rdb              *redis.Client
	sessionService   *service.SessionService
	violationService *service.ViolationService
	scoringService   *service.ScoringService
	log              zerolog.Logger
	upgrader         websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(
	rdb *redis.Client,
	sessionService *service.SessionService,
	violationService *service.ViolationService,
	scoringService *service.ScoringService,
	log zerolog.Logger,
	allowedOrigins []string,
) *WSHandler {
	return &WSHandler{
		rdb:              rdb,
		sessionService:   sessionService,
		violationService: violationService,
		scoringService:   scoringService,
		log:              log.With().Str("component", "ws_handler").Logger(),
		upgrader:         buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/candidate/sessions/:session_id/stream
// Upgrades to WebSocket for real-time answering and violation reporting.
func (h *WSHandler) SessionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session ID"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	candidateID := claims.UserID

	// Ownership and liveness before anything streams.
	session, err := h.sessionService.GetOwned(c.Request.Context(), sessionID, candidateID)
	if err != nil || session.Status != model.SessionStatusInProgress {
		ws.WriteError(conn, "no active session")
		return
	}

	wsLog := h.log.With().
		Int("candidate_id", candidateID).
		Str("session_id", sessionID.String()).
		Logger()

	wsLog.Info().Msg("Candidate connected")

	for {
		var msg ws.Request
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		switch msg.Action {
		case ws.ActionAnswer:
			h.handleAnswer(conn, wsLog, sessionID, candidateID, &msg)
		case ws.ActionViolation:
			h.handleViolation(conn, wsLog, sessionID, candidateID, &msg)
		case ws.ActionHeartbeat:
			h.handleHeartbeat(conn, sessionID, candidateID)
		case ws.ActionSubmit:
			h.handleSubmit(conn, wsLog, sessionID, candidateID)
			return
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			ws.WriteError(conn, "unknown action: "+string(msg.Action))
		}
	}
}

// loadActive re-checks ownership and liveness per message. The lazy expiry
// check rides along, so an overdue session dies on its next message.
func (h *WSHandler) loadActive(conn *websocket.Conn, sessionID uuid.UUID, candidateID int) *model.ExamSession {
	session, err := h.sessionService.GetOwned(context.Background(), sessionID, candidateID)
	if err != nil {
		ws.WriteError(conn, "session unavailable")
		return nil
	}
	if session.Status != model.SessionStatusInProgress {
		reason := ""
		if session.TerminationReason != nil {
			reason = string(*session.TerminationReason)
		}
		ws.WriteTyped(conn, ws.TerminatedResponse{Event: ws.EventTerminated, Reason: reason})
		return nil
	}
	return session
}

func (h *WSHandler) handleAnswer(conn *websocket.Conn, wsLog zerolog.Logger, sessionID uuid.UUID, candidateID int, msg *ws.Request) {
	session := h.loadActive(conn, sessionID, candidateID)
	if session == nil {
		return
	}

	questionID, err := uuid.Parse(msg.QuestionID)
	if err != nil {
		ws.WriteError(conn, "invalid question_id format")
		return
	}

	req := &model.SubmitAnswerRequest{
		QuestionID:       questionID,
		SelectedAnswer:   msg.SelectedAnswer,
		TimeSpentSeconds: msg.TimeSpentSeconds,
	}
	if err := h.scoringService.SubmitAnswer(context.Background(), session, req); err != nil {
		wsLog.Error().Err(err).Msg("Answer save failed")
		ws.WriteError(conn, "save failed")
		return
	}

	ws.WriteTyped(conn, ws.SavedResponse{Event: ws.EventSaved})
}

func (h *WSHandler) handleViolation(conn *websocket.Conn, wsLog zerolog.Logger, sessionID uuid.UUID, candidateID int, msg *ws.Request) {
	session := h.loadActive(conn, sessionID, candidateID)
	if session == nil {
		return
	}
	if msg.Type == "" {
		ws.WriteError(conn, "type is required")
		return
	}

	outcome, err := h.violationService.Record(context.Background(), sessionID, model.ViolationType(msg.Type), msg.Detail)
	if err != nil {
		wsLog.Error().Err(err).Msg("Violation record failed")
		ws.WriteError(conn, "record failed")
		return
	}

	if outcome.Terminated {
		ws.WriteTyped(conn, ws.TerminatedResponse{
			Event:  ws.EventTerminated,
			Reason: string(outcome.Reason),
		})
		return
	}
	ws.WriteTyped(conn, ws.ViolationResponse{
		Event:          ws.EventViolation,
		ViolationsLeft: outcome.QualifyingLeft,
	})
}

func (h *WSHandler) handleHeartbeat(conn *websocket.Conn, sessionID uuid.UUID, candidateID int) {
	ctx := context.Background()

	state, err := h.sessionService.GetState(ctx, sessionID, candidateID)
	if err != nil {
		ws.WriteError(conn, "session unavailable")
		return
	}

	if err := h.rdb.Set(ctx, config.CacheKey.SessionHeartbeatKey(sessionID.String()), time.Now().Unix(), 10*time.Minute).Err(); err != nil {
		h.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Failed to record heartbeat")
	}

	if state.Status == model.SessionStatusTerminated {
		ws.WriteTyped(conn, ws.TerminatedResponse{Event: ws.EventTerminated})
		return
	}
	ws.WriteTyped(conn, ws.PongResponse{
		Event:         ws.EventPong,
		Status:        string(state.Status),
		TimeRemaining: state.TimeRemaining,
	})
}

func (h *WSHandler) handleSubmit(conn *websocket.Conn, wsLog zerolog.Logger, sessionID uuid.UUID, candidateID int) {
	session := h.loadActive(conn, sessionID, candidateID)
	if session == nil {
		return
	}

	result, err := h.scoringService.CompleteExam(context.Background(), sessionID)
	if err != nil {
		wsLog.Error().Err(err).Msg("Completion failed")
		ws.WriteError(conn, "completion failed")
		return
	}

	wsLog.Info().
		Float64("score", result.Score).
		Bool("passed", result.Passed).
		Msg("Exam submitted and graded")

	ws.WriteTyped(conn, ws.CompletedResponse{
		Event:             ws.EventCompleted,
		SessionID:         result.SessionID,
		Score:             result.Score,
		Passed:            result.Passed,
		Grade:             result.Grade,
		CertificateNumber: result.CertificateNumber,
	})
}
