package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/ujianku/ujianku-backend/internal/middleware"
	"github.com/ujianku/ujianku-backend/internal/model"
	"github.com/ujianku/ujianku-backend/internal/service"
	ws "github.com/ujianku/ujianku-backend/internal/websocket"
)

// tickInterval is how often the countdown is pushed to a connected client.
const tickInterval = 5 * time.Second

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

// WSHandler streams the exam countdown and accepts autosaves over one socket.
type WSHandler struct {
	submissionService *service.SubmissionService
	log               zerolog.Logger
	upgrader          websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(submissionService *service.SubmissionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		submissionService: submissionService,
		log:               log.With().Str("component", "ws_handler").Logger(),
		upgrader:          buildUpgrader(allowedOrigins),
	}
}

// ExamStream godoc
// WS /ws/v1/student/exams/:exam_id/stream
// Upgrades to WebSocket; pushes countdown ticks and accepts autosaves.
func (h *WSHandler) ExamStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exam ID"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	writer := ws.NewWriter(conn)

	// SECURITY: require an open attempt before streaming anything.
	if _, err := h.submissionService.VerifyOpenAttempt(c.Request.Context(), examID, claims.UserID, claims.SchoolID, claims.ClassName); err != nil {
		writer.WriteError("no open attempt for this exam")
		return
	}

	wsLog := h.log.With().
		Int("student_id", claims.UserID).
		Str("exam_id", examID.String()).
		Logger()

	wsLog.Info().Msg("Student connected")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.tickLoop(ctx, writer, wsLog, examID, claims)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		var envelope ws.RequestEnvelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			writer.WriteError("malformed message")
			continue
		}

		switch envelope.Action {
		case ws.ActionAutosave:
			h.handleAutosave(ctx, writer, wsLog, examID, claims, raw)
		case ws.ActionPing:
			writer.Write(ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(envelope.Action)).Msg("Unknown action")
			writer.WriteError("unknown action: " + string(envelope.Action))
		}
	}
}

// tickLoop pushes the countdown until the window closes, the attempt is
// submitted, or the client disconnects.
func (h *WSHandler) tickLoop(ctx context.Context, writer *ws.Writer, wsLog zerolog.Logger, examID uuid.UUID, claims *service.Claims) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		tr, err := h.submissionService.TimeRemaining(ctx, examID, claims.UserID, claims.SchoolID, claims.ClassName)
		if err != nil {
			wsLog.Warn().Err(err).Msg("Countdown lookup failed")
			continue
		}

		tick := ws.TickResponse{
			Event:            ws.EventTick,
			RemainingSeconds: tr.RemainingSeconds,
			AlreadySubmitted: tr.AlreadySubmitted,
		}
		if err := writer.Write(tick); err != nil {
			return
		}
		if tr.AlreadySubmitted || tr.RemainingSeconds == 0 {
			wsLog.Info().Msg("Countdown finished")
			return
		}
	}
}

// handleAutosave persists one answer through the same guarded path as the
// HTTP autosave endpoint.
func (h *WSHandler) handleAutosave(ctx context.Context, writer *ws.Writer, wsLog zerolog.Logger, examID uuid.UUID, claims *service.Claims, raw []byte) {
	var msg ws.AutosaveRequest
	if err := json.Unmarshal(raw, &msg); err != nil {
		writer.WriteError("malformed autosave message")
		return
	}
	if msg.QID == "" || len(msg.Answer) == 0 {
		writer.WriteError("q_id and ans are required")
		return
	}

	req := &model.SaveAnswerRequest{QuestionID: msg.QID, Jawaban: msg.Answer}
	if err := h.submissionService.SaveAnswer(ctx, examID, claims.UserID, claims.SchoolID, claims.ClassName, req); err != nil {
		wsLog.Warn().Err(err).Str("q_id", msg.QID).Msg("Autosave failed")
		writer.WriteError("save failed: " + err.Error())
		return
	}

	writer.Write(ws.SavedResponse{Event: ws.EventSaved, QID: msg.QID})
}
