package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/playops-hq/playops-engine/internal/models"
	"github.com/playops-hq/playops-engine/internal/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// EventMessage is one telemetry frame sent by the game runner
type EventMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// EventAck is the per-frame acknowledgement sent back to the runner
type EventAck struct {
	Type  string `json:"type"`
	Error string `json:"error,omitempty"`
}

// handleSessionEventsWS streams telemetry into a training-mode session.
// Each frame is appended as one session event. Testing-mode sessions keep
// the buffered HTTP path so the finish payload stays the single record.
func (s *Server) handleSessionEventsWS(w http.ResponseWriter, r *http.Request) {
	token := TokenFromContext(r.Context())
	sessionID := chi.URLParam(r, "id")

	sess, err := s.sessionManager.GetSession(r.Context(), token.UserID, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeJSONError(w, http.StatusNotFound, "session not found")
			return
		}
		slog.Error("failed to get session", "error", err, "id", sessionID)
		writeJSONError(w, http.StatusInternalServerError, "failed to get session")
		return
	}

	if sess.Mode != models.ModeTraining {
		writeJSONError(w, http.StatusBadRequest, "live telemetry is available for training sessions only")
		return
	}
	if sess.IsFinished() {
		writeJSONError(w, http.StatusConflict, "session already finished")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	// The request context carries the router's timeout and expires while
	// the socket is still open. Event writes use a context tied to the
	// connection lifetime instead.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slog.Info("telemetry websocket connected", "session_id", sessionID, "user", token.UserID)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("websocket read error", "error", err)
			}
			break
		}

		var msg EventMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			s.sendEventAck(conn, EventAck{Type: "error", Error: "invalid message format"})
			continue
		}
		if msg.Type == "" {
			s.sendEventAck(conn, EventAck{Type: "error", Error: "type is required"})
			continue
		}

		if err := s.sessionManager.RecordEvent(ctx, token.UserID, sessionID, msg.Type, msg.Payload); err != nil {
			slog.Error("failed to record telemetry event", "error", err, "session_id", sessionID)
			s.sendEventAck(conn, EventAck{Type: "error", Error: "failed to record event"})
			continue
		}

		s.sendEventAck(conn, EventAck{Type: "ack"})
	}

	slog.Info("telemetry websocket disconnected", "session_id", sessionID)
}

func (s *Server) sendEventAck(conn *websocket.Conn, ack EventAck) {
	data, err := json.Marshal(ack)
	if err != nil {
		slog.Error("failed to marshal event ack", "error", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Debug("failed to send event ack", "error", err)
	}
}
