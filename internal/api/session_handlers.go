package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/playops-hq/playops-engine/internal/ai"
	"github.com/playops-hq/playops-engine/internal/compliance"
	"github.com/playops-hq/playops-engine/internal/matching"
	"github.com/playops-hq/playops-engine/internal/models"
	"github.com/playops-hq/playops-engine/internal/session"
)

// writeFlatJSON writes a raw payload without the envelope. The endpoints
// consumed by the runner embedded in exported game files expect flat
// shapes, unlike the dashboard-facing routes.
func writeFlatJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// handleSessionManager dispatches the runner's three actions:
// start, event, finish.
func (s *Server) handleSessionManager(w http.ResponseWriter, r *http.Request) {
	token := TokenFromContext(r.Context())

	var req models.SessionManagerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	switch req.Action {
	case "start":
		s.handleActionStart(w, r, token.UserID, req)
	case "event":
		s.handleActionEvent(w, r, token.UserID, req)
	case "finish":
		s.handleActionFinish(w, r, token.UserID, req)
	default:
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("unknown action: %q", req.Action))
	}
}

func (s *Server) handleActionStart(w http.ResponseWriter, r *http.Request, userID string, req models.SessionManagerRequest) {
	if req.RuntimeID == "" {
		writeJSONError(w, http.StatusBadRequest, "runtime_id is required")
		return
	}

	sess, rt, err := s.sessionManager.Start(r.Context(), userID, req.RuntimeID)
	if err != nil {
		if errors.Is(err, session.ErrRuntimeNotFound) {
			writeJSONError(w, http.StatusNotFound, "runtime not found")
			return
		}
		slog.Error("failed to start session", "error", err, "runtime", req.RuntimeID)
		writeJSONError(w, http.StatusInternalServerError, "failed to start session")
		return
	}

	writeFlatJSON(w, http.StatusCreated, models.StartResponse{
		Session: sess,
		Runtime: rt,
	})
}

func (s *Server) handleActionEvent(w http.ResponseWriter, r *http.Request, userID string, req models.SessionManagerRequest) {
	if req.SessionID == "" {
		writeJSONError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	if req.EventType == "" {
		writeJSONError(w, http.StatusBadRequest, "event_type is required")
		return
	}

	err := s.sessionManager.RecordEvent(r.Context(), userID, req.SessionID, req.EventType, req.Payload)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeJSONError(w, http.StatusNotFound, "session not found")
			return
		}
		slog.Error("failed to record event", "error", err, "session", req.SessionID)
		writeJSONError(w, http.StatusInternalServerError, "failed to record event")
		return
	}

	writeFlatJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleActionFinish(w http.ResponseWriter, r *http.Request, userID string, req models.SessionManagerRequest) {
	if req.SessionID == "" {
		writeJSONError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	result, err := s.sessionManager.Finish(r.Context(), userID, req.SessionID, models.FinishInput{
		Accuracy:  req.Accuracy,
		TimeS:     req.TimeS,
		EdgeScore: req.EdgeScore,
		Metrics:   req.Metrics,
	})
	if err != nil {
		switch {
		case errors.Is(err, session.ErrSessionNotFound):
			writeJSONError(w, http.StatusNotFound, "session not found")
		case errors.Is(err, session.ErrRuntimeNotFound):
			writeJSONError(w, http.StatusNotFound, "runtime not found")
		case errors.Is(err, session.ErrAlreadyFinished):
			writeJSONError(w, http.StatusConflict, "session already finished")
		default:
			slog.Error("failed to finish session", "error", err, "session", req.SessionID)
			writeJSONError(w, http.StatusInternalServerError, "failed to finish session")
		}
		return
	}

	writeFlatJSON(w, http.StatusOK, models.FinishResponse{
		Success: true,
		Level:   result.Level,
		Passed:  result.Passed,
		XP:      result.XP,
		Proof:   result.Proof,
		Mode:    result.Mode,
	})
}

// handleValidateAnswers grades free-text answers against accepted references
func (s *Server) handleValidateAnswers(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Questions []matching.Question `json:"questions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Questions) == 0 {
		writeJSONError(w, http.StatusBadRequest, "questions are required")
		return
	}

	writeFlatJSON(w, http.StatusOK, matching.Grade(req.Questions))
}

// handleComplianceCheck runs the static checker over submitted markup
func (s *Server) handleComplianceCheck(w http.ResponseWriter, r *http.Request) {
	var req struct {
		HTML string `json:"html"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	respondJSON(w, http.StatusOK, compliance.Check(req.HTML))
}

// generateRequest asks the AI collaborator for game markup
type generateRequest struct {
	Prompt string `json:"prompt"`
	System string `json:"system,omitempty"`
}

// handleGenerate proxies to the generation API, compliance-checks the
// result and stores valid markup to blob storage.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if s.aiClient == nil {
		respondError(w, http.StatusServiceUnavailable, "unavailable", "generation not configured")
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "prompt is required")
		return
	}

	markup, err := s.aiClient.Generate(r.Context(), req.Prompt, req.System)
	if err != nil {
		switch {
		case errors.Is(err, ai.ErrRateLimited):
			respondError(w, http.StatusTooManyRequests, "rate_limited", "generation rate limit exceeded")
		case errors.Is(err, ai.ErrQuotaExceeded):
			respondError(w, http.StatusPaymentRequired, "quota_exceeded", "generation quota exceeded")
		default:
			slog.Error("generation failed", "error", err)
			respondError(w, http.StatusBadGateway, "upstream_error", "generation failed")
		}
		return
	}

	report := compliance.Check(markup)

	var blobKey string
	if report.IsValid && s.blobClient != nil {
		blobKey = "games/" + uuid.New().String() + ".html"
		if err := s.blobClient.Put(r.Context(), blobKey, []byte(markup), "text/html"); err != nil {
			slog.Error("failed to store generated markup", "error", err, "key", blobKey)
			blobKey = ""
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"html":       markup,
		"compliance": report,
		"blob_key":   blobKey,
	})
}
