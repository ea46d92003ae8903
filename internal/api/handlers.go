package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/playops-hq/playops-engine/internal/models"
	"github.com/playops-hq/playops-engine/internal/session"
)

// Response helpers

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	results := s.collabRegistry.HealthCheckAll(r.Context())

	status := map[string]string{}
	ready := true
	for name, err := range results {
		if err != nil {
			ready = false
			status[name] = err.Error()
		} else {
			status[name] = "ok"
		}
	}

	if !ready {
		respondError(w, http.StatusServiceUnavailable, "not_ready", "service not ready")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "ready",
		"collaborators": status,
	})
}

// Catalog handlers

func (s *Server) handleListDomains(w http.ResponseWriter, r *http.Request) {
	domains := s.catalogLoader.ListDomains()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"domains": domains,
		"total":   len(domains),
	})
}

func (s *Server) handleGetDomain(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	domain := s.catalogLoader.GetDomain(id)
	if domain == nil {
		respondError(w, http.StatusNotFound, "not_found", "domain not found")
		return
	}
	respondJSON(w, http.StatusOK, domain)
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if s.catalogLoader.GetDomain(id) == nil {
		respondError(w, http.StatusNotFound, "not_found", "domain not found")
		return
	}

	templates := s.catalogLoader.ListTemplates(id)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"templates": templates,
		"total":     len(templates),
	})
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "domain") + "/" + chi.URLParam(r, "name")
	template := s.catalogLoader.GetTemplate(id)
	if template == nil {
		respondError(w, http.StatusNotFound, "not_found", "template not found")
		return
	}
	respondJSON(w, http.StatusOK, template)
}

// Runtime handlers

func (s *Server) handlePublishRuntime(w http.ResponseWriter, r *http.Request) {
	token := TokenFromContext(r.Context())

	var req models.PublishRuntimeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.TemplateID == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "template_id is required")
		return
	}
	if !req.Mode.IsValid() {
		respondError(w, http.StatusBadRequest, "validation_error", "mode must be training or testing")
		return
	}

	rt, err := s.sessionManager.PublishRuntime(r.Context(), token.UserID, req)
	if err != nil {
		if errors.Is(err, session.ErrTemplateNotFound) {
			respondError(w, http.StatusNotFound, "template_not_found", "template not found")
			return
		}
		// Validation failures carry the reason to the publisher
		slog.Warn("failed to publish runtime", "error", err, "template", req.TemplateID)
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, rt)
}

func (s *Server) handleGetRuntime(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rt, err := s.sessionManager.GetRuntime(r.Context(), id)
	if err != nil {
		if errors.Is(err, session.ErrRuntimeNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "runtime not found")
			return
		}
		slog.Error("failed to get runtime", "error", err, "id", id)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to get runtime")
		return
	}

	respondJSON(w, http.StatusOK, rt)
}

// Proof and leaderboard handlers

func (s *Server) handleListProofs(w http.ResponseWriter, r *http.Request) {
	token := TokenFromContext(r.Context())

	limit, offset := 50, 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	proofs, err := s.sessionManager.ListProofs(r.Context(), token.UserID, limit, offset)
	if err != nil {
		slog.Error("failed to list proofs", "error", err, "user", token.UserID)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list proofs")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"proofs": proofs,
		"total":  len(proofs),
	})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		respondError(w, http.StatusServiceUnavailable, "unavailable", "leaderboard not configured")
		return
	}

	n := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 100 {
			n = parsed
		}
	}

	entries, err := s.cache.TopXP(r.Context(), n)
	if err != nil {
		slog.Error("failed to read leaderboard", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to read leaderboard")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"leaderboard": entries,
		"total":       len(entries),
	})
}
