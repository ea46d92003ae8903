package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/playops-hq/playops-engine/internal/storage"
)

// AuthMiddleware handles bearer token authentication
type AuthMiddleware struct {
	repo storage.Repository
}

// NewAuthMiddleware creates new auth middleware
func NewAuthMiddleware(repo storage.Repository) *AuthMiddleware {
	return &AuthMiddleware{repo: repo}
}

// Authenticate resolves the bearer token to a platform user.
// Supports "Bearer xxx" or a raw token in the Authorization header.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		value := extractToken(r)
		if value == "" {
			writeUnauthorized(w)
			return
		}

		token, err := m.repo.GetTokenByValue(r.Context(), value)
		if err != nil {
			slog.Error("failed to lookup api token", "error", err, "token_prefix", maskToken(value))
			writeJSONError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		if token == nil || !token.IsActive {
			slog.Warn("rejected token", "token_prefix", maskToken(value), "remote_addr", r.RemoteAddr)
			writeUnauthorized(w)
			return
		}

		// Update last_used_at asynchronously (don't block request)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := m.repo.UpdateTokenLastUsed(ctx, value); err != nil {
				slog.Error("failed to update token last_used_at", "error", err, "user", token.UserID)
			}
		}()

		slog.Debug("authenticated request", "user", token.UserID, "token_prefix", token.MaskedToken())

		ctx := ContextWithToken(r.Context(), token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractToken extracts the bearer token from the Authorization header
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return authHeader
}

// maskToken returns first 8 chars of a token for safe logging
func maskToken(token string) string {
	if len(token) < 8 {
		return "***"
	}
	return token[:8] + "..."
}

func writeUnauthorized(w http.ResponseWriter) {
	writeJSONError(w, http.StatusUnauthorized, "Unauthorized")
}

// writeJSONError writes the flat {"error": ...} shape the game runner
// embedded in exported games depends on.
func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
