package api

import (
	"context"

	"github.com/playops-hq/playops-engine/internal/models"
)

type contextKey string

const tokenContextKey contextKey = "api_token"

// TokenFromContext extracts the authenticated ApiToken from context
func TokenFromContext(ctx context.Context) *models.ApiToken {
	token, ok := ctx.Value(tokenContextKey).(*models.ApiToken)
	if !ok {
		return nil
	}
	return token
}

// ContextWithToken adds an ApiToken to context
func ContextWithToken(ctx context.Context, token *models.ApiToken) context.Context {
	return context.WithValue(ctx, tokenContextKey, token)
}
