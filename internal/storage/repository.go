package storage

import (
	"context"
	"time"

	"github.com/playops-hq/playops-engine/internal/models"
)

// Repository defines the interface for PlayOps persistence
type Repository interface {
	// Runtimes
	CreateRuntime(ctx context.Context, rt *models.RuntimeConfig) error
	GetRuntime(ctx context.Context, id string) (*models.RuntimeConfig, error)

	// Sessions
	CreateSession(ctx context.Context, s *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	// FinishSession applies the single finish-time update. Returns false
	// when the session was already finished (conditional write lost).
	FinishSession(ctx context.Context, s *models.Session) (bool, error)
	CountCompletedSessions(ctx context.Context, userID, runtimeID string) (int, error)
	DeleteSession(ctx context.Context, id string) error
	GetStaleSessions(ctx context.Context, startedBefore time.Time) ([]*models.Session, error)

	// Telemetry events (write-only)
	CreateSessionEvent(ctx context.Context, ev *models.SessionEvent) error

	// Proof receipts
	CreateProofReceipt(ctx context.Context, pr *models.ProofReceipt) error
	ListProofReceipts(ctx context.Context, userID string, limit, offset int) ([]*models.ProofReceipt, error)

	// API tokens
	GetTokenByValue(ctx context.Context, token string) (*models.ApiToken, error)
	UpdateTokenLastUsed(ctx context.Context, token string) error

	// Health
	Ping(ctx context.Context) error
	Close() error
}
