// Package session implements the authoritative state transition for one
// player attempt against one published runtime configuration.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/playops-hq/playops-engine/internal/cache"
	"github.com/playops-hq/playops-engine/internal/catalog"
	"github.com/playops-hq/playops-engine/internal/models"
	"github.com/playops-hq/playops-engine/internal/scoring"
	"github.com/playops-hq/playops-engine/internal/storage"
)

// Common errors
var (
	ErrRuntimeNotFound  = errors.New("runtime not found")
	ErrSessionNotFound  = errors.New("session not found")
	ErrTemplateNotFound = errors.New("template not found")
	ErrAlreadyFinished  = errors.New("session already finished")
)

// Manager defines the interface for session lifecycle management
type Manager interface {
	PublishRuntime(ctx context.Context, userID string, req models.PublishRuntimeRequest) (*models.RuntimeConfig, error)
	GetRuntime(ctx context.Context, id string) (*models.RuntimeConfig, error)
	Start(ctx context.Context, userID, runtimeID string) (*models.Session, *models.RuntimeConfig, error)
	RecordEvent(ctx context.Context, userID, sessionID, eventType string, payload json.RawMessage) error
	Finish(ctx context.Context, userID, sessionID string, in models.FinishInput) (*models.FinishResult, error)
	GetSession(ctx context.Context, userID, sessionID string) (*models.Session, error)
	ListProofs(ctx context.Context, userID string, limit, offset int) ([]*models.ProofReceipt, error)
	GetStale(ctx context.Context, startedBefore time.Time) ([]*models.Session, error)
	Delete(ctx context.Context, sessionID string) error
	Ping(ctx context.Context) error
}

// StoreManager implements Manager on the repository, with a redis cache
// for runtime reads and leaderboard writes. The cache may be nil; every
// cache interaction is best-effort.
type StoreManager struct {
	repo    storage.Repository
	catalog *catalog.Loader
	cache   *cache.Cache
}

// NewManager creates a new StoreManager
func NewManager(repo storage.Repository, loader *catalog.Loader, c *cache.Cache) *StoreManager {
	return &StoreManager{
		repo:    repo,
		catalog: loader,
		cache:   c,
	}
}

// Ping checks that the authoritative store is reachable
func (m *StoreManager) Ping(ctx context.Context) error {
	return m.repo.Ping(ctx)
}

// PublishRuntime creates an immutable runtime config from a catalog
// template, a mode and optional overrides.
func (m *StoreManager) PublishRuntime(ctx context.Context, userID string, req models.PublishRuntimeRequest) (*models.RuntimeConfig, error) {
	tmpl := m.catalog.GetTemplate(req.TemplateID)
	if tmpl == nil {
		return nil, ErrTemplateNotFound
	}

	defaults := tmpl.Defaults
	if req.Mode == models.ModeTesting && tmpl.Testing != nil {
		defaults = *tmpl.Testing
	}

	rt := &models.RuntimeConfig{
		ID:                uuid.New().String(),
		TemplateID:        tmpl.ID,
		SubCompetency:     req.SubCompetency,
		Mode:              req.Mode,
		TimeLimitS:        defaults.TimeLimitS,
		AccuracyThreshold: defaults.AccuracyThreshold,
		EdgeThreshold:     defaults.EdgeThreshold,
		SessionsRequired:  defaults.SessionsRequired,
		Randomize:         true,
		ProofLog:          true,
		Seed:              req.Seed,
		PublishedBy:       userID,
		CreatedAt:         time.Now().UTC(),
	}

	if rt.SubCompetency == "" && len(tmpl.SubCompetencies) > 0 {
		rt.SubCompetency = tmpl.SubCompetencies[0]
	}
	if req.TimeLimitS > 0 {
		rt.TimeLimitS = req.TimeLimitS
	}
	if req.AccuracyThreshold > 0 {
		rt.AccuracyThreshold = req.AccuracyThreshold
	}
	if req.EdgeThreshold > 0 {
		rt.EdgeThreshold = req.EdgeThreshold
	}
	if req.SessionsRequired > 0 {
		rt.SessionsRequired = req.SessionsRequired
	}
	if req.Randomize != nil {
		rt.Randomize = *req.Randomize
	}
	if req.ProofLog != nil {
		rt.ProofLog = *req.ProofLog
	}

	if err := rt.Validate(); err != nil {
		return nil, fmt.Errorf("invalid runtime config: %w", err)
	}

	if err := m.repo.CreateRuntime(ctx, rt); err != nil {
		return nil, fmt.Errorf("failed to persist runtime: %w", err)
	}

	m.cacheRuntime(ctx, rt)

	slog.Info("runtime published",
		"runtime_id", rt.ID,
		"template_id", rt.TemplateID,
		"mode", rt.Mode,
		"published_by", userID,
	)
	return rt, nil
}

// GetRuntime resolves a runtime config, reading through the cache
func (m *StoreManager) GetRuntime(ctx context.Context, id string) (*models.RuntimeConfig, error) {
	if m.cache != nil {
		rt, err := m.cache.GetRuntime(ctx, id)
		if err != nil {
			slog.Warn("runtime cache read failed", "runtime_id", id, "error", err)
		} else if rt != nil {
			return rt, nil
		}
	}

	rt, err := m.repo.GetRuntime(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get runtime: %w", err)
	}
	if rt == nil {
		return nil, ErrRuntimeNotFound
	}

	m.cacheRuntime(ctx, rt)
	return rt, nil
}

func (m *StoreManager) cacheRuntime(ctx context.Context, rt *models.RuntimeConfig) {
	if m.cache == nil {
		return
	}
	if err := m.cache.SetRuntime(ctx, rt); err != nil {
		slog.Warn("runtime cache write failed", "runtime_id", rt.ID, "error", err)
	}
}

// Start opens a new session against a runtime
func (m *StoreManager) Start(ctx context.Context, userID, runtimeID string) (*models.Session, *models.RuntimeConfig, error) {
	rt, err := m.GetRuntime(ctx, runtimeID)
	if err != nil {
		return nil, nil, err
	}

	s := &models.Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		RuntimeID: rt.ID,
		Mode:      rt.Mode,
		StartedAt: time.Now().UTC(),
		Level:     scoring.LevelNeedsWork,
	}

	if err := m.repo.CreateSession(ctx, s); err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("session started",
		"session_id", s.ID,
		"runtime_id", rt.ID,
		"user_id", userID,
		"mode", rt.Mode,
	)
	return s, rt, nil
}

// GetSession returns a session owned by the caller
func (m *StoreManager) GetSession(ctx context.Context, userID, sessionID string) (*models.Session, error) {
	s, err := m.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	// Ownership failures are reported as absence
	if s == nil || s.UserID != userID {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// RecordEvent appends one telemetry event to a session the caller owns
func (m *StoreManager) RecordEvent(ctx context.Context, userID, sessionID, eventType string, payload json.RawMessage) error {
	s, err := m.GetSession(ctx, userID, sessionID)
	if err != nil {
		return err
	}

	ev := &models.SessionEvent{
		SessionID: s.ID,
		EventType: eventType,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}

	if err := m.repo.CreateSessionEvent(ctx, ev); err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	return nil
}

// Finish is the single decision point for one attempt. Phase 1 (the
// session update) must succeed; phase 2 (proof receipt + leaderboard) is
// best-effort and never fails the operation.
func (m *StoreManager) Finish(ctx context.Context, userID, sessionID string, in models.FinishInput) (*models.FinishResult, error) {
	s, err := m.GetSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if s.IsFinished() {
		return nil, ErrAlreadyFinished
	}

	rt, err := m.GetRuntime(ctx, s.RuntimeID)
	if err != nil {
		return nil, err
	}

	completed, err := m.repo.CountCompletedSessions(ctx, userID, rt.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count completed sessions: %w", err)
	}
	totalSessions := completed + 1 // current attempt counts

	outcome := scoring.Classify(rt, in.Accuracy, in.TimeS, in.EdgeScore, totalSessions)

	now := time.Now().UTC()
	s.FinishedAt = &now
	s.Accuracy = in.Accuracy
	s.TimeS = in.TimeS
	s.EdgeScore = in.EdgeScore
	s.Level = outcome.Level
	s.Passed = outcome.Passed
	s.Metrics = in.Metrics

	// Phase 1: the one durable write
	updated, err := m.repo.FinishSession(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("failed to finish session: %w", err)
	}
	if !updated {
		// Lost a concurrent finish race; the other submission won
		return nil, ErrAlreadyFinished
	}

	result := &models.FinishResult{
		Level:  outcome.Level,
		Passed: outcome.Passed,
		Mode:   rt.Mode,
	}

	// Phase 2: proof issuance, testing mode only
	if rt.Mode == models.ModeTesting && outcome.Passed {
		result.XP = scoring.MarketplaceXP(outcome.Level)
		if rt.ProofLog {
			result.Proof = m.issueProof(ctx, s, rt, result.XP)
		}
		m.awardLeaderboardXP(ctx, userID, result.XP)
	}

	slog.Info("session finished",
		"session_id", s.ID,
		"user_id", userID,
		"level", outcome.Level,
		"passed", outcome.Passed,
		"total_sessions", totalSessions,
	)
	return result, nil
}

// issueProof inserts the proof receipt. Failures are logged and swallowed:
// the session result is already durable and must not be rolled back.
func (m *StoreManager) issueProof(ctx context.Context, s *models.Session, rt *models.RuntimeConfig, xp int) *models.ProofReceipt {
	receiptID, err := models.GenerateReceiptID()
	if err != nil {
		slog.Error("failed to generate receipt id", "session_id", s.ID, "error", err)
		return nil
	}

	proof := &models.ProofReceipt{
		ReceiptID:     receiptID,
		UserID:        s.UserID,
		SessionID:     s.ID,
		TemplateID:    rt.TemplateID,
		SubCompetency: rt.SubCompetency,
		Level:         s.Level,
		Metrics:       s.Metrics,
		XPAwarded:     xp,
		Timestamp:     time.Now().UTC(),
	}

	// Denormalized display fields from the catalog, when available
	if tmpl := m.catalog.GetTemplate(rt.TemplateID); tmpl != nil {
		proof.TemplateName = tmpl.Name
	}

	if err := m.repo.CreateProofReceipt(ctx, proof); err != nil {
		slog.Error("failed to create proof receipt",
			"session_id", s.ID,
			"receipt_id", receiptID,
			"error", err,
		)
		return nil
	}

	slog.Info("proof receipt issued",
		"receipt_id", receiptID,
		"session_id", s.ID,
		"level", proof.Level,
		"xp", xp,
	)
	return proof
}

// awardLeaderboardXP increments the redis leaderboard, best-effort
func (m *StoreManager) awardLeaderboardXP(ctx context.Context, userID string, xp int) {
	if m.cache == nil || xp == 0 {
		return
	}
	if err := m.cache.AddXP(ctx, userID, xp); err != nil {
		slog.Warn("failed to update leaderboard", "user_id", userID, "error", err)
	}
}

// ListProofs returns the caller's proof receipts
func (m *StoreManager) ListProofs(ctx context.Context, userID string, limit, offset int) ([]*models.ProofReceipt, error) {
	if limit <= 0 {
		limit = 50
	}
	return m.repo.ListProofReceipts(ctx, userID, limit, offset)
}

// GetStale returns open sessions started before the cutoff
func (m *StoreManager) GetStale(ctx context.Context, startedBefore time.Time) ([]*models.Session, error) {
	return m.repo.GetStaleSessions(ctx, startedBefore)
}

// Delete removes a session (operational tooling path, not player-facing)
func (m *StoreManager) Delete(ctx context.Context, sessionID string) error {
	return m.repo.DeleteSession(ctx, sessionID)
}
