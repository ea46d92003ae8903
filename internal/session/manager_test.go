package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/playops-hq/playops-engine/internal/catalog"
	"github.com/playops-hq/playops-engine/internal/models"
	"github.com/playops-hq/playops-engine/internal/scoring"
	"github.com/playops-hq/playops-engine/internal/storage"
)

// fakeRepo is an in-memory Repository for manager tests
type fakeRepo struct {
	mu        sync.Mutex
	runtimes  map[string]*models.RuntimeConfig
	sessions  map[string]*models.Session
	events    []*models.SessionEvent
	proofs    []*models.ProofReceipt
	failProof bool
}

var _ storage.Repository = (*fakeRepo)(nil)

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		runtimes: make(map[string]*models.RuntimeConfig),
		sessions: make(map[string]*models.Session),
	}
}

func (f *fakeRepo) CreateRuntime(_ context.Context, rt *models.RuntimeConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runtimes[rt.ID] = rt
	return nil
}

func (f *fakeRepo) GetRuntime(_ context.Context, id string) (*models.RuntimeConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runtimes[id], nil
}

func (f *fakeRepo) CreateSession(_ context.Context, s *models.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	f.sessions[s.ID] = &cp
	return nil
}

func (f *fakeRepo) GetSession(_ context.Context, id string) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (f *fakeRepo) FinishSession(_ context.Context, s *models.Session) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.sessions[s.ID]
	if !ok || stored.FinishedAt != nil {
		return false, nil
	}
	cp := *s
	f.sessions[s.ID] = &cp
	return true, nil
}

func (f *fakeRepo) CountCompletedSessions(_ context.Context, userID, runtimeID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.sessions {
		if s.UserID == userID && s.RuntimeID == runtimeID && s.FinishedAt != nil {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) DeleteSession(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, id)
	return nil
}

func (f *fakeRepo) GetStaleSessions(_ context.Context, startedBefore time.Time) ([]*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Session
	for _, s := range f.sessions {
		if s.FinishedAt == nil && s.StartedAt.Before(startedBefore) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeRepo) CreateSessionEvent(_ context.Context, ev *models.SessionEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeRepo) CreateProofReceipt(_ context.Context, pr *models.ProofReceipt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failProof {
		return errors.New("proof store unavailable")
	}
	f.proofs = append(f.proofs, pr)
	return nil
}

func (f *fakeRepo) ListProofReceipts(_ context.Context, userID string, limit, offset int) ([]*models.ProofReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.ProofReceipt
	for _, p := range f.proofs {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRepo) GetTokenByValue(_ context.Context, _ string) (*models.ApiToken, error) {
	return nil, nil
}

func (f *fakeRepo) UpdateTokenLastUsed(_ context.Context, _ string) error { return nil }
func (f *fakeRepo) Ping(_ context.Context) error                          { return nil }
func (f *fakeRepo) Close() error                                          { return nil }

func testLoader() *catalog.Loader {
	l := catalog.NewLoader()
	l.Add(&models.GameTemplate{
		ID:              "sales/objection-handling",
		DomainID:        "sales",
		Name:            "Objection Dojo",
		Competency:      "objection-handling",
		SubCompetencies: []string{"price-objections"},
		Defaults: models.ModeDefaults{
			TimeLimitS:        90,
			AccuracyThreshold: 0.9,
			EdgeThreshold:     0.8,
			SessionsRequired:  1,
		},
		Testing: &models.ModeDefaults{
			TimeLimitS:        90,
			AccuracyThreshold: 0.92,
			EdgeThreshold:     0.85,
			SessionsRequired:  3,
		},
	})
	return l
}

func newTestManager(repo *fakeRepo) *StoreManager {
	return NewManager(repo, testLoader(), nil)
}

func publishTestRuntime(t *testing.T, m *StoreManager, mode models.GameMode) *models.RuntimeConfig {
	t.Helper()
	rt, err := m.PublishRuntime(context.Background(), "brand-1", models.PublishRuntimeRequest{
		TemplateID:       "sales/objection-handling",
		Mode:             mode,
		SessionsRequired: 1,
	})
	if err != nil {
		t.Fatalf("PublishRuntime failed: %v", err)
	}
	return rt
}

func TestPublishRuntime(t *testing.T) {
	m := newTestManager(newFakeRepo())
	ctx := context.Background()

	rt, err := m.PublishRuntime(ctx, "brand-1", models.PublishRuntimeRequest{
		TemplateID: "sales/objection-handling",
		Mode:       models.ModeTraining,
	})
	if err != nil {
		t.Fatalf("PublishRuntime failed: %v", err)
	}
	if rt.ID == "" {
		t.Error("expected generated runtime id")
	}
	if rt.SubCompetency != "price-objections" {
		t.Errorf("expected first sub-competency as default, got %q", rt.SubCompetency)
	}
	if rt.AccuracyThreshold != 0.9 {
		t.Errorf("expected training defaults, got accuracy threshold %v", rt.AccuracyThreshold)
	}

	got, err := m.GetRuntime(ctx, rt.ID)
	if err != nil {
		t.Fatalf("GetRuntime failed: %v", err)
	}
	if got.ID != rt.ID {
		t.Errorf("GetRuntime returned %q, want %q", got.ID, rt.ID)
	}
}

func TestPublishRuntimeTestingDefaults(t *testing.T) {
	m := newTestManager(newFakeRepo())

	rt, err := m.PublishRuntime(context.Background(), "brand-1", models.PublishRuntimeRequest{
		TemplateID: "sales/objection-handling",
		Mode:       models.ModeTesting,
	})
	if err != nil {
		t.Fatalf("PublishRuntime failed: %v", err)
	}
	if rt.AccuracyThreshold != 0.92 {
		t.Errorf("expected testing accuracy threshold 0.92, got %v", rt.AccuracyThreshold)
	}
	if rt.SessionsRequired != 3 {
		t.Errorf("expected testing sessions_required 3, got %d", rt.SessionsRequired)
	}
}

func TestPublishRuntimeUnknownTemplate(t *testing.T) {
	m := newTestManager(newFakeRepo())

	_, err := m.PublishRuntime(context.Background(), "brand-1", models.PublishRuntimeRequest{
		TemplateID: "sales/does-not-exist",
		Mode:       models.ModeTraining,
	})
	if !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("expected ErrTemplateNotFound, got %v", err)
	}
}

func TestStartUnknownRuntime(t *testing.T) {
	m := newTestManager(newFakeRepo())

	_, _, err := m.Start(context.Background(), "user-1", "nope")
	if !errors.Is(err, ErrRuntimeNotFound) {
		t.Errorf("expected ErrRuntimeNotFound, got %v", err)
	}
}

func TestStartAndRecordEvent(t *testing.T) {
	repo := newFakeRepo()
	m := newTestManager(repo)
	ctx := context.Background()

	rt := publishTestRuntime(t, m, models.ModeTraining)
	s, gotRT, err := m.Start(ctx, "user-1", rt.ID)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if gotRT.ID != rt.ID {
		t.Errorf("Start returned runtime %q, want %q", gotRT.ID, rt.ID)
	}
	if s.IsFinished() {
		t.Error("new session must be open")
	}

	if err := m.RecordEvent(ctx, "user-1", s.ID, "choice", []byte(`{"option":2}`)); err != nil {
		t.Fatalf("RecordEvent failed: %v", err)
	}
	if len(repo.events) != 1 {
		t.Fatalf("expected 1 stored event, got %d", len(repo.events))
	}
	if repo.events[0].EventType != "choice" {
		t.Errorf("event type = %q, want choice", repo.events[0].EventType)
	}

	// Another user must not see this session
	if err := m.RecordEvent(ctx, "user-2", s.ID, "choice", nil); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound for foreign session, got %v", err)
	}
}

func TestFinishTrainingNoProof(t *testing.T) {
	repo := newFakeRepo()
	m := newTestManager(repo)
	ctx := context.Background()

	rt := publishTestRuntime(t, m, models.ModeTraining)
	s, _, err := m.Start(ctx, "user-1", rt.ID)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	res, err := m.Finish(ctx, "user-1", s.ID, models.FinishInput{
		Accuracy: 0.96, TimeS: 60, EdgeScore: 0.9,
	})
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	if !res.Passed {
		t.Error("expected passing result")
	}
	if res.XP != 0 {
		t.Errorf("training sessions award no XP, got %d", res.XP)
	}
	if res.Proof != nil {
		t.Error("training sessions must not issue proof receipts")
	}
	if len(repo.proofs) != 0 {
		t.Errorf("expected 0 stored proofs, got %d", len(repo.proofs))
	}
}

func TestFinishTestingPassedIssuesProof(t *testing.T) {
	repo := newFakeRepo()
	m := newTestManager(repo)
	ctx := context.Background()

	rt := publishTestRuntime(t, m, models.ModeTesting)
	s, _, err := m.Start(ctx, "user-1", rt.ID)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	res, err := m.Finish(ctx, "user-1", s.ID, models.FinishInput{
		Accuracy: 0.96, TimeS: 60, EdgeScore: 0.9,
		Metrics: map[string]any{"streak": 5},
	})
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	if res.Level != scoring.LevelMastery {
		t.Errorf("level = %d, want %d", res.Level, scoring.LevelMastery)
	}
	if res.XP != scoring.MarketplaceXPTable[scoring.LevelMastery] {
		t.Errorf("xp = %d, want %d", res.XP, scoring.MarketplaceXPTable[scoring.LevelMastery])
	}
	if res.Proof == nil {
		t.Fatal("expected a proof receipt")
	}
	if res.Proof.TemplateName != "Objection Dojo" {
		t.Errorf("proof template name = %q", res.Proof.TemplateName)
	}
	if len(repo.proofs) != 1 {
		t.Fatalf("expected exactly 1 stored proof, got %d", len(repo.proofs))
	}

	proofs, err := m.ListProofs(ctx, "user-1", 10, 0)
	if err != nil {
		t.Fatalf("ListProofs failed: %v", err)
	}
	if len(proofs) != 1 || proofs[0].ReceiptID != res.Proof.ReceiptID {
		t.Errorf("ListProofs mismatch: %+v", proofs)
	}
}

func TestFinishTestingFailedNoProof(t *testing.T) {
	repo := newFakeRepo()
	m := newTestManager(repo)
	ctx := context.Background()

	rt := publishTestRuntime(t, m, models.ModeTesting)
	s, _, err := m.Start(ctx, "user-1", rt.ID)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	res, err := m.Finish(ctx, "user-1", s.ID, models.FinishInput{
		Accuracy: 0.70, TimeS: 60,
	})
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	if res.Passed {
		t.Error("expected failing result")
	}
	if res.XP != 0 || res.Proof != nil {
		t.Errorf("failed attempt must award nothing, got xp=%d proof=%v", res.XP, res.Proof)
	}
}

func TestFinishProofFailureIsNonFatal(t *testing.T) {
	repo := newFakeRepo()
	repo.failProof = true
	m := newTestManager(repo)
	ctx := context.Background()

	rt := publishTestRuntime(t, m, models.ModeTesting)
	s, _, err := m.Start(ctx, "user-1", rt.ID)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	res, err := m.Finish(ctx, "user-1", s.ID, models.FinishInput{
		Accuracy: 0.96, TimeS: 60, EdgeScore: 0.9,
	})
	if err != nil {
		t.Fatalf("Finish must succeed even when proof write fails: %v", err)
	}
	if !res.Passed {
		t.Error("expected passing result")
	}
	if res.Proof != nil {
		t.Error("expected nil proof after store failure")
	}

	// The session itself is durably finished
	stored, _ := repo.GetSession(ctx, s.ID)
	if !stored.IsFinished() {
		t.Error("session must be finished despite proof failure")
	}
}

func TestFinishTwice(t *testing.T) {
	m := newTestManager(newFakeRepo())
	ctx := context.Background()

	rt := publishTestRuntime(t, m, models.ModeTraining)
	s, _, err := m.Start(ctx, "user-1", rt.ID)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if _, err := m.Finish(ctx, "user-1", s.ID, models.FinishInput{Accuracy: 0.9, TimeS: 50}); err != nil {
		t.Fatalf("first Finish failed: %v", err)
	}
	_, err = m.Finish(ctx, "user-1", s.ID, models.FinishInput{Accuracy: 0.99, TimeS: 10})
	if !errors.Is(err, ErrAlreadyFinished) {
		t.Errorf("expected ErrAlreadyFinished, got %v", err)
	}
}

func TestFinishCountsCurrentAttempt(t *testing.T) {
	// sessions_required is satisfiable on the very attempt that crosses it
	repo := newFakeRepo()
	m := newTestManager(repo)
	ctx := context.Background()

	rt, err := m.PublishRuntime(ctx, "brand-1", models.PublishRuntimeRequest{
		TemplateID: "sales/objection-handling",
		Mode:       models.ModeTesting,
	})
	if err != nil {
		t.Fatalf("PublishRuntime failed: %v", err)
	}
	if rt.SessionsRequired != 3 {
		t.Fatalf("expected sessions_required 3 from testing defaults, got %d", rt.SessionsRequired)
	}

	mastery := models.FinishInput{Accuracy: 0.96, TimeS: 60, EdgeScore: 0.9}
	var last *models.FinishResult
	for i := 0; i < 3; i++ {
		s, _, err := m.Start(ctx, "user-1", rt.ID)
		if err != nil {
			t.Fatalf("Start %d failed: %v", i, err)
		}
		last, err = m.Finish(ctx, "user-1", s.ID, mastery)
		if err != nil {
			t.Fatalf("Finish %d failed: %v", i, err)
		}
	}

	if last.Level != scoring.LevelMastery {
		t.Errorf("third attempt level = %d, want %d", last.Level, scoring.LevelMastery)
	}

	// Earlier attempts could not reach mastery on session count alone
	firstTwo := 0
	for _, p := range repo.proofs {
		if p.Level == scoring.LevelMastery {
			firstTwo++
		}
	}
	if firstTwo != 1 {
		t.Errorf("expected exactly 1 mastery proof across 3 attempts, got %d", firstTwo)
	}
}

func TestGetStaleAndDelete(t *testing.T) {
	repo := newFakeRepo()
	m := newTestManager(repo)
	ctx := context.Background()

	rt := publishTestRuntime(t, m, models.ModeTraining)
	s, _, err := m.Start(ctx, "user-1", rt.ID)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	stale, err := m.GetStale(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("GetStale failed: %v", err)
	}
	if len(stale) != 1 {
		t.Fatalf("expected 1 stale session, got %d", len(stale))
	}

	if err := m.Delete(ctx, s.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := m.GetSession(ctx, "user-1", s.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound after delete, got %v", err)
	}
}
