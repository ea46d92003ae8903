package scoring

import (
	"testing"

	"github.com/playops-hq/playops-engine/internal/models"
)

func testRuntime() *models.RuntimeConfig {
	return &models.RuntimeConfig{
		TimeLimitS:        90,
		AccuracyThreshold: 0.9,
		EdgeThreshold:     0.8,
		SessionsRequired:  3,
	}
}

func TestClassify(t *testing.T) {
	rt := testRuntime()

	tests := []struct {
		name          string
		accuracy      float64
		timeS         float64
		edgeScore     float64
		totalSessions int
		wantLevel     int
		wantPassed    bool
	}{
		{
			name:     "mastery when all tier-3 gates clear",
			accuracy: 0.96, timeS: 70, edgeScore: 0.85, totalSessions: 3,
			wantLevel: LevelMastery, wantPassed: true,
		},
		{
			name:     "proficient when tier-3 time gate fails",
			accuracy: 0.91, timeS: 85, edgeScore: 0.9, totalSessions: 5,
			wantLevel: LevelProficient, wantPassed: true,
		},
		{
			name:     "needs work below the accuracy guard",
			accuracy: 0.80, timeS: 40, edgeScore: 1.0, totalSessions: 10,
			wantLevel: LevelNeedsWork, wantPassed: false,
		},
		{
			name:     "needs work when over the time limit",
			accuracy: 0.99, timeS: 120, edgeScore: 1.0, totalSessions: 10,
			wantLevel: LevelNeedsWork, wantPassed: false,
		},
		{
			name:     "borderline accuracy never reaches tier 2",
			accuracy: 0.87, timeS: 50, edgeScore: 1.0, totalSessions: 10,
			wantLevel: LevelNeedsWork, wantPassed: false,
		},
		{
			name:     "tier 3 blocked by session history",
			accuracy: 0.97, timeS: 60, edgeScore: 0.9, totalSessions: 2,
			wantLevel: LevelProficient, wantPassed: true,
		},
		{
			name:     "tier 3 blocked by edge score",
			accuracy: 0.97, timeS: 60, edgeScore: 0.5, totalSessions: 3,
			wantLevel: LevelProficient, wantPassed: true,
		},
		{
			name:     "inside the tier 3 time gate",
			accuracy: 0.97, timeS: 74.5, edgeScore: 0.9, totalSessions: 3,
			wantLevel: LevelMastery, wantPassed: true,
		},
		{
			name:     "past the tier 3 time gate",
			accuracy: 0.97, timeS: 74.9, edgeScore: 0.9, totalSessions: 3,
			wantLevel: LevelProficient, wantPassed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(rt, tt.accuracy, tt.timeS, tt.edgeScore, tt.totalSessions)
			if got.Level != tt.wantLevel || got.Passed != tt.wantPassed {
				t.Errorf("Classify() = {level:%d passed:%v}, want {level:%d passed:%v}",
					got.Level, got.Passed, tt.wantLevel, tt.wantPassed)
			}
		})
	}
}

func TestClassifyInvariants(t *testing.T) {
	rt := testRuntime()

	// level==1 must always mean failed, level 2 and 3 must always mean passed
	accuracies := []float64{0, 0.5, 0.84, 0.85, 0.89, 0.90, 0.94, 0.95, 1.0}
	times := []float64{0, 30, 74.7, 74.8, 90, 90.1, 200}
	edges := []float64{0, 0.79, 0.8, 1.0}
	sessions := []int{1, 2, 3, 10}

	for _, a := range accuracies {
		for _, ts := range times {
			for _, e := range edges {
				for _, n := range sessions {
					out := Classify(rt, a, ts, e, n)
					if out.Level < LevelNeedsWork || out.Level > LevelMastery {
						t.Fatalf("level out of range: %d", out.Level)
					}
					if out.Passed != (out.Level >= LevelProficient) {
						t.Fatalf("passed/level mismatch: level=%d passed=%v (a=%v t=%v e=%v n=%d)",
							out.Level, out.Passed, a, ts, e, n)
					}
				}
			}
		}
	}
}

func TestMarketplaceXP(t *testing.T) {
	if xp := MarketplaceXP(LevelMastery); xp != 500 {
		t.Errorf("expected 500 for mastery, got %d", xp)
	}
	if xp := MarketplaceXP(LevelProficient); xp != 250 {
		t.Errorf("expected 250 for proficient, got %d", xp)
	}
	if xp := MarketplaceXP(LevelNeedsWork); xp != 100 {
		t.Errorf("expected 100 for needs work, got %d", xp)
	}
	if xp := MarketplaceXP(0); xp != 0 {
		t.Errorf("expected 0 for unknown level, got %d", xp)
	}
}
