package framework

import (
	"encoding/json"
	"testing"
)

func TestCalculateLevel(t *testing.T) {
	tests := []struct {
		score     float64
		threshold float64
		want      string
	}{
		{95, 0.8, LevelMastery},
		{90, 0.8, LevelMastery},
		{89.9, 0.8, LevelProficient},
		{80, 0.8, LevelProficient},
		{79.9, 0.8, LevelNeedsWork},
		{0, 0.8, LevelNeedsWork},
		{70, 0.6, LevelProficient},
		{85, 0, LevelProficient}, // zero threshold falls back to default 0.8
	}

	for _, tt := range tests {
		if got := CalculateLevel(tt.score, tt.threshold); got != tt.want {
			t.Errorf("CalculateLevel(%v, %v) = %q, want %q", tt.score, tt.threshold, got, tt.want)
		}
	}
}

func TestCalculateXP(t *testing.T) {
	tests := []struct {
		level string
		score float64
		want  int
	}{
		{LevelMastery, 100, 15},
		{LevelMastery, 95, 14},    // floor(15 * 0.95) = 14
		{LevelProficient, 84, 8},  // floor(10 * 0.84) = 8
		{LevelNeedsWork, 50, 2},   // floor(5 * 0.50) = 2
		{"Unknown", 100, 0},
	}

	for _, tt := range tests {
		if got := CalculateXP(tt.level, tt.score); got != tt.want {
			t.Errorf("CalculateXP(%q, %v) = %d, want %d", tt.level, tt.score, got, tt.want)
		}
	}
}

func TestExtractResultObjects(t *testing.T) {
	globals := map[string]json.RawMessage{
		GlobalGameConfig: json.RawMessage(`{"timeLimit":90}`),
		GlobalGameResult: json.RawMessage(`{"score":88}`),
		GlobalGameProof:  json.RawMessage(`not json`), // unreadable
	}

	out := ExtractResultObjects(globals)

	if out.GameConfig == nil {
		t.Error("gameConfig should be extracted")
	}
	if out.GameResult == nil {
		t.Error("gameResult should be extracted")
	}
	if out.GoldenKey != nil || out.EdgeCase != nil {
		t.Error("missing globals must come back nil")
	}
	if out.GameProof != nil {
		t.Error("unreadable global must come back nil")
	}
}

func TestExtractResultObjectsNilContext(t *testing.T) {
	out := ExtractResultObjects(nil)
	if out == nil {
		t.Fatal("extraction must never return nil")
	}
	if out.GameConfig != nil || out.GameProof != nil {
		t.Error("all fields should be nil on empty context")
	}
}
