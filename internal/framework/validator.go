// Package framework mirrors the scoring vocabulary for local, offline and
// demo contexts that lack the full accuracy/time/edge signal set. Its
// threshold and XP tables are intentionally independent from the
// marketplace economy in internal/scoring.
package framework

import (
	"encoding/json"
	"log/slog"
	"math"
)

// Proficiency levels in display vocabulary
const (
	LevelMastery    = "Mastery"
	LevelProficient = "Proficient"
	LevelNeedsWork  = "Needs Work"
)

// DefaultThreshold is the proficiency cut used when no threshold is given
const DefaultThreshold = 0.8

// FrameworkXPTable is the local display economy, keyed by level name.
// Not the marketplace proof economy; see internal/scoring.
var FrameworkXPTable = map[string]int{
	LevelMastery:    15,
	LevelProficient: 10,
	LevelNeedsWork:  5,
}

// CalculateLevel classifies a single 0-100 score: 90 and above is Mastery,
// threshold*100 and above is Proficient, everything else Needs Work.
func CalculateLevel(score float64, threshold float64) string {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if score >= 90 {
		return LevelMastery
	}
	if score >= threshold*100 {
		return LevelProficient
	}
	return LevelNeedsWork
}

// CalculateXP returns floor(baseXP[level] * score/100). Unknown levels
// earn nothing.
func CalculateXP(level string, score float64) int {
	base, ok := FrameworkXPTable[level]
	if !ok {
		return 0
	}
	return int(math.Floor(float64(base) * score / 100))
}

// The five named globals a generated game exposes
const (
	GlobalGameConfig = "gameConfig"
	GlobalGoldenKey  = "goldenKey"
	GlobalEdgeCase   = "edgeCase"
	GlobalGameResult = "gameResult"
	GlobalGameProof  = "gameProof"
)

// ResultObjects holds whatever could be read from an embedded game's
// global scope. Any field may be nil.
type ResultObjects struct {
	GameConfig json.RawMessage `json:"gameConfig,omitempty"`
	GoldenKey  json.RawMessage `json:"goldenKey,omitempty"`
	EdgeCase   json.RawMessage `json:"edgeCase,omitempty"`
	GameResult json.RawMessage `json:"gameResult,omitempty"`
	GameProof  json.RawMessage `json:"gameProof,omitempty"`
}

// ExtractResultObjects performs a best-effort read of the five named
// globals from a sandboxed execution context snapshot. Missing or
// unreadable objects come back nil; the extraction never fails.
func ExtractResultObjects(globals map[string]json.RawMessage) *ResultObjects {
	out := &ResultObjects{}
	if globals == nil {
		slog.Debug("result extraction on empty context")
		return out
	}

	out.GameConfig = readGlobal(globals, GlobalGameConfig)
	out.GoldenKey = readGlobal(globals, GlobalGoldenKey)
	out.EdgeCase = readGlobal(globals, GlobalEdgeCase)
	out.GameResult = readGlobal(globals, GlobalGameResult)
	out.GameProof = readGlobal(globals, GlobalGameProof)
	return out
}

func readGlobal(globals map[string]json.RawMessage, name string) json.RawMessage {
	raw, ok := globals[name]
	if !ok || len(raw) == 0 {
		slog.Debug("game global missing", "name", name)
		return nil
	}
	if !json.Valid(raw) {
		slog.Warn("game global unreadable", "name", name)
		return nil
	}
	return raw
}
