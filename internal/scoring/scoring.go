// Package scoring converts finish-time signals into a proficiency tier and
// marketplace XP. The framework package carries a separate XP table for the
// local validator economy; the two are intentionally not unified.
package scoring

import (
	"github.com/playops-hq/playops-engine/internal/models"
)

// Proficiency tiers
const (
	LevelNeedsWork  = 1
	LevelProficient = 2
	LevelMastery    = 3
)

// Tier boundaries for the multi-signal classifier
const (
	needsWorkAccuracy = 0.85
	tier2Accuracy     = 0.90
	tier3Accuracy     = 0.95
	tier3TimeFactor   = 0.83
)

// MarketplaceXPTable is the proof-receipt economy, keyed by level
var MarketplaceXPTable = map[int]int{
	LevelNeedsWork:  100,
	LevelProficient: 250,
	LevelMastery:    500,
}

// Outcome is the classified result of one finished attempt
type Outcome struct {
	Level  int
	Passed bool
}

// Classify converts one attempt's signals into a tier outcome.
//
// The checks are sequential if-statements: default, needs-work guard,
// tier-2 upgrade, tier-3 upgrade. The guard condition is mutually
// exclusive with both upgrades, so later checks only ever escalate.
func Classify(rt *models.RuntimeConfig, accuracy, timeS float64, edgeScore float64, totalSessions int) Outcome {
	out := Outcome{Level: LevelNeedsWork, Passed: false}

	if accuracy < needsWorkAccuracy || timeS > rt.TimeLimitS {
		out.Level = LevelNeedsWork
		out.Passed = false
	}

	if accuracy >= tier2Accuracy && timeS <= rt.TimeLimitS {
		out.Level = LevelProficient
		out.Passed = true
	}

	if accuracy >= tier3Accuracy &&
		timeS <= rt.TimeLimitS*tier3TimeFactor &&
		edgeScore >= rt.EdgeThreshold &&
		totalSessions >= rt.SessionsRequired {
		out.Level = LevelMastery
		out.Passed = true
	}

	return out
}

// MarketplaceXP returns the proof-economy XP for a passed attempt at the
// given level. Zero for unknown levels.
func MarketplaceXP(level int) int {
	return MarketplaceXPTable[level]
}
