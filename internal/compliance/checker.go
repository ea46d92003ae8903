// Package compliance audits generated game markup against the platform's
// structural contract. The audit is a pure, single-pass text scan: markup
// is never parsed as a DOM and never executed.
package compliance

import (
	"strings"

	"github.com/playops-hq/playops-engine/internal/models"
)

// Check categories used in the report breakdown
const (
	CategoryRequiredObjects = "required_objects"
	CategorySceneMarkers    = "scene_markers"
	CategoryVocabulary      = "vocabulary"
	CategoryMobile          = "mobile"
	CategoryAccessibility   = "accessibility"
)

// check is one entry of the fixed audit table. A check passes when any of
// its patterns occurs in the markup. Mandatory failures block publication,
// advisory failures only warn.
type check struct {
	name      string
	category  string
	patterns  []string
	weight    int
	mandatory bool
	message   string
}

// The audit table. Weights are author-assigned constants summing to 100
// when every check passes. Order is fixed; checks are independent.
var checks = []check{
	// The five global state hooks every generated game must expose
	{
		name:      "game_config_hook",
		category:  CategoryRequiredObjects,
		patterns:  []string{"window.gameConfig"},
		weight:    12,
		mandatory: true,
		message:   "missing required global: window.gameConfig",
	},
	{
		name:      "golden_key_hook",
		category:  CategoryRequiredObjects,
		patterns:  []string{"window.goldenKey"},
		weight:    12,
		mandatory: true,
		message:   "missing required global: window.goldenKey",
	},
	{
		name:      "edge_case_hook",
		category:  CategoryRequiredObjects,
		patterns:  []string{"window.edgeCase"},
		weight:    12,
		mandatory: true,
		message:   "missing required global: window.edgeCase",
	},
	{
		name:      "game_result_hook",
		category:  CategoryRequiredObjects,
		patterns:  []string{"window.gameResult"},
		weight:    12,
		mandatory: true,
		message:   "missing required global: window.gameResult",
	},
	{
		name:      "game_proof_hook",
		category:  CategoryRequiredObjects,
		patterns:  []string{"window.gameProof"},
		weight:    12,
		mandatory: true,
		message:   "missing required global: window.gameProof",
	},
	{
		name:      "viewport_meta",
		category:  CategoryMobile,
		patterns:  []string{`name="viewport"`, "name='viewport'"},
		weight:    10,
		mandatory: true,
		message:   "missing mobile viewport directive",
	},

	// Scene structure markers
	{
		name:     "intro_scene",
		category: CategorySceneMarkers,
		patterns: []string{"scene-intro", "data-scene=\"intro\""},
		weight:   2,
		message:  "intro scene marker not found",
	},
	{
		name:     "action_scene",
		category: CategorySceneMarkers,
		patterns: []string{"scene-action", "data-scene=\"action\""},
		weight:   2,
		message:  "action scene marker not found",
	},
	{
		name:     "results_scene",
		category: CategorySceneMarkers,
		patterns: []string{"scene-results", "data-scene=\"results\""},
		weight:   2,
		message:  "results scene marker not found",
	},

	// Scoring vocabulary
	{
		name:     "level_vocabulary",
		category: CategoryVocabulary,
		patterns: []string{"Mastery", "Proficient", "Needs Work"},
		weight:   6,
		message:  "proficiency level vocabulary not found",
	},
	{
		name:     "xp_vocabulary",
		category: CategoryVocabulary,
		patterns: []string{"XP", "xpAwarded", "xp_awarded"},
		weight:   6,
		message:  "XP vocabulary not found",
	},

	// Mobile and accessibility heuristics
	{
		name:     "touch_hints",
		category: CategoryMobile,
		patterns: []string{"touchstart", "touch-action", "pointerdown"},
		weight:   4,
		message:  "no touch optimization hints",
	},
	{
		name:     "aria_labels",
		category: CategoryAccessibility,
		patterns: []string{"aria-label", "aria-labelledby", "role="},
		weight:   3,
		message:  "no ARIA labels",
	},
	{
		name:     "keyboard_navigation",
		category: CategoryAccessibility,
		patterns: []string{"keydown", "keyup", "tabindex"},
		weight:   3,
		message:  "no keyboard navigation hints",
	},
	{
		name:     "focus_styles",
		category: CategoryAccessibility,
		patterns: []string{":focus", "focus-visible"},
		weight:   2,
		message:  "no focus style hints",
	},
}

// Check audits a markup blob and returns the scored report. Malformed or
// empty input is treated as a blob with zero matches: every mandatory
// check fails and nothing panics.
func Check(html string) *models.ComplianceReport {
	report := &models.ComplianceReport{
		Errors:   []string{},
		Warnings: []string{},
		Details:  make(map[string]*models.CategoryDetail),
	}

	score := 0
	for _, c := range checks {
		detail := report.Details[c.category]
		if detail == nil {
			detail = &models.CategoryDetail{Passed: []string{}, Failed: []string{}}
			report.Details[c.category] = detail
		}

		if matchesAny(html, c.patterns) {
			score += c.weight
			detail.Passed = append(detail.Passed, c.name)
			continue
		}

		detail.Failed = append(detail.Failed, c.name)
		if c.mandatory {
			report.Errors = append(report.Errors, c.message)
		} else {
			report.Warnings = append(report.Warnings, c.message)
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	report.Score = score
	report.IsValid = len(report.Errors) == 0
	return report
}

func matchesAny(html string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(html, p) {
			return true
		}
	}
	return false
}
