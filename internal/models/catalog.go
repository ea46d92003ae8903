package models

// Domain represents a top-level competency category (e.g. sales, support)
type Domain struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	TemplatesCount int    `json:"templatesCount"`
}

// GameTemplate is a creator-authored mini-game blueprint within a domain.
// Brands publish it into one or more RuntimeConfigs.
type GameTemplate struct {
	ID              string        `json:"id"` // "sales/objection-handling"
	DomainID        string        `json:"domainId"`
	Name            string        `json:"name"`
	Description     string        `json:"description"`
	Competency      string        `json:"competency"`
	SubCompetencies []string      `json:"subCompetencies"`
	Skills          []string      `json:"skills,omitempty"`
	Defaults        ModeDefaults  `json:"defaults"`
	Testing         *ModeDefaults `json:"testing,omitempty"`
}

// ModeDefaults holds per-mode threshold defaults a publish request may override
type ModeDefaults struct {
	TimeLimitS        float64 `yaml:"time_limit_s" json:"time_limit_s"`
	AccuracyThreshold float64 `yaml:"accuracy_threshold" json:"accuracy_threshold"`
	EdgeThreshold     float64 `yaml:"edge_threshold" json:"edge_threshold"`
	SessionsRequired  int     `yaml:"sessions_required" json:"sessions_required"`
}
