package models

import (
	"fmt"
	"time"
)

// GameMode selects which scoring economy a runtime participates in
type GameMode string

const (
	ModeTraining GameMode = "training"
	ModeTesting  GameMode = "testing"
)

// IsValid reports whether the mode is one of the two supported values
func (m GameMode) IsValid() bool {
	return m == ModeTraining || m == ModeTesting
}

// RuntimeConfig is an immutable per-(template, mode) configuration created
// when a brand publishes a template. Read-only after creation.
type RuntimeConfig struct {
	ID                string    `json:"id"`
	TemplateID        string    `json:"template_id"`
	SubCompetency     string    `json:"sub_competency"`
	Mode              GameMode  `json:"mode"`
	TimeLimitS        float64   `json:"time_limit_s"`
	AccuracyThreshold float64   `json:"accuracy_threshold"`
	EdgeThreshold     float64   `json:"edge_threshold"`
	SessionsRequired  int       `json:"sessions_required"`
	Randomize         bool      `json:"randomize"`
	ProofLog          bool      `json:"proof_log"`
	Seed              string    `json:"seed,omitempty"`
	PublishedBy       string    `json:"published_by,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// Validate checks runtime invariants before publishing
func (r *RuntimeConfig) Validate() error {
	if r.TemplateID == "" {
		return fmt.Errorf("template_id is required")
	}
	if !r.Mode.IsValid() {
		return fmt.Errorf("invalid mode: %q", r.Mode)
	}
	if r.TimeLimitS <= 0 {
		return fmt.Errorf("time_limit_s must be positive, got %v", r.TimeLimitS)
	}
	if r.AccuracyThreshold < 0 || r.AccuracyThreshold > 1 {
		return fmt.Errorf("accuracy_threshold must be in [0,1], got %v", r.AccuracyThreshold)
	}
	if r.EdgeThreshold < 0 || r.EdgeThreshold > 1 {
		return fmt.Errorf("edge_threshold must be in [0,1], got %v", r.EdgeThreshold)
	}
	if r.SessionsRequired < 1 {
		return fmt.Errorf("sessions_required must be >= 1, got %d", r.SessionsRequired)
	}
	// A fixed seed only makes sense when randomization is off
	if !r.Randomize && r.Seed == "" {
		return fmt.Errorf("seed is required when randomize is false")
	}
	if r.Randomize && r.Seed != "" {
		return fmt.Errorf("seed must be empty when randomize is true")
	}
	return nil
}

// PublishRuntimeRequest represents a request to publish a runtime config
type PublishRuntimeRequest struct {
	TemplateID        string   `json:"template_id"`
	SubCompetency     string   `json:"sub_competency,omitempty"`
	Mode              GameMode `json:"mode"`
	TimeLimitS        float64  `json:"time_limit_s,omitempty"`
	AccuracyThreshold float64  `json:"accuracy_threshold,omitempty"`
	EdgeThreshold     float64  `json:"edge_threshold,omitempty"`
	SessionsRequired  int      `json:"sessions_required,omitempty"`
	Randomize         *bool    `json:"randomize,omitempty"`
	ProofLog          *bool    `json:"proof_log,omitempty"`
	Seed              string   `json:"seed,omitempty"`
}
