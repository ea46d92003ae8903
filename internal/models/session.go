package models

import (
	"encoding/json"
	"time"
)

// Session represents one player's attempt against a published runtime.
// Created at start, mutated exactly once at finish.
type Session struct {
	ID         string         `json:"id"`
	UserID     string         `json:"user_id"`
	RuntimeID  string         `json:"runtime_id"`
	Mode       GameMode       `json:"mode"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
	Accuracy   float64        `json:"accuracy"`
	TimeS      float64        `json:"time_s"`
	EdgeScore  float64        `json:"edge_score"`
	Level      int            `json:"level"`
	Passed     bool           `json:"passed"`
	Metrics    map[string]any `json:"metrics,omitempty"`
}

// IsFinished reports whether the session has reached its terminal state
func (s *Session) IsFinished() bool {
	return s.FinishedAt != nil
}

// SessionEvent is a write-only telemetry record tied to a session.
// Events are appended in insertion order and never read back by scoring.
type SessionEvent struct {
	ID        int64           `json:"id"`
	SessionID string          `json:"session_id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// FinishInput carries the finish-time signals for one attempt
type FinishInput struct {
	Accuracy  float64        `json:"accuracy"`
	TimeS     float64        `json:"time_s"`
	EdgeScore float64        `json:"edge_score"`
	Metrics   map[string]any `json:"metrics,omitempty"`
}

// FinishResult is returned to the caller after a finish
type FinishResult struct {
	Level  int           `json:"level"`
	Passed bool          `json:"passed"`
	XP     int           `json:"xp"`
	Proof  *ProofReceipt `json:"proof,omitempty"`
	Mode   GameMode      `json:"mode"`
}

// SessionManagerRequest is the three-action wire contract of the
// session-manager endpoint: start, event, finish.
type SessionManagerRequest struct {
	Action    string          `json:"action"`
	RuntimeID string          `json:"runtime_id,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
	EventType string          `json:"event_type,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Accuracy  float64         `json:"accuracy,omitempty"`
	TimeS     float64         `json:"time_s,omitempty"`
	EdgeScore float64         `json:"edge_score,omitempty"`
	Metrics   map[string]any  `json:"metrics,omitempty"`
}

// StartResponse is returned for the start action
type StartResponse struct {
	Session *Session       `json:"session"`
	Runtime *RuntimeConfig `json:"runtime"`
}

// FinishResponse is returned for the finish action
type FinishResponse struct {
	Success bool          `json:"success"`
	Level   int           `json:"level"`
	Passed  bool          `json:"passed"`
	XP      int           `json:"xp"`
	Proof   *ProofReceipt `json:"proof,omitempty"`
	Mode    GameMode      `json:"mode"`
}
