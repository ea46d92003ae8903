package models

import (
	"time"
)

// ApiToken maps a bearer token to a platform user. Issued by the external
// identity provider; this service only resolves and records usage.
type ApiToken struct {
	ID         int        `json:"id"`
	Token      string     `json:"-"` // Never serialize
	UserID     string     `json:"user_id"`
	UserName   string     `json:"user_name,omitempty"`
	Role       string     `json:"role,omitempty"` // creator | brand | player
	IsActive   bool       `json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

// MaskedToken returns first 8 characters of the token for logging
func (t *ApiToken) MaskedToken() string {
	if len(t.Token) < 8 {
		return "***"
	}
	return t.Token[:8] + "..."
}
