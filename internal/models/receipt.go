package models

import (
	"crypto/rand"
	"fmt"
	"time"
)

// ReceiptPrefix is the human-scannable prefix on every proof receipt id
const ReceiptPrefix = "POP"

// ProofReceipt is an immutable record asserting that a player passed a
// testing-mode session at a given level. Created only when mode=testing
// and the session passed; never updated.
type ProofReceipt struct {
	ReceiptID     string         `json:"receipt_id"`
	UserID        string         `json:"user_id"`
	SessionID     string         `json:"session_id"`
	TemplateID    string         `json:"template_id"`
	TemplateName  string         `json:"template_name,omitempty"`
	SubCompetency string         `json:"sub_competency"`
	Level         int            `json:"level"`
	Metrics       map[string]any `json:"metrics,omitempty"`
	XPAwarded     int            `json:"xp_awarded"`
	Timestamp     time.Time      `json:"timestamp"`
}

// receipt ids use an unambiguous base32 alphabet (no 0/1/O/I)
const receiptAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

// GenerateReceiptID creates a globally unique, human-scannable receipt token
// of the form POP-XXXXXXXXXXXX.
func GenerateReceiptID() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate receipt id: %w", err)
	}
	for i, b := range buf {
		buf[i] = receiptAlphabet[int(b)%len(receiptAlphabet)]
	}
	return ReceiptPrefix + "-" + string(buf), nil
}
