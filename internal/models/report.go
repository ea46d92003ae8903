package models

// ComplianceReport is the ephemeral result of a static markup audit.
// Never persisted; consumed in-process or returned to the caller as-is.
type ComplianceReport struct {
	Score    int                        `json:"score"`
	IsValid  bool                       `json:"isValid"`
	Errors   []string                   `json:"errors"`
	Warnings []string                   `json:"warnings"`
	Details  map[string]*CategoryDetail `json:"details"`
}

// CategoryDetail breaks the checklist down by category
type CategoryDetail struct {
	Passed []string `json:"passed"`
	Failed []string `json:"failed"`
}
