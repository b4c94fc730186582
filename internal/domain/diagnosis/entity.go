package diagnosis

import (
	"strings"
	"time"
)

// AnalysisID identifier type
type AnalysisID string

// Disease enum
type Disease string

const (
	DiseaseMalaria       Disease = "malaria"
	DiseaseLeptospirosis Disease = "leptospirosis"
)

// Valid reports whether d is a known disease type
func (d Disease) Valid() bool {
	return d == DiseaseMalaria || d == DiseaseLeptospirosis
}

// Analysis represents one classifier run. Immutable after creation and
// owned by the account that ran the classifier.
type Analysis struct {
	ID         AnalysisID `json:"id"`
	AccountID  string     `json:"account_id"`
	Disease    Disease    `json:"disease"`
	Facility   string     `json:"facility,omitempty"`
	Verdict    string     `json:"verdict"`
	Confidence float64    `json:"confidence"` // 0-100
	ImageURL   string     `json:"image_url,omitempty"`
	AnalyzedAt time.Time  `json:"analyzed_at"`
}

// Positive reports whether the raw verdict indicates a positive result
func (a *Analysis) Positive() bool {
	return VerdictPositive(a.Verdict)
}

// VerdictPositive checks a raw verdict string for a positive call
func VerdictPositive(verdict string) bool {
	return strings.Contains(strings.ToLower(verdict), "positive")
}

// VerdictNegative checks a raw verdict string for a negative call
func VerdictNegative(verdict string) bool {
	return strings.Contains(strings.ToLower(verdict), "negative")
}
