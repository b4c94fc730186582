package reports

import (
	"time"

	"github.com/bryanwahyu/diagnoflow/internal/domain/diagnosis"
)

// ReportID identifier type
type ReportID string

// Status enum
type Status string

const (
	StatusPending               Status = "pending"
	StatusSubmitted             Status = "submitted" // MO approved, awaiting pathologist
	StatusApproved              Status = "approved"
	StatusRejectedByMO          Status = "rejected_by_mo"
	StatusRejectedByPathologist Status = "rejected_by_pathologist"
)

// Terminal reports whether no further transition may leave s
func (s Status) Terminal() bool {
	switch s {
	case StatusApproved, StatusRejectedByMO, StatusRejectedByPathologist:
		return true
	}
	return false
}

// Decision enum for reviewer actions
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Valid reports whether d is a known decision value
func (d Decision) Valid() bool {
	return d == DecisionApprove || d == DecisionReject
}

// Aggregate Root: Report. Shared mutable state; valid mutators are
// determined by current status plus the caller's role (see machine.go).
// Reports are never physically deleted, terminal states are permanent.
type Report struct {
	ID         ReportID             `json:"id"`
	AnalysisID diagnosis.AnalysisID `json:"analysis_id"`

	Status      Status    `json:"status"`
	SubmittedBy string    `json:"submitted_by"`
	SubmittedAt time.Time `json:"submitted_at"`
	CreatedAt   time.Time `json:"created_at"`

	MedicalOfficerID string     `json:"medical_officer_id,omitempty"`
	MODecision       string     `json:"mo_decision,omitempty"` // approved | rejected
	MONotes          string     `json:"mo_notes,omitempty"`
	MOReviewedAt     *time.Time `json:"mo_reviewed_at,omitempty"`

	PathologistID         string     `json:"pathologist_id,omitempty"`
	PathologistDecision   string     `json:"pathologist_decision,omitempty"` // approved | rejected
	PathologistNotes      string     `json:"pathologist_notes,omitempty"`
	PathologistReviewedAt *time.Time `json:"pathologist_reviewed_at,omitempty"`
}
