package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/bryanwahyu/diagnoflow/internal/bfmp"
	"github.com/bryanwahyu/diagnoflow/internal/domain/diagnosis"
	domain "github.com/bryanwahyu/diagnoflow/internal/domain/reports"
)

// View is the immutable read model for one report: the workflow row
// joined with its analysis and resolved display names. Assembled here
// and nowhere else; the write-side Report entity stays separate.
type View struct {
	ID     domain.ReportID `json:"id"`
	Status domain.Status   `json:"status"`

	Disease    diagnosis.Disease `json:"disease"`
	Facility   string            `json:"facility,omitempty"`
	Verdict    string            `json:"verdict"`
	Confidence float64           `json:"confidence"`
	ImageURL   string            `json:"image_url,omitempty"`

	SubmittedBy   string    `json:"submitted_by"`
	SubmitterName string    `json:"submitter_name"`
	SubmittedAt   time.Time `json:"submitted_at"`

	MedicalOfficerName string     `json:"medical_officer_name,omitempty"`
	MODecision         string     `json:"mo_decision,omitempty"`
	MONotes            string     `json:"mo_notes,omitempty"`
	MOReviewedAt       *time.Time `json:"mo_reviewed_at,omitempty"`

	PathologistName       string     `json:"pathologist_name,omitempty"`
	PathologistDecision   string     `json:"pathologist_decision,omitempty"`
	PathologistNotes      string     `json:"pathologist_notes,omitempty"`
	PathologistReviewedAt *time.Time `json:"pathologist_reviewed_at,omitempty"`

	// BFMP sub-metrics, present only for positive verdicts
	BFMP *bfmp.Result `json:"bfmp,omitempty"`
}

// GetView assembles the read model for one report
func (s *Service) GetView(ctx context.Context, id domain.ReportID) (*View, error) {
	r, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	a, err := s.Analyses.Get(ctx, r.AnalysisID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("%w: analysis %s for report %s", domain.ErrNotFound, r.AnalysisID, r.ID)
	}

	v := &View{
		ID:          r.ID,
		Status:      r.Status,
		Disease:     a.Disease,
		Facility:    a.Facility,
		Verdict:     a.Verdict,
		Confidence:  a.Confidence,
		ImageURL:    a.ImageURL,
		SubmittedBy: r.SubmittedBy,
		SubmittedAt: r.SubmittedAt,

		MODecision:   r.MODecision,
		MONotes:      r.MONotes,
		MOReviewedAt: r.MOReviewedAt,

		PathologistDecision:   r.PathologistDecision,
		PathologistNotes:      r.PathologistNotes,
		PathologistReviewedAt: r.PathologistReviewedAt,

		BFMP: bfmp.Compute(string(a.ID), a.Confidence, a.Verdict),
	}

	v.SubmitterName = s.nameOf(ctx, r.SubmittedBy)
	if r.MedicalOfficerID != "" {
		v.MedicalOfficerName = s.nameOf(ctx, r.MedicalOfficerID)
	}
	if r.PathologistID != "" {
		v.PathologistName = s.nameOf(ctx, r.PathologistID)
	}
	return v, nil
}

func (s *Service) nameOf(ctx context.Context, accountID string) string {
	name, err := s.Directory.DisplayName(ctx, accountID)
	if err != nil || name == "" {
		return "Unknown"
	}
	return name
}
