package reports

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/diagnoflow/internal/application"
	"github.com/bryanwahyu/diagnoflow/internal/application/audit"
	"github.com/bryanwahyu/diagnoflow/internal/domain/activity"
	"github.com/bryanwahyu/diagnoflow/internal/domain/diagnosis"
	domain "github.com/bryanwahyu/diagnoflow/internal/domain/reports"
	"github.com/bryanwahyu/diagnoflow/internal/domain/staff"
)

// Service implements the report approval use-cases. A transition is one
// conceptual operation: validate status+role, CAS the row, append one
// audit event. The audit append happens after the status commit and is
// never allowed to undo it.
type Service struct {
	Repo      domain.Repository
	Analyses  diagnosis.Repository
	Directory staff.Directory
	Assign    domain.AssignmentPolicy
	Audit     *audit.Recorder
	Clock     application.Clock
	Logger    *zap.Logger
}

// Submit finalizes an analysis into a formal report in `pending`
func (s *Service) Submit(ctx context.Context, actor staff.Actor, analysisID diagnosis.AnalysisID) (*domain.Report, error) {
	if actor.Role != staff.RoleLabTechnician {
		return nil, fmt.Errorf("%w: only lab technicians submit reports, not %s", domain.ErrInvalidTransition, actor.Role)
	}
	a, err := s.Analyses.Get(ctx, analysisID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("%w: analysis %s", domain.ErrNotFound, analysisID)
	}

	now := s.Clock.Now()
	r := &domain.Report{
		ID:          domain.ReportID(uuid.New().String()),
		AnalysisID:  a.ID,
		Status:      domain.StatusPending,
		SubmittedBy: actor.ID,
		SubmittedAt: now,
		CreatedAt:   now,
	}
	if err := s.Repo.Create(ctx, r); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, actor, activity.ActionReportSubmitted,
		fmt.Sprintf("submitted report for %s analysis %s", a.Disease, a.ID), string(r.ID))
	return r, nil
}

// ReviewAsMedicalOfficer applies the first-tier decision. Approval
// forwards the report to an assigned pathologist.
func (s *Service) ReviewAsMedicalOfficer(ctx context.Context, actor staff.Actor, id domain.ReportID, decision domain.Decision, notes string) (*domain.Report, error) {
	if actor.Role != staff.RoleMedicalOfficer {
		return nil, fmt.Errorf("%w: role %s may not review as medical officer", domain.ErrInvalidTransition, actor.Role)
	}
	r, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	to, err := domain.Next(r.Status, decision, actor.Role)
	if err != nil {
		return nil, err
	}

	upd := domain.ReviewUpdate{
		To:         to,
		ReviewerID: actor.ID,
		Decision:   decisionWord(decision),
		Notes:      notes,
		ReviewedAt: s.Clock.Now(),
	}

	action := activity.ActionRejectedByMO
	detail := fmt.Sprintf("rejected report %s", id)
	if decision == domain.DecisionApprove {
		assignee, aerr := s.pickPathologist(ctx)
		if aerr != nil {
			return nil, aerr
		}
		upd.AssigneeID = assignee.ID
		action = activity.ActionApprovedByMO
		detail = fmt.Sprintf("approved report %s, forwarded to pathologist %s", id, assignee.FullName)
	}

	return s.apply(ctx, actor, r, upd, action, detail)
}

// ReviewAsPathologist applies the final decision
func (s *Service) ReviewAsPathologist(ctx context.Context, actor staff.Actor, id domain.ReportID, decision domain.Decision, notes string) (*domain.Report, error) {
	if actor.Role != staff.RolePathologist {
		return nil, fmt.Errorf("%w: role %s may not review as pathologist", domain.ErrInvalidTransition, actor.Role)
	}
	r, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	to, err := domain.Next(r.Status, decision, actor.Role)
	if err != nil {
		return nil, err
	}

	upd := domain.ReviewUpdate{
		To:         to,
		ReviewerID: actor.ID,
		Decision:   decisionWord(decision),
		Notes:      notes,
		ReviewedAt: s.Clock.Now(),
	}

	action := activity.ActionRejectedByPathologist
	detail := fmt.Sprintf("rejected report %s, final decision", id)
	if decision == domain.DecisionApprove {
		action = activity.ActionApprovedByPathologist
		detail = fmt.Sprintf("final approval of report %s", id)
	}

	return s.apply(ctx, actor, r, upd, action, detail)
}

// Get returns one report
func (s *Service) Get(ctx context.Context, id domain.ReportID) (*domain.Report, error) {
	return s.load(ctx, id)
}

// List returns a page of reports, optionally filtered by status
func (s *Service) List(ctx context.Context, status domain.Status, page, pageSize int) (domain.PaginatedResult, error) {
	return s.Repo.Paginate(ctx, status, page, pageSize)
}

// apply runs the CAS update and the audit append. A zero-row CAS means
// the state already moved under a racing reviewer.
func (s *Service) apply(ctx context.Context, actor staff.Actor, r *domain.Report, upd domain.ReviewUpdate, action, detail string) (*domain.Report, error) {
	ok, err := s.Repo.UpdateStatusCAS(ctx, r.ID, r.Status, upd)
	if err != nil {
		return nil, err
	}
	if !ok {
		cur, gerr := s.load(ctx, r.ID)
		if gerr != nil {
			return nil, gerr
		}
		return nil, fmt.Errorf("%w: report %s already moved to %s", domain.ErrInvalidTransition, r.ID, cur.Status)
	}

	s.recordAudit(ctx, actor, action, detail, string(r.ID))
	return s.load(ctx, r.ID)
}

func (s *Service) recordAudit(ctx context.Context, actor staff.Actor, action, detail, relatedID string) {
	if _, err := s.Audit.Record(ctx, actor, action, detail, relatedID); err != nil {
		// status correctness beats audit completeness here
		s.Logger.Warn("continuing with incomplete audit trail",
			zap.String("action", action), zap.String("report_id", relatedID))
	}
}

func (s *Service) pickPathologist(ctx context.Context) (*staff.Member, error) {
	candidates, err := s.Directory.ActivePathologists(ctx)
	if err != nil {
		return nil, err
	}
	return s.Assign.Assign(ctx, candidates)
}

func (s *Service) load(ctx context.Context, id domain.ReportID) (*domain.Report, error) {
	r, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, fmt.Errorf("%w: report %s", domain.ErrNotFound, id)
	}
	return r, nil
}

func decisionWord(d domain.Decision) string {
	if d == domain.DecisionApprove {
		return "approved"
	}
	return "rejected"
}
