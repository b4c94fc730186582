package reports

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bryanwahyu/diagnoflow/internal/application/audit"
	"github.com/bryanwahyu/diagnoflow/internal/domain/activity"
	"github.com/bryanwahyu/diagnoflow/internal/domain/diagnosis"
	domain "github.com/bryanwahyu/diagnoflow/internal/domain/reports"
	"github.com/bryanwahyu/diagnoflow/internal/domain/staff"
)

type fakeClock struct{ now time.Time }

func (c fakeClock) Now() time.Time { return c.now }

type fakeReportRepo struct {
	mu      sync.Mutex
	reports map[domain.ReportID]*domain.Report
}

func newFakeReportRepo() *fakeReportRepo {
	return &fakeReportRepo{reports: map[domain.ReportID]*domain.Report{}}
}

func (f *fakeReportRepo) Create(_ context.Context, r *domain.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *r
	f.reports[r.ID] = &cp
	return nil
}

func (f *fakeReportRepo) Get(_ context.Context, id domain.ReportID) (*domain.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reports[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (f *fakeReportRepo) UpdateStatusCAS(_ context.Context, id domain.ReportID, from domain.Status, upd domain.ReviewUpdate) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reports[id]
	if !ok || r.Status != from {
		return false, nil
	}
	r.Status = upd.To
	at := upd.ReviewedAt
	switch upd.To {
	case domain.StatusSubmitted, domain.StatusRejectedByMO:
		r.MedicalOfficerID = upd.ReviewerID
		r.MODecision = upd.Decision
		r.MONotes = upd.Notes
		r.MOReviewedAt = &at
		if upd.AssigneeID != "" {
			r.PathologistID = upd.AssigneeID
		}
	default:
		r.PathologistID = upd.ReviewerID
		r.PathologistDecision = upd.Decision
		r.PathologistNotes = upd.Notes
		r.PathologistReviewedAt = &at
	}
	return true, nil
}

func (f *fakeReportRepo) Paginate(_ context.Context, _ domain.Status, page, pageSize int) (domain.PaginatedResult, error) {
	return domain.PaginatedResult{Page: page, PageSize: pageSize}, nil
}

func (f *fakeReportRepo) ApprovedBetween(_ context.Context, _, _ time.Time) ([]*domain.ApprovedCase, error) {
	return nil, nil
}

func (f *fakeReportRepo) CountByStatusBetween(_ context.Context, _ domain.Status, _, _ time.Time) (int, error) {
	return 0, nil
}

func (f *fakeReportRepo) CountBySubmitter(_ context.Context, _ string) (int, error) { return 0, nil }

func (f *fakeReportRepo) CountByReviewer(_ context.Context, _ staff.Role, _ string, _ domain.Status) (int, error) {
	return 0, nil
}

type fakeAnalysisRepo struct {
	analyses map[diagnosis.AnalysisID]*diagnosis.Analysis
}

func (f *fakeAnalysisRepo) Save(_ context.Context, a *diagnosis.Analysis) error {
	f.analyses[a.ID] = a
	return nil
}

func (f *fakeAnalysisRepo) Get(_ context.Context, id diagnosis.AnalysisID) (*diagnosis.Analysis, error) {
	return f.analyses[id], nil
}

func (f *fakeAnalysisRepo) Delete(_ context.Context, id diagnosis.AnalysisID) error {
	delete(f.analyses, id)
	return nil
}

func (f *fakeAnalysisRepo) ListByAccount(_ context.Context, _ string, _, _ int) ([]*diagnosis.Analysis, error) {
	return nil, nil
}

func (f *fakeAnalysisRepo) CountByAccount(_ context.Context, _ string, _ bool) (int, error) {
	return 0, nil
}

func (f *fakeAnalysisRepo) CountAll(_ context.Context, _ bool) (int, error) { return 0, nil }

func (f *fakeAnalysisRepo) DailyCountsByAccount(_ context.Context, _ string, days int, _ time.Time) ([]int, error) {
	return make([]int, days), nil
}

type fakeDirectory struct{ members []*staff.Member }

func (d *fakeDirectory) Get(_ context.Context, id string) (*staff.Member, error) {
	for _, m := range d.members {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, nil
}

func (d *fakeDirectory) DisplayName(ctx context.Context, id string) (string, error) {
	m, _ := d.Get(ctx, id)
	if m == nil {
		return "", nil
	}
	return m.FullName, nil
}

func (d *fakeDirectory) ActivePathologists(_ context.Context) ([]*staff.Member, error) {
	var out []*staff.Member
	for _, m := range d.members {
		if m.Role == staff.RolePathologist && m.Status == "approved" {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeActivityRepo struct {
	mu     sync.Mutex
	fail   bool
	events []*activity.Event
}

func (f *fakeActivityRepo) Append(_ context.Context, e *activity.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("activity store down")
	}
	f.events = append(f.events, e)
	return nil
}

func (f *fakeActivityRepo) Query(_ context.Context, _ activity.Filter) ([]*activity.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events, nil
}

var (
	tech = staff.Actor{ID: "tech-1", Role: staff.RoleLabTechnician, Email: "tech@lab.test"}
	mo   = staff.Actor{ID: "mo-1", Role: staff.RoleMedicalOfficer, Email: "mo@lab.test"}
	path = staff.Actor{ID: "path-1", Role: staff.RolePathologist, Email: "path@lab.test"}
)

func newTestService(t *testing.T) (*Service, *fakeReportRepo, *fakeActivityRepo) {
	t.Helper()
	repo := newFakeReportRepo()
	analyses := &fakeAnalysisRepo{analyses: map[diagnosis.AnalysisID]*diagnosis.Analysis{
		"an-1": {ID: "an-1", AccountID: tech.ID, Disease: diagnosis.DiseaseMalaria,
			Facility: "Sunshine Clinic", Verdict: "Positive for malaria", Confidence: 92},
	}}
	dir := &fakeDirectory{members: []*staff.Member{
		{ID: path.ID, Email: path.Email, Role: staff.RolePathologist, FullName: "Dr. Siti", Status: "approved"},
	}}
	clock := fakeClock{now: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}
	acts := &fakeActivityRepo{}
	svc := &Service{
		Repo:      repo,
		Analyses:  analyses,
		Directory: dir,
		Assign:    &domain.FirstAvailablePolicy{},
		Audit:     &audit.Recorder{Repo: acts, Clock: clock, Logger: zap.NewNop()},
		Clock:     clock,
		Logger:    zap.NewNop(),
	}
	return svc, repo, acts
}

func TestSubmitCreatesPendingReport(t *testing.T) {
	svc, _, acts := newTestService(t)

	r, err := svc.Submit(context.Background(), tech, "an-1")
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, r.Status)
	require.Equal(t, tech.ID, r.SubmittedBy)
	require.NotEmpty(t, r.ID)

	require.Len(t, acts.events, 1)
	require.Equal(t, activity.ActionReportSubmitted, acts.events[0].Action)
	require.Equal(t, string(r.ID), acts.events[0].RelatedID)
}

func TestSubmitRequiresLabTechnician(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Submit(context.Background(), mo, "an-1")
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestSubmitUnknownAnalysis(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Submit(context.Background(), tech, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestApprovalFlow(t *testing.T) {
	svc, _, acts := newTestService(t)
	ctx := context.Background()

	r, err := svc.Submit(ctx, tech, "an-1")
	require.NoError(t, err)

	r, err = svc.ReviewAsMedicalOfficer(ctx, mo, r.ID, domain.DecisionApprove, "looks consistent")
	require.NoError(t, err)
	require.Equal(t, domain.StatusSubmitted, r.Status)
	require.Equal(t, mo.ID, r.MedicalOfficerID)
	require.Equal(t, "approved", r.MODecision)
	require.Equal(t, path.ID, r.PathologistID, "MO approval assigns a pathologist")
	require.NotNil(t, r.MOReviewedAt)

	r, err = svc.ReviewAsPathologist(ctx, path, r.ID, domain.DecisionApprove, "confirmed")
	require.NoError(t, err)
	require.Equal(t, domain.StatusApproved, r.Status)
	require.True(t, r.Status.Terminal())
	require.NotNil(t, r.PathologistReviewedAt)

	// terminal states accept no further decisions
	_, err = svc.ReviewAsPathologist(ctx, path, r.ID, domain.DecisionReject, "changed my mind")
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	require.Len(t, acts.events, 3)
	require.Equal(t, activity.ActionApprovedByMO, acts.events[1].Action)
	require.Equal(t, activity.ActionApprovedByPathologist, acts.events[2].Action)
}

func TestMORejectIsTerminal(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	r, err := svc.Submit(ctx, tech, "an-1")
	require.NoError(t, err)

	r, err = svc.ReviewAsMedicalOfficer(ctx, mo, r.ID, domain.DecisionReject, "blurred slide")
	require.NoError(t, err)
	require.Equal(t, domain.StatusRejectedByMO, r.Status)
	require.Empty(t, r.PathologistID, "rejection does not assign a pathologist")

	_, err = svc.ReviewAsPathologist(ctx, path, r.ID, domain.DecisionApprove, "")
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestPathologistCannotReviewPending(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	r, err := svc.Submit(ctx, tech, "an-1")
	require.NoError(t, err)

	_, err = svc.ReviewAsPathologist(ctx, path, r.ID, domain.DecisionApprove, "")
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestMOApproveWithoutPathologist(t *testing.T) {
	svc, repo, _ := newTestService(t)
	svc.Directory = &fakeDirectory{} // nobody on call
	ctx := context.Background()

	r, err := svc.Submit(ctx, tech, "an-1")
	require.NoError(t, err)

	_, err = svc.ReviewAsMedicalOfficer(ctx, mo, r.ID, domain.DecisionApprove, "")
	require.ErrorIs(t, err, domain.ErrNoPathologistAvailable)

	cur, err := repo.Get(ctx, r.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, cur.Status, "failed assignment leaves the report untouched")
}

func TestConcurrentReviewsExactlyOneWins(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	r, err := svc.Submit(ctx, tech, "an-1")
	require.NoError(t, err)

	second := staff.Actor{ID: "mo-2", Role: staff.RoleMedicalOfficer}
	errs := make(chan error, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, e := svc.ReviewAsMedicalOfficer(ctx, mo, r.ID, domain.DecisionApprove, "")
		errs <- e
	}()
	go func() {
		defer wg.Done()
		_, e := svc.ReviewAsMedicalOfficer(ctx, second, r.ID, domain.DecisionReject, "")
		errs <- e
	}()
	wg.Wait()
	close(errs)

	var wins, losses int
	for e := range errs {
		if e == nil {
			wins++
		} else {
			require.ErrorIs(t, e, domain.ErrInvalidTransition)
			losses++
		}
	}
	require.Equal(t, 1, wins, "exactly one reviewer may move the report")
	require.Equal(t, 1, losses)
}

func TestAuditFailureDoesNotRollBack(t *testing.T) {
	svc, repo, acts := newTestService(t)
	ctx := context.Background()

	r, err := svc.Submit(ctx, tech, "an-1")
	require.NoError(t, err)

	acts.fail = true
	got, err := svc.ReviewAsMedicalOfficer(ctx, mo, r.ID, domain.DecisionApprove, "")
	require.NoError(t, err, "a failed audit append never undoes the review")
	require.Equal(t, domain.StatusSubmitted, got.Status)

	cur, err := repo.Get(ctx, r.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusSubmitted, cur.Status)
}
