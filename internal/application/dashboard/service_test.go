package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bryanwahyu/diagnoflow/internal/domain/diagnosis"
	"github.com/bryanwahyu/diagnoflow/internal/domain/reports"
	"github.com/bryanwahyu/diagnoflow/internal/domain/staff"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name   string
		counts []int
		want   []int
	}{
		{"all zero renders minimum bars", []int{0, 0, 0, 0, 0, 0, 0}, []int{5, 5, 5, 5, 5, 5, 5}},
		{"scaled to max", []int{0, 2, 4, 0, 1, 3, 4}, []int{0, 50, 100, 0, 25, 75, 100}},
		{"zero days stay zero", []int{0, 10}, []int{0, 100}},
		{"tiny non-zero floored at minimum", []int{1, 100}, []int{5, 100}},
		{"single bucket", []int{7}, []int{100}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.Equal(t, c.want, Normalize(c.counts))
		})
	}
}

type fakeClock struct{ now time.Time }

func (c fakeClock) Now() time.Time { return c.now }

type fakeAnalyses struct {
	total       int
	positive    int
	allTotal    int
	allPositive int
	daily       []int
}

func (f *fakeAnalyses) Save(_ context.Context, _ *diagnosis.Analysis) error { return nil }
func (f *fakeAnalyses) Get(_ context.Context, _ diagnosis.AnalysisID) (*diagnosis.Analysis, error) {
	return nil, nil
}
func (f *fakeAnalyses) Delete(_ context.Context, _ diagnosis.AnalysisID) error { return nil }
func (f *fakeAnalyses) ListByAccount(_ context.Context, _ string, _, _ int) ([]*diagnosis.Analysis, error) {
	return nil, nil
}
func (f *fakeAnalyses) CountByAccount(_ context.Context, _ string, positiveOnly bool) (int, error) {
	if positiveOnly {
		return f.positive, nil
	}
	return f.total, nil
}
func (f *fakeAnalyses) CountAll(_ context.Context, positiveOnly bool) (int, error) {
	if positiveOnly {
		return f.allPositive, nil
	}
	return f.allTotal, nil
}
func (f *fakeAnalyses) DailyCountsByAccount(_ context.Context, _ string, days int, _ time.Time) ([]int, error) {
	if f.daily != nil {
		return f.daily, nil
	}
	return make([]int, days), nil
}

type fakeReports struct {
	submitted int
	// byStatus answers reviewer-queue counts; asked records which statuses
	// the service queried
	byStatus       map[reports.Status]int
	countsByStatus map[reports.Status]int
	asked          []reports.Status
}

func (f *fakeReports) Create(_ context.Context, _ *reports.Report) error { return nil }
func (f *fakeReports) Get(_ context.Context, _ reports.ReportID) (*reports.Report, error) {
	return nil, nil
}
func (f *fakeReports) UpdateStatusCAS(_ context.Context, _ reports.ReportID, _ reports.Status, _ reports.ReviewUpdate) (bool, error) {
	return false, nil
}
func (f *fakeReports) Paginate(_ context.Context, _ reports.Status, _, _ int) (reports.PaginatedResult, error) {
	return reports.PaginatedResult{}, nil
}
func (f *fakeReports) ApprovedBetween(_ context.Context, _, _ time.Time) ([]*reports.ApprovedCase, error) {
	return nil, nil
}
func (f *fakeReports) CountByStatusBetween(_ context.Context, status reports.Status, _, _ time.Time) (int, error) {
	return f.countsByStatus[status], nil
}
func (f *fakeReports) CountBySubmitter(_ context.Context, _ string) (int, error) {
	return f.submitted, nil
}
func (f *fakeReports) CountByReviewer(_ context.Context, _ staff.Role, _ string, status reports.Status) (int, error) {
	f.asked = append(f.asked, status)
	return f.byStatus[status], nil
}

func newTestService(analyses *fakeAnalyses, reps *fakeReports) *Service {
	return &Service{
		Analyses: analyses,
		Reports:  reps,
		Clock:    fakeClock{now: time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)},
		Logger:   zap.NewNop(),
	}
}

func TestForLabTechnician(t *testing.T) {
	analyses := &fakeAnalyses{total: 12, positive: 4, daily: []int{0, 2, 4, 0, 1, 3, 4}}
	reps := &fakeReports{submitted: 3, byStatus: map[reports.Status]int{reports.StatusPending: 2}}
	svc := newTestService(analyses, reps)

	v, err := svc.For(context.Background(), staff.Actor{ID: "tech-1", Role: staff.RoleLabTechnician})
	require.NoError(t, err)

	require.Equal(t, 12, v.Total)
	require.Equal(t, 4, v.Positive)
	require.Equal(t, 3, v.GeneratedReports)
	require.Equal(t, 2, v.Pending)
	require.Equal(t, []int{0, 2, 4, 0, 1, 3, 4}, v.ChartCounts)
	require.Equal(t, []int{0, 50, 100, 0, 25, 75, 100}, v.ChartNormalized)
}

func TestForMedicalOfficerSeesSharedPendingPool(t *testing.T) {
	reps := &fakeReports{
		countsByStatus: map[reports.Status]int{reports.StatusPending: 7},
		byStatus:       map[reports.Status]int{reports.StatusApproved: 20},
	}
	svc := newTestService(&fakeAnalyses{}, reps)

	v, err := svc.For(context.Background(), staff.Actor{ID: "mo-1", Role: staff.RoleMedicalOfficer})
	require.NoError(t, err)

	require.Equal(t, 7, v.Pending, "pending reports are unassigned, so the MO queue is global")
	require.Equal(t, 20, v.GeneratedReports)
	require.NotContains(t, reps.asked, reports.StatusPending)
}

func TestForPathologistQueuesOnSubmitted(t *testing.T) {
	reps := &fakeReports{byStatus: map[reports.Status]int{
		reports.StatusSubmitted: 5,
		reports.StatusApproved:  11,
	}}
	svc := newTestService(&fakeAnalyses{}, reps)

	v, err := svc.For(context.Background(), staff.Actor{ID: "path-1", Role: staff.RolePathologist})
	require.NoError(t, err)

	require.Equal(t, 5, v.Pending, "a pathologist's queue is reports cleared by an MO")
	require.Equal(t, 11, v.GeneratedReports)
	require.Contains(t, reps.asked, reports.StatusSubmitted)
	require.NotContains(t, reps.asked, reports.StatusPending)
}

func TestForAdminIsGlobal(t *testing.T) {
	analyses := &fakeAnalyses{total: 2, positive: 1, allTotal: 300, allPositive: 90}
	reps := &fakeReports{countsByStatus: map[reports.Status]int{
		reports.StatusPending:  12,
		reports.StatusApproved: 240,
	}}
	svc := newTestService(analyses, reps)

	v, err := svc.For(context.Background(), staff.Actor{ID: "admin-1", Role: staff.RoleAdmin})
	require.NoError(t, err)

	require.Equal(t, 300, v.Total, "admins see every account's analyses")
	require.Equal(t, 90, v.Positive)
	require.Equal(t, 12, v.Pending)
	require.Equal(t, 240, v.GeneratedReports)
}

func TestForHealthOfficerIsPersonal(t *testing.T) {
	analyses := &fakeAnalyses{total: 2, positive: 1}
	svc := newTestService(analyses, &fakeReports{})

	v, err := svc.For(context.Background(), staff.Actor{ID: "ho-1", Role: staff.RoleHealthOfficer})
	require.NoError(t, err)

	require.Equal(t, 2, v.Total)
	require.Equal(t, 1, v.Positive)
	require.Zero(t, v.GeneratedReports, "only technicians accrue generated reports")
	require.Len(t, v.ChartCounts, 7)
	require.Equal(t, []int{5, 5, 5, 5, 5, 5, 5}, v.ChartNormalized)
}
