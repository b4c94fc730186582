package surveillance

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domain "github.com/bryanwahyu/diagnoflow/internal/domain/reports"
	"github.com/bryanwahyu/diagnoflow/internal/domain/staff"
)

type fakeClock struct{ now time.Time }

func (c fakeClock) Now() time.Time { return c.now }

type fakeReportsRepo struct {
	cases  []*domain.ApprovedCase
	counts map[domain.Status]int

	countErr bool
	// historyErr makes queries reaching before windowFrom fail, degrading
	// the trend and cluster sub-metrics only
	historyErr bool
	windowFrom time.Time
}

func (f *fakeReportsRepo) ApprovedBetween(_ context.Context, from, to time.Time) ([]*domain.ApprovedCase, error) {
	if f.historyErr && from.Before(f.windowFrom) {
		return nil, errors.New("history shard offline")
	}
	var out []*domain.ApprovedCase
	for _, c := range f.cases {
		t := c.Report.PathologistReviewedAt
		if t != nil && !t.Before(from) && t.Before(to) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeReportsRepo) CountByStatusBetween(_ context.Context, status domain.Status, _, _ time.Time) (int, error) {
	if f.countErr {
		return 0, errors.New("count query failed")
	}
	return f.counts[status], nil
}

func (f *fakeReportsRepo) Create(_ context.Context, _ *domain.Report) error { return nil }
func (f *fakeReportsRepo) Get(_ context.Context, _ domain.ReportID) (*domain.Report, error) {
	return nil, nil
}
func (f *fakeReportsRepo) UpdateStatusCAS(_ context.Context, _ domain.ReportID, _ domain.Status, _ domain.ReviewUpdate) (bool, error) {
	return false, nil
}
func (f *fakeReportsRepo) Paginate(_ context.Context, _ domain.Status, _, _ int) (domain.PaginatedResult, error) {
	return domain.PaginatedResult{}, nil
}
func (f *fakeReportsRepo) CountBySubmitter(_ context.Context, _ string) (int, error) { return 0, nil }
func (f *fakeReportsRepo) CountByReviewer(_ context.Context, _ staff.Role, _ string, _ domain.Status) (int, error) {
	return 0, nil
}

type fakeDirectory struct{ names map[string]string }

func (d *fakeDirectory) Get(_ context.Context, _ string) (*staff.Member, error) { return nil, nil }
func (d *fakeDirectory) DisplayName(_ context.Context, id string) (string, error) {
	return d.names[id], nil
}
func (d *fakeDirectory) ActivePathologists(_ context.Context) ([]*staff.Member, error) {
	return nil, nil
}

func approvedCase(i int, positive bool, facility, submitter string, reviewedAt time.Time) *domain.ApprovedCase {
	verdict := "Negative"
	if positive {
		verdict = "Positive for malaria"
	}
	submitted := reviewedAt.Add(-24 * time.Hour)
	return &domain.ApprovedCase{
		Report: &domain.Report{
			ID:                    domain.ReportID(fmt.Sprintf("rep-%d", i)),
			Status:                domain.StatusApproved,
			SubmittedBy:           submitter,
			SubmittedAt:           submitted,
			MedicalOfficerID:      "mo-1",
			PathologistID:         "path-1",
			PathologistReviewedAt: &reviewedAt,
		},
		Disease:    "malaria",
		Verdict:    verdict,
		Facility:   facility,
		Confidence: 90,
	}
}

func newTestService(repo *fakeReportsRepo, now time.Time) *Service {
	return &Service{
		Reports:         repo,
		Directory:       &fakeDirectory{names: map[string]string{"tech-1": "Ana", "tech-2": "Budi", "mo-1": "Dr. Chandra", "path-1": "Dr. Siti"}},
		Outbreak:        BaselineMultiplierPolicy{Multiplier: 2.0},
		BaselineWindows: 3,
		Clock:           fakeClock{now: now},
		Logger:          zap.NewNop(),
	}
}

func fixtureRepo(now time.Time) *fakeReportsRepo {
	reviewed := now.Add(-time.Hour)
	repo := &fakeReportsRepo{counts: map[domain.Status]int{
		domain.StatusPending:               5,
		domain.StatusRejectedByMO:          2,
		domain.StatusRejectedByPathologist: 1,
	}}
	// 10 approved in window: 4 positive (3 at Clinic A, 1 at Clinic B)
	for i := 0; i < 3; i++ {
		repo.cases = append(repo.cases, approvedCase(i, true, "Clinic A", "tech-1", reviewed))
	}
	repo.cases = append(repo.cases, approvedCase(3, true, "Clinic B", "tech-2", reviewed))
	for i := 4; i < 10; i++ {
		submitter := "tech-1"
		if i >= 7 {
			submitter = "tech-2"
		}
		repo.cases = append(repo.cases, approvedCase(i, false, "Clinic B", submitter, reviewed))
	}
	return repo
}

func TestSnapshotCoreCounts(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	svc := newTestService(fixtureRepo(now), now)
	w := svc.WindowFromRange("7d")

	snap, err := svc.Snapshot(context.Background(), w)
	require.NoError(t, err)

	require.Equal(t, 10, snap.TotalApproved)
	require.Equal(t, 4, snap.PositiveCases)
	require.Equal(t, 6, snap.NegativeCases)
	require.InDelta(t, 40.0, snap.PositivityRate, 1e-9)
	require.Equal(t, 5, snap.TotalPending)
	require.Equal(t, 3, snap.TotalRejected)
	require.InDelta(t, 24.0, snap.AvgApprovalHours, 1e-9)
	require.Equal(t, map[string]int{"malaria": 10}, snap.DiseaseBreakdown)
	require.Empty(t, snap.Degraded)
}

func TestSnapshotDailyTrend(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	svc := newTestService(fixtureRepo(now), now)

	snap, err := svc.Snapshot(context.Background(), svc.WindowFromRange("7d"))
	require.NoError(t, err)

	require.Len(t, snap.DailyTrend, 7)
	var total int
	for _, p := range snap.DailyTrend {
		total += p.Cases
	}
	require.Equal(t, 10, total, "every approval lands in exactly one day bucket")
	require.Equal(t, 10, snap.DailyTrend[6].Cases, "all approvals were today, oldest bucket first")
	require.Equal(t, "Jun 15", snap.DailyTrend[6].Date)
}

func TestSnapshotLeaderboards(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	svc := newTestService(fixtureRepo(now), now)

	snap, err := svc.Snapshot(context.Background(), svc.WindowFromRange("7d"))
	require.NoError(t, err)

	techs := snap.StaffPerformance.LabTechs
	require.Len(t, techs, 2)
	require.Equal(t, LeaderboardEntry{AccountID: "tech-1", Name: "Ana", Count: 6}, techs[0])
	require.Equal(t, LeaderboardEntry{AccountID: "tech-2", Name: "Budi", Count: 4}, techs[1])

	require.Len(t, snap.StaffPerformance.Pathologists, 1)
	require.Equal(t, 10, snap.StaffPerformance.Pathologists[0].Count)
}

func TestSnapshotDeltasNilWithoutHistory(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	svc := newTestService(fixtureRepo(now), now)

	snap, err := svc.Snapshot(context.Background(), svc.WindowFromRange("7d"))
	require.NoError(t, err)

	require.NotNil(t, snap.Trends)
	require.Equal(t, 0, snap.Trends.PrevTotal)
	require.Nil(t, snap.Trends.TotalTrend, "delta is undefined against an empty previous window")
	require.Nil(t, snap.Trends.PositiveTrend)
	require.Nil(t, snap.Trends.RateTrend)
}

func TestSnapshotOutbreakFlags(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	svc := newTestService(fixtureRepo(now), now)

	snap, err := svc.Snapshot(context.Background(), svc.WindowFromRange("7d"))
	require.NoError(t, err)

	// Clinic A has 3 positives and no baseline history; Clinic B sits at 1
	require.Len(t, snap.Clusters, 1)
	require.Equal(t, "Clinic A", snap.Clusters[0].Facility)
	require.Equal(t, 3, snap.Clusters[0].Cases)
}

func TestSnapshotEmptyWindow(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	svc := newTestService(&fakeReportsRepo{counts: map[domain.Status]int{}}, now)

	snap, err := svc.Snapshot(context.Background(), svc.WindowFromRange("30d"))
	require.NoError(t, err)

	require.Zero(t, snap.TotalApproved)
	require.Zero(t, snap.PositivityRate, "positivity is 0, never NaN, with no approvals")
	require.Zero(t, snap.AvgApprovalHours)
	require.Len(t, snap.DailyTrend, 7)
}

func TestSnapshotDegradesPartially(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	repo := fixtureRepo(now)
	repo.countErr = true
	repo.historyErr = true
	svc := newTestService(repo, now)
	w := svc.WindowFromRange("7d")
	repo.windowFrom = w.From

	snap, err := svc.Snapshot(context.Background(), w)
	require.NoError(t, err, "sub-metric failures degrade the snapshot, not fail it")

	require.Equal(t, 10, snap.TotalApproved)
	require.Zero(t, snap.TotalPending)
	require.Contains(t, snap.Degraded, "total_pending")
	require.Contains(t, snap.Degraded, "total_rejected")
	require.Contains(t, snap.Degraded, "trends")
	require.Contains(t, snap.Degraded, "clusters")
	require.Nil(t, snap.Trends)
}

func TestWindowFromRange(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	svc := newTestService(&fakeReportsRepo{}, now)

	for rng, days := range map[string]int{"7d": 7, "30d": 30, "90d": 90, "": 30, "bogus": 30} {
		w := svc.WindowFromRange(rng)
		require.Equal(t, now, w.To)
		require.Equal(t, now.AddDate(0, 0, -days), w.From, "range %q", rng)
	}
}
