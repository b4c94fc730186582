package surveillance

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/bryanwahyu/diagnoflow/internal/application"
	"github.com/bryanwahyu/diagnoflow/internal/domain/diagnosis"
	domain "github.com/bryanwahyu/diagnoflow/internal/domain/reports"
	"github.com/bryanwahyu/diagnoflow/internal/domain/staff"
)

const (
	leaderboardSize = 5
	recentCasesSize = 10
	trendDays       = 7
)

// Service is the read-side surveillance engine: a deterministic,
// idempotent projection over report history. It performs no writes and
// takes no locks; a report transitioning mid-pass lands in either the old
// or the new bucket, which is acceptable.
type Service struct {
	Reports   domain.Repository
	Directory staff.Directory
	Outbreak  OutbreakPolicy
	// BaselineWindows is how many trailing windows feed the outbreak
	// baseline average
	BaselineWindows int
	Clock           application.Clock
	Logger          *zap.Logger
}

// WindowFromRange resolves "7d" / "30d" / "90d" relative to now
func (s *Service) WindowFromRange(rng string) Window {
	days := 30
	switch rng {
	case "7d":
		days = 7
	case "90d":
		days = 90
	}
	now := s.Clock.Now()
	return Window{From: now.AddDate(0, 0, -days), To: now}
}

// Snapshot computes the full surveillance view for one window. Sub-metric
// failures degrade the snapshot instead of failing it: the metric is
// zero-valued and listed under Degraded.
func (s *Service) Snapshot(ctx context.Context, w Window) (*Snapshot, error) {
	snap := &Snapshot{
		Window:           w,
		DiseaseBreakdown: map[string]int{},
		DailyTrend:       make([]TrendPoint, 0, trendDays),
		Clusters:         []OutbreakFlag{},
	}

	cases, err := s.Reports.ApprovedBetween(ctx, w.From, w.To)
	if err != nil {
		// everything downstream depends on the approved set
		return nil, fmt.Errorf("approved reports: %w", err)
	}

	snap.TotalApproved = len(cases)
	snap.PositiveCases = lo.CountBy(cases, func(c *domain.ApprovedCase) bool {
		return diagnosis.VerdictPositive(c.Verdict)
	})
	snap.NegativeCases = lo.CountBy(cases, func(c *domain.ApprovedCase) bool {
		return diagnosis.VerdictNegative(c.Verdict)
	})
	if snap.TotalApproved > 0 {
		snap.PositivityRate = float64(snap.PositiveCases) / float64(snap.TotalApproved) * 100
	}

	snap.TotalPending = s.countOrDegrade(ctx, snap, domain.StatusPending, w, "total_pending")
	snap.TotalRejected = s.countOrDegrade(ctx, snap, domain.StatusRejectedByMO, w, "total_rejected") +
		s.countOrDegrade(ctx, snap, domain.StatusRejectedByPathologist, w, "total_rejected")

	snap.AvgApprovalHours = avgApprovalHours(cases)
	snap.DailyTrend = s.dailyTrend(cases)

	for _, c := range cases {
		snap.DiseaseBreakdown[c.Disease]++
	}

	snap.StaffPerformance = s.leaderboards(ctx, cases)
	snap.RecentApproved = s.recentCases(ctx, cases)

	if deltas, derr := s.periodDeltas(ctx, w, snap); derr != nil {
		s.degrade(snap, "trends", derr)
	} else {
		snap.Trends = deltas
	}

	if flags, ferr := s.outbreakFlags(ctx, w, cases); ferr != nil {
		s.degrade(snap, "clusters", ferr)
	} else {
		snap.Clusters = flags
	}

	return snap, nil
}

func (s *Service) countOrDegrade(ctx context.Context, snap *Snapshot, status domain.Status, w Window, metric string) int {
	n, err := s.Reports.CountByStatusBetween(ctx, status, w.From, w.To)
	if err != nil {
		s.degrade(snap, metric, err)
		return 0
	}
	return n
}

func (s *Service) degrade(snap *Snapshot, metric string, err error) {
	if !lo.Contains(snap.Degraded, metric) {
		snap.Degraded = append(snap.Degraded, metric)
	}
	s.Logger.Warn("surveillance sub-metric unavailable", zap.String("metric", metric), zap.Error(err))
}

func avgApprovalHours(cases []*domain.ApprovedCase) float64 {
	var sum float64
	var n int
	for _, c := range cases {
		r := c.Report
		if r.SubmittedAt.IsZero() || r.PathologistReviewedAt == nil {
			continue
		}
		sum += r.PathologistReviewedAt.Sub(r.SubmittedAt).Hours()
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// dailyTrend buckets approvals into the trailing 7 calendar days, oldest
// first, zero-filled
func (s *Service) dailyTrend(cases []*domain.ApprovedCase) []TrendPoint {
	now := s.Clock.Now()
	out := make([]TrendPoint, 0, trendDays)
	for i := trendDays - 1; i >= 0; i-- {
		day := now.AddDate(0, 0, -i)
		start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
		end := start.AddDate(0, 0, 1)

		n := lo.CountBy(cases, func(c *domain.ApprovedCase) bool {
			t := c.Report.PathologistReviewedAt
			return t != nil && !t.Before(start) && t.Before(end)
		})
		out = append(out, TrendPoint{Date: start.Format("Jan 2"), Cases: n})
	}
	return out
}

// leaderboards ranks staff by approved-report count. Ties keep first-seen
// order, matching the stable iteration the dashboard always showed.
func (s *Service) leaderboards(ctx context.Context, cases []*domain.ApprovedCase) StaffPerformance {
	return StaffPerformance{
		LabTechs:        s.topN(ctx, cases, func(r *domain.Report) string { return r.SubmittedBy }),
		MedicalOfficers: s.topN(ctx, cases, func(r *domain.Report) string { return r.MedicalOfficerID }),
		Pathologists:    s.topN(ctx, cases, func(r *domain.Report) string { return r.PathologistID }),
	}
}

func (s *Service) topN(ctx context.Context, cases []*domain.ApprovedCase, key func(*domain.Report) string) []LeaderboardEntry {
	counts := map[string]int{}
	var order []string
	for _, c := range cases {
		id := key(c.Report)
		if id == "" {
			continue
		}
		if _, seen := counts[id]; !seen {
			order = append(order, id)
		}
		counts[id]++
	}

	entries := lo.Map(order, func(id string, _ int) LeaderboardEntry {
		return LeaderboardEntry{AccountID: id, Name: s.nameOf(ctx, id), Count: counts[id]}
	})
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Count > entries[j].Count })
	if len(entries) > leaderboardSize {
		entries = entries[:leaderboardSize]
	}
	return entries
}

func (s *Service) recentCases(ctx context.Context, cases []*domain.ApprovedCase) []RecentCase {
	recent := cases
	if len(recent) > recentCasesSize {
		recent = recent[:recentCasesSize]
	}
	return lo.Map(recent, func(c *domain.ApprovedCase, _ int) RecentCase {
		r := c.Report
		rc := RecentCase{
			ReportID:        string(r.ID),
			Disease:         c.Disease,
			Facility:        c.Facility,
			Verdict:         c.Verdict,
			Confidence:      c.Confidence,
			SubmittedBy:     s.nameOf(ctx, r.SubmittedBy),
			SubmittedAt:     r.SubmittedAt,
			ReviewedByMO:    s.nameOf(ctx, r.MedicalOfficerID),
			VerifiedBy:      s.nameOf(ctx, r.PathologistID),
			VerifiedAt:      r.PathologistReviewedAt,
			MONotes:         r.MONotes,
			PathologistNote: r.PathologistNotes,
		}
		if !r.SubmittedAt.IsZero() && r.PathologistReviewedAt != nil {
			rc.ApprovalHours = r.PathologistReviewedAt.Sub(r.SubmittedAt).Hours()
		}
		return rc
	})
}

// periodDeltas recomputes the preceding window of equal length. Deltas
// stay nil whenever the previous denominator is zero.
func (s *Service) periodDeltas(ctx context.Context, w Window, snap *Snapshot) (*PeriodDeltas, error) {
	prev := w.Previous()
	prevCases, err := s.Reports.ApprovedBetween(ctx, prev.From, prev.To)
	if err != nil {
		return nil, err
	}

	d := &PeriodDeltas{PrevTotal: len(prevCases)}
	d.PrevPositive = lo.CountBy(prevCases, func(c *domain.ApprovedCase) bool {
		return diagnosis.VerdictPositive(c.Verdict)
	})
	if d.PrevTotal > 0 {
		d.PrevPositivityRate = float64(d.PrevPositive) / float64(d.PrevTotal) * 100
	}

	d.TotalTrend = pctChange(snap.TotalApproved, d.PrevTotal)
	d.PositiveTrend = pctChange(snap.PositiveCases, d.PrevPositive)
	d.RateTrend = pctChangeF(snap.PositivityRate, d.PrevPositivityRate)
	return d, nil
}

func pctChange(cur, prev int) *float64 {
	return pctChangeF(float64(cur), float64(prev))
}

func pctChangeF(cur, prev float64) *float64 {
	if prev == 0 {
		return nil
	}
	v := (cur - prev) / prev * 100
	return &v
}

// outbreakFlags compares each facility's window positives to the mean of
// its trailing baseline windows
func (s *Service) outbreakFlags(ctx context.Context, w Window, cases []*domain.ApprovedCase) ([]OutbreakFlag, error) {
	windows := s.BaselineWindows
	if windows <= 0 {
		windows = 3
	}
	baselineFrom := w.From.Add(-time.Duration(windows) * w.Duration())
	history, err := s.Reports.ApprovedBetween(ctx, baselineFrom, w.From)
	if err != nil {
		return nil, err
	}

	current := facilityPositives(cases)
	past := facilityPositives(history)

	flags := []OutbreakFlag{}
	for _, facility := range sortedKeys(current) {
		n := current[facility]
		baseline := float64(past[facility]) / float64(windows)
		if threshold, flagged := s.Outbreak.Flag(n, baseline); flagged {
			flags = append(flags, OutbreakFlag{
				Facility:  facility,
				Cases:     n,
				Baseline:  baseline,
				Threshold: threshold,
			})
		}
	}
	return flags, nil
}

func facilityPositives(cases []*domain.ApprovedCase) map[string]int {
	out := map[string]int{}
	for _, c := range cases {
		if c.Facility == "" || !diagnosis.VerdictPositive(c.Verdict) {
			continue
		}
		out[c.Facility]++
	}
	return out
}

func sortedKeys(m map[string]int) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}

func (s *Service) nameOf(ctx context.Context, accountID string) string {
	if accountID == "" {
		return "Unknown"
	}
	name, err := s.Directory.DisplayName(ctx, accountID)
	if err != nil || name == "" {
		return "Unknown"
	}
	return name
}
