package dashboard

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/diagnoflow/internal/application"
	"github.com/bryanwahyu/diagnoflow/internal/domain/diagnosis"
	"github.com/bryanwahyu/diagnoflow/internal/domain/reports"
	"github.com/bryanwahyu/diagnoflow/internal/domain/staff"
)

const (
	chartDays = 7
	// minBarHeight keeps non-zero days visible on the bar chart
	minBarHeight = 5
)

// View is one actor's dashboard: their own work plus work assigned to
// them, with a 7-day chart normalized for display alongside the raw
// counts it was derived from.
type View struct {
	Total            int `json:"total"`
	Positive         int `json:"positive"`
	Pending          int `json:"pending"`
	GeneratedReports int `json:"generated_reports"`

	ChartCounts     []int `json:"chart_counts"`     // raw daily counts, oldest first
	ChartNormalized []int `json:"chart_normalized"` // 0-100 bar heights
}

// Service is the personal sibling of the surveillance engine: same
// computational shape, but the visibility predicate comes from the
// actor's role rather than a free query.
type Service struct {
	Analyses diagnosis.Repository
	Reports  reports.Repository
	Clock    application.Clock
	Logger   *zap.Logger
}

// For computes the dashboard for one actor
func (s *Service) For(ctx context.Context, actor staff.Actor) (*View, error) {
	switch actor.Role {
	case staff.RoleMedicalOfficer:
		return s.forReviewer(ctx, actor, staff.RoleMedicalOfficer)
	case staff.RolePathologist:
		return s.forReviewer(ctx, actor, staff.RolePathologist)
	case staff.RoleAdmin:
		return s.forGlobal(ctx, actor)
	default:
		// technician, health officer: personal analyses
		return s.forPersonal(ctx, actor)
	}
}

// forGlobal is the admin view: counts across every account. The chart
// stays personal; a facility-wide chart belongs to surveillance.
func (s *Service) forGlobal(ctx context.Context, actor staff.Actor) (*View, error) {
	v := &View{}

	total, err := s.Analyses.CountAll(ctx, false)
	if err != nil {
		return nil, err
	}
	positive, err := s.Analyses.CountAll(ctx, true)
	if err != nil {
		return nil, err
	}
	v.Total = total
	v.Positive = positive

	now := s.Clock.Now()
	if n, rerr := s.Reports.CountByStatusBetween(ctx, reports.StatusPending, time.Time{}, now); rerr != nil {
		s.Logger.Warn("pending count unavailable", zap.Error(rerr))
	} else {
		v.Pending = n
	}
	if n, rerr := s.Reports.CountByStatusBetween(ctx, reports.StatusApproved, time.Time{}, now); rerr != nil {
		s.Logger.Warn("approved count unavailable", zap.Error(rerr))
	} else {
		v.GeneratedReports = n
	}

	return s.withChart(ctx, actor, v)
}

func (s *Service) forPersonal(ctx context.Context, actor staff.Actor) (*View, error) {
	v := &View{}

	total, err := s.Analyses.CountByAccount(ctx, actor.ID, false)
	if err != nil {
		return nil, err
	}
	positive, err := s.Analyses.CountByAccount(ctx, actor.ID, true)
	if err != nil {
		return nil, err
	}
	v.Total = total
	v.Positive = positive

	// technicians additionally see the reports they generated
	if actor.Role == staff.RoleLabTechnician {
		if n, rerr := s.Reports.CountBySubmitter(ctx, actor.ID); rerr != nil {
			s.Logger.Warn("report count unavailable", zap.String("actor_id", actor.ID), zap.Error(rerr))
		} else {
			v.GeneratedReports = n
		}
		if n, rerr := s.Reports.CountByReviewer(ctx, staff.RoleLabTechnician, actor.ID, reports.StatusPending); rerr == nil {
			v.Pending = n
		}
	}

	return s.withChart(ctx, actor, v)
}

func (s *Service) forReviewer(ctx context.Context, actor staff.Actor, role staff.Role) (*View, error) {
	v := &View{}

	// reviewers see their own classifier usage plus their review queue
	if n, err := s.Analyses.CountByAccount(ctx, actor.ID, false); err == nil {
		v.Total = n
	}
	if n, err := s.Analyses.CountByAccount(ctx, actor.ID, true); err == nil {
		v.Positive = n
	}

	// the MO queue is the shared pending pool (nothing is assigned to an
	// MO yet); a pathologist's queue is the reports routed to them on MO
	// approval
	var (
		pending int
		err     error
	)
	if role == staff.RoleMedicalOfficer {
		pending, err = s.Reports.CountByStatusBetween(ctx, reports.StatusPending, time.Time{}, s.Clock.Now())
	} else {
		pending, err = s.Reports.CountByReviewer(ctx, role, actor.ID, reports.StatusSubmitted)
	}
	if err != nil {
		return nil, err
	}
	v.Pending = pending

	approved, err := s.Reports.CountByReviewer(ctx, role, actor.ID, reports.StatusApproved)
	if err != nil {
		return nil, err
	}
	v.GeneratedReports = approved

	return s.withChart(ctx, actor, v)
}

func (s *Service) withChart(ctx context.Context, actor staff.Actor, v *View) (*View, error) {
	counts, err := s.Analyses.DailyCountsByAccount(ctx, actor.ID, chartDays, s.Clock.Now())
	if err != nil {
		s.Logger.Warn("chart data unavailable", zap.String("actor_id", actor.ID), zap.Error(err))
		counts = make([]int, chartDays)
	}
	v.ChartCounts = counts
	v.ChartNormalized = Normalize(counts)
	return v, nil
}

// Normalize scales daily counts to 0-100 bar heights. An all-zero week
// renders every bucket at the minimum visible height; otherwise zero days
// stay at 0 and non-zero days are floored at the minimum.
func Normalize(counts []int) []int {
	max := 0
	for _, c := range counts {
		if c > max {
			max = c
		}
	}

	out := make([]int, len(counts))
	for i, c := range counts {
		if max == 0 {
			out[i] = minBarHeight
			continue
		}
		if c == 0 {
			out[i] = 0
			continue
		}
		pct := int(math.Round(float64(c) / float64(max) * 100))
		if pct < minBarHeight {
			pct = minBarHeight
		}
		out[i] = pct
	}
	return out
}
