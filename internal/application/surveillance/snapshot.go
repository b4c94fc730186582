package surveillance

import "time"

// Window is one aggregation time range, inclusive start, exclusive end
type Window struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Duration of the window
func (w Window) Duration() time.Duration { return w.To.Sub(w.From) }

// Previous returns the window of equal length immediately preceding w
func (w Window) Previous() Window {
	return Window{From: w.From.Add(-w.Duration()), To: w.From}
}

// TrendPoint is one day bucket of the 7-day approved trend
type TrendPoint struct {
	Date  string `json:"date"` // e.g. "Jan 2"
	Cases int    `json:"cases"`
}

// LeaderboardEntry is one row of a staff throughput ranking
type LeaderboardEntry struct {
	AccountID string `json:"account_id"`
	Name      string `json:"name"`
	Count     int    `json:"count"`
}

// StaffPerformance holds the top-5 rankings per role
type StaffPerformance struct {
	LabTechs        []LeaderboardEntry `json:"lab_techs"`
	MedicalOfficers []LeaderboardEntry `json:"medical_officers"`
	Pathologists    []LeaderboardEntry `json:"pathologists"`
}

// PeriodDeltas compares the window against the immediately preceding one.
// A nil delta means the previous denominator was zero and the change is
// undefined, never NaN or Inf.
type PeriodDeltas struct {
	PrevTotal          int      `json:"prev_total"`
	PrevPositive       int      `json:"prev_positive"`
	PrevPositivityRate float64  `json:"prev_positivity_rate"`
	TotalTrend         *float64 `json:"total_trend,omitempty"`
	PositiveTrend      *float64 `json:"positive_trend,omitempty"`
	RateTrend          *float64 `json:"rate_trend,omitempty"`
}

// OutbreakFlag marks a facility whose positives exceed its baseline
type OutbreakFlag struct {
	Facility  string  `json:"facility"`
	Cases     int     `json:"cases"`
	Baseline  float64 `json:"baseline"`
	Threshold float64 `json:"threshold"`
}

// RecentCase is one row of the recent approved cases table
type RecentCase struct {
	ReportID        string     `json:"report_id"`
	Disease         string     `json:"disease"`
	Facility        string     `json:"facility,omitempty"`
	Verdict         string     `json:"verdict"`
	Confidence      float64    `json:"confidence"`
	SubmittedBy     string     `json:"submitted_by"`
	SubmittedAt     time.Time  `json:"submitted_at"`
	ReviewedByMO    string     `json:"reviewed_by_mo"`
	VerifiedBy      string     `json:"verified_by"`
	VerifiedAt      *time.Time `json:"verified_at,omitempty"`
	ApprovalHours   float64    `json:"approval_hours"`
	MONotes         string     `json:"mo_notes,omitempty"`
	PathologistNote string     `json:"pathologist_note,omitempty"`
}

// Snapshot is the computed surveillance view for one window. Regenerated
// on every query, never persisted.
type Snapshot struct {
	Window Window `json:"window"`

	TotalApproved int `json:"total_approved"`
	TotalPending  int `json:"total_pending"`
	TotalRejected int `json:"total_rejected"`
	PositiveCases int `json:"positive_cases"`
	NegativeCases int `json:"negative_cases"`

	PositivityRate   float64 `json:"positivity_rate"`    // percent, 0 when no approvals
	AvgApprovalHours float64 `json:"avg_approval_hours"` // 0 when no approvals

	DailyTrend       []TrendPoint     `json:"daily_trend"` // exactly 7 entries, oldest first
	DiseaseBreakdown map[string]int   `json:"disease_breakdown"`
	StaffPerformance StaffPerformance `json:"staff_performance"`
	Trends           *PeriodDeltas    `json:"trends,omitempty"`
	Clusters         []OutbreakFlag   `json:"clusters"`
	RecentApproved   []RecentCase     `json:"recent_approved"`

	// Degraded lists sub-metrics that failed to compute; the rest of the
	// snapshot is still served
	Degraded []string `json:"degraded,omitempty"`
}
