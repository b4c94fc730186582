package reports

import (
	"context"
	"time"

	"github.com/bryanwahyu/diagnoflow/internal/domain/staff"
)

// ReviewUpdate carries the side-effect fields of one transition. Persisted
// atomically together with the status change.
type ReviewUpdate struct {
	To         Status
	ReviewerID string
	Decision   string // approved | rejected
	Notes      string
	ReviewedAt time.Time
	// AssigneeID is the pathologist picked on MO approval, empty otherwise
	AssigneeID string
}

// ApprovedCase is the surveillance read-model row: a report joined with
// its analysis, keyed on the pathologist decision timestamp.
type ApprovedCase struct {
	Report  *Report
	Disease string
	Verdict string
	// Facility the sample came from, for outbreak clustering
	Facility   string
	Confidence float64
}

// Repository port (interface untuk persistence)
type Repository interface {
	Create(ctx context.Context, r *Report) error
	Get(ctx context.Context, id ReportID) (*Report, error)
	// UpdateStatusCAS applies upd only when the report is still in `from`.
	// Returns false (and no error) when the row exists but the status
	// already moved, so a losing racer can be told apart from a missing id.
	UpdateStatusCAS(ctx context.Context, id ReportID, from Status, upd ReviewUpdate) (bool, error)
	Paginate(ctx context.Context, status Status, page, pageSize int) (PaginatedResult, error)

	// read side, used by the aggregation engines
	ApprovedBetween(ctx context.Context, from, to time.Time) ([]*ApprovedCase, error)
	CountByStatusBetween(ctx context.Context, status Status, from, to time.Time) (int, error)
	CountBySubmitter(ctx context.Context, accountID string) (int, error)
	CountByReviewer(ctx context.Context, role staff.Role, accountID string, status Status) (int, error)
}

// AssignmentPolicy picks the pathologist who will receive a report once a
// medical officer approves it. Pluggable: the right rule (round-robin,
// load-balanced, specialty-matched) is still an open policy question.
type AssignmentPolicy interface {
	Assign(ctx context.Context, candidates []*staff.Member) (*staff.Member, error)
}

// PaginatedResult represents a paginated response with data and metadata
type PaginatedResult struct {
	Data       []*Report `json:"data"`
	Page       int       `json:"page"`
	PageSize   int       `json:"pageSize"`
	Total      int64     `json:"totalItems"`
	TotalPages int       `json:"totalPages"`
}
