package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	domain "github.com/bryanwahyu/diagnoflow/internal/domain/reports"
	"github.com/bryanwahyu/diagnoflow/internal/domain/staff"
)

type ReportRepository struct{ db *sql.DB }

func NewReportRepository(db *sql.DB) *ReportRepository { return &ReportRepository{db: db} }

const reportColumns = `id, analysis_id, status, submitted_by, submitted_at, created_at,
       medical_officer_id, mo_decision, mo_notes, mo_reviewed_at,
       pathologist_id, pathologist_decision, pathologist_notes, pathologist_reviewed_at`

// Create inserts the initial pending row
func (r *ReportRepository) Create(ctx context.Context, rep *domain.Report) error {
	const q = `
INSERT INTO reports (id, analysis_id, status, submitted_by, submitted_at, created_at)
VALUES ($1,$2,$3,$4,$5,$6);`
	_, err := r.db.ExecContext(ctx, q,
		rep.ID, rep.AnalysisID, rep.Status, rep.SubmittedBy, rep.SubmittedAt, rep.CreatedAt,
	)
	return err
}

// Get by ID
func (r *ReportRepository) Get(ctx context.Context, id domain.ReportID) (*domain.Report, error) {
	q := `SELECT ` + reportColumns + ` FROM reports WHERE id=$1 LIMIT 1;`
	rep, err := scanReport(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rep, err
}

// UpdateStatusCAS performs the transition as a compare-and-swap on the
// current status
func (r *ReportRepository) UpdateStatusCAS(ctx context.Context, id domain.ReportID, from domain.Status, upd domain.ReviewUpdate) (bool, error) {
	var res sql.Result
	var err error

	switch upd.To {
	case domain.StatusSubmitted, domain.StatusRejectedByMO:
		const q = `
UPDATE reports
SET status = $1,
    medical_officer_id = $2,
    mo_decision = $3,
    mo_notes = $4,
    mo_reviewed_at = $5,
    pathologist_id = COALESCE(NULLIF($6, ''), pathologist_id)
WHERE id = $7 AND status = $8;`
		res, err = r.db.ExecContext(ctx, q,
			upd.To, upd.ReviewerID, upd.Decision, upd.Notes, upd.ReviewedAt, upd.AssigneeID,
			id, from,
		)
	case domain.StatusApproved, domain.StatusRejectedByPathologist:
		const q = `
UPDATE reports
SET status = $1,
    pathologist_id = $2,
    pathologist_decision = $3,
    pathologist_notes = $4,
    pathologist_reviewed_at = $5
WHERE id = $6 AND status = $7;`
		res, err = r.db.ExecContext(ctx, q,
			upd.To, upd.ReviewerID, upd.Decision, upd.Notes, upd.ReviewedAt,
			id, from,
		)
	default:
		return false, fmt.Errorf("unsupported target status %q", upd.To)
	}
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Paginate with offset + limit
func (r *ReportRepository) Paginate(ctx context.Context, status domain.Status, page, pageSize int) (domain.PaginatedResult, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := `SELECT ` + reportColumns + ` FROM reports`
	countQuery := `SELECT COUNT(*) FROM reports`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = $1`
		countQuery += ` WHERE status = $1`
		args = append(args, status)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)

	rows, err := r.db.QueryContext(ctx, query, append(args, pageSize, offset)...)
	if err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("querying reports: %w", err)
	}
	defer rows.Close()

	var out []*domain.Report
	for rows.Next() {
		rep, serr := scanReport(rows)
		if serr != nil {
			return domain.PaginatedResult{}, fmt.Errorf("scanning row: %w", serr)
		}
		out = append(out, rep)
	}
	if err = rows.Err(); err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("iterating rows: %w", err)
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("getting total count: %w", err)
	}

	return domain.PaginatedResult{
		Data:       out,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}, nil
}

// ApprovedBetween joins approved reports with their analyses
func (r *ReportRepository) ApprovedBetween(ctx context.Context, from, to time.Time) ([]*domain.ApprovedCase, error) {
	const q = `
SELECT r.id, r.analysis_id, r.status, r.submitted_by, r.submitted_at, r.created_at,
       r.medical_officer_id, r.mo_decision, r.mo_notes, r.mo_reviewed_at,
       r.pathologist_id, r.pathologist_decision, r.pathologist_notes, r.pathologist_reviewed_at,
       a.disease, a.verdict, a.facility, a.confidence
FROM reports r
JOIN analyses a ON a.id = r.analysis_id
WHERE r.status = 'approved'
  AND r.pathologist_reviewed_at >= $1 AND r.pathologist_reviewed_at < $2
ORDER BY r.pathologist_reviewed_at DESC;`

	rows, err := r.db.QueryContext(ctx, q, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.ApprovedCase
	for rows.Next() {
		rep := &domain.Report{}
		c := &domain.ApprovedCase{Report: rep}
		var moID, moDecision, moNotes, paID, paDecision, paNotes, facility sql.NullString
		var moAt, paAt sql.NullTime
		if err := rows.Scan(
			&rep.ID, &rep.AnalysisID, &rep.Status, &rep.SubmittedBy, &rep.SubmittedAt, &rep.CreatedAt,
			&moID, &moDecision, &moNotes, &moAt,
			&paID, &paDecision, &paNotes, &paAt,
			&c.Disease, &c.Verdict, &facility, &c.Confidence,
		); err != nil {
			return nil, err
		}
		applyReviewColumns(rep, moID, moDecision, moNotes, moAt, paID, paDecision, paNotes, paAt)
		c.Facility = facility.String
		out = append(out, c)
	}
	return out, rows.Err()
}

// CountByStatusBetween counts reports in a window keyed on the timestamp
// that put them in that status
func (r *ReportRepository) CountByStatusBetween(ctx context.Context, status domain.Status, from, to time.Time) (int, error) {
	col := "created_at"
	switch status {
	case domain.StatusRejectedByMO:
		col = "mo_reviewed_at"
	case domain.StatusApproved, domain.StatusRejectedByPathologist:
		col = "pathologist_reviewed_at"
	}
	q := fmt.Sprintf(`SELECT COUNT(*) FROM reports WHERE status = $1 AND %s >= $2 AND %s < $3;`, col, col)
	var n int
	err := r.db.QueryRowContext(ctx, q, status, from, to).Scan(&n)
	return n, err
}

// CountBySubmitter counts all reports one technician generated
func (r *ReportRepository) CountBySubmitter(ctx context.Context, accountID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reports WHERE submitted_by = $1;`, accountID).Scan(&n)
	return n, err
}

// CountByReviewer counts reports visible to one actor in one status
func (r *ReportRepository) CountByReviewer(ctx context.Context, role staff.Role, accountID string, status domain.Status) (int, error) {
	col := "submitted_by"
	switch role {
	case staff.RoleMedicalOfficer:
		col = "medical_officer_id"
	case staff.RolePathologist:
		col = "pathologist_id"
	}
	q := fmt.Sprintf(`SELECT COUNT(*) FROM reports WHERE %s = $1 AND status = $2;`, col)
	var n int
	err := r.db.QueryRowContext(ctx, q, accountID, status).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReport(row rowScanner) (*domain.Report, error) {
	rep := &domain.Report{}
	var moID, moDecision, moNotes, paID, paDecision, paNotes sql.NullString
	var moAt, paAt sql.NullTime
	if err := row.Scan(
		&rep.ID, &rep.AnalysisID, &rep.Status, &rep.SubmittedBy, &rep.SubmittedAt, &rep.CreatedAt,
		&moID, &moDecision, &moNotes, &moAt,
		&paID, &paDecision, &paNotes, &paAt,
	); err != nil {
		return nil, err
	}
	applyReviewColumns(rep, moID, moDecision, moNotes, moAt, paID, paDecision, paNotes, paAt)
	return rep, nil
}

func applyReviewColumns(rep *domain.Report, moID, moDecision, moNotes sql.NullString, moAt sql.NullTime, paID, paDecision, paNotes sql.NullString, paAt sql.NullTime) {
	rep.MedicalOfficerID = moID.String
	rep.MODecision = moDecision.String
	rep.MONotes = moNotes.String
	if moAt.Valid {
		t := moAt.Time
		rep.MOReviewedAt = &t
	}
	rep.PathologistID = paID.String
	rep.PathologistDecision = paDecision.String
	rep.PathologistNotes = paNotes.String
	if paAt.Valid {
		t := paAt.Time
		rep.PathologistReviewedAt = &t
	}
}
