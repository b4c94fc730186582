package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	domain "github.com/bryanwahyu/diagnoflow/internal/domain/diagnosis"
)

type AnalysisRepository struct{ db *sql.DB }

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository { return &AnalysisRepository{db: db} }

// Save inserts one immutable analysis
func (r *AnalysisRepository) Save(ctx context.Context, a *domain.Analysis) error {
	const q = `
INSERT INTO analyses (id, account_id, disease, facility, verdict, confidence, image_url, analyzed_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8);`
	analyzed := a.AnalyzedAt
	if analyzed.IsZero() {
		analyzed = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q,
		a.ID, a.AccountID, a.Disease, a.Facility, a.Verdict, a.Confidence, a.ImageURL, analyzed,
	)
	return err
}

// Get by ID
func (r *AnalysisRepository) Get(ctx context.Context, id domain.AnalysisID) (*domain.Analysis, error) {
	const q = `
SELECT id, account_id, disease, facility, verdict, confidence, image_url, analyzed_at
FROM analyses WHERE id=$1 LIMIT 1;`
	a, err := scanAnalysis(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

// Delete removes one record
func (r *AnalysisRepository) Delete(ctx context.Context, id domain.AnalysisID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM analyses WHERE id=$1;`, id)
	return err
}

// ListByAccount returns one account's analyses, newest first
func (r *AnalysisRepository) ListByAccount(ctx context.Context, accountID string, page, pageSize int) ([]*domain.Analysis, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	const q = `
SELECT id, account_id, disease, facility, verdict, confidence, image_url, analyzed_at
FROM analyses
WHERE account_id=$1 ORDER BY analyzed_at DESC, id DESC LIMIT $2 OFFSET $3;`
	rows, err := r.db.QueryContext(ctx, q, accountID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Analysis
	for rows.Next() {
		a, serr := scanAnalysis(rows)
		if serr != nil {
			return nil, serr
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CountByAccount counts one account's analyses
func (r *AnalysisRepository) CountByAccount(ctx context.Context, accountID string, positiveOnly bool) (int, error) {
	q := `SELECT COUNT(*) FROM analyses WHERE account_id=$1`
	if positiveOnly {
		q += ` AND verdict ILIKE '%positive%'`
	}
	var n int
	err := r.db.QueryRowContext(ctx, q, accountID).Scan(&n)
	return n, err
}

// CountAll counts every analysis
func (r *AnalysisRepository) CountAll(ctx context.Context, positiveOnly bool) (int, error) {
	q := `SELECT COUNT(*) FROM analyses`
	if positiveOnly {
		q += ` WHERE verdict ILIKE '%positive%'`
	}
	var n int
	err := r.db.QueryRowContext(ctx, q).Scan(&n)
	return n, err
}

// DailyCountsByAccount buckets one account's analyses per calendar day
func (r *AnalysisRepository) DailyCountsByAccount(ctx context.Context, accountID string, days int, now time.Time) ([]int, error) {
	if days <= 0 {
		days = 7
	}
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, -(days - 1))

	const q = `
SELECT DATE(analyzed_at)::text AS day, COUNT(*)
FROM analyses
WHERE account_id=$1 AND analyzed_at >= $2
GROUP BY DATE(analyzed_at);`
	rows, err := r.db.QueryContext(ctx, q, accountID, start)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byDay := map[string]int{}
	for rows.Next() {
		var day string
		var n int
		if err := rows.Scan(&day, &n); err != nil {
			return nil, err
		}
		byDay[day] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]int, days)
	for i := 0; i < days; i++ {
		out[i] = byDay[start.AddDate(0, 0, i).Format("2006-01-02")]
	}
	return out, nil
}

func scanAnalysis(row rowScanner) (*domain.Analysis, error) {
	a := &domain.Analysis{}
	var facility, imageURL sql.NullString
	if err := row.Scan(
		&a.ID, &a.AccountID, &a.Disease, &facility, &a.Verdict, &a.Confidence, &imageURL, &a.AnalyzedAt,
	); err != nil {
		return nil, err
	}
	a.Facility = facility.String
	a.ImageURL = imageURL.String
	return a, nil
}
