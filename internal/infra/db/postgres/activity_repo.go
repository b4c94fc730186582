package postgres

import (
	"context"
	"database/sql"
	"fmt"

	domain "github.com/bryanwahyu/diagnoflow/internal/domain/activity"
)

// ActivityRepository persists audit events, append-only
type ActivityRepository struct{ db *sql.DB }

func NewActivityRepository(db *sql.DB) *ActivityRepository { return &ActivityRepository{db: db} }

// Append writes one event; ON CONFLICT DO NOTHING makes the
// deterministic-id retry idempotent
func (r *ActivityRepository) Append(ctx context.Context, e *domain.Event) error {
	const q = `
INSERT INTO activity_events
(id, actor_id, actor_email, actor_role, action, details, related_id, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO NOTHING;`
	_, err := r.db.ExecContext(ctx, q,
		e.ID, e.ActorID, e.ActorEmail, e.ActorRole, e.Action, e.Details, e.RelatedID, e.CreatedAt,
	)
	return err
}

// Query returns events newest first, ties broken by insertion sequence
func (r *ActivityRepository) Query(ctx context.Context, f domain.Filter) ([]*domain.Event, error) {
	q := `
SELECT id, actor_id, actor_email, actor_role, action, details, related_id, created_at, seq
FROM activity_events WHERE 1=1`
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.ActorID != "" {
		q += ` AND actor_id = ` + arg(f.ActorID)
	}
	if f.Role != "" {
		q += ` AND actor_role = ` + arg(f.Role)
	}
	if !f.From.IsZero() {
		q += ` AND created_at >= ` + arg(f.From)
	}
	if !f.To.IsZero() {
		q += ` AND created_at < ` + arg(f.To)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	q += ` ORDER BY created_at DESC, seq DESC LIMIT ` + arg(limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Event
	for rows.Next() {
		e := &domain.Event{}
		var details, related sql.NullString
		var seq int64
		if err := rows.Scan(
			&e.ID, &e.ActorID, &e.ActorEmail, &e.ActorRole, &e.Action, &details, &related, &e.CreatedAt, &seq,
		); err != nil {
			return nil, err
		}
		e.Details = details.String
		e.RelatedID = related.String
		out = append(out, e)
	}
	return out, rows.Err()
}
