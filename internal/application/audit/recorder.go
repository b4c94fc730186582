package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/diagnoflow/internal/domain/activity"
	"github.com/bryanwahyu/diagnoflow/internal/domain/staff"
)

// eventNamespace scopes deterministic event ids to this log
var eventNamespace = uuid.MustParse("7c9e6679-7425-40de-944b-e07fc1f90ae7")

// Recorder is the write side of the audit trail. Appends never fail
// silently: a failed write is retried once and then logged, but the
// caller's primary mutation is never rolled back because of it.
type Recorder struct {
	Repo   activity.Repository
	Clock  interface{ Now() time.Time }
	Logger *zap.Logger
	// OnFailure, when set, is notified after a write fails the retry
	OnFailure func()
}

// Record appends one event and returns its id. The id is derived from
// (actor, action, related id, timestamp) so the retry is idempotent
// under a unique index on the id column.
func (r *Recorder) Record(ctx context.Context, actor staff.Actor, action, details, relatedID string) (string, error) {
	now := r.Clock.Now()
	e := &activity.Event{
		ID:         deterministicID(actor.ID, action, relatedID, now),
		ActorID:    actor.ID,
		ActorEmail: actor.Email,
		ActorRole:  string(actor.Role),
		Action:     action,
		Details:    details,
		RelatedID:  relatedID,
		CreatedAt:  now,
	}

	err := r.Repo.Append(ctx, e)
	if err != nil {
		err = r.Repo.Append(ctx, e)
	}
	if err != nil {
		r.Logger.Error("audit append failed after retry",
			zap.String("action", action),
			zap.String("actor_id", actor.ID),
			zap.String("related_id", relatedID),
			zap.Error(err),
		)
		if r.OnFailure != nil {
			r.OnFailure()
		}
		return e.ID, err
	}
	return e.ID, nil
}

// Query reads events newest first
func (r *Recorder) Query(ctx context.Context, f activity.Filter) ([]*activity.Event, error) {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}
	return r.Repo.Query(ctx, f)
}

func deterministicID(actorID, action, relatedID string, ts time.Time) string {
	name := fmt.Sprintf("%s|%s|%s|%d", actorID, action, relatedID, ts.UnixNano())
	return uuid.NewSHA1(eventNamespace, []byte(name)).String()
}
