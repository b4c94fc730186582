package activity

import (
	"context"
	"time"
)

// Filter narrows a Query. Zero values mean "no constraint".
type Filter struct {
	ActorID string
	Role    string
	From    time.Time
	To      time.Time
	Limit   int
}

// Repository defines persistence for audit events. Append-only by
// contract: implementations expose no update or delete.
type Repository interface {
	Append(ctx context.Context, e *Event) error
	// Query returns events newest first (created_at desc, insertion order
	// breaking ties)
	Query(ctx context.Context, f Filter) ([]*Event, error)
}
