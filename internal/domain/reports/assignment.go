package reports

import (
	"context"
	"errors"
	"sync"

	"github.com/bryanwahyu/diagnoflow/internal/domain/staff"
)

// ErrNoPathologistAvailable indicates there is no active approved
// pathologist to receive an MO-approved report.
var ErrNoPathologistAvailable = errors.New("no pathologist available for assignment")

// FirstAvailablePolicy picks the first active pathologist, matching the
// original dispatch behaviour.
type FirstAvailablePolicy struct{}

func (FirstAvailablePolicy) Assign(_ context.Context, candidates []*staff.Member) (*staff.Member, error) {
	if len(candidates) == 0 {
		return nil, ErrNoPathologistAvailable
	}
	return candidates[0], nil
}

// RoundRobinPolicy rotates through the candidate list across calls
type RoundRobinPolicy struct {
	mu   sync.Mutex
	next int
}

func (p *RoundRobinPolicy) Assign(_ context.Context, candidates []*staff.Member) (*staff.Member, error) {
	if len(candidates) == 0 {
		return nil, ErrNoPathologistAvailable
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	m := candidates[p.next%len(candidates)]
	p.next++
	return m, nil
}
