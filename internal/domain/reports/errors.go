package reports

import (
	"errors"
	"fmt"

	"github.com/bryanwahyu/diagnoflow/internal/domain/staff"
)

// ErrNotFound indicates an unknown analysis or report id
var ErrNotFound = errors.New("report not found")

// ErrInvalidTransition indicates a role mismatch or wrong source state.
// The report is left unchanged.
var ErrInvalidTransition = errors.New("invalid transition")

// ErrValidation indicates malformed input to a public operation
var ErrValidation = errors.New("validation error")

// ErrAuditWriteFailed is non-fatal: the primary mutation stands, the
// audit append could not be completed after retry.
var ErrAuditWriteFailed = errors.New("audit write failed")

// transitionError builds a role-specific message so staff understand why
// an action was blocked, wrapping ErrInvalidTransition.
func transitionError(from Status, d Decision, role staff.Role) error {
	switch {
	case role == staff.RoleMedicalOfficer && from != StatusPending:
		return fmt.Errorf("%w: medical officer can only review pending reports (report is %s)", ErrInvalidTransition, from)
	case role == staff.RolePathologist && from != StatusSubmitted:
		return fmt.Errorf("%w: pathologist can only review reports cleared by a medical officer (report is %s)", ErrInvalidTransition, from)
	case role != staff.RoleMedicalOfficer && role != staff.RolePathologist:
		return fmt.Errorf("%w: role %s may not review reports", ErrInvalidTransition, role)
	}
	return fmt.Errorf("%w: %s as %s from %s", ErrInvalidTransition, d, role, from)
}
