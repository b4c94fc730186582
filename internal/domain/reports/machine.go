package reports

import "github.com/bryanwahyu/diagnoflow/internal/domain/staff"

// transitionKey identifies one edge of the approval state machine
type transitionKey struct {
	From     Status
	Decision Decision
	Role     staff.Role
}

// transitions is the full capability table. Anything not listed here is
// rejected, so authorization lives in one place instead of UI conditionals.
var transitions = map[transitionKey]Status{
	{StatusPending, DecisionApprove, staff.RoleMedicalOfficer}: StatusSubmitted,
	{StatusPending, DecisionReject, staff.RoleMedicalOfficer}:  StatusRejectedByMO,
	{StatusSubmitted, DecisionApprove, staff.RolePathologist}:  StatusApproved,
	{StatusSubmitted, DecisionReject, staff.RolePathologist}:   StatusRejectedByPathologist,
}

// Next resolves the target status for (from, decision, role). Returns
// ErrInvalidTransition with a role-specific message when the triple is
// not an edge of the machine.
func Next(from Status, d Decision, role staff.Role) (Status, error) {
	if !d.Valid() {
		return "", ErrValidation
	}
	to, ok := transitions[transitionKey{From: from, Decision: d, Role: role}]
	if !ok {
		return "", transitionError(from, d, role)
	}
	return to, nil
}
