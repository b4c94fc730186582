package reports

import (
	"errors"
	"testing"

	"github.com/bryanwahyu/diagnoflow/internal/domain/staff"
)

func TestNextValidEdges(t *testing.T) {
	cases := []struct {
		from     Status
		decision Decision
		role     staff.Role
		want     Status
	}{
		{StatusPending, DecisionApprove, staff.RoleMedicalOfficer, StatusSubmitted},
		{StatusPending, DecisionReject, staff.RoleMedicalOfficer, StatusRejectedByMO},
		{StatusSubmitted, DecisionApprove, staff.RolePathologist, StatusApproved},
		{StatusSubmitted, DecisionReject, staff.RolePathologist, StatusRejectedByPathologist},
	}
	for _, c := range cases {
		got, err := Next(c.from, c.decision, c.role)
		if err != nil {
			t.Errorf("Next(%s, %s, %s): %v", c.from, c.decision, c.role, err)
			continue
		}
		if got != c.want {
			t.Errorf("Next(%s, %s, %s) = %s, want %s", c.from, c.decision, c.role, got, c.want)
		}
	}
}

func TestNextRejectsWrongRole(t *testing.T) {
	// a pathologist cannot act on pending, an MO cannot act on submitted
	cases := []struct {
		from Status
		role staff.Role
	}{
		{StatusPending, staff.RolePathologist},
		{StatusPending, staff.RoleLabTechnician},
		{StatusPending, staff.RoleHealthOfficer},
		{StatusSubmitted, staff.RoleMedicalOfficer},
		{StatusSubmitted, staff.RoleAdmin},
	}
	for _, c := range cases {
		if _, err := Next(c.from, DecisionApprove, c.role); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("Next(%s, approve, %s) err = %v, want ErrInvalidTransition", c.from, c.role, err)
		}
	}
}

func TestNextTerminalStatesArePermanent(t *testing.T) {
	terminals := []Status{StatusApproved, StatusRejectedByMO, StatusRejectedByPathologist}
	roles := []staff.Role{staff.RoleLabTechnician, staff.RoleMedicalOfficer, staff.RolePathologist, staff.RoleHealthOfficer, staff.RoleAdmin}
	for _, s := range terminals {
		if !s.Terminal() {
			t.Errorf("%s.Terminal() = false", s)
		}
		for _, role := range roles {
			for _, d := range []Decision{DecisionApprove, DecisionReject} {
				if _, err := Next(s, d, role); !errors.Is(err, ErrInvalidTransition) {
					t.Errorf("Next(%s, %s, %s) err = %v, want ErrInvalidTransition", s, d, role, err)
				}
			}
		}
	}
}

func TestNextInvalidDecision(t *testing.T) {
	if _, err := Next(StatusPending, Decision("maybe"), staff.RoleMedicalOfficer); !errors.Is(err, ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestNonTerminalStates(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusSubmitted} {
		if s.Terminal() {
			t.Errorf("%s.Terminal() = true", s)
		}
	}
}
