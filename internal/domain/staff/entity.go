package staff

// Role enum, closed set. Authorization is checked against these values
// at the state-machine boundary, never against raw strings from callers.
type Role string

const (
	RoleLabTechnician  Role = "lab_technician"
	RoleMedicalOfficer Role = "medical_officer"
	RolePathologist    Role = "pathologist"
	RoleHealthOfficer  Role = "health_officer"
	RoleAdmin          Role = "admin"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleLabTechnician, RoleMedicalOfficer, RolePathologist, RoleHealthOfficer, RoleAdmin:
		return true
	}
	return false
}

// Actor is a resolved identity. Identity/session resolution happens
// upstream; every core operation receives the Actor explicitly.
type Actor struct {
	ID    string `json:"id"`
	Role  Role   `json:"role"`
	Email string `json:"email"`
}

// Member is one row of the accounts table (read-only to this core)
type Member struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	FullName string `json:"full_name"`
	Status   string `json:"status"` // approved | suspended | pending
}
