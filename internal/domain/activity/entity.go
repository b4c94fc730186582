package activity

import "time"

// Action labels, mirrored from the workflow operations that emit them
const (
	ActionReportSubmitted       = "report_submitted"
	ActionApprovedByMO          = "approved_by_mo"
	ActionRejectedByMO          = "rejected_by_mo"
	ActionApprovedByPathologist = "approved_by_pathologist"
	ActionRejectedByPathologist = "rejected_by_pathologist"
	ActionAnalysisCreated       = "analysis_created"
	ActionAnalysisDeleted       = "analysis_deleted"
	ActionDashboardViewed       = "dashboard_viewed"
	ActionDataExported          = "data_exported"
)

// Event is one append-only audit entry. Write-once: no update or delete
// exists anywhere in the public contract.
type Event struct {
	ID         string    `json:"id"`
	ActorID    string    `json:"actor_id"`
	ActorEmail string    `json:"actor_email"`
	ActorRole  string    `json:"actor_role"`
	Action     string    `json:"action"`
	Details    string    `json:"details,omitempty"`
	RelatedID  string    `json:"related_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
