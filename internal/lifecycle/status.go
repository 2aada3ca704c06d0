// Package lifecycle derives the progress label of a tree request from the
// facts recorded about it. Labels are never stored.
package lifecycle

// Status is one of the six labels a tree request can be in.
type Status string

const (
	StatusPendingApproval    Status = "pending approval"
	StatusNeedsPermit        Status = "needs permit"
	StatusWaitingForVisit    Status = "waiting for visit"
	StatusWaitingForPlanting Status = "waiting for planting"
	StatusCompleted          Status = "completed"
	StatusDenied             Status = "denied"
)

// Permit statuses as stored in permits.status.
const (
	PermitPending  = "pending"
	PermitApproved = "approved"
	PermitDenied   = "denied"
)

// Facts are the inputs of Derive. Approved is nil while staff have not
// decided. PermitStatus is empty when no permit row exists.
type Facts struct {
	Approved          *bool
	PermitStatus      string
	VisitRecorded     bool
	PlantingSucceeded bool
}

// Derive returns exactly one label for any combination of facts.
// The evaluation order is shared with get_tree_request_status in
// db/migrations/0002_tree_request_status.up.sql.
func Derive(f Facts) Status {
	if (f.Approved != nil && !*f.Approved) || f.PermitStatus == PermitDenied {
		return StatusDenied
	}
	if f.PermitStatus != PermitApproved {
		return StatusNeedsPermit
	}
	if f.Approved == nil {
		return StatusPendingApproval
	}
	if !f.VisitRecorded {
		return StatusWaitingForVisit
	}
	if !f.PlantingSucceeded {
		return StatusWaitingForPlanting
	}
	return StatusCompleted
}

// ValidPermitStatus reports whether value may be written to permits.status.
func ValidPermitStatus(value string) bool {
	switch value {
	case PermitPending, PermitApproved, PermitDenied:
		return true
	default:
		return false
	}
}
