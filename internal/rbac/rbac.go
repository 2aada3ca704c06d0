package rbac

type Role string
type Action string

const (
	RoleResident  Role = "resident"
	RoleVolunteer Role = "volunteer"
	RoleOrganizer Role = "organizer"
)

const (
	// ActionRequestTree covers a resident's own requests and volunteer applications.
	ActionRequestTree Action = "request_tree"
	ActionAttend      Action = "attend_planting"
	ActionManage      Action = "manage_program"
	ActionReport      Action = "view_reports"
)

func Can(role Role, action Action) bool {
	switch role {
	case RoleOrganizer:
		return true
	case RoleVolunteer:
		return action == ActionRequestTree || action == ActionAttend
	case RoleResident:
		return action == ActionRequestTree
	default:
		return false
	}
}

// For maps the stored resident flags to a role. Organization membership
// outranks volunteering.
func For(isVolunteer, isOrganizationMember bool) Role {
	switch {
	case isOrganizationMember:
		return RoleOrganizer
	case isVolunteer:
		return RoleVolunteer
	default:
		return RoleResident
	}
}
