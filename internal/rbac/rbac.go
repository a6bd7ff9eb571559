package rbac

type Role string
type Action string

const (
	RoleContributor Role = "contributor"
	RoleModerator   Role = "moderator"
	RoleAdmin       Role = "admin"
)

const (
	ActionRead     Action = "read"
	ActionPropose  Action = "propose"
	ActionComment  Action = "comment"
	ActionModerate Action = "moderate"
)

func Can(role Role, action Action) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleModerator:
		return action == ActionRead || action == ActionPropose || action == ActionComment || action == ActionModerate
	case RoleContributor:
		return action == ActionRead || action == ActionPropose || action == ActionComment
	default:
		return false
	}
}

// Normalize maps unknown or empty roles to contributor.
func Normalize(role string) Role {
	switch Role(role) {
	case RoleContributor, RoleModerator, RoleAdmin:
		return Role(role)
	default:
		return RoleContributor
	}
}
