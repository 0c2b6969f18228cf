package rbac

import "fmt"

const (
	PermissionGoalWrite      = "goal:write"
	PermissionPostCreate     = "post:create"
	PermissionPostDeleteAny  = "post:delete_any"
	PermissionCommunityAdmin = "community:admin"
	PermissionAssistantChat  = "assistant:chat"
	PermissionOutboxReplay   = "outbox:replay"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var rolePermissions = map[string][]string{
	RoleUser: {
		PermissionGoalWrite,
		PermissionPostCreate,
		PermissionAssistantChat,
	},
	RoleAdmin: {
		PermissionGoalWrite,
		PermissionPostCreate,
		PermissionAssistantChat,
		PermissionPostDeleteAny,
		PermissionCommunityAdmin,
		PermissionOutboxReplay,
	},
}

// NormalizeRole maps an unknown or empty role claim to RoleUser.
func NormalizeRole(role string) string {
	if _, ok := rolePermissions[role]; ok {
		return role
	}
	return RoleUser
}

func HasPermission(role, permission string) bool {
	for _, p := range rolePermissions[NormalizeRole(role)] {
		if p == permission {
			return true
		}
	}
	return false
}

// CheckPermission returns a *PermissionDeniedError when role lacks permission.
func CheckPermission(userID, role, permission string) error {
	if !HasPermission(role, permission) {
		return &PermissionDeniedError{UserID: userID, Role: role, Permission: permission}
	}
	return nil
}

type PermissionDeniedError struct {
	UserID     string
	Role       string
	Permission string
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("insufficient permissions: %s", e.Permission)
}
