package model

import "strings"

type Role string

const (
	RoleMember      Role = "Member"
	RoleCoordinator Role = "Coordinator"
	RoleAdmin       Role = "Admin"
	RoleSuperadmin  Role = "Superadmin"
)

// ParseRole matches case-insensitively and defaults to Member for empty input.
func ParseRole(s string) (Role, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return RoleMember, true
	}
	for _, r := range []Role{RoleMember, RoleCoordinator, RoleAdmin, RoleSuperadmin} {
		if strings.EqualFold(s, string(r)) {
			return r, true
		}
	}
	return "", false
}

// Privileged reports whether the role bypasses team-level checks.
func (r Role) Privileged() bool {
	return r == RoleAdmin || r == RoleSuperadmin
}

// Actor is the caller of a mutation as resolved by the auth layer.
type Actor struct {
	UserID string
	Role   Role
}
