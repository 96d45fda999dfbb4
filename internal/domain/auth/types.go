package auth

// Package auth contains domain-level types for visitor sessions and roles.
// It is pure and free of framework/adapter concerns.

// Role represents the authorization level of a visitor.
// The string form is the persisted representation.
type Role string

const (
	RoleUnauthenticated Role = ""
	RoleAdmin           Role = "admin"
	RoleAlumni          Role = "alumni"
)

// Server-side spellings of the roles as reported by the login endpoint and
// embedded in profile records.
const (
	serverRoleAdmin  = "Admin"
	serverRoleAlumni = "Alumni"
)

// ParseServerRole maps the server-supplied role string to a Role.
// Only the exact spellings "Admin" and "Alumni" are accepted.
func ParseServerRole(s string) (Role, bool) {
	switch s {
	case serverRoleAdmin:
		return RoleAdmin, true
	case serverRoleAlumni:
		return RoleAlumni, true
	default:
		return RoleUnauthenticated, false
	}
}

// ParseStoredRole maps the persisted role string back to a Role.
func ParseStoredRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleAlumni:
		return Role(s), true
	default:
		return RoleUnauthenticated, false
	}
}

// ServerName returns the server-side spelling of the role, or "" when unauthenticated.
func (r Role) ServerName() string {
	switch r {
	case RoleAdmin:
		return serverRoleAdmin
	case RoleAlumni:
		return serverRoleAlumni
	default:
		return ""
	}
}

// IsAuthenticated reports whether the role represents a signed-in visitor.
func (r Role) IsAuthenticated() bool {
	return r == RoleAdmin || r == RoleAlumni
}

// Session is a read-only snapshot of a visitor's session context.
type Session struct {
	Role              Role      `json:"role"`
	User              *UserInfo `json:"user,omitempty"`
	Loading           bool      `json:"loading"`
	ProfileGateActive bool      `json:"profile_gate_active"`
}

// IsGuest returns true if nobody is signed in.
func (s Session) IsGuest() bool { return !s.Role.IsAuthenticated() }
