// Package routing decides, for a single navigation, whether the requested
// view renders, redirects elsewhere, or waits for session restore.
package routing

import (
	domainauth "github.com/akmalstorm/stdcalumni/internal/domain/auth"
)

// Well-known navigation targets.
const (
	PathLogin           = "/login"
	PathRegister        = "/register"
	PathForgotPassword  = "/forgot-password"
	PathAdminHome       = "/admin/home"
	PathAlumniDashboard = "/alumni/dashboard"
)

// Action is the outcome of evaluating a guard.
type Action int

const (
	// ActionRender lets the wrapped view render.
	ActionRender Action = iota
	// ActionRedirect replaces the navigation with Decision.Target.
	ActionRedirect
	// ActionLoading shows a neutral placeholder until restore finishes.
	ActionLoading
)

func (a Action) String() string {
	switch a {
	case ActionRedirect:
		return "redirect"
	case ActionLoading:
		return "loading"
	default:
		return "render"
	}
}

// Input is the session state a guard is evaluated against.
type Input struct {
	Role    domainauth.Role
	Loading bool
	// Path is the requested path without query.
	Path string
	// RequestURI is the full requested location, carried as the return target.
	RequestURI string
}

// Decision is the result of a guard evaluation.
type Decision struct {
	Action Action
	Target string
	// From is the originally requested location, set on redirects to login.
	From string
}

// EvaluateAdminOnly admits only signed-in admins. Everyone else is sent to
// the login page with the requested location attached.
func EvaluateAdminOnly(in Input) Decision {
	if in.Loading {
		return Decision{Action: ActionLoading}
	}
	if in.Role != domainauth.RoleAdmin {
		from := in.RequestURI
		if from == "" {
			from = in.Path
		}
		return Decision{Action: ActionRedirect, Target: PathLogin, From: from}
	}
	return Decision{Action: ActionRender}
}

// EvaluatePublicOnly bounces signed-in visitors away from the login,
// register and forgot-password pages to their role's landing page.
func EvaluatePublicOnly(in Input) Decision {
	if in.Loading {
		return Decision{Action: ActionLoading}
	}
	if !IsPublicOnlyPath(in.Path) {
		return Decision{Action: ActionRender}
	}
	if target := LandingPath(in.Role); target != "" {
		return Decision{Action: ActionRedirect, Target: target}
	}
	return Decision{Action: ActionRender}
}

// IsPublicOnlyPath reports whether path is one of the pages signed-in users skip.
func IsPublicOnlyPath(path string) bool {
	switch path {
	case PathLogin, PathRegister, PathForgotPassword:
		return true
	default:
		return false
	}
}

// LandingPath returns the home page for a role, or "" for anonymous visitors.
func LandingPath(role domainauth.Role) string {
	switch role {
	case domainauth.RoleAdmin:
		return PathAdminHome
	case domainauth.RoleAlumni:
		return PathAlumniDashboard
	default:
		return ""
	}
}
