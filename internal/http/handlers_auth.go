package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	domainauth "github.com/akmalstorm/stdcalumni/internal/domain/auth"
	"github.com/akmalstorm/stdcalumni/internal/domain/routing"
	apperrors "github.com/akmalstorm/stdcalumni/internal/errors"
)

var errNoSession = errors.New("visitor session unavailable")

// AuthHandlers exposes the session transitions to the login collaborator,
// the admin logout control and the profile completion form.
type AuthHandlers struct {
	Logger *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// loginRequest is the payload the login collaborator posts after a successful sign-in.
type loginRequest struct {
	Role  string          `json:"role"`
	User  json.RawMessage `json:"user"`
	Token string          `json:"token,omitempty"`
}

// sessionResponse reports the session after a transition.
type sessionResponse struct {
	Status            string               `json:"status"`
	Role              string               `json:"role"`
	Loading           bool                 `json:"loading"`
	ProfileGateActive bool                 `json:"profile_gate_active"`
	User              *domainauth.UserInfo `json:"user,omitempty"`
	RedirectTo        string               `json:"redirect_to,omitempty"`
	// PersistedRole is only reported by /auth/status.
	PersistedRole *string `json:"persisted_role,omitempty"`
}

func newSessionResponse(status string, s domainauth.Session) sessionResponse {
	return sessionResponse{
		Status:            status,
		Role:              s.Role.ServerName(),
		Loading:           s.Loading,
		ProfileGateActive: s.ProfileGateActive,
		User:              s.User,
		RedirectTo:        routing.LandingPath(s.Role),
	}
}

// Login applies a sign-in reported by the login collaborator.
// POST /auth/session with {"role": "Admin"|"Alumni", "user": {...}, "token": "..."}.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	m := MachineFromContext(r.Context())
	if m == nil {
		WriteError(w, ErrorParams{Code: http.StatusServiceUnavailable, ErrCode: "session_unavailable", Err: errNoSession})
		return
	}

	var req loginRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	// An unrecognized role signs the visitor out whatever the user payload holds.
	if _, ok := domainauth.ParseServerRole(req.Role); !ok {
		if err := m.Login(r.Context(), req.Role, domainauth.UserInfo{}, ""); err != nil {
			h.logger().ErrorContext(r.Context(), "sign out after rejected login failed", "error", err)
			writePersistError(w, err)
			return
		}
		resp := newSessionResponse("signed_out", m.Snapshot())
		resp.RedirectTo = routing.PathLogin
		WriteJSON(w, http.StatusUnauthorized, resp)
		return
	}

	user, err := domainauth.DecodeUserInfo(req.User)
	if err != nil {
		WriteAppError(w, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid user record"))
		return
	}

	if err := m.Login(r.Context(), req.Role, user, req.Token); err != nil {
		h.logger().ErrorContext(r.Context(), "apply login failed", "error", err)
		writePersistError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, newSessionResponse("signed_in", m.Snapshot()))
}

// writePersistError reports a session write that did not reach the record store.
func writePersistError(w http.ResponseWriter, err error) {
	WriteAppError(w, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "session storage unavailable"))
}

// Logout signs the visitor out. Browsers are sent to the login page.
// POST /auth/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	var logoutErr error
	if m := MachineFromContext(r.Context()); m != nil {
		logoutErr = m.Logout(r.Context())
	}
	if logoutErr != nil {
		h.logger().ErrorContext(r.Context(), "logout failed", "error", logoutErr)
	}

	if wantsJSON(r) || !IsBrowserRequest(r) {
		if logoutErr != nil {
			writePersistError(w, logoutErr)
			return
		}
		WriteJSON(w, http.StatusOK, sessionResponse{Status: "signed_out", RedirectTo: routing.PathLogin})
		return
	}
	redirectBrowser(w, r, routing.PathLogin)
}

// ProfileCompleted closes the profile completion prompt and refreshes the
// user record. POST /alumni/profile/complete.
func (h *AuthHandlers) ProfileCompleted(w http.ResponseWriter, r *http.Request) {
	m := MachineFromContext(r.Context())
	if m == nil {
		WriteError(w, ErrorParams{Code: http.StatusServiceUnavailable, ErrCode: "session_unavailable", Err: errNoSession})
		return
	}
	if err := m.ProfileCompleted(r.Context()); err != nil {
		h.logger().WarnContext(r.Context(), "profile completion not persisted", "error", err)
	}

	s := m.Snapshot()
	if wantsJSON(r) || !IsBrowserRequest(r) {
		resp := newSessionResponse("profile_completed", s)
		resp.RedirectTo = ""
		WriteJSON(w, http.StatusOK, resp)
		return
	}
	redirectBrowser(w, r, profileReturnTarget(r, s.Role))
}

// Status returns the visitor's session snapshot and the role held in the
// record store, so a disagreement between the two is visible. GET /auth/status.
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	s := SessionFromContext(r.Context())
	status := "signed_out"
	if s.Role.IsAuthenticated() {
		status = "signed_in"
	}
	if s.Loading {
		status = "loading"
	}
	resp := newSessionResponse(status, s)

	if m := MachineFromContext(r.Context()); m != nil && !s.Loading {
		persisted, err := m.PersistedRole(r.Context())
		if err != nil {
			h.logger().WarnContext(r.Context(), "read persisted role failed", "error", err)
		} else {
			name := persisted.ServerName()
			resp.PersistedRole = &name
		}
	}

	w.Header().Set("Cache-Control", "no-store")
	WriteJSON(w, http.StatusOK, resp)
}

// profileReturnTarget keeps the visitor on the page the prompt was shown over.
func profileReturnTarget(r *http.Request, role domainauth.Role) string {
	if target := r.PostFormValue("redirect_uri"); target != "" {
		if p := safeRedirectPath(target); p != "/" {
			return p
		}
	}
	if target := safeRedirectFromURL(r.Referer()); target != "" && target != "/" {
		return target
	}
	if landing := routing.LandingPath(role); landing != "" {
		return landing
	}
	return "/"
}
