package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/akmalstorm/stdcalumni/internal/service"
	"github.com/google/uuid"
)

// DefaultVisitorCookie is the cookie that identifies a browser across requests.
const DefaultVisitorCookie = "session_id"

// SessionRegistry hands out the session machine for a visitor id.
type SessionRegistry interface {
	Acquire(ctx context.Context, visitorID string) (*service.AuthStateMachine, error)
}

// VisitorConfig configures the VisitorSession middleware.
type VisitorConfig struct {
	Registry     SessionRegistry
	CookieName   string
	CookieDomain string
	// CookieTTL is the visitor cookie lifetime. It should match the record TTL.
	CookieTTL time.Duration
	// SkipPaths are served without a visitor session, e.g. /healthz.
	SkipPaths []string
	Logger    *slog.Logger
}

// VisitorSession makes sure every request carries a visitor id cookie and
// puts that visitor's session machine on the request context.
func VisitorSession(cfg VisitorConfig) func(http.Handler) http.Handler {
	name := cfg.CookieName
	if name == "" {
		name = DefaultVisitorCookie
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skip[r.URL.Path] || cfg.Registry == nil {
				next.ServeHTTP(w, r)
				return
			}

			visitorID, fresh := visitorIDFromRequest(r, name)
			if fresh {
				setVisitorCookie(w, r, visitorCookie{Name: name, Value: visitorID, Domain: cfg.CookieDomain, TTL: cfg.CookieTTL})
			}

			m, err := cfg.Registry.Acquire(r.Context(), visitorID)
			if err != nil {
				logger.ErrorContext(r.Context(), "acquire visitor session failed", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(SetMachineInContext(r.Context(), m)))
		})
	}
}

// visitorIDFromRequest returns the cookie's visitor id, or a new one when the
// cookie is missing or not a UUID.
func visitorIDFromRequest(r *http.Request, name string) (string, bool) {
	if c, err := r.Cookie(name); err == nil {
		if id, parseErr := uuid.Parse(c.Value); parseErr == nil {
			return id.String(), false
		}
	}
	return uuid.NewString(), true
}

type visitorCookie struct {
	Name   string
	Value  string
	Domain string
	TTL    time.Duration
}

func setVisitorCookie(w http.ResponseWriter, r *http.Request, c visitorCookie) {
	cookie := &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	}
	if c.TTL > 0 {
		cookie.MaxAge = int(c.TTL.Seconds())
	}
	http.SetCookie(w, cookie)
}

// isSecureRequest reports TLS directly or via a proxy's X-Forwarded-Proto,
// which may carry a comma-separated chain.
func isSecureRequest(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	for _, proto := range strings.Split(r.Header.Get("X-Forwarded-Proto"), ",") {
		if strings.EqualFold(strings.TrimSpace(proto), "https") {
			return true
		}
	}
	return false
}
