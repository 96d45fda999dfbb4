package httpx

import (
	"log/slog"
	"net/http"

	"github.com/akmalstorm/stdcalumni/internal/domain/routing"
	"github.com/akmalstorm/stdcalumni/internal/observability/metrics"
	"github.com/akmalstorm/stdcalumni/internal/observability/statsd"
)

// Guard names used in logs and metrics.
const (
	GuardAdminOnly  = "admin_only"
	GuardPublicOnly = "public_only"
)

// GuardConfig configures the route guards.
type GuardConfig struct {
	Pages   *PageHandlers
	Metrics statsd.Sink
	Logger  *slog.Logger
}

// guardResponse is the JSON body returned to API clients on redirect or loading.
type guardResponse struct {
	Error      string `json:"error,omitempty"`
	Status     string `json:"status,omitempty"`
	RedirectTo string `json:"redirect_to,omitempty"`
}

// AdminOnly admits signed-in admins and sends everyone else to the login page.
// API clients receive 401 with the login location.
func AdminOnly(cfg GuardConfig) func(http.Handler) http.Handler {
	return guard(cfg, guardRule{
		name:         GuardAdminOnly,
		evaluate:     routing.EvaluateAdminOnly,
		deniedStatus: http.StatusUnauthorized,
		deniedError:  "unauthorized",
	})
}

// PublicOnly bounces signed-in visitors from the login, register and
// forgot-password pages to their landing page.
func PublicOnly(cfg GuardConfig) func(http.Handler) http.Handler {
	return guard(cfg, guardRule{
		name:         GuardPublicOnly,
		evaluate:     routing.EvaluatePublicOnly,
		deniedStatus: http.StatusOK,
	})
}

type guardRule struct {
	name         string
	evaluate     func(routing.Input) routing.Decision
	deniedStatus int
	deniedError  string
}

func guard(cfg GuardConfig, rule guardRule) func(http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pages := cfg.Pages
	if pages == nil {
		pages = &PageHandlers{Logger: logger}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := SessionFromContext(r.Context())
			d := rule.evaluate(routing.Input{
				Role:       s.Role,
				Loading:    s.Loading,
				Path:       r.URL.Path,
				RequestURI: requestLocation(r),
			})
			metrics.EmitGuardDecision(cfg.Metrics, metrics.GuardMetric{Guard: rule.name, Action: d.Action.String()})

			switch d.Action {
			case routing.ActionLoading:
				if !IsBrowserRequest(r) {
					w.Header().Set("Cache-Control", "no-store")
					WriteJSON(w, http.StatusOK, guardResponse{Status: "loading"})
					return
				}
				pages.Loading(w, r)
			case routing.ActionRedirect:
				target := d.Target
				if d.From != "" {
					target = loginURL(d.Target, d.From)
				}
				logger.DebugContext(r.Context(), "route guard redirect",
					"guard", rule.name,
					"path", r.URL.Path,
					"role", string(s.Role),
					"target", target)
				if !IsBrowserRequest(r) {
					WriteJSON(w, rule.deniedStatus, guardResponse{Error: rule.deniedError, RedirectTo: target})
					return
				}
				redirectBrowser(w, r, target)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
