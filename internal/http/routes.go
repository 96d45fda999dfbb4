package httpx

import (
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"

	stdcalumni "github.com/akmalstorm/stdcalumni"
	"github.com/akmalstorm/stdcalumni/internal/observability/statsd"
)

// RouterServices holds everything the HTTP router needs.
type RouterServices struct {
	Registry SessionRegistry
	// Readiness is pinged by /readyz. Optional.
	Readiness Pinger
	Metrics   statsd.Sink

	// TemplateFS overrides the template source. When nil, templates come
	// from disk in dev mode and from the embedded filesystem otherwise.
	TemplateFS fs.FS

	CookieName   string
	CookieDomain string
	CookieTTL    time.Duration
	// DisableCSRF turns off the double-submit check on state-changing requests.
	DisableCSRF bool

	IsDev  bool
	Logger *slog.Logger
}

// NewRouter creates and configures the HTTP router with session middleware.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	pages := &PageHandlers{Renderer: setupRenderer(services, logger), Logger: logger}
	guards := GuardConfig{Pages: pages, Metrics: services.Metrics, Logger: logger}
	auth := &AuthHandlers{Logger: logger}

	mux.HandleFunc("GET /healthz", healthHandler)
	mux.HandleFunc("HEAD /healthz", healthHandler)
	mux.Handle("GET /readyz", readinessHandler(services.Readiness))
	mux.Handle("GET /static/", staticHandler(services.IsDev, logger))

	registerAuthRoutes(mux, auth)
	registerPublicRoutes(mux, pages, PublicOnly(guards))
	registerAlumniRoutes(mux, pages)
	registerAdminRoutes(mux, pages, AdminOnly(guards))

	// Everything else is the not-found view. It is never guarded.
	mux.HandleFunc("/", pages.NotFound)

	var handler http.Handler = mux
	if !services.DisableCSRF {
		handler = CSRFProtection(CSRFConfig{CookieDomain: services.CookieDomain})(handler)
	}
	handler = VisitorSession(VisitorConfig{
		Registry:     services.Registry,
		CookieName:   services.CookieName,
		CookieDomain: services.CookieDomain,
		CookieTTL:    services.CookieTTL,
		SkipPaths:    []string{PathHealth, "/readyz"},
		Logger:       logger,
	})(handler)
	return BrowserDetection()(handler)
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers) {
	mux.HandleFunc("POST "+PathAuthSession, h.Login)
	mux.HandleFunc("POST "+PathAuthLogout, h.Logout)
	mux.HandleFunc("GET "+PathAuthStatus, h.Status)
	mux.HandleFunc("POST "+PathProfileComplete, h.ProfileCompleted)
}

func registerPublicRoutes(mux *http.ServeMux, p *PageHandlers, publicOnly func(http.Handler) http.Handler) {
	mux.Handle("GET /{$}", p.Page(PageHome))
	mux.Handle("GET /gallery", p.Page(PageGallery))
	mux.Handle("GET /about", p.Page(PageAbout))

	mux.Handle("GET /login", publicOnly(p.Page(PageLogin)))
	mux.Handle("GET /register", publicOnly(p.Page(PageRegister)))
	mux.Handle("GET /forgot-password", publicOnly(p.Page(PageForgotPassword)))
}

func registerAlumniRoutes(mux *http.ServeMux, p *PageHandlers) {
	mux.Handle("GET /alumni/dashboard", p.Page(PageAlumniDashboard))
	mux.Handle("GET /alumni/jobs", p.Page(PageAlumniJobs))
	mux.Handle("GET /alumni/forums", p.Page(PageAlumniForums))
	mux.Handle("GET /alumni/forums/{categoryName}", p.Page(PageAlumniForumCategory, "categoryName"))
	mux.Handle("GET /alumni/forums/topic/{topicId}", p.Page(PageAlumniForumTopic, "topicId"))
	mux.Handle("GET /alumni/profile", p.Page(PageAlumniProfile))
}

func registerAdminRoutes(mux *http.ServeMux, p *PageHandlers, adminOnly func(http.Handler) http.Handler) {
	mux.Handle("GET /admin", adminOnly(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, pages[PageAdminHome].Path, http.StatusSeeOther)
	})))

	for _, key := range append(append([]string{}, adminNav...), statisticsPages...) {
		mux.Handle("GET "+pages[key].Path, adminOnly(p.Page(key)))
	}
}

// setupRenderer loads templates from the configured source. A renderer that
// fails to load is logged and pages fall back to plain text.
func setupRenderer(services RouterServices, logger *slog.Logger) *TemplateRenderer {
	templateFS := services.TemplateFS
	if templateFS == nil {
		templateFS = defaultTemplateFS(services.IsDev, logger)
	}
	if templateFS == nil {
		return nil
	}
	r, err := NewTemplateRenderer(TemplateRendererConfig{TemplateFS: templateFS, Logger: logger})
	if err != nil {
		logger.Error("failed to initialize template renderer", "error", err)
		return nil
	}
	return r
}

func defaultTemplateFS(isDev bool, logger *slog.Logger) fs.FS {
	if isDev {
		return os.DirFS(TemplatePathFromRoot)
	}
	sub, err := fs.Sub(stdcalumni.TemplateFS, TemplatePathFromRoot)
	if err != nil {
		logger.Error("failed to open embedded templates", "error", err)
		return nil
	}
	return sub
}

// staticHandler serves /static/* from disk in dev mode and from the embedded
// filesystem otherwise.
func staticHandler(isDev bool, logger *slog.Logger) http.Handler {
	var fsys http.FileSystem = http.Dir(StaticPathFromRoot)
	if !isDev {
		sub, err := fs.Sub(stdcalumni.StaticFS, StaticPathFromRoot)
		if err != nil {
			logger.Error("failed to open embedded static assets", "error", err)
		} else {
			fsys = http.FS(sub)
		}
	}
	files := http.StripPrefix("/static/", http.FileServer(fsys))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isDev {
			w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		} else {
			w.Header().Set("Cache-Control", "public, max-age=3600")
		}
		files.ServeHTTP(w, r)
	})
}
