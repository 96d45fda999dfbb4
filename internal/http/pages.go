package httpx

import (
	"log/slog"
	"net/http"

	domainauth "github.com/akmalstorm/stdcalumni/internal/domain/auth"
	corefuncs "github.com/akmalstorm/stdcalumni/internal/http/templates/core"
)

// PageHandlers renders the application's views.
type PageHandlers struct {
	Renderer *TemplateRenderer
	Logger   *slog.Logger
}

// Page returns a handler rendering the page identified by key. Path
// wildcards named in params are copied into the view model.
func (h *PageHandlers) Page(key string, params ...string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data := h.pageData(r, key)
		if len(params) > 0 {
			data.Params = make(map[string]string, len(params))
			for _, name := range params {
				data.Params[name] = r.PathValue(name)
			}
		}
		h.render(w, r, http.StatusOK, data)
	})
}

// NotFound renders the not-found view. It never redirects regardless of session.
func (h *PageHandlers) NotFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, h.pageData(r, PageNotFound))
}

// Loading renders the neutral placeholder shown while a session restores.
func (h *PageHandlers) Loading(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	data := PageData{Page: PageLoading, CurrentPath: requestLocation(r), Session: SessionFromContext(r.Context())}
	h.render(w, r, http.StatusOK, data)
}

func (h *PageHandlers) pageData(r *http.Request, key string) PageData {
	session := SessionFromContext(r.Context())
	data := PageData{
		Page:        key,
		CurrentPath: r.URL.Path,
		Session:     session,
		Modal:       profileModal(r, session),
		CSRFToken:   GetCSRFToken(r),
	}
	if key == PageLogin {
		if from := r.URL.Query().Get("from"); from != "" {
			data.From = safeRedirectPath(from)
		}
	}
	if pages[key].Layout == LayoutAdmin {
		data.AdminNav = navLinks(adminNav, r.URL.Path)
		if key == PageAdminStatistics {
			data.SubPages = navLinks(statisticsPages, r.URL.Path)
		}
	}
	return data
}

func (h *PageHandlers) render(w http.ResponseWriter, r *http.Request, status int, data PageData) {
	if h.Renderer == nil {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(PageTitle(data.Page) + "\n"))
		return
	}
	if err := h.Renderer.RenderPage(w, status, data); err != nil {
		if h.Logger != nil {
			h.Logger.ErrorContext(r.Context(), "render page failed", "page", data.Page, "error", err)
		}
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// profileModal is open while the session's profile gate is active. It is
// mounted for every view, not just alumni pages.
func profileModal(r *http.Request, s domainauth.Session) ProfileModal {
	if !s.ProfileGateActive || s.User == nil {
		return ProfileModal{}
	}
	return ProfileModal{
		Show:        true,
		IsOpen:      true,
		AlumniID:    s.User.ID.String(),
		CompleteURL: PathProfileComplete,
		ReturnTo:    requestLocation(r),
	}
}

func navLinks(keys []string, current string) []NavLink {
	links := make([]NavLink, 0, len(keys))
	for _, k := range keys {
		def := pages[k]
		links = append(links, NavLink{
			Title:  def.Title,
			Path:   def.Path,
			Active: corefuncs.IsActive(current, def.Path),
		})
	}
	return links
}
