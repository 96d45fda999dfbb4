package httpx

import (
	"bytes"
	"errors"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	domainauth "github.com/akmalstorm/stdcalumni/internal/domain/auth"
	corefuncs "github.com/akmalstorm/stdcalumni/internal/http/templates/core"
)

// NavLink is one entry of a navigation menu.
type NavLink struct {
	Title  string
	Path   string
	Active bool
}

// ProfileModal describes the profile completion prompt overlaid on every page.
type ProfileModal struct {
	Show        bool
	IsOpen      bool
	AlumniID    string
	CompleteURL string
	ReturnTo    string
}

// PageData is the view model passed to the layouts.
type PageData struct {
	Title       string
	Page        string
	CurrentPath string
	Session     domainauth.Session
	Params      map[string]string
	Modal       ProfileModal
	// From is the location a login form should return to.
	From     string
	AdminNav  []NavLink
	SubPages  []NavLink
	CSRFToken string
}

// TemplateRenderer renders HTML templates for UI responses.
type TemplateRenderer struct {
	t      *template.Template
	logger *slog.Logger
}

// TemplateRendererConfig holds configuration for creating a TemplateRenderer.
type TemplateRendererConfig struct {
	TemplateFS fs.FS        // Filesystem containing templates (required)
	Logger     *slog.Logger // Logger for template errors (optional)
}

// NewTemplateRenderer constructs a renderer by parsing templates from the provided config.
func NewTemplateRenderer(cfg TemplateRendererConfig) (*TemplateRenderer, error) {
	if cfg.TemplateFS == nil {
		return nil, errors.New("TemplateFS is required")
	}

	renderer := &TemplateRenderer{logger: cfg.Logger}

	var t *template.Template
	funcs := corefuncs.Funcs(corefuncs.Deps{
		Template:           &t,
		ContentTemplateFor: ContentTemplateFor,
		PagePath:           PagePath,
		PageTitle:          PageTitle,
	})
	var err error
	t, err = template.New("root").Funcs(funcs).ParseFS(cfg.TemplateFS,
		"*.tmpl",
		"pages/*.tmpl",
		"partials/*.tmpl",
	)
	if err != nil {
		if cfg.Logger != nil {
			cfg.Logger.Error("template parsing failed",
				slog.Any("error", err),
				slog.String("phase", "initialization"),
			)
		}
		return nil, err
	}
	renderer.t = t
	return renderer, nil
}

// ContentTemplateFor returns the content template name for a page key.
func ContentTemplateFor(page string) string {
	if def, ok := pages[page]; ok {
		return def.Content
	}
	return pages[PageNotFound].Content
}

// PagePath returns the canonical path of a page key, or "" for parameterised pages.
func PagePath(page string) string { return pages[page].Path }

// PageTitle returns the display title of a page key.
func PageTitle(page string) string { return pages[page].Title }

// RenderPage writes a full page with the given status using the page's layout.
func (r *TemplateRenderer) RenderPage(w http.ResponseWriter, status int, data PageData) error {
	def, ok := pages[data.Page]
	if !ok {
		def = pages[PageNotFound]
		data.Page = PageNotFound
	}
	if data.Title == "" {
		data.Title = def.Title
	}
	return r.renderTemplate(w, status, def.Layout, data)
}

func (r *TemplateRenderer) renderTemplate(w http.ResponseWriter, status int, templateName string, data any) error {
	var buf bytes.Buffer
	if err := r.t.ExecuteTemplate(&buf, templateName, data); err != nil {
		r.logTemplateError(templateName, err)
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		if r.logger != nil {
			r.logger.Error("failed to write rendered template",
				slog.String("template", templateName),
				slog.Any("error", err),
			)
		}
		return err
	}

	return nil
}

// logTemplateError logs a template execution error with context.
func (r *TemplateRenderer) logTemplateError(templateName string, err error) {
	if r.logger == nil || err == nil {
		return
	}
	r.logger.Error("template execution failed",
		slog.String("template", templateName),
		slog.Any("error", err),
	)
}
