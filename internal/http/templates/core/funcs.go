// Package core provides template helpers shared by every page template.
package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"html/template"
	"strings"
)

// Deps holds optional dependencies for constructing the core template func map.
type Deps struct {
	Template           **template.Template
	ContentTemplateFor func(string) string
	PagePath           func(string) string
	PageTitle          func(string) string
}

// Funcs returns a template.FuncMap containing helpers that are broadly useful across templates.
func Funcs(deps Deps) template.FuncMap {
	funcs := template.FuncMap{
		"sectionTmpl": deps.ContentTemplateFor,
		"pagePath":    orIdentity(deps.PagePath),
		"pageTitle":   orIdentity(deps.PageTitle),
		"hasPrefix":   strings.HasPrefix,
		"isActive":    IsActive,
		"param": func(params map[string]string, key string) string {
			return params[key]
		},
	}

	addRenderFuncs(funcs, deps)
	return funcs
}

func addRenderFuncs(funcs template.FuncMap, deps Deps) {
	funcs["renderSection"] = func(page string, data any) (template.HTML, error) {
		if deps.Template == nil || *deps.Template == nil {
			return "", errors.New("template not initialized")
		}
		if deps.ContentTemplateFor == nil {
			return "", errors.New("content template lookup not configured")
		}
		var buf bytes.Buffer
		if err := (*deps.Template).ExecuteTemplate(&buf, deps.ContentTemplateFor(page), data); err != nil {
			return "", err
		}
		// #nosec G203 - output of our own html/template set; values were escaped during ExecuteTemplate.
		return template.HTML(buf.String()), nil
	}

	funcs["toJSON"] = func(v any) (string, error) {
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}

// IsActive reports whether a navigation link for linkPath should be highlighted
// when the browser is on current.
func IsActive(current, linkPath string) bool {
	if linkPath == "" {
		return false
	}
	if current == linkPath {
		return true
	}
	return linkPath != "/" && strings.HasPrefix(current, strings.TrimSuffix(linkPath, "/")+"/")
}

func orIdentity(fn func(string) string) func(string) string {
	if fn != nil {
		return fn
	}
	return func(s string) string { return s }
}
