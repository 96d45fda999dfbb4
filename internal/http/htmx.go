package httpx

import (
	"net/http"
	"strings"
)

// Headers exchanged with htmx-driven pages.
const (
	headerHXRequest    = "Hx-Request"
	headerHXCurrentURL = "Hx-Current-Url"
	headerHXRedirect   = "Hx-Redirect"
)

// IsHTMX reports whether the request was issued by htmx rather than a full navigation.
func IsHTMX(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get(headerHXRequest), "true")
}

// redirectBrowser sends a browser to target with 303. htmx swaps would
// render the redirect target into a fragment, so they get Hx-Redirect and
// a full page load instead.
func redirectBrowser(w http.ResponseWriter, r *http.Request, target string) {
	if IsHTMX(r) {
		w.Header().Set(headerHXRedirect, target)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// htmxOrigin returns the page an htmx request was issued from, or "".
func htmxOrigin(r *http.Request) string {
	if !IsHTMX(r) {
		return ""
	}
	return safeRedirectFromURL(r.Header.Get(headerHXCurrentURL))
}
