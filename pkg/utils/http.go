// Package utils provides common utility functions.
package utils

import (
	"net/url"
	"strings"
)

// HTTPHelper provides HTTP utility functions.
type HTTPHelper struct{}

// NewHTTPHelper creates a new HTTP helper.
func NewHTTPHelper() *HTTPHelper {
	return &HTTPHelper{}
}

// IsValidURL checks if a URL is absolute with an http(s) scheme.
func (h *HTTPHelper) IsValidURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// AbsoluteURL resolves href against base. Already-absolute hrefs are
// returned unchanged; unresolvable hrefs return "".
func (h *HTTPHelper) AbsoluteURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}

	if h.IsValidURL(href) {
		return href
	}

	b, err := url.Parse(base)
	if err != nil {
		return ""
	}

	rel, err := url.Parse(href)
	if err != nil {
		return ""
	}

	return b.ResolveReference(rel).String()
}
