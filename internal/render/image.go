package render

import (
	"html/template"
	"regexp"
	"strings"
)

// PlaceholderBase is the placeholder-image service legacy size strings resolve against.
const PlaceholderBase = "https://via.placeholder.com/"

var (
	absoluteURL = regexp.MustCompile(`(?i)^(https?:)?//`)
	// "1200x600?text=Hero", optionally with a leading slash
	sizeShorthand = regexp.MustCompile(`^/?\d+x\d+`)
)

// NormalizeImageURL passes absolute, protocol-relative, root-relative, data:
// and blob: URLs through unchanged. Anything else is treated as the legacy
// placeholder shorthand ("1200x600?text=Hero") and rewritten onto
// PlaceholderBase. An empty url yields fallback.
func NormalizeImageURL(url, fallback string) string {
	trimmed := strings.TrimSpace(url)
	if trimmed == "" {
		return fallback
	}
	if absoluteURL.MatchString(trimmed) || strings.HasPrefix(trimmed, "data:") || strings.HasPrefix(trimmed, "blob:") {
		return trimmed
	}
	if isRootRelative(trimmed) && !sizeShorthand.MatchString(trimmed) {
		return trimmed
	}
	return PlaceholderBase + strings.TrimPrefix(trimmed, "/")
}

// imageURL marks image sources html/template would otherwise reject.
// Only http(s), protocol-relative, root-relative, data:image/ and blob: URLs
// are trusted; anything else is query-escaped into an inert relative
// reference.
func imageURL(u string) template.URL {
	lower := strings.ToLower(u)
	switch {
	case absoluteURL.MatchString(u),
		strings.HasPrefix(lower, "data:image/"),
		strings.HasPrefix(lower, "blob:"),
		isRootRelative(u):
		return template.URL(u)
	}
	return template.URL(template.URLQueryEscaper(u))
}

// isRootRelative reports a same-origin path such as a local upload
// ("/uploads/<site>/...").
func isRootRelative(u string) bool {
	return strings.HasPrefix(u, "/") && !strings.HasPrefix(u, "//") && !strings.HasPrefix(u, "/\\")
}
