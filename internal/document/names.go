package document

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	slugDisallowed = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSpaces     = regexp.MustCompile(`\s+`)
	slugDashes     = regexp.MustCompile(`-+`)
)

// Slugify normalizes a page name to a lowercase hyphenated key.
// "My Page!" becomes "my-page".
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = slugDisallowed.ReplaceAllString(s, "")
	s = slugSpaces.ReplaceAllString(s, "-")
	s = slugDashes.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// PageFilename maps a page key to its exported file name.
func PageFilename(key string) string {
	if key == Home {
		return "index.html"
	}
	slug := Slugify(key)
	if slug == "" {
		slug = "page"
	}
	return slug + ".html"
}

// FormatPageTitle turns a page key into a display title: "about-us" is "About Us".
func FormatPageTitle(key string) string {
	cleaned := strings.NewReplacer("-", " ", "_", " ").Replace(key)
	words := strings.Fields(cleaned)
	if len(words) == 0 {
		return "Page"
	}
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// NavLabel is the label a page gets in the site navigation.
func NavLabel(key string) string {
	if key == Home {
		return "Home"
	}
	return FormatPageTitle(key)
}
