package document

import (
	"bytes"
	"encoding/json"

	"github.com/sitesmith/sitesmith/internal/errors"
	"github.com/sitesmith/sitesmith/internal/section"
)

// Styles holds the site-wide design tokens. A Styles value obtained from
// this package is always fully populated.
type Styles struct {
	PrimaryColor    string `json:"primaryColor" yaml:"primaryColor"`
	AccentColor     string `json:"accentColor" yaml:"accentColor"`
	BackgroundColor string `json:"backgroundColor" yaml:"backgroundColor"`
	TextColor       string `json:"textColor" yaml:"textColor"`
	HeadingFont     string `json:"headingFont" yaml:"headingFont"`
	BodyFont        string `json:"bodyFont" yaml:"bodyFont"`
	BorderRadius    string `json:"borderRadius" yaml:"borderRadius"`
	SectionSpacing  string `json:"sectionSpacing" yaml:"sectionSpacing"`
}

// DefaultStyles returns the default token set.
func DefaultStyles() Styles {
	return Styles{
		PrimaryColor:    "#4A90E2",
		AccentColor:     "#2563eb",
		BackgroundColor: "#ffffff",
		TextColor:       "#0b1224",
		HeadingFont:     "Inter",
		BodyFont:        "Inter",
		BorderRadius:    "8",
		SectionSpacing:  "16",
	}
}

// Merge returns s with every non-empty token of overlay applied.
func (s Styles) Merge(overlay Styles) Styles {
	pick := func(o, b string) string {
		if o != "" {
			return o
		}
		return b
	}
	return Styles{
		PrimaryColor:    pick(overlay.PrimaryColor, s.PrimaryColor),
		AccentColor:     pick(overlay.AccentColor, s.AccentColor),
		BackgroundColor: pick(overlay.BackgroundColor, s.BackgroundColor),
		TextColor:       pick(overlay.TextColor, s.TextColor),
		HeadingFont:     pick(overlay.HeadingFont, s.HeadingFont),
		BodyFont:        pick(overlay.BodyFont, s.BodyFont),
		BorderRadius:    pick(overlay.BorderRadius, s.BorderRadius),
		SectionSpacing:  pick(overlay.SectionSpacing, s.SectionSpacing),
	}
}

// StylesFromMap reads a partial token record. Numeric values such as
// borderRadius: 12 are accepted.
func StylesFromMap(m map[string]any) Styles {
	return Styles{
		PrimaryColor:    section.String(m, "primaryColor"),
		AccentColor:     section.String(m, "accentColor"),
		BackgroundColor: section.String(m, "backgroundColor"),
		TextColor:       section.String(m, "textColor"),
		HeadingFont:     section.String(m, "headingFont"),
		BodyFont:        section.String(m, "bodyFont"),
		BorderRadius:    section.String(m, "borderRadius"),
		SectionSpacing:  section.String(m, "sectionSpacing"),
	}
}

// UnmarshalJSON merges a partial record over the defaults.
func (s *Styles) UnmarshalJSON(data []byte) error {
	styles, err := ParseStyles(data)
	*s = styles
	return err
}

// ParseStyles decodes a stored styles payload, which may be an object or a
// JSON string holding one, and merges it over DefaultStyles. On malformed
// input it returns the defaults together with an InvalidData error.
func ParseStyles(raw []byte) (Styles, error) {
	defaults := DefaultStyles()
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return defaults, nil
	}
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return defaults, errors.NewInvalidData("invalid styles format", err)
		}
		return ParseStyles([]byte(inner))
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return defaults, errors.NewInvalidData("invalid styles format", err)
	}
	return defaults.Merge(StylesFromMap(m)), nil
}
