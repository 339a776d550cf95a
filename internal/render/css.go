package render

import (
	"bytes"
	"log"
	"regexp"
	"strings"

	"github.com/sitesmith/sitesmith/internal/document"
)

var (
	hexColor   = regexp.MustCompile(`^#[0-9a-fA-F]{3,8}$`)
	namedColor = regexp.MustCompile(`^[a-zA-Z]{3,20}$`)
	funcColor  = regexp.MustCompile(`^(rgb|rgba|hsl|hsla)\([0-9.,%\s]+\)$`)
	fontName   = regexp.MustCompile(`^[A-Za-z0-9 \-]{1,60}$`)
	number     = regexp.MustCompile(`^[0-9]{1,3}(\.[0-9]+)?$`)
)

type cssTokens struct {
	document.Styles
	HeadingFontURL string
	BodyFontURL    string
}

// Stylesheet builds styles.css from the design tokens: a Google Fonts import
// plus CSS custom properties. Tokens that are not a plain color, font name or
// number fall back to the default token so stored values cannot break out of
// the stylesheet.
func (r *Renderer) Stylesheet(styles document.Styles) string {
	safe := SanitizeStyles(styles)
	tokens := cssTokens{
		Styles:         safe,
		HeadingFontURL: FontQuery(safe.HeadingFont),
		BodyFontURL:    FontQuery(safe.BodyFont),
	}
	var buf bytes.Buffer
	if err := r.css.Execute(&buf, tokens); err != nil {
		log.Printf("[render] stylesheet: %v", err)
		return ""
	}
	return buf.String()
}

// SanitizeStyles replaces unsafe or empty tokens with their defaults.
func SanitizeStyles(s document.Styles) document.Styles {
	def := document.DefaultStyles()
	return document.Styles{
		PrimaryColor:    pickToken(s.PrimaryColor, def.PrimaryColor, isColor),
		AccentColor:     pickToken(s.AccentColor, def.AccentColor, isColor),
		BackgroundColor: pickToken(s.BackgroundColor, def.BackgroundColor, isColor),
		TextColor:       pickToken(s.TextColor, def.TextColor, isColor),
		HeadingFont:     pickToken(s.HeadingFont, def.HeadingFont, fontName.MatchString),
		BodyFont:        pickToken(s.BodyFont, def.BodyFont, fontName.MatchString),
		BorderRadius:    pickToken(strings.TrimSuffix(s.BorderRadius, "px"), def.BorderRadius, number.MatchString),
		SectionSpacing:  pickToken(strings.TrimSuffix(s.SectionSpacing, "px"), def.SectionSpacing, number.MatchString),
	}
}

// FontQuery formats a font family for the Google Fonts URL: "Playfair Display" is "Playfair+Display".
func FontQuery(font string) string {
	font = strings.TrimSpace(font)
	if font == "" {
		font = "Inter"
	}
	return strings.Join(strings.Fields(font), "+")
}

func isColor(v string) bool {
	return hexColor.MatchString(v) || namedColor.MatchString(v) || funcColor.MatchString(v)
}

func pickToken(v, def string, ok func(string) bool) string {
	v = strings.TrimSpace(v)
	if v == "" || !ok(v) {
		return def
	}
	return v
}
