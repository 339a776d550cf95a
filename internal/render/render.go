package render

import (
	"bytes"
	"embed"
	"html/template"
	"log"
	texttemplate "text/template"

	"github.com/yuin/goldmark"

	"github.com/sitesmith/sitesmith/internal/section"
)

//go:embed templates/*.html templates/*.css.tmpl
var templateFS embed.FS

// Mode selects one of the three markup formatters.
type Mode string

const (
	// Editable is the live canvas: edit bindings plus reorder/delete toolbar.
	Editable Mode = "editable"

	// Static is the offline export: same structure, linked styles.css.
	Static Mode = "static"

	// Publish is the deployed site: inline styles only.
	Publish Mode = "publish"
)

// Renderer turns sections and documents into markup. It is safe for
// concurrent use.
type Renderer struct {
	html *template.Template
	css  *texttemplate.Template
	md   goldmark.Markdown
}

// New parses the embedded templates.
func New() *Renderer {
	return &Renderer{
		html: template.Must(template.New("render").ParseFS(templateFS, "templates/*.html")),
		css:  texttemplate.Must(texttemplate.New("styles.css.tmpl").ParseFS(templateFS, "templates/styles.css.tmpl")),
		md:   goldmark.New(),
	}
}

type canvasSection struct {
	View         *view
	Content      template.HTML
	ShowControls bool
	CanMoveUp    bool
	CanMoveDown  bool
}

// Editable renders one section for the live canvas. index and total drive the
// move affordances: no "up" on the first section, no "down" on the last.
func (r *Renderer) Editable(s section.Section, index, total int) template.HTML {
	v := r.buildView(s, Editable)
	content := r.exec(v.templateName(Editable), v)
	show := !s.Locked && !s.IsTemplate
	return r.exec("canvas-section", canvasSection{
		View:         v,
		Content:      content,
		ShowControls: show,
		CanMoveUp:    index > 0,
		CanMoveDown:  index < total-1,
	})
}

// Static renders one section for the offline export.
func (r *Renderer) Static(s section.Section) template.HTML {
	v := r.buildView(s, Static)
	return r.exec(v.templateName(Static), v)
}

// Publish renders one section with inline styles for deployment.
func (r *Renderer) Publish(s section.Section) template.HTML {
	v := r.buildView(s, Publish)
	return r.exec(v.templateName(Publish), v)
}

// Section renders s in the given mode. Editable mode renders it as a lone
// section with no move affordances.
func (r *Renderer) Section(s section.Section, mode Mode) template.HTML {
	switch mode {
	case Editable:
		return r.Editable(s, 0, 1)
	case Publish:
		return r.Publish(s)
	default:
		return r.Static(s)
	}
}

// Canvas renders a page's sections for the editor, or the empty-page prompt.
func (r *Renderer) Canvas(sections []section.Section) template.HTML {
	if len(sections) == 0 {
		return r.exec("empty-canvas", nil)
	}
	var buf bytes.Buffer
	for i, s := range sections {
		buf.WriteString(string(r.Editable(s, i, len(sections))))
		buf.WriteByte('\n')
	}
	return template.HTML(buf.String())
}

// exec runs a named template. Templates are fixed at build time, so a failure
// here is logged and the section degrades to nothing rather than failing the page.
func (r *Renderer) exec(name string, data any) template.HTML {
	var buf bytes.Buffer
	if err := r.html.ExecuteTemplate(&buf, name, data); err != nil {
		log.Printf("[render] template %q: %v", name, err)
		return ""
	}
	return template.HTML(buf.String())
}

// markdown converts text to HTML. Raw HTML in the source is dropped by goldmark.
func (r *Renderer) markdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		log.Printf("[render] markdown: %v", err)
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(buf.String())
}
