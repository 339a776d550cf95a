package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"time"

	"github.com/sitesmith/sitesmith/internal/document"
	"github.com/sitesmith/sitesmith/internal/errors"
	"github.com/sitesmith/sitesmith/internal/ops"
	"github.com/sitesmith/sitesmith/internal/section"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
	Nav     string // active nav item: "sites", "editor"
}

// SitesPageData is the template data for the dashboard.
type SitesPageData struct {
	PageData
	Items      []ops.SiteSummary
	Pagination ops.Pagination
	Owner      string
	Templates  []ops.TemplateItem
}

// EditorPageData is the template data for the editor page.
type EditorPageData struct {
	PageData
	SiteID       string
	View         EditorView
	Canvas       template.HTML
	SectionTypes []section.Type
	Themes       []string
	Templates    []ops.TemplateItem
	PublishedURL string
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// Renderer parses the builder's page templates once and executes them per
// request.
type Renderer struct {
	templates map[string]*template.Template
	version   string
}

// NewRenderer parses layout.html plus one file per page from templateFS.
func NewRenderer(templateFS fs.FS, version string) *Renderer {
	funcMap := template.FuncMap{
		"add":        func(a, b int) int { return a + b },
		"sub":        func(a, b int) int { return max(a-b, 0) },
		"formatTime": formatTime,
		"pageLabel":  document.NavLabel,
		"orEmpty":    orEmpty,
	}

	layout := template.Must(template.New("layout").Funcs(funcMap).ParseFS(templateFS, "layout.html"))

	templates := make(map[string]*template.Template, 3)
	for _, name := range []string{"sites", "editor", "error"} {
		t := template.Must(layout.Clone())
		templates[name] = template.Must(t.ParseFS(templateFS, name+".html"))
	}

	return &Renderer{templates: templates, version: version}
}

// renderPage renders a full page with HTTP 200.
func (r *Renderer) renderPage(w http.ResponseWriter, req *http.Request, name string, data any) {
	r.renderPageStatus(w, req, http.StatusOK, name, data)
}

// renderPageStatus renders a full page. htmx requests get only the
// "content" block so the layout is not nested.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, req *http.Request, status int, name string, data any) {
	block := "layout"
	if req != nil && req.Header.Get("HX-Request") == "true" {
		block = "content"
	}
	r.execute(w, status, name, block, data)
}

// renderBlock renders one named block of a page, for htmx swaps.
func (r *Renderer) renderBlock(w http.ResponseWriter, status int, page, block string, data any) {
	r.execute(w, status, page, block, data)
}

func (r *Renderer) execute(w http.ResponseWriter, status int, page, block string, data any) {
	t, ok := r.templates[page]
	if !ok {
		log.Printf("[web] template %q not found", page)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	// Buffer so a failing template never leaves a half-written 200.
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, block, data); err != nil {
		log.Printf("[web] %s/%s execution error: %v", page, block, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError writes err as an htmx fragment, a JSON body or the error
// page, depending on what the client asked for.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	sErr := errors.As(err)
	if sErr.Code == errors.ErrInternal {
		log.Printf("[web] %s %s: %v", req.Method, req.URL.Path, err)
	}

	switch {
	case req.Header.Get("HX-Request") == "true":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(sErr.Status)
		fmt.Fprintf(w, `<div class="error-message">%s</div>`, template.HTMLEscapeString(sErr.Message))
	case wantsJSON(req):
		renderJSON(w, sErr.Status, map[string]any{
			"error": map[string]any{
				"code":    string(sErr.Code),
				"message": sErr.Message,
				"status":  sErr.Status,
			},
		})
	default:
		r.renderPageStatus(w, req, sErr.Status, "error", ErrorPageData{
			PageData: PageData{
				Title:   fmt.Sprintf("Error %d", sErr.Status),
				Version: r.version,
			},
			StatusCode: sErr.Status,
			Message:    sErr.Message,
		})
	}
}

// renderJSON writes data as a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// formatTime formats a Unix timestamp for the dashboard, in UTC.
func formatTime(unix int64) string {
	return time.Unix(unix, 0).UTC().Format("Jan 2, 2006 15:04")
}

func orEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
