package web

import (
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sitesmith/sitesmith/internal/deploy"
	"github.com/sitesmith/sitesmith/internal/document"
	"github.com/sitesmith/sitesmith/internal/errors"
	"github.com/sitesmith/sitesmith/internal/ops"
	"github.com/sitesmith/sitesmith/internal/render"
	"github.com/sitesmith/sitesmith/internal/section"
)

// Handlers contains HTTP route handlers for the builder UI and API.
type Handlers struct {
	Deps
	pages    *Renderer
	limiter  *rateLimiter
	timeout  time.Duration
	maxImage int64
}

// HandleSites handles GET /sites: the dashboard list for an owner.
func (h *Handlers) HandleSites(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")

	result, err := ops.ListSites(r.Context(), h.Store, ops.ListInput{
		Owner:  owner,
		Limit:  parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset: parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.pages.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	data := SitesPageData{
		PageData: PageData{
			Title:   "Sites",
			Version: h.pages.version,
			Nav:     "sites",
		},
		Items:      result.Items,
		Pagination: result.Pagination,
		Owner:      owner,
		Templates:  ops.ListTemplates(h.Catalog).Templates,
	}

	// If htmx targets the list, render only that fragment
	if r.Header.Get("HX-Target") == "site-list" {
		h.pages.renderBlock(w, http.StatusOK, "sites", "site-list", data)
		return
	}
	h.pages.renderPage(w, r, "sites", data)
}

// HandleCreate handles POST /sites: create a site from the dashboard form.
func (h *Handlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.pages.renderError(w, r, errors.NewValidation("invalid form data"))
		return
	}

	out, err := ops.CreateSite(r.Context(), h.Store, h.Catalog, ops.CreateInput{
		Owner:    r.FormValue("owner"),
		Name:     r.FormValue("name"),
		Template: r.FormValue("template"),
	})
	if err != nil {
		h.pages.renderError(w, r, err)
		return
	}

	editURL := "/sites/" + out.ID + "/edit"
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", editURL)
		w.WriteHeader(http.StatusOK)
		return
	}
	if wantsJSON(r) {
		renderJSON(w, http.StatusCreated, out)
		return
	}
	http.Redirect(w, r, editURL, http.StatusSeeOther)
}

// HandleDelete handles DELETE /sites/{id}.
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	result, err := ops.DeleteSite(r.Context(), h.Store, ops.DeleteInput{ID: id})
	if err != nil {
		h.pages.renderError(w, r, err)
		return
	}
	h.Registry.Close(id)

	// HTMX request: redirect via HX-Redirect header
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/sites")
		w.WriteHeader(http.StatusOK)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}
	http.Redirect(w, r, "/sites", http.StatusFound)
}

// HandleEditor handles GET /sites/{id}/edit: the editor with the editable
// canvas of the active page.
func (h *Handlers) HandleEditor(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	session, err := h.Registry.Open(r.Context(), id)
	if err != nil {
		h.pages.renderError(w, r, err)
		return
	}

	state := session.State()
	view := h.Hub.View(state)
	tpls := ops.ListTemplates(h.Catalog)

	data := EditorPageData{
		PageData: PageData{
			Title:   "Editing " + state.Name,
			Version: h.pages.version,
			Nav:     "editor",
		},
		SiteID:       id,
		View:         view,
		Canvas:       template.HTML(view.Canvas),
		SectionTypes: section.Types,
		Themes:       tpls.Themes,
		Templates:    tpls.Templates,
	}
	if site, err := h.Store.GetByID(r.Context(), id); err == nil && site.PublishedURL != nil {
		data.PublishedURL = *site.PublishedURL
	}
	h.pages.renderPage(w, r, "editor", data)
}

// HandlePreview handles GET /sites/{id}/preview/{file}: the static render
// of one page, or its stylesheet. A page key is accepted in place of its
// file name.
func (h *Handlers) HandlePreview(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	file := r.PathValue("file")

	doc, err := h.document(r, id)
	if err != nil {
		h.pages.renderError(w, r, err)
		return
	}

	files := h.Sites.Site(doc, render.Static)
	body, ok := files.Get(file)
	if !ok {
		body, ok = files.Get(document.PageFilename(file))
	}
	if !ok {
		h.pages.renderError(w, r, errors.NewNotFound("page", file))
		return
	}

	if strings.HasSuffix(file, ".css") {
		w.Header().Set("Content-Type", "text/css; charset=utf-8")
	} else {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	}
	_, _ = w.Write(body)
}

// HandleExport handles GET /sites/{id}/export: download the static site
// as website.zip.
func (h *Handlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	doc, err := h.document(r, id)
	if err != nil {
		h.pages.renderError(w, r, err)
		return
	}

	archive, err := deploy.Zip(h.Sites.Site(doc, render.Static))
	if err != nil {
		h.pages.renderError(w, r, errors.NewInternal(err))
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+ops.ExportFilename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(archive)))
	_, _ = w.Write(archive)
}

// document returns the live session document when the site is open in
// the editor, otherwise the stored one.
func (h *Handlers) document(r *http.Request, id string) (*document.Document, error) {
	if session, ok := h.Registry.Get(id); ok {
		return session.Document(), nil
	}
	out, err := ops.FetchSite(r.Context(), h.Store, ops.FetchInput{ID: id})
	if err != nil && !errors.Is(err, errors.ErrInvalidData) {
		return nil, err
	}
	return out.Document, nil
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// wantsJSON reports whether the client asked for JSON.
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
