package render

import (
	"html/template"

	"github.com/sitesmith/sitesmith/internal/document"
	"github.com/sitesmith/sitesmith/internal/section"
)

// StylesheetName is the shared stylesheet every exported page links to.
const StylesheetName = "styles.css"

// File is one generated artifact.
type File struct {
	Name    string
	Content []byte
}

// Files is an ordered file set: the stylesheet first, then pages in document order.
type Files []File

// Get returns the content of the named file.
func (f Files) Get(name string) ([]byte, bool) {
	for _, file := range f {
		if file.Name == name {
			return file.Content, true
		}
	}
	return nil, false
}

// Names lists file names in order.
func (f Files) Names() []string {
	names := make([]string, len(f))
	for i, file := range f {
		names[i] = file.Name
	}
	return names
}

type navLink struct {
	Href   string
	Label  string
	Active bool
}

type pageView struct {
	Title     string
	SiteName  string
	Nav       []navLink
	Sections  []template.HTML
	InlineCSS template.CSS
}

// Site renders every page of doc plus styles.css. mode must be Static or
// Publish; Publish pages inline the stylesheet and use inline-styled sections.
// A document with no pages renders a single empty index.html.
func (r *Renderer) Site(doc *document.Document, mode Mode) Files {
	css := r.Stylesheet(doc.Styles)
	files := Files{{Name: StylesheetName, Content: []byte(css)}}

	pages := doc.Pages
	if len(pages) == 0 {
		pages = document.Pages{{Key: document.Home}}
	}
	for _, page := range pages {
		files = append(files, File{
			Name:    document.PageFilename(page.Key),
			Content: r.page(doc, pages, page, mode, css),
		})
	}
	return files
}

// Page renders a single page of doc, as it would appear in Site.
func (r *Renderer) Page(doc *document.Document, key string, mode Mode) ([]byte, bool) {
	sections, ok := doc.Pages.Get(key)
	if !ok {
		return nil, false
	}
	css := ""
	if mode == Publish {
		css = r.Stylesheet(doc.Styles)
	}
	return r.page(doc, doc.Pages, document.Page{Key: key, Sections: sections}, mode, css), true
}

func (r *Renderer) page(doc *document.Document, pages document.Pages, page document.Page, mode Mode, css string) []byte {
	siteName := doc.Title()
	pv := pageView{
		Title:    siteName,
		SiteName: siteName,
	}
	if page.Key != document.Home {
		pv.Title = document.FormatPageTitle(page.Key) + " | " + siteName
	}
	for _, p := range pages {
		pv.Nav = append(pv.Nav, navLink{
			Href:   document.PageFilename(p.Key),
			Label:  document.NavLabel(p.Key),
			Active: p.Key == page.Key,
		})
	}
	for _, s := range page.Sections {
		pv.Sections = append(pv.Sections, r.sectionFor(s, mode))
	}
	if mode == Publish {
		pv.InlineCSS = template.CSS(css)
	}
	return []byte(r.exec("page", pv))
}

func (r *Renderer) sectionFor(s section.Section, mode Mode) template.HTML {
	if mode == Publish {
		return r.Publish(s)
	}
	return r.Static(s)
}
