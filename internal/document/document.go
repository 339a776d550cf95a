package document

import (
	"github.com/sitesmith/sitesmith/internal/section"
)

// Home is the privileged page key. It maps to index.html and cannot be
// deleted or renamed.
const Home = "home"

// DefaultName is used when a site has no display name.
const DefaultName = "My Site"

// Page is a named, ordered list of sections.
type Page struct {
	Key      string
	Sections []section.Section
}

// Pages is an ordered page mapping. It encodes as a JSON object whose key
// order follows the slice order.
type Pages []Page

// Document is the full editable state of one site.
type Document struct {
	Name   string `json:"name"`
	Pages  Pages  `json:"pages"`
	Styles Styles `json:"styles"`
}

// New returns an empty document holding only the home page.
func New(name string) *Document {
	return &Document{
		Name:   name,
		Pages:  Pages{{Key: Home, Sections: []section.Section{}}},
		Styles: DefaultStyles(),
	}
}

// Title returns the display name, falling back to DefaultName.
func (d *Document) Title() string {
	if d == nil || d.Name == "" {
		return DefaultName
	}
	return d.Name
}

// Clone returns a deep copy of d.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	return &Document{
		Name:   d.Name,
		Pages:  d.Pages.Clone(),
		Styles: d.Styles,
	}
}

// Keys returns the page keys in order.
func (p Pages) Keys() []string {
	keys := make([]string, len(p))
	for i, page := range p {
		keys[i] = page.Key
	}
	return keys
}

// Index returns the position of key, or -1.
func (p Pages) Index(key string) int {
	for i, page := range p {
		if page.Key == key {
			return i
		}
	}
	return -1
}

// Has reports whether a page with key exists.
func (p Pages) Has(key string) bool {
	return p.Index(key) >= 0
}

// Get returns the sections of page key.
func (p Pages) Get(key string) ([]section.Section, bool) {
	i := p.Index(key)
	if i < 0 {
		return nil, false
	}
	return p[i].Sections, true
}

// Set replaces the sections of page key, appending the page if it is new.
func (p *Pages) Set(key string, sections []section.Section) {
	if sections == nil {
		sections = []section.Section{}
	}
	if i := p.Index(key); i >= 0 {
		(*p)[i].Sections = sections
		return
	}
	*p = append(*p, Page{Key: key, Sections: sections})
}

// Delete removes page key. It reports whether a page was removed.
func (p *Pages) Delete(key string) bool {
	i := p.Index(key)
	if i < 0 {
		return false
	}
	*p = append((*p)[:i], (*p)[i+1:]...)
	return true
}

// Rename changes a page key in place, keeping its position.
func (p Pages) Rename(oldKey, newKey string) bool {
	i := p.Index(oldKey)
	if i < 0 || p.Has(newKey) {
		return false
	}
	p[i].Key = newKey
	return true
}

// EnsureHome adds an empty home page when it is missing.
func (p *Pages) EnsureHome() {
	if !p.Has(Home) {
		*p = append(Pages{{Key: Home, Sections: []section.Section{}}}, *p...)
	}
}

// Clone deep-copies every page.
func (p Pages) Clone() Pages {
	if p == nil {
		return nil
	}
	out := make(Pages, len(p))
	for i, page := range p {
		out[i] = Page{Key: page.Key, Sections: section.CloneList(page.Sections)}
		if out[i].Sections == nil {
			out[i].Sections = []section.Section{}
		}
	}
	return out
}

// SectionCount returns the number of sections across all pages.
func (p Pages) SectionCount() int {
	n := 0
	for _, page := range p {
		n += len(page.Sections)
	}
	return n
}
