// Package catalog holds the built-in style themes and page templates, plus
// any extra templates dropped into the configured templates directory.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/sitesmith/sitesmith/internal/document"
	"github.com/sitesmith/sitesmith/internal/errors"
	"github.com/sitesmith/sitesmith/internal/section"
)

//go:embed catalog.yaml
var builtinYAML []byte

var validID = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// ValidID reports whether id is usable as a template id and file stem.
func ValidID(id string) bool {
	return validID.MatchString(id)
}

// Template is a named list of starter sections.
type Template struct {
	ID          string            `yaml:"id" json:"id"`
	Name        string            `yaml:"name" json:"name"`
	Description string            `yaml:"description" json:"description,omitempty"`
	Sections    []section.Section `yaml:"sections" json:"sections"`
	Builtin     bool              `yaml:"-" json:"builtin"`
}

// Instantiate returns deep copies of the template sections with fresh ids.
func (t Template) Instantiate() []section.Section {
	out := make([]section.Section, 0, len(t.Sections))
	for _, s := range t.Sections {
		out = append(out, section.Section{
			ID:   section.NewID(),
			Type: s.Type,
			Data: section.CloneData(s.Data),
		})
	}
	return out
}

type file struct {
	Themes    yaml.Node  `yaml:"themes"`
	Templates []Template `yaml:"templates"`
}

// Catalog resolves themes and templates.
type Catalog struct {
	themes     map[string]document.Styles
	themeOrder []string
	builtin    []Template

	mu    sync.RWMutex
	dir   string
	cache map[string]Template
}

// Load parses the embedded catalog. dir, when non-empty, is searched for
// <id>.json templates after the built-ins.
func Load(dir string) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(builtinYAML, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	c := &Catalog{
		themes: make(map[string]document.Styles),
		dir:    dir,
		cache:  make(map[string]Template),
	}

	// Mapping node content alternates key, value; walk it to keep file order.
	for i := 0; i+1 < len(f.Themes.Content); i += 2 {
		name := f.Themes.Content[i].Value
		var styles document.Styles
		if err := f.Themes.Content[i+1].Decode(&styles); err != nil {
			return nil, fmt.Errorf("theme %q: %w", name, err)
		}
		c.themes[name] = document.DefaultStyles().Merge(styles)
		c.themeOrder = append(c.themeOrder, name)
	}

	for _, t := range f.Templates {
		t.Builtin = true
		c.builtin = append(c.builtin, t)
	}
	return c, nil
}

// MustLoad is Load for the embedded catalog, which is known to parse.
func MustLoad(dir string) *Catalog {
	c, err := Load(dir)
	if err != nil {
		panic(err)
	}
	return c
}

// Dir returns the templates directory, or "".
func (c *Catalog) Dir() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dir
}

// ThemeNames lists themes in catalog order.
func (c *Catalog) ThemeNames() []string {
	return append([]string(nil), c.themeOrder...)
}

// Theme returns the full style set for name.
func (c *Catalog) Theme(name string) (document.Styles, bool) {
	s, ok := c.themes[strings.ToLower(name)]
	return s, ok
}

// Template looks up a built-in template, then <dir>/<id>.json.
func (c *Catalog) Template(id string) (Template, error) {
	if !ValidID(id) {
		return Template{}, errors.NewValidation(fmt.Sprintf("invalid template id %q", id))
	}
	for _, t := range c.builtin {
		if t.ID == id {
			return t, nil
		}
	}

	c.mu.RLock()
	t, ok := c.cache[id]
	dir := c.dir
	c.mu.RUnlock()
	if ok {
		return t, nil
	}
	if dir == "" {
		return Template{}, errors.NewNotFound("template", id)
	}

	t, err := readTemplateFile(filepath.Join(dir, id+".json"), id)
	if err != nil {
		return Template{}, err
	}
	c.mu.Lock()
	c.cache[id] = t
	c.mu.Unlock()
	return t, nil
}

// Templates lists built-ins followed by directory templates sorted by id.
// Unreadable files are skipped.
func (c *Catalog) Templates() []Template {
	out := append([]Template(nil), c.builtin...)

	dir := c.Dir()
	if dir == "" {
		return out
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return out
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}
		id := strings.TrimSuffix(name, ".json")
		if ValidID(id) && !c.isBuiltin(id) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	for _, id := range ids {
		if t, err := c.Template(id); err == nil {
			out = append(out, t)
		}
	}
	return out
}

// Invalidate drops cached directory templates. An empty id drops all.
func (c *Catalog) Invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id == "" {
		c.cache = make(map[string]Template)
		return
	}
	delete(c.cache, id)
}

func (c *Catalog) isBuiltin(id string) bool {
	for _, t := range c.builtin {
		if t.ID == id {
			return true
		}
	}
	return false
}

type templateFile struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Sections    json.RawMessage `json:"sections"`
}

func readTemplateFile(path, id string) (Template, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Template{}, errors.NewNotFound("template", id)
	}
	if err != nil {
		return Template{}, errors.NewInternal(err)
	}

	var tf templateFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return Template{}, errors.NewInvalidData(fmt.Sprintf("template %q is not valid JSON", id), err)
	}
	if len(tf.Sections) == 0 || tf.Sections[0] != '[' {
		return Template{}, errors.NewInvalidData(fmt.Sprintf("template %q has no sections list", id), nil)
	}

	name := tf.Name
	if name == "" {
		name = document.FormatPageTitle(id)
	}
	return Template{
		ID:          id,
		Name:        name,
		Description: tf.Description,
		Sections:    document.DecodeSections(tf.Sections),
	}, nil
}
