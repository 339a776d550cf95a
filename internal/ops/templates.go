package ops

import (
	"github.com/sitesmith/sitesmith/internal/catalog"
)

// TemplateItem describes a catalog template.
type TemplateItem struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Sections    []string `json:"sections"` // section types in order
	Builtin     bool     `json:"builtin"`
}

// TemplatesOutput contains the result of the ListTemplates operation.
type TemplatesOutput struct {
	Templates []TemplateItem `json:"templates"`
	Themes    []string       `json:"themes"`
}

// ListTemplates returns the available templates and theme names.
func ListTemplates(cat *catalog.Catalog) *TemplatesOutput {
	out := &TemplatesOutput{Templates: []TemplateItem{}, Themes: cat.ThemeNames()}
	for _, tpl := range cat.Templates() {
		types := make([]string, len(tpl.Sections))
		for i, s := range tpl.Sections {
			types[i] = string(s.Type)
		}
		out.Templates = append(out.Templates, TemplateItem{
			ID:          tpl.ID,
			Name:        tpl.Name,
			Description: tpl.Description,
			Sections:    types,
			Builtin:     tpl.Builtin,
		})
	}
	return out
}
