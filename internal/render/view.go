package render

import (
	"html/template"

	"github.com/sitesmith/sitesmith/internal/section"
)

// view is the resolved, fallback-applied shape every formatter reads.
// All text is raw here; escaping happens in the templates.
type view struct {
	ID    string
	Type  string
	Known bool

	Title    string
	Subtitle string
	Content  string

	IsMarkdown bool
	Markdown   template.HTML

	Image *imageView
	Items []itemView
}

type imageView struct {
	URL   template.URL
	Alt   string
	Field string
	Slot  string
}

type itemView struct {
	Icon            string
	Title           string
	Description     string
	TitlePath       string
	DescriptionPath string

	Name      string
	Price     string
	NamePath  string
	PricePath string
	Features  []leafView
}

type leafView struct {
	Text string
	Path string
}

func (v *view) templateName(mode Mode) string {
	if !v.Known {
		return "unknown." + string(mode)
	}
	return v.Type + "." + string(mode)
}

// buildView resolves s against its policy. Missing or malformed fields fall
// back to the policy literals; nothing here fails.
func (r *Renderer) buildView(s section.Section, mode Mode) *view {
	v := &view{ID: s.ID, Type: string(s.Type)}
	policy, ok := section.Policies[s.Type]
	if !ok {
		return v
	}
	v.Known = true
	data := s.Data

	v.Title = policy.Value(data, "title")
	v.Subtitle = policy.Value(data, "subtitle")
	v.Content = policy.Value(data, "content")

	if s.Type == section.Text && section.String(data, "format") == "markdown" && v.Content != "" {
		v.IsMarkdown = true
		v.Markdown = r.markdown(v.Content)
	}

	if img := policy.Image; img != nil {
		fallback := img.StaticPlaceholder
		if mode == Editable {
			fallback = img.Placeholder
		}
		alt := img.Alt
		if img.AltField != "" {
			alt = policy.Value(data, img.AltField)
		}
		raw := section.String(data, img.Field)
		if raw == "" && s.Type == section.Image && mode == Publish {
			raw = section.String(data, "imageUrl")
		}
		v.Image = &imageView{
			URL:   imageURL(NormalizeImageURL(raw, fallback)),
			Alt:   alt,
			Field: img.Field,
			Slot:  img.Slot,
		}
	}

	for i, item := range policy.Items(data) {
		it := itemView{
			Icon:        policy.ItemValue(item, "icon"),
			Title:       policy.ItemValue(item, "title"),
			Description: policy.ItemValue(item, "description"),
			Name:        policy.ItemValue(item, "name"),
			Price:       policy.ItemValue(item, "price"),
		}
		base := section.Index(policy.ListKey, i)
		it.TitlePath = base.Then("title").String()
		it.DescriptionPath = base.Then("description").String()
		it.NamePath = base.Then("name").String()
		it.PricePath = base.Then("price").String()
		if policy.NestedKey != "" {
			for j, text := range section.Strings(item, policy.NestedKey) {
				it.Features = append(it.Features, leafView{
					Text: text,
					Path: base.ThenIndex(policy.NestedKey, j).String(),
				})
			}
		}
		v.Items = append(v.Items, it)
	}
	return v
}
