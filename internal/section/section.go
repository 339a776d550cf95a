package section

import "github.com/oklog/ulid/v2"

// Type identifies the kind of content block a Section holds.
type Type string

const (
	Hero     Type = "hero"
	Text     Type = "text"
	Image    Type = "image"
	Features Type = "features"
	Pricing  Type = "pricing"
	Contact  Type = "contact"
)

// Types lists the known section types in palette order.
var Types = []Type{Hero, Text, Image, Features, Pricing, Contact}

// Known reports whether t is one of the built-in section types.
func Known(t Type) bool {
	_, ok := Policies[t]
	return ok
}

// Section is one content block on a page.
// Data is free-form and never validated; renderers treat every field as optional.
type Section struct {
	// ID is stable for the section's lifetime and joins inline edits to the section
	ID string `json:"id"`

	Type Type           `json:"type"`
	Data map[string]any `json:"data"`

	// Locked and IsTemplate hide the reorder/delete toolbar in the editor
	Locked     bool `json:"locked,omitempty"`
	IsTemplate bool `json:"isTemplate,omitempty"`
}

// New returns a section of type t with a fresh id and default data.
func New(t Type) Section {
	return Section{
		ID:   NewID(),
		Type: t,
		Data: DefaultData(t),
	}
}

// NewID generates a new section id. Ids sort by creation time.
func NewID() string {
	return "section-" + ulid.Make().String()
}

// Clone returns a deep copy of s.
func (s Section) Clone() Section {
	out := s
	out.Data = CloneData(s.Data)
	return out
}

// CloneList deep-copies a list of sections. A nil list stays nil.
func CloneList(list []Section) []Section {
	if list == nil {
		return nil
	}
	out := make([]Section, len(list))
	for i, s := range list {
		out[i] = s.Clone()
	}
	return out
}

// CloneData deep-copies a JSON-shaped record.
func CloneData(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	return cloneValue(data).(map[string]any)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = val
		}
		return out
	default:
		return v
	}
}

// DefaultData returns a fresh default payload for t.
// Unknown types get an empty record. Every call returns an independent copy.
func DefaultData(t Type) map[string]any {
	switch t {
	case Hero:
		return map[string]any{
			"title":    "Welcome to Your Site",
			"subtitle": "This is a hero section. Edit this text to match your brand.",
			"imageUrl": "https://via.placeholder.com/1200x600?text=Click+to+upload+hero+image",
		}
	case Text:
		return map[string]any{
			"content": "This is a text block. Add your content here.",
		}
	case Image:
		return map[string]any{
			"url": "https://via.placeholder.com/800x400?text=Click+to+upload+image",
			"alt": "Image",
		}
	case Features:
		return map[string]any{
			"features": []any{
				feature("✓", "Feature 1", "Description"),
				feature("✓", "Feature 2", "Description"),
				feature("✓", "Feature 3", "Description"),
			},
		}
	case Pricing:
		return map[string]any{
			"plans": []any{
				plan("Starter", "$9/mo", "Feature 1", "Feature 2"),
				plan("Pro", "$29/mo", "All Starter features", "Feature 3", "Feature 4"),
				plan("Enterprise", "Custom", "All Pro features", "Dedicated support"),
			},
		}
	case Contact:
		return map[string]any{
			"title": "Get in Touch",
			"email": "contact@example.com",
		}
	default:
		return map[string]any{}
	}
}

func feature(icon, title, description string) map[string]any {
	return map[string]any{
		"icon":        icon,
		"title":       title,
		"description": description,
		"imageUrl":    nil,
	}
}

func plan(name, price string, features ...string) map[string]any {
	list := make([]any, len(features))
	for i, f := range features {
		list[i] = f
	}
	return map[string]any{
		"name":     name,
		"price":    price,
		"features": list,
		"imageUrl": nil,
	}
}
