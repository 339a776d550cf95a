package section

// Policy is the per-type contract every render mode reads: which fields exist,
// which can be edited inline, and the literal to show when a field is missing.
type Policy struct {
	Label string

	// Fallback maps top-level text fields to the literal rendered when absent or empty
	Fallback map[string]string

	// Fields are the top-level fields editable inline
	Fields []string

	// ListKey names the repeated card list (features, plans), empty if none
	ListKey      string
	ItemFallback map[string]string
	ItemFields   []string

	// NestedKey names a list of strings inside each card (a plan's features)
	NestedKey string

	Image *ImagePolicy
}

// ImagePolicy describes the one image slot a section type may carry.
type ImagePolicy struct {
	Field string

	// Slot is the upload slot name; it selects minimum dimensions on upload
	Slot string

	// Alt is used when AltField is empty or the field is missing
	Alt      string
	AltField string

	// Placeholder is shown on the editable canvas; StaticPlaceholder in exports
	Placeholder       string
	StaticPlaceholder string
}

// Upload slot names.
const (
	SlotHero         = "hero"
	SlotImageBlock   = "imageBlock"
	SlotFeatureIcon  = "featureIcon"
	SlotPricingImage = "pricingImage"
)

// Policies is the single table of per-type rendering rules.
var Policies = map[Type]Policy{
	Hero: {
		Label:    "Hero",
		Fallback: map[string]string{"title": "Welcome", "subtitle": ""},
		Fields:   []string{"title", "subtitle"},
		Image: &ImagePolicy{
			Field:             "imageUrl",
			Slot:              SlotHero,
			Alt:               "Hero background",
			Placeholder:       "https://via.placeholder.com/1200x600?text=Click+to+upload+hero+image",
			StaticPlaceholder: "https://via.placeholder.com/1200x600?text=Hero+Image",
		},
	},
	Text: {
		Label:    "Text",
		Fallback: map[string]string{"content": ""},
		Fields:   []string{"content"},
	},
	Image: {
		Label:    "Image",
		Fallback: map[string]string{"alt": "Image"},
		Image: &ImagePolicy{
			Field:             "url",
			Slot:              SlotImageBlock,
			Alt:               "Image",
			AltField:          "alt",
			Placeholder:       "https://via.placeholder.com/800x400?text=Click+to+upload+image",
			StaticPlaceholder: "https://via.placeholder.com/800x400?text=Image",
		},
	},
	Features: {
		Label:        "Features",
		Fallback:     map[string]string{"title": "Features"},
		Fields:       []string{"title"},
		ListKey:      "features",
		ItemFallback: map[string]string{"icon": "✓", "title": "Feature", "description": ""},
		ItemFields:   []string{"title", "description"},
	},
	Pricing: {
		Label:        "Pricing",
		Fallback:     map[string]string{"title": "Pricing"},
		Fields:       []string{"title"},
		ListKey:      "plans",
		ItemFallback: map[string]string{"name": "Plan", "price": ""},
		ItemFields:   []string{"name", "price"},
		NestedKey:    "features",
	},
	Contact: {
		Label:    "Contact",
		Fallback: map[string]string{"title": "Get in Touch"},
		Fields:   []string{"title"},
	},
}

// Value returns data[field] as text, or the policy fallback when it is missing or empty.
func (p Policy) Value(data map[string]any, field string) string {
	if v := String(data, field); v != "" {
		return v
	}
	return p.Fallback[field]
}

// ItemValue is Value for one card of the repeated list.
func (p Policy) ItemValue(item map[string]any, field string) string {
	if v := String(item, field); v != "" {
		return v
	}
	return p.ItemFallback[field]
}

// Items returns the cards of the repeated list. Non-list values yield no cards.
func (p Policy) Items(data map[string]any) []map[string]any {
	if p.ListKey == "" {
		return nil
	}
	return Records(data, p.ListKey)
}
