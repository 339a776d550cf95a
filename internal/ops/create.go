package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sitesmith/sitesmith/internal/catalog"
	"github.com/sitesmith/sitesmith/internal/document"
	"github.com/sitesmith/sitesmith/internal/errors"
)

// MaxSiteNameLength bounds site display names.
const MaxSiteNameLength = 120

// CreateInput contains parameters for the CreateSite operation.
type CreateInput struct {
	Owner    string // default: DefaultOwner
	Name     string // required
	Template string // optional catalog template seeding the home page
}

// CreateOutput contains the result of the CreateSite operation.
type CreateOutput struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Template string `json:"template,omitempty"`
	Sections int    `json:"sections"`
}

// CreateSite inserts a new site with a home page, optionally seeded from a
// template.
func CreateSite(ctx context.Context, store SiteStore, cat *catalog.Catalog, input CreateInput) (*CreateOutput, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errors.NewValidation("site name is required")
	}
	if len(name) > MaxSiteNameLength {
		return nil, errors.NewValidation(fmt.Sprintf("site name must be at most %d characters", MaxSiteNameLength))
	}

	doc := document.New(name)
	template := strings.TrimSpace(input.Template)
	if template != "" {
		if cat == nil {
			return nil, errors.NewValidation("templates are not available")
		}
		tpl, err := cat.Template(template)
		if err != nil {
			return nil, err
		}
		doc.Pages.Set(document.Home, tpl.Instantiate())
	}

	pages, err := json.Marshal(doc.Pages)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	site, err := store.Insert(ctx, ownerOrDefault(input.Owner), name, string(pages), template)
	if err != nil {
		return nil, err
	}
	return &CreateOutput{
		ID:       site.ID,
		Name:     site.Name,
		Template: template,
		Sections: doc.Pages.SectionCount(),
	}, nil
}
