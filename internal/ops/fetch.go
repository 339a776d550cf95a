package ops

import (
	"context"

	"github.com/sitesmith/sitesmith/internal/document"
	"github.com/sitesmith/sitesmith/internal/errors"
)

// FetchInput contains parameters for the FetchSite operation.
type FetchInput struct {
	ID string
}

// FetchOutput contains the result of the FetchSite operation.
type FetchOutput struct {
	SiteSummary
	Document *document.Document `json:"document"`
	Warnings []string           `json:"warnings,omitempty"`
}

// FetchSite loads a site and decodes its document.
//
// A malformed pages or styles payload does not stop the load: the affected
// part falls back to its default, the problem is listed in Warnings, and
// the INVALID_DATA error is returned alongside the usable output.
func FetchSite(ctx context.Context, store SiteStore, input FetchInput) (*FetchOutput, error) {
	id, err := requireID(input.ID)
	if err != nil {
		return nil, err
	}
	site, err := store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	out := &FetchOutput{
		SiteSummary: Summarize(site),
		Document:    document.New(site.Name),
	}

	var firstErr error
	pages, err := document.ParsePages([]byte(site.Pages))
	if err != nil {
		firstErr = err
		out.Warnings = append(out.Warnings, "stored pages are unreadable, starting from an empty home page")
	} else if len(pages) > 0 {
		pages.EnsureHome()
		out.Document.Pages = pages
	}

	styles, err := document.ParseStyles([]byte(site.Styles))
	if err != nil {
		if firstErr == nil {
			firstErr = err
		}
		out.Warnings = append(out.Warnings, "stored styles are unreadable, using default styles")
	}
	out.Document.Styles = styles

	if firstErr != nil {
		return out, errors.As(firstErr)
	}
	return out, nil
}
