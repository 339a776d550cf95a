package ops

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/sitesmith/sitesmith/internal/db"
	"github.com/sitesmith/sitesmith/internal/document"
	"github.com/sitesmith/sitesmith/internal/errors"
)

// SaveInput contains parameters for the SaveSite operation.
type SaveInput struct {
	ID       string
	Document *document.Document
}

// SaveOutput contains the result of the SaveSite operation.
type SaveOutput struct {
	ID       string `json:"id"`
	Pages    int    `json:"pages"`
	Sections int    `json:"sections"`
}

// SaveSite writes a document's name, pages and styles back to its row.
func SaveSite(ctx context.Context, store SiteStore, input SaveInput) (*SaveOutput, error) {
	id, err := requireID(input.ID)
	if err != nil {
		return nil, err
	}
	if input.Document == nil {
		return nil, errors.NewValidation("document is required")
	}

	doc := input.Document
	pagesJSON, err := json.Marshal(doc.Pages)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	stylesJSON, err := json.Marshal(doc.Styles)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	pages := string(pagesJSON)
	styles := string(stylesJSON)
	upd := db.SiteUpdate{Pages: &pages, Styles: &styles}
	if name := strings.TrimSpace(doc.Name); name != "" {
		upd.Name = &name
	}
	if err := store.UpdateByID(ctx, id, upd); err != nil {
		return nil, err
	}
	return &SaveOutput{ID: id, Pages: len(doc.Pages), Sections: doc.Pages.SectionCount()}, nil
}
