package ops

import (
	"context"
	"log"

	"github.com/sitesmith/sitesmith/internal/document"
	"github.com/sitesmith/sitesmith/internal/errors"
)

// EditorStore adapts a SiteStore to the editor's load/save interface.
type EditorStore struct {
	Store SiteStore
}

// Load fetches a site document. Malformed stored data opens with defaults.
func (e EditorStore) Load(ctx context.Context, siteID string) (*document.Document, error) {
	out, err := FetchSite(ctx, e.Store, FetchInput{ID: siteID})
	if err != nil && !errors.Is(err, errors.ErrInvalidData) {
		return nil, err
	}
	if err != nil {
		log.Printf("[editor] Opening %s with defaults: %v", siteID, err)
	}
	return out.Document, nil
}

// Save persists a session document.
func (e EditorStore) Save(ctx context.Context, siteID string, doc *document.Document) error {
	_, err := SaveSite(ctx, e.Store, SaveInput{ID: siteID, Document: doc})
	return err
}
