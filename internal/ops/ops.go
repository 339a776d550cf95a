package ops

import (
	"context"
	"strings"
	"time"

	"github.com/sitesmith/sitesmith/internal/call"
	"github.com/sitesmith/sitesmith/internal/db"
	"github.com/sitesmith/sitesmith/internal/document"
	"github.com/sitesmith/sitesmith/internal/errors"
)

// DefaultOwner owns sites created without an authenticated user.
const DefaultOwner = "local"

// Pagination limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// SiteStore is the row store every site operation runs against.
// *db.Store satisfies it.
type SiteStore interface {
	Insert(ctx context.Context, owner, name, pages, template string) (*db.Site, error)
	GetByID(ctx context.Context, id string) (*db.Site, error)
	UpdateByID(ctx context.Context, id string, upd db.SiteUpdate) error
	DeleteByID(ctx context.Context, id string) error
	ListByOwner(ctx context.Context, owner string) ([]db.Site, error)
}

// timedStore bounds every call of the wrapped store.
type timedStore struct {
	store   SiteStore
	timeout time.Duration
}

// Timed wraps store so each call is raced against timeout and reports
// TIMEOUT when it expires.
func Timed(store SiteStore, timeout time.Duration) SiteStore {
	return &timedStore{store: store, timeout: timeout}
}

func (t *timedStore) Insert(ctx context.Context, owner, name, pages, template string) (*db.Site, error) {
	return call.Do(ctx, "create site", t.timeout, func(ctx context.Context) (*db.Site, error) {
		return t.store.Insert(ctx, owner, name, pages, template)
	})
}

func (t *timedStore) GetByID(ctx context.Context, id string) (*db.Site, error) {
	return call.Do(ctx, "fetch site", t.timeout, func(ctx context.Context) (*db.Site, error) {
		return t.store.GetByID(ctx, id)
	})
}

func (t *timedStore) UpdateByID(ctx context.Context, id string, upd db.SiteUpdate) error {
	return call.Run(ctx, "save site", t.timeout, func(ctx context.Context) error {
		return t.store.UpdateByID(ctx, id, upd)
	})
}

func (t *timedStore) DeleteByID(ctx context.Context, id string) error {
	return call.Run(ctx, "delete site", t.timeout, func(ctx context.Context) error {
		return t.store.DeleteByID(ctx, id)
	})
}

func (t *timedStore) ListByOwner(ctx context.Context, owner string) ([]db.Site, error) {
	return call.Do(ctx, "list sites", t.timeout, func(ctx context.Context) ([]db.Site, error) {
		return t.store.ListByOwner(ctx, owner)
	})
}

// SiteSummary is the dashboard view of a site.
type SiteSummary struct {
	ID           string  `json:"id"`
	Owner        string  `json:"owner"`
	Name         string  `json:"name"`
	Template     string  `json:"template,omitempty"`
	PageCount    int     `json:"page_count"`
	SectionCount int     `json:"section_count"`
	PublishedURL *string `json:"published_url,omitempty"`
	PublishedAt  *int64  `json:"published_at,omitempty"`
	CreatedAt    int64   `json:"created_at"`
	UpdatedAt    int64   `json:"updated_at"`
}

// Summarize builds a SiteSummary. Unreadable pages count as zero.
func Summarize(site *db.Site) SiteSummary {
	pages, _ := document.ParsePages([]byte(site.Pages))
	return SiteSummary{
		ID:           site.ID,
		Owner:        site.Owner,
		Name:         site.Name,
		Template:     site.Template,
		PageCount:    len(pages),
		SectionCount: pages.SectionCount(),
		PublishedURL: site.PublishedURL,
		PublishedAt:  site.PublishedAt,
		CreatedAt:    site.CreatedAt,
		UpdatedAt:    site.UpdatedAt,
	}
}

// requireID trims id and rejects an empty one.
func requireID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.NewValidation("id is required")
	}
	return id, nil
}

// ownerOrDefault trims owner, defaulting to DefaultOwner.
func ownerOrDefault(owner string) string {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return DefaultOwner
	}
	return owner
}
