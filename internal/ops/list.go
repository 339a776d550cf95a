package ops

import (
	"context"
)

// ListInput contains parameters for the ListSites operation.
type ListInput struct {
	Owner  string // empty lists every owner's sites
	Limit  int    // default: 20, max: 100
	Offset int    // default: 0
}

// ListOutput contains the result of the ListSites operation.
type ListOutput struct {
	Items      []SiteSummary `json:"items"`
	Pagination Pagination    `json:"pagination"`
	Sort       string        `json:"sort"`
}

// ListSites returns site summaries, most recently updated first.
func ListSites(ctx context.Context, store SiteStore, input ListInput) (*ListOutput, error) {
	// Apply limit defaults and bounds
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	// Ensure offset is non-negative
	offset := max(input.Offset, 0)

	sites, err := store.ListByOwner(ctx, input.Owner)
	if err != nil {
		return nil, err
	}
	total := len(sites)

	items := []SiteSummary{}
	for i := offset; i < total && len(items) < limit; i++ {
		items = append(items, Summarize(&sites[i]))
	}

	return &ListOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
		Sort: "updated_at_desc",
	}, nil
}
