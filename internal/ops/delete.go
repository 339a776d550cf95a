package ops

import (
	"context"
)

// DeleteInput contains parameters for the DeleteSite operation.
type DeleteInput struct {
	ID string
}

// DeleteOutput contains the result of the DeleteSite operation.
type DeleteOutput struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

// DeleteSite permanently removes a site row. Published deploys are left
// untouched.
func DeleteSite(ctx context.Context, store SiteStore, input DeleteInput) (*DeleteOutput, error) {
	id, err := requireID(input.ID)
	if err != nil {
		return nil, err
	}
	if err := store.DeleteByID(ctx, id); err != nil {
		return nil, err
	}
	return &DeleteOutput{ID: id, Deleted: true}, nil
}
