package ops

import (
	"context"
	"testing"

	"github.com/sitesmith/sitesmith/internal/errors"
)

func TestDeleteSite(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	id := insertSite(t, store, "Doomed", `{"home":[]}`)

	out, err := DeleteSite(ctx, store, DeleteInput{ID: id})
	if err != nil {
		t.Fatalf("DeleteSite failed: %v", err)
	}
	if !out.Deleted || out.ID != id {
		t.Errorf("output = %+v", out)
	}

	if _, err := store.GetByID(ctx, id); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("GetByID after delete: err = %v, want NOT_FOUND", err)
	}
	if _, err := DeleteSite(ctx, store, DeleteInput{ID: id}); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("second delete: err = %v, want NOT_FOUND", err)
	}
}

func TestDeleteSite_RequiresID(t *testing.T) {
	_, err := DeleteSite(context.Background(), newTestStore(t), DeleteInput{})
	if !errors.Is(err, errors.ErrValidation) {
		t.Errorf("err = %v, want VALIDATION", err)
	}
}
