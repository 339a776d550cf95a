package ops

import (
	"context"
	"testing"

	"github.com/sitesmith/sitesmith/internal/db"
	"github.com/sitesmith/sitesmith/internal/document"
	"github.com/sitesmith/sitesmith/internal/errors"
)

func TestFetchSite(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	id := insertSite(t, store, "Acme", `{"home":[{"id":"h1","type":"hero","data":{"title":"Hi"}}],"about":[]}`)

	out, err := FetchSite(ctx, store, FetchInput{ID: id})
	if err != nil {
		t.Fatalf("FetchSite failed: %v", err)
	}
	if out.Document.Name != "Acme" {
		t.Errorf("Name = %q, want Acme", out.Document.Name)
	}
	keys := out.Document.Pages.Keys()
	if len(keys) != 2 || keys[0] != document.Home || keys[1] != "about" {
		t.Errorf("page keys = %v, want [home about]", keys)
	}
	if out.Document.Styles != document.DefaultStyles() {
		t.Errorf("Styles = %+v, want defaults when none stored", out.Document.Styles)
	}
	if len(out.Warnings) != 0 {
		t.Errorf("Warnings = %v, want none", out.Warnings)
	}
}

func TestFetchSite_MalformedFallsBack(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	id := insertSite(t, store, "Broken", `[1,2,3]`)
	styles := `{"primaryColor":`
	if err := store.UpdateByID(ctx, id, db.SiteUpdate{Styles: &styles}); err != nil {
		t.Fatalf("UpdateByID failed: %v", err)
	}

	out, err := FetchSite(ctx, store, FetchInput{ID: id})
	if !errors.Is(err, errors.ErrInvalidData) {
		t.Fatalf("err = %v, want INVALID_DATA", err)
	}
	if out == nil {
		t.Fatal("output = nil, want defaults alongside the error")
	}
	if !out.Document.Pages.Has(document.Home) || out.Document.Pages.SectionCount() != 0 {
		t.Errorf("pages = %v, want an empty home page", out.Document.Pages.Keys())
	}
	if out.Document.Styles != document.DefaultStyles() {
		t.Errorf("Styles = %+v, want defaults", out.Document.Styles)
	}
	if len(out.Warnings) != 2 {
		t.Errorf("Warnings = %v, want 2", out.Warnings)
	}
}

func TestFetchSite_NotFound(t *testing.T) {
	_, err := FetchSite(context.Background(), newTestStore(t), FetchInput{ID: "nope"})
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("err = %v, want NOT_FOUND", err)
	}
}

func TestSaveSite_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	id := insertSite(t, store, "Before", `{"home":[]}`)

	doc := document.New("After")
	doc.Pages.Set("contact", nil)
	doc.Styles.PrimaryColor = "#112233"

	out, err := SaveSite(ctx, store, SaveInput{ID: id, Document: doc})
	if err != nil {
		t.Fatalf("SaveSite failed: %v", err)
	}
	if out.Pages != 2 {
		t.Errorf("Pages = %d, want 2", out.Pages)
	}

	got, err := FetchSite(ctx, store, FetchInput{ID: id})
	if err != nil {
		t.Fatalf("FetchSite failed: %v", err)
	}
	if got.Name != "After" {
		t.Errorf("Name = %q, want After", got.Name)
	}
	if got.Document.Styles.PrimaryColor != "#112233" {
		t.Errorf("PrimaryColor = %q", got.Document.Styles.PrimaryColor)
	}
	if !got.Document.Pages.Has("contact") {
		t.Errorf("pages = %v, want contact", got.Document.Pages.Keys())
	}
}

func TestSaveSite_Validation(t *testing.T) {
	store := newTestStore(t)
	if _, err := SaveSite(context.Background(), store, SaveInput{ID: "x"}); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("nil document: err = %v, want VALIDATION", err)
	}
	if _, err := SaveSite(context.Background(), store, SaveInput{Document: document.New("a")}); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("missing id: err = %v, want VALIDATION", err)
	}
}

func TestEditorStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	id := insertSite(t, store, "Edited", `"garbage"`)
	es := EditorStore{Store: store}

	doc, err := es.Load(ctx, id)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !doc.Pages.Has(document.Home) {
		t.Errorf("pages = %v, want home", doc.Pages.Keys())
	}

	doc.Name = "Edited Again"
	if err := es.Save(ctx, id, doc); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	site, _ := store.GetByID(ctx, id)
	if site.Name != "Edited Again" {
		t.Errorf("Name = %q", site.Name)
	}

	if _, err := es.Load(ctx, "missing"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Load missing: err = %v, want NOT_FOUND", err)
	}
}
