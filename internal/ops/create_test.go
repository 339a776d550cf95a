package ops

import (
	"context"
	"strings"
	"testing"

	"github.com/sitesmith/sitesmith/internal/catalog"
	"github.com/sitesmith/sitesmith/internal/document"
	"github.com/sitesmith/sitesmith/internal/errors"
)

func TestCreateSite_Blank(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	out, err := CreateSite(ctx, store, nil, CreateInput{Name: "  My Site "})
	if err != nil {
		t.Fatalf("CreateSite failed: %v", err)
	}
	if out.Name != "My Site" {
		t.Errorf("Name = %q, want trimmed", out.Name)
	}
	if out.Sections != 0 {
		t.Errorf("Sections = %d, want 0", out.Sections)
	}

	site, err := store.GetByID(ctx, out.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if site.Owner != DefaultOwner {
		t.Errorf("Owner = %q, want %q", site.Owner, DefaultOwner)
	}
	pages, err := document.ParsePages([]byte(site.Pages))
	if err != nil {
		t.Fatalf("ParsePages failed: %v", err)
	}
	if !pages.Has(document.Home) {
		t.Errorf("pages = %v, want a home page", pages.Keys())
	}
}

func TestCreateSite_FromTemplate(t *testing.T) {
	store := newTestStore(t)
	cat := catalog.MustLoad("")

	out, err := CreateSite(context.Background(), store, cat, CreateInput{Owner: "u1", Name: "Launch", Template: "landing"})
	if err != nil {
		t.Fatalf("CreateSite failed: %v", err)
	}
	if out.Sections != 4 {
		t.Errorf("Sections = %d, want 4 from the landing template", out.Sections)
	}

	site, _ := store.GetByID(context.Background(), out.ID)
	if site.Template != "landing" {
		t.Errorf("Template = %q, want landing", site.Template)
	}
}

func TestCreateSite_Errors(t *testing.T) {
	store := newTestStore(t)
	cat := catalog.MustLoad("")

	tests := []struct {
		name  string
		input CreateInput
		cat   *catalog.Catalog
		code  errors.ErrorCode
	}{
		{"empty name", CreateInput{Name: " "}, cat, errors.ErrValidation},
		{"long name", CreateInput{Name: strings.Repeat("x", MaxSiteNameLength+1)}, cat, errors.ErrValidation},
		{"unknown template", CreateInput{Name: "a", Template: "nope"}, cat, errors.ErrNotFound},
		{"bad template id", CreateInput{Name: "a", Template: "../etc"}, cat, errors.ErrValidation},
		{"no catalog", CreateInput{Name: "a", Template: "landing"}, nil, errors.ErrValidation},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := CreateSite(context.Background(), store, tc.cat, tc.input)
			if !errors.Is(err, tc.code) {
				t.Errorf("err = %v, want %s", err, tc.code)
			}
		})
	}
}
