package document

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/sitesmith/sitesmith/internal/errors"
	"github.com/sitesmith/sitesmith/internal/section"
)

func TestParsePages_ObjectKeepsOrder(t *testing.T) {
	raw := `{"home":[{"id":"s1","type":"hero","data":{"title":"Hi"}}],"pricing":[],"about":[]}`

	pages, err := ParsePages([]byte(raw))
	if err != nil {
		t.Fatalf("ParsePages() error = %v", err)
	}
	keys := pages.Keys()
	want := []string{"home", "pricing", "about"}
	if strings.Join(keys, ",") != strings.Join(want, ",") {
		t.Fatalf("Keys() = %v, want %v", keys, want)
	}
	home, _ := pages.Get(Home)
	if len(home) != 1 || home[0].ID != "s1" || section.String(home[0].Data, "title") != "Hi" {
		t.Errorf("home = %+v", home)
	}
}

func TestParsePages_StringPayload(t *testing.T) {
	inner := `{"home":[{"id":"s1","type":"text","data":{"content":"x"}}]}`
	raw, _ := json.Marshal(inner)

	pages, err := ParsePages(raw)
	if err != nil {
		t.Fatalf("ParsePages() error = %v", err)
	}
	if !pages.Has(Home) {
		t.Error("string payload lost home page")
	}
}

func TestParsePages_Empty(t *testing.T) {
	for _, raw := range []string{"", "null", `""`, "{}"} {
		pages, err := ParsePages([]byte(raw))
		if err != nil {
			t.Errorf("ParsePages(%q) error = %v", raw, err)
		}
		if len(pages) != 0 {
			t.Errorf("ParsePages(%q) = %v, want none", raw, pages)
		}
	}
}

func TestParsePages_Invalid(t *testing.T) {
	for _, raw := range []string{`{not json`, `[1,2]`, `42`, `"{broken"`} {
		_, err := ParsePages([]byte(raw))
		if !errors.Is(err, errors.ErrInvalidData) {
			t.Errorf("ParsePages(%q) error = %v, want INVALID_DATA", raw, err)
		}
	}
}

func TestDecodeSections_Lenient(t *testing.T) {
	raw := `[{"type":"hero"}, "junk", {"id":"x"}, {"id":"s2","type":"features","data":"bad","locked":true}]`

	got := DecodeSections([]byte(raw))
	if len(got) != 2 {
		t.Fatalf("DecodeSections() = %d sections, want 2", len(got))
	}
	if got[0].ID == "" {
		t.Error("section without id did not get one")
	}
	if got[1].Data == nil || len(got[1].Data) != 0 {
		t.Errorf("non-record data = %v, want empty record", got[1].Data)
	}
	if !got[1].Locked {
		t.Error("locked flag lost")
	}

	if got := DecodeSections([]byte(`{"not":"a list"}`)); len(got) != 0 {
		t.Errorf("non-list = %v, want empty", got)
	}
}

func TestPages_MarshalRoundTrip(t *testing.T) {
	pages := Pages{
		{Key: "home", Sections: []section.Section{{ID: "a", Type: section.Text, Data: map[string]any{"content": "c"}}}},
		{Key: "zeta"},
		{Key: "alpha"},
	}

	data, err := json.Marshal(pages)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.HasPrefix(string(data), `{"home":`) || strings.Index(string(data), `"zeta"`) > strings.Index(string(data), `"alpha"`) {
		t.Errorf("Marshal() = %s, want slice order", data)
	}
	if !strings.Contains(string(data), `"zeta":[]`) {
		t.Errorf("nil sections should encode as []: %s", data)
	}

	var back Pages
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if strings.Join(back.Keys(), ",") != "home,zeta,alpha" {
		t.Errorf("round trip keys = %v", back.Keys())
	}
}

func TestPages_Mutations(t *testing.T) {
	pages := Pages{{Key: Home}, {Key: "about"}}

	if pages.Rename("about", Home) {
		t.Error("Rename onto existing key succeeded")
	}
	if !pages.Rename("about", "team") || pages.Index("team") != 1 {
		t.Errorf("Rename() keys = %v", pages.Keys())
	}
	pages.Set("contact", nil)
	if got, ok := pages.Get("contact"); !ok || got == nil {
		t.Errorf("Set() with nil sections = %v, %v", got, ok)
	}
	if !pages.Delete("team") || pages.Has("team") {
		t.Errorf("Delete() keys = %v", pages.Keys())
	}
	if pages.Delete("missing") {
		t.Error("Delete(missing) = true")
	}
}

func TestPages_EnsureHome(t *testing.T) {
	pages := Pages{{Key: "about"}}
	pages.EnsureHome()
	if pages.Index(Home) != 0 {
		t.Errorf("EnsureHome() keys = %v, want home first", pages.Keys())
	}
	pages.EnsureHome()
	if len(pages) != 2 {
		t.Errorf("EnsureHome() twice = %v", pages.Keys())
	}
}

func TestDocument_CloneIsDeep(t *testing.T) {
	doc := New("Site")
	doc.Pages.Set(Home, []section.Section{section.New(section.Hero)})

	clone := doc.Clone()
	home, _ := clone.Pages.Get(Home)
	home[0].Data["title"] = "Changed"
	clone.Pages.Set("extra", nil)

	orig, _ := doc.Pages.Get(Home)
	if section.String(orig[0].Data, "title") == "Changed" {
		t.Error("clone shares section data")
	}
	if doc.Pages.Has("extra") {
		t.Error("clone shares page list")
	}
}

func TestDocument_Title(t *testing.T) {
	if got := New("").Title(); got != DefaultName {
		t.Errorf("Title() = %q, want %q", got, DefaultName)
	}
	if got := New("Acme").Title(); got != "Acme" {
		t.Errorf("Title() = %q, want Acme", got)
	}
}
