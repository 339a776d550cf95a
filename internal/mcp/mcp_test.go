package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/sitesmith/sitesmith/internal/catalog"
	"github.com/sitesmith/sitesmith/internal/config"
	"github.com/sitesmith/sitesmith/internal/db"
	"github.com/sitesmith/sitesmith/internal/deploy"
	"github.com/sitesmith/sitesmith/internal/editor"
	"github.com/sitesmith/sitesmith/internal/errors"
	"github.com/sitesmith/sitesmith/internal/ops"
	"github.com/sitesmith/sitesmith/internal/publish"
	"github.com/sitesmith/sitesmith/internal/render"
)

// testSetup creates a temporary database, catalog and registry for testing.
func testSetup(t *testing.T) (*Handlers, Deps) {
	t.Helper()

	tmpDir := t.TempDir()
	database, err := db.Init(tmpDir)
	if err != nil {
		t.Fatalf("failed to init db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	store := db.NewStore(database, db.SQLite)

	cfg := config.DefaultConfig()
	cfg.ExportsDir = filepath.Join(tmpDir, "exports")
	cfg.DeployDir = filepath.Join(tmpDir, "deploys")

	sites := render.New()
	cat := catalog.MustLoad("")
	deps := Deps{
		Store:    store,
		Catalog:  cat,
		Registry: editor.NewRegistry(ops.EditorStore{Store: store}, editor.Options{Catalog: cat}),
		Pipeline: publish.New(store, deploy.NewDirectory(cfg.DeployDir, "http://localhost/deploys"), sites, 5*time.Second),
		Sites:    sites,
		Config:   cfg,
	}
	return NewHandlers(deps), deps
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

type toolFunc func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

// call invokes a handler and decodes its JSON payload into out. It fails
// the test if the handler reports an error.
func call(t *testing.T, fn toolFunc, args map[string]any, out any) {
	t.Helper()
	result, err := fn(context.Background(), makeRequest(args))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	text := result.Content[0].(mcp.TextContent).Text
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", text)
	}
	if out != nil {
		if err := json.Unmarshal([]byte(text), out); err != nil {
			t.Fatalf("failed to parse result %q: %v", text, err)
		}
	}
}

// callErr invokes a handler that is expected to fail and returns the error code.
func callErr(t *testing.T, fn toolFunc, args map[string]any) string {
	t.Helper()
	result, err := fn(context.Background(), makeRequest(args))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !result.IsError {
		t.Fatalf("expected IsError, got %s", result.Content[0].(mcp.TextContent).Text)
	}
	var payload struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &payload); err != nil {
		t.Fatalf("failed to parse error: %v", err)
	}
	return payload.Error.Code
}

func createSite(t *testing.T, h *Handlers, name, template string) string {
	t.Helper()
	var out ops.CreateOutput
	args := map[string]any{"name": name}
	if template != "" {
		args["template"] = template
	}
	call(t, h.HandleSiteCreate, args, &out)
	return out.ID
}

func TestHandleSiteCreate(t *testing.T) {
	h, _ := testSetup(t)

	tests := []struct {
		name     string
		args     map[string]any
		wantErr  string
		sections int
	}{
		{"blank site", map[string]any{"name": "Blank"}, "", 0},
		{"from template", map[string]any{"name": "Shop", "template": "business"}, "", 3},
		{"missing name", map[string]any{}, "VALIDATION", 0},
		{"unknown template", map[string]any{"name": "X", "template": "nope"}, "NOT_FOUND", 0},
		{"unknown argument", map[string]any{"name": "X", "colour": "red"}, "VALIDATION", 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.wantErr != "" {
				if code := callErr(t, h.HandleSiteCreate, tc.args); code != tc.wantErr {
					t.Errorf("code = %s, want %s", code, tc.wantErr)
				}
				return
			}
			var out ops.CreateOutput
			call(t, h.HandleSiteCreate, tc.args, &out)
			if out.ID == "" {
				t.Fatal("expected an id")
			}
			if out.Sections != tc.sections {
				t.Errorf("sections = %d, want %d", out.Sections, tc.sections)
			}
		})
	}
}

func TestHandleSiteGetAndList(t *testing.T) {
	h, _ := testSetup(t)
	id := createSite(t, h, "Bakery", "landing")
	createSite(t, h, "Studio", "")

	var got ops.FetchOutput
	call(t, h.HandleSiteGet, map[string]any{"id": id}, &got)
	if got.Name != "Bakery" {
		t.Errorf("name = %q", got.Name)
	}
	if sections, _ := got.Document.Pages.Get("home"); len(sections) == 0 {
		t.Error("home page should carry the template sections")
	}

	var list ops.ListOutput
	call(t, h.HandleSiteList, map[string]any{"limit": 1}, &list)
	if len(list.Items) != 1 || !list.Pagination.HasMore || list.Pagination.Total != 2 {
		t.Errorf("list = %+v", list)
	}

	if code := callErr(t, h.HandleSiteGet, map[string]any{"id": "missing"}); code != "NOT_FOUND" {
		t.Errorf("code = %s, want NOT_FOUND", code)
	}
}

func TestHandleSiteGet_ShowsUnsavedSession(t *testing.T) {
	h, deps := testSetup(t)
	id := createSite(t, h, "Draft", "")

	session, err := deps.Registry.Open(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := session.AddSection("text"); err != nil {
		t.Fatal(err)
	}

	var got ops.FetchOutput
	call(t, h.HandleSiteGet, map[string]any{"id": id}, &got)
	if sections, _ := got.Document.Pages.Get("home"); len(sections) != 1 {
		t.Errorf("home sections = %d, want the unsaved section", len(sections))
	}
	if len(got.Warnings) == 0 {
		t.Error("expected an unsaved-edits warning")
	}
}

func TestSectionTools(t *testing.T) {
	h, deps := testSetup(t)
	id := createSite(t, h, "Sections", "")

	var added EditResult
	call(t, h.HandleSectionAdd, map[string]any{"site_id": id, "type": "hero"}, &added)
	if added.SectionID == "" || !added.Saved {
		t.Fatalf("add = %+v", added)
	}
	var second EditResult
	call(t, h.HandleSectionAdd, map[string]any{"site_id": id, "type": "text"}, &second)

	var updated EditResult
	call(t, h.HandleSectionUpdateField, map[string]any{
		"site_id": id, "section_id": added.SectionID, "path": "title", "value": "Fresh Bread",
	}, &updated)
	if updated.Sections[0].Data["title"] != "Fresh Bread" {
		t.Errorf("title = %v", updated.Sections[0].Data["title"])
	}

	var moved EditResult
	call(t, h.HandleSectionMove, map[string]any{"site_id": id, "section_id": added.SectionID, "direction": "down"}, &moved)
	if moved.Sections[1].ID != added.SectionID {
		t.Errorf("hero should be second after moving down, got %s", moved.Sections[1].ID)
	}

	var deleted EditResult
	call(t, h.HandleSectionDelete, map[string]any{"site_id": id, "section_id": second.SectionID}, &deleted)
	if len(deleted.Sections) != 1 {
		t.Errorf("sections = %d, want 1", len(deleted.Sections))
	}

	// Every edit is saved through to the store.
	site, err := deps.Store.GetByID(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(site.Pages, "Fresh Bread") {
		t.Error("stored pages should contain the edit")
	}
	if strings.Contains(site.Pages, second.SectionID) {
		t.Error("deleted section should be gone from the store")
	}
}

func TestSectionAdd_MarkdownFormat(t *testing.T) {
	h, deps := testSetup(t)
	id := createSite(t, h, "Notes", "")

	var added EditResult
	call(t, h.HandleSectionAdd, map[string]any{"site_id": id, "type": "text", "format": "markdown"}, &added)
	if added.Sections[0].Data["format"] != "markdown" {
		t.Fatalf("format = %v", added.Sections[0].Data["format"])
	}
	var updated EditResult
	call(t, h.HandleSectionUpdateField, map[string]any{
		"site_id": id, "section_id": added.SectionID, "path": "content", "value": "**Fresh** bread",
	}, &updated)

	session, ok := deps.Registry.Get(id)
	if !ok {
		t.Fatal("expected an open session")
	}
	page, _ := deps.Sites.Site(session.Document(), render.Static).Get("index.html")
	if !strings.Contains(string(page), "<strong>Fresh</strong> bread") {
		t.Errorf("markdown not rendered: %s", page)
	}

	// format is only meaningful on text sections
	for _, args := range []map[string]any{
		{"site_id": id, "type": "hero", "format": "markdown"},
		{"site_id": id, "type": "text", "format": "html"},
	} {
		if code := callErr(t, h.HandleSectionAdd, args); code != "VALIDATION" {
			t.Errorf("%v: code = %s, want VALIDATION", args, code)
		}
	}
}

func TestSectionTools_Errors(t *testing.T) {
	h, _ := testSetup(t)
	id := createSite(t, h, "Errors", "landing")

	tests := []struct {
		name string
		fn   toolFunc
		args map[string]any
		want string
	}{
		{"missing site", h.HandleSectionAdd, map[string]any{"type": "hero"}, "VALIDATION"},
		{"unknown site", h.HandleSectionAdd, map[string]any{"site_id": "nope", "type": "hero"}, "NOT_FOUND"},
		{"unknown type", h.HandleSectionAdd, map[string]any{"site_id": id, "type": "carousel"}, "VALIDATION"},
		{"unknown page", h.HandleSectionAdd, map[string]any{"site_id": id, "type": "hero", "page": "menu"}, "NOT_FOUND"},
		{"unknown section", h.HandleSectionDelete, map[string]any{"site_id": id, "section_id": "nope"}, "NOT_FOUND"},
		{"bad direction", h.HandleSectionMove, map[string]any{"site_id": id, "section_id": "x", "direction": "left"}, "VALIDATION"},
		{"missing path", h.HandleSectionUpdateField, map[string]any{"site_id": id, "section_id": "x"}, "VALIDATION"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if code := callErr(t, tc.fn, tc.args); code != tc.want {
				t.Errorf("code = %s, want %s", code, tc.want)
			}
		})
	}
}

func TestPageTools(t *testing.T) {
	h, _ := testSetup(t)
	id := createSite(t, h, "Pages", "")

	var added EditResult
	call(t, h.HandlePageAdd, map[string]any{"site_id": id, "name": "About Us"}, &added)
	if added.PageKey != "about-us" || len(added.Pages) != 2 {
		t.Fatalf("add = %+v", added)
	}

	// Sections can target a page other than the active one.
	var onHome EditResult
	call(t, h.HandleSectionAdd, map[string]any{"site_id": id, "type": "contact", "page": "home"}, &onHome)
	if onHome.Page != "home" || len(onHome.Sections) != 1 {
		t.Errorf("section_add on home = %+v", onHome)
	}

	var renamed EditResult
	call(t, h.HandlePageRename, map[string]any{"site_id": id, "page": "about-us", "new_name": "Our Story"}, &renamed)
	if renamed.PageKey != "our-story" {
		t.Errorf("renamed key = %q", renamed.PageKey)
	}

	if code := callErr(t, h.HandlePageAdd, map[string]any{"site_id": id, "name": "our story"}); code != "CONFLICT" {
		t.Errorf("duplicate page code = %s, want CONFLICT", code)
	}
	if code := callErr(t, h.HandlePageRename, map[string]any{"site_id": id, "page": "home", "new_name": "Start"}); code != "VALIDATION" {
		t.Errorf("rename home code = %s, want VALIDATION", code)
	}
	if code := callErr(t, h.HandlePageDelete, map[string]any{"site_id": id, "page": "missing"}); code != "NOT_FOUND" {
		t.Errorf("delete missing code = %s, want NOT_FOUND", code)
	}

	var deleted EditResult
	call(t, h.HandlePageDelete, map[string]any{"site_id": id, "page": "our-story"}, &deleted)
	if len(deleted.Pages) != 1 || deleted.Pages[0] != "home" {
		t.Errorf("pages after delete = %v", deleted.Pages)
	}
}

func TestPageLoadTemplate(t *testing.T) {
	h, _ := testSetup(t)
	id := createSite(t, h, "Portfolio", "")

	var out EditResult
	call(t, h.HandlePageLoadTemplate, map[string]any{"site_id": id, "template": "portfolio"}, &out)
	if len(out.Sections) == 0 {
		t.Error("template sections should replace the empty page")
	}
}

func TestStylesTools(t *testing.T) {
	h, _ := testSetup(t)
	id := createSite(t, h, "Styled", "")

	var themed EditResult
	call(t, h.HandleStylesApplyTheme, map[string]any{"site_id": id, "theme": "dark"}, &themed)
	if themed.Styles.BackgroundColor == "" {
		t.Errorf("styles = %+v", themed.Styles)
	}

	var updated EditResult
	call(t, h.HandleStylesUpdate, map[string]any{"site_id": id, "styles": map[string]any{"primaryColor": "#ff0000", "borderRadius": 12}}, &updated)
	if updated.Styles.PrimaryColor != "#ff0000" || updated.Styles.BorderRadius != "12" {
		t.Errorf("styles = %+v", updated.Styles)
	}
	if updated.Styles.BackgroundColor != themed.Styles.BackgroundColor {
		t.Error("unspecified tokens should be kept")
	}

	if code := callErr(t, h.HandleStylesApplyTheme, map[string]any{"site_id": id, "theme": "neon"}); code != "NOT_FOUND" {
		t.Errorf("unknown theme code = %s, want NOT_FOUND", code)
	}
	if code := callErr(t, h.HandleStylesUpdate, map[string]any{"site_id": id}); code != "VALIDATION" {
		t.Errorf("missing styles code = %s, want VALIDATION", code)
	}
}

func TestHandleSiteRename(t *testing.T) {
	h, deps := testSetup(t)
	id := createSite(t, h, "Old Name", "")

	var out EditResult
	call(t, h.HandleSiteRename, map[string]any{"id": id, "name": "New Name"}, &out)
	if out.Name != "New Name" {
		t.Errorf("name = %q", out.Name)
	}
	site, _ := deps.Store.GetByID(context.Background(), id)
	if site.Name != "New Name" {
		t.Errorf("stored name = %q", site.Name)
	}

	if code := callErr(t, h.HandleSiteRename, map[string]any{"id": id, "name": "  "}); code != "VALIDATION" {
		t.Errorf("blank name code = %s, want VALIDATION", code)
	}
}

func TestHandleSiteExport(t *testing.T) {
	h, deps := testSetup(t)
	id := createSite(t, h, "Export Me", "landing")

	var out ops.ExportOutput
	call(t, h.HandleSiteExport, map[string]any{"id": id}, &out)
	if out.Path != filepath.Join(deps.Config.ExportsDir, "website.zip") {
		t.Errorf("path = %q", out.Path)
	}
	data, err := os.ReadFile(out.Path)
	if err != nil {
		t.Fatal(err)
	}
	files, err := deploy.Unzip(data)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := files.Get("index.html"); !ok {
		t.Error("archive should contain index.html")
	}

	outside := filepath.Join(t.TempDir(), "elsewhere.zip")
	if code := callErr(t, h.HandleSiteExport, map[string]any{"id": id, "path": outside}); code != "VALIDATION" {
		t.Errorf("outside exports dir code = %s, want VALIDATION", code)
	}

	deps.Config.AllowUnsafePaths = true
	call(t, h.HandleSiteExport, map[string]any{"id": id, "path": outside}, &out)
	if out.Path != outside {
		t.Errorf("unrestricted path = %q", out.Path)
	}
}

func TestHandleSitePublish(t *testing.T) {
	h, deps := testSetup(t)
	id := createSite(t, h, "Go Live", "landing")

	var out publish.Result
	call(t, h.HandleSitePublish, map[string]any{"id": id}, &out)
	if !strings.HasPrefix(out.SiteURL, "http://localhost/deploys/go-live-") {
		t.Errorf("SiteURL = %q", out.SiteURL)
	}
	index := filepath.Join(deps.Config.DeployDir, out.HostingSiteID, "index.html")
	if _, err := os.Stat(index); err != nil {
		t.Errorf("deployed index missing: %v", err)
	}

	if code := callErr(t, h.HandleSitePublish, map[string]any{}); code != "VALIDATION" {
		t.Errorf("missing id code = %s, want VALIDATION", code)
	}
}

func TestHandleSiteDelete(t *testing.T) {
	h, deps := testSetup(t)
	id := createSite(t, h, "Doomed", "")
	call(t, h.HandleSectionAdd, map[string]any{"site_id": id, "type": "text"}, nil)

	var out ops.DeleteOutput
	call(t, h.HandleSiteDelete, map[string]any{"id": id}, &out)
	if !out.Deleted {
		t.Error("expected deleted")
	}
	if _, open := deps.Registry.Get(id); open {
		t.Error("session should be closed")
	}
	if code := callErr(t, h.HandleSiteDelete, map[string]any{"id": id}); code != "NOT_FOUND" {
		t.Errorf("second delete code = %s, want NOT_FOUND", code)
	}
}

func TestHandleTemplatesList(t *testing.T) {
	h, _ := testSetup(t)

	var out ops.TemplatesOutput
	call(t, h.HandleTemplatesList, nil, &out)
	if len(out.Templates) != 3 {
		t.Errorf("templates = %d, want 3", len(out.Templates))
	}
	if len(out.Themes) == 0 {
		t.Error("expected theme names")
	}
}

func TestHandlePageResource(t *testing.T) {
	h, _ := testSetup(t)
	id := createSite(t, h, "Resource", "landing")
	call(t, h.HandlePageAdd, map[string]any{"site_id": id, "name": "About"}, nil)

	read := func(uri string) ([]mcp.ResourceContents, error) {
		req := mcp.ReadResourceRequest{}
		req.Params.URI = uri
		return h.HandlePageResource(context.Background(), req)
	}

	for _, file := range []string{"index.html", "about.html", "about", "styles.css"} {
		contents, err := read(fmt.Sprintf("sitesmith://sites/%s/%s", id, file))
		if err != nil {
			t.Fatalf("%s: %v", file, err)
		}
		text := contents[0].(mcp.TextResourceContents)
		if text.Text == "" {
			t.Errorf("%s: empty body", file)
		}
		if strings.HasSuffix(file, ".css") != (text.MIMEType == "text/css") {
			t.Errorf("%s: MIME type %q", file, text.MIMEType)
		}
	}

	if _, err := read("sitesmith://sites/" + id + "/missing.html"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("missing page err = %v", err)
	}
	if _, err := read("sitesmith://other/" + id); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("bad uri err = %v", err)
	}
}

func TestServerRegistration(t *testing.T) {
	_, deps := testSetup(t)

	s := NewServer(deps, "test")
	tools := s.ListTools()

	expected := AllToolNames()
	if len(expected) != 18 {
		t.Errorf("tool count = %d, want 18", len(expected))
	}
	if len(tools) != len(expected) {
		t.Errorf("registered tool count = %d, want %d", len(tools), len(expected))
	}
	for _, name := range expected {
		if _, ok := tools[name]; !ok {
			t.Errorf("missing registered tool: %s", name)
		}
	}
}

func TestServerRegistration_WithDisabledTools(t *testing.T) {
	_, deps := testSetup(t)

	deps.Config.DisabledTools = []string{"site_delete", "site_publish", "site_publish"}
	tools := NewServer(deps, "test").ListTools()

	if len(tools) != len(toolRegistry)-2 {
		t.Errorf("registered tool count = %d, want %d", len(tools), len(toolRegistry)-2)
	}
	for _, name := range []string{"site_delete", "site_publish"} {
		if _, ok := tools[name]; ok {
			t.Errorf("disabled tool %q should not be registered", name)
		}
	}
}

func TestServerRegistration_AllToolsDisabled(t *testing.T) {
	_, deps := testSetup(t)

	deps.Config.DisabledTools = AllToolNames()
	if tools := NewServer(deps, "test").ListTools(); len(tools) != 0 {
		t.Errorf("registered tool count = %d, want 0 (all disabled)", len(tools))
	}
}

func TestValidateDisabledTools(t *testing.T) {
	unknown := ValidateDisabledTools([]string{"site_get", "site_store", "page_add", "bogus"})
	if len(unknown) != 2 || unknown[0] != "site_store" || unknown[1] != "bogus" {
		t.Errorf("unknown = %v", unknown)
	}
	if got := ValidateDisabledTools(nil); len(got) != 0 {
		t.Errorf("nil input = %v, want empty", got)
	}
}

func TestErrorResult_InternalDoesNotExposeDetails(t *testing.T) {
	r := errorResult(fmt.Errorf("open /secret/path/sites.db: permission denied"))
	text := r.Content[0].(mcp.TextContent).Text
	if !r.IsError {
		t.Error("expected IsError")
	}
	if strings.Contains(text, "/secret/path") {
		t.Errorf("internal details leaked: %s", text)
	}
	if !strings.Contains(text, `"INTERNAL"`) {
		t.Errorf("expected INTERNAL code: %s", text)
	}
}

func TestErrorResult_NonInternalIncludesDetails(t *testing.T) {
	r := errorResult(errors.NewNotFound("site", "abc"))
	var payload map[string]map[string]any
	if err := json.Unmarshal([]byte(r.Content[0].(mcp.TextContent).Text), &payload); err != nil {
		t.Fatal(err)
	}
	if payload["error"]["code"] != "NOT_FOUND" || payload["error"]["status"] != float64(404) {
		t.Errorf("payload = %v", payload)
	}
	details, _ := payload["error"]["details"].(map[string]any)
	if details["identifier"] != "abc" {
		t.Errorf("details = %v", details)
	}
}
