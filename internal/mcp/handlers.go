package mcp

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/sitesmith/sitesmith/internal/document"
	"github.com/sitesmith/sitesmith/internal/editor"
	"github.com/sitesmith/sitesmith/internal/errors"
	"github.com/sitesmith/sitesmith/internal/ops"
	"github.com/sitesmith/sitesmith/internal/render"
	"github.com/sitesmith/sitesmith/internal/section"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	Deps
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(deps Deps) *Handlers {
	return &Handlers{Deps: deps}
}

// Request types for each tool

// SiteCreateRequest represents the arguments for site_create.
type SiteCreateRequest struct {
	Name     string `json:"name"`
	Owner    string `json:"owner,omitempty"`
	Template string `json:"template,omitempty"`
}

// SiteRequest identifies a site for site_get, site_delete and site_publish.
type SiteRequest struct {
	ID string `json:"id"`
}

// SiteListRequest represents the arguments for site_list.
type SiteListRequest struct {
	Owner  string `json:"owner,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// SiteRenameRequest represents the arguments for site_rename.
type SiteRenameRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SiteExportRequest represents the arguments for site_export.
type SiteExportRequest struct {
	ID   string `json:"id"`
	Path string `json:"path,omitempty"`
}

// SectionRequest represents the arguments for the section tools. Fields
// a tool does not use are left empty.
type SectionRequest struct {
	SiteID    string `json:"site_id"`
	Page      string `json:"page,omitempty"`
	SectionID string `json:"section_id,omitempty"`
	Type      string `json:"type,omitempty"`
	Direction string `json:"direction,omitempty"`
	Path      string `json:"path,omitempty"`
	Value     any    `json:"value,omitempty"`
	Format    string `json:"format,omitempty"`
}

// PageRequest represents the arguments for the page tools.
type PageRequest struct {
	SiteID   string `json:"site_id"`
	Name     string `json:"name,omitempty"`
	Page     string `json:"page,omitempty"`
	NewName  string `json:"new_name,omitempty"`
	Template string `json:"template,omitempty"`
}

// StylesRequest represents the arguments for the styles tools.
type StylesRequest struct {
	SiteID string         `json:"site_id"`
	Theme  string         `json:"theme,omitempty"`
	Styles map[string]any `json:"styles,omitempty"`
}

// EditResult is returned by every tool that edits a document.
type EditResult struct {
	SiteID    string            `json:"site_id"`
	Name      string            `json:"name"`
	Page      string            `json:"page"`
	Pages     []string          `json:"pages"`
	Sections  []section.Section `json:"sections"`
	Styles    document.Styles   `json:"styles"`
	Saved     bool              `json:"saved"`
	SectionID string            `json:"section_id,omitempty"`
	PageKey   string            `json:"page_key,omitempty"`
}

// Site handlers

// HandleSiteCreate handles the site_create tool call.
func (h *Handlers) HandleSiteCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SiteCreateRequest](req)
	if err != nil {
		return errorResult(errors.NewValidation(err.Error())), nil
	}

	result, err := ops.CreateSite(ctx, h.Store, h.Catalog, ops.CreateInput{
		Owner:    input.Owner,
		Name:     input.Name,
		Template: input.Template,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSiteGet handles the site_get tool call. An open editing session
// wins over the stored row so unsaved edits are visible.
func (h *Handlers) HandleSiteGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SiteRequest](req)
	if err != nil {
		return errorResult(errors.NewValidation(err.Error())), nil
	}

	result, err := ops.FetchSite(ctx, h.Store, ops.FetchInput{ID: input.ID})
	if err != nil && !errors.Is(err, errors.ErrInvalidData) {
		return errorResult(err), nil
	}
	if session, ok := h.Registry.Get(result.ID); ok && session.Dirty() {
		result.Document = session.Document()
		result.Warnings = append(result.Warnings, "site has unsaved edits in an open editor")
	}

	return successResult(result)
}

// HandleSiteList handles the site_list tool call.
func (h *Handlers) HandleSiteList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SiteListRequest](req)
	if err != nil {
		return errorResult(errors.NewValidation(err.Error())), nil
	}

	result, err := ops.ListSites(ctx, h.Store, ops.ListInput{
		Owner:  input.Owner,
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSiteDelete handles the site_delete tool call.
func (h *Handlers) HandleSiteDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SiteRequest](req)
	if err != nil {
		return errorResult(errors.NewValidation(err.Error())), nil
	}

	result, err := ops.DeleteSite(ctx, h.Store, ops.DeleteInput{ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}
	h.Registry.Close(result.ID)

	return successResult(result)
}

// HandleSiteRename handles the site_rename tool call.
func (h *Handlers) HandleSiteRename(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SiteRenameRequest](req)
	if err != nil {
		return errorResult(errors.NewValidation(err.Error())), nil
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return errorResult(errors.NewValidation("name is required")), nil
	}
	if len(name) > ops.MaxSiteNameLength {
		return errorResult(errors.NewValidation("name is too long")), nil
	}

	result, err := h.edit(ctx, input.ID, "", func(s *editor.Session, out *EditResult) error {
		s.SetSiteName(name)
		return nil
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSiteExport handles the site_export tool call.
func (h *Handlers) HandleSiteExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SiteExportRequest](req)
	if err != nil {
		return errorResult(errors.NewValidation(err.Error())), nil
	}

	if err := h.flush(ctx, input.ID); err != nil {
		return errorResult(err), nil
	}
	result, err := ops.ExportSite(ctx, h.Store, h.Sites, h.Config.ExportsDir, ops.ExportInput{
		ID:           input.ID,
		Path:         input.Path,
		Unrestricted: h.Config.AllowUnsafePaths,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSitePublish handles the site_publish tool call.
func (h *Handlers) HandleSitePublish(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SiteRequest](req)
	if err != nil {
		return errorResult(errors.NewValidation(err.Error())), nil
	}
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return errorResult(errors.NewValidation("id is required")), nil
	}
	if h.Pipeline == nil {
		return errorResult(errors.NewValidation("publishing is not configured")), nil
	}

	if err := h.flush(ctx, id); err != nil {
		return errorResult(err), nil
	}
	result, err := h.Pipeline.Run(ctx, id)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Section handlers

// HandleSectionAdd handles the section_add tool call.
func (h *Handlers) HandleSectionAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SectionRequest](req)
	if err != nil {
		return errorResult(errors.NewValidation(err.Error())), nil
	}

	switch input.Format {
	case "":
	case "plain", "markdown":
		if section.Type(input.Type) != section.Text {
			return errorResult(errors.NewValidation("format applies to text sections only")), nil
		}
	default:
		return errorResult(errors.NewValidation("format must be plain or markdown")), nil
	}

	result, err := h.edit(ctx, input.SiteID, input.Page, func(s *editor.Session, out *EditResult) error {
		id, err := s.AddSection(section.Type(input.Type))
		if err != nil {
			return err
		}
		out.SectionID = id
		if input.Format != "" {
			return s.UpdateField(id, "format", input.Format)
		}
		return nil
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSectionDelete handles the section_delete tool call.
func (h *Handlers) HandleSectionDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SectionRequest](req)
	if err != nil {
		return errorResult(errors.NewValidation(err.Error())), nil
	}

	result, err := h.edit(ctx, input.SiteID, input.Page, func(s *editor.Session, out *EditResult) error {
		if err := requireSection(s, input.SectionID); err != nil {
			return err
		}
		return s.DeleteSection(input.SectionID)
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSectionMove handles the section_move tool call. Moving past either
// end of the page leaves the order unchanged.
func (h *Handlers) HandleSectionMove(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SectionRequest](req)
	if err != nil {
		return errorResult(errors.NewValidation(err.Error())), nil
	}

	var move func(*editor.Session, string) error
	switch strings.ToLower(input.Direction) {
	case "up":
		move = (*editor.Session).MoveSectionUp
	case "down":
		move = (*editor.Session).MoveSectionDown
	default:
		return errorResult(errors.NewValidation(`direction must be "up" or "down"`)), nil
	}

	result, err := h.edit(ctx, input.SiteID, input.Page, func(s *editor.Session, out *EditResult) error {
		if err := requireSection(s, input.SectionID); err != nil {
			return err
		}
		return move(s, input.SectionID)
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSectionUpdateField handles the section_update_field tool call.
func (h *Handlers) HandleSectionUpdateField(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SectionRequest](req)
	if err != nil {
		return errorResult(errors.NewValidation(err.Error())), nil
	}
	if input.Path == "" {
		return errorResult(errors.NewValidation("path is required")), nil
	}

	result, err := h.edit(ctx, input.SiteID, input.Page, func(s *editor.Session, out *EditResult) error {
		if err := requireSection(s, input.SectionID); err != nil {
			return err
		}
		return s.UpdateField(input.SectionID, input.Path, input.Value)
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Page handlers

// HandlePageAdd handles the page_add tool call.
func (h *Handlers) HandlePageAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PageRequest](req)
	if err != nil {
		return errorResult(errors.NewValidation(err.Error())), nil
	}

	result, err := h.edit(ctx, input.SiteID, "", func(s *editor.Session, out *EditResult) error {
		key, err := s.AddPage(input.Name)
		out.PageKey = key
		return err
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandlePageRename handles the page_rename tool call.
func (h *Handlers) HandlePageRename(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PageRequest](req)
	if err != nil {
		return errorResult(errors.NewValidation(err.Error())), nil
	}

	result, err := h.edit(ctx, input.SiteID, "", func(s *editor.Session, out *EditResult) error {
		if err := requirePage(s, input.Page); err != nil {
			return err
		}
		key, err := s.RenamePage(input.Page, input.NewName)
		out.PageKey = key
		return err
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandlePageDelete handles the page_delete tool call.
func (h *Handlers) HandlePageDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PageRequest](req)
	if err != nil {
		return errorResult(errors.NewValidation(err.Error())), nil
	}

	result, err := h.edit(ctx, input.SiteID, "", func(s *editor.Session, out *EditResult) error {
		if err := requirePage(s, input.Page); err != nil {
			return err
		}
		return s.DeletePage(input.Page)
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandlePageLoadTemplate handles the page_load_template tool call.
func (h *Handlers) HandlePageLoadTemplate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PageRequest](req)
	if err != nil {
		return errorResult(errors.NewValidation(err.Error())), nil
	}

	result, err := h.edit(ctx, input.SiteID, input.Page, func(s *editor.Session, out *EditResult) error {
		return s.LoadTemplate(input.Template)
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Style handlers

// HandleStylesApplyTheme handles the styles_apply_theme tool call.
func (h *Handlers) HandleStylesApplyTheme(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[StylesRequest](req)
	if err != nil {
		return errorResult(errors.NewValidation(err.Error())), nil
	}

	result, err := h.edit(ctx, input.SiteID, "", func(s *editor.Session, out *EditResult) error {
		return s.ApplyTheme(input.Theme)
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleStylesUpdate handles the styles_update tool call.
func (h *Handlers) HandleStylesUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[StylesRequest](req)
	if err != nil {
		return errorResult(errors.NewValidation(err.Error())), nil
	}
	if len(input.Styles) == 0 {
		return errorResult(errors.NewValidation("styles is required")), nil
	}

	result, err := h.edit(ctx, input.SiteID, "", func(s *editor.Session, out *EditResult) error {
		return s.UpdateStyles(document.StylesFromMap(input.Styles))
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleTemplatesList handles the templates_list tool call.
func (h *Handlers) HandleTemplatesList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(ops.ListTemplates(h.Catalog))
}

// HandlePageResource serves sitesmith://sites/{id}/{file}.
func (h *Handlers) HandlePageResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	rest, ok := strings.CutPrefix(uri, "sitesmith://sites/")
	id, file, found := strings.Cut(rest, "/")
	if !ok || !found || id == "" || file == "" {
		return nil, errors.NewValidation("resource URI must look like sitesmith://sites/{id}/{file}")
	}

	var files render.Files
	if session, open := h.Registry.Get(id); open {
		files = h.Sites.Site(session.Document(), render.Static)
	} else {
		_, rendered, err := ops.RenderSite(ctx, h.Store, h.Sites, id, render.Static)
		if err != nil {
			return nil, err
		}
		files = rendered
	}

	body, ok := files.Get(file)
	if !ok {
		body, ok = files.Get(document.PageFilename(file))
	}
	if !ok {
		return nil, errors.NewNotFound("page", file)
	}

	mime := "text/html"
	if strings.HasSuffix(file, ".css") {
		mime = "text/css"
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: uri, MIMEType: mime, Text: string(body)},
	}, nil
}

// Editing helpers

// edit runs fn against the site's editing session, on page when one is
// given, then saves. The session is shared with the browser editor, so
// the edit shows up there too.
func (h *Handlers) edit(ctx context.Context, siteID, page string, fn func(*editor.Session, *EditResult) error) (*EditResult, error) {
	siteID = strings.TrimSpace(siteID)
	if siteID == "" {
		return nil, errors.NewValidation("site_id is required")
	}
	session, err := h.Registry.Open(ctx, siteID)
	if err != nil {
		return nil, err
	}
	if page != "" {
		if err := requirePage(session, page); err != nil {
			return nil, err
		}
		session.SwitchPage(page)
	}

	out := &EditResult{}
	if err := fn(session, out); err != nil {
		return nil, err
	}

	saved, err := session.Save(ctx, h.Registry.Store())
	if err != nil {
		// The edit stays in the session; autosave retries it.
		log.Printf("[mcp] Save failed for %s: %v", siteID, err)
		return nil, err
	}

	st := session.State()
	out.SiteID = st.SiteID
	out.Name = st.Name
	out.Page = st.Page
	out.Pages = st.Pages
	out.Sections = st.Sections
	out.Styles = st.Styles
	out.Saved = saved
	return out, nil
}

// flush saves an open, unsaved session so store reads see it.
func (h *Handlers) flush(ctx context.Context, siteID string) error {
	session, ok := h.Registry.Get(strings.TrimSpace(siteID))
	if !ok || !session.Dirty() {
		return nil
	}
	_, err := session.Save(ctx, h.Registry.Store())
	return err
}

func requirePage(s *editor.Session, key string) error {
	if key == "" {
		return errors.NewValidation("page is required")
	}
	if !s.Document().Pages.Has(key) {
		return errors.NewNotFound("page", key)
	}
	return nil
}

func requireSection(s *editor.Session, id string) error {
	if id == "" {
		return errors.NewValidation("section_id is required")
	}
	for _, sec := range s.State().Sections {
		if sec.ID == id {
			return nil
		}
	}
	return errors.NewNotFound("section", id)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	sErr := errors.As(err)
	errorObj := map[string]any{
		"code":    sErr.Code,
		"message": sErr.Message,
		"status":  sErr.Status,
	}
	if sErr.Code == errors.ErrInternal {
		log.Printf("[mcp] internal error: %v", err)
		errorObj["message"] = "an internal error occurred"
	} else if sErr.Details != nil {
		errorObj["details"] = sErr.Details
	}

	content, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
