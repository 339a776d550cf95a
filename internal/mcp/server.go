package mcp

import (
	"slices"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/sitesmith/sitesmith/internal/catalog"
	"github.com/sitesmith/sitesmith/internal/config"
	"github.com/sitesmith/sitesmith/internal/editor"
	"github.com/sitesmith/sitesmith/internal/ops"
	"github.com/sitesmith/sitesmith/internal/publish"
	"github.com/sitesmith/sitesmith/internal/render"
)

// Deps are the collaborators the MCP tools drive.
type Deps struct {
	Store    ops.SiteStore
	Catalog  *catalog.Catalog
	Registry *editor.Registry
	Pipeline *publish.Pipeline
	Sites    *render.Renderer
	Config   *config.Config
}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"site_create": {
		def:     siteCreateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSiteCreate },
	},
	"site_get": {
		def:     siteGetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSiteGet },
	},
	"site_list": {
		def:     siteListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSiteList },
	},
	"site_delete": {
		def:     siteDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSiteDelete },
	},
	"site_rename": {
		def:     siteRenameToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSiteRename },
	},
	"site_export": {
		def:     siteExportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSiteExport },
	},
	"site_publish": {
		def:     sitePublishToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSitePublish },
	},
	"section_add": {
		def:     sectionAddToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSectionAdd },
	},
	"section_delete": {
		def:     sectionDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSectionDelete },
	},
	"section_move": {
		def:     sectionMoveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSectionMove },
	},
	"section_update_field": {
		def:     sectionUpdateFieldToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSectionUpdateField },
	},
	"page_add": {
		def:     pageAddToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePageAdd },
	},
	"page_rename": {
		def:     pageRenameToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePageRename },
	},
	"page_delete": {
		def:     pageDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePageDelete },
	},
	"page_load_template": {
		def:     pageLoadTemplateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePageLoadTemplate },
	},
	"styles_apply_theme": {
		def:     stylesApplyThemeToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStylesApplyTheme },
	},
	"styles_update": {
		def:     stylesUpdateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStylesUpdate },
	},
	"templates_list": {
		def:     templatesListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTemplatesList },
	},
}

// AllToolNames returns every tool name, sorted.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates a new MCP server with the site tools registered.
// Tools listed in cfg.DisabledTools are excluded from registration.
func NewServer(deps Deps, version string) *server.MCPServer {
	if deps.Config == nil {
		deps.Config = config.DefaultConfig()
	}
	if deps.Sites == nil {
		deps.Sites = render.New()
	}

	s := server.NewMCPServer(
		"sitesmith",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
	)

	h := NewHandlers(deps)

	disabled := make(map[string]bool)
	for _, name := range deps.Config.DisabledTools {
		disabled[name] = true
	}

	// Register tools (skip disabled)
	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	s.AddResourceTemplate(pageResourceTemplate, h.HandlePageResource)

	return s
}

// Run starts the MCP server using stdio transport.
func Run(deps Deps, version string) error {
	return server.ServeStdio(NewServer(deps, version))
}
