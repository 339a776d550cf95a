package mcp

import (
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/sitesmith/sitesmith/internal/section"
)

func boolPtr(v bool) *bool { return &v }

func sectionTypeNames() []string {
	names := make([]string, len(section.Types))
	for i, t := range section.Types {
		names[i] = string(t)
	}
	return names
}

var readOnly = mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)})

var destructive = mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)})

// Sites

var siteCreateToolDef = mcp.NewTool("site_create",
	mcp.WithDescription("Create a website with a home page, optionally seeded from a template (see templates_list)."),
	mcp.WithString("name", mcp.Description("Site display name"), mcp.Required()),
	mcp.WithString("owner", mcp.Description("Owner id (default: local)")),
	mcp.WithString("template", mcp.Description("Template id for the home page, e.g. landing, portfolio, business")),
)

var siteGetToolDef = mcp.NewTool("site_get",
	mcp.WithDescription("Get a site with its full document: pages, sections and style tokens."),
	mcp.WithString("id", mcp.Description("Site id"), mcp.Required()),
	readOnly,
)

var siteListToolDef = mcp.NewTool("site_list",
	mcp.WithDescription("List sites, most recently updated first."),
	mcp.WithString("owner", mcp.Description("Only sites of this owner (default: all)")),
	mcp.WithNumber("limit", mcp.Description("Max results (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Results to skip")),
	readOnly,
)

var siteDeleteToolDef = mcp.NewTool("site_delete",
	mcp.WithDescription("Permanently delete a site. Published deploys are not removed."),
	mcp.WithString("id", mcp.Description("Site id"), mcp.Required()),
	destructive,
)

var siteRenameToolDef = mcp.NewTool("site_rename",
	mcp.WithDescription("Change a site's display name."),
	mcp.WithString("id", mcp.Description("Site id"), mcp.Required()),
	mcp.WithString("name", mcp.Description("New display name"), mcp.Required()),
)

var siteExportToolDef = mcp.NewTool("site_export",
	mcp.WithDescription("Write the static site (index.html, one file per page, styles.css) to a ZIP file."),
	mcp.WithString("id", mcp.Description("Site id"), mcp.Required()),
	mcp.WithString("path", mcp.Description("Target .zip path inside the exports directory (default: website.zip there)")),
)

var sitePublishToolDef = mcp.NewTool("site_publish",
	mcp.WithDescription("Render the site and deploy it to the hosting provider. Returns the live URL."),
	mcp.WithString("id", mcp.Description("Site id"), mcp.Required()),
)

// Sections

var sectionAddToolDef = mcp.NewTool("section_add",
	mcp.WithDescription("Append a section with default content to a page."),
	mcp.WithString("site_id", mcp.Description("Site id"), mcp.Required()),
	mcp.WithString("type",
		mcp.Description("Section type: "+strings.Join(sectionTypeNames(), ", ")),
		mcp.Required(),
		mcp.Enum(sectionTypeNames()...),
	),
	mcp.WithString("page", mcp.Description("Page key (default: the active page)")),
	mcp.WithString("format",
		mcp.Description("Text sections only: markdown renders content as Markdown, plain (default) as escaped text"),
		mcp.Enum("plain", "markdown"),
	),
)

var sectionDeleteToolDef = mcp.NewTool("section_delete",
	mcp.WithDescription("Remove a section from a page."),
	mcp.WithString("site_id", mcp.Description("Site id"), mcp.Required()),
	mcp.WithString("section_id", mcp.Description("Section id"), mcp.Required()),
	mcp.WithString("page", mcp.Description("Page key (default: the active page)")),
	destructive,
)

var sectionMoveToolDef = mcp.NewTool("section_move",
	mcp.WithDescription("Move a section one position up or down within its page."),
	mcp.WithString("site_id", mcp.Description("Site id"), mcp.Required()),
	mcp.WithString("section_id", mcp.Description("Section id"), mcp.Required()),
	mcp.WithString("direction", mcp.Description("up or down"), mcp.Required(), mcp.Enum("up", "down")),
	mcp.WithString("page", mcp.Description("Page key (default: the active page)")),
)

var sectionUpdateFieldToolDef = mcp.NewTool("section_update_field",
	mcp.WithDescription("Set one field of a section's data. Paths are dot separated keys with bracketed list indexes, e.g. title, features[0].description, plans[1].features[2]. Set format to markdown on a text section to render its content as Markdown."),
	mcp.WithString("site_id", mcp.Description("Site id"), mcp.Required()),
	mcp.WithString("section_id", mcp.Description("Section id"), mcp.Required()),
	mcp.WithString("path", mcp.Description("Field path"), mcp.Required()),
	mcp.WithString("value", mcp.Description("New value"), mcp.Required()),
	mcp.WithString("page", mcp.Description("Page key (default: the active page)")),
)

// Pages

var pageAddToolDef = mcp.NewTool("page_add",
	mcp.WithDescription("Add an empty page. The name is normalized to a lowercase hyphenated key."),
	mcp.WithString("site_id", mcp.Description("Site id"), mcp.Required()),
	mcp.WithString("name", mcp.Description("Page name, e.g. About Us"), mcp.Required()),
)

var pageRenameToolDef = mcp.NewTool("page_rename",
	mcp.WithDescription("Rename a page. The home page cannot be renamed."),
	mcp.WithString("site_id", mcp.Description("Site id"), mcp.Required()),
	mcp.WithString("page", mcp.Description("Current page key"), mcp.Required()),
	mcp.WithString("new_name", mcp.Description("New page name"), mcp.Required()),
)

var pageDeleteToolDef = mcp.NewTool("page_delete",
	mcp.WithDescription("Delete a page and its sections. The home page and the last page cannot be deleted."),
	mcp.WithString("site_id", mcp.Description("Site id"), mcp.Required()),
	mcp.WithString("page", mcp.Description("Page key"), mcp.Required()),
	destructive,
)

var pageLoadTemplateToolDef = mcp.NewTool("page_load_template",
	mcp.WithDescription("Replace a page's sections with fresh copies of a template's sections."),
	mcp.WithString("site_id", mcp.Description("Site id"), mcp.Required()),
	mcp.WithString("template", mcp.Description("Template id"), mcp.Required()),
	mcp.WithString("page", mcp.Description("Page key (default: the active page)")),
	destructive,
)

// Styles

var stylesApplyThemeToolDef = mcp.NewTool("styles_apply_theme",
	mcp.WithDescription("Replace the site's style tokens with a theme preset (see templates_list for names)."),
	mcp.WithString("site_id", mcp.Description("Site id"), mcp.Required()),
	mcp.WithString("theme", mcp.Description("Theme name"), mcp.Required()),
)

var stylesUpdateToolDef = mcp.NewTool("styles_update",
	mcp.WithDescription("Merge style tokens over the current ones. Empty values are ignored."),
	mcp.WithString("site_id", mcp.Description("Site id"), mcp.Required()),
	mcp.WithObject("styles",
		mcp.Description("Tokens: primaryColor, accentColor, backgroundColor, textColor, headingFont, bodyFont, borderRadius, sectionSpacing"),
		mcp.Required(),
	),
)

// Catalog

var templatesListToolDef = mcp.NewTool("templates_list",
	mcp.WithDescription("List page templates and theme names."),
	readOnly,
)

var pageResourceTemplate = mcp.NewResourceTemplate(
	"sitesmith://sites/{id}/{file}",
	"Rendered site file",
	mcp.WithTemplateDescription("Static render of one page (index.html, about-us.html, ...) or styles.css"),
	mcp.WithTemplateMIMEType("text/html"),
)
