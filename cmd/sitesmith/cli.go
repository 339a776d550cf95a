package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/sitesmith/sitesmith/internal/editor"
	"github.com/sitesmith/sitesmith/internal/errors"
	"github.com/sitesmith/sitesmith/internal/mcp"
	"github.com/sitesmith/sitesmith/internal/ops"
)

// newCLIApp creates the CLI application with all commands. e may be nil
// when only help or version output is needed.
func newCLIApp(e *env) *cli.App {
	app := &cli.App{
		Name:    "sitesmith",
		Usage:   "Build, preview and publish small websites",
		Version: Version,
		Commands: []*cli.Command{
			serveCmd(e),
			mcpCmd(e),
			createCmd(e),
			listCmd(e),
			showCmd(e),
			deleteCmd(e),
			exportCmd(e),
			publishCmd(e),
			addSectionCmd(e),
			updateFieldCmd(e),
			pageCmd(e),
			themeCmd(e),
			templatesCmd(e),
			thumbnailCmd(e),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

func serveCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the builder UI and HTTP API",
		Action: func(c *cli.Context) error {
			return e.serve()
		},
	}
}

func mcpCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Run the MCP server on stdio",
		Action: func(c *cli.Context) error {
			return mcp.Run(e.mcpDeps(), Version)
		},
	}
}

// createCmd creates the create command.
func createCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "Create a new site",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Site name", Required: true},
			&cli.StringFlag{Name: "template", Aliases: []string{"t"}, Usage: "Template seeding the home page"},
			&cli.StringFlag{Name: "owner", Aliases: []string{"o"}, Usage: "Owner ID (default: local)"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.CreateSite(c.Context, e.store, e.catalog, ops.CreateInput{
				Owner:    c.String("owner"),
				Name:     c.String("name"),
				Template: c.String("template"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// listCmd creates the list command.
func listCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List sites, most recently updated first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "owner", Aliases: []string{"o"}, Usage: "Filter by owner"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Max items"},
			&cli.IntFlag{Name: "offset", Usage: "Pagination offset"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.ListSites(c.Context, e.store, ops.ListInput{
				Owner:  c.String("owner"),
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// showCmd creates the show command. A site whose stored document is
// damaged is still shown, with warnings.
func showCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show a site and its document",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			id, err := siteArg(c)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.FetchSite(c.Context, e.store, ops.FetchInput{ID: id})
			if err != nil && !errors.Is(err, errors.ErrInvalidData) {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a site",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			id, err := siteArg(c)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.DeleteSite(c.Context, e.store, ops.DeleteInput{ID: id})
			if err != nil {
				return outputError(err)
			}
			e.registry.Close(id)
			return outputJSON(output)
		},
	}
}

// exportCmd creates the export command. The CLI runs as the local user,
// so any writable path is accepted.
func exportCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Export a site as a static zip archive",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Output path (default: <exports dir>/website.zip)"},
		},
		Action: func(c *cli.Context) error {
			id, err := siteArg(c)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.ExportSite(c.Context, e.store, e.renderer, e.cfg.ExportsDir, ops.ExportInput{
				ID:           id,
				Path:         c.String("path"),
				Unrestricted: true,
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// publishCmd creates the publish command.
func publishCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "publish",
		Usage:     "Publish a site to the configured host",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			id, err := siteArg(c)
			if err != nil {
				return outputError(err)
			}
			output, err := e.pipeline.Run(c.Context, id)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// addSectionCmd creates the add-section command.
func addSectionCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "add-section",
		Usage:     "Append a section to a page",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "Section type", Required: true},
			&cli.StringFlag{Name: "page", Aliases: []string{"p"}, Usage: "Page key (default: current page)"},
		},
		Action: func(c *cli.Context) error {
			return e.runEdit(c, c.String("page"), editor.Op{Op: editor.OpAddSection, Type: c.String("type")})
		},
	}
}

// updateFieldCmd creates the update-field command. The value is parsed as
// JSON when it is valid JSON, otherwise it is taken as a plain string.
func updateFieldCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "update-field",
		Usage:     "Set a field of a section",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "section", Aliases: []string{"s"}, Usage: "Section ID", Required: true},
			&cli.StringFlag{Name: "path", Usage: "Field path, e.g. items[0].title", Required: true},
			&cli.StringFlag{Name: "value", Usage: "New value"},
			&cli.StringFlag{Name: "page", Aliases: []string{"p"}, Usage: "Page key (default: current page)"},
		},
		Action: func(c *cli.Context) error {
			return e.runEdit(c, c.String("page"), editor.Op{
				Op:    editor.OpUpdateField,
				ID:    c.String("section"),
				Path:  c.String("path"),
				Value: parseValue(c.String("value")),
			})
		},
	}
}

// pageCmd creates the page command and its subcommands.
func pageCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "page",
		Usage: "Add, rename or delete pages",
		Subcommands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Add a page",
				ArgsUsage: "<id> <name>",
				Action: func(c *cli.Context) error {
					return e.runEdit(c, "", editor.Op{Op: editor.OpAddPage, Name: c.Args().Get(1)})
				},
			},
			{
				Name:      "rename",
				Usage:     "Rename a page",
				ArgsUsage: "<id> <page> <new name>",
				Action: func(c *cli.Context) error {
					return e.runEdit(c, "", editor.Op{Op: editor.OpRenamePage, Name: c.Args().Get(1), NewName: c.Args().Get(2)})
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a page",
				ArgsUsage: "<id> <page>",
				Action: func(c *cli.Context) error {
					return e.runEdit(c, "", editor.Op{Op: editor.OpDeletePage, Name: c.Args().Get(1)})
				},
			},
		},
	}
}

// themeCmd creates the theme command.
func themeCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "theme",
		Usage:     "Apply a named theme to a site",
		ArgsUsage: "<id> <theme>",
		Action: func(c *cli.Context) error {
			return e.runEdit(c, "", editor.Op{Op: editor.OpApplyTheme, Theme: c.Args().Get(1)})
		},
	}
}

// templatesCmd creates the templates command.
func templatesCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "templates",
		Usage: "List templates and themes",
		Action: func(c *cli.Context) error {
			return outputJSON(ops.ListTemplates(e.catalog))
		},
	}
}

// thumbnailCmd creates the thumbnail command.
func thumbnailCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "thumbnail",
		Usage:     "Capture template thumbnails with headless Chrome",
		ArgsUsage: "[template id...]",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "timeout", Value: 30 * time.Second, Usage: "Per-template capture timeout"},
		},
		Action: func(c *cli.Context) error {
			paths, err := e.generateThumbnails(c.Context, c.Args().Slice(), c.Duration("timeout"))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"thumbnails": paths})
		},
	}
}

// runEdit applies op to the site named by the first argument, saves it and
// prints the resulting editor state.
func (e *env) runEdit(c *cli.Context, page string, op editor.Op) error {
	id, err := siteArg(c)
	if err != nil {
		return outputError(err)
	}
	state, err := e.edit(c.Context, id, page, op)
	if err != nil {
		return outputError(err)
	}
	return outputJSON(state)
}

func (e *env) edit(ctx context.Context, siteID, page string, op editor.Op) (editor.State, error) {
	session, err := e.registry.Open(ctx, siteID)
	if err != nil {
		return editor.State{}, err
	}
	if page != "" {
		session.SwitchPage(page)
	}
	if err := session.Apply(op); err != nil {
		return editor.State{}, err
	}
	if _, err := session.Save(ctx, e.registry.Store()); err != nil {
		return editor.State{}, err
	}
	return session.State(), nil
}

// Helper functions

// siteArg returns the first positional argument as a site ID.
func siteArg(c *cli.Context) (string, error) {
	id := strings.TrimSpace(c.Args().First())
	if id == "" {
		return "", errors.NewValidation("site id is required")
	}
	return id, nil
}

// parseValue decodes s as JSON, falling back to the raw string.
func parseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	sErr := errors.As(err)
	return cli.Exit(fmt.Sprintf("[%s] %s", sErr.Code, sErr.Message), 1)
}
