package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sitesmith/sitesmith/internal/config"
	"github.com/sitesmith/sitesmith/internal/db"
	"github.com/sitesmith/sitesmith/internal/mcp"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"serve": true, "mcp": true,
	"create": true, "list": true, "show": true, "delete": true,
	"export": true, "publish": true,
	"add-section": true, "update-field": true, "page": true,
	"theme": true, "templates": true, "thumbnail": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	// Known subcommand → CLI
	if cliCommands[arg] {
		return true
	}
	// --help or --version → CLI
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false // Default → MCP server
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
       _ _                       _ _   _
   ___(_) |_ ___  ___ _ __ ___  (_) |_| |__
  / __| | __/ _ \/ __| '_ ' _ \ | | __| '_ \
  \__ \ | ||  __/\__ \ | | | | || | |_| | | |
  |___/_|\__\___||___/_| |_| |_||_|\__|_| |_|

  Website builder and publisher

  Usage: sitesmith <command> [options]
         sitesmith serve
         sitesmith --help

  MCP server mode requires piped input.`)
}

// baseDir returns the data directory: $SITESMITH_HOME or ~/.sitesmith.
func baseDir() (string, error) {
	if dir := os.Getenv("SITESMITH_HOME"); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".sitesmith"), nil
}

// loadConfig reads config.json from dir, then .env, then the environment.
func loadConfig(dir string) (*config.Config, error) {
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.LoadEnv(".env"); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	config.ApplyEnv(cfg, os.Getenv)
	return cfg, nil
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion() {
		app := newCLIApp(nil)
		if err := app.Run(os.Args); err != nil {
			fail("%v", err)
		}
		return
	}

	dir, err := baseDir()
	if err != nil {
		fail("%v", err)
	}
	cfg, err := loadConfig(dir)
	if err != nil {
		fail("%v", err)
	}
	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		fmt.Fprintf(os.Stderr, "warning: unknown tools in disabled_tools: %v\n", unknown)
	}

	store, err := db.Open(cfg, dir)
	if err != nil {
		fail("failed to initialize database: %v", err)
	}
	defer store.Close()

	e, err := newEnv(cfg, store)
	if err != nil {
		fail("%v", err)
	}

	// CLI mode: known subcommand
	if isCLIMode() {
		app := newCLIApp(e)
		if err := app.Run(os.Args); err != nil {
			fail("%v", err)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'sitesmith --help' for usage.\n")
		os.Exit(1)
	}

	// MCP server mode (default)
	if err := mcp.Run(e.mcpDeps(), Version); err != nil {
		fail("%v", err)
	}
}
