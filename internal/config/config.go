package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	// Bind and Port control where `sitesmith serve` listens.
	Bind string `json:"bind,omitempty"`
	Port int    `json:"port,omitempty"`

	// StoreDriver selects the site row store: "sqlite" (default) or "postgres".
	// StoreDSN is the postgres connection string; sqlite always lives in the base dir.
	StoreDriver string `json:"store_driver,omitempty"`
	StoreDSN    string `json:"store_dsn,omitempty"`

	// DeployAPIURL and DeployToken configure the hosting API (Netlify-compatible).
	// When DeployToken is empty, sites are deployed into DeployDir instead.
	DeployAPIURL string `json:"deploy_api_url,omitempty"`
	DeployToken  string `json:"deploy_token,omitempty"`
	DeployDir    string `json:"deploy_dir,omitempty"`

	// BlobDir stores uploaded images locally; BlobPublicURL is the URL prefix they are served from.
	// When BlobAPIURL is set, uploads go to that storage API (bucket BlobBucket) instead.
	BlobDir       string `json:"blob_dir,omitempty"`
	BlobPublicURL string `json:"blob_public_url,omitempty"`
	BlobAPIURL    string `json:"blob_api_url,omitempty"`
	BlobAPIKey    string `json:"blob_api_key,omitempty"`
	BlobBucket    string `json:"blob_bucket,omitempty"`

	// ThumbnailDir holds template thumbnail PNGs.
	ThumbnailDir string `json:"thumbnail_dir,omitempty"`

	// TemplatesDir holds additional <id>.json page templates. Optional.
	TemplatesDir string `json:"templates_dir,omitempty"`

	// ExportsDir is where MCP exports are written.
	// AllowUnsafePaths lets an export target any path ending in .zip.
	ExportsDir       string `json:"exports_dir,omitempty"`
	AllowUnsafePaths bool   `json:"allow_unsafe_paths,omitempty"`

	// RequestTimeoutSeconds bounds every store and deploy call.
	RequestTimeoutSeconds int `json:"request_timeout_seconds,omitempty"`

	// HistoryLimit is the number of undo snapshots kept per editing session.
	HistoryLimit int `json:"history_limit,omitempty"`

	// AutosaveIntervalSeconds is how often dirty editing sessions are saved.
	AutosaveIntervalSeconds int `json:"autosave_interval_seconds,omitempty"`

	// PublishRatePerMinute limits publish requests per client address.
	PublishRatePerMinute int `json:"publish_rate_per_minute,omitempty"`

	// CORSOrigins lists allowed origins for the HTTP API. "*" allows any.
	CORSOrigins []string `json:"cors_origins,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Bind:                    "127.0.0.1",
		Port:                    4003,
		StoreDriver:             "sqlite",
		DeployAPIURL:            "https://api.netlify.com/api/v1",
		BlobBucket:              "site-images",
		RequestTimeoutSeconds:   15,
		HistoryLimit:            50,
		AutosaveIntervalSeconds: 15,
		PublishRatePerMinute:    6,
		CORSOrigins:             []string{"*"},
	}
}

// RequestTimeout returns the collaborator call timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// AutosaveInterval returns the autosave period as a duration.
func (c *Config) AutosaveInterval() time.Duration {
	return time.Duration(c.AutosaveIntervalSeconds) * time.Second
}

// Validate reports missing prerequisites for publishing.
// An empty result means everything needed for a remote publish is present.
func (c *Config) Validate() []string {
	var problems []string
	if c.StoreDriver != "sqlite" && c.StoreDriver != "postgres" {
		problems = append(problems, "store_driver must be one of: sqlite, postgres")
	}
	if c.StoreDriver == "postgres" && c.StoreDSN == "" {
		problems = append(problems, "store_dsn (or DATABASE_URL) is required for the postgres store")
	}
	if c.DeployToken == "" && c.DeployDir == "" {
		problems = append(problems, "NETLIFY_AUTH_TOKEN not set and no deploy_dir configured; deployment will fail")
	}
	return problems
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// Relative directories are resolved against baseDir.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.sitesmith.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFile(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	cfg.resolvePaths(baseDir)
	return cfg, nil
}

// LoadEnv loads a .env file into the process environment if one exists.
// Variables already set in the environment win.
func LoadEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

// ApplyEnv overlays environment variables onto cfg.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	if v := getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			cfg.Port = port
		}
	}
	if v := getenv("NETLIFY_AUTH_TOKEN"); v != "" {
		cfg.DeployToken = v
	}
	if v := getenv("SITESMITH_DEPLOY_URL"); v != "" {
		cfg.DeployAPIURL = v
	}
	if v := getenv("SITESMITH_STORE_DRIVER"); v != "" {
		cfg.StoreDriver = strings.ToLower(strings.TrimSpace(v))
	}
	if v := getenv("DATABASE_URL"); v != "" {
		cfg.StoreDSN = v
	}
	if v := getenv("SITESMITH_BLOB_URL"); v != "" {
		cfg.BlobAPIURL = v
	}
	if v := getenv("SITESMITH_BLOB_KEY"); v != "" {
		cfg.BlobAPIKey = v
	}
}

// resolvePaths fills directory defaults and anchors relative paths at baseDir.
func (c *Config) resolvePaths(baseDir string) {
	resolve := func(p, def string) string {
		if p == "" {
			p = def
		}
		if !filepath.IsAbs(p) {
			p = filepath.Join(baseDir, p)
		}
		return p
	}
	c.BlobDir = resolve(c.BlobDir, "uploads")
	c.ThumbnailDir = resolve(c.ThumbnailDir, filepath.Join("assets", "template-thumbnails"))
	c.DeployDir = resolve(c.DeployDir, "deploys")
	c.ExportsDir = resolve(c.ExportsDir, "exports")
	if c.TemplatesDir != "" {
		c.TemplatesDir = resolve(c.TemplatesDir, "")
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{
		Bind:          pickString(overlay.Bind, base.Bind),
		StoreDriver:   pickString(overlay.StoreDriver, base.StoreDriver),
		StoreDSN:      pickString(overlay.StoreDSN, base.StoreDSN),
		DeployAPIURL:  pickString(overlay.DeployAPIURL, base.DeployAPIURL),
		DeployToken:   pickString(overlay.DeployToken, base.DeployToken),
		DeployDir:     pickString(overlay.DeployDir, base.DeployDir),
		BlobDir:       pickString(overlay.BlobDir, base.BlobDir),
		BlobPublicURL: pickString(overlay.BlobPublicURL, base.BlobPublicURL),
		BlobAPIURL:    pickString(overlay.BlobAPIURL, base.BlobAPIURL),
		BlobAPIKey:    pickString(overlay.BlobAPIKey, base.BlobAPIKey),
		BlobBucket:    pickString(overlay.BlobBucket, base.BlobBucket),
		ThumbnailDir:  pickString(overlay.ThumbnailDir, base.ThumbnailDir),
		TemplatesDir:  pickString(overlay.TemplatesDir, base.TemplatesDir),
		ExportsDir:    pickString(overlay.ExportsDir, base.ExportsDir),

		AllowUnsafePaths: overlay.AllowUnsafePaths || base.AllowUnsafePaths,

		Port:                    pickInt(overlay.Port, base.Port),
		RequestTimeoutSeconds:   pickInt(overlay.RequestTimeoutSeconds, base.RequestTimeoutSeconds),
		HistoryLimit:            pickInt(overlay.HistoryLimit, base.HistoryLimit),
		AutosaveIntervalSeconds: pickInt(overlay.AutosaveIntervalSeconds, base.AutosaveIntervalSeconds),
		PublishRatePerMinute:    pickInt(overlay.PublishRatePerMinute, base.PublishRatePerMinute),
	}

	result.CORSOrigins = mergeStringSlice(base.CORSOrigins, overlay.CORSOrigins)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

func pickString(overlay, base string) string {
	if overlay != "" {
		return overlay
	}
	return base
}

func pickInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
