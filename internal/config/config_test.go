package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_DefaultWhenMissing(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 4003 {
		t.Fatalf("Port = %d, want 4003", cfg.Port)
	}
	if cfg.RequestTimeout() != 15*time.Second {
		t.Fatalf("RequestTimeout() = %v, want 15s", cfg.RequestTimeout())
	}
	if cfg.HistoryLimit != 50 {
		t.Fatalf("HistoryLimit = %d, want 50", cfg.HistoryLimit)
	}
	if cfg.StoreDriver != "sqlite" {
		t.Fatalf("StoreDriver = %q, want sqlite", cfg.StoreDriver)
	}
}

func TestLoad_ResolvesDirectoriesAgainstBaseDir(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BlobDir != filepath.Join(tmpDir, "uploads") {
		t.Errorf("BlobDir = %q", cfg.BlobDir)
	}
	if cfg.ThumbnailDir != filepath.Join(tmpDir, "assets", "template-thumbnails") {
		t.Errorf("ThumbnailDir = %q", cfg.ThumbnailDir)
	}
	if cfg.DeployDir != filepath.Join(tmpDir, "deploys") {
		t.Errorf("DeployDir = %q", cfg.DeployDir)
	}
	if cfg.ExportsDir != filepath.Join(tmpDir, "exports") {
		t.Errorf("ExportsDir = %q", cfg.ExportsDir)
	}
	if cfg.TemplatesDir != "" {
		t.Errorf("TemplatesDir = %q, want empty", cfg.TemplatesDir)
	}
	if cfg.AllowUnsafePaths {
		t.Error("AllowUnsafePaths should default to false")
	}
}

func TestLoad_OverridesFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	body := `{"port": 8080, "history_limit": 10, "templates_dir": "tpl", "cors_origins": ["https://a.example"]}`
	if err := os.WriteFile(configPath, []byte(body), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 8080 {
		t.Fatalf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.HistoryLimit != 10 {
		t.Fatalf("HistoryLimit = %d, want 10", cfg.HistoryLimit)
	}
	if cfg.TemplatesDir != filepath.Join(tmpDir, "tpl") {
		t.Fatalf("TemplatesDir = %q", cfg.TemplatesDir)
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Fatalf("CORSOrigins = %v, want default merged with file", cfg.CORSOrigins)
	}
	// Untouched scalars keep defaults
	if cfg.AutosaveIntervalSeconds != 15 {
		t.Fatalf("AutosaveIntervalSeconds = %d, want 15", cfg.AutosaveIntervalSeconds)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{not json}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := Load(tmpDir); err == nil {
		t.Fatalf("Load() expected error, got nil")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"PORT":                   "9090",
		"NETLIFY_AUTH_TOKEN":     "tok",
		"SITESMITH_STORE_DRIVER": " Postgres ",
		"DATABASE_URL":           "postgres://localhost/sites",
	}
	cfg := DefaultConfig()
	ApplyEnv(cfg, func(k string) string { return env[k] })

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.DeployToken != "tok" {
		t.Errorf("DeployToken = %q, want tok", cfg.DeployToken)
	}
	if cfg.StoreDriver != "postgres" {
		t.Errorf("StoreDriver = %q, want postgres", cfg.StoreDriver)
	}
	if cfg.StoreDSN != "postgres://localhost/sites" {
		t.Errorf("StoreDSN = %q", cfg.StoreDSN)
	}
}

func TestApplyEnv_IgnoresBadPort(t *testing.T) {
	cfg := DefaultConfig()
	ApplyEnv(cfg, func(k string) string {
		if k == "PORT" {
			return "not-a-port"
		}
		return ""
	})
	if cfg.Port != 4003 {
		t.Errorf("Port = %d, want default 4003", cfg.Port)
	}
}

func TestLoadEnv(t *testing.T) {
	tmpDir := t.TempDir()

	// Missing file is fine
	if err := LoadEnv(filepath.Join(tmpDir, ".env")); err != nil {
		t.Fatalf("LoadEnv(missing) error = %v", err)
	}

	envPath := filepath.Join(tmpDir, ".env")
	if err := os.WriteFile(envPath, []byte("SITESMITH_TEST_LOADENV=from-file\n"), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("SITESMITH_TEST_LOADENV") })

	if err := LoadEnv(envPath); err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}
	if got := os.Getenv("SITESMITH_TEST_LOADENV"); got != "from-file" {
		t.Fatalf("env = %q, want from-file", got)
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	if problems := cfg.Validate(); len(problems) != 1 {
		t.Fatalf("Validate() = %v, want one missing-deploy problem", problems)
	}

	cfg.DeployToken = "tok"
	if problems := cfg.Validate(); len(problems) != 0 {
		t.Fatalf("Validate() = %v, want none", problems)
	}

	cfg.StoreDriver = "postgres"
	if problems := cfg.Validate(); len(problems) != 1 {
		t.Fatalf("Validate() = %v, want missing dsn", problems)
	}

	cfg.StoreDriver = "mongo"
	if problems := cfg.Validate(); len(problems) != 1 {
		t.Fatalf("Validate() = %v, want unknown driver", problems)
	}
}

func TestMerge_StringSlicesDeduplicated(t *testing.T) {
	base := &Config{DisabledTools: []string{"site_delete", " page_delete "}}
	overlay := &Config{DisabledTools: []string{"page_delete", "site_publish"}}

	merged := Merge(base, overlay)
	want := []string{"site_delete", "page_delete", "site_publish"}
	if len(merged.DisabledTools) != len(want) {
		t.Fatalf("DisabledTools = %v, want %v", merged.DisabledTools, want)
	}
	for i := range want {
		if merged.DisabledTools[i] != want[i] {
			t.Errorf("DisabledTools[%d] = %q, want %q", i, merged.DisabledTools[i], want[i])
		}
	}
}
