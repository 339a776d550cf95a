package deploy

import (
	"context"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/oklog/ulid/v2"
)

// Directory deploys by unpacking archives under Root/<site>/. It serves as
// the local target when no hosting token is configured.
type Directory struct {
	Root string
	// BaseURL, when set, is the URL Root is served under. Otherwise deploy
	// URLs are file:// paths.
	BaseURL string
}

// NewDirectory returns a Directory deployer rooted at root.
func NewDirectory(root, baseURL string) *Directory {
	return &Directory{Root: root, BaseURL: strings.TrimRight(baseURL, "/")}
}

// CreateSite makes the site directory. The hosting id is the name.
func (d *Directory) CreateSite(ctx context.Context, name string) (Site, error) {
	if !safeSegment(name) {
		return Site{}, fmt.Errorf("invalid site name %q", name)
	}
	dir := filepath.Join(d.Root, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return Site{}, fmt.Errorf("failed to create site directory: %w", err)
	}
	return Site{ID: name, Name: name, AdminURL: "file://" + dir, URL: d.siteURL(name)}, nil
}

// Deploy replaces the site directory contents with the archive files.
func (d *Directory) Deploy(ctx context.Context, siteID string, archive []byte) (Deployment, error) {
	if !safeSegment(siteID) {
		return Deployment{}, fmt.Errorf("invalid site id %q", siteID)
	}
	files, err := Unzip(archive)
	if err != nil {
		return Deployment{}, err
	}

	dir := filepath.Join(d.Root, siteID)
	if err := os.RemoveAll(dir); err != nil {
		return Deployment{}, fmt.Errorf("failed to clear site directory: %w", err)
	}
	for _, f := range files {
		name := path.Clean(f.Name)
		if name == "." || strings.HasPrefix(name, "../") || name == ".." || path.IsAbs(name) {
			return Deployment{}, fmt.Errorf("archive entry escapes site directory: %s", f.Name)
		}
		target := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return Deployment{}, fmt.Errorf("failed to create directory: %w", err)
		}
		if err := os.WriteFile(target, f.Content, 0644); err != nil {
			return Deployment{}, fmt.Errorf("failed to write %s: %w", name, err)
		}
	}

	id := ulid.Make().String()
	log.Printf("[deploy] Wrote %d file(s) to %s (deploy %s)", len(files), dir, id)
	return Deployment{ID: id, URL: d.siteURL(siteID)}, nil
}

func (d *Directory) siteURL(name string) string {
	if d.BaseURL != "" {
		return d.BaseURL + "/" + name + "/"
	}
	abs, err := filepath.Abs(filepath.Join(d.Root, name, "index.html"))
	if err != nil {
		abs = filepath.Join(d.Root, name, "index.html")
	}
	return "file://" + filepath.ToSlash(abs)
}

func safeSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}
