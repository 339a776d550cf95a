package ops

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/sitesmith/sitesmith/internal/deploy"
	"github.com/sitesmith/sitesmith/internal/document"
	"github.com/sitesmith/sitesmith/internal/errors"
	"github.com/sitesmith/sitesmith/internal/render"
)

// ExportInput contains parameters for the ExportSite operation.
type ExportInput struct {
	ID   string
	Path string // optional, default: <exports dir>/website.zip
	// Unrestricted allows paths outside the exports dir (CLI use).
	Unrestricted bool
}

// ExportOutput contains the result of the ExportSite operation.
type ExportOutput struct {
	Path       string   `json:"path"`
	Files      []string `json:"files"`
	Bytes      int      `json:"bytes"`
	ExportedAt int64    `json:"exported_at"`
}

// RenderSite loads a site and renders every page in mode. Malformed stored
// data renders with defaults.
func RenderSite(ctx context.Context, store SiteStore, r *render.Renderer, id string, mode render.Mode) (*document.Document, render.Files, error) {
	out, err := FetchSite(ctx, store, FetchInput{ID: id})
	if err != nil && !errors.Is(err, errors.ErrInvalidData) {
		return nil, nil, err
	}
	return out.Document, r.Site(out.Document, mode), nil
}

// BuildArchive renders a site for static hosting and packs it as a ZIP.
func BuildArchive(ctx context.Context, store SiteStore, r *render.Renderer, id string) ([]byte, render.Files, error) {
	_, files, err := RenderSite(ctx, store, r, id, render.Static)
	if err != nil {
		return nil, nil, err
	}
	archive, err := deploy.Zip(files)
	if err != nil {
		return nil, nil, errors.NewInternal(err)
	}
	return archive, files, nil
}

// ExportSite writes a site's static export to a ZIP file.
func ExportSite(ctx context.Context, store SiteStore, r *render.Renderer, exportsDir string, input ExportInput) (*ExportOutput, error) {
	id, err := requireID(input.ID)
	if err != nil {
		return nil, err
	}

	exportPath := input.Path
	if exportPath == "" {
		exportPath = filepath.Join(exportsDir, ExportFilename)
	}
	if err := ValidateExportPath(exportPath, exportsDir, input.Unrestricted); err != nil {
		return nil, err
	}

	archive, files, err := BuildArchive(ctx, store, r, id)
	if err != nil {
		return nil, err
	}

	// Ensure parent directory exists
	dir := filepath.Dir(exportPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	// Write to temp file first, then atomic rename to preserve existing file on failure
	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := exportPath + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := createNoFollow(tempPath, 0600)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	if _, err := file.Write(archive); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return nil, errors.NewInternal(err)
	}
	// Close before atomic replace (required on Windows; fine elsewhere).
	if err := file.Close(); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	if err := os.Rename(tempPath, exportPath); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(exportPath); statErr == nil {
				return nil, errors.NewConflict("export destination already exists; overwriting is not supported on Windows yet")
			}
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	return &ExportOutput{
		Path:       exportPath,
		Files:      files.Names(),
		Bytes:      len(archive),
		ExportedAt: time.Now().Unix(),
	}, nil
}
