package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sitesmith/sitesmith/internal/errors"
)

// ExportFilename is the default archive name.
const ExportFilename = "website.zip"

// ValidateExportPath checks a ZIP export destination:
// 1. No directory traversal (.. components)
// 2. .zip extension
// 3. Unless unrestricted, the file must sit directly in exportsDir
// 4. Neither the parent directory nor the file may be a symlink
//
// Requiring the file to sit directly in the exports dir leaves no
// intermediate directory to swap for a symlink between check and open;
// O_NOFOLLOW covers the final component.
func ValidateExportPath(path, exportsDir string, unrestricted bool) error {
	if path == "" {
		return errors.NewValidation("path is required")
	}
	if containsTraversal(path) {
		return errors.NewValidation("path must not contain directory traversal (..)")
	}

	cleaned := filepath.Clean(path)
	if strings.ToLower(filepath.Ext(cleaned)) != ".zip" {
		return errors.NewValidation("path must have .zip extension")
	}

	absPath, err := filepath.Abs(cleaned)
	if err != nil {
		return errors.NewValidation(fmt.Sprintf("invalid path: %v", err))
	}
	parentDir := filepath.Dir(absPath)

	if !unrestricted {
		allowed, err := filepath.Abs(filepath.Clean(exportsDir))
		if err != nil || exportsDir == "" {
			return errors.NewValidation("exports directory is not configured")
		}
		if parentDir != allowed {
			return errors.NewValidation(fmt.Sprintf("file must be directly in %s (no subdirectories)", allowed))
		}
	}

	if info, err := os.Lstat(parentDir); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return errors.NewValidation("parent directory must not be a symlink")
	}
	if info, err := os.Lstat(absPath); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return errors.NewValidation("path must not be a symlink")
	}
	return nil
}

// containsTraversal checks if path contains ".." directory traversal.
func containsTraversal(path string) bool {
	for _, part := range strings.Split(path, string(filepath.Separator)) {
		if part == ".." {
			return true
		}
	}
	// Also check forward slashes on all platforms (e.g., user input)
	if filepath.Separator != '/' {
		for _, part := range strings.Split(path, "/") {
			if part == ".." {
				return true
			}
		}
	}
	return false
}
