// Package thumbnail stores template preview images and captures them from
// rendered HTML with a headless browser.
package thumbnail

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/sitesmith/sitesmith/internal/catalog"
	"github.com/sitesmith/sitesmith/internal/errors"
)

var dataURLPrefix = regexp.MustCompile(`^data:image/png;base64,`)

// Store keeps one <templateId>.png per template under Dir.
type Store struct {
	Dir string
}

// NewStore returns a Store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

// Path returns the file a template thumbnail lives at. The id must be a
// valid catalog id so the result never escapes Dir.
func (s *Store) Path(templateID string) (string, error) {
	if !catalog.ValidID(templateID) {
		return "", errors.NewValidation(fmt.Sprintf("invalid template id %q", templateID))
	}
	return filepath.Join(s.Dir, templateID+".png"), nil
}

// Exists reports whether a thumbnail has been saved for templateID.
func (s *Store) Exists(templateID string) bool {
	path, err := s.Path(templateID)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Save decodes a base64 PNG, with or without its data URL prefix, and
// writes it as the template's thumbnail.
func (s *Store) Save(templateID, encoded string) (string, error) {
	path, err := s.Path(templateID)
	if err != nil {
		return "", err
	}
	encoded = strings.TrimSpace(dataURLPrefix.ReplaceAllString(encoded, ""))
	if encoded == "" {
		return "", errors.NewValidation("missing templateId or base64 data")
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", errors.NewValidation("base64 data is not valid")
	}
	return path, s.Write(templateID, data)
}

// Write stores raw PNG bytes as the template's thumbnail, replacing any
// previous one.
func (s *Store) Write(templateID string, data []byte) error {
	path, err := s.Path(templateID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create thumbnail directory: %w", err))
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to write thumbnail: %w", err))
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.NewInternal(fmt.Errorf("failed to write thumbnail: %w", err))
	}
	return nil
}
