// Package deploy ships rendered sites to a hosting target.
package deploy

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sitesmith/sitesmith/internal/render"
)

// Site is a hosting-side site created for a deploy.
type Site struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	AdminURL string `json:"admin_url,omitempty"`
	URL      string `json:"url,omitempty"`
}

// Deployment is the result of uploading one archive.
type Deployment struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Deployer creates hosting sites and deploys archives to them.
type Deployer interface {
	CreateSite(ctx context.Context, name string) (Site, error)
	Deploy(ctx context.Context, siteID string, archive []byte) (Deployment, error)
}

var nameDisallowed = regexp.MustCompile(`[^a-z0-9]`)

const suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// UniqueName derives a hosting site name: the lowercased site name with
// every other character replaced by '-', plus a 6 character random suffix.
func UniqueName(siteName string) string {
	base := nameDisallowed.ReplaceAllString(strings.ToLower(siteName), "-")
	if base == "" {
		base = "site"
	}

	buf := make([]byte, 6)
	_, _ = rand.Read(buf)
	for i, b := range buf {
		buf[i] = suffixAlphabet[int(b)%len(suffixAlphabet)]
	}
	return base + "-" + string(buf)
}

// Zip packs files into a ZIP archive in order.
func Zip(files render.Files) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     f.Name,
			Method:   zip.Deflate,
			Modified: time.Now(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to add %s: %w", f.Name, err)
		}
		if _, err := w.Write(f.Content); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish archive: %w", err)
	}
	return buf.Bytes(), nil
}

// Unzip reads an archive produced by Zip.
func Unzip(archive []byte) (render.Files, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("invalid archive: %w", err)
	}
	files := make(render.Files, 0, len(zr.File))
	for _, zf := range zr.File {
		rc, err := zf.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", zf.Name, err)
		}
		var content bytes.Buffer
		_, err = content.ReadFrom(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", zf.Name, err)
		}
		files = append(files, render.File{Name: zf.Name, Content: content.Bytes()})
	}
	return files, nil
}
