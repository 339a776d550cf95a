package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/sitesmith/sitesmith/internal/errors"
)

// Uploader stores bytes at path and returns their public URL.
type Uploader interface {
	Upload(ctx context.Context, objectPath string, data []byte, contentType string) (string, error)
}

var filenameDisallowed = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// SanitizeFilename replaces every character outside [a-zA-Z0-9.-] with '_'.
func SanitizeFilename(name string) string {
	name = filenameDisallowed.ReplaceAllString(path.Base(filepath.ToSlash(name)), "_")
	if name == "" || name == "." || name == ".." {
		return "upload"
	}
	return name
}

// ObjectPath builds <siteID>/<sectionID>/<unixMillis>_<sanitized name>.
func ObjectPath(siteID, sectionID, filename string, now time.Time) string {
	return fmt.Sprintf("%s/%s/%d_%s",
		SanitizeFilename(siteID), SanitizeFilename(sectionID), now.UnixMilli(), SanitizeFilename(filename))
}

func checkObjectPath(p string) error {
	clean := path.Clean(p)
	if p == "" || clean != p || path.IsAbs(p) || strings.HasPrefix(clean, "..") {
		return errors.NewValidation(fmt.Sprintf("invalid object path %q", p))
	}
	return nil
}

// Local stores objects under Dir. PublicURL is the URL prefix Dir is served
// under.
type Local struct {
	Dir       string
	PublicURL string
}

// NewLocal returns a filesystem uploader.
func NewLocal(dir, publicURL string) *Local {
	return &Local{Dir: dir, PublicURL: strings.TrimRight(publicURL, "/")}
}

// Upload writes data to Dir/objectPath. Existing objects are not replaced.
func (l *Local) Upload(ctx context.Context, objectPath string, data []byte, contentType string) (string, error) {
	if err := checkObjectPath(objectPath); err != nil {
		return "", err
	}
	target := filepath.Join(l.Dir, filepath.FromSlash(objectPath))
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if os.IsExist(err) {
		return "", errors.NewConflict(fmt.Sprintf("object already exists: %s", objectPath))
	}
	if err != nil {
		return "", fmt.Errorf("failed to create object: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(target)
		return "", fmt.Errorf("failed to write object: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write object: %w", err)
	}
	return l.PublicURL + "/" + objectPath, nil
}

// HTTP uploads to a Supabase-compatible storage REST API.
type HTTP struct {
	baseURL string
	key     string
	bucket  string
	client  *http.Client
}

// NewHTTP returns a storage API uploader for bucket.
func NewHTTP(baseURL, key, bucket string, client *http.Client) *HTTP {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTP{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     key,
		bucket:  bucket,
		client:  client,
	}
}

// Upload posts data to /storage/v1/object/<bucket>/<objectPath> and returns
// the public object URL.
func (h *HTTP) Upload(ctx context.Context, objectPath string, data []byte, contentType string) (string, error) {
	if err := checkObjectPath(objectPath); err != nil {
		return "", err
	}
	endpoint := h.baseURL + "/storage/v1/object/" + url.PathEscape(h.bucket) + "/" + escapePath(objectPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+h.key)
	req.Header.Set("apikey", h.key)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Cache-Control", "3600")
	req.Header.Set("x-upsert", "false")

	resp, err := h.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		return "", errors.NewConflict(fmt.Sprintf("object already exists: %s", objectPath))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", errors.NewTransport("upload image", fmt.Errorf("storage returned %d: %s", resp.StatusCode, strings.TrimSpace(string(text))))
	}
	return h.PublicURL(objectPath), nil
}

// PublicURL returns the public URL of an object.
func (h *HTTP) PublicURL(objectPath string) string {
	return h.baseURL + "/storage/v1/object/public/" + url.PathEscape(h.bucket) + "/" + escapePath(objectPath)
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
