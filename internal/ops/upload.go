package ops

import (
	"context"
	"strings"
	"time"

	"github.com/sitesmith/sitesmith/internal/blob"
	"github.com/sitesmith/sitesmith/internal/call"
	"github.com/sitesmith/sitesmith/internal/errors"
)

// UploadInput contains parameters for the UploadImage operation.
type UploadInput struct {
	SiteID      string
	SectionID   string
	Filename    string
	ContentType string
	Slot        string // upload slot, selects minimum dimensions
	Data        []byte
}

// UploadOutput contains the result of the UploadImage operation.
type UploadOutput struct {
	URL  string         `json:"url"`
	Path string         `json:"path"`
	Info blob.ImageInfo `json:"info"`
}

// UploadImage validates an image and stores it under
// <site>/<section>/<millis>_<filename>.
func UploadImage(ctx context.Context, uploader blob.Uploader, timeout time.Duration, input UploadInput) (*UploadOutput, error) {
	if strings.TrimSpace(input.SiteID) == "" || strings.TrimSpace(input.SectionID) == "" {
		return nil, errors.NewValidation("site and section are required for image upload")
	}
	info, err := blob.ValidateImage(input.Data, input.ContentType, input.Slot)
	if err != nil {
		return nil, err
	}

	path := blob.ObjectPath(input.SiteID, input.SectionID, input.Filename, time.Now())
	url, err := call.Do(ctx, "upload image", timeout, func(ctx context.Context) (string, error) {
		return uploader.Upload(ctx, path, input.Data, info.ContentType)
	})
	if err != nil {
		return nil, err
	}
	return &UploadOutput{URL: url, Path: path, Info: info}, nil
}
