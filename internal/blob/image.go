// Package blob validates uploaded images and stores them in a blob store.
package blob

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"strings"

	"github.com/sitesmith/sitesmith/internal/errors"
	"github.com/sitesmith/sitesmith/internal/section"
)

// MaxImageSize is the largest accepted upload.
const MaxImageSize = 5 << 20

// Requirement is the size guidance for one upload slot.
type Requirement struct {
	Recommended string
	AspectRatio string
	MinWidth    int
	MinHeight   int
	MaxWidth    int
	MaxHeight   int
}

// Requirements per upload slot. Unknown slots use imageBlock.
var Requirements = map[string]Requirement{
	section.SlotHero:         {"1200x600", "2:1", 800, 400, 1200, 600},
	section.SlotImageBlock:   {"800x400", "2:1", 400, 300, 800, 400},
	section.SlotFeatureIcon:  {"200x200", "1:1", 100, 100, 200, 200},
	section.SlotPricingImage: {"300x200", "3:2", 150, 100, 300, 200},
}

// RequirementFor returns the requirement of slot.
func RequirementFor(slot string) Requirement {
	if r, ok := Requirements[slot]; ok {
		return r
	}
	return Requirements[section.SlotImageBlock]
}

var contentTypes = map[string]string{
	"image/jpeg": "jpeg",
	"image/jpg":  "jpeg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// ImageInfo describes an accepted image.
type ImageInfo struct {
	ContentType string `json:"contentType"`
	Format      string `json:"format"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	// Oversized is set when the image exceeds the slot's recommended size.
	// Such images are accepted.
	Oversized bool `json:"oversized"`
}

// ValidateImage checks type, size and the slot's minimum dimensions.
// declared is the client's content type; when empty it is sniffed.
func ValidateImage(data []byte, declared, slot string) (ImageInfo, error) {
	if len(data) == 0 {
		return ImageInfo{}, errors.NewValidation("image is empty")
	}
	if len(data) > MaxImageSize {
		return ImageInfo{}, errors.NewValidation("image file is too large, maximum size is 5MB")
	}

	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(declared, ";", 2)[0]))
	if ct == "" {
		ct = http.DetectContentType(data)
	}
	if _, ok := contentTypes[ct]; !ok {
		return ImageInfo{}, errors.NewValidation("please upload a valid image file (JPG, PNG, GIF, or WebP)")
	}

	width, height, format, err := dimensions(data)
	if err != nil {
		return ImageInfo{}, errors.NewValidation(fmt.Sprintf("unreadable image: %v", err))
	}
	if format != contentTypes[ct] {
		return ImageInfo{}, errors.NewValidation(fmt.Sprintf("image content is %s but was sent as %s", format, ct))
	}

	req := RequirementFor(slot)
	if width < req.MinWidth || height < req.MinHeight {
		return ImageInfo{}, errors.NewValidation(fmt.Sprintf("image too small, minimum: %dx%dpx", req.MinWidth, req.MinHeight))
	}

	return ImageInfo{
		ContentType: "image/" + format,
		Format:      format,
		Width:       width,
		Height:      height,
		Oversized:   width > req.MaxWidth || height > req.MaxHeight,
	}, nil
}

func dimensions(data []byte) (int, int, string, error) {
	if isWebP(data) {
		w, h, err := webpSize(data)
		return w, h, "webp", err
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, "", err
	}
	return cfg.Width, cfg.Height, format, nil
}

func isWebP(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP"
}

// webpSize reads the canvas size from the first chunk header.
func webpSize(data []byte) (int, int, error) {
	if len(data) < 30 {
		return 0, 0, fmt.Errorf("webp header truncated")
	}
	switch string(data[12:16]) {
	case "VP8 ":
		// Lossy: frame tag (3) + start code (3) then 14-bit width and height.
		if data[23] != 0x9d || data[24] != 0x01 || data[25] != 0x2a {
			return 0, 0, fmt.Errorf("webp: bad VP8 start code")
		}
		w := int(binary.LittleEndian.Uint16(data[26:28]) & 0x3fff)
		h := int(binary.LittleEndian.Uint16(data[28:30]) & 0x3fff)
		return w, h, nil
	case "VP8L":
		// Lossless: signature byte then 14-bit width-1 and height-1.
		if data[20] != 0x2f {
			return 0, 0, fmt.Errorf("webp: bad VP8L signature")
		}
		bits := binary.LittleEndian.Uint32(data[21:25])
		w := int(bits&0x3fff) + 1
		h := int((bits>>14)&0x3fff) + 1
		return w, h, nil
	case "VP8X":
		// Extended: 24-bit canvas width-1 and height-1 after the flags.
		w := int(uint32(data[24])|uint32(data[25])<<8|uint32(data[26])<<16) + 1
		h := int(uint32(data[27])|uint32(data[28])<<8|uint32(data[29])<<16) + 1
		return w, h, nil
	default:
		return 0, 0, fmt.Errorf("webp: unknown chunk %q", data[12:16])
	}
}
