package thumbnail

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/sitesmith/sitesmith/internal/catalog"
	"github.com/sitesmith/sitesmith/internal/document"
	"github.com/sitesmith/sitesmith/internal/errors"
	"github.com/sitesmith/sitesmith/internal/render"
)

// Viewport size of captured thumbnails.
const (
	Width  = 1200
	Height = 800
)

// DefaultCaptureTimeout bounds a single browser capture.
const DefaultCaptureTimeout = 30 * time.Second

// TemplateHTML renders a template's sections as a self-contained home page.
func TemplateHTML(r *render.Renderer, tpl catalog.Template) []byte {
	doc := document.New(tpl.Name)
	doc.Pages.Set(document.Home, tpl.Instantiate())
	html, _ := r.Page(doc, document.Home, render.Publish)
	return html
}

// Capture loads html into a headless Chrome tab and returns a PNG
// screenshot of the viewport.
func Capture(ctx context.Context, html []byte) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.WindowSize(Width, Height),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	tabCtx, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(log.Printf))
	defer cancel()

	tabCtx, cancel = context.WithTimeout(tabCtx, DefaultCaptureTimeout)
	defer cancel()

	var png []byte
	err := chromedp.Run(tabCtx,
		chromedp.EmulateViewport(Width, Height),
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, string(html)).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(500*time.Millisecond), // web fonts
		chromedp.CaptureScreenshot(&png),
	)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("capture thumbnail: %w", err))
	}
	return png, nil
}

// Generate renders a catalog template, captures it and stores the PNG.
func Generate(ctx context.Context, store *Store, cat *catalog.Catalog, r *render.Renderer, templateID string) (string, error) {
	tpl, err := cat.Template(templateID)
	if err != nil {
		return "", err
	}
	png, err := Capture(ctx, TemplateHTML(r, tpl))
	if err != nil {
		return "", err
	}
	if err := store.Write(tpl.ID, png); err != nil {
		return "", err
	}
	log.Printf("[thumbnail] Saved %s (%d bytes)", tpl.ID, len(png))
	return store.Path(tpl.ID)
}
