// Package publish runs the fetch, render, deploy and record steps that put a
// stored site online.
package publish

import (
	"context"
	"log"
	"time"

	"github.com/sitesmith/sitesmith/internal/call"
	"github.com/sitesmith/sitesmith/internal/db"
	"github.com/sitesmith/sitesmith/internal/deploy"
	"github.com/sitesmith/sitesmith/internal/document"
	"github.com/sitesmith/sitesmith/internal/errors"
	"github.com/sitesmith/sitesmith/internal/render"
)

// State is a pipeline stage.
type State int

const (
	Idle State = iota
	FetchingDocument
	Rendering
	Deploying
	PersistingResult
	Done
	Failed
)

var stateNames = [...]string{"idle", "fetching_document", "rendering", "deploying", "persisting_result", "done", "failed"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Store is the slice of the site store the pipeline needs.
type Store interface {
	GetByID(ctx context.Context, id string) (*db.Site, error)
	UpdateByID(ctx context.Context, id string, upd db.SiteUpdate) error
}

// Result is what a successful publish reports.
type Result struct {
	SiteID        string   `json:"siteId"`
	SiteURL       string   `json:"siteUrl"`
	DeployID      string   `json:"deployId"`
	AdminURL      string   `json:"adminUrl,omitempty"`
	HostingSiteID string   `json:"hostingSiteId,omitempty"`
	Files         []string `json:"files"`
	Warnings      []string `json:"warnings,omitempty"`
}

// Pipeline publishes sites. It holds no per-run state and may run
// concurrently for different sites.
type Pipeline struct {
	store    Store
	deployer deploy.Deployer
	renderer *render.Renderer
	timeout  time.Duration

	// OnState, if set, observes every stage transition.
	OnState func(siteID string, state State)
	// Now stamps published_at. Defaults to time.Now.
	Now func() time.Time
}

// New returns a pipeline. timeout bounds each collaborator call; zero uses
// call.DefaultTimeout.
func New(store Store, deployer deploy.Deployer, renderer *render.Renderer, timeout time.Duration) *Pipeline {
	if renderer == nil {
		renderer = render.New()
	}
	return &Pipeline{
		store:    store,
		deployer: deployer,
		renderer: renderer,
		timeout:  timeout,
		Now:      time.Now,
	}
}

func (p *Pipeline) enter(siteID string, s State) {
	if p.OnState != nil {
		p.OnState(siteID, s)
	}
}

func (p *Pipeline) fail(siteID string, err error) (Result, error) {
	log.Printf("[publish] Failed for %s: %v", siteID, err)
	p.enter(siteID, Failed)
	return Result{}, err
}

// Run publishes siteID. There are no retries. A failure to record the
// published URL after a successful deploy is reported in Result.Warnings,
// not as an error.
func (p *Pipeline) Run(ctx context.Context, siteID string) (Result, error) {
	if siteID == "" {
		return Result{}, errors.NewValidation("siteId is required")
	}
	log.Printf("[publish] Starting publish for site: %s", siteID)
	var warnings []string

	// 1. Fetch
	p.enter(siteID, FetchingDocument)
	site, err := call.Do(ctx, "fetch site", p.timeout, func(ctx context.Context) (*db.Site, error) {
		return p.store.GetByID(ctx, siteID)
	})
	if err != nil {
		return p.fail(siteID, err)
	}
	pages, err := document.ParsePages([]byte(site.Pages))
	if err != nil {
		return p.fail(siteID, err)
	}
	styles, err := document.ParseStyles([]byte(site.Styles))
	if err != nil {
		log.Printf("[publish] Using default styles for %s: %v", siteID, err)
		warnings = append(warnings, "stored styles were unreadable, default styles used")
	}

	// 2. Render
	p.enter(siteID, Rendering)
	if len(pages) == 0 {
		return p.fail(siteID, errors.NewInvalidData("site has no pages to publish", nil))
	}
	doc := &document.Document{Name: site.Name, Pages: pages, Styles: styles}
	files := p.renderer.Site(doc, render.Publish)
	archive, err := deploy.Zip(files)
	if err != nil {
		return p.fail(siteID, errors.NewInternal(err))
	}
	log.Printf("[publish] Generated %d file(s) for %q", len(files), doc.Title())

	// 3. Deploy
	p.enter(siteID, Deploying)
	hosting, err := call.Do(ctx, "create hosting site", p.timeout, func(ctx context.Context) (deploy.Site, error) {
		return p.deployer.CreateSite(ctx, deploy.UniqueName(doc.Title()))
	})
	if err != nil {
		return p.fail(siteID, err)
	}
	dep, err := call.Do(ctx, "deploy site", p.timeout, func(ctx context.Context) (deploy.Deployment, error) {
		return p.deployer.Deploy(ctx, hosting.ID, archive)
	})
	if err != nil {
		return p.fail(siteID, err)
	}
	siteURL := dep.URL
	if siteURL == "" {
		siteURL = hosting.URL
	}

	// 4. Record
	p.enter(siteID, PersistingResult)
	publishedAt := p.Now().Unix()
	err = call.Run(ctx, "record publish result", p.timeout, func(ctx context.Context) error {
		return p.store.UpdateByID(ctx, siteID, db.SiteUpdate{PublishedURL: &siteURL, PublishedAt: &publishedAt})
	})
	if err != nil {
		w := errors.NewPersistResultWarning(err)
		log.Printf("[publish] Warning: %s", w.Message)
		warnings = append(warnings, w.Message)
	}

	p.enter(siteID, Done)
	log.Printf("[publish] Complete! Published %s to: %s", siteID, siteURL)
	return Result{
		SiteID:        siteID,
		SiteURL:       siteURL,
		DeployID:      dep.ID,
		AdminURL:      hosting.AdminURL,
		HostingSiteID: hosting.ID,
		Files:         files.Names(),
		Warnings:      warnings,
	}, nil
}
