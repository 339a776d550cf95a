package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sitesmith/sitesmith/internal/blob"
	"github.com/sitesmith/sitesmith/internal/catalog"
	"github.com/sitesmith/sitesmith/internal/config"
	"github.com/sitesmith/sitesmith/internal/db"
	"github.com/sitesmith/sitesmith/internal/deploy"
	"github.com/sitesmith/sitesmith/internal/editor"
	"github.com/sitesmith/sitesmith/internal/mcp"
	"github.com/sitesmith/sitesmith/internal/ops"
	"github.com/sitesmith/sitesmith/internal/publish"
	"github.com/sitesmith/sitesmith/internal/render"
	"github.com/sitesmith/sitesmith/internal/thumbnail"
	"github.com/sitesmith/sitesmith/internal/web"
)

// env is the wired application shared by the CLI, MCP and HTTP surfaces.
type env struct {
	cfg        *config.Config
	store      ops.SiteStore
	catalog    *catalog.Catalog
	renderer   *render.Renderer
	hub        *web.Hub
	registry   *editor.Registry
	pipeline   *publish.Pipeline
	uploader   blob.Uploader
	thumbnails *thumbnail.Store
}

// newEnv wires every collaborator from cfg. Store calls are bounded by
// the configured request timeout.
func newEnv(cfg *config.Config, store *db.Store) (*env, error) {
	cat, err := catalog.Load(cfg.TemplatesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	renderer := render.New()
	hub := web.NewHub(renderer)
	timed := ops.Timed(store, cfg.RequestTimeout())

	return &env{
		cfg:      cfg,
		store:    timed,
		catalog:  cat,
		renderer: renderer,
		hub:      hub,
		registry: editor.NewRegistry(ops.EditorStore{Store: timed}, editor.Options{
			HistoryLimit: cfg.HistoryLimit,
			Catalog:      cat,
			OnChange:     hub.Notify,
		}),
		pipeline:   publish.New(timed, newDeployer(cfg), renderer, cfg.RequestTimeout()),
		uploader:   newUploader(cfg),
		thumbnails: thumbnail.NewStore(cfg.ThumbnailDir),
	}, nil
}

// newDeployer returns the Netlify client when a token is configured,
// otherwise the local directory deployer served under /deploys.
func newDeployer(cfg *config.Config) deploy.Deployer {
	if cfg.DeployToken != "" {
		return deploy.NewNetlify(cfg.DeployAPIURL, cfg.DeployToken, nil)
	}
	return deploy.NewDirectory(cfg.DeployDir, fmt.Sprintf("http://%s:%d/deploys", cfg.Bind, cfg.Port))
}

// newUploader returns the storage API uploader when one is configured,
// otherwise local storage served under /uploads. Local URLs are absolute so
// exported and published pages can still load them.
func newUploader(cfg *config.Config) blob.Uploader {
	if cfg.BlobAPIURL != "" {
		return blob.NewHTTP(cfg.BlobAPIURL, cfg.BlobAPIKey, cfg.BlobBucket, nil)
	}
	publicURL := cfg.BlobPublicURL
	if publicURL == "" {
		publicURL = fmt.Sprintf("http://%s:%d/uploads", cfg.Bind, cfg.Port)
	}
	return blob.NewLocal(cfg.BlobDir, publicURL)
}

func (e *env) mcpDeps() mcp.Deps {
	return mcp.Deps{
		Store:    e.store,
		Catalog:  e.catalog,
		Registry: e.registry,
		Pipeline: e.pipeline,
		Sites:    e.renderer,
		Config:   e.cfg,
	}
}

func (e *env) webDeps() web.Deps {
	return web.Deps{
		Store:      e.store,
		Catalog:    e.catalog,
		Registry:   e.registry,
		Hub:        e.hub,
		Pipeline:   e.pipeline,
		Uploader:   e.uploader,
		Thumbnails: e.thumbnails,
		Sites:      e.renderer,
		Config:     e.cfg,
	}
}

// serve runs the HTTP server until SIGINT/SIGTERM. Dirty sessions are
// autosaved while it runs and flushed on shutdown.
func (e *env) serve() error {
	for _, problem := range e.cfg.Validate() {
		log.Printf("[config] %s", problem)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	autosaver, err := editor.NewAutosaver(e.registry, e.cfg.AutosaveInterval())
	if err != nil {
		return err
	}
	autosaver.Start()

	if e.catalog.Dir() != "" {
		go func() {
			if err := e.catalog.Watch(ctx, nil); err != nil {
				log.Printf("[catalog] Watch stopped: %v", err)
			}
		}()
	}

	srv := web.NewServer(ctx, e.webDeps(), Version)
	return web.Run(srv, func(shutdownCtx context.Context) {
		cancel()
		autosaver.Stop(shutdownCtx)
		if n := e.registry.SaveDirty(shutdownCtx); n > 0 {
			log.Printf("[autosave] Saved %d session(s) on shutdown", n)
		}
	})
}

// generateThumbnails captures the given templates, or every template when
// ids is empty.
func (e *env) generateThumbnails(ctx context.Context, ids []string, timeout time.Duration) ([]string, error) {
	if len(ids) == 0 {
		for _, tpl := range e.catalog.Templates() {
			ids = append(ids, tpl.ID)
		}
	}
	paths := make([]string, 0, len(ids))
	for _, id := range ids {
		captureCtx, cancel := context.WithTimeout(ctx, timeout)
		path, err := thumbnail.Generate(captureCtx, e.thumbnails, e.catalog, e.renderer, id)
		cancel()
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
