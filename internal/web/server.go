package web

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sitesmith/sitesmith/internal/blob"
	"github.com/sitesmith/sitesmith/internal/catalog"
	"github.com/sitesmith/sitesmith/internal/config"
	"github.com/sitesmith/sitesmith/internal/editor"
	"github.com/sitesmith/sitesmith/internal/ops"
	"github.com/sitesmith/sitesmith/internal/publish"
	"github.com/sitesmith/sitesmith/internal/render"
	"github.com/sitesmith/sitesmith/internal/thumbnail"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Deps are the collaborators the HTTP surface drives.
type Deps struct {
	Store      ops.SiteStore
	Catalog    *catalog.Catalog
	Registry   *editor.Registry
	Hub        *Hub
	Pipeline   *publish.Pipeline
	Uploader   blob.Uploader
	Thumbnails *thumbnail.Store
	Sites      *render.Renderer
	Config     *config.Config
}

// NewServer creates and configures the HTTP server for the builder UI and
// API. Background work started here stops when ctx is cancelled.
func NewServer(ctx context.Context, deps Deps, version string) *http.Server {
	h := newHandlers(ctx, deps, version)
	cfg := deps.Config

	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Bind, cfg.Port),
		Handler:           h.handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func newHandlers(ctx context.Context, deps Deps, version string) *Handlers {
	// Create sub-FS for templates (strip "templates/" prefix)
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		log.Fatalf("failed to create template sub-FS: %v", err)
	}

	cfg := deps.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
		deps.Config = cfg
	}
	if deps.Sites == nil {
		deps.Sites = render.New()
	}
	if deps.Hub == nil {
		deps.Hub = NewHub(deps.Sites)
	}

	return &Handlers{
		Deps:     deps,
		pages:    NewRenderer(templateSub, version),
		limiter:  newRateLimiter(ctx, cfg.PublishRatePerMinute, 0),
		timeout:  cfg.RequestTimeout(),
		maxImage: blob.MaxImageSize,
	}
}

// handler wraps the routes in CORS and the security headers.
func (h *Handlers) handler() http.Handler {
	var imgOrigins []string
	if origin := uploadOrigin(h.Uploader); origin != "" {
		imgOrigins = append(imgOrigins, origin)
	}
	return securityHeaders(cors(h.Config.CORSOrigins, h.routes()), imgOrigins...)
}

// routes builds the mux using Go 1.22+ pattern syntax.
func (h *Handlers) routes() http.Handler {
	// Create sub-FS for static files (strip "static/" prefix)
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		log.Fatalf("failed to create static sub-FS: %v", err)
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/sites", http.StatusFound)
	})

	// Dashboard and editor pages
	mux.HandleFunc("GET /sites", h.HandleSites)
	mux.HandleFunc("POST /sites", h.HandleCreate)
	mux.HandleFunc("DELETE /sites/{id}", h.HandleDelete)
	mux.HandleFunc("GET /sites/{id}/edit", h.HandleEditor)
	mux.HandleFunc("GET /sites/{id}/preview/{file}", h.HandlePreview)
	mux.HandleFunc("GET /sites/{id}/export", h.HandleExport)

	// Publish
	publishHandler := h.limiter.wrap(h.HandlePublish)
	mux.HandleFunc("POST /publish", publishHandler)
	mux.HandleFunc("POST /api/publish", publishHandler)

	// Template thumbnails
	mux.HandleFunc("POST /api/thumbnail-save", h.HandleThumbnailSave)
	mux.HandleFunc("HEAD /api/thumbnail-save", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /assets/template-thumbnails/{file}", h.HandleThumbnail)
	mux.HandleFunc("GET /api/templates", h.HandleTemplates)

	// Editor session API
	mux.HandleFunc("POST /api/sites/{id}/session", h.HandleOpenSession)
	mux.HandleFunc("POST /api/sites/{id}/ops", h.HandleOp)
	mux.HandleFunc("POST /api/sites/{id}/save", h.HandleSave)
	mux.HandleFunc("POST /api/sites/{id}/images", h.HandleImageUpload)
	mux.HandleFunc("GET /ws/sites/{id}", h.HandleWebSocket)

	// Static files
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticSub)))
	if local, ok := h.Uploader.(*blob.Local); ok && local.Dir != "" {
		mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(local.Dir))))
	}
	if dir := h.Config.DeployDir; dir != "" && h.Config.DeployToken == "" {
		mux.Handle("GET /deploys/", http.StripPrefix("/deploys/", http.FileServer(http.Dir(dir))))
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		renderJSON(w, http.StatusNotFound, map[string]string{"error": "Not found"})
	})

	return mux
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
// onShutdown runs after the listener stops accepting requests.
func Run(srv *http.Server, onShutdown func(context.Context)) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Printf("[web] Sitesmith running at http://%s", srv.Addr)

	if strings.HasPrefix(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		log.Printf("[web] WARNING: Server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		log.Println("[web] Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(ctx)
		if onShutdown != nil {
			onShutdown(ctx)
		}
		return err
	}
}
