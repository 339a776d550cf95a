package editor

import (
	"context"
	"log"
	"sort"
	"sync"

	"github.com/sitesmith/sitesmith/internal/document"
)

// Store loads and saves documents for sessions.
type Store interface {
	Saver
	Load(ctx context.Context, siteID string) (*document.Document, error)
}

// Registry tracks the open session of each site.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	store    Store
	opts     Options
}

// NewRegistry returns an empty registry. opts apply to every session it
// opens.
func NewRegistry(store Store, opts Options) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		store:    store,
		opts:     opts,
	}
}

// Store returns the backing store.
func (r *Registry) Store() Store {
	return r.store
}

// Open returns the session for siteID, loading the document if none is open.
func (r *Registry) Open(ctx context.Context, siteID string) (*Session, error) {
	if s, ok := r.Get(siteID); ok {
		return s, nil
	}

	doc, err := r.store.Load(ctx, siteID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Another request may have opened it while we were loading.
	if s, ok := r.sessions[siteID]; ok {
		return s, nil
	}
	s := NewSession(siteID, doc, r.opts)
	r.sessions[siteID] = s
	log.Printf("[editor] Opened session for %s", siteID)
	return s, nil
}

// Get returns an open session.
func (r *Registry) Get(siteID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[siteID]
	return s, ok
}

// Close forgets a session without saving it.
func (r *Registry) Close(siteID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, siteID)
}

// Sessions returns the open sessions ordered by site id.
func (r *Registry) Sessions() []*Session {
	r.mu.Lock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].siteID < out[j].siteID })
	return out
}

// SaveDirty saves every session with unsaved changes. Failures are logged
// and do not stop the remaining saves. It returns how many were saved.
func (r *Registry) SaveDirty(ctx context.Context) int {
	saved := 0
	for _, s := range r.Sessions() {
		if !s.Dirty() {
			continue
		}
		ok, err := s.Save(ctx, r.store)
		if err != nil {
			log.Printf("[autosave] Failed to save %s: %v", s.SiteID(), err)
			continue
		}
		if ok {
			saved++
		}
	}
	return saved
}
