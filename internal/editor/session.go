// Package editor holds the server-side editing session for one site: the
// document, the active page, the undo history and the unsaved flag.
package editor

import (
	"context"
	"fmt"
	"log"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sitesmith/sitesmith/internal/catalog"
	"github.com/sitesmith/sitesmith/internal/document"
	"github.com/sitesmith/sitesmith/internal/errors"
	"github.com/sitesmith/sitesmith/internal/section"
)

// Saver persists a document. Implementations bound their own call time.
type Saver interface {
	Save(ctx context.Context, siteID string, doc *document.Document) error
}

// State is a read-only copy of a session, handed to change hooks and
// returned by API handlers.
type State struct {
	SiteID   string            `json:"siteId"`
	Name     string            `json:"name"`
	Page     string            `json:"page"`
	Pages    []string          `json:"pages"`
	Sections []section.Section `json:"sections"`
	Styles   document.Styles   `json:"styles"`
	Dirty    bool              `json:"dirty"`
	CanUndo  bool              `json:"canUndo"`
	CanRedo  bool              `json:"canRedo"`
	Revision uint64            `json:"revision"`
}

// Options configures a Session.
type Options struct {
	HistoryLimit int
	Catalog      *catalog.Catalog
	// OnChange runs after every state change, outside the session lock.
	OnChange func(State)
}

// Session serializes edits to one document.
type Session struct {
	mu       sync.Mutex
	siteID   string
	doc      *document.Document
	current  string
	history  *History
	dirty    bool
	revision uint64
	savedAt  time.Time

	saving   atomic.Bool
	catalog  *catalog.Catalog
	onChange func(State)
}

// NewSession opens doc for editing on its home page. doc is owned by the
// session from here on.
func NewSession(siteID string, doc *document.Document, opts Options) *Session {
	if doc == nil {
		doc = document.New("")
	}
	doc.Pages.EnsureHome()
	cat := opts.Catalog
	if cat == nil {
		cat = catalog.MustLoad("")
	}
	return &Session{
		siteID:   siteID,
		doc:      doc,
		current:  document.Home,
		history:  NewHistory(opts.HistoryLimit),
		catalog:  cat,
		onChange: opts.OnChange,
	}
}

// SiteID returns the id of the site being edited.
func (s *Session) SiteID() string {
	return s.siteID
}

// State returns a copy of the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Document returns a deep copy of the document.
func (s *Session) Document() *document.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// Dirty reports whether there are unsaved changes.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Saving reports whether a save is in flight.
func (s *Session) Saving() bool {
	return s.saving.Load()
}

func (s *Session) stateLocked() State {
	sections, _ := s.doc.Pages.Get(s.current)
	return State{
		SiteID:   s.siteID,
		Name:     s.doc.Title(),
		Page:     s.current,
		Pages:    s.doc.Pages.Keys(),
		Sections: section.CloneList(sections),
		Styles:   s.doc.Styles,
		Dirty:    s.dirty,
		CanUndo:  s.history.CanUndo(),
		CanRedo:  s.history.CanRedo(),
		Revision: s.revision,
	}
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{Pages: s.doc.Pages, Current: s.current, Styles: s.doc.Styles}
}

func (s *Session) restoreLocked(snap Snapshot) {
	s.doc.Pages = snap.Pages
	s.doc.Styles = snap.Styles
	s.current = snap.Current
	if !s.doc.Pages.Has(s.current) {
		s.current = document.Home
	}
}

// mutate runs fn under the lock. fn returns false for a no-op. Otherwise the
// pre-state is recorded before fn's changes are kept, the session is marked
// unsaved and the change hook fires.
func (s *Session) mutate(fn func(pre Snapshot) (bool, error)) error {
	s.mu.Lock()
	pre := s.snapshotLocked()
	// fn works on a private copy so a failed or no-op call leaves no trace.
	work := pre.clone()
	s.doc.Pages, s.doc.Styles, s.current = work.Pages, work.Styles, work.Current

	changed, err := fn(pre)
	if err != nil || !changed {
		s.doc.Pages, s.doc.Styles, s.current = pre.Pages, pre.Styles, pre.Current
		s.mu.Unlock()
		return err
	}

	s.history.Record(pre)
	s.dirty = true
	s.revision++
	st := s.stateLocked()
	s.mu.Unlock()

	s.notify(st)
	return nil
}

func (s *Session) notify(st State) {
	if s.onChange != nil {
		s.onChange(st)
	}
}

// currentSections returns the active page's section list.
func (s *Session) currentSections() []section.Section {
	sections, _ := s.doc.Pages.Get(s.current)
	return sections
}

func (s *Session) setCurrentSections(sections []section.Section) {
	s.doc.Pages.Set(s.current, sections)
}

func indexOf(sections []section.Section, id string) int {
	for i, sec := range sections {
		if sec.ID == id {
			return i
		}
	}
	return -1
}

// AddSection appends a section of type t with default data to the active
// page and returns its id.
func (s *Session) AddSection(t section.Type) (string, error) {
	t = section.Type(strings.ToLower(strings.TrimSpace(string(t))))
	if !section.Known(t) {
		return "", errors.NewValidation(fmt.Sprintf("unknown section type %q", t))
	}
	sec := section.New(t)
	err := s.mutate(func(Snapshot) (bool, error) {
		s.setCurrentSections(append(s.currentSections(), sec))
		return true, nil
	})
	if err != nil {
		return "", err
	}
	return sec.ID, nil
}

// DeleteSection removes section id from the active page. Unknown ids are a
// no-op.
func (s *Session) DeleteSection(id string) error {
	return s.mutate(func(Snapshot) (bool, error) {
		sections := s.currentSections()
		i := indexOf(sections, id)
		if i < 0 {
			return false, nil
		}
		s.setCurrentSections(append(sections[:i], sections[i+1:]...))
		return true, nil
	})
}

// MoveSectionUp swaps section id with its predecessor.
func (s *Session) MoveSectionUp(id string) error {
	return s.move(id, -1)
}

// MoveSectionDown swaps section id with its successor.
func (s *Session) MoveSectionDown(id string) error {
	return s.move(id, 1)
}

func (s *Session) move(id string, delta int) error {
	return s.mutate(func(Snapshot) (bool, error) {
		sections := s.currentSections()
		i := indexOf(sections, id)
		j := i + delta
		if i < 0 || j < 0 || j >= len(sections) {
			return false, nil
		}
		sections[i], sections[j] = sections[j], sections[i]
		return true, nil
	})
}

// UpdateField writes value at path inside section id's data. An
// unparseable path is a VALIDATION error; an unknown id is logged and
// ignored. Writing the value already stored is a no-op.
func (s *Session) UpdateField(id, rawPath string, value any) error {
	path, err := section.ParsePath(rawPath)
	if err != nil {
		return err
	}
	return s.mutate(func(Snapshot) (bool, error) {
		sections := s.currentSections()
		i := indexOf(sections, id)
		if i < 0 {
			log.Printf("[editor] Section not found: %s", id)
			return false, nil
		}
		if sections[i].Data == nil {
			sections[i].Data = map[string]any{}
		}
		if old, ok := path.Get(sections[i].Data); ok && reflect.DeepEqual(old, value) {
			return false, nil
		}
		path.Apply(sections[i].Data, value)
		return true, nil
	})
}

// AddPage creates an empty page and makes it active. It returns the
// normalized key.
func (s *Session) AddPage(name string) (string, error) {
	key := document.Slugify(name)
	if key == "" {
		return "", errors.NewValidation("please enter a valid page name")
	}
	err := s.mutate(func(Snapshot) (bool, error) {
		if s.doc.Pages.Has(key) {
			return false, errors.NewConflict(fmt.Sprintf("a page named %q already exists", key))
		}
		s.doc.Pages.Set(key, nil)
		s.current = key
		return true, nil
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

// RenamePage renames a page in place, following it if it is active.
// Renaming to the same key is a no-op.
func (s *Session) RenamePage(oldKey, newName string) (string, error) {
	if oldKey == document.Home {
		return "", errors.NewValidation("cannot rename the home page")
	}
	key := document.Slugify(newName)
	if key == "" {
		return "", errors.NewValidation("please enter a valid page name")
	}
	err := s.mutate(func(Snapshot) (bool, error) {
		if !s.doc.Pages.Has(oldKey) || key == oldKey {
			return false, nil
		}
		if s.doc.Pages.Has(key) {
			return false, errors.NewConflict(fmt.Sprintf("a page named %q already exists", key))
		}
		s.doc.Pages.Rename(oldKey, key)
		if s.current == oldKey {
			s.current = key
		}
		return true, nil
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

// DeletePage removes a page. Deleting the active page switches to home.
func (s *Session) DeletePage(key string) error {
	if key == document.Home {
		return errors.NewValidation("cannot delete the home page")
	}
	return s.mutate(func(Snapshot) (bool, error) {
		if !s.doc.Pages.Delete(key) {
			return false, nil
		}
		if s.current == key {
			s.current = document.Home
		}
		return true, nil
	})
}

// SwitchPage changes the active page. A missing or already active page is
// a no-op. Switching is not recorded in history and does not mark the
// session unsaved.
func (s *Session) SwitchPage(key string) {
	s.mu.Lock()
	if key == s.current || !s.doc.Pages.Has(key) {
		s.mu.Unlock()
		return
	}
	s.current = key
	st := s.stateLocked()
	s.mu.Unlock()
	s.notify(st)
}

// UpdateStyles merges the non-empty tokens of partial over the current
// styles.
func (s *Session) UpdateStyles(partial document.Styles) error {
	return s.mutate(func(pre Snapshot) (bool, error) {
		next := pre.Styles.Merge(partial)
		if next == pre.Styles {
			return false, nil
		}
		s.doc.Styles = next
		return true, nil
	})
}

// ApplyTheme replaces the styles with a named theme preset.
func (s *Session) ApplyTheme(name string) error {
	theme, ok := s.catalog.Theme(name)
	if !ok {
		return errors.NewNotFound("theme", name)
	}
	return s.mutate(func(pre Snapshot) (bool, error) {
		s.doc.Styles = theme
		return pre.Styles != theme, nil
	})
}

// ResetStyles restores the default styles.
func (s *Session) ResetStyles() error {
	return s.mutate(func(pre Snapshot) (bool, error) {
		s.doc.Styles = document.DefaultStyles()
		return pre.Styles != s.doc.Styles, nil
	})
}

// LoadTemplate replaces the active page's sections with fresh copies of a
// catalog template.
func (s *Session) LoadTemplate(id string) error {
	tpl, err := s.catalog.Template(id)
	if err != nil {
		return err
	}
	return s.mutate(func(Snapshot) (bool, error) {
		s.setCurrentSections(tpl.Instantiate())
		return true, nil
	})
}

// SetSiteName changes the display name. It is not undoable.
func (s *Session) SetSiteName(name string) {
	name = strings.TrimSpace(name)
	s.mu.Lock()
	if name == "" || name == s.doc.Name {
		s.mu.Unlock()
		return
	}
	s.doc.Name = name
	s.dirty = true
	s.revision++
	st := s.stateLocked()
	s.mu.Unlock()
	s.notify(st)
}

// Undo restores the state before the last mutation.
func (s *Session) Undo() bool {
	return s.step(func(live Snapshot) (Snapshot, bool) { return s.history.Undo(live) })
}

// Redo re-applies the last undone mutation.
func (s *Session) Redo() bool {
	return s.step(func(Snapshot) (Snapshot, bool) { return s.history.Redo() })
}

func (s *Session) step(fn func(live Snapshot) (Snapshot, bool)) bool {
	s.mu.Lock()
	snap, ok := fn(s.snapshotLocked())
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.restoreLocked(snap)
	s.dirty = true
	s.revision++
	st := s.stateLocked()
	s.mu.Unlock()
	s.notify(st)
	return true
}

// Save persists the document through saver. A save requested while another
// is outstanding is dropped and reports false. The unsaved flag is cleared
// only if no edit landed while the save was running.
func (s *Session) Save(ctx context.Context, saver Saver) (bool, error) {
	if !s.saving.CompareAndSwap(false, true) {
		log.Printf("[editor] Save already in progress for %s, skipping", s.siteID)
		return false, nil
	}
	defer s.saving.Store(false)

	s.mu.Lock()
	doc := s.doc.Clone()
	rev := s.revision
	s.mu.Unlock()

	if err := saver.Save(ctx, s.siteID, doc); err != nil {
		return false, err
	}

	s.mu.Lock()
	if s.revision == rev {
		s.dirty = false
	}
	s.savedAt = time.Now()
	st := s.stateLocked()
	s.mu.Unlock()
	s.notify(st)
	return true, nil
}

// SavedAt returns the time of the last successful save.
func (s *Session) SavedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.savedAt
}
