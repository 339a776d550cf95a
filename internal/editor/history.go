package editor

import (
	"github.com/sitesmith/sitesmith/internal/document"
)

// DefaultHistoryLimit bounds the undo stack.
const DefaultHistoryLimit = 50

// Snapshot is a deep copy of the undoable editor state.
type Snapshot struct {
	Pages   document.Pages
	Current string
	Styles  document.Styles
}

func (s Snapshot) clone() Snapshot {
	return Snapshot{Pages: s.Pages.Clone(), Current: s.Current, Styles: s.Styles}
}

// History is a linear snapshot stack.
//
// Entries hold states before each mutation. cursor indexes the entry equal
// to the live state, or is len(entries) when the live state has not been
// stored yet (the usual case right after a mutation).
type History struct {
	entries []Snapshot
	cursor  int
	limit   int
}

// NewHistory returns an empty stack holding at most limit entries.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{limit: limit}
}

// Record stores pre, the state about to be mutated. It drops the redo tail
// and evicts the oldest entry beyond the limit.
func (h *History) Record(pre Snapshot) {
	h.entries = append(h.entries[:h.cursor], pre.clone())
	if len(h.entries) > h.limit {
		h.entries = h.entries[len(h.entries)-h.limit:]
	}
	h.cursor = len(h.entries)
}

// Undo returns the state before the last mutation. live is stored first so
// a later Redo can return to it. It reports false at the oldest entry.
func (h *History) Undo(live Snapshot) (Snapshot, bool) {
	if h.cursor == 0 {
		return Snapshot{}, false
	}
	if h.cursor == len(h.entries) {
		h.entries = append(h.entries, live.clone())
		if len(h.entries) > h.limit {
			h.entries = h.entries[1:]
			h.cursor--
		}
		if h.cursor == 0 {
			return Snapshot{}, false
		}
	}
	h.cursor--
	return h.entries[h.cursor].clone(), true
}

// Redo returns the state Undo stepped away from. It reports false when
// there is nothing to redo.
func (h *History) Redo() (Snapshot, bool) {
	if h.cursor >= len(h.entries)-1 {
		return Snapshot{}, false
	}
	h.cursor++
	return h.entries[h.cursor].clone(), true
}

// CanUndo reports whether Undo would change state.
func (h *History) CanUndo() bool {
	return h.cursor > 0
}

// CanRedo reports whether Redo would change state.
func (h *History) CanRedo() bool {
	return h.cursor < len(h.entries)-1
}

// Len returns the number of stored entries.
func (h *History) Len() int {
	return len(h.entries)
}

// Reset clears the stack.
func (h *History) Reset() {
	h.entries = nil
	h.cursor = 0
}
