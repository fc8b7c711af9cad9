// Package history provides undo/redo over full-document snapshots with
// burst coalescing for field edits.
//
// Entries are deep, self-contained copies rather than diffs; the stack is
// capped and evicts oldest-first. A burst of rapid field edits collapses into
// one undo entry: the first edit of a burst snapshots the pre-burst state and
// opens a group, later edits inside the window reuse it.
package history

import (
	"sync"
	"time"

	"nihonjindes-editor/internal/model"
)

const (
	// DefaultLimit caps the undo stack.
	DefaultLimit = 100
	// DefaultCoalesceWindow is how long after the last field edit a group
	// stays open.
	DefaultCoalesceWindow = 900 * time.Millisecond
)

type History struct {
	mu     sync.Mutex
	limit  int
	window time.Duration

	undo []*model.Document
	redo []*model.Document

	groupActive bool
	groupTimer  *time.Timer
}

func New(limit int, window time.Duration) *History {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultCoalesceWindow
	}
	return &History{limit: limit, window: window}
}

// Push records a snapshot of current onto the undo stack and clears the redo
// stack. Structural commands call this after closing any open edit group.
func (h *History) Push(current *model.Document) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.push(current)
}

func (h *History) push(current *model.Document) {
	h.undo = append(h.undo, current.Clone())
	if len(h.undo) > h.limit {
		h.undo = h.undo[1:]
	}
	h.redo = nil
}

// BeginEdit opens (or extends) a coalesced edit group. The first call of a
// burst pushes a snapshot; every call re-arms the group timer, so the group
// closes only once edits stop for the coalescing window.
func (h *History) BeginEdit(current *model.Document) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.groupActive {
		h.push(current)
		h.groupActive = true
	}
	if h.groupTimer == nil {
		h.groupTimer = time.AfterFunc(h.window, h.onGroupTimer)
		return
	}
	h.groupTimer.Reset(h.window)
}

// onGroupTimer only clears the active flag; the snapshot already happened at
// group start.
func (h *History) onGroupTimer() {
	h.mu.Lock()
	h.groupActive = false
	h.mu.Unlock()
}

// CloseGroup ends any open edit group immediately. Structural commands and
// undo/redo call this first so a field-edit snapshot is never merged with a
// structural change.
func (h *History) CloseGroup() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.groupActive = false
	if h.groupTimer != nil {
		h.groupTimer.Stop()
	}
}

// Undo exchanges current for the most recent snapshot: current is pushed onto
// the redo stack and the restored document is returned, re-normalized since
// historical snapshots may be legacy-malformed. Returns false when there is
// nothing to undo.
func (h *History) Undo(current *model.Document) (*model.Document, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.groupActive = false
	if h.groupTimer != nil {
		h.groupTimer.Stop()
	}
	if len(h.undo) == 0 {
		return nil, false
	}
	h.redo = append(h.redo, current.Clone())
	restored := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	restored.Normalize()
	return restored, true
}

// Redo is the inverse of Undo. It is only meaningful immediately after an
// undo: any new snapshot clears the redo stack.
func (h *History) Redo(current *model.Document) (*model.Document, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.groupActive = false
	if h.groupTimer != nil {
		h.groupTimer.Stop()
	}
	if len(h.redo) == 0 {
		return nil, false
	}
	h.undo = append(h.undo, current.Clone())
	if len(h.undo) > h.limit {
		h.undo = h.undo[1:]
	}
	restored := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	restored.Normalize()
	return restored, true
}

// DropLast discards the newest undo entry. Used when a structural command
// snapshots first and then turns out to be a no-op (stale reference).
func (h *History) DropLast() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.undo) > 0 {
		h.undo = h.undo[:len(h.undo)-1]
	}
}

func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undo) > 0
}

func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redo) > 0
}

// UndoDepth reports the undo stack size.
func (h *History) UndoDepth() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undo)
}

// Stop cancels the group timer. Called on session teardown.
func (h *History) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.groupActive = false
	if h.groupTimer != nil {
		h.groupTimer.Stop()
		h.groupTimer = nil
	}
}
