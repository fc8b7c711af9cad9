// Package session owns one open course file: the live document, its undo
// history, the save controller and the change feed the presentation layer
// subscribes to.
//
// The live document is only ever touched under the session mutex (the Go
// rendition of the original single UI thread); the save worker gets private
// deep copies and reports back through completion events.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"nihonjindes-editor/internal/history"
	"nihonjindes-editor/internal/model"
	"nihonjindes-editor/internal/save"
	"nihonjindes-editor/internal/store"
)

// ChangeEvent is emitted on every document mutation. Structural changes
// (add/delete/move/undo/redo) require a tree rebuild; field edits do not.
type ChangeEvent struct {
	Version    int64
	Structural bool
}

// Options tunes a session. Zero values select the defaults.
type Options struct {
	HistoryLimit   int
	CoalesceWindow time.Duration
	SaveDebounce   time.Duration

	// SkipBackup disables the timestamped copy normally taken on open.
	SkipBackup bool
	// SkipActivityLog disables the SQLite activity log.
	SkipActivityLog bool
}

type Session struct {
	path       string
	backupPath string

	mu      sync.Mutex
	doc     *model.Document
	version int64

	hist *history.History
	ctrl *save.Controller

	subs     []func(ChangeEvent)
	saveSubs []func(save.Result)

	activity *store.ActivityLog
}

// Open loads a course file and builds a session around it. A load failure is
// fatal; a backup or activity-log failure is not.
func Open(path string, opts Options) (*Session, error) {
	doc, err := store.Load(path)
	if err != nil {
		return nil, err
	}
	s := New(doc, path, opts)
	if !opts.SkipBackup {
		// Best-effort: opening must not block on the backup.
		if dest, err := store.BackupOnOpen(path); err == nil {
			s.backupPath = dest
		}
	}
	if !opts.SkipActivityLog {
		if log, err := store.OpenActivityLog(context.Background(), path); err == nil {
			s.activity = log
			_ = log.Append(context.Background(), "open", "course", path)
		}
	}
	return s, nil
}

// New builds a session around an already-loaded document. Used by Open and by
// tests that do not want disk I/O beyond the save path.
func New(doc *model.Document, path string, opts Options) *Session {
	s := &Session{path: path, doc: doc}
	s.hist = history.New(opts.HistoryLimit, opts.CoalesceWindow)
	s.ctrl = save.New(save.Options{
		Path:     path,
		Debounce: opts.SaveDebounce,
		Snapshot: s.snapshot,
		OnResult: s.onSaveResult,
	})
	return s
}

func (s *Session) snapshot() save.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return save.Snapshot{Doc: s.doc.Clone(), Version: s.version}
}

func (s *Session) onSaveResult(r save.Result) {
	if s.activity != nil {
		detail := "ok"
		if r.Err != nil {
			detail = r.Err.Error()
		}
		_ = s.activity.Append(context.Background(), "save:"+r.Reason, "course", detail)
	}
	s.mu.Lock()
	subs := append([]func(save.Result){}, s.saveSubs...)
	s.mu.Unlock()
	for _, fn := range subs {
		fn(r)
	}
}

// Subscribe registers a change-feed consumer. Callbacks run synchronously on
// the mutating goroutine and must not call back into the session.
func (s *Session) Subscribe(fn func(ChangeEvent)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// OnSaveResult registers a consumer for save completion events. Callbacks run
// on the save worker goroutine.
func (s *Session) OnSaveResult(fn func(save.Result)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveSubs = append(s.saveSubs, fn)
}

// Document returns the live tree. Read-only snapshot semantics: callers must
// not mutate it directly.
func (s *Session) Document() *model.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc
}

func (s *Session) Path() string       { return s.path }
func (s *Session) BackupPath() string { return s.backupPath }

func (s *Session) Version() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Dirty reports whether the document differs from the last successful save or
// a save is outstanding.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	v := s.version
	s.mu.Unlock()
	return s.ctrl.Dirty(v)
}

func (s *Session) Saving() bool      { return s.ctrl.Saving() }
func (s *Session) LastError() string { return s.ctrl.LastError() }

// Get, Key, Label, CanMove and KeyCollisions proxy the document under the
// session lock so the TUI never reads the tree unguarded.

func (s *Session) Get(ref model.Ref) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Get(ref)
}

func (s *Session) Key(ref model.Ref) model.Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Key(ref)
}

func (s *Session) Label(ref model.Ref) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Label(ref)
}

func (s *Session) CanMove(ref model.Ref, direction int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.CanMove(ref, direction)
}

func (s *Session) KeyCollisions() []model.Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.KeyCollisions()
}

// optionalFields are removed from the node when set to an empty value.
var optionalFields = map[string]bool{
	"notes":       true,
	"description": true,
}

// SetField applies one coalesced field edit: the first edit of a burst
// snapshots the pre-burst state, later edits within the window reuse that
// undo entry. A blank item image falls back to the placeholder.
func (s *Session) SetField(ref model.Ref, key, value string) error {
	s.mu.Lock()
	node, err := s.doc.Get(ref)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.hist.BeginEdit(s.doc)

	value = strings.TrimSpace(value)
	switch {
	case ref.Kind == model.KindItem && key == "image" && value == "":
		node[key] = model.DefaultItemImage
	case value == "" && optionalFields[key]:
		delete(node, key)
	default:
		node[key] = value
	}
	s.touchLocked(false, "edit", ref, key)
	return nil
}

// structural runs fn as a structural command: closes any open edit group,
// pushes an undo snapshot, applies the mutation, then bumps the version and
// notifies.
func (s *Session) structural(typ string, fn func() (model.Ref, error)) (model.Ref, error) {
	s.mu.Lock()
	s.hist.CloseGroup()
	s.hist.Push(s.doc)
	ref, err := fn()
	if err != nil {
		// Nothing changed; drop the snapshot we just pushed.
		s.hist.DropLast()
		s.mu.Unlock()
		return ref, err
	}
	s.touchLocked(true, typ, ref, "")
	return ref, nil
}

func (s *Session) AddCategory(name, slug string) model.Ref {
	ref, _ := s.structural("add-category", func() (model.Ref, error) {
		return s.doc.AddCategory(name, slug), nil
	})
	return ref
}

func (s *Session) AddLesson(cat int, name, slug string) (model.Ref, error) {
	return s.structural("add-lesson", func() (model.Ref, error) {
		return s.doc.AddLesson(cat, name, slug)
	})
}

func (s *Session) AddItem(cat, lesson int, ja, it, image string) (model.Ref, error) {
	return s.structural("add-item", func() (model.Ref, error) {
		return s.doc.AddItem(cat, lesson, ja, it, image)
	})
}

// Delete removes ref and returns the successor reference for re-selection.
// Deleting the course root is refused and leaves history untouched.
func (s *Session) Delete(ref model.Ref) model.Ref {
	if ref.Kind == model.KindCourse {
		return ref
	}
	succ, _ := s.structural("delete", func() (model.Ref, error) {
		return s.doc.Delete(ref)
	})
	return succ
}

// Move swaps ref with its sibling. A boundary move is a no-op and produces no
// history entry or version bump.
func (s *Session) Move(ref model.Ref, direction int) model.Ref {
	s.mu.Lock()
	if !s.doc.CanMove(ref, direction) {
		s.mu.Unlock()
		return ref
	}
	s.hist.CloseGroup()
	s.hist.Push(s.doc)
	moved := s.doc.Move(ref, direction)
	s.touchLocked(true, "move", moved, "")
	return moved
}

// Undo restores the previous snapshot. Returns false when there is nothing to
// undo.
func (s *Session) Undo() bool {
	s.mu.Lock()
	restored, ok := s.hist.Undo(s.doc)
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.doc = restored
	s.touchLocked(true, "undo", model.CourseRef(), "")
	return true
}

func (s *Session) Redo() bool {
	s.mu.Lock()
	restored, ok := s.hist.Redo(s.doc)
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.doc = restored
	s.touchLocked(true, "redo", model.CourseRef(), "")
	return true
}

func (s *Session) CanUndo() bool { return s.hist.CanUndo() }
func (s *Session) CanRedo() bool { return s.hist.CanRedo() }

// RequestSave saves immediately (subject to the single-flight rule),
// bypassing the autosave debounce.
func (s *Session) RequestSave() {
	s.ctrl.SaveNow()
}

// touchLocked finishes a mutation: normalize, bump the version, release the
// lock, then schedule the autosave and fan out the change event. Must be
// called with s.mu held; returns with it released.
func (s *Session) touchLocked(structural bool, typ string, ref model.Ref, key string) {
	s.doc.Normalize()
	s.version++
	ev := ChangeEvent{Version: s.version, Structural: structural}
	subs := append([]func(ChangeEvent){}, s.subs...)
	s.mu.Unlock()

	s.ctrl.Schedule()
	for _, fn := range subs {
		fn(ev)
	}
	if s.activity != nil && structural {
		detail := typ
		if key != "" {
			detail += ":" + key
		}
		_ = s.activity.Append(context.Background(), typ, ref.String(), detail)
	}
}

// Close tears the session down: timers stopped, activity log closed. Any
// in-flight save runs to completion; the host is responsible for checking
// Dirty/LastError before exiting.
func (s *Session) Close() error {
	s.hist.Stop()
	s.ctrl.Stop()
	if s.activity != nil {
		return s.activity.Close()
	}
	return nil
}
