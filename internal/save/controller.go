// Package save runs the debounced, single-flight persistence pipeline. At
// most one write is ever in flight; requests arriving mid-write collapse into
// a single queued follow-up that starts from the then-current document, never
// from the stale in-flight snapshot.
package save

import (
	"fmt"
	"sync"
	"time"

	"nihonjindes-editor/internal/model"
	"nihonjindes-editor/internal/store"
)

// DefaultDebounce is the autosave window reset on every mutation.
const DefaultDebounce = 900 * time.Millisecond

// Snapshot is a private deep copy of the document plus the version it
// captures. The worker only ever touches snapshots.
type Snapshot struct {
	Doc     *model.Document
	Version int64
}

// Result is the completion event of one save attempt.
type Result struct {
	Version int64
	Reason  string
	Err     error
	At      time.Time
}

// Options configures a Controller.
type Options struct {
	Path     string
	Debounce time.Duration

	// Snapshot returns a deep copy of the current document and its version.
	// Called on the requester's goroutine at dispatch time.
	Snapshot func() Snapshot

	// OnResult receives every completion event, success or failure, on the
	// worker goroutine.
	OnResult func(Result)

	// Write commits one snapshot. Defaults to store.Save (atomic replace).
	Write func(path string, doc *model.Document) error
}

type Controller struct {
	path     string
	debounce time.Duration
	snapshot func() Snapshot
	onResult func(Result)
	write    func(string, *model.Document) error

	mu        sync.Mutex
	timer     *time.Timer
	saving    bool
	pending   bool
	lastSaved int64
	lastErr   string
}

func New(opts Options) *Controller {
	c := &Controller{
		path:     opts.Path,
		debounce: opts.Debounce,
		snapshot: opts.Snapshot,
		onResult: opts.OnResult,
		write:    opts.Write,
	}
	if c.debounce <= 0 {
		c.debounce = DefaultDebounce
	}
	if c.write == nil {
		c.write = store.Save
	}
	return c
}

// Schedule arms (or re-arms) the autosave debounce. A typing burst produces
// one save shortly after it stops, not one per keystroke.
func (c *Controller) Schedule() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer == nil {
		c.timer = time.AfterFunc(c.debounce, func() { c.request("autosave") })
		return
	}
	c.timer.Reset(c.debounce)
}

// SaveNow bypasses the debounce but still obeys the single-flight rule.
func (c *Controller) SaveNow() {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.mu.Unlock()
	c.request("manual")
}

func (c *Controller) request(reason string) {
	c.mu.Lock()
	if c.saving {
		// Coalesce: many requests during a write become one follow-up.
		c.pending = true
		c.mu.Unlock()
		return
	}
	c.saving = true
	c.lastErr = ""
	c.mu.Unlock()

	snap := c.snapshot()
	go c.runSave(snap, reason)
}

// runSave is the worker. Every failure, panics included, is converted to a
// completion event here; nothing may escape the asynchronous boundary.
func (c *Controller) runSave(snap Snapshot, reason string) {
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("save panicked: %v", r)
			}
		}()
		return c.write(c.path, snap.Doc)
	}()
	c.finish(snap.Version, reason, err)
}

func (c *Controller) finish(version int64, reason string, err error) {
	c.mu.Lock()
	c.saving = false
	if err == nil {
		c.lastSaved = version
		c.lastErr = ""
	} else {
		c.lastErr = err.Error()
	}
	hadPending := c.pending
	c.pending = false
	c.mu.Unlock()

	if c.onResult != nil {
		c.onResult(Result{Version: version, Reason: reason, Err: err, At: time.Now()})
	}
	if hadPending {
		// Start over from the current document, which may have moved on.
		c.request("queued")
	}
}

// Dirty reports whether the document at currentVersion has unsaved state:
// version behind disk, a write in flight, or a queued follow-up.
func (c *Controller) Dirty(currentVersion int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return currentVersion != c.lastSaved || c.saving || c.pending
}

func (c *Controller) Saving() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saving
}

// LastError returns the message of the most recent failed save, empty after
// a success.
func (c *Controller) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Controller) LastSavedVersion() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSaved
}

// MarkSaved seeds the saved version, used when a session opens a file that is
// already on disk.
func (c *Controller) MarkSaved(version int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastSaved = version
}

// Stop cancels any armed debounce timer. An in-flight write runs to
// completion or failure; there is no cancellation of the write itself.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
