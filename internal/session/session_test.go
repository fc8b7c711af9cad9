package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"nihonjindes-editor/internal/model"
	"nihonjindes-editor/internal/save"
	"nihonjindes-editor/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jp_course.json")
	s := New(model.NewEmpty(), path, Options{
		// Long windows so tests control coalescing explicitly.
		CoalesceWindow: time.Minute,
		SaveDebounce:   time.Minute,
	})
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func marshal(t *testing.T, d *model.Document) string {
	t.Helper()
	b, err := json.Marshal(d.Data())
	require.NoError(t, err)
	return string(b)
}

// The end-to-end scenario from the editor's reference walkthrough: build
// greetings/basics/こんにちは, then unwind it completely.
func TestEditScenario(t *testing.T) {
	s := newTestSession(t)
	empty := marshal(t, s.Document())

	catRef := s.AddCategory("Greetings", "greetings")
	lessonRef, err := s.AddLesson(catRef.Cat, "Basics", "basics")
	require.NoError(t, err)
	itemRef, err := s.AddItem(0, 0, "こんにちは", "ciao", "")
	require.NoError(t, err)

	item, err := s.Get(itemRef)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultItemImage, item["image"])

	assert.Equal(t, model.Key{"lesson", "greetings", "basics"}, s.Key(lessonRef))

	require.True(t, s.Undo())
	require.True(t, s.Undo())
	require.True(t, s.Undo())
	assert.Equal(t, empty, marshal(t, s.Document()))
	assert.False(t, s.Undo(), "nothing left to undo")
}

func TestFieldEditsCoalesceIntoOneUndoStep(t *testing.T) {
	s := newTestSession(t)
	ref := s.AddCategory("Greetings", "greetings")

	for _, name := range []string{"G", "Gr", "Gre", "Gree", "Greet"} {
		require.NoError(t, s.SetField(ref, "name", name))
	}

	// One undo unwinds the whole burst back to the freshly added category.
	require.True(t, s.Undo())
	cat, err := s.Get(ref)
	require.NoError(t, err)
	assert.Equal(t, "Greetings", cat["name"])
}

func TestStructuralEditClosesEditGroup(t *testing.T) {
	s := newTestSession(t)
	ref := s.AddCategory("Greetings", "greetings")

	require.NoError(t, s.SetField(ref, "name", "Renamed"))
	_, err := s.AddLesson(0, "Basics", "basics")
	require.NoError(t, err)

	// The add is its own undo step; the rename survives its undo.
	require.True(t, s.Undo())
	cat, err := s.Get(ref)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", cat["name"])

	require.True(t, s.Undo())
	cat, err = s.Get(ref)
	require.NoError(t, err)
	assert.Equal(t, "Greetings", cat["name"])
}

func TestRedoClearedByNewMutation(t *testing.T) {
	s := newTestSession(t)
	s.AddCategory("A", "a")
	require.True(t, s.Undo())
	require.True(t, s.CanRedo())

	s.AddCategory("B", "b")
	assert.False(t, s.CanRedo())
	assert.False(t, s.Redo())
}

func TestSetFieldSemantics(t *testing.T) {
	s := newTestSession(t)
	s.AddCategory("A", "a")
	_, err := s.AddLesson(0, "L", "l")
	require.NoError(t, err)
	itemRef, err := s.AddItem(0, 0, "ja", "it", "custom.png")
	require.NoError(t, err)

	// Blank image reverts to the placeholder.
	require.NoError(t, s.SetField(itemRef, "image", "   "))
	item, err := s.Get(itemRef)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultItemImage, item["image"])

	// Optional fields vanish when cleared.
	lessonRef := model.LessonRef(0, 0)
	require.NoError(t, s.SetField(lessonRef, "notes", "memo"))
	require.NoError(t, s.SetField(lessonRef, "notes", ""))
	lesson, err := s.Get(lessonRef)
	require.NoError(t, err)
	_, has := lesson["notes"]
	assert.False(t, has)

	// Stale references are rejected, not fatal.
	err = s.SetField(model.CategoryRef(5), "name", "x")
	assert.ErrorIs(t, err, model.ErrOutOfRange)
}

func TestDeleteReturnsSuccessorAndRefusesRoot(t *testing.T) {
	s := newTestSession(t)
	s.AddCategory("A", "a")
	_, err := s.AddLesson(0, "L", "l")
	require.NoError(t, err)
	_, err = s.AddItem(0, 0, "only", "solo", "")
	require.NoError(t, err)

	succ := s.Delete(model.ItemRef(0, 0, 0))
	assert.Equal(t, model.LessonRef(0, 0), succ)

	root := model.CourseRef()
	assert.Equal(t, root, s.Delete(root))

	// A stale delete neither mutates nor leaves a bogus history entry.
	v := s.Version()
	stale := model.CategoryRef(9)
	assert.Equal(t, stale, s.Delete(stale))
	assert.Equal(t, v, s.Version())
}

// Deleting a non-last sibling yields a successor with the same coordinates as
// the input. That must still count as a real mutation: version bump, dirty
// flip, undoable.
func TestDeleteFirstOfTwoSiblingsIsARealMutation(t *testing.T) {
	s := newTestSession(t)
	s.AddCategory("A", "a")
	s.AddCategory("B", "b")
	s.ctrl.MarkSaved(s.Version())

	v := s.Version()
	require.False(t, s.Dirty())

	succ := s.Delete(model.CategoryRef(0))
	assert.Equal(t, model.CategoryRef(0), succ, "sibling slides into the deleted slot")
	assert.Equal(t, 1, s.Document().NumCategories())

	assert.Equal(t, v+1, s.Version(), "delete must bump the version")
	assert.True(t, s.Dirty(), "delete must leave the session dirty")

	require.True(t, s.Undo())
	assert.Equal(t, 2, s.Document().NumCategories(), "undo must restore the deleted category")
	name, err := s.Get(model.CategoryRef(0))
	require.NoError(t, err)
	assert.Equal(t, "A", name["name"])
}

func TestChangeFeedCarriesStructuralFlag(t *testing.T) {
	s := newTestSession(t)

	var events []ChangeEvent
	s.Subscribe(func(ev ChangeEvent) { events = append(events, ev) })

	ref := s.AddCategory("A", "a")
	require.NoError(t, s.SetField(ref, "name", "B"))
	require.True(t, s.Undo())

	require.Len(t, events, 3)
	assert.True(t, events[0].Structural)
	assert.False(t, events[1].Structural)
	assert.True(t, events[2].Structural)
	assert.Equal(t, int64(1), events[0].Version)
	assert.Equal(t, int64(3), events[2].Version, "versions increase monotonically")
}

func TestSaveRoundTripAndDirtyStatus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jp_course.json")
	s := New(model.NewEmpty(), path, Options{
		CoalesceWindow: time.Minute,
		SaveDebounce:   time.Minute,
	})
	defer s.Close()

	results := make(chan save.Result, 4)
	s.OnSaveResult(func(r save.Result) { results <- r })

	s.AddCategory("Greetings", "greetings")
	assert.True(t, s.Dirty())

	s.RequestSave()
	select {
	case r := <-results:
		require.NoError(t, r.Err)
	case <-time.After(2 * time.Second):
		t.Fatal("save did not complete")
	}
	assert.False(t, s.Dirty())
	assert.Empty(t, s.LastError())

	d, err := store.Load(path)
	require.NoError(t, err)
	cat, err := d.Get(model.CategoryRef(0))
	require.NoError(t, err)
	assert.Equal(t, "Greetings", cat["name"])

	s.AddCategory("Food", "food")
	assert.True(t, s.Dirty(), "mutation after save dirties again")
}

func TestOpenBacksUpAndLoads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jp_course.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"course":{"title":"Corso"},"categories":[]}`), 0o644))

	s, err := Open(path, Options{SkipActivityLog: true})
	require.NoError(t, err)
	defer s.Close()

	assert.NotEmpty(t, s.BackupPath())
	_, err = os.Stat(s.BackupPath())
	assert.NoError(t, err)

	course, err := s.Get(model.CourseRef())
	require.NoError(t, err)
	assert.Equal(t, "Corso", course["title"])
}

func TestOpenFailsOnInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"categories": [`), 0o644))

	_, err := Open(path, Options{SkipActivityLog: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON")
}
