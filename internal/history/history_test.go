package history

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"nihonjindes-editor/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docJSON(t *testing.T, d *model.Document) string {
	t.Helper()
	b, err := json.Marshal(d.Data())
	require.NoError(t, err)
	return string(b)
}

func TestUndoRedoInverseLaw(t *testing.T) {
	h := New(0, 0)
	defer h.Stop()

	d := model.NewEmpty()
	before := docJSON(t, d)

	h.Push(d)
	d.AddCategory("Greetings", "greetings")
	after := docJSON(t, d)

	restored, ok := h.Undo(d)
	require.True(t, ok)
	assert.Equal(t, before, docJSON(t, restored))

	redone, ok := h.Redo(restored)
	require.True(t, ok)
	assert.Equal(t, after, docJSON(t, redone))
}

func TestUndoRedoEmptyStacksAreNoops(t *testing.T) {
	h := New(0, 0)
	defer h.Stop()

	d := model.NewEmpty()
	_, ok := h.Undo(d)
	assert.False(t, ok)
	_, ok = h.Redo(d)
	assert.False(t, ok)
}

func TestPushClearsRedo(t *testing.T) {
	h := New(0, 0)
	defer h.Stop()

	d := model.NewEmpty()
	h.Push(d)
	d.AddCategory("A", "a")

	restored, ok := h.Undo(d)
	require.True(t, ok)
	require.True(t, h.CanRedo())

	// A new mutation after undo invalidates redo.
	h.Push(restored)
	restored.AddCategory("B", "b")
	assert.False(t, h.CanRedo())
	_, ok = h.Redo(restored)
	assert.False(t, ok)
}

func TestUndoRenormalizesRestoredSnapshot(t *testing.T) {
	h := New(0, 0)
	defer h.Stop()

	// Legacy-malformed snapshot: category without lessons array.
	d := model.New(map[string]any{
		"categories": []any{map[string]any{"name": "Old"}},
	})
	h.Push(d)
	d.AddCategory("New", "new")

	restored, ok := h.Undo(d)
	require.True(t, ok)
	cat, err := restored.Get(model.CategoryRef(0))
	require.NoError(t, err)
	assert.Equal(t, []any{}, cat["lessons"])
}

func TestCoalescingCollapsesBursts(t *testing.T) {
	h := New(0, 50*time.Millisecond)
	defer h.Stop()

	d := model.NewEmpty()
	ref := d.AddCategory("Greetings", "greetings")

	// N rapid edits inside the window: exactly one undo entry.
	for i := 0; i < 5; i++ {
		h.BeginEdit(d)
		cat, err := d.Get(ref)
		require.NoError(t, err)
		cat["name"] = fmt.Sprintf("Greetings %d", i)
	}
	assert.Equal(t, 1, h.UndoDepth())

	// Edits spaced beyond the window each open a fresh group.
	time.Sleep(80 * time.Millisecond)
	h.BeginEdit(d)
	assert.Equal(t, 2, h.UndoDepth())
	time.Sleep(80 * time.Millisecond)
	h.BeginEdit(d)
	assert.Equal(t, 3, h.UndoDepth())
}

func TestCloseGroupSplitsBurst(t *testing.T) {
	h := New(0, time.Minute)
	defer h.Stop()

	d := model.NewEmpty()
	h.BeginEdit(d)
	assert.Equal(t, 1, h.UndoDepth())

	// Structural command closes the group; the next field edit snapshots anew.
	h.CloseGroup()
	h.Push(d)
	h.BeginEdit(d)
	assert.Equal(t, 3, h.UndoDepth())
}

func TestUndoStackIsBounded(t *testing.T) {
	h := New(3, 0)
	defer h.Stop()

	d := model.NewEmpty()
	for i := 0; i < 10; i++ {
		h.Push(d)
		d.AddCategory(fmt.Sprintf("c%d", i), "")
	}
	assert.Equal(t, 3, h.UndoDepth())

	// Oldest entries were evicted: deepest restore is 3 steps back, holding 7
	// categories.
	cur := d
	for {
		restored, ok := h.Undo(cur)
		if !ok {
			break
		}
		cur = restored
	}
	var count int
	if cats, ok := cur.Data()["categories"].([]any); ok {
		count = len(cats)
	}
	assert.Equal(t, 7, count)
}
