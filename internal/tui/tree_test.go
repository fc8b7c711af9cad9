package tui

import (
	"testing"

	"nihonjindes-editor/internal/model"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
)

func sampleCourseDoc() *model.Document {
	return model.New(map[string]any{
		"course": map[string]any{"title": "Corso", "slug": "corso"},
		"categories": []any{
			map[string]any{"name": "Greetings", "slug": "greetings", "lessons": []any{
				map[string]any{"name": "Basics", "slug": "basics", "items": []any{
					map[string]any{"ja": "こんにちは", "it": "ciao"},
				}},
			}},
			map[string]any{"name": "Food", "slug": "food", "lessons": []any{}},
		},
	})
}

func TestFlattenTree_LessonsCollapsedByDefault(t *testing.T) {
	doc := sampleCourseDoc()
	rows := flattenTree(doc, map[string]bool{})

	// course, greetings, basics (collapsed), food. The item stays hidden.
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d: %+v", len(rows), rows)
	}
	lesson := rows[2]
	if lesson.ref.Kind != model.KindLesson {
		t.Fatalf("expected row 2 to be the lesson, got %v", lesson.ref)
	}
	if !lesson.hasChildren || lesson.open {
		t.Fatalf("expected lesson collapsed with children, got open=%v hasChildren=%v", lesson.open, lesson.hasChildren)
	}
}

func TestFlattenTree_OpenLessonShowsItems(t *testing.T) {
	doc := sampleCourseDoc()
	rows := flattenTree(doc, map[string]bool{"lesson/greetings/basics": true})

	if len(rows) != 5 {
		t.Fatalf("expected 5 rows with the lesson open, got %d", len(rows))
	}
	if rows[3].ref.Kind != model.KindItem {
		t.Fatalf("expected row 3 to be the item, got %v", rows[3].ref)
	}
	if rows[3].depth != 3 {
		t.Fatalf("expected item depth 3, got %d", rows[3].depth)
	}
}

func TestFlattenTree_ClosedCourseHidesEverything(t *testing.T) {
	doc := sampleCourseDoc()
	rows := flattenTree(doc, map[string]bool{"course": false})
	if len(rows) != 1 {
		t.Fatalf("expected only the course row, got %d", len(rows))
	}
}

func TestRowIndexForKey_SurvivesReorder(t *testing.T) {
	doc := sampleCourseDoc()
	rows := flattenTree(doc, map[string]bool{})
	foodKey := rows[3].key

	doc.Move(model.CategoryRef(1), -1)
	rows = flattenTree(doc, map[string]bool{})

	i := rowIndexForKey(rows, foodKey, doc.KeyCollisions())
	if i < 0 {
		t.Fatalf("expected food category to be found after reorder")
	}
	if rows[i].label != "Category: Food" {
		t.Fatalf("expected food row, got %q", rows[i].label)
	}
	if i != 1 {
		t.Fatalf("expected food at row 1 after move up, got %d", i)
	}
}

func TestRowIndexForKey_AmbiguousKeyIsRejected(t *testing.T) {
	doc := model.New(map[string]any{
		"categories": []any{
			map[string]any{"name": "A", "slug": "dup"},
			map[string]any{"name": "B", "slug": "dup"},
		},
	})
	rows := flattenTree(doc, map[string]bool{})
	key := rows[1].key

	if i := rowIndexForKey(rows, key, doc.KeyCollisions()); i != -1 {
		t.Fatalf("expected ambiguous key to be rejected, got row %d", i)
	}
}

func TestRenderTreeRow_TruncatesLongLabels(t *testing.T) {
	oldProfile := lipgloss.ColorProfile()
	lipgloss.SetColorProfile(termenv.Ascii)
	t.Cleanup(func() { lipgloss.SetColorProfile(oldProfile) })

	row := treeRow{label: "Category: a very long category name that keeps going", depth: 1, hasChildren: true}
	got := renderTreeRow(row, false, 20)
	if w := xansi.StringWidth(got); w > 20 {
		t.Fatalf("expected rendered row to fit in 20 cells, got %d (%q)", w, got)
	}
}
