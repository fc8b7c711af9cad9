package tui

import (
	"strings"

	"nihonjindes-editor/internal/model"

	xansi "github.com/charmbracelet/x/ansi"
)

// treeRow is one visible line of the tree pane.
type treeRow struct {
	ref         model.Ref
	key         model.Key
	depth       int
	hasChildren bool
	open        bool
	label       string
}

// openStateFor decides whether a node is expanded: categories and the course
// default open, lessons default collapsed (the original editor's behavior).
func openStateFor(state map[string]bool, key model.Key, kind model.Kind) bool {
	if v, ok := state[key.String()]; ok {
		return v
	}
	return kind != model.KindLesson
}

// flattenTree walks the document into the visible row list, honoring
// open/closed state keyed by stable keys so expansion survives rebuilds.
func flattenTree(doc *model.Document, state map[string]bool) []treeRow {
	var rows []treeRow

	courseRef := model.CourseRef()
	courseKey := doc.Key(courseRef)
	courseOpen := openStateFor(state, courseKey, model.KindCourse)
	rows = append(rows, treeRow{
		ref: courseRef, key: courseKey, depth: 0,
		hasChildren: doc.NumCategories() > 0,
		open:        courseOpen,
		label:       doc.Label(courseRef),
	})
	if !courseOpen {
		return rows
	}

	for ci := 0; ci < doc.NumCategories(); ci++ {
		catRef := model.CategoryRef(ci)
		catKey := doc.Key(catRef)
		catOpen := openStateFor(state, catKey, model.KindCategory)
		rows = append(rows, treeRow{
			ref: catRef, key: catKey, depth: 1,
			hasChildren: doc.NumLessons(ci) > 0,
			open:        catOpen,
			label:       doc.Label(catRef),
		})
		if !catOpen {
			continue
		}
		for li := 0; li < doc.NumLessons(ci); li++ {
			lessonRef := model.LessonRef(ci, li)
			lessonKey := doc.Key(lessonRef)
			lessonOpen := openStateFor(state, lessonKey, model.KindLesson)
			rows = append(rows, treeRow{
				ref: lessonRef, key: lessonKey, depth: 2,
				hasChildren: doc.NumItems(ci, li) > 0,
				open:        lessonOpen,
				label:       doc.Label(lessonRef),
			})
			if !lessonOpen {
				continue
			}
			for ii := 0; ii < doc.NumItems(ci, li); ii++ {
				itemRef := model.ItemRef(ci, li, ii)
				rows = append(rows, treeRow{
					ref: itemRef, key: doc.Key(itemRef), depth: 3,
					label: doc.Label(itemRef),
				})
			}
		}
	}
	return rows
}

// rowIndexForKey locates the row carrying key, -1 when the node is gone (or
// ambiguous under a key collision, in which case the caller falls back to a
// positional pick).
func rowIndexForKey(rows []treeRow, key model.Key, collisions []model.Key) int {
	for _, c := range collisions {
		if c.Equal(key) {
			return -1
		}
	}
	for i, r := range rows {
		if r.key.Equal(key) {
			return i
		}
	}
	return -1
}

// rowIndexForRef locates the row for a positional reference.
func rowIndexForRef(rows []treeRow, ref model.Ref) int {
	for i, r := range rows {
		if r.ref == ref {
			return i
		}
	}
	return -1
}

func renderTreeRow(r treeRow, selected bool, width int) string {
	marker := "  "
	if r.hasChildren {
		if r.open {
			marker = "▾ "
		} else {
			marker = "▸ "
		}
	}
	line := strings.Repeat("  ", r.depth) + marker + r.label
	line = truncateLine(line, width)
	if selected {
		return styleSelected().Render(line)
	}
	return styleSurface().Render(line)
}

func truncateLine(s string, w int) string {
	if w <= 1 {
		return ""
	}
	if xansi.StringWidth(s) <= w {
		return s
	}
	return xansi.Cut(s, 0, w-1) + "…"
}
