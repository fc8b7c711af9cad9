package model

import (
	"fmt"
	"strings"
)

// Key is a slug-derived path identifying a node across tree rebuilds. Each
// segment is the node's slug when non-empty, else a synthetic "#i" index
// marker. Editing a slug shifts the key; that is accepted behavior.
type Key []string

func (k Key) String() string { return strings.Join(k, "/") }

func (k Key) Equal(other Key) bool {
	if len(k) != len(other) {
		return false
	}
	for i := range k {
		if k[i] != other[i] {
			return false
		}
	}
	return true
}

func indexMarker(i int) string { return fmt.Sprintf("#%d", i) }

// Key derives the stable key for a reference against the current tree.
// Stale references fall back to a key built from bare index markers so the
// caller still gets a usable identity.
func (d *Document) Key(ref Ref) Key {
	switch ref.Kind {
	case KindCourse:
		return Key{"course"}
	case KindCategory:
		cat, err := d.category(ref.Cat)
		if err != nil {
			return Key{"category", indexMarker(ref.Cat)}
		}
		return Key{"category", slugOrIndex(cat, ref.Cat)}
	case KindLesson:
		cat, lesson, err := d.lesson(ref.Cat, ref.Lesson)
		if err != nil {
			return Key{"lesson", indexMarker(ref.Cat), indexMarker(ref.Lesson)}
		}
		return Key{"lesson", slugOrIndex(cat, ref.Cat), slugOrIndex(lesson, ref.Lesson)}
	case KindItem:
		cat, lesson, _, err := d.item(ref.Cat, ref.Lesson, ref.Item)
		if err != nil {
			return Key{"item", indexMarker(ref.Cat), indexMarker(ref.Lesson), indexMarker(ref.Item)}
		}
		return Key{"item", slugOrIndex(cat, ref.Cat), slugOrIndex(lesson, ref.Lesson), indexMarker(ref.Item)}
	}
	return Key{string(ref.Kind)}
}

// KeyCollisions returns the keys shared by more than one node: siblings given
// the same slug alias to a single identity. Collisions are reported, never
// silently resolved; callers decide how to disambiguate (the TUI falls back to
// positional selection).
func (d *Document) KeyCollisions() []Key {
	seen := map[string]int{}
	var order []Key
	record := func(k Key) {
		s := k.String()
		seen[s]++
		if seen[s] == 2 {
			order = append(order, k)
		}
	}
	for ci := range d.categories() {
		record(d.Key(CategoryRef(ci)))
		cat, _ := d.category(ci)
		for li := range lessonsOf(cat) {
			record(d.Key(LessonRef(ci, li)))
			// item keys end in index markers and cannot collide
		}
	}
	return order
}

// Label renders a one-line display label for the tree pane.
func (d *Document) Label(ref Ref) string {
	node, err := d.Get(ref)
	if err != nil {
		return string(ref.Kind)
	}
	switch ref.Kind {
	case KindCourse:
		title := stringField(node, "title")
		if title == "" {
			title = stringField(node, "name")
		}
		if title == "" {
			title = "(untitled)"
		}
		return "Course: " + title
	case KindCategory:
		if name := stringField(node, "name"); name != "" {
			return "Category: " + name
		}
		return "Category"
	case KindLesson:
		if name := stringField(node, "name"); name != "" {
			return "Lesson: " + name
		}
		return "Lesson"
	case KindItem:
		ja := strings.TrimSpace(stringField(node, "ja"))
		it := strings.TrimSpace(stringField(node, "it"))
		if ja != "" || it != "" {
			return strings.TrimSpace("Item: " + ja + " → " + it)
		}
		return "Item"
	}
	return string(ref.Kind)
}
