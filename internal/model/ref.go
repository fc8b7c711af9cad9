package model

import (
	"errors"
	"fmt"
)

// ErrOutOfRange marks a reference whose indices no longer exist in the tree,
// typically because a sibling was deleted underneath it. Callers treat this as
// "node no longer exists", not as a fatal condition.
var ErrOutOfRange = errors.New("node reference out of range")

// Kind identifies which level of the tree a reference points at.
type Kind string

const (
	KindCourse   Kind = "course"
	KindCategory Kind = "category"
	KindLesson   Kind = "lesson"
	KindItem     Kind = "item"
)

// Ref is a positional coordinate into the tree. It is a pure coordinate, not
// an ownership handle: a structural edit below it invalidates the indices and
// the caller must recompute or clamp.
//
// Unused indices are -1.
type Ref struct {
	Kind   Kind
	Cat    int
	Lesson int
	Item   int
}

func CourseRef() Ref          { return Ref{Kind: KindCourse, Cat: -1, Lesson: -1, Item: -1} }
func CategoryRef(cat int) Ref { return Ref{Kind: KindCategory, Cat: cat, Lesson: -1, Item: -1} }

func LessonRef(cat, lesson int) Ref {
	return Ref{Kind: KindLesson, Cat: cat, Lesson: lesson, Item: -1}
}
func ItemRef(cat, lesson, item int) Ref {
	return Ref{Kind: KindItem, Cat: cat, Lesson: lesson, Item: item}
}

func (r Ref) String() string {
	switch r.Kind {
	case KindCourse:
		return "course"
	case KindCategory:
		return fmt.Sprintf("category[%d]", r.Cat)
	case KindLesson:
		return fmt.Sprintf("lesson[%d.%d]", r.Cat, r.Lesson)
	case KindItem:
		return fmt.Sprintf("item[%d.%d.%d]", r.Cat, r.Lesson, r.Item)
	}
	return string(r.Kind)
}

// Get resolves a reference to its attribute bag, or ErrOutOfRange when any
// index is stale.
func (d *Document) Get(ref Ref) (map[string]any, error) {
	switch ref.Kind {
	case KindCourse:
		return d.course(), nil
	case KindCategory:
		cat, err := d.category(ref.Cat)
		return cat, err
	case KindLesson:
		_, lesson, err := d.lesson(ref.Cat, ref.Lesson)
		return lesson, err
	case KindItem:
		_, _, item, err := d.item(ref.Cat, ref.Lesson, ref.Item)
		return item, err
	}
	return nil, fmt.Errorf("unknown node kind %q", ref.Kind)
}

func (d *Document) category(ci int) (map[string]any, error) {
	cats := d.categories()
	if ci < 0 || ci >= len(cats) {
		return nil, fmt.Errorf("category %d: %w", ci, ErrOutOfRange)
	}
	cat, _ := cats[ci].(map[string]any)
	return cat, nil
}

func (d *Document) lesson(ci, li int) (map[string]any, map[string]any, error) {
	cat, err := d.category(ci)
	if err != nil {
		return nil, nil, err
	}
	lessons := lessonsOf(cat)
	if li < 0 || li >= len(lessons) {
		return nil, nil, fmt.Errorf("lesson %d.%d: %w", ci, li, ErrOutOfRange)
	}
	lesson, _ := lessons[li].(map[string]any)
	return cat, lesson, nil
}

func (d *Document) item(ci, li, ii int) (map[string]any, map[string]any, map[string]any, error) {
	cat, lesson, err := d.lesson(ci, li)
	if err != nil {
		return nil, nil, nil, err
	}
	items := itemsOf(lesson)
	if ii < 0 || ii >= len(items) {
		return nil, nil, nil, fmt.Errorf("item %d.%d.%d: %w", ci, li, ii, ErrOutOfRange)
	}
	item, _ := items[ii].(map[string]any)
	return cat, lesson, item, nil
}
