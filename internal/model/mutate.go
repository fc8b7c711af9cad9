package model

import (
	"errors"
	"fmt"
	"strings"
)

// AddCategory appends a default-initialized category and returns its reference.
func (d *Document) AddCategory(name, slug string) Ref {
	cats := d.categories()
	cats = append(cats, map[string]any{
		"name":    name,
		"slug":    slug,
		"lessons": []any{},
	})
	d.data["categories"] = cats
	return CategoryRef(len(cats) - 1)
}

// AddLesson appends a default-initialized lesson to the given category.
func (d *Document) AddLesson(cat int, name, slug string) (Ref, error) {
	c, err := d.category(cat)
	if err != nil {
		return Ref{}, err
	}
	lessons := lessonsOf(c)
	lessons = append(lessons, map[string]any{
		"name":  name,
		"slug":  slug,
		"items": []any{},
	})
	c["lessons"] = lessons
	return LessonRef(cat, len(lessons)-1), nil
}

// AddItem appends an item to the given lesson. A blank or whitespace image
// becomes DefaultItemImage.
func (d *Document) AddItem(cat, lesson int, ja, it, image string) (Ref, error) {
	_, l, err := d.lesson(cat, lesson)
	if err != nil {
		return Ref{}, err
	}
	img := strings.TrimSpace(image)
	if img == "" {
		img = DefaultItemImage
	}
	items := itemsOf(l)
	items = append(items, map[string]any{
		"ja":    ja,
		"it":    it,
		"image": img,
	})
	l["items"] = items
	return ItemRef(cat, lesson, len(items)-1), nil
}

// Delete removes the node and returns a successor reference: the sibling that
// slid into the deleted position, or the parent when the node was the last
// child. The successor can be coordinate-equal to the input (deleting a
// non-last sibling), so failure is reported through the error, never inferred
// from the returned reference. Stale references wrap ErrOutOfRange; deleting
// the course root is refused.
func (d *Document) Delete(ref Ref) (Ref, error) {
	switch ref.Kind {
	case KindCategory:
		cats := d.categories()
		if ref.Cat < 0 || ref.Cat >= len(cats) {
			return ref, fmt.Errorf("category %d: %w", ref.Cat, ErrOutOfRange)
		}
		cats = append(cats[:ref.Cat], cats[ref.Cat+1:]...)
		d.data["categories"] = cats
		if len(cats) > 0 {
			return CategoryRef(min(ref.Cat, len(cats)-1)), nil
		}
		return CourseRef(), nil
	case KindLesson:
		cat, _, err := d.lesson(ref.Cat, ref.Lesson)
		if err != nil {
			return ref, err
		}
		lessons := lessonsOf(cat)
		lessons = append(lessons[:ref.Lesson], lessons[ref.Lesson+1:]...)
		cat["lessons"] = lessons
		if len(lessons) > 0 {
			return LessonRef(ref.Cat, min(ref.Lesson, len(lessons)-1)), nil
		}
		return CategoryRef(ref.Cat), nil
	case KindItem:
		_, lesson, _, err := d.item(ref.Cat, ref.Lesson, ref.Item)
		if err != nil {
			return ref, err
		}
		items := itemsOf(lesson)
		items = append(items[:ref.Item], items[ref.Item+1:]...)
		lesson["items"] = items
		if len(items) > 0 {
			return ItemRef(ref.Cat, ref.Lesson, min(ref.Item, len(items)-1)), nil
		}
		return LessonRef(ref.Cat, ref.Lesson), nil
	}
	return ref, errors.New("cannot delete the course root")
}

// Move swaps the node with its immediate sibling in the given direction
// (-1 up, +1 down). A boundary move is a silent no-op returning the input
// reference: the UI probes moves routinely to decide whether to offer them.
func (d *Document) Move(ref Ref, direction int) Ref {
	switch ref.Kind {
	case KindCategory:
		arr := d.categories()
		j := ref.Cat + direction
		if ref.Cat >= 0 && ref.Cat < len(arr) && j >= 0 && j < len(arr) {
			arr[ref.Cat], arr[j] = arr[j], arr[ref.Cat]
			return CategoryRef(j)
		}
	case KindLesson:
		cat, _, err := d.lesson(ref.Cat, ref.Lesson)
		if err != nil {
			return ref
		}
		arr := lessonsOf(cat)
		j := ref.Lesson + direction
		if j >= 0 && j < len(arr) {
			arr[ref.Lesson], arr[j] = arr[j], arr[ref.Lesson]
			return LessonRef(ref.Cat, j)
		}
	case KindItem:
		_, lesson, _, err := d.item(ref.Cat, ref.Lesson, ref.Item)
		if err != nil {
			return ref
		}
		arr := itemsOf(lesson)
		j := ref.Item + direction
		if j >= 0 && j < len(arr) {
			arr[ref.Item], arr[j] = arr[j], arr[ref.Item]
			return ItemRef(ref.Cat, ref.Lesson, j)
		}
	}
	return ref
}

// CanMove reports whether Move(ref, direction) would change the tree.
func (d *Document) CanMove(ref Ref, direction int) bool {
	var length, i int
	switch ref.Kind {
	case KindCategory:
		length, i = len(d.categories()), ref.Cat
	case KindLesson:
		cat, err := d.category(ref.Cat)
		if err != nil {
			return false
		}
		length, i = len(lessonsOf(cat)), ref.Lesson
	case KindItem:
		_, lesson, err := d.lesson(ref.Cat, ref.Lesson)
		if err != nil {
			return false
		}
		length, i = len(itemsOf(lesson)), ref.Item
	default:
		return false
	}
	j := i + direction
	return i >= 0 && i < length && j >= 0 && j < length
}
