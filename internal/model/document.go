// Package model holds the in-memory course document: a free-form attribute-bag
// tree (course → categories → lessons → items) plus positional references and
// slug-derived stable keys over it.
//
// The document is tolerant by construction: Normalize repairs any malformed
// shape instead of rejecting it, so legacy files and historical snapshots load
// without error.
package model

import (
	"strings"

	deep "github.com/brunoga/deep/v5"
)

// DefaultItemImage is stored for items whose image is blank.
const DefaultItemImage = "data/course-img/transparent.png"

// Document is the full course tree. The zero value is not usable; construct
// with New or NewEmpty.
type Document struct {
	data map[string]any
}

// New wraps parsed JSON data in a Document and normalizes it. A nil or
// non-object input becomes an empty course.
func New(data map[string]any) *Document {
	d := &Document{data: data}
	d.Normalize()
	return d
}

// NewEmpty returns a normalized empty course.
func NewEmpty() *Document {
	return New(map[string]any{})
}

// Data exposes the underlying tree for serialization. Callers must not mutate
// it; use the mutation methods so normalization and versioning stay correct.
func (d *Document) Data() map[string]any {
	return d.data
}

// Clone returns a deep, self-contained copy of the document. Snapshots handed
// to history and to the save worker are clones, never the live tree.
func (d *Document) Clone() *Document {
	return &Document{data: deep.Clone(d.data)}
}

// Normalize repairs the structural invariants in place:
// course is an object, categories/lessons/items are arrays of objects,
// categories and lessons carry name+slug, items carry ja/it/image with the
// image defaulting to DefaultItemImage. Idempotent; safe to re-run after any
// mutation or restore.
func (d *Document) Normalize() {
	if d.data == nil {
		d.data = map[string]any{}
	}

	if _, ok := d.data["course"].(map[string]any); !ok {
		d.data["course"] = map[string]any{}
	}

	cats, ok := d.data["categories"].([]any)
	if !ok {
		cats = []any{}
	}
	for ci := range cats {
		cat, ok := cats[ci].(map[string]any)
		if !ok {
			cat = map[string]any{}
			cats[ci] = cat
		}
		setDefault(cat, "name", "")
		setDefault(cat, "slug", "")

		lessons, ok := cat["lessons"].([]any)
		if !ok {
			lessons = []any{}
		}
		for li := range lessons {
			lesson, ok := lessons[li].(map[string]any)
			if !ok {
				lesson = map[string]any{}
				lessons[li] = lesson
			}
			setDefault(lesson, "name", "")
			setDefault(lesson, "slug", "")
			// notes is optional

			items, ok := lesson["items"].([]any)
			if !ok {
				items = []any{}
			}
			for ii := range items {
				item, ok := items[ii].(map[string]any)
				if !ok {
					item = map[string]any{}
					items[ii] = item
				}
				setDefault(item, "ja", "")
				setDefault(item, "it", "")
				setDefault(item, "image", DefaultItemImage)
			}
			lesson["items"] = items
		}
		cat["lessons"] = lessons
	}
	d.data["categories"] = cats
}

func setDefault(m map[string]any, key string, def any) {
	if _, ok := m[key]; !ok {
		m[key] = def
	}
}

// NumCategories reports the category count.
func (d *Document) NumCategories() int {
	return len(d.categories())
}

// NumLessons reports the lesson count of a category, 0 for stale indices.
func (d *Document) NumLessons(cat int) int {
	c, err := d.category(cat)
	if err != nil {
		return 0
	}
	return len(lessonsOf(c))
}

// NumItems reports the item count of a lesson, 0 for stale indices.
func (d *Document) NumItems(cat, lesson int) int {
	_, l, err := d.lesson(cat, lesson)
	if err != nil {
		return 0
	}
	return len(itemsOf(l))
}

// course returns the course attribute bag. Only valid after Normalize.
func (d *Document) course() map[string]any {
	c, _ := d.data["course"].(map[string]any)
	return c
}

// categories returns the categories array. Only valid after Normalize.
func (d *Document) categories() []any {
	cats, _ := d.data["categories"].([]any)
	return cats
}

func lessonsOf(cat map[string]any) []any {
	lessons, _ := cat["lessons"].([]any)
	return lessons
}

func itemsOf(lesson map[string]any) []any {
	items, _ := lesson["items"].([]any)
	return items
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func slugOrIndex(m map[string]any, idx int) string {
	s := strings.TrimSpace(stringField(m, "slug"))
	if s == "" {
		return indexMarker(idx)
	}
	return s
}
