package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyUsesSlugsWithIndexFallback(t *testing.T) {
	d := NewEmpty()
	d.AddCategory("Greetings", "greetings")
	_, err := d.AddLesson(0, "Basics", "basics")
	require.NoError(t, err)
	_, err = d.AddLesson(0, "No Slug", "")
	require.NoError(t, err)
	_, err = d.AddItem(0, 0, "こんにちは", "ciao", "")
	require.NoError(t, err)

	assert.Equal(t, Key{"course"}, d.Key(CourseRef()))
	assert.Equal(t, Key{"category", "greetings"}, d.Key(CategoryRef(0)))
	assert.Equal(t, Key{"lesson", "greetings", "basics"}, d.Key(LessonRef(0, 0)))
	assert.Equal(t, Key{"lesson", "greetings", "#1"}, d.Key(LessonRef(0, 1)))
	assert.Equal(t, Key{"item", "greetings", "basics", "#0"}, d.Key(ItemRef(0, 0, 0)))
}

func TestKeySurvivesSiblingReorder(t *testing.T) {
	d := NewEmpty()
	d.AddCategory("A", "a")
	d.AddCategory("B", "b")

	before := d.Key(CategoryRef(1))
	moved := d.Move(CategoryRef(1), -1)
	assert.Equal(t, before, d.Key(moved))
}

func TestKeyCollisionsAreFlagged(t *testing.T) {
	d := NewEmpty()
	d.AddCategory("One", "dup")
	d.AddCategory("Two", "dup")
	d.AddCategory("Three", "unique")

	collisions := d.KeyCollisions()
	require.Len(t, collisions, 1)
	assert.Equal(t, Key{"category", "dup"}, collisions[0])
}

func TestLabels(t *testing.T) {
	d := New(map[string]any{
		"course": map[string]any{"title": "Nihonjindes"},
	})
	d.AddCategory("Greetings", "greetings")
	_, err := d.AddLesson(0, "", "")
	require.NoError(t, err)
	_, err = d.AddItem(0, 0, "こんにちは", "ciao", "")
	require.NoError(t, err)

	assert.Equal(t, "Course: Nihonjindes", d.Label(CourseRef()))
	assert.Equal(t, "Category: Greetings", d.Label(CategoryRef(0)))
	assert.Equal(t, "Lesson", d.Label(LessonRef(0, 0)))
	assert.Equal(t, "Item: こんにちは → ciao", d.Label(ItemRef(0, 0, 0)))
	assert.Equal(t, "category", d.Label(CategoryRef(5)))
}
