package tui

import (
	"fmt"

	"nihonjindes-editor/internal/model"
	"nihonjindes-editor/internal/session"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type formField struct {
	attr  string
	label string
	input textinput.Model
}

// formState edits the attributes of one node. Every keystroke writes straight
// through to the session, so the tree and the raw pane follow live.
type formState struct {
	ref    model.Ref
	title  string
	fields []formField
	focus  int
}

func fieldSpecs(kind model.Kind) [][2]string {
	switch kind {
	case model.KindCourse:
		return [][2]string{{"title", "Title"}, {"slug", "Slug"}, {"description", "Description"}}
	case model.KindCategory:
		return [][2]string{{"name", "Name"}, {"slug", "Slug"}}
	case model.KindLesson:
		return [][2]string{{"name", "Name"}, {"slug", "Slug"}, {"notes", "Notes"}}
	case model.KindItem:
		return [][2]string{{"ja", "Japanese"}, {"it", "Italian"}, {"image", "Image"}}
	}
	return nil
}

func buildForm(sess *session.Session, ref model.Ref) formState {
	f := formState{ref: ref, title: sess.Label(ref)}
	node, err := sess.Get(ref)
	if err != nil {
		f.title = "(node removed)"
		return f
	}
	for _, spec := range fieldSpecs(ref.Kind) {
		ti := textinput.New()
		ti.Prompt = ""
		ti.CharLimit = 512
		ti.Width = 48
		value, _ := node[spec[0]].(string)
		ti.SetValue(value)
		f.fields = append(f.fields, formField{attr: spec[0], label: spec[1], input: ti})
	}
	return f
}

func (f *formState) focusFirst() {
	f.focus = 0
	f.syncFocus()
}

func (f *formState) focusNext() {
	if len(f.fields) == 0 {
		return
	}
	f.focus = (f.focus + 1) % len(f.fields)
	f.syncFocus()
}

func (f *formState) focusPrev() {
	if len(f.fields) == 0 {
		return
	}
	f.focus = (f.focus + len(f.fields) - 1) % len(f.fields)
	f.syncFocus()
}

func (f *formState) blur() {
	for i := range f.fields {
		f.fields[i].input.Blur()
	}
}

func (f *formState) syncFocus() {
	for i := range f.fields {
		if i == f.focus {
			f.fields[i].input.Focus()
		} else {
			f.fields[i].input.Blur()
		}
	}
}

// handleKey forwards a keystroke to the focused input and writes the edited
// value back into the document.
func (f *formState) handleKey(sess *session.Session, msg tea.KeyMsg) tea.Cmd {
	if len(f.fields) == 0 || f.focus >= len(f.fields) {
		return nil
	}
	field := &f.fields[f.focus]
	before := field.input.Value()
	var cmd tea.Cmd
	field.input, cmd = field.input.Update(msg)
	if after := field.input.Value(); after != before {
		_ = sess.SetField(f.ref, field.attr, after)
		f.title = sess.Label(f.ref)
	}
	return cmd
}

func (f formState) view(width int) string {
	if len(f.fields) == 0 {
		return styleMuted().Render("nothing to edit")
	}
	out := ""
	for i, field := range f.fields {
		label := styleMuted().Render(fmt.Sprintf("%-12s", field.label))
		if i == f.focus && field.input.Focused() {
			label = styleTitle().Render(fmt.Sprintf("%-12s", field.label))
		}
		out += truncateLine(label+field.input.View(), width) + "\n"
	}
	return out
}
