package tui

import (
	"fmt"
	"strings"
	"time"

	"nihonjindes-editor/internal/model"
	"nihonjindes-editor/internal/save"
	"nihonjindes-editor/internal/session"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type pane int

const (
	paneTree pane = iota
	paneForm
)

type docChangedMsg struct{ event session.ChangeEvent }
type saveResultMsg struct{ result save.Result }
type rawRefreshMsg struct{ gen int }

type confirmKind int

const (
	confirmNone confirmKind = iota
	confirmDelete
	confirmQuit
)

type appModel struct {
	sess *session.Session

	width  int
	height int
	focus  pane

	rows   []treeRow
	cursor int
	open   map[string]bool

	form formState
	raw  rawState

	confirm       confirmKind
	confirmFocus  confirmModalFocus
	quitAfterSave bool

	lastSavedAt time.Time
	saveErr     string
}

func newAppModel(sess *session.Session) appModel {
	m := appModel{
		sess: sess,
		open: map[string]bool{},
	}
	m.rows = flattenTree(sess.Document(), m.open)
	m.form = buildForm(sess, m.selectedRef())
	return m
}

func (m appModel) Init() tea.Cmd {
	return m.raw.refreshCmd()
}

func (m appModel) selectedRef() model.Ref {
	if len(m.rows) == 0 {
		return model.CourseRef()
	}
	if m.cursor >= len(m.rows) {
		return m.rows[len(m.rows)-1].ref
	}
	return m.rows[m.cursor].ref
}

func (m appModel) selectedRow() treeRow {
	if len(m.rows) == 0 {
		return treeRow{ref: model.CourseRef()}
	}
	if m.cursor >= len(m.rows) {
		return m.rows[len(m.rows)-1]
	}
	return m.rows[m.cursor]
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeRaw()
		m.renderRaw()
		return m, nil

	case docChangedMsg:
		m.rebuildTree(m.selectedRow().key)
		m.refreshForm(msg.event.Structural)
		return m, m.raw.refreshCmd()

	case saveResultMsg:
		r := msg.result
		if r.Err != nil {
			m.saveErr = r.Err.Error()
			m.quitAfterSave = false
			return m, nil
		}
		m.saveErr = ""
		m.lastSavedAt = r.At
		if m.quitAfterSave && !m.sess.Dirty() {
			return m, tea.Quit
		}
		return m, nil

	case rawRefreshMsg:
		if msg.gen == m.raw.gen {
			m.renderRaw()
		}
		return m, nil

	case tea.KeyMsg:
		if m.confirm != confirmNone {
			return m.updateConfirm(msg)
		}
		switch m.focus {
		case paneForm:
			return m.updateForm(msg)
		default:
			return m.updateTree(msg)
		}
	}
	return m, nil
}

func (m appModel) updateTree(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m.requestQuit()
	case "tab", "enter":
		if msg.String() == "enter" && m.selectedRow().hasChildren {
			m.toggleOpen()
			return m, nil
		}
		m.focus = paneForm
		m.form.focusFirst()
		return m, nil
	case "up", "k":
		m.moveCursor(-1)
		return m, m.raw.refreshCmd()
	case "down", "j":
		m.moveCursor(1)
		return m, m.raw.refreshCmd()
	case "left", "h":
		m.collapseOrParent()
		return m, m.raw.refreshCmd()
	case "right", "l":
		m.expand()
		return m, nil
	case "a":
		m.addChild()
		return m, nil
	case "d", "delete":
		if m.selectedRow().ref.Kind != model.KindCourse {
			m.confirm = confirmDelete
			m.confirmFocus = confirmFocusCancel
		}
		return m, nil
	case "K", "ctrl+up":
		m.moveNode(-1)
		return m, nil
	case "J", "ctrl+down":
		m.moveNode(1)
		return m, nil
	case "ctrl+z", "u":
		if m.sess.Undo() {
			m.rebuildTree(m.selectedRow().key)
			m.refreshForm(true)
		}
		return m, m.raw.refreshCmd()
	case "ctrl+y", "ctrl+r":
		if m.sess.Redo() {
			m.rebuildTree(m.selectedRow().key)
			m.refreshForm(true)
		}
		return m, m.raw.refreshCmd()
	case "ctrl+s":
		m.sess.RequestSave()
		return m, nil
	case "v":
		m.raw.full = !m.raw.full
		return m, m.raw.refreshCmd()
	case "pgup", "ctrl+u":
		m.raw.vp.HalfViewUp()
		return m, nil
	case "pgdown", "ctrl+d":
		m.raw.vp.HalfViewDown()
		return m, nil
	}
	return m, nil
}

func (m appModel) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m.requestQuit()
	case "esc":
		m.focus = paneTree
		m.form.blur()
		return m, nil
	case "tab", "down":
		m.form.focusNext()
		return m, nil
	case "shift+tab", "up":
		m.form.focusPrev()
		return m, nil
	case "ctrl+z":
		if m.sess.Undo() {
			m.rebuildTree(m.selectedRow().key)
			m.refreshForm(true)
		}
		return m, m.raw.refreshCmd()
	case "ctrl+y":
		if m.sess.Redo() {
			m.rebuildTree(m.selectedRow().key)
			m.refreshForm(true)
		}
		return m, m.raw.refreshCmd()
	case "ctrl+s":
		m.sess.RequestSave()
		return m, nil
	}
	cmd := m.form.handleKey(m.sess, msg)
	return m, cmd
}

func (m appModel) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "left", "right":
		if m.confirmFocus == confirmFocusConfirm {
			m.confirmFocus = confirmFocusCancel
		} else {
			m.confirmFocus = confirmFocusConfirm
		}
		return m, nil
	case "esc", "ctrl+g", "n":
		m.confirm = confirmNone
		m.quitAfterSave = false
		return m, nil
	case "y":
		return m.confirmAccepted()
	case "enter":
		if m.confirmFocus == confirmFocusConfirm {
			return m.confirmAccepted()
		}
		m.confirm = confirmNone
		return m, nil
	}
	return m, nil
}

func (m appModel) confirmAccepted() (tea.Model, tea.Cmd) {
	kind := m.confirm
	m.confirm = confirmNone
	switch kind {
	case confirmDelete:
		succ := m.sess.Delete(m.selectedRow().ref)
		m.rebuildTree(nil)
		m.selectRef(succ)
		m.refreshForm(true)
		return m, m.raw.refreshCmd()
	case confirmQuit:
		if m.saveErr != "" {
			// A failed save already has the data at risk. Quitting here is
			// an explicit discard.
			return m, tea.Quit
		}
		m.quitAfterSave = true
		m.sess.RequestSave()
		return m, nil
	}
	return m, nil
}

func (m *appModel) requestQuit() (tea.Model, tea.Cmd) {
	if m.sess.Dirty() || m.saveErr != "" {
		m.confirm = confirmQuit
		m.confirmFocus = confirmFocusConfirm
		return *m, nil
	}
	return *m, tea.Quit
}

func (m *appModel) moveCursor(delta int) {
	next := m.cursor + delta
	if next < 0 || next >= len(m.rows) {
		return
	}
	m.cursor = next
	m.refreshForm(true)
}

func (m *appModel) toggleOpen() {
	row := m.selectedRow()
	if !row.hasChildren {
		return
	}
	m.open[row.key.String()] = !row.open
	m.rebuildTree(row.key)
}

func (m *appModel) expand() {
	row := m.selectedRow()
	if row.hasChildren && !row.open {
		m.open[row.key.String()] = true
		m.rebuildTree(row.key)
	}
}

func (m *appModel) collapseOrParent() {
	row := m.selectedRow()
	if row.hasChildren && row.open {
		m.open[row.key.String()] = false
		m.rebuildTree(row.key)
		return
	}
	// Jump to the parent row.
	for i := m.cursor - 1; i >= 0; i-- {
		if m.rows[i].depth < row.depth {
			m.cursor = i
			m.refreshForm(true)
			return
		}
	}
}

// addChild creates a new node under the selection: the course gets a
// category, a category gets a lesson, a lesson or item gets an item.
func (m *appModel) addChild() {
	row := m.selectedRow()
	var created model.Ref
	switch row.ref.Kind {
	case model.KindCourse:
		created = m.sess.AddCategory("New category", "")
	case model.KindCategory:
		ref, err := m.sess.AddLesson(row.ref.Cat, "New lesson", "")
		if err != nil {
			return
		}
		created = ref
	case model.KindLesson:
		ref, err := m.sess.AddItem(row.ref.Cat, row.ref.Lesson, "", "", "")
		if err != nil {
			return
		}
		created = ref
	case model.KindItem:
		ref, err := m.sess.AddItem(row.ref.Cat, row.ref.Lesson, "", "", "")
		if err != nil {
			return
		}
		created = ref
	}
	m.open[row.key.String()] = true
	m.rebuildTree(nil)
	m.selectRef(created)
	m.refreshForm(true)
}

func (m *appModel) moveNode(direction int) {
	row := m.selectedRow()
	if !m.sess.CanMove(row.ref, direction) {
		return
	}
	moved := m.sess.Move(row.ref, direction)
	m.rebuildTree(nil)
	m.selectRef(moved)
	m.refreshForm(true)
}

// rebuildTree re-flattens the document and restores the selection by stable
// key, falling back to a clamped position when the key is gone or ambiguous.
func (m *appModel) rebuildTree(preserve model.Key) {
	m.rows = flattenTree(m.sess.Document(), m.open)
	if preserve != nil {
		if i := rowIndexForKey(m.rows, preserve, m.sess.KeyCollisions()); i >= 0 {
			m.cursor = i
			return
		}
	}
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *appModel) selectRef(ref model.Ref) {
	if i := rowIndexForRef(m.rows, ref); i >= 0 {
		m.cursor = i
	}
}

// refreshForm rebuilds the form when the selection changed node, and only
// refreshes non-focused values otherwise so typing is not clobbered.
func (m *appModel) refreshForm(rebuild bool) {
	ref := m.selectedRef()
	if rebuild || m.form.ref != ref {
		focused := m.focus == paneForm
		m.form = buildForm(m.sess, ref)
		if focused {
			m.form.focusFirst()
		}
	}
}

func (m *appModel) resizeRaw() {
	m.raw.resize(m.rawPaneWidth()-4, m.rawPaneHeight()-2)
}

func (m *appModel) renderRaw() {
	m.raw.render(m.sess, m.selectedRef())
}

func (m appModel) treePaneWidth() int {
	w := m.width * 2 / 5
	if w < 30 {
		w = 30
	}
	return w
}

func (m appModel) rawPaneWidth() int  { return m.width - m.treePaneWidth() }
func (m appModel) rawPaneHeight() int { return (m.height - 4) / 2 }

func (m appModel) View() string {
	if m.width == 0 {
		return "loading…"
	}

	bodyH := m.height - 4
	if bodyH < 8 {
		bodyH = 8
	}

	tree := m.viewTree(m.treePaneWidth()-4, bodyH-2)
	treePane := stylePane(m.focus == paneTree).
		Width(m.treePaneWidth() - 2).
		Height(bodyH).
		Render(styleTitle().Render("Course tree") + "\n" + tree)

	formH := bodyH - m.rawPaneHeight() - 2
	formPane := stylePane(m.focus == paneForm).
		Width(m.rawPaneWidth() - 2).
		Height(formH).
		Render(styleTitle().Render(m.form.title) + "\n" + m.form.view(m.rawPaneWidth()-4))

	rawTitle := "JSON (selected)"
	if m.raw.full {
		rawTitle = "JSON (full course)"
	}
	rawPane := stylePane(false).
		Width(m.rawPaneWidth() - 2).
		Height(m.rawPaneHeight()).
		Render(styleTitle().Render(rawTitle) + "\n" + m.raw.vp.View())

	right := lipgloss.JoinVertical(lipgloss.Left, formPane, rawPane)
	body := lipgloss.JoinHorizontal(lipgloss.Top, treePane, right)

	out := strings.Join([]string{m.viewHeader(), body, m.viewStatus()}, "\n")
	if m.confirm != confirmNone {
		return m.viewConfirm()
	}
	return out
}

func (m appModel) viewTree(width, height int) string {
	if len(m.rows) == 0 {
		return styleMuted().Render("empty course")
	}
	top := 0
	if m.cursor >= height {
		top = m.cursor - height + 1
	}
	var b strings.Builder
	for i := top; i < len(m.rows) && i < top+height; i++ {
		b.WriteString(renderTreeRow(m.rows[i], i == m.cursor, width))
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m appModel) viewHeader() string {
	dirty := ""
	if m.sess.Dirty() {
		dirty = " *"
	}
	return styleTitle().Render("Nihonjindes editor") +
		styleMuted().Render("  "+m.sess.Path()+dirty)
}

func (m appModel) viewStatus() string {
	var state string
	switch {
	case m.saveErr != "":
		state = styleError().Render("Autosave failed: " + m.saveErr + "  (ctrl+s to retry)")
	case m.sess.Saving():
		state = styleMuted().Render("Saving…")
	case !m.lastSavedAt.IsZero():
		state = styleMuted().Render("Saved " + m.lastSavedAt.Format("15:04:05"))
	default:
		state = styleMuted().Render("Ready")
	}
	help := styleMuted().Render(
		"a: add  d: delete  K/J: move  ctrl+z/y: undo/redo  ctrl+s: save  v: raw mode  tab: edit  q: quit")
	return state + "\n" + help
}

func (m appModel) viewConfirm() string {
	var modal string
	switch m.confirm {
	case confirmDelete:
		body := fmt.Sprintf("Delete %s?", m.sess.Label(m.selectedRow().ref))
		modal = renderConfirmModal(m.width, "Delete node", body, "Delete", "Cancel", m.confirmFocus)
	case confirmQuit:
		body := "There are unsaved changes."
		confirmLabel := "Save and quit"
		if m.saveErr != "" {
			body = "The last save failed. Quitting discards unsaved changes."
			confirmLabel = "Quit anyway"
		}
		modal = renderConfirmModal(m.width, "Quit", body, confirmLabel, "Stay", m.confirmFocus)
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal)
}
