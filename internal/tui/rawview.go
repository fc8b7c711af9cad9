package tui

import (
	"time"

	"nihonjindes-editor/internal/model"
	"nihonjindes-editor/internal/session"
	"nihonjindes-editor/internal/store"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

const rawRefreshDelay = 150 * time.Millisecond

// rawState is the read-only JSON pane: either the selected node or the whole
// course, re-rendered at most once per burst of document changes.
type rawState struct {
	vp   viewport.Model
	full bool
	gen  int
}

// refreshCmd schedules a debounced re-render. Every call bumps the generation
// counter and stale ticks are dropped, so a burst of keystrokes renders once.
func (r *rawState) refreshCmd() tea.Cmd {
	r.gen++
	gen := r.gen
	return tea.Tick(rawRefreshDelay, func(time.Time) tea.Msg {
		return rawRefreshMsg{gen: gen}
	})
}

func (r *rawState) resize(width, height int) {
	if width < 10 {
		width = 10
	}
	if height < 3 {
		height = 3
	}
	if r.vp.Width == 0 {
		r.vp = viewport.New(width, height)
		return
	}
	r.vp.Width = width
	r.vp.Height = height
}

func (r *rawState) render(sess *session.Session, ref model.Ref) {
	var encoded []byte
	var err error
	if r.full {
		encoded, err = store.Encode(sess.Document())
	} else {
		node, gerr := sess.Get(ref)
		if gerr != nil {
			r.vp.SetContent(styleMuted().Render("(node removed)"))
			return
		}
		encoded, err = store.EncodeNode(node)
	}
	if err != nil {
		r.vp.SetContent(styleError().Render(err.Error()))
		return
	}

	// Keep the scroll position across re-renders, clamped to the new content.
	offset := r.vp.YOffset
	r.vp.SetContent(renderJSONBlock(string(encoded), r.vp.Width))
	if offset > 0 {
		r.vp.SetYOffset(offset)
	}
}
