package tui

import (
	"nihonjindes-editor/internal/save"
	"nihonjindes-editor/internal/session"

	tea "github.com/charmbracelet/bubbletea"
)

// Run hosts the editor for an open session. Session change and save events
// arrive through Program.Send so all state mutation happens on the bubbletea
// event loop.
func Run(sess *session.Session) error {
	m := newAppModel(sess)
	p := tea.NewProgram(m, tea.WithAltScreen())
	sess.Subscribe(func(ev session.ChangeEvent) {
		p.Send(docChangedMsg{event: ev})
	})
	sess.OnSaveResult(func(r save.Result) {
		p.Send(saveResultMsg{result: r})
	})
	_, err := p.Run()
	return err
}
