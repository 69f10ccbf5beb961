package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/savedl/internal/tasks"
)

var (
	_ tea.Msg = eventMsg{}
	_ tea.Msg = batchDoneMsg{}
	_ tea.Msg = eventsClosedMsg{}
)

// eventMsg carries one engine event into the update loop.
type eventMsg tasks.Event

// batchDoneMsg is sent once the batch returned.
type batchDoneMsg struct {
	result *tasks.BatchResult
	err    error
}

// eventsClosedMsg is sent when the sink has delivered its last event.
type eventsClosedMsg struct{}

// waitForEvent reads the next event from events.
func waitForEvent(events <-chan tasks.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg(e)
	}
}
