package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/savedl/internal/models"
	"github.com/desertthunder/savedl/internal/tasks"
)

// maxLogLines bounds the scrollback kept in the log viewport.
const maxLogLines = 1000

// ViewState represents the current view in the TUI.
type ViewState int

const (
	RunView ViewState = iota
	ResultView
)

// Controller starts and cancels a batch. [tasks.Session] satisfies it.
type Controller interface {
	Run(ctx context.Context, b tasks.Batch, sink tasks.Sink) (*tasks.BatchResult, error)
	RequestCancel()
	Running() bool
}

// Model is the batch monitor: a progress bar, the running log and, once finished, the failed items.
type Model struct {
	ctx        context.Context
	controller Controller
	batch      tasks.Batch
	sink       *tasks.ChannelSink
	view       ViewState
	width      int
	height     int
	bar        progress.Model
	spinner    spinner.Model
	log        viewport.Model
	failures   list.Model
	help       help.Model
	keys       keyMap
	lines      []string
	state      models.Progress
	finished   *tasks.Event
	cancelling bool
	quitting   bool
	done       bool
	drained    bool
	result     *tasks.BatchResult
	err        error
}

// NewModel creates a monitor that will run b through controller when the program starts.
func NewModel(ctx context.Context, controller Controller, b tasks.Batch) *Model {
	return &Model{
		ctx:        ctx,
		controller: controller,
		batch:      b,
		sink:       tasks.NewChannelSink(),
		view:       RunView,
		bar:        progress.New(progress.WithDefaultGradient()),
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.title.UnsetMarginBottom())),
		log:        viewport.New(80, 10),
		help:       help.New(),
		keys:       newKeyMap(),
		state:      models.Progress{Total: len(b.Items)},
	}
}

// Result returns the batch result once the program exited.
func (m *Model) Result() (*tasks.BatchResult, error) {
	return m.result, m.err
}

// Init starts the batch, the event reader and the spinner.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.runBatch(), waitForEvent(m.sink.Events()), m.spinner.Tick)
}

func (m *Model) runBatch() tea.Cmd {
	return func() tea.Msg {
		result, err := m.controller.Run(m.ctx, m.batch, m.sink)
		m.sink.Close()
		return batchDoneMsg{result: result, err: err}
	}
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case eventMsg:
		cmd := m.handleEvent(tasks.Event(msg))
		return m, tea.Batch(cmd, waitForEvent(m.sink.Events()))

	case eventsClosedMsg:
		m.drained = true
		return m, m.maybeFinish()

	case batchDoneMsg:
		m.done = true
		m.result, m.err = msg.result, msg.err
		return m, m.maybeFinish()

	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model)
		return m, cmd

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.bar.Width = max(width-4, 10)
	m.log.Width = max(width-4, 10)
	m.log.Height = max(height-10, 3)
	if m.view == ResultView {
		m.failures.SetSize(max(width-4, 10), max(height-8, 3))
	}
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.view == ResultView && m.failures.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.failures, cmd = m.failures.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		if m.view == ResultView {
			return m, tea.Quit
		}
		m.quitting = true
		m.requestCancel()
		return m, nil
	case key.Matches(msg, m.keys.cancel):
		if m.view == RunView {
			m.requestCancel()
		}
		return m, nil
	case key.Matches(msg, m.keys.follow) && m.view == RunView:
		m.log.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	switch m.view {
	case RunView:
		m.log, cmd = m.log.Update(msg)
	case ResultView:
		m.failures, cmd = m.failures.Update(msg)
	}
	return m, cmd
}

func (m *Model) requestCancel() {
	if m.cancelling || m.done {
		return
	}
	m.cancelling = true
	m.controller.RequestCancel()
}

func (m *Model) handleEvent(e tasks.Event) tea.Cmd {
	switch e.Kind {
	case tasks.LogEvent:
		m.appendLine(e.Level, e.Message)
		return nil
	case tasks.ProgressEvent:
		m.state = e.Progress
		return m.bar.SetPercent(e.Progress.Fraction())
	case tasks.FinishedEvent:
		m.state = e.Progress
		m.finished = &e
		m.appendLine(e.Level, e.Message)
		return m.bar.SetPercent(e.Progress.Fraction())
	}
	return nil
}

func (m *Model) appendLine(level tasks.Level, message string) {
	atBottom := m.log.AtBottom()
	line := styles.Level(level).Render(level.Symbol() + " " + message)
	m.lines = append(m.lines, line)
	if len(m.lines) > maxLogLines {
		m.lines = m.lines[len(m.lines)-maxLogLines:]
	}
	m.log.SetContent(strings.Join(m.lines, "\n"))
	if atBottom {
		m.log.GotoBottom()
	}
}

// maybeFinish switches to the result view once the batch returned and every event was shown.
func (m *Model) maybeFinish() tea.Cmd {
	if !m.done || !m.drained {
		return nil
	}
	if m.quitting {
		return tea.Quit
	}

	var outcomes []models.Outcome
	if m.result != nil {
		outcomes = m.result.Outcomes
	}
	m.failures = failureList(outcomes, max(m.width-4, 10), max(m.height-8, 3))
	m.view = ResultView
	return nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case ResultView:
		return m.renderResult()
	default:
		return m.renderRun()
	}
}

func (m *Model) renderRun() string {
	var b strings.Builder

	status := fmt.Sprintf("%s Downloading %d songs", m.spinner.View(), m.state.Total)
	if m.cancelling {
		status = styles.warn.Render("Cancelling, waiting for running downloads to stop...")
	}
	b.WriteString(styles.title.Render(status))
	b.WriteString("\n")
	b.WriteString(m.bar.View())
	b.WriteString("\n")
	b.WriteString(styles.help.Render(tasks.ProgressLine(m.state)))
	b.WriteString("\n\n")
	b.WriteString(styles.frame.Render(m.log.View()))
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.cancel, m.keys.follow, m.keys.quit}))
	return b.String()
}

func (m *Model) renderResult() string {
	var b strings.Builder

	switch {
	case m.err != nil:
		b.WriteString(styles.err.Render(fmt.Sprintf("✗ Batch failed: %v", m.err)))
	case m.finished != nil:
		b.WriteString(styles.Level(m.finished.Level).Render(m.finished.Level.Symbol() + " " + m.finished.Message))
	default:
		b.WriteString(styles.warn.Render("No result available"))
	}
	b.WriteString("\n")
	b.WriteString(styles.help.Render(tasks.ProgressLine(m.state)))
	b.WriteString("\n\n")

	if len(m.failures.Items()) > 0 {
		b.WriteString(m.failures.View())
		b.WriteString("\n")
	}

	b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.up, m.keys.down, m.keys.quit}))
	return b.String()
}
