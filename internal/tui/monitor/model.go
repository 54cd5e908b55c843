// Package monitor implements the "todosync monitor" dashboard: a
// bubbletea TUI that tails the conflict log and snapshot state so a
// user can watch sync cycles happen without digging through files.
package monitor

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/marcus/todosync/internal/clientstate"
	"github.com/marcus/todosync/internal/conflictlog"
)

// MinWidth is the minimum terminal width for the full layout.
const MinWidth = 40

// MinHeight is the minimum terminal height for the full layout.
const MinHeight = 12

// Model is the bubbletea model backing the monitor dashboard.
type Model struct {
	Store *clientstate.Store
	Log   *conflictlog.Log

	Width  int
	Height int

	Snapshot  *clientstate.Snapshot
	Conflicts []conflictlog.Entry

	ScrollOffset int
	ShowHelp     bool
	LastRefresh  time.Time
	Err          error

	RefreshInterval time.Duration
}

// NewModel builds a monitor model tailing store and log at the given
// refresh cadence.
func NewModel(store *clientstate.Store, log *conflictlog.Log, interval time.Duration) Model {
	return Model{
		Store:           store,
		Log:             log,
		RefreshInterval: interval,
	}
}

// TickMsg triggers a data refresh.
type TickMsg time.Time

// RefreshDataMsg carries refreshed snapshot and conflict log contents.
type RefreshDataMsg struct {
	Snapshot  *clientstate.Snapshot
	Conflicts []conflictlog.Entry
	Err       error
	Timestamp time.Time
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetchData(), m.scheduleTick())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil

	case TickMsg:
		return m, tea.Batch(m.fetchData(), m.scheduleTick())

	case RefreshDataMsg:
		m.Snapshot = msg.Snapshot
		m.Conflicts = msg.Conflicts
		m.Err = msg.Err
		m.LastRefresh = msg.Timestamp
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "j", "down":
		m.ScrollOffset++
		return m, nil

	case "k", "up":
		if m.ScrollOffset > 0 {
			m.ScrollOffset--
		}
		return m, nil

	case "r":
		return m, m.fetchData()

	case "?":
		m.ShowHelp = !m.ShowHelp
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	return m.renderView()
}

func (m Model) scheduleTick() tea.Cmd {
	return tea.Tick(m.RefreshInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m Model) fetchData() tea.Cmd {
	return func() tea.Msg {
		return FetchData(m.Store, m.Log)
	}
}
