package monitor

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (m Model) renderView() string {
	if m.Width == 0 || m.Height == 0 {
		return "Loading..."
	}
	if m.Width < MinWidth || m.Height < MinHeight {
		return m.renderCompact()
	}
	if m.Err != nil {
		return m.renderError()
	}
	if m.ShowHelp {
		return m.renderHelp()
	}

	header := m.renderHeader()
	conflicts := m.renderConflictsPanel(m.Height - lipgloss.Height(header) - 2)
	footer := m.renderFooter()

	return lipgloss.JoinVertical(lipgloss.Left, header, conflicts, footer)
}

func (m Model) renderCompact() string {
	var s strings.Builder
	s.WriteString("todosync monitor (resize for full view)\n\n")
	if m.Snapshot != nil {
		s.WriteString(fmt.Sprintf("Todos: %d  Mappings: %d\n", len(m.Snapshot.Todos), len(m.Snapshot.ServerIDToLocalID)))
	}
	s.WriteString(fmt.Sprintf("Conflicts: %d\n", len(m.Conflicts)))
	s.WriteString("\nq:quit r:refresh ?:help")
	return s.String()
}

func (m Model) renderError() string {
	return fmt.Sprintf("Error: %v\n\nPress r to retry, q to quit", m.Err)
}

func (m Model) renderHeader() string {
	var line string
	if m.Snapshot == nil {
		line = subtleStyle.Render("no snapshot loaded yet")
	} else {
		syncedAt := "never"
		if !m.Snapshot.LastSyncedAt.IsZero() {
			syncedAt = m.Snapshot.LastSyncedAt.Format("2006-01-02 15:04:05")
		}
		dirtyCount := len(m.Snapshot.Dirty.Upserted) + len(m.Snapshot.Dirty.Deleted)
		dirty := cleanStyle.Render("clean")
		if dirtyCount > 0 {
			dirty = dirtyStyle.Render(fmt.Sprintf("%d pending", dirtyCount))
		}
		line = fmt.Sprintf("last synced: %s  todos: %d  mappings: %d  %s",
			titleStyle.Render(syncedAt),
			len(m.Snapshot.Todos),
			len(m.Snapshot.ServerIDToLocalID),
			dirty)
	}

	return panelStyle.Width(m.Width - 2).Render(
		lipgloss.JoinVertical(lipgloss.Left, panelTitleStyle.Render("STATE"), line))
}

func (m Model) renderConflictsPanel(height int) string {
	var content strings.Builder

	if len(m.Conflicts) == 0 {
		content.WriteString(subtleStyle.Render("No conflicts recorded"))
	} else {
		maxLines := height - 3
		if maxLines < 1 {
			maxLines = 1
		}
		offset := m.ScrollOffset
		if offset > len(m.Conflicts)-1 {
			offset = len(m.Conflicts) - 1
		}
		if offset < 0 {
			offset = 0
		}
		end := offset + maxLines
		if end > len(m.Conflicts) {
			end = len(m.Conflicts)
		}
		for i := offset; i < end; i++ {
			entry := m.Conflicts[i]
			ref := entry.ServerID
			if ref == "" {
				ref = entry.LocalID
			}
			line := fmt.Sprintf("%s %s %s",
				timestampStyle.Render(entry.LoggedAt.Format("01-02 15:04:05")),
				formatKind(entry.Kind),
				subtleStyle.Render(ref))
			if entry.Reason != "" {
				line += "  " + entry.Reason
			}
			content.WriteString(line)
			content.WriteString("\n")
		}
	}

	titleStr := panelTitleStyle.Render(fmt.Sprintf("CONFLICTS (%d)", len(m.Conflicts)))
	inner := lipgloss.JoinVertical(lipgloss.Left, titleStr, content.String())
	return panelStyle.Width(m.Width - 2).Height(height).Render(inner)
}

func (m Model) renderFooter() string {
	keys := helpStyle.Render("q:quit  j/k:scroll  r:refresh  ?:help")
	refresh := timestampStyle.Render(fmt.Sprintf("Last: %s", m.LastRefresh.Format("15:04:05")))
	padding := m.Width - lipgloss.Width(keys) - lipgloss.Width(refresh) - 2
	if padding < 0 {
		padding = 0
	}
	return fmt.Sprintf(" %s%s%s", keys, strings.Repeat(" ", padding), refresh)
}

func (m Model) renderHelp() string {
	help := `
MONITOR TUI - Key Bindings

  j / k / up / down   Scroll the conflict list
  r                    Force refresh
  q / Ctrl+C           Quit

Press ? to close help
`
	return helpStyle.Render(help)
}
