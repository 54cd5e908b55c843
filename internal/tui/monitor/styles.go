package monitor

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/marcus/todosync/internal/conflictlog"
)

var (
	primaryColor = lipgloss.Color("212")
	mutedColor   = lipgloss.Color("241")
	warningColor = lipgloss.Color("214")
	errorColor   = lipgloss.Color("196")
	successColor = lipgloss.Color("42")

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	panelTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Background(lipgloss.Color("237")).
			Foreground(lipgloss.Color("255")).
			Padding(0, 1)

	titleStyle     = lipgloss.NewStyle().Bold(true)
	subtleStyle    = lipgloss.NewStyle().Foreground(mutedColor)
	helpStyle      = lipgloss.NewStyle().Foreground(mutedColor)
	timestampStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	statusErrStyle = lipgloss.NewStyle().Foreground(errorColor)
	dirtyStyle     = lipgloss.NewStyle().Foreground(warningColor)
	cleanStyle     = lipgloss.NewStyle().Foreground(successColor)

	conflictKindStyles = map[conflictlog.Kind]lipgloss.Style{
		conflictlog.KindRemoteEditNewer:    lipgloss.NewStyle().Foreground(mutedColor),
		conflictlog.KindRemoteDeleteNewer:  lipgloss.NewStyle().Foreground(mutedColor),
		conflictlog.KindDeleteVsLocalEdit:  lipgloss.NewStyle().Foreground(warningColor),
		conflictlog.KindDeleteAcknowledged: lipgloss.NewStyle().Foreground(mutedColor),
		conflictlog.KindOrphanCreate:       lipgloss.NewStyle().Foreground(errorColor),
		conflictlog.KindAmbiguousCreate:    lipgloss.NewStyle().Foreground(errorColor),
	}
)

func formatKind(k conflictlog.Kind) string {
	style, ok := conflictKindStyles[k]
	if !ok {
		return string(k)
	}
	return style.Render(string(k))
}
