// Package output provides styled terminal output helpers (success,
// error, warning, todo formatting) using lipgloss.
package output

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/marcus/todosync/internal/todomodel"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	statusStyles = map[todomodel.Status]lipgloss.Style{
		todomodel.StatusOpen:      lipgloss.NewStyle().Foreground(lipgloss.Color("45")),
		todomodel.StatusCompleted: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		todomodel.StatusCanceled:  lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
	}
	statusSymbols = map[todomodel.Status]string{
		todomodel.StatusOpen:      "○",
		todomodel.StatusCompleted: "✓",
		todomodel.StatusCanceled:  "✗",
	}
)

// Success prints a success message.
func Success(format string, args ...interface{}) {
	fmt.Println(successStyle.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error message.
func Error(format string, args ...interface{}) {
	fmt.Println(errorStyle.Render("ERROR: " + fmt.Sprintf(format, args...)))
}

// Warning prints a warning message.
func Warning(format string, args ...interface{}) {
	fmt.Println(warningStyle.Render("Warning: " + fmt.Sprintf(format, args...)))
}

// Info prints an info message.
func Info(format string, args ...interface{}) {
	fmt.Println(fmt.Sprintf(format, args...))
}

// JSON outputs data as indented JSON.
func JSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// Error codes for structured JSON output.
const (
	ErrCodeNotFound      = "not_found"
	ErrCodeInvalidInput  = "invalid_input"
	ErrCodeCorruptState  = "corrupt_state"
	ErrCodeSkipped       = "skipped"
	ErrCodeTransport     = "transport_error"
	ErrCodeHostAppDown   = "host_app_unavailable"
)

// JSONError outputs an error as JSON.
func JSONError(code, message string) {
	JSONErrorWithDetails(code, message, nil)
}

// JSONErrorWithDetails outputs an error as JSON with additional context.
func JSONErrorWithDetails(code, message string, details map[string]interface{}) {
	errObj := map[string]interface{}{
		"code":    code,
		"message": message,
	}
	if len(details) > 0 {
		errObj["details"] = details
	}
	result := map[string]interface{}{"error": errObj}
	data, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(data))
}

// FormatStatus formats a todo status with color.
func FormatStatus(s todomodel.Status) string {
	style, ok := statusStyles[s]
	if !ok {
		return string(s)
	}
	return style.Render(fmt.Sprintf("[%s]", s))
}

// StatusBadge returns a status indicator with symbol, e.g. "○ open".
func StatusBadge(status todomodel.Status) string {
	symbol, ok := statusSymbols[status]
	if !ok {
		symbol = "?"
	}
	if style, ok := statusStyles[status]; ok {
		return style.Render(fmt.Sprintf("%s %s", symbol, status))
	}
	return fmt.Sprintf("%s %s", symbol, status)
}

// FormatTodoShort formats a todo as a single line: title, tags, status.
func FormatTodoShort(id string, t todomodel.Fields) string {
	var parts []string
	parts = append(parts, titleStyle.Render(t.Title))
	if len(t.Tags) > 0 {
		parts = append(parts, subtleStyle.Render(strings.Join(t.Tags, ",")))
	}
	parts = append(parts, FormatStatus(t.Status))
	return strings.Join(parts, "  ")
}

// FormatTodoLong formats a todo with notes and due date for detail views.
func FormatTodoLong(id string, t todomodel.Fields) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(t.Title))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Status: %s\n", FormatStatus(t.Status)))
	if t.DueDate != nil {
		sb.WriteString(fmt.Sprintf("Due: %s\n", t.DueDate.Format("2006-01-02")))
	}
	if len(t.Tags) > 0 {
		sb.WriteString(fmt.Sprintf("Tags: %s\n", strings.Join(t.Tags, ", ")))
	}
	if t.Notes != "" {
		sb.WriteString("\n")
		sb.WriteString(subtleStyle.Render("Notes:"))
		sb.WriteString("\n")
		if rendered, err := RenderMarkdown(t.Notes); err == nil {
			sb.WriteString(rendered)
		} else {
			sb.WriteString(t.Notes)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatTimeAgo formats a time as a human-readable "ago" string.
func FormatTimeAgo(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1m ago"
		}
		return fmt.Sprintf("%dm ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1h ago"
		}
		return fmt.Sprintf("%dh ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1d ago"
		}
		return fmt.Sprintf("%dd ago", days)
	default:
		return t.Format("2006-01-02")
	}
}

// SectionHeader returns a formatted section header for CLI output.
func SectionHeader(title string) string {
	return fmt.Sprintf("\n%s:\n", strings.ToUpper(title))
}

// IndentLines indents each line by the specified number of spaces.
func IndentLines(lines []string, spaces int) []string {
	indent := strings.Repeat(" ", spaces)
	result := make([]string, len(lines))
	for i, line := range lines {
		result[i] = indent + line
	}
	return result
}

// IndentString indents each line in a string by the specified number of
// spaces.
func IndentString(s string, spaces int) string {
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	return strings.Join(IndentLines(lines, spaces), "\n")
}

// BulletList formats items as a bulleted list with optional indentation.
func BulletList(items []string, indent int) []string {
	prefix := strings.Repeat(" ", indent)
	result := make([]string, len(items))
	for i, item := range items {
		result[i] = prefix + "- " + item
	}
	return result
}
