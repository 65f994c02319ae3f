// Package layout draws the chrome around the active screen: a header with
// the screen title and signed-in user, toasts, and a footer of key hints.
package layout

import (
	"fmt"
	"image/color"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/threatlab/internal/notify"
	"github.com/abhisek/threatlab/internal/ui/theme"
)

const (
	MinWidth  = 80
	MinHeight = 24

	compactWidth  = 100
	compactHeight = 30
)

// KeyHint is one "key description" pair in the footer.
type KeyHint struct {
	Key         string
	Description string
}

func IsCompactWidth(w int) bool  { return w < compactWidth }
func IsCompactHeight(h int) bool { return h < compactHeight }
func IsTooSmall(w, h int) bool   { return w < MinWidth || h < MinHeight }

var bar = lipgloss.NewStyle().
	Background(theme.BgCard).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(theme.Border)

// TooSmall asks the user to grow the terminal.
func TooSmall(w, h int) string {
	msg := fmt.Sprintf("Terminal too small: %d x %d\n\nThreatLab needs at least %d x %d.", w, h, MinWidth, MinHeight)
	return lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center,
		lipgloss.NewStyle().Foreground(theme.Text).Align(lipgloss.Center).Render(msg))
}

// Header shows the brand on the left, title in the middle and the user on
// the right. An empty user renders as signed out.
func Header(title, user string, width int) string {
	inner := max(width-4, 0)
	side := inner / 4
	mid := max(inner-2*side, 0)

	who := lipgloss.NewStyle().Foreground(theme.TextDim).Render("not signed in")
	if user != "" {
		who = lipgloss.NewStyle().Foreground(theme.Accent).Render("● " + user)
	}
	row := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(side).Foreground(theme.Primary).Bold(true).Render("ThreatLab"),
		lipgloss.NewStyle().Width(mid).Align(lipgloss.Center).Foreground(theme.Text).Render(title),
		lipgloss.NewStyle().Width(side).Align(lipgloss.Right).Render(who),
	)
	return bar.Width(width).Padding(0, 1).Render(row)
}

// Footer lists key hints separated by wide gaps.
func Footer(hints []KeyHint, width int) string {
	key := lipgloss.NewStyle().Foreground(theme.Text).Bold(true)
	desc := lipgloss.NewStyle().Foreground(theme.TextDim)
	parts := make([]string, len(hints))
	for i, h := range hints {
		parts[i] = key.Render(h.Key) + " " + desc.Render(h.Description)
	}
	return bar.Width(width).Padding(0, 1).Render(strings.Join(parts, "   "))
}

// Toasts renders one right-aligned line per notification, oldest first.
func Toasts(notes []notify.Notification, width int) string {
	lines := make([]string, len(notes))
	for i, n := range notes {
		icon, c := toastStyle(n.Level)
		lines[i] = lipgloss.NewStyle().Width(width).Align(lipgloss.Right).PaddingRight(2).
			Foreground(c).Render(icon + " " + n.Message)
	}
	return strings.Join(lines, "\n")
}

func toastStyle(l notify.Level) (string, color.Color) {
	switch l {
	case notify.LevelSuccess:
		return "✓", theme.Success
	case notify.LevelWarning:
		return "!", theme.Warning
	case notify.LevelError:
		return "✗", theme.Error
	}
	return "•", theme.Info
}

// Compose stacks header, body and footer into exactly height rows. body is
// asked to render into the rows left between header and footer.
func Compose(width, height int, header, footer string, body func(w, h int) string) string {
	h := max(height-lipgloss.Height(header)-lipgloss.Height(footer), 0)
	content := lipgloss.NewStyle().Width(width).Height(h).MaxHeight(h).Render(body(width, h))
	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}
