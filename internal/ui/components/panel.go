package components

import (
	"charm.land/lipgloss/v2"

	"github.com/abhisek/threatlab/internal/ui/theme"
)

// ContentWidth returns the uniform inner width used for centered panels.
func ContentWidth(frameWidth int) int {
	// Leave room for border (2) + inner padding (4)
	w := frameWidth - 6
	if w > 72 {
		w = 72
	}
	if w < 20 {
		w = 20
	}
	return w
}

// CenteredFrame centers content inside the given dimensions.
func CenteredFrame(content string, width, height int) string {
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}

// Card wraps content in a rounded-border card at the given content width.
func Card(title, content string, cw int) string {
	if title != "" {
		content = lipgloss.NewStyle().Foreground(theme.Primary).Bold(true).Render(title) + "\n\n" + content
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Border).
		Width(cw - 2).
		Padding(0, 1).
		Render(content)
}

// Pill renders a short colored label such as a difficulty or status.
func Pill(label string, fg lipgloss.Style) string {
	return fg.Padding(0, 1).Render(label)
}

// TabBar renders tab labels with the active one highlighted.
func TabBar(labels []string, active int) string {
	out := ""
	for i, l := range labels {
		if i > 0 {
			out += lipgloss.NewStyle().Foreground(theme.TextDim).Render(" │ ")
		}
		if i == active {
			out += lipgloss.NewStyle().Foreground(theme.Primary).Bold(true).Underline(true).Render(l)
		} else {
			out += lipgloss.NewStyle().Foreground(theme.TextDim).Render(l)
		}
	}
	return out
}
