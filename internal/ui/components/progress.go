package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/threatlab/internal/ui/theme"
)

// Bar renders "label ████░░░░  42%" in width cells. frac is 0..1; values
// outside are clamped for the bar but printed as given.
func Bar(label string, frac float64, width int) string {
	var b strings.Builder
	if label != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(theme.Text).Render(label))
		b.WriteString("  ")
	}
	pct := fmt.Sprintf("%4d%%", int(frac*100+0.5))

	cells := width - lipgloss.Width(b.String()) - len(pct) - 1
	cells = max(cells, 4)
	filled := int(float64(cells)*min(max(frac, 0), 1) + 0.5)

	b.WriteString(lipgloss.NewStyle().Foreground(theme.Secondary).Render(strings.Repeat("█", filled)))
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Border).Render(strings.Repeat("░", cells-filled)))
	b.WriteString(" ")
	b.WriteString(lipgloss.NewStyle().Foreground(theme.TextDim).Render(pct))
	return b.String()
}
