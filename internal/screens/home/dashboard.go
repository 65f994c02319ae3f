package home

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/threatlab/internal/api"
	"github.com/abhisek/threatlab/internal/ui/theme"
)

// renderStatsBar renders the headline stats in a bordered box matching
// content width.
func renderStatsBar(st *api.UserStats, cw int, compact bool) string {
	scoreStyle := lipgloss.NewStyle().Foreground(theme.Accent).Bold(true)
	doneStyle := lipgloss.NewStyle().Foreground(theme.Success).Bold(true)
	streakStyle := lipgloss.NewStyle().Foreground(theme.Secondary).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(theme.TextDim)

	var stats string
	switch {
	case st == nil:
		stats = dimStyle.Render("No stats yet")
	case compact:
		stats = fmt.Sprintf("%s %s %s",
			scoreStyle.Render(fmt.Sprintf("★%.0f", st.BestScore)),
			doneStyle.Render(fmt.Sprintf("✓%d", st.CompletedScenarios)),
			streakStyle.Render(fmt.Sprintf("⚡%d", st.CurrentStreak)),
		)
	default:
		stats = fmt.Sprintf("%s  %s  %s",
			scoreStyle.Render(fmt.Sprintf("★ BEST %.0f", st.BestScore)),
			doneStyle.Render(fmt.Sprintf("✓ %d PASSED", st.CompletedScenarios)),
			streakText(st.CurrentStreak, streakStyle, dimStyle),
		)
	}

	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(theme.Secondary).
		Width(cw - 2).
		Align(lipgloss.Center).
		Padding(0, 1).
		Render(stats)
}

func streakText(days int, active, dim lipgloss.Style) string {
	if days == 0 {
		return dim.Render("⚡ NO STREAK")
	}
	return active.Render(fmt.Sprintf("⚡ %d DAY STREAK", days))
}

// renderInsights shows the first insight and focus areas.
func renderInsights(in *api.Insights, cw int) string {
	if in == nil || (len(in.Insights) == 0 && len(in.FocusAreas) == 0) {
		return ""
	}
	var lines []string
	if len(in.Insights) > 0 {
		lines = append(lines, lipgloss.NewStyle().Foreground(theme.Text).Render(in.Insights[0]))
	}
	if len(in.FocusAreas) > 0 {
		lines = append(lines, lipgloss.NewStyle().Foreground(theme.Warning).
			Render("Focus: "+strings.Join(in.FocusAreas, ", ")))
	}
	return lipgloss.NewStyle().
		Width(cw).
		Align(lipgloss.Center).
		Render(strings.Join(lines, "\n"))
}

// renderTimeline draws recent total scores as a one-line sparkline.
func renderTimeline(tl *api.Timeline, cw int) string {
	if tl == nil || len(tl.Timeline) == 0 {
		return ""
	}
	bars := []rune("▁▂▃▄▅▆▇█")
	var b strings.Builder
	for _, p := range tl.Timeline {
		i := int(p.TotalScore / 100 * float64(len(bars)-1))
		i = max(0, min(i, len(bars)-1))
		b.WriteRune(bars[i])
	}
	last := tl.Timeline[len(tl.Timeline)-1].TotalScore
	line := lipgloss.NewStyle().Foreground(theme.Primary).Render(b.String()) +
		lipgloss.NewStyle().Foreground(theme.TextDim).Render(fmt.Sprintf("  last %.0f", last))
	return lipgloss.NewStyle().Width(cw).Align(lipgloss.Center).Render(line)
}

// buttonWidth is the fixed width for menu buttons.
const buttonWidth = 22

// renderMenu renders each menu item as a fixed-width button.
func renderMenu(items []string, selected int, cw int) string {
	selectedBtn := lipgloss.NewStyle().
		Width(buttonWidth).
		Align(lipgloss.Center).
		Bold(true).
		Foreground(theme.BgDark).
		Background(theme.Primary).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Primary).
		Padding(0, 1)

	normalBtn := lipgloss.NewStyle().
		Width(buttonWidth).
		Align(lipgloss.Center).
		Foreground(theme.Text).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Border).
		Padding(0, 1)

	var buttons []string
	for i, label := range items {
		if i == selected {
			buttons = append(buttons, selectedBtn.Render("▸ "+label))
		} else {
			buttons = append(buttons, normalBtn.Render(label))
		}
	}

	return lipgloss.NewStyle().
		Width(cw).
		Align(lipgloss.Center).
		Render(strings.Join(buttons, "\n"))
}

// renderMenuCompact renders menu items as plain lines for terminals where
// bordered buttons would overflow.
func renderMenuCompact(items []string, selected int, cw int) string {
	var lines []string
	for i, label := range items {
		if i == selected {
			lines = append(lines, lipgloss.NewStyle().
				Foreground(theme.BgDark).
				Background(theme.Primary).
				Bold(true).
				Render(" ▸ "+label+" "))
		} else {
			lines = append(lines, lipgloss.NewStyle().
				Foreground(theme.Text).
				Render("   "+label))
		}
	}
	return lipgloss.NewStyle().
		Width(cw).
		Align(lipgloss.Center).
		Render(strings.Join(lines, "\n"))
}

// renderCoachBanner tells the user how to turn on the coach.
func renderCoachBanner(cw int) string {
	return lipgloss.NewStyle().
		Foreground(theme.TextDim).
		Width(cw).
		Align(lipgloss.Center).
		Render("Coach is off. Set an LLM API key to get explanations (see threatlab --help)")
}

// renderFrame wraps content in a rounded frame, centering it vertically and
// horizontally within the given dimensions.
func renderFrame(content string, width, height int) string {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Primary).
		Width(width - 2).
		Height(height - 2).
		Align(lipgloss.Center, lipgloss.Center).
		Render(content)
}
