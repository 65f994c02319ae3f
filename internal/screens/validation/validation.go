// Package validation shows the diagram's findings grouped by category, with
// optional coach explanations.
package validation

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/threatlab/internal/api"
	"github.com/abhisek/threatlab/internal/coach"
	"github.com/abhisek/threatlab/internal/diagram"
	"github.com/abhisek/threatlab/internal/router"
	"github.com/abhisek/threatlab/internal/screen"
	"github.com/abhisek/threatlab/internal/services"
	"github.com/abhisek/threatlab/internal/ui/components"
	"github.com/abhisek/threatlab/internal/ui/layout"
	"github.com/abhisek/threatlab/internal/ui/theme"
)

type adviceMsg struct {
	advice *coach.Advice
	err    error
}

// ValidationScreen lists findings of the last validation.
type ValidationScreen struct {
	svc      *services.Services
	scenario *api.Scenario
	groups   []diagram.Group
	summary  diagram.Summary
	tab      int
	scroll   int
	asking   bool
	advice   *coach.Advice
	coachErr error
}

var _ screen.Screen = (*ValidationScreen)(nil)
var _ screen.KeyHintProvider = (*ValidationScreen)(nil)

// New creates a ValidationScreen over the diagram store's current results.
// scenario may be nil.
func New(svc *services.Services, scenario *api.Scenario) *ValidationScreen {
	results := svc.Diagram.ValidationResults()
	return &ValidationScreen{
		svc:      svc,
		scenario: scenario,
		groups:   diagram.GroupResults(results),
		summary:  diagram.Summarize(results),
	}
}

func (s *ValidationScreen) Init() tea.Cmd {
	return nil
}

func (s *ValidationScreen) Title() string {
	return "Validation"
}

func (s *ValidationScreen) KeyHints() []layout.KeyHint {
	hints := []layout.KeyHint{{Key: "Tab", Description: "Findings / Coach"}}
	if s.svc.Coach.Enabled() {
		hints = append(hints, layout.KeyHint{Key: "a", Description: "Ask coach"})
	}
	return append(hints,
		layout.KeyHint{Key: "↑↓", Description: "Scroll"},
		layout.KeyHint{Key: "Esc", Description: "Back to editor"},
	)
}

func (s *ValidationScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case adviceMsg:
		s.asking = false
		s.advice = msg.advice
		s.coachErr = msg.err
		return s, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return s, router.Pop
		case "tab":
			s.tab = (s.tab + 1) % 2
			s.scroll = 0
		case "up", "k":
			if s.scroll > 0 {
				s.scroll--
			}
		case "down", "j":
			s.scroll++
		case "a":
			return s, s.ask()
		}
	}
	return s, nil
}

func (s *ValidationScreen) ask() tea.Cmd {
	if !s.svc.Coach.Enabled() || s.asking || s.summary.Total() == 0 {
		return nil
	}
	s.tab = 1
	s.asking = true
	in := coach.ExplainInput{
		Scenario: s.scenario,
		Nodes:    s.svc.Diagram.Nodes(),
		Edges:    s.svc.Diagram.Edges(),
		Results:  s.svc.Diagram.ValidationResults(),
	}
	if d := s.svc.Diagram.Current(); d != nil {
		in.DiagramID = d.ID
	}
	c := s.svc.Coach
	return func() tea.Msg {
		advice, err := c.Explain(context.Background(), in)
		return adviceMsg{advice: advice, err: err}
	}
}

func (s *ValidationScreen) View(width, height int) string {
	var lines []string
	lines = append(lines, "  "+components.TabBar([]string{"Findings", "Coach"}, s.tab), "")

	if s.tab == 0 {
		lines = append(lines, s.findingLines(width)...)
	} else {
		lines = append(lines, s.coachLines(width)...)
	}

	if s.scroll > len(lines)-1 {
		s.scroll = max(len(lines)-1, 0)
	}
	if height > 0 && len(lines) > height {
		start := min(s.scroll, len(lines)-height)
		lines = lines[start : start+height]
	}
	return strings.Join(lines, "\n")
}

func (s *ValidationScreen) findingLines(width int) []string {
	if s.summary.Total() == 0 {
		return []string{lipgloss.NewStyle().Foreground(theme.Success).Bold(true).
			Render("  No findings. Submit the diagram for scoring when ready.")}
	}

	lines := []string{lipgloss.NewStyle().Foreground(theme.TextDim).Render("  " + s.summary.String()), ""}
	for _, g := range s.groups {
		lines = append(lines, lipgloss.NewStyle().Foreground(theme.Primary).Bold(true).
			Render(fmt.Sprintf("  %s (%d)", strings.ToUpper(string(g.Category)), len(g.Results))))
		for _, r := range g.Results {
			sev := lipgloss.NewStyle().Foreground(theme.SeverityColor(string(r.Severity))).Bold(true).
				Render(fmt.Sprintf("%-7s", r.Severity))
			line := fmt.Sprintf("    %s %s  %s", sev, r.RuleID, r.Message)
			if r.ElementID != "" {
				line += lipgloss.NewStyle().Foreground(theme.TextDim).Render("  [" + r.ElementID + "]")
			}
			lines = append(lines, lipgloss.NewStyle().MaxWidth(width).Render(line))
			if s.advice != nil {
				if it, ok := s.advice.ForRule(r.RuleID); ok && it.Fix != "" {
					lines = append(lines, theme.Hint.Render("            fix: "+it.Fix))
				}
			}
		}
		lines = append(lines, "")
	}
	return lines
}

func (s *ValidationScreen) coachLines(width int) []string {
	dim := lipgloss.NewStyle().Foreground(theme.TextDim)
	switch {
	case !s.svc.Coach.Enabled():
		return []string{dim.Render("  The coach is off. Set llm.provider and an API key to enable it.")}
	case s.asking:
		return []string{dim.Render("  Asking the coach...")}
	case s.coachErr != nil:
		return []string{lipgloss.NewStyle().Foreground(theme.Error).Render("  Coach unavailable: " + s.coachErr.Error())}
	case s.advice == nil:
		return []string{dim.Render("  Press a to ask the coach about these findings.")}
	}

	wrap := lipgloss.NewStyle().Width(width - 4).PaddingLeft(2)
	lines := []string{wrap.Render(s.advice.Summary), ""}
	for _, it := range s.advice.Items {
		lines = append(lines,
			lipgloss.NewStyle().Foreground(theme.Primary).Bold(true).Render("  "+it.RuleID),
			wrap.Render("Why it matters: "+it.WhyItMatters),
			wrap.Render("Fix: "+it.Fix),
			"")
	}
	return lines
}
