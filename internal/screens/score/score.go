// Package score shows a scored attempt: the category breakdown, the
// backend's feedback and an optional coach review.
package score

import (
	"context"
	"fmt"
	"image/color"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/threatlab/internal/api"
	"github.com/abhisek/threatlab/internal/coach"
	"github.com/abhisek/threatlab/internal/router"
	"github.com/abhisek/threatlab/internal/screen"
	"github.com/abhisek/threatlab/internal/services"
	"github.com/abhisek/threatlab/internal/ui/components"
	"github.com/abhisek/threatlab/internal/ui/layout"
	"github.com/abhisek/threatlab/internal/ui/theme"
)

// PassingScore is the total at which a scenario counts as completed.
const PassingScore = 70.0

type achievementsCheckedMsg struct {
	check *api.AchievementCheck
}

type reviewMsg struct {
	review *coach.Review
	err    error
}

// ScoreScreen renders one Score.
type ScoreScreen struct {
	svc       *services.Services
	score     *api.Score
	scenario  *api.Scenario
	newBadges []api.NewAchievement
	reviewing bool
	review    *coach.Review
	reviewErr error
}

var _ screen.Screen = (*ScoreScreen)(nil)
var _ screen.KeyHintProvider = (*ScoreScreen)(nil)

// New creates a ScoreScreen. scenario may be nil.
func New(svc *services.Services, score *api.Score, scenario *api.Scenario) *ScoreScreen {
	return &ScoreScreen{svc: svc, score: score, scenario: scenario}
}

// Init checks for newly earned achievements; the progress store announces
// them.
func (s *ScoreScreen) Init() tea.Cmd {
	p := s.svc.Progress
	return func() tea.Msg {
		check, _ := p.CheckAchievements(context.Background())
		return achievementsCheckedMsg{check: check}
	}
}

func (s *ScoreScreen) Title() string {
	return "Score"
}

func (s *ScoreScreen) KeyHints() []layout.KeyHint {
	hints := []layout.KeyHint{{Key: "Enter", Description: "Done"}}
	if s.svc.Coach.Enabled() {
		hints = append(hints, layout.KeyHint{Key: "r", Description: "Coach review"})
	}
	return append(hints, layout.KeyHint{Key: "Esc", Description: "Back"})
}

func (s *ScoreScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case achievementsCheckedMsg:
		if msg.check != nil {
			s.newBadges = msg.check.NewAchievements
		}
		return s, nil

	case reviewMsg:
		s.reviewing = false
		s.review = msg.review
		s.reviewErr = msg.err
		return s, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "enter":
			return s, router.Pop
		case "r":
			if !s.svc.Coach.Enabled() || s.reviewing || s.review != nil {
				return s, nil
			}
			s.reviewing = true
			c, sc, scn := s.svc.Coach, s.score, s.scenario
			return s, func() tea.Msg {
				rv, err := c.ReviewScore(context.Background(), sc, scn)
				return reviewMsg{review: rv, err: err}
			}
		}
	}
	return s, nil
}

// Passed reports whether the score reaches PassingScore.
func (s *ScoreScreen) Passed() bool {
	return s.score != nil && s.score.Scores.TotalScore >= PassingScore
}

func (s *ScoreScreen) View(width, height int) string {
	if s.score == nil {
		return ""
	}
	sc := s.score.Scores
	cw := components.ContentWidth(width)

	total := lipgloss.NewStyle().Bold(true).
		Foreground(theme.ScoreColor(sc.TotalScore, PassingScore)).
		Render(fmt.Sprintf("%.1f / 100", sc.TotalScore))
	verdict := "Not passed yet. Keep iterating."
	if s.Passed() {
		verdict = "Passed!"
	}
	head := total + "  " + lipgloss.NewStyle().Foreground(theme.TextDim).Render(verdict)
	if s.scenario != nil {
		head = lipgloss.NewStyle().Foreground(theme.Text).Bold(true).Render(s.scenario.Title) + "\n" + head
	}

	bars := []string{
		components.Bar(fmt.Sprintf("%-13s", "Security"), sc.SecurityScore/100, cw-4),
		components.Bar(fmt.Sprintf("%-13s", "Architecture"), sc.ArchitectureScore/100, cw-4),
		components.Bar(fmt.Sprintf("%-13s", "Performance"), sc.PerformanceScore/100, cw-4),
		components.Bar(fmt.Sprintf("%-13s", "Completeness"), sc.CompletenessScore/100, cw-4),
	}

	sections := []string{
		components.Card("", head+"\n\n"+strings.Join(bars, "\n"), cw),
	}

	if fb := s.score.Feedback; fb != nil {
		var b strings.Builder
		b.WriteString(fb.Summary)
		writeList(&b, "Strengths", fb.Strengths, theme.Success)
		writeList(&b, "Weaknesses", fb.Weaknesses, theme.Warning)
		writeList(&b, "Recommendations", fb.Recommendations, theme.Info)
		writeList(&b, "Next steps", fb.NextSteps, theme.Secondary)
		sections = append(sections, components.Card("Feedback", b.String(), cw))
	}

	if len(s.newBadges) > 0 {
		names := make([]string, 0, len(s.newBadges))
		for _, nb := range s.newBadges {
			names = append(names, nb.Name)
		}
		sections = append(sections, lipgloss.NewStyle().Foreground(theme.Accent).Bold(true).
			Render("★ New achievements: "+strings.Join(names, ", ")))
	}

	switch {
	case s.reviewing:
		sections = append(sections, theme.Hint.Render("Asking the coach..."))
	case s.reviewErr != nil:
		sections = append(sections, lipgloss.NewStyle().Foreground(theme.Error).Render("Coach unavailable: "+s.reviewErr.Error()))
	case s.review != nil:
		var b strings.Builder
		b.WriteString(s.review.Headline)
		writeList(&b, "Focus on", s.review.FocusAreas, theme.Warning)
		writeList(&b, "Next", s.review.NextSteps, theme.Info)
		sections = append(sections, components.Card("Coach", b.String(), cw))
	}

	return lipgloss.PlaceHorizontal(width, lipgloss.Center, strings.Join(sections, "\n"))
}

func writeList(b *strings.Builder, title string, items []string, c color.Color) {
	if len(items) == 0 {
		return
	}
	b.WriteString("\n\n" + lipgloss.NewStyle().Bold(true).Foreground(c).Render(title))
	for _, it := range items {
		b.WriteString("\n  • " + it)
	}
}
