// Package history lists past scored attempts, overall stats and the
// leaderboard.
package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/threatlab/internal/api"
	"github.com/abhisek/threatlab/internal/router"
	"github.com/abhisek/threatlab/internal/screen"
	"github.com/abhisek/threatlab/internal/screens/placeholder"
	"github.com/abhisek/threatlab/internal/services"
	"github.com/abhisek/threatlab/internal/ui/components"
	"github.com/abhisek/threatlab/internal/ui/layout"
	"github.com/abhisek/threatlab/internal/ui/theme"
)

const (
	historyLimit     = 50
	leaderboardLimit = 10
	passingScore     = 70.0
)

type historyLoadedMsg struct {
	scores []api.Score
	stats  *api.UserStats
	err    error
}

type feedbackLoadedMsg struct {
	scoreID  string
	feedback *api.DetailedFeedback
	err      error
}

type leaderboardLoadedMsg struct {
	entries []api.LeaderboardEntry
	err     error
}

const (
	tabAttempts = iota
	tabLeaderboard
)

// HistoryScreen displays past attempts and how they compare.
type HistoryScreen struct {
	svc      *services.Services
	scores   []api.Score
	stats    *api.UserStats
	selected int
	expanded map[string]*api.DetailedFeedback
	loaded   bool
	err      error

	tab         int
	leaders     []api.LeaderboardEntry
	leadersErr  error
	leadersDone bool
}

var _ screen.Screen = (*HistoryScreen)(nil)
var _ screen.KeyHintProvider = (*HistoryScreen)(nil)

// New creates a new HistoryScreen.
func New(svc *services.Services) *HistoryScreen {
	return &HistoryScreen{
		svc:      svc,
		expanded: make(map[string]*api.DetailedFeedback),
	}
}

func (s *HistoryScreen) Init() tea.Cmd {
	p := s.svc.Progress
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		scores, err := p.History(ctx, api.HistoryOptions{Limit: historyLimit})
		if err != nil {
			return historyLoadedMsg{err: err}
		}
		stats, err := p.Stats(ctx)
		return historyLoadedMsg{scores: scores, stats: stats, err: err}
	}
}

func (s *HistoryScreen) Title() string {
	return "History"
}

func (s *HistoryScreen) KeyHints() []layout.KeyHint {
	if s.tab == tabLeaderboard {
		return []layout.KeyHint{
			{Key: "Tab", Description: "Attempts"},
			{Key: "Esc", Description: "Back"},
		}
	}
	return []layout.KeyHint{
		{Key: "Enter", Description: "Details"},
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Tab", Description: "Leaderboard"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *HistoryScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case historyLoadedMsg:
		s.err = msg.err
		s.scores = msg.scores
		s.stats = msg.stats
		s.loaded = true
		return s, nil

	case feedbackLoadedMsg:
		if msg.err == nil {
			s.expanded[msg.scoreID] = msg.feedback
		}
		return s, nil

	case leaderboardLoadedMsg:
		s.leaders = msg.entries
		s.leadersErr = msg.err
		s.leadersDone = true
		return s, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return s, router.Pop
		case "tab":
			s.tab = (s.tab + 1) % 2
			if s.tab == tabLeaderboard && !s.leadersDone {
				return s, s.loadLeaderboard()
			}
			return s, nil
		}
		if s.tab != tabAttempts {
			return s, nil
		}
		switch msg.String() {
		case "up", "k":
			if s.selected > 0 {
				s.selected--
			}
		case "down", "j":
			if s.selected < len(s.scores)-1 {
				s.selected++
			}
		case "enter":
			if s.selected >= len(s.scores) {
				return s, nil
			}
			id := s.scores[s.selected].ID
			if _, open := s.expanded[id]; open {
				delete(s.expanded, id)
				return s, nil
			}
			return s, s.loadFeedback(id)
		}
	}
	return s, nil
}

func (s *HistoryScreen) loadFeedback(id string) tea.Cmd {
	p := s.svc.Progress
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		fb, err := p.Feedback(ctx, id)
		return feedbackLoadedMsg{scoreID: id, feedback: fb, err: err}
	}
}

func (s *HistoryScreen) loadLeaderboard() tea.Cmd {
	p := s.svc.Progress
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		entries, err := p.Leaderboard(ctx, api.LeaderboardOptions{Limit: leaderboardLimit})
		return leaderboardLoadedMsg{entries: entries, err: err}
	}
}

func (s *HistoryScreen) View(width, height int) string {
	if !s.loaded {
		return placeholder.Loading("history", width, height)
	}
	if s.err != nil {
		return placeholder.Error(s.err, width, height)
	}

	cw := components.ContentWidth(width)
	var b strings.Builder
	b.WriteString(components.TabBar([]string{"Attempts", "Leaderboard"}, s.tab) + "\n\n")
	if s.tab == tabLeaderboard {
		b.WriteString(s.leaderboardView(cw))
	} else {
		if s.stats != nil {
			b.WriteString(statsLine(s.stats) + "\n\n")
		}
		b.WriteString(s.attemptsView(cw))
	}
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, b.String())
}

func statsLine(st *api.UserStats) string {
	dim := lipgloss.NewStyle().Foreground(theme.TextDim)
	val := lipgloss.NewStyle().Foreground(theme.Text).Bold(true)
	parts := []string{
		dim.Render("Attempts ") + val.Render(fmt.Sprint(st.TotalScenarios)),
		dim.Render("Passed ") + val.Render(fmt.Sprint(st.CompletedScenarios)),
		dim.Render("Average ") + val.Render(fmt.Sprintf("%.1f", st.AverageScore)),
		dim.Render("Best ") + val.Render(fmt.Sprintf("%.1f", st.BestScore)),
		dim.Render("Streak ") + val.Render(fmt.Sprint(st.CurrentStreak)),
	}
	return strings.Join(parts, dim.Render("  ·  "))
}

func (s *HistoryScreen) scenarioTitle(id string) string {
	for _, sc := range s.svc.Catalog.Scenarios() {
		if sc.ID == id {
			return sc.Title
		}
	}
	return id
}

func (s *HistoryScreen) attemptsView(cw int) string {
	if len(s.scores) == 0 {
		return lipgloss.NewStyle().Foreground(theme.TextDim).Italic(true).
			Render("No scored attempts yet. Submit a diagram to get a score.")
	}

	var b strings.Builder
	for i, sc := range s.scores {
		date := "unknown date"
		if !sc.SubmissionTime.IsZero() {
			date = sc.SubmissionTime.Format("Jan 02, 2006")
		}
		prefix := "  "
		if i == s.selected {
			prefix = "▸ "
		}
		total := lipgloss.NewStyle().Foreground(theme.ScoreColor(sc.Scores.TotalScore, passingScore)).
			Render(fmt.Sprintf("%5.1f", sc.Scores.TotalScore))
		line := fmt.Sprintf("%s%s  %s  %s  %d min", prefix, date, total,
			s.scenarioTitle(sc.ScenarioID), sc.TimeSpent/60)

		style := lipgloss.NewStyle().Foreground(theme.Text)
		if i == s.selected {
			style = style.Foreground(theme.Primary).Bold(true)
		}
		b.WriteString(style.Render(line) + "\n")

		if fb, open := s.expanded[sc.ID]; open && fb != nil {
			b.WriteString(feedbackView(fb, cw) + "\n")
		}
	}
	return b.String()
}

func feedbackView(fb *api.DetailedFeedback, cw int) string {
	a := fb.DetailedAnalysis
	var b strings.Builder
	bd := a.ScoreBreakdown
	fmt.Fprintf(&b, "Security %.0f · Architecture %.0f · Performance %.0f · Completeness %.0f\n",
		bd.SecurityScore, bd.ArchitectureScore, bd.PerformanceScore, bd.CompletenessScore)
	vs := a.ValidationSummary
	fmt.Fprintf(&b, "%d issues: %d errors, %d warnings, %d info\n", vs.TotalIssues, vs.Errors, vs.Warnings, vs.Info)
	pm := a.PerformanceMetrics
	fmt.Fprintf(&b, "%d min, efficiency %s", pm.TimeSpentMinutes, pm.EfficiencyRating)
	for _, sug := range fb.ImprovementSuggestions {
		b.WriteString("\n  • " + sug)
	}
	return components.Card("Feedback", b.String(), cw)
}

func (s *HistoryScreen) leaderboardView(cw int) string {
	switch {
	case !s.leadersDone:
		return theme.Hint.Render("Loading leaderboard...")
	case s.leadersErr != nil:
		return lipgloss.NewStyle().Foreground(theme.Error).Render(api.Describe(s.leadersErr))
	case len(s.leaders) == 0:
		return theme.Hint.Render("Nobody on the board yet.")
	}

	me := ""
	if u := s.svc.Session.User(); u != nil {
		me = u.ID
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", theme.Hint.Render(fmt.Sprintf("%-5s %-22s %8s %6s %8s", "Rank", "Name", "Total", "Done", "Average")))
	for _, e := range s.leaders {
		line := fmt.Sprintf("%-5d %-22s %8.1f %6d %8.1f", e.Rank, truncate(e.UserName, 22), e.TotalScore, e.ScenariosCompleted, e.AverageScore)
		style := lipgloss.NewStyle().Foreground(theme.Text)
		if e.UserID == me {
			style = style.Foreground(theme.Accent).Bold(true)
		}
		b.WriteString(style.Render(line) + "\n")
	}
	return lipgloss.NewStyle().Width(cw).Render(b.String())
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
