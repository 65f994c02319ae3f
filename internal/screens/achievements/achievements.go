// Package achievements shows earned and locked badges with level and
// experience.
package achievements

import (
	"context"
	"fmt"
	"image/color"
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

type achievementsLoadedMsg struct {
	data *api.Achievements
	err  error
}

type checkedMsg struct {
	res *api.AchievementCheck
}

const (
	tabEarned = iota
	tabLocked
)

// AchievementsScreen displays the badge collection.
type AchievementsScreen struct {
	svc          *services.Services
	data         *api.Achievements
	tab          int
	scrollOffset int
	loaded       bool
	checking     bool
	lastCheck    *api.AchievementCheck
	err          error
}

var _ screen.Screen = (*AchievementsScreen)(nil)
var _ screen.KeyHintProvider = (*AchievementsScreen)(nil)

// New creates a new AchievementsScreen.
func New(svc *services.Services) *AchievementsScreen {
	return &AchievementsScreen{svc: svc}
}

func (s *AchievementsScreen) Init() tea.Cmd {
	return s.load()
}

func (s *AchievementsScreen) load() tea.Cmd {
	p := s.svc.Progress
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		data, err := p.Achievements(ctx)
		return achievementsLoadedMsg{data: data, err: err}
	}
}

func (s *AchievementsScreen) Title() string {
	return "Achievements"
}

func (s *AchievementsScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Tab", Description: "Earned / Locked"},
		{Key: "↑↓", Description: "Scroll"},
		{Key: "c", Description: "Check for new"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *AchievementsScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case achievementsLoadedMsg:
		s.err = msg.err
		if msg.err == nil {
			s.data = msg.data
		}
		s.loaded = true
		return s, nil

	case checkedMsg:
		s.checking = false
		s.lastCheck = msg.res
		if msg.res != nil && msg.res.TotalNew > 0 {
			return s, s.load()
		}
		return s, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return s, router.Pop
		case "tab", "shift+tab":
			s.tab = (s.tab + 1) % 2
			s.scrollOffset = 0
		case "up", "k":
			if s.scrollOffset > 0 {
				s.scrollOffset--
			}
		case "down", "j":
			if s.scrollOffset < len(s.filtered())-1 {
				s.scrollOffset++
			}
		case "c":
			if s.checking {
				return s, nil
			}
			s.checking = true
			p := s.svc.Progress
			return s, func() tea.Msg {
				ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()
				res, _ := p.CheckAchievements(ctx)
				return checkedMsg{res: res}
			}
		}
	}
	return s, nil
}

func (s *AchievementsScreen) badges() []api.Badge {
	if s.data == nil {
		return nil
	}
	return s.data.Achievements.Badges
}

func (s *AchievementsScreen) filtered() []api.Badge {
	var out []api.Badge
	for _, b := range s.badges() {
		if b.Earned == (s.tab == tabEarned) {
			out = append(out, b)
		}
	}
	return out
}

func (s *AchievementsScreen) View(width, height int) string {
	if !s.loaded {
		return placeholder.Loading("achievements", width, height)
	}
	if s.err != nil {
		return placeholder.Error(s.err, width, height)
	}

	sum := s.data.Achievements
	cw := components.ContentWidth(width)
	center := func(str string) string { return lipgloss.PlaceHorizontal(width, lipgloss.Center, str) }

	var b strings.Builder
	lvl := sum.UserLevel
	b.WriteString(center(lipgloss.NewStyle().Foreground(theme.Accent).Bold(true).
		Render(fmt.Sprintf("Level %d", lvl.CurrentLevel)) +
		lipgloss.NewStyle().Foreground(theme.TextDim).Render(fmt.Sprintf("  ·  %d XP", lvl.ExperiencePoints))))
	b.WriteString("\n")
	b.WriteString(center(components.Bar("Next level", lvl.ProgressPercentage/100, cw)))
	b.WriteString("\n")
	b.WriteString(center(components.Bar("Collection", sum.CompletionPercentage/100, cw)))
	b.WriteString("\n\n")

	earned := sum.EarnedBadges
	labels := []string{
		fmt.Sprintf("Earned (%d)", earned),
		fmt.Sprintf("Locked (%d)", max(sum.TotalBadges-earned, 0)),
	}
	b.WriteString(center(components.TabBar(labels, s.tab)))
	b.WriteString("\n\n")

	filtered := s.filtered()
	if len(filtered) == 0 {
		msg := "No badges yet. Submit a diagram to earn your first."
		if s.tab == tabLocked {
			msg = "Every badge earned."
		}
		b.WriteString(center(theme.Hint.Italic(true).Render(msg)))
	}

	maxVisible := max(height-12, 3)
	start := min(s.scrollOffset, max(len(filtered)-1, 0))
	end := min(start+maxVisible, len(filtered))
	var list strings.Builder
	for i := start; i < end; i++ {
		list.WriteString(badgeLine(filtered[i], cw))
		list.WriteString("\n")
	}
	b.WriteString(center(list.String()))
	if end < len(filtered) {
		b.WriteString(center(theme.Hint.Render(fmt.Sprintf("... %d more", len(filtered)-end))))
	}

	switch {
	case s.checking:
		b.WriteString("\n" + center(theme.Hint.Render("Checking...")))
	case s.lastCheck != nil && s.lastCheck.TotalNew == 0:
		b.WriteString("\n" + center(theme.Hint.Render("No new achievements this time.")))
	}
	return b.String()
}

func badgeLine(bd api.Badge, cw int) string {
	style := lipgloss.NewStyle().Foreground(tierColor(bd.Tier))
	head := fmt.Sprintf("%s %-22s %-9s", bd.Icon, bd.Name, bd.Tier)
	if bd.Earned {
		date := ""
		if bd.EarnedAt != nil {
			date = bd.EarnedAt.Format("Jan 02, 2006")
		}
		return style.Bold(true).Render(head) + " " + theme.Hint.Render(date)
	}
	line := lipgloss.NewStyle().Foreground(theme.TextDim).Render(head)
	if p := bd.Progress; p != nil && p.Target > 0 {
		line += " " + theme.Hint.Render(fmt.Sprintf("%.0f/%.0f", p.Current, p.Target))
	}
	line += "\n   " + lipgloss.NewStyle().Foreground(theme.TextDim).Width(cw-3).Render(bd.Description)
	return line
}

func tierColor(tier string) color.Color {
	switch tier {
	case "silver":
		return theme.Secondary
	case "gold":
		return theme.Accent
	case "platinum":
		return theme.Primary
	default:
		return theme.Text
	}
}
