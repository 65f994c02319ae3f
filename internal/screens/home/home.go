// Package home is the signed-in landing screen.
package home

import (
	"context"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/threatlab/internal/api"
	"github.com/abhisek/threatlab/internal/router"
	"github.com/abhisek/threatlab/internal/screen"
	"github.com/abhisek/threatlab/internal/screens/achievements"
	"github.com/abhisek/threatlab/internal/screens/history"
	"github.com/abhisek/threatlab/internal/screens/learning"
	"github.com/abhisek/threatlab/internal/screens/profile"
	"github.com/abhisek/threatlab/internal/screens/scenarios"
	"github.com/abhisek/threatlab/internal/services"
	"github.com/abhisek/threatlab/internal/ui/components"
	"github.com/abhisek/threatlab/internal/ui/layout"
	"github.com/abhisek/threatlab/internal/ui/theme"
)

const timelinePoints = 12

type dashboardMsg struct {
	stats    *api.UserStats
	insights *api.Insights
	timeline *api.Timeline
}

// HomeScreen is the main menu with a small progress dashboard.
type HomeScreen struct {
	svc        *services.Services
	menu       components.Menu
	menuLabels []string
	stats      *api.UserStats
	insights   *api.Insights
	timeline   *api.Timeline
}

var _ screen.Screen = (*HomeScreen)(nil)
var _ screen.KeyHintProvider = (*HomeScreen)(nil)
var _ screen.Resumer = (*HomeScreen)(nil)

// New creates a new HomeScreen.
func New(svc *services.Services) *HomeScreen {
	push := func(build func() screen.Screen) func() tea.Cmd {
		return func() tea.Cmd { return router.Push(build()) }
	}
	items := []components.MenuItem{
		{Label: "SCENARIOS", Action: push(func() screen.Screen { return scenarios.New(svc) })},
		{Label: "HISTORY", Action: push(func() screen.Screen { return history.New(svc) })},
		{Label: "LEARNING", Action: push(func() screen.Screen { return learning.New(svc) })},
		{Label: "ACHIEVEMENTS", Action: push(func() screen.Screen { return achievements.New(svc) })},
		{Label: "PROFILE", Action: push(func() screen.Screen { return profile.New(svc) })},
		{Label: "SIGN OUT", Action: func() tea.Cmd { return signOut(svc) }},
		{Label: "QUIT", Action: func() tea.Cmd { return tea.Quit }},
	}
	labels := make([]string, len(items))
	for i, it := range items {
		labels[i] = it.Label
	}
	return &HomeScreen{
		svc:        svc,
		menu:       components.NewMenu(items),
		menuLabels: labels,
	}
}

func signOut(svc *services.Services) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		svc.Session.Logout(ctx)
		return router.ResetScreenMsg{Screen: svc.Nav.Login()}
	}
}

func (h *HomeScreen) Init() tea.Cmd {
	return h.loadDashboard()
}

// Resume refreshes the dashboard after a sub-screen closes.
func (h *HomeScreen) Resume() tea.Cmd {
	return h.loadDashboard()
}

// loadDashboard fetches stats, insights and the score timeline. Each part
// is optional; failures leave that section empty.
func (h *HomeScreen) loadDashboard() tea.Cmd {
	p := h.svc.Progress
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		var msg dashboardMsg
		msg.stats, _ = p.Stats(ctx)
		msg.insights, _ = p.Insights(ctx)
		msg.timeline, _ = p.Timeline(ctx, timelinePoints)
		return msg
	}
}

func (h *HomeScreen) Title() string {
	return "Home"
}

func (h *HomeScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Select"},
		{Key: "Ctrl+C", Description: "Quit"},
	}
}

func (h *HomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if m, ok := msg.(dashboardMsg); ok {
		h.stats, h.insights, h.timeline = m.stats, m.insights, m.timeline
		return h, nil
	}
	var cmd tea.Cmd
	h.menu, cmd = h.menu.Update(msg)
	return h, cmd
}

func (h *HomeScreen) View(width, height int) string {
	compact := layout.IsCompactWidth(width) || layout.IsCompactHeight(height)
	cw := components.ContentWidth(width)

	var sections []string
	greeting := "Welcome back"
	if name := h.svc.UserName(); name != "" {
		greeting += ", " + name
	}
	sections = append(sections, lipgloss.NewStyle().Width(cw).Align(lipgloss.Center).
		Foreground(theme.Text).Bold(true).Render(greeting))

	sections = append(sections, renderStatsBar(h.stats, cw, compact))
	if !compact {
		if tl := renderTimeline(h.timeline, cw); tl != "" {
			sections = append(sections, tl)
		}
		if in := renderInsights(h.insights, cw); in != "" {
			sections = append(sections, in)
		}
	}

	if compact {
		sections = append(sections, renderMenuCompact(h.menuLabels, h.menu.Selected, cw))
	} else {
		sections = append(sections, renderMenu(h.menuLabels, h.menu.Selected, cw))
	}

	if !h.svc.Coach.Enabled() {
		sections = append(sections, renderCoachBanner(cw))
	}

	return renderFrame(strings.Join(sections, "\n\n"), width, height)
}
