// Package scenariodetail shows one scenario with the user's progress and
// saved diagrams for it.
package scenariodetail

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/threatlab/internal/api"
	"github.com/abhisek/threatlab/internal/notify"
	"github.com/abhisek/threatlab/internal/router"
	"github.com/abhisek/threatlab/internal/screen"
	"github.com/abhisek/threatlab/internal/screens/editor"
	"github.com/abhisek/threatlab/internal/screens/placeholder"
	"github.com/abhisek/threatlab/internal/services"
	"github.com/abhisek/threatlab/internal/ui/components"
	"github.com/abhisek/threatlab/internal/ui/layout"
	"github.com/abhisek/threatlab/internal/ui/theme"
)

const loadTimeout = 15 * time.Second

type loadedMsg struct {
	diagrams []api.Diagram
	err      error
}

type diagramsMsg struct {
	diagrams []api.Diagram
	err      error
}

// DetailScreen is the landing page of a scenario.
type DetailScreen struct {
	svc      *services.Services
	id       string
	loading  bool
	err      error
	diagrams []api.Diagram
	selected int
	confirm  bool
}

var _ screen.Screen = (*DetailScreen)(nil)
var _ screen.KeyHintProvider = (*DetailScreen)(nil)
var _ screen.Resumer = (*DetailScreen)(nil)

// New creates a DetailScreen for scenario id.
func New(svc *services.Services, id string) *DetailScreen {
	return &DetailScreen{svc: svc, id: id}
}

func (s *DetailScreen) Init() tea.Cmd {
	s.loading = true
	svc, id := s.svc, s.id
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		if err := svc.Catalog.Select(ctx, id); err != nil {
			return loadedMsg{err: err}
		}
		diagrams, err := svc.Client.ListDiagrams(ctx, api.DiagramListOptions{ScenarioID: id})
		return loadedMsg{diagrams: diagrams, err: err}
	}
}

// Resume refreshes the diagram list after returning from the editor.
func (s *DetailScreen) Resume() tea.Cmd {
	return s.listDiagrams()
}

func (s *DetailScreen) listDiagrams() tea.Cmd {
	client, id := s.svc.Client, s.id
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		diagrams, err := client.ListDiagrams(ctx, api.DiagramListOptions{ScenarioID: id})
		return diagramsMsg{diagrams: diagrams, err: err}
	}
}

func (s *DetailScreen) Title() string {
	return "Scenario"
}

func (s *DetailScreen) KeyHints() []layout.KeyHint {
	if s.confirm {
		return []layout.KeyHint{{Key: "y", Description: "Delete"}, {Key: "n", Description: "Keep"}}
	}
	hints := []layout.KeyHint{{Key: "n", Description: "New diagram"}}
	if len(s.diagrams) > 0 {
		hints = append(hints,
			layout.KeyHint{Key: "↑↓", Description: "Select"},
			layout.KeyHint{Key: "Enter", Description: "Open"},
			layout.KeyHint{Key: "d", Description: "Duplicate"},
			layout.KeyHint{Key: "x", Description: "Delete"},
		)
	}
	return append(hints, layout.KeyHint{Key: "Esc", Description: "Back"})
}

func (s *DetailScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		s.loading = false
		s.err = msg.err
		s.setDiagrams(msg.diagrams)
		return s, nil

	case diagramsMsg:
		if msg.err != nil {
			s.svc.Notifier.Error("Failed to load diagrams", msg.err)
			return s, nil
		}
		s.setDiagrams(msg.diagrams)
		return s, nil

	case tea.KeyMsg:
		if s.loading {
			return s, nil
		}
		if s.confirm {
			s.confirm = false
			if msg.String() == "y" {
				return s, s.deleteSelected()
			}
			return s, nil
		}
		switch msg.String() {
		case "esc":
			return s, router.Pop
		case "r":
			return s, s.Init()
		case "up", "k":
			if s.selected > 0 {
				s.selected--
			}
		case "down", "j":
			if s.selected < len(s.diagrams)-1 {
				s.selected++
			}
		case "n":
			if s.err != nil {
				return s, nil
			}
			return s, router.Push(editor.New(s.svc, editor.Options{
				ScenarioID: s.id,
				Scenario:   s.svc.Catalog.Detail(),
			}))
		case "enter":
			if d, ok := s.current(); ok {
				return s, router.Push(editor.New(s.svc, editor.Options{
					DiagramID:  d.ID,
					ScenarioID: s.id,
					Scenario:   s.svc.Catalog.Detail(),
				}))
			}
		case "d":
			if _, ok := s.current(); ok {
				return s, s.duplicateSelected()
			}
		case "x", "delete":
			if _, ok := s.current(); ok {
				s.confirm = true
			}
		}
	}
	return s, nil
}

func (s *DetailScreen) setDiagrams(diagrams []api.Diagram) {
	s.diagrams = diagrams
	if s.selected >= len(diagrams) {
		s.selected = max(len(diagrams)-1, 0)
	}
}

func (s *DetailScreen) current() (api.Diagram, bool) {
	if s.selected < 0 || s.selected >= len(s.diagrams) {
		return api.Diagram{}, false
	}
	return s.diagrams[s.selected], true
}

func (s *DetailScreen) duplicateSelected() tea.Cmd {
	d, _ := s.current()
	client, n := s.svc.Client, s.svc.Notifier
	list := s.listDiagrams()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		if _, err := client.DuplicateDiagram(ctx, d.ID); err != nil {
			n.Error("Failed to duplicate diagram", err)
			return nil
		}
		n.Notify(notify.LevelSuccess, "Diagram duplicated")
		return list()
	}
}

func (s *DetailScreen) deleteSelected() tea.Cmd {
	d, _ := s.current()
	client, n := s.svc.Client, s.svc.Notifier
	list := s.listDiagrams()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		if err := client.DeleteDiagram(ctx, d.ID); err != nil {
			n.Error("Failed to delete diagram", err)
			return nil
		}
		n.Notify(notify.LevelSuccess, "Diagram deleted")
		return list()
	}
}

func (s *DetailScreen) View(width, height int) string {
	if s.loading {
		return placeholder.Loading("scenario", width, height)
	}
	if s.err != nil {
		return placeholder.Error(s.err, width, height)
	}
	sc := s.svc.Catalog.Detail()
	if sc == nil {
		return placeholder.Empty("Scenario not found", width, height)
	}
	cw := components.ContentWidth(width)

	var b strings.Builder
	b.WriteString(theme.Title.Render(sc.Title) + "\n")
	meta := []string{
		components.Pill(sc.Category, lipgloss.NewStyle().Foreground(theme.Secondary)),
		components.Pill(sc.Difficulty, lipgloss.NewStyle().Foreground(theme.Accent)),
	}
	if sc.TimeLimit != nil {
		meta = append(meta, theme.Hint.Render(fmt.Sprintf("%d min", *sc.TimeLimit)))
	}
	if sc.MaxPoints > 0 {
		meta = append(meta, theme.Hint.Render(fmt.Sprintf("%d pts", sc.MaxPoints)))
	}
	b.WriteString(strings.Join(meta, " ") + "\n\n")
	b.WriteString(lipgloss.NewStyle().Width(cw).Foreground(theme.Text).Render(sc.Description) + "\n\n")

	req := sc.Requirements
	var r strings.Builder
	if req.BusinessContext != "" {
		r.WriteString(lipgloss.NewStyle().Width(cw - 4).Render(req.BusinessContext))
		r.WriteString("\n")
	}
	for _, e := range req.RequiredElements {
		r.WriteString("  • " + e + "\n")
	}
	for _, c := range req.TechnicalConstraints {
		r.WriteString(theme.Hint.Render("  ◦ "+c) + "\n")
	}
	if r.Len() > 0 {
		b.WriteString(components.Card("Requirements", strings.TrimRight(r.String(), "\n"), cw) + "\n")
	}

	if p := s.svc.Catalog.Progress(); p != nil {
		status := "in progress"
		if p.Completed {
			status = "completed"
		}
		line := fmt.Sprintf("Attempts %d  ·  Best %.0f  ·  %s", p.Attempts, p.BestScore, status)
		b.WriteString(components.Card("Your progress", line, cw) + "\n")
	}

	b.WriteString(components.Card("Saved diagrams", s.diagramList(), cw))
	if s.confirm {
		d, _ := s.current()
		b.WriteString("\n" + lipgloss.NewStyle().Foreground(theme.Error).Bold(true).
			Render(fmt.Sprintf("Delete %q? (y/n)", d.Title)))
	}
	return components.CenteredFrame(b.String(), width, height)
}

func (s *DetailScreen) diagramList() string {
	if len(s.diagrams) == 0 {
		return theme.Hint.Render("No diagrams yet. Press n to start one.")
	}
	var b strings.Builder
	for i, d := range s.diagrams {
		prefix := "  "
		style := lipgloss.NewStyle().Foreground(theme.Text)
		if i == s.selected {
			prefix = "▸ "
			style = lipgloss.NewStyle().Foreground(theme.Primary).Bold(true)
		}
		line := fmt.Sprintf("%s%s  %s", prefix, d.Title, theme.Hint.Render(fmt.Sprintf("%s · v%d · %d nodes", d.Status, d.Version, len(d.DiagramData.Nodes))))
		b.WriteString(style.Render(line))
		if i < len(s.diagrams)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
