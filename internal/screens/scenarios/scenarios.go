// Package scenarios is the scenario browser: filters, client-side search
// and pagination over the catalog.
package scenarios

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/threatlab/internal/api"
	"github.com/abhisek/threatlab/internal/router"
	"github.com/abhisek/threatlab/internal/screen"
	"github.com/abhisek/threatlab/internal/screens/placeholder"
	"github.com/abhisek/threatlab/internal/screens/scenariodetail"
	"github.com/abhisek/threatlab/internal/services"
	"github.com/abhisek/threatlab/internal/ui/components"
	"github.com/abhisek/threatlab/internal/ui/layout"
	"github.com/abhisek/threatlab/internal/ui/theme"
)

type loadedMsg struct {
	err error
}

// ScenariosScreen lists scenarios.
type ScenariosScreen struct {
	svc       *services.Services
	selected  int
	searching bool
	search    components.TextInput
	loaded    bool
	loading   bool
	err       error
}

var _ screen.Screen = (*ScenariosScreen)(nil)
var _ screen.KeyHintProvider = (*ScenariosScreen)(nil)

// New creates a ScenariosScreen.
func New(svc *services.Services) *ScenariosScreen {
	search := components.NewTextInput("search title, description, tags", 80)
	search.Blur()
	search.SetValue(svc.Catalog.Query())
	return &ScenariosScreen{svc: svc, search: search}
}

func (s *ScenariosScreen) Init() tea.Cmd {
	s.loading = true
	cat := s.svc.Catalog
	return func() tea.Msg {
		ctx := context.Background()
		// Facets only feed the filter cycling; a failure there is notified
		// and the list still loads.
		_ = cat.LoadFacets(ctx)
		return loadedMsg{err: cat.Fetch(ctx)}
	}
}

func (s *ScenariosScreen) Title() string {
	return "Scenarios"
}

func (s *ScenariosScreen) KeyHints() []layout.KeyHint {
	if s.searching {
		return []layout.KeyHint{
			{Key: "Enter", Description: "Done"},
			{Key: "Esc", Description: "Clear"},
		}
	}
	return []layout.KeyHint{
		{Key: "Enter", Description: "Open"},
		{Key: "/", Description: "Search"},
		{Key: "c", Description: "Category"},
		{Key: "d", Description: "Difficulty"},
		{Key: "←→", Description: "Page"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *ScenariosScreen) fetch(fn func(context.Context) error) tea.Cmd {
	s.loading = true
	return func() tea.Msg {
		return loadedMsg{err: fn(context.Background())}
	}
}

func (s *ScenariosScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		s.loading = false
		s.err = msg.err
		if msg.err == nil {
			s.loaded = true
		}
		s.clampSelection()
		return s, nil

	case tea.KeyMsg:
		if s.searching {
			return s, s.updateSearch(msg)
		}
		cat := s.svc.Catalog
		switch msg.String() {
		case "esc":
			return s, router.Pop
		case "up", "k":
			if s.selected > 0 {
				s.selected--
			}
		case "down", "j":
			if s.selected < len(cat.Visible())-1 {
				s.selected++
			}
		case "enter":
			visible := cat.Visible()
			if s.selected < len(visible) {
				return s, router.Push(scenariodetail.New(s.svc, visible[s.selected].ID))
			}
		case "/":
			s.searching = true
			return s, s.search.Focus()
		case "c":
			f := cat.Filter()
			f.Category = cycle(f.Category, cat.Categories())
			cat.SetFilter(f)
			s.selected = 0
			return s, s.fetch(cat.Fetch)
		case "d":
			f := cat.Filter()
			f.Difficulty = cycle(f.Difficulty, cat.Difficulties())
			cat.SetFilter(f)
			s.selected = 0
			return s, s.fetch(cat.Fetch)
		case "right", "l", "n":
			if cat.HasMore() {
				s.selected = 0
				return s, s.fetch(cat.NextPage)
			}
		case "left", "h", "p":
			if cat.Page() > 1 {
				s.selected = 0
				return s, s.fetch(cat.PrevPage)
			}
		case "r":
			return s, s.fetch(cat.Fetch)
		}
	}
	return s, nil
}

func (s *ScenariosScreen) updateSearch(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter":
		s.searching = false
		s.search.Blur()
		return nil
	case "esc":
		s.searching = false
		s.search.SetValue("")
		s.search.Blur()
		s.svc.Catalog.SetQuery("")
		return nil
	}
	var cmd tea.Cmd
	s.search, cmd = s.search.Update(msg)
	s.svc.Catalog.SetQuery(s.search.Value())
	s.selected = 0
	return cmd
}

func (s *ScenariosScreen) clampSelection() {
	n := len(s.svc.Catalog.Visible())
	if s.selected >= n {
		s.selected = n - 1
	}
	if s.selected < 0 {
		s.selected = 0
	}
}

// cycle returns the option after current, with "" (all) before the first.
func cycle(current string, options []string) string {
	if len(options) == 0 {
		return ""
	}
	if current == "" {
		return options[0]
	}
	for i, o := range options {
		if o == current && i+1 < len(options) {
			return options[i+1]
		}
	}
	return ""
}

func orAll(v string) string {
	if v == "" {
		return "all"
	}
	return v
}

func (s *ScenariosScreen) View(width, height int) string {
	cat := s.svc.Catalog
	if s.err != nil && !s.loaded {
		return placeholder.Error(s.err, width, height)
	}
	if !s.loaded {
		return placeholder.Loading("scenarios", width, height)
	}

	var b strings.Builder
	f := cat.Filter()
	dim := lipgloss.NewStyle().Foreground(theme.TextDim)
	b.WriteString(dim.Render(fmt.Sprintf("  Category: %s   Difficulty: %s   Page %d",
		orAll(f.Category), orAll(f.Difficulty), cat.Page())))
	if s.loading {
		b.WriteString(dim.Render("   loading..."))
	}
	b.WriteString("\n")
	if s.searching || s.search.Value() != "" {
		b.WriteString("  / " + s.search.View() + "\n")
	}
	b.WriteString("\n")

	visible := cat.Visible()
	if len(visible) == 0 {
		b.WriteString(placeholder.Empty("No scenarios match.", width, 3))
		return b.String()
	}

	for i, sc := range visible {
		prefix := "  "
		style := lipgloss.NewStyle().Foreground(theme.Text)
		if i == s.selected {
			prefix = "▸ "
			style = style.Foreground(theme.Primary).Bold(true)
		}
		line := prefix + sc.Title
		meta := dim.Render(fmt.Sprintf("  %s · %s%s", sc.Category, sc.Difficulty, timeLimit(sc)))
		b.WriteString("  " + style.Render(line) + meta + "\n")
		if i == s.selected && sc.Description != "" {
			b.WriteString(lipgloss.NewStyle().Foreground(theme.TextDim).Italic(true).
				Width(width-8).PaddingLeft(6).Render(sc.Description) + "\n")
		}
	}

	if cat.HasMore() {
		b.WriteString("\n" + dim.Render("  → more"))
	}
	return b.String()
}

func timeLimit(sc api.Scenario) string {
	if sc.TimeLimit == nil {
		return ""
	}
	return fmt.Sprintf(" · %d min", *sc.TimeLimit)
}
