// Package learning shows learning paths, enrollment progress and
// recommended next scenarios.
package learning

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

const recommendationLimit = 5

type loadedMsg struct {
	paths    []api.LearningPath
	progress *api.LearningProgress
	recs     []api.Recommendation
	err      error
}

type enrolledMsg struct {
	progress *api.LearningProgress
}

// LearningScreen lists learning paths.
type LearningScreen struct {
	svc       *services.Services
	paths     []api.LearningPath
	progress  *api.LearningProgress
	recs      []api.Recommendation
	selected  int
	loaded    bool
	enrolling bool
	err       error
}

var _ screen.Screen = (*LearningScreen)(nil)
var _ screen.KeyHintProvider = (*LearningScreen)(nil)

// New creates a LearningScreen.
func New(svc *services.Services) *LearningScreen {
	return &LearningScreen{svc: svc}
}

func (s *LearningScreen) Init() tea.Cmd {
	p := s.svc.Progress
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		paths, err := p.Paths(ctx, "")
		if err != nil {
			return loadedMsg{err: err}
		}
		msg := loadedMsg{paths: paths}
		// Progress and recommendations are optional extras.
		msg.progress, _ = p.LearningProgress(ctx)
		msg.recs, _ = p.Recommendations(ctx, recommendationLimit)
		return msg
	}
}

func (s *LearningScreen) Title() string {
	return "Learning"
}

func (s *LearningScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "e", Description: "Enroll"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *LearningScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		s.loaded = true
		s.err = msg.err
		s.paths, s.progress, s.recs = msg.paths, msg.progress, msg.recs
		return s, nil

	case enrolledMsg:
		s.enrolling = false
		if msg.progress != nil {
			s.progress = msg.progress
		}
		return s, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return s, router.Pop
		case "up", "k":
			if s.selected > 0 {
				s.selected--
			}
		case "down", "j":
			if s.selected < len(s.paths)-1 {
				s.selected++
			}
		case "e", "enter":
			if s.enrolling || s.selected >= len(s.paths) {
				return s, nil
			}
			path := s.paths[s.selected]
			if _, ok := s.pathProgress(path.ID); ok {
				return s, nil
			}
			s.enrolling = true
			p := s.svc.Progress
			return s, func() tea.Msg {
				ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()
				if err := p.Enroll(ctx, path.ID); err != nil {
					return enrolledMsg{}
				}
				return enrolledMsg{progress: p.Snapshot().Learning}
			}
		}
	}
	return s, nil
}

// pathProgress finds the user's progress on a path, active or completed.
func (s *LearningScreen) pathProgress(id string) (api.PathProgress, bool) {
	if s.progress == nil {
		return api.PathProgress{}, false
	}
	for _, list := range [][]api.PathProgress{s.progress.ActivePaths, s.progress.CompletedPaths} {
		for _, pp := range list {
			if pp.PathID == id {
				return pp, true
			}
		}
	}
	return api.PathProgress{}, false
}

func (s *LearningScreen) View(width, height int) string {
	if !s.loaded {
		return placeholder.Loading("learning paths", width, height)
	}
	if s.err != nil {
		return placeholder.Error(s.err, width, height)
	}
	if len(s.paths) == 0 {
		return placeholder.Empty("No learning paths available yet.", width, height)
	}

	cw := components.ContentWidth(width)
	var b strings.Builder
	if s.progress != nil {
		b.WriteString(components.Bar("Overall", s.progress.OverallProgress/100, cw))
		b.WriteString("\n\n")
	}

	for i, p := range s.paths {
		prefix := "  "
		style := lipgloss.NewStyle().Foreground(theme.Text)
		if i == s.selected {
			prefix = "▸ "
			style = style.Foreground(theme.Primary).Bold(true)
		}
		meta := theme.Hint.Render(fmt.Sprintf("%s · %s · %d scenarios · %.0fh",
			p.Category, p.Difficulty, len(p.Scenarios), p.EstimatedHours))
		b.WriteString(style.Render(prefix+p.Name) + "  " + meta + "\n")

		if pp, ok := s.pathProgress(p.ID); ok {
			b.WriteString("    " + components.Bar("", pp.CompletionPercentage/100, cw-4) + "\n")
		} else if i == s.selected {
			b.WriteString(lipgloss.NewStyle().Foreground(theme.TextDim).Width(cw-4).
				Render("    "+p.Description) + "\n")
		}
	}

	if s.enrolling {
		b.WriteString("\n" + theme.Hint.Render("Enrolling..."))
	}

	if len(s.recs) > 0 {
		var r strings.Builder
		for i, rec := range s.recs {
			if i > 0 {
				r.WriteString("\n")
			}
			r.WriteString(lipgloss.NewStyle().Foreground(theme.Secondary).Bold(true).Render(rec.Title))
			if rec.Reason != "" {
				r.WriteString("\n" + theme.Hint.Render("  "+rec.Reason))
			}
		}
		b.WriteString("\n" + components.Card("Recommended next", r.String(), cw))
	}

	return lipgloss.PlaceHorizontal(width, lipgloss.Center, b.String())
}
