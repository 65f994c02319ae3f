// Package placeholder renders the loading, empty and error states that
// screens degrade to.
package placeholder

import (
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/cockroachdb/errors"

	"github.com/abhisek/threatlab/internal/api"
	"github.com/abhisek/threatlab/internal/router"
	"github.com/abhisek/threatlab/internal/screen"
	"github.com/abhisek/threatlab/internal/ui/theme"
)

// Loading renders a centered "Loading ..." line.
func Loading(what string, width, height int) string {
	return centered(width, height, lipgloss.NewStyle().Foreground(theme.TextDim).
		Render("Loading "+what+"..."))
}

// Empty renders a centered hint for an empty list.
func Empty(msg string, width, height int) string {
	return centered(width, height, lipgloss.NewStyle().Foreground(theme.TextDim).Italic(true).
		Render(msg))
}

// Error renders err and its first hint.
func Error(err error, width, height int) string {
	msg := lipgloss.NewStyle().Foreground(theme.Error).Bold(true).
		Render("Something went wrong: " + api.Describe(err))
	if hints := errors.GetAllHints(err); len(hints) > 0 {
		msg += "\n\n" + theme.Hint.Render(hints[0])
	}
	return centered(width, height, msg)
}

func centered(width, height int, s string) string {
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(s)
}

// PlaceholderScreen shows a fixed message, for features that are not
// available in the current setup.
type PlaceholderScreen struct {
	title   string
	message string
}

var _ screen.Screen = (*PlaceholderScreen)(nil)

// New creates a new PlaceholderScreen with the given title and message.
func New(title, message string) *PlaceholderScreen {
	return &PlaceholderScreen{title: title, message: message}
}

func (p *PlaceholderScreen) Init() tea.Cmd {
	return nil
}

func (p *PlaceholderScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok && k.String() == "enter" {
		return p, router.Pop
	}
	return p, nil
}

func (p *PlaceholderScreen) View(width, height int) string {
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.Text).
		Render(p.message)
}

func (p *PlaceholderScreen) Title() string {
	return p.title
}
