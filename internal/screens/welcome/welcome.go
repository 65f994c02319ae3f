// Package welcome is the start-up splash. It restores the stored session
// and routes to the home or sign-in screen.
package welcome

import (
	"context"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/threatlab/internal/api"
	"github.com/abhisek/threatlab/internal/router"
	"github.com/abhisek/threatlab/internal/screen"
	"github.com/abhisek/threatlab/internal/ui/theme"
)

const (
	tickInterval = 100 * time.Millisecond
	minSplash    = 800 * time.Millisecond
	checkTimeout = 10 * time.Second
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

type tickMsg time.Time

type authCheckedMsg struct {
	signedIn bool
	err      error
}

// CheckFunc restores the stored session and reports whether a user is
// signed in.
type CheckFunc func(ctx context.Context) (bool, error)

// WelcomeScreen shows the banner while the stored session is checked.
type WelcomeScreen struct {
	check        CheckFunc
	home         func() screen.Screen
	login        func() screen.Screen
	elapsed      time.Duration
	tickCount    int
	checked      bool
	signedIn     bool
	err          error
	transitioned bool
}

var _ screen.Screen = (*WelcomeScreen)(nil)

// New creates a WelcomeScreen.
func New(check CheckFunc, home, login func() screen.Screen) *WelcomeScreen {
	return &WelcomeScreen{check: check, home: home, login: login}
}

func (w *WelcomeScreen) Title() string {
	return ""
}

func (w *WelcomeScreen) Init() tea.Cmd {
	check := w.check
	return tea.Batch(
		tick(),
		func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
			defer cancel()
			ok, err := check(ctx)
			return authCheckedMsg{signedIn: ok, err: err}
		},
	)
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (w *WelcomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case authCheckedMsg:
		w.checked = true
		w.signedIn = msg.signedIn
		w.err = msg.err
		if w.elapsed >= minSplash {
			return w, w.transition()
		}
		return w, nil

	case tickMsg:
		w.elapsed += tickInterval
		w.tickCount++
		if w.checked && w.elapsed >= minSplash {
			return w, w.transition()
		}
		if w.transitioned {
			return w, nil
		}
		return w, tick()

	case tea.KeyPressMsg:
		if w.checked {
			return w, w.transition()
		}
	}

	return w, nil
}

func (w *WelcomeScreen) transition() tea.Cmd {
	if w.transitioned {
		return nil
	}
	w.transitioned = true
	next := w.login
	if w.signedIn {
		next = w.home
	}
	return router.Reset(next())
}

func (w *WelcomeScreen) View(width, height int) string {
	var sections []string

	sections = append(sections, banner(width), "")
	sections = append(sections, lipgloss.NewStyle().
		Foreground(theme.Text).
		Bold(true).
		Render("Learn threat modeling by drawing it"))
	sections = append(sections, "")

	status := lipgloss.NewStyle().Foreground(theme.TextDim)
	switch {
	case !w.checked:
		frame := spinnerFrames[w.tickCount%len(spinnerFrames)]
		sections = append(sections, status.Render(frame+" checking session"))
	case w.err != nil:
		sections = append(sections,
			lipgloss.NewStyle().Foreground(theme.Warning).Render("Could not reach the backend: "+api.Describe(w.err)),
			status.Italic(true).Render("press any key to sign in"))
	default:
		sections = append(sections, status.Italic(true).Render("press any key to continue"))
	}

	content := strings.Join(sections, "\n")

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}

var logo = []string{
	"▀█▀ █ █ █▀█ █▀▀ ▄▀█ ▀█▀ █   ▄▀█ █▄▄",
	" █  █▀█ █▀▄ ██▄ █▀█  █  █▄▄ █▀█ █▄█",
}

// banner draws the block logo, or spaced letters when the logo won't fit.
func banner(width int) string {
	if width < lipgloss.Width(logo[0])+4 {
		return lipgloss.NewStyle().Foreground(theme.Primary).Bold(true).Render("T H R E A T L A B")
	}
	return lipgloss.JoinVertical(lipgloss.Center,
		lipgloss.NewStyle().Foreground(theme.Primary).Render(logo[0]),
		lipgloss.NewStyle().Foreground(theme.Secondary).Render(logo[1]),
	)
}
