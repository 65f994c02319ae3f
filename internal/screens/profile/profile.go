// Package profile edits the signed-in user's profile and preferences.
package profile

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
	fieldFirstName = iota
	fieldLastName
	fieldBio
	fieldNotifications
	fieldCount
)

type savedMsg struct {
	user *api.User
	err  error
}

// ProfileScreen is a small form over the user's profile.
type ProfileScreen struct {
	svc           *services.Services
	user          *api.User
	inputs        []components.TextInput
	notifications bool
	focus         int
	saving        bool
}

var _ screen.Screen = (*ProfileScreen)(nil)
var _ screen.KeyHintProvider = (*ProfileScreen)(nil)

// New creates a ProfileScreen for the current user.
func New(svc *services.Services) *ProfileScreen {
	s := &ProfileScreen{
		svc: svc,
		inputs: []components.TextInput{
			components.NewTextInput("first name", 64),
			components.NewTextInput("last name", 64),
			components.NewTextInput("a line about you", 200),
		},
	}
	s.reset(svc.Session.User())
	s.setFocus(fieldFirstName)
	return s
}

func (s *ProfileScreen) reset(u *api.User) {
	s.user = u
	if u == nil {
		return
	}
	s.inputs[fieldFirstName].SetValue(u.Profile.FirstName)
	s.inputs[fieldLastName].SetValue(u.Profile.LastName)
	s.inputs[fieldBio].SetValue(u.Profile.Bio)
	s.notifications = u.Preferences.Notifications
}

func (s *ProfileScreen) Init() tea.Cmd {
	return s.inputs[fieldFirstName].Init()
}

func (s *ProfileScreen) Title() string {
	return "Profile"
}

func (s *ProfileScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Tab", Description: "Next field"},
		{Key: "Space", Description: "Toggle"},
		{Key: "Ctrl+S", Description: "Save"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *ProfileScreen) setFocus(i int) tea.Cmd {
	s.focus = ((i % fieldCount) + fieldCount) % fieldCount
	for j := range s.inputs {
		s.inputs[j].Blur()
	}
	if s.focus < len(s.inputs) {
		return s.inputs[s.focus].Focus()
	}
	return nil
}

func (s *ProfileScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case savedMsg:
		s.saving = false
		if msg.err == nil {
			s.reset(msg.user)
		}
		return s, nil

	case tea.KeyMsg:
		if s.saving || s.user == nil {
			if msg.String() == "esc" {
				return s, router.Pop
			}
			return s, nil
		}
		switch msg.String() {
		case "esc":
			return s, router.Pop
		case "tab", "down":
			return s, s.setFocus(s.focus + 1)
		case "shift+tab", "up":
			return s, s.setFocus(s.focus - 1)
		case "ctrl+s":
			return s, s.save()
		case "enter":
			if s.focus == fieldNotifications {
				return s, s.save()
			}
			return s, s.setFocus(s.focus + 1)
		case "space", " ":
			if s.focus == fieldNotifications {
				s.notifications = !s.notifications
				return s, nil
			}
		}
	}

	if s.focus < len(s.inputs) {
		var cmd tea.Cmd
		s.inputs[s.focus], cmd = s.inputs[s.focus].Update(msg)
		return s, cmd
	}
	return s, nil
}

// update builds a partial update with only the fields that changed.
func (s *ProfileScreen) update() (api.ProfileUpdate, bool) {
	var upd api.ProfileUpdate
	changed := false
	diff := func(cur, orig string) *string {
		cur = strings.TrimSpace(cur)
		if cur == orig {
			return nil
		}
		changed = true
		return &cur
	}
	p := s.user.Profile
	upd.FirstName = diff(s.inputs[fieldFirstName].Value(), p.FirstName)
	upd.LastName = diff(s.inputs[fieldLastName].Value(), p.LastName)
	upd.Bio = diff(s.inputs[fieldBio].Value(), p.Bio)
	if s.notifications != s.user.Preferences.Notifications {
		n := s.notifications
		upd.Notifications = &n
		changed = true
	}
	return upd, changed
}

func (s *ProfileScreen) save() tea.Cmd {
	upd, changed := s.update()
	if !changed {
		return nil
	}
	s.saving = true
	sess := s.svc.Session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		u, err := sess.UpdateProfile(ctx, upd)
		return savedMsg{user: u, err: err}
	}
}

func (s *ProfileScreen) View(width, height int) string {
	if s.user == nil {
		return placeholder.Empty("Not signed in.", width, height)
	}
	u := s.user
	label := lipgloss.NewStyle().Foreground(theme.TextDim).Width(15)
	focused := func(i int) lipgloss.Style {
		if i == s.focus {
			return label.Foreground(theme.Primary).Bold(true)
		}
		return label
	}

	var b strings.Builder
	b.WriteString(label.Render("Email") + u.Email + "\n")
	if u.Role != "" {
		b.WriteString(label.Render("Role") + u.Role + "\n")
	}
	if !u.CreatedAt.IsZero() {
		b.WriteString(label.Render("Member since") + u.CreatedAt.Format("Jan 2006") + "\n")
	}
	b.WriteString(label.Render("Level") + fmt.Sprintf("%d  (%d XP)", u.Progress.Level, u.Progress.ExperiencePoints) + "\n\n")

	names := []string{"First name", "Last name", "Bio"}
	for i, in := range s.inputs {
		b.WriteString(focused(i).Render(names[i]) + in.View() + "\n")
	}
	toggle := "[ ] off"
	if s.notifications {
		toggle = "[x] on"
	}
	b.WriteString(focused(fieldNotifications).Render("Notifications") + toggle)

	if s.saving {
		b.WriteString("\n\n" + theme.Hint.Render("Saving..."))
	} else if _, changed := s.update(); changed {
		b.WriteString("\n\n" + lipgloss.NewStyle().Foreground(theme.Warning).Render("Unsaved changes"))
	}

	card := components.Card(u.DisplayName(), b.String(), components.ContentWidth(width))
	return components.CenteredFrame(card, width, height)
}
