// Package login is the sign-in and registration form.
package login

import (
	"context"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/threatlab/internal/api"
	"github.com/abhisek/threatlab/internal/router"
	"github.com/abhisek/threatlab/internal/screen"
	"github.com/abhisek/threatlab/internal/services"
	"github.com/abhisek/threatlab/internal/ui/components"
	"github.com/abhisek/threatlab/internal/ui/layout"
	"github.com/abhisek/threatlab/internal/ui/theme"
)

// minPasswordLen matches the backend's registration rule.
const minPasswordLen = 6

type mode int

const (
	modeSignIn mode = iota
	modeRegister
)

const (
	fieldEmail = iota
	fieldPassword
	fieldFirstName
	fieldLastName
)

type resultMsg struct {
	user *api.User
	err  error
}

// LoginScreen signs a user in or registers a new account.
type LoginScreen struct {
	svc    *services.Services
	mode   mode
	fields []components.TextInput
	focus  int
	busy   bool
	errMsg string
}

var _ screen.Screen = (*LoginScreen)(nil)
var _ screen.KeyHintProvider = (*LoginScreen)(nil)

// New creates a LoginScreen in sign-in mode.
func New(svc *services.Services) *LoginScreen {
	s := &LoginScreen{
		svc: svc,
		fields: []components.TextInput{
			components.NewTextInput("email", 254),
			components.NewPasswordInput("password"),
			components.NewTextInput("first name (optional)", 64),
			components.NewTextInput("last name (optional)", 64),
		},
	}
	s.setFocus(fieldEmail)
	return s
}

func (s *LoginScreen) Init() tea.Cmd {
	return s.fields[s.focus].Init()
}

func (s *LoginScreen) Title() string {
	if s.mode == modeRegister {
		return "Create account"
	}
	return "Sign in"
}

func (s *LoginScreen) KeyHints() []layout.KeyHint {
	other := "Register"
	if s.mode == modeRegister {
		other = "Sign in"
	}
	return []layout.KeyHint{
		{Key: "Enter", Description: "Next / Submit"},
		{Key: "Tab", Description: "Next field"},
		{Key: "Ctrl+R", Description: other},
		{Key: "Ctrl+C", Description: "Quit"},
	}
}

func (s *LoginScreen) visibleFields() int {
	if s.mode == modeRegister {
		return len(s.fields)
	}
	return fieldPassword + 1
}

func (s *LoginScreen) setFocus(i int) tea.Cmd {
	n := s.visibleFields()
	i = ((i % n) + n) % n
	for j := range s.fields {
		s.fields[j].Blur()
	}
	s.focus = i
	return s.fields[i].Focus()
}

func (s *LoginScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case resultMsg:
		s.busy = false
		if msg.err != nil {
			s.errMsg = api.Describe(msg.err)
			s.fields[fieldPassword].SetValue("")
			return s, s.setFocus(fieldPassword)
		}
		return s, router.Reset(s.svc.Nav.Home())

	case tea.KeyMsg:
		if s.busy {
			return s, nil
		}
		switch msg.String() {
		case "ctrl+r":
			if s.mode == modeSignIn {
				s.mode = modeRegister
			} else {
				s.mode = modeSignIn
			}
			s.errMsg = ""
			return s, s.setFocus(fieldEmail)
		case "tab", "down":
			return s, s.setFocus(s.focus + 1)
		case "shift+tab", "up":
			return s, s.setFocus(s.focus - 1)
		case "enter":
			if s.focus < s.visibleFields()-1 {
				return s, s.setFocus(s.focus + 1)
			}
			return s, s.submit()
		}
	}

	var cmd tea.Cmd
	s.fields[s.focus], cmd = s.fields[s.focus].Update(msg)
	return s, cmd
}

func (s *LoginScreen) submit() tea.Cmd {
	email := s.fields[fieldEmail].Trimmed()
	password := s.fields[fieldPassword].Value()

	switch {
	case email == "" || password == "":
		s.errMsg = "Email and password are required"
		return nil
	case s.mode == modeRegister && !strings.Contains(email, "@"):
		s.errMsg = "Enter a valid email address"
		return nil
	case s.mode == modeRegister && len(password) < minPasswordLen:
		s.errMsg = "Password must be at least 6 characters"
		return nil
	}

	s.errMsg = ""
	s.busy = true
	sess := s.svc.Session

	if s.mode == modeRegister {
		req := api.RegisterRequest{
			Email:     email,
			Password:  password,
			FirstName: s.fields[fieldFirstName].Trimmed(),
			LastName:  s.fields[fieldLastName].Trimmed(),
		}
		return func() tea.Msg {
			u, err := sess.Register(context.Background(), req)
			return resultMsg{user: u, err: err}
		}
	}
	return func() tea.Msg {
		u, err := sess.Login(context.Background(), email, password)
		return resultMsg{user: u, err: err}
	}
}

func (s *LoginScreen) View(width, height int) string {
	labels := []string{"Email", "Password", "First name", "Last name"}
	label := lipgloss.NewStyle().Foreground(theme.TextDim).Width(12)

	var rows []string
	for i := 0; i < s.visibleFields(); i++ {
		l := label
		if i == s.focus {
			l = l.Foreground(theme.Primary).Bold(true)
		}
		rows = append(rows, l.Render(labels[i])+s.fields[i].View())
	}

	body := strings.Join(rows, "\n\n")
	switch {
	case s.busy:
		body += "\n\n" + lipgloss.NewStyle().Foreground(theme.TextDim).Render("Contacting "+s.svc.Client.BaseURL()+"...")
	case s.errMsg != "":
		body += "\n\n" + lipgloss.NewStyle().Foreground(theme.Error).Render(s.errMsg)
	}

	cw := components.ContentWidth(width)
	card := components.Card(s.Title(), body, cw)
	return components.CenteredFrame(card, width, height)
}
