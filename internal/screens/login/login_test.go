package login

import (
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/threatlab/internal/demoserver"
	"github.com/abhisek/threatlab/internal/router"
	"github.com/abhisek/threatlab/internal/services/servicestest"
)

func typeText(s *LoginScreen, text string) {
	for _, r := range text {
		s.Update(tea.KeyPressMsg{Code: r, Text: string(r)})
	}
}

func enter(s *LoginScreen) tea.Cmd {
	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	return cmd
}

func TestSignInRoutesHome(t *testing.T) {
	svc := servicestest.New(t)
	s := New(svc)

	typeText(s, demoserver.DemoEmail)
	enter(s)
	assert.Equal(t, fieldPassword, s.focus)
	typeText(s, demoserver.DemoPassword)

	cmd := enter(s)
	require.NotNil(t, cmd)
	assert.True(t, s.busy)

	_, nav := s.Update(cmd())
	require.NotNil(t, nav)
	reset, ok := nav().(router.ResetScreenMsg)
	require.True(t, ok)
	assert.Equal(t, "Home", reset.Screen.Title())
	assert.True(t, svc.Session.Authenticated())
}

func TestWrongPasswordShowsDetail(t *testing.T) {
	svc := servicestest.New(t)
	s := New(svc)

	typeText(s, demoserver.DemoEmail)
	enter(s)
	typeText(s, "nope-nope")
	cmd := enter(s)
	require.NotNil(t, cmd)

	_, nav := s.Update(cmd())
	assert.Nil(t, nav)
	assert.Equal(t, "Incorrect email or password", s.errMsg)
	assert.Empty(t, s.fields[fieldPassword].Value())
	assert.False(t, svc.Session.Authenticated())
	assert.Contains(t, s.View(100, 30), "Incorrect email or password")
}

func TestEmptyFieldsRejectedLocally(t *testing.T) {
	s := New(servicestest.New(t))
	enter(s)
	cmd := enter(s)
	assert.Nil(t, cmd)
	assert.Equal(t, "Email and password are required", s.errMsg)
}

func TestRegisterMode(t *testing.T) {
	svc := servicestest.New(t)
	s := New(svc)

	s.Update(tea.KeyPressMsg{Code: 'r', Mod: tea.ModCtrl})
	assert.Equal(t, "Create account", s.Title())
	assert.Equal(t, 4, s.visibleFields())

	typeText(s, "new@example.com")
	enter(s)
	typeText(s, "abc")
	enter(s)
	enter(s)
	assert.Nil(t, enter(s))
	assert.Equal(t, "Password must be at least 6 characters", s.errMsg)

	s.setFocus(fieldPassword)
	typeText(s, "defghi")
	s.setFocus(fieldFirstName)
	typeText(s, "Ada")
	s.setFocus(fieldLastName)
	cmd := enter(s)
	require.NotNil(t, cmd)
	s.Update(cmd())
	require.True(t, svc.Session.Authenticated())
	assert.Equal(t, "Ada", svc.Session.User().Profile.FirstName)
}

func TestTabCyclesVisibleFields(t *testing.T) {
	s := New(servicestest.New(t))
	s.Update(tea.KeyPressMsg{Code: tea.KeyTab})
	assert.Equal(t, fieldPassword, s.focus)
	s.Update(tea.KeyPressMsg{Code: tea.KeyTab})
	assert.Equal(t, fieldEmail, s.focus)
}
