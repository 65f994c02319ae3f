package profile

import (
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/threatlab/internal/router"
	"github.com/abhisek/threatlab/internal/services/servicestest"
)

func TestPrefillsFromSession(t *testing.T) {
	svc := servicestest.SignedIn(t)
	s := New(svc)
	u := svc.Session.User()
	require.NotNil(t, u)
	assert.Equal(t, u.Profile.FirstName, s.inputs[fieldFirstName].Value())
	assert.Contains(t, s.View(100, 40), u.Email)
}

func TestSaveSendsOnlyChanges(t *testing.T) {
	svc := servicestest.SignedIn(t)
	s := New(svc)

	_, cmd := s.Update(tea.KeyPressMsg{Code: 's', Mod: tea.ModCtrl})
	assert.Nil(t, cmd, "nothing changed")

	s.setFocus(fieldBio)
	for _, r := range "Threat hunter" {
		s.Update(tea.KeyPressMsg{Code: r, Text: string(r)})
	}
	upd, changed := s.update()
	require.True(t, changed)
	assert.Nil(t, upd.FirstName)
	require.NotNil(t, upd.Bio)
	assert.Equal(t, "Threat hunter", *upd.Bio)

	_, cmd = s.Update(tea.KeyPressMsg{Code: 's', Mod: tea.ModCtrl})
	require.NotNil(t, cmd)
	s.Update(cmd())
	assert.False(t, s.saving)
	assert.Equal(t, "Threat hunter", svc.Session.User().Profile.Bio)
	_, changed = s.update()
	assert.False(t, changed)
}

func TestToggleNotifications(t *testing.T) {
	svc := servicestest.SignedIn(t)
	s := New(svc)
	before := s.notifications

	s.setFocus(fieldNotifications)
	s.Update(tea.KeyPressMsg{Code: tea.KeySpace, Text: " "})
	assert.Equal(t, !before, s.notifications)

	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	require.NotNil(t, cmd)
	s.Update(cmd())
	assert.Equal(t, !before, svc.Session.User().Preferences.Notifications)
}

func TestEscPops(t *testing.T) {
	s := New(servicestest.SignedIn(t))
	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEscape})
	require.NotNil(t, cmd)
	_, ok := cmd().(router.PopScreenMsg)
	assert.True(t, ok)
}
