package scenarios

import (
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/threatlab/internal/router"
	"github.com/abhisek/threatlab/internal/services/servicestest"
)

func key(s *ScenariosScreen, text string) tea.Cmd {
	r := []rune(text)[0]
	_, cmd := s.Update(tea.KeyPressMsg{Code: r, Text: text})
	return cmd
}

func loaded(t *testing.T) *ScenariosScreen {
	t.Helper()
	s := New(servicestest.SignedIn(t))
	cmd := s.Init()
	require.NotNil(t, cmd)
	s.Update(cmd())
	require.True(t, s.loaded)
	return s
}

func TestLoadsAndLists(t *testing.T) {
	s := loaded(t)
	view := s.View(100, 30)
	assert.Contains(t, view, "E-commerce Web Application")
	assert.Contains(t, view, "45 min")
	assert.Len(t, s.svc.Catalog.Visible(), 3)
}

func TestCategoryFilterRefetches(t *testing.T) {
	s := loaded(t)
	cmd := key(s, "c")
	require.NotNil(t, cmd)
	s.Update(cmd())

	f := s.svc.Catalog.Filter()
	assert.Equal(t, s.svc.Catalog.Categories()[0], f.Category)
	for _, sc := range s.svc.Catalog.Visible() {
		assert.Equal(t, f.Category, sc.Category)
	}
}

func TestSearchNarrowsClientSide(t *testing.T) {
	s := loaded(t)
	key(s, "/")
	require.True(t, s.searching)
	for _, r := range "cloud" {
		s.Update(tea.KeyPressMsg{Code: r, Text: string(r)})
	}
	visible := s.svc.Catalog.Visible()
	require.Len(t, visible, 1)
	assert.Equal(t, "cloud-infrastructure", visible[0].ID)

	s.Update(tea.KeyPressMsg{Code: tea.KeyEscape})
	assert.False(t, s.searching)
	assert.Len(t, s.svc.Catalog.Visible(), 3)
}

func TestEnterOpensDetail(t *testing.T) {
	s := loaded(t)
	key(s, "j")
	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	require.NotNil(t, cmd)
	push, ok := cmd().(router.PushScreenMsg)
	require.True(t, ok)
	assert.Equal(t, "Scenario", push.Screen.Title())
}

func TestCycle(t *testing.T) {
	opts := []string{"api", "cloud"}
	assert.Equal(t, "api", cycle("", opts))
	assert.Equal(t, "cloud", cycle("api", opts))
	assert.Equal(t, "", cycle("cloud", opts))
	assert.Equal(t, "", cycle("x", nil))
}

func TestEscPops(t *testing.T) {
	s := loaded(t)
	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEscape})
	require.NotNil(t, cmd)
	_, ok := cmd().(router.PopScreenMsg)
	assert.True(t, ok)
}
