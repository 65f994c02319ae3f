package achievements

import (
	"context"
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/threatlab/internal/api"
	"github.com/abhisek/threatlab/internal/router"
	"github.com/abhisek/threatlab/internal/services"
	"github.com/abhisek/threatlab/internal/services/servicestest"
)

func loaded(t *testing.T, svc *services.Services) *AchievementsScreen {
	t.Helper()
	s := New(svc)
	s.Update(s.Init()())
	require.True(t, s.loaded)
	require.NoError(t, s.err)
	return s
}

func TestFreshUserHasOnlyLockedBadges(t *testing.T) {
	s := loaded(t, servicestest.SignedIn(t))
	assert.Empty(t, s.filtered())
	assert.Contains(t, s.View(120, 40), "No badges yet")

	s.Update(tea.KeyPressMsg{Code: tea.KeyTab})
	assert.NotEmpty(t, s.filtered())
	assert.Contains(t, s.View(120, 40), "First Steps")
}

func TestCheckAwardsAndReloads(t *testing.T) {
	svc := servicestest.SignedIn(t)
	ctx := context.Background()
	svc.Diagram.NewNode(api.NodeServer, api.Position{}, "Web")
	_, err := svc.Diagram.SaveDiagram(ctx, "Shop", "ecommerce-web")
	require.NoError(t, err)
	_, err = svc.Diagram.SubmitForScoring(ctx, 600)
	require.NoError(t, err)

	s := loaded(t, svc)
	_, cmd := s.Update(tea.KeyPressMsg{Code: 'c', Text: "c"})
	require.NotNil(t, cmd)
	_, cmd = s.Update(cmd())
	require.NotNil(t, cmd, "new badges trigger a reload")
	s.Update(cmd())

	var ids []string
	for _, b := range s.filtered() {
		ids = append(ids, b.BadgeID)
	}
	assert.Contains(t, ids, "first_steps")
}

func TestCheckWithNothingNew(t *testing.T) {
	s := loaded(t, servicestest.SignedIn(t))
	_, cmd := s.Update(tea.KeyPressMsg{Code: 'c', Text: "c"})
	require.NotNil(t, cmd)
	_, cmd = s.Update(cmd())
	assert.Nil(t, cmd)
	assert.Contains(t, s.View(120, 40), "No new achievements")
}

func TestEscPops(t *testing.T) {
	s := loaded(t, servicestest.SignedIn(t))
	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEscape})
	require.NotNil(t, cmd)
	_, ok := cmd().(router.PopScreenMsg)
	assert.True(t, ok)
}
