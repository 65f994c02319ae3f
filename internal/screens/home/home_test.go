package home

import (
	"context"
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/threatlab/internal/api"
	"github.com/abhisek/threatlab/internal/router"
	"github.com/abhisek/threatlab/internal/screens/scenarios"
	"github.com/abhisek/threatlab/internal/services/servicestest"
)

func down(h *HomeScreen, n int) {
	for range n {
		h.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	}
}

func TestDashboardLoads(t *testing.T) {
	svc := servicestest.SignedIn(t)
	ctx := context.Background()
	svc.Diagram.NewNode(api.NodeServer, api.Position{}, "Web")
	_, err := svc.Diagram.SaveDiagram(ctx, "Shop", "ecommerce-web")
	require.NoError(t, err)
	_, err = svc.Diagram.SubmitForScoring(ctx, 600)
	require.NoError(t, err)

	h := New(svc)
	h.Update(h.Init()())
	require.NotNil(t, h.stats)
	require.NotNil(t, h.timeline)
	assert.Len(t, h.timeline.Timeline, 1)

	view := h.View(120, 40)
	assert.Contains(t, view, "Welcome back, "+svc.UserName())
	assert.Contains(t, view, "SCENARIOS")
	assert.Contains(t, view, "Coach is off")
}

func TestEnterPushesScenarios(t *testing.T) {
	h := New(servicestest.SignedIn(t))
	_, cmd := h.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	require.NotNil(t, cmd)
	push, ok := cmd().(router.PushScreenMsg)
	require.True(t, ok)
	assert.IsType(t, &scenarios.ScenariosScreen{}, push.Screen)
}

func TestSignOutResetsToLogin(t *testing.T) {
	svc := servicestest.SignedIn(t)
	h := New(svc)
	down(h, 5)
	require.Equal(t, "SIGN OUT", h.menuLabels[h.menu.Selected])

	_, cmd := h.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	require.NotNil(t, cmd)
	reset, ok := cmd().(router.ResetScreenMsg)
	require.True(t, ok)
	assert.Equal(t, "Sign in", reset.Screen.Title())
	assert.False(t, svc.Session.Authenticated())
}

func TestQuit(t *testing.T) {
	h := New(servicestest.SignedIn(t))
	down(h, 6)
	_, cmd := h.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)
}
