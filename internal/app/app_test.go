package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/threatlab/internal/auth"
	"github.com/abhisek/threatlab/internal/config"
	"github.com/abhisek/threatlab/internal/demoserver"
	"github.com/abhisek/threatlab/internal/screens/welcome"
	"github.com/abhisek/threatlab/internal/selfupdate"
	"github.com/abhisek/threatlab/internal/services/servicestest"
	"github.com/abhisek/threatlab/internal/store"
)

func TestStartsAtWelcome(t *testing.T) {
	m := newAppModel(Options{Services: servicestest.New(t)})
	assert.IsType(t, &welcome.WelcomeScreen{}, m.router.Active())
	assert.Equal(t, 1, m.router.Depth())
}

func TestForcedSignOutResetsToLogin(t *testing.T) {
	svc := servicestest.SignedIn(t)
	m := newAppModel(Options{Services: svc})
	m.router.Push(svc.Nav.Home())
	require.Equal(t, 2, m.router.Depth())

	m.Update(sessionMsg{event: auth.Event{Forced: true}})
	assert.Equal(t, 1, m.router.Depth())
	assert.Equal(t, "Sign in", m.router.Active().Title())
}

func TestVoluntarySignOutLeavesRouting(t *testing.T) {
	svc := servicestest.SignedIn(t)
	m := newAppModel(Options{Services: svc})
	m.router.Push(svc.Nav.Home())

	m.Update(sessionMsg{event: auth.Event{}})
	assert.Equal(t, 2, m.router.Depth())
}

func TestCtrlCQuits(t *testing.T) {
	m := newAppModel(Options{Services: servicestest.New(t)})
	_, cmd := m.Update(tea.KeyPressMsg{Code: 'c', Mod: tea.ModCtrl})
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)
}

func TestUpdateCheckPostsToast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/abhisek/threatlab/releases/latest", r.URL.Path)
		_, _ = w.Write([]byte(`{"tag_name":"v1.4.0","html_url":"https://example.com/r"}`))
	}))
	t.Cleanup(srv.Close)

	svc := servicestest.New(t)
	m := newAppModel(Options{
		Services: svc,
		Version:  "v1.2.0",
		Updates:  selfupdate.NewChecker(selfupdate.WithBaseURL(srv.URL)),
	})

	msg := m.checkUpdate()()
	checked, ok := msg.(updateCheckedMsg)
	require.True(t, ok)
	assert.True(t, checked.result.UpdateAvailable)

	m.Update(checked)
	var found bool
	for _, n := range svc.Notifier.Active() {
		if strings.Contains(n.Message, "v1.4.0 is available") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestNoUpdateCheckWithoutChecker(t *testing.T) {
	m := newAppModel(Options{Services: servicestest.New(t)})
	assert.Nil(t, m.checkUpdate())
}

func TestToastSchedulesExpiry(t *testing.T) {
	m := newAppModel(Options{Services: servicestest.New(t)})
	_, cmd := m.Update(toastMsg{})
	assert.NotNil(t, cmd)
}

func TestNewServices(t *testing.T) {
	srv := httptest.NewServer(demoserver.New(demoserver.Options{Seed: 1}).Handler())
	t.Cleanup(srv.Close)

	st, err := store.Open(filepath.Join(t.TempDir(), "threatlab.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "")

	cfg := &config.Config{
		API:    config.APIConfig{BaseURL: srv.URL + "/api", Timeout: 5 * time.Second},
		Editor: config.EditorConfig{SyncInterval: time.Second},
	}
	svc, err := NewServices(context.Background(), cfg, st)
	require.NoError(t, err)
	t.Cleanup(svc.Session.Wait)
	assert.Nil(t, svc.Coach)
	assert.Equal(t, time.Second, svc.Sync())

	_, err = svc.Session.Login(context.Background(), demoserver.DemoEmail, demoserver.DemoPassword)
	require.NoError(t, err)
	assert.NotEmpty(t, svc.UserName())

	WireNav(svc)
	assert.Equal(t, "Home", svc.Nav.Home().Title())
}

func TestNewServicesWithMockCoach(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "threatlab.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cfg := &config.Config{
		API: config.APIConfig{BaseURL: "http://localhost:1/api"},
		LLM: config.LLMConfig{Provider: "mock"},
	}
	svc, err := NewServices(context.Background(), cfg, st)
	require.NoError(t, err)
	assert.True(t, svc.Coach.Enabled())
}
