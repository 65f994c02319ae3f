package welcome

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/threatlab/internal/router"
	"github.com/abhisek/threatlab/internal/screen"
)

// stubScreen is a minimal screen implementation for testing.
type stubScreen struct{ name string }

func (s *stubScreen) Init() tea.Cmd                           { return nil }
func (s *stubScreen) Update(tea.Msg) (screen.Screen, tea.Cmd) { return s, nil }
func (s *stubScreen) View(int, int) string                    { return s.name }
func (s *stubScreen) Title() string                           { return s.name }

func newTestWelcome(ok bool, err error) *WelcomeScreen {
	return New(
		func(context.Context) (bool, error) { return ok, err },
		func() screen.Screen { return &stubScreen{name: "home"} },
		func() screen.Screen { return &stubScreen{name: "login"} },
	)
}

func sendTicks(w *WelcomeScreen, n int) tea.Cmd {
	var cmd tea.Cmd
	for i := 0; i < n; i++ {
		_, cmd = w.Update(tickMsg(time.Now()))
	}
	return cmd
}

func resetTarget(t *testing.T, cmd tea.Cmd) string {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a navigation command")
	}
	msg, ok := cmd().(router.ResetScreenMsg)
	if !ok {
		t.Fatalf("expected ResetScreenMsg, got %T", cmd())
	}
	return msg.Screen.Title()
}

func TestSignedInRoutesHomeAfterSplash(t *testing.T) {
	w := newTestWelcome(true, nil)
	_, cmd := w.Update(authCheckedMsg{signedIn: true})
	if cmd != nil {
		t.Error("should wait for the minimum splash time")
	}

	cmd = sendTicks(w, int(minSplash/tickInterval))
	if got := resetTarget(t, cmd); got != "home" {
		t.Errorf("routed to %q, want home", got)
	}
}

func TestSignedOutRoutesToLogin(t *testing.T) {
	w := newTestWelcome(false, nil)
	sendTicks(w, int(minSplash/tickInterval))
	_, cmd := w.Update(authCheckedMsg{})
	if got := resetTarget(t, cmd); got != "login" {
		t.Errorf("routed to %q, want login", got)
	}
}

func TestKeyPressSkipsSplashOnlyAfterCheck(t *testing.T) {
	w := newTestWelcome(true, nil)
	_, cmd := w.Update(tea.KeyPressMsg{Code: ' '})
	if cmd != nil {
		t.Error("key press before the check should do nothing")
	}

	w.Update(authCheckedMsg{signedIn: true})
	_, cmd = w.Update(tea.KeyPressMsg{Code: ' '})
	if got := resetTarget(t, cmd); got != "home" {
		t.Errorf("routed to %q, want home", got)
	}

	_, cmd = w.Update(tea.KeyPressMsg{Code: ' '})
	if cmd != nil {
		t.Error("transition should happen only once")
	}
}

func TestCheckErrorIsShown(t *testing.T) {
	w := newTestWelcome(false, errors.New("connection refused"))
	msgs := w.Init()
	if msgs == nil {
		t.Fatal("Init should start the check")
	}
	w.Update(authCheckedMsg{err: errors.New("connection refused")})
	view := w.View(80, 24)
	if !strings.Contains(view, "connection refused") {
		t.Error("view should show the check error")
	}
}
