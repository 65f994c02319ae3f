// Package servicestest builds a Services bundle against an in-process
// demo backend for screen tests.
package servicestest

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/threatlab/internal/api"
	"github.com/abhisek/threatlab/internal/auth"
	"github.com/abhisek/threatlab/internal/catalog"
	"github.com/abhisek/threatlab/internal/demoserver"
	"github.com/abhisek/threatlab/internal/diagram"
	"github.com/abhisek/threatlab/internal/notify"
	"github.com/abhisek/threatlab/internal/progress"
	"github.com/abhisek/threatlab/internal/screen"
	"github.com/abhisek/threatlab/internal/services"
	"github.com/abhisek/threatlab/internal/store"
)

// New returns a signed-out Services bundle wired to a fresh demo backend.
func New(t *testing.T) *services.Services {
	t.Helper()

	srv := httptest.NewServer(demoserver.New(demoserver.Options{Seed: 1}).Handler())
	t.Cleanup(srv.Close)

	st, err := store.Open(filepath.Join(t.TempDir(), "threatlab.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	client, err := api.New(api.Options{BaseURL: srv.URL + "/api"})
	require.NoError(t, err)

	center := notify.NewCenter()
	sess := auth.New(client, st.KV(), auth.WithNotifier(center))
	client.SetTokenSource(sess)
	client.OnUnauthorized(sess.ForceLogout)
	t.Cleanup(sess.Wait)

	return &services.Services{
		Client:       client,
		Session:      sess,
		Catalog:      catalog.New(client, center),
		Diagram:      diagram.New(client, diagram.WithNotifier(center), diagram.WithIDGenerator(&diagram.SequenceGenerator{})),
		Progress:     progress.New(client, center),
		Notifier:     center,
		Autosaver:    diagram.NewAutosaver(st.DraftRepo(), 0),
		SyncInterval: 10 * time.Millisecond,
		Nav: services.Nav{
			Home:  func() screen.Screen { return &Stub{Name: "Home"} },
			Login: func() screen.Screen { return &Stub{Name: "Sign in"} },
		},
	}
}

// Stub is an inert screen standing in for real navigation targets.
type Stub struct {
	Name string
}

func (s *Stub) Init() tea.Cmd                           { return nil }
func (s *Stub) Update(tea.Msg) (screen.Screen, tea.Cmd) { return s, nil }
func (s *Stub) View(int, int) string                    { return s.Name }
func (s *Stub) Title() string                           { return s.Name }

// SignedIn returns New with the demo user signed in.
func SignedIn(t *testing.T) *services.Services {
	t.Helper()
	svc := New(t)
	_, err := svc.Session.Login(context.Background(), demoserver.DemoEmail, demoserver.DemoPassword)
	require.NoError(t, err)
	return svc
}

// Drain runs cmd and every command it batches, returning the produced
// messages in order.
func Drain(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	batch, ok := msg.(tea.BatchMsg)
	if !ok {
		if msg == nil {
			return nil
		}
		return []tea.Msg{msg}
	}
	var out []tea.Msg
	for _, c := range batch {
		out = append(out, Drain(c)...)
	}
	return out
}
