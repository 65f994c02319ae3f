package auth

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/threatlab/internal/api"
	"github.com/abhisek/threatlab/internal/notify"
	"github.com/abhisek/threatlab/internal/store"
)

// backend is a tiny stand-in for the auth endpoints. Requests carrying
// validToken succeed; everything else gets 401.
type backend struct {
	mu         sync.Mutex
	validToken string
	logouts    int
	logoutAuth string
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	authed := r.Header.Get("Authorization") == "Bearer "+b.validToken
	switch r.URL.Path {
	case "/api/auth/login":
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"password":"secret"`) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"detail":"Incorrect email or password"}`)
			return
		}
		_, _ = io.WriteString(w, `{"message":"Login successful","user":{"_id":"u1","email":"a@b.c"},
			"access_token":"`+b.validToken+`","token_type":"bearer"}`)
	case "/api/auth/logout":
		b.logouts++
		b.logoutAuth = r.Header.Get("Authorization")
		_, _ = io.WriteString(w, `{"message":"Logout successful"}`)
	default:
		if !authed {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"detail":"Invalid authentication credentials"}`)
			return
		}
		switch r.URL.Path {
		case "/api/auth/verify":
			_, _ = io.WriteString(w, `{"valid":true,"user":{"_id":"u1","email":"a@b.c"}}`)
		case "/api/auth/profile":
			_, _ = io.WriteString(w, `{"_id":"u1","email":"a@b.c","profile":{"first_name":"Ada"}}`)
		default:
			_, _ = io.WriteString(w, `[]`)
		}
	}
}

type fixture struct {
	backend *backend
	client  *api.Client
	kv      store.KVRepo
	session *Session
	center  *notify.Center
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	b := &backend{validToken: "good"}
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	st, err := store.Open(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	client, err := api.New(api.Options{BaseURL: srv.URL + "/api"})
	require.NoError(t, err)

	center := notify.NewCenter()
	s := New(client, st.KV(), WithNotifier(center))
	client.SetTokenSource(s)
	client.OnUnauthorized(s.ForceLogout)

	return &fixture{backend: b, client: client, kv: st.KV(), session: s, center: center}
}

func (f *fixture) storedToken(t *testing.T) (string, bool) {
	t.Helper()
	v, ok, err := f.kv.Get(context.Background(), TokenKey)
	require.NoError(t, err)
	return v, ok
}

func TestLoginStoresToken(t *testing.T) {
	f := newFixture(t)

	var events []Event
	f.session.Subscribe(func(ev Event) { events = append(events, ev) })

	u, err := f.session.Login(context.Background(), "a@b.c", "secret")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.True(t, f.session.Authenticated())
	assert.Equal(t, "good", f.session.Token())

	tok, ok := f.storedToken(t)
	assert.True(t, ok)
	assert.Equal(t, "good", tok)

	require.Len(t, events, 1)
	assert.Equal(t, "u1", events[0].User.ID)
}

func TestLoginFailureLeavesSignedOut(t *testing.T) {
	f := newFixture(t)

	_, err := f.session.Login(context.Background(), "a@b.c", "wrong")
	require.Error(t, err)
	assert.False(t, f.session.Authenticated())

	_, ok := f.storedToken(t)
	assert.False(t, ok)

	active := f.center.Active()
	require.Len(t, active, 1)
	assert.Equal(t, notify.LevelError, active[0].Level)
}

func TestCheckAuthRestoresSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.kv.Set(ctx, TokenKey, "good"))

	ok, err := f.session.CheckAuth(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a@b.c", f.session.User().Email)
}

func TestCheckAuthWithoutTokenMakesNoCall(t *testing.T) {
	f := newFixture(t)

	ok, err := f.session.CheckAuth(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckAuthRejectedTokenIsRemoved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.kv.Set(ctx, TokenKey, "stale"))

	ok, err := f.session.CheckAuth(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	_, stored := f.storedToken(t)
	assert.False(t, stored)
	assert.Empty(t, f.session.Token())
}

func TestUnauthorizedFromAnyEndpointClearsSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.session.Login(ctx, "a@b.c", "secret")
	require.NoError(t, err)

	var forced bool
	f.session.Subscribe(func(ev Event) { forced = ev.Forced && ev.User == nil })

	// The backend revokes the token.
	f.backend.mu.Lock()
	f.backend.validToken = "rotated"
	f.backend.mu.Unlock()

	_, err = f.client.ListScenarios(ctx, api.ScenarioFilter{})
	require.Error(t, err)

	assert.False(t, f.session.Authenticated())
	assert.Empty(t, f.session.Token())
	_, stored := f.storedToken(t)
	assert.False(t, stored)
	assert.True(t, forced)

	active := f.center.Active()
	require.NotEmpty(t, active)
	assert.Equal(t, notify.LevelWarning, active[len(active)-1].Level)
}

func TestLogoutClearsImmediately(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.session.Login(ctx, "a@b.c", "secret")
	require.NoError(t, err)

	f.session.Logout(ctx)
	assert.False(t, f.session.Authenticated())
	_, stored := f.storedToken(t)
	assert.False(t, stored)

	f.session.Wait()
	f.backend.mu.Lock()
	defer f.backend.mu.Unlock()
	assert.Equal(t, 1, f.backend.logouts)
	assert.Equal(t, "Bearer good", f.backend.logoutAuth, "logout must revoke the old token")
}

func TestLogoutWhileSignedOutSkipsServer(t *testing.T) {
	f := newFixture(t)

	f.session.Logout(context.Background())
	f.session.Wait()

	f.backend.mu.Lock()
	defer f.backend.mu.Unlock()
	assert.Zero(t, f.backend.logouts)
}

func TestUpdateProfileReplacesUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.session.Login(ctx, "a@b.c", "secret")
	require.NoError(t, err)

	// The test backend answers /auth/profile the same way for GET and PUT.
	name := "Ada"
	u, err := f.session.UpdateProfile(ctx, api.ProfileUpdate{FirstName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Ada", u.Profile.FirstName)
	assert.Equal(t, "Ada", f.session.User().Profile.FirstName)
}
