// Package auth keeps the signed-in user and the bearer token.
package auth

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/abhisek/threatlab/internal/api"
	"github.com/abhisek/threatlab/internal/logging"
	"github.com/abhisek/threatlab/internal/notify"
	"github.com/abhisek/threatlab/internal/store"
)

// TokenKey is the local storage key of the bearer token.
const TokenKey = "auth.token"

// logoutTimeout bounds the best-effort server logout call.
const logoutTimeout = 5 * time.Second

// Remote is the subset of the API client the session uses.
type Remote interface {
	Login(ctx context.Context, req api.LoginRequest) (*api.AuthResponse, error)
	Register(ctx context.Context, req api.RegisterRequest) (*api.AuthResponse, error)
	Verify(ctx context.Context) (*api.VerifyResponse, error)
	UpdateProfile(ctx context.Context, upd api.ProfileUpdate) (*api.User, error)
	Logout(ctx context.Context, token string) error
}

// Event is delivered to subscribers on every sign-in or sign-out.
type Event struct {
	// User is nil after a sign-out.
	User *api.User
	// Forced is set when the sign-out came from a rejected token.
	Forced bool
}

// Option configures a Session.
type Option func(*Session)

// WithNotifier sets where failure toasts go.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Session) { s.notifier = n }
}

// WithLogger sets the logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *Session) { s.log = l }
}

// Session is the signed-in state. It implements api.TokenSource.
type Session struct {
	remote   Remote
	kv       store.KVRepo
	notifier notify.Notifier
	log      *zap.SugaredLogger

	mu    sync.RWMutex
	token string
	user  *api.User

	subMu  sync.Mutex
	subs   map[int]func(Event)
	nextID int

	// bg tracks best-effort server logouts.
	bg sync.WaitGroup
}

var _ api.TokenSource = (*Session)(nil)

// New creates a signed-out Session. Call CheckAuth to restore a stored
// token.
func New(remote Remote, kv store.KVRepo, opts ...Option) *Session {
	s := &Session{
		remote:   remote,
		kv:       kv,
		notifier: notify.Discard{},
		log:      logging.Component("auth"),
		subs:     make(map[int]func(Event)),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Token returns the bearer token, or "".
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the signed-in user, or nil.
func (s *Session) User() *api.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Authenticated reports whether a user is signed in.
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && s.token != ""
}

// Subscribe registers fn for sign-in and sign-out events.
func (s *Session) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Session) publish(ev Event) {
	s.subMu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// Login exchanges credentials for a token and stores it.
func (s *Session) Login(ctx context.Context, email, password string) (*api.User, error) {
	resp, err := s.remote.Login(ctx, api.LoginRequest{Email: email, Password: password})
	if err != nil {
		s.fail("Login failed", err)
		return nil, err
	}
	return s.signIn(ctx, resp)
}

// Register creates an account and signs it in.
func (s *Session) Register(ctx context.Context, req api.RegisterRequest) (*api.User, error) {
	resp, err := s.remote.Register(ctx, req)
	if err != nil {
		s.fail("Registration failed", err)
		return nil, err
	}
	return s.signIn(ctx, resp)
}

func (s *Session) signIn(ctx context.Context, resp *api.AuthResponse) (*api.User, error) {
	if resp.AccessToken == "" {
		err := errors.New("backend returned no access token")
		s.fail("Login failed", err)
		return nil, err
	}
	if err := s.kv.Set(ctx, TokenKey, resp.AccessToken); err != nil {
		s.fail("Could not store session", err)
		return nil, err
	}

	user := resp.User
	s.mu.Lock()
	s.token = resp.AccessToken
	s.user = &user
	s.mu.Unlock()

	s.log.Infow("signed in", "user", user.Email)
	s.publish(Event{User: s.User()})
	return s.User(), nil
}

// CheckAuth restores the stored token and asks the backend who it belongs
// to. It reports whether a user is signed in afterwards. A rejected token
// is removed; on transport errors the token stays stored for the next
// attempt and the error is returned.
func (s *Session) CheckAuth(ctx context.Context) (bool, error) {
	tok, ok, err := s.kv.Get(ctx, TokenKey)
	if err != nil {
		return false, errors.Wrap(err, "read stored token")
	}
	if !ok || tok == "" {
		return false, nil
	}

	s.mu.Lock()
	s.token = tok
	s.mu.Unlock()

	resp, err := s.remote.Verify(ctx)
	switch {
	case err == nil && resp.Valid:
		user := resp.User
		s.mu.Lock()
		s.user = &user
		s.mu.Unlock()
		s.publish(Event{User: s.User()})
		return true, nil
	case err == nil || errors.Is(err, api.ErrUnauthorized):
		s.clear(ctx)
		return false, nil
	default:
		s.mu.Lock()
		s.token = ""
		s.user = nil
		s.mu.Unlock()
		s.log.Warnw("verify failed", logging.FieldError, err)
		return false, err
	}
}

// Logout clears the session and the stored token immediately. The server
// is told in the background; its answer does not matter.
func (s *Session) Logout(ctx context.Context) {
	tok := s.Token()
	s.clear(ctx)
	s.publish(Event{})

	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), logoutTimeout)
		defer cancel()
		if tok == "" {
			return
		}
		if err := s.remote.Logout(ctx, tok); err != nil {
			s.log.Debugw("server logout failed", logging.FieldError, err)
		}
	}()
}

// ForceLogout ends the session after the backend rejected the token. It is
// wired to the API client's unauthorized hook.
func (s *Session) ForceLogout() {
	s.mu.RLock()
	had := s.token != "" || s.user != nil
	s.mu.RUnlock()

	s.clear(context.Background())
	if had {
		s.notifier.Notify(notify.LevelWarning, "Your session has expired. Please sign in again.")
		s.publish(Event{Forced: true})
	}
}

// Wait blocks until background server logouts have finished.
func (s *Session) Wait() {
	s.bg.Wait()
}

func (s *Session) clear(ctx context.Context) {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()
	if err := s.kv.Delete(ctx, TokenKey); err != nil {
		s.log.Warnw("delete stored token", logging.FieldError, err)
	}
}

// UpdateProfile sends a partial profile update and replaces the cached user.
func (s *Session) UpdateProfile(ctx context.Context, upd api.ProfileUpdate) (*api.User, error) {
	user, err := s.remote.UpdateProfile(ctx, upd)
	if err != nil {
		s.fail("Profile update failed", err)
		return nil, err
	}
	s.mu.Lock()
	s.user = user
	s.mu.Unlock()
	s.notifier.Notify(notify.LevelSuccess, "Profile updated")
	return s.User(), nil
}

func (s *Session) fail(msg string, err error) {
	s.log.Warnw(msg, logging.FieldError, err)
	s.notifier.Error(msg, err)
}
