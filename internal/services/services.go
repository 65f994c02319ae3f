// Package services bundles the stores and clients every screen needs.
package services

import (
	"time"

	"github.com/abhisek/threatlab/internal/api"
	"github.com/abhisek/threatlab/internal/auth"
	"github.com/abhisek/threatlab/internal/catalog"
	"github.com/abhisek/threatlab/internal/coach"
	"github.com/abhisek/threatlab/internal/diagram"
	"github.com/abhisek/threatlab/internal/notify"
	"github.com/abhisek/threatlab/internal/progress"
	"github.com/abhisek/threatlab/internal/screen"
)

// DefaultSyncInterval is how often the editor pushes canvas state into the
// diagram store when nothing is configured.
const DefaultSyncInterval = 500 * time.Millisecond

// Services is created once at start-up and shared by all screens.
type Services struct {
	Client    *api.Client
	Session   *auth.Session
	Catalog   *catalog.Store
	Diagram   *diagram.Store
	Progress  *progress.Store
	Notifier  *notify.Center
	Autosaver *diagram.Autosaver
	// Coach is nil when no LLM provider is configured.
	Coach *coach.Coach

	SyncInterval time.Duration

	// Nav builds the screens that sign-in and sign-out route to.
	Nav Nav
}

// Nav holds screen factories so screens can route to each other without
// importing each other.
type Nav struct {
	Home  func() screen.Screen
	Login func() screen.Screen
}

// Sync returns the editor sync interval, falling back to the default.
func (s *Services) Sync() time.Duration {
	if s.SyncInterval <= 0 {
		return DefaultSyncInterval
	}
	return s.SyncInterval
}

// UserName returns the signed-in user's display name, or "".
func (s *Services) UserName() string {
	if s.Session == nil {
		return ""
	}
	if u := s.Session.User(); u != nil {
		return u.DisplayName()
	}
	return ""
}
