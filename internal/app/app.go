// Package app hosts the root Bubble Tea model.
package app

import (
	"context"
	"fmt"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/threatlab/internal/auth"
	"github.com/abhisek/threatlab/internal/logging"
	"github.com/abhisek/threatlab/internal/notify"
	"github.com/abhisek/threatlab/internal/router"
	"github.com/abhisek/threatlab/internal/screen"
	"github.com/abhisek/threatlab/internal/screens/home"
	"github.com/abhisek/threatlab/internal/screens/login"
	"github.com/abhisek/threatlab/internal/screens/welcome"
	"github.com/abhisek/threatlab/internal/selfupdate"
	"github.com/abhisek/threatlab/internal/services"
	"github.com/abhisek/threatlab/internal/ui/layout"
)

const updateCheckTimeout = 10 * time.Second

// Options configures Run.
type Options struct {
	Services *services.Services

	// Version is the running build's version, used for the update check.
	Version string

	// Updates checks for a newer release at start-up. Nil skips the check.
	Updates *selfupdate.Checker
}

// toastMsg re-renders when a notification arrives.
type toastMsg struct {
	note notify.Notification
}

// toastExpiredMsg re-renders once a notification's TTL has elapsed.
type toastExpiredMsg struct{}

// sessionMsg carries a sign-in or sign-out event from the session.
type sessionMsg struct {
	event auth.Event
}

type updateCheckedMsg struct {
	result *selfupdate.CheckResult
}

// AppModel is the root Bubble Tea model.
type AppModel struct {
	router  *router.Router
	svc     *services.Services
	version string
	updates *selfupdate.Checker
	width   int
	height  int
}

// WireNav points the sign-in and sign-out routes at the real screens.
func WireNav(svc *services.Services) {
	svc.Nav = services.Nav{
		Home:  func() screen.Screen { return home.New(svc) },
		Login: func() screen.Screen { return login.New(svc) },
	}
}

// newAppModel creates an AppModel starting at the welcome screen.
func newAppModel(opts Options) AppModel {
	svc := opts.Services
	if svc.Nav.Home == nil || svc.Nav.Login == nil {
		WireNav(svc)
	}
	start := welcome.New(svc.Session.CheckAuth, svc.Nav.Home, svc.Nav.Login)
	return AppModel{
		router:  router.New(start),
		svc:     svc,
		version: opts.Version,
		updates: opts.Updates,
	}
}

func (m AppModel) Init() tea.Cmd {
	return tea.Batch(m.router.Active().Init(), m.checkUpdate())
}

func (m AppModel) checkUpdate() tea.Cmd {
	if m.updates == nil {
		return nil
	}
	checker, version := m.updates, m.version
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), updateCheckTimeout)
		defer cancel()
		res, err := checker.Check(ctx, &selfupdate.CheckInput{Version: version})
		if err != nil {
			logging.Component("app").Debugw("update check failed", logging.FieldError, err)
			return nil
		}
		return updateCheckedMsg{result: res}
	}
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, m.router.Update(msg)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

	case toastMsg:
		ttl := msg.note.TTL
		return m, tea.Tick(ttl, func(time.Time) tea.Msg { return toastExpiredMsg{} })

	case toastExpiredMsg:
		return m, nil

	case sessionMsg:
		if msg.event.Forced {
			return m, m.router.Reset(m.svc.Nav.Login())
		}
		return m, nil

	case updateCheckedMsg:
		if msg.result.UpdateAvailable {
			m.svc.Notifier.Notify(notify.LevelInfo,
				fmt.Sprintf("threatlab %s is available. Run threatlab update", msg.result.LatestVersion))
		}
		return m, nil
	}

	return m, m.router.Update(msg)
}

func (m AppModel) keyHints() []layout.KeyHint {
	if p, ok := m.router.Active().(screen.KeyHintProvider); ok {
		return p.KeyHints()
	}
	if m.router.Depth() > 1 {
		return []layout.KeyHint{
			{Key: "Esc", Description: "Back"},
			{Key: "Ctrl+C", Description: "Quit"},
		}
	}
	return []layout.KeyHint{{Key: "Ctrl+C", Description: "Quit"}}
}

func (m AppModel) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true

	if m.width == 0 || m.height == 0 {
		return v
	}

	if layout.IsTooSmall(m.width, m.height) {
		v.SetContent(layout.TooSmall(m.width, m.height))
		return v
	}

	title := ""
	if active := m.router.Active(); active != nil {
		title = active.Title()
	}

	header := layout.Header(title, m.svc.UserName(), m.width)
	footer := layout.Footer(m.keyHints(), m.width)
	if toasts := layout.Toasts(m.svc.Notifier.Active(), m.width); toasts != "" {
		footer = toasts + "\n" + footer
	}
	v.SetContent(layout.Compose(m.width, m.height, header, footer, m.router.View))
	return v
}

// Run starts the Bubble Tea program and blocks until it exits.
func Run(opts Options) error {
	p := tea.NewProgram(newAppModel(opts))

	svc := opts.Services
	unsubToasts := svc.Notifier.Subscribe(func(n notify.Notification) {
		go p.Send(toastMsg{note: n})
	})
	defer unsubToasts()
	unsubSession := svc.Session.Subscribe(func(e auth.Event) {
		go p.Send(sessionMsg{event: e})
	})
	defer unsubSession()

	_, err := p.Run()
	svc.Session.Wait()
	return err
}
