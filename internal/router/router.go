// Package router keeps the stack of screens and handles navigation messages.
package router

import (
	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/threatlab/internal/screen"
)

// Navigation messages. Screens emit them through the command helpers below
// and the router applies them before any other message handling.
type (
	PushScreenMsg    struct{ Screen screen.Screen }
	PopScreenMsg     struct{}
	ReplaceScreenMsg struct{ Screen screen.Screen }
	// ResetScreenMsg clears the stack. Sign-in and sign-out use it so Esc
	// cannot walk back across an auth boundary.
	ResetScreenMsg struct{ Screen screen.Screen }
)

func Push(s screen.Screen) tea.Cmd    { return func() tea.Msg { return PushScreenMsg{s} } }
func Replace(s screen.Screen) tea.Cmd { return func() tea.Msg { return ReplaceScreenMsg{s} } }
func Reset(s screen.Screen) tea.Cmd   { return func() tea.Msg { return ResetScreenMsg{s} } }

// Pop is itself a command.
func Pop() tea.Msg { return PopScreenMsg{} }

// Router is a stack of screens; only the top one is live. The bottom
// screen is never popped.
type Router struct {
	stack []screen.Screen
}

func New(root screen.Screen) *Router {
	return &Router{stack: []screen.Screen{root}}
}

func (r *Router) Active() screen.Screen {
	if len(r.stack) == 0 {
		return nil
	}
	return r.stack[len(r.stack)-1]
}

func (r *Router) Depth() int { return len(r.stack) }

// Trail lists the titles of the stacked screens, bottom first.
func (r *Router) Trail() []string {
	out := make([]string, len(r.stack))
	for i, s := range r.stack {
		out[i] = s.Title()
	}
	return out
}

// Push starts s on top of the stack.
func (r *Router) Push(s screen.Screen) tea.Cmd {
	r.stack = append(r.stack, s)
	return s.Init()
}

// Pop drops the top screen and resumes the one it uncovered.
func (r *Router) Pop() tea.Cmd {
	if len(r.stack) < 2 {
		return nil
	}
	r.stack[len(r.stack)-1] = nil
	r.stack = r.stack[:len(r.stack)-1]
	if res, ok := r.Active().(screen.Resumer); ok {
		return res.Resume()
	}
	return nil
}

// Replace swaps the top screen for s.
func (r *Router) Replace(s screen.Screen) tea.Cmd {
	if n := len(r.stack); n > 0 {
		r.stack[n-1] = s
	} else {
		r.stack = append(r.stack, s)
	}
	return s.Init()
}

// Reset makes s the only screen.
func (r *Router) Reset(s screen.Screen) tea.Cmd {
	clear(r.stack)
	r.stack = append(r.stack[:0], s)
	return s.Init()
}

// Update applies navigation messages and hands everything else to the
// active screen.
func (r *Router) Update(msg tea.Msg) tea.Cmd {
	switch m := msg.(type) {
	case PushScreenMsg:
		return r.Push(m.Screen)
	case PopScreenMsg:
		return r.Pop()
	case ReplaceScreenMsg:
		return r.Replace(m.Screen)
	case ResetScreenMsg:
		return r.Reset(m.Screen)
	}
	top := r.Active()
	if top == nil {
		return nil
	}
	next, cmd := top.Update(msg)
	r.stack[len(r.stack)-1] = next
	return cmd
}

func (r *Router) View(width, height int) string {
	if top := r.Active(); top != nil {
		return top.View(width, height)
	}
	return ""
}
