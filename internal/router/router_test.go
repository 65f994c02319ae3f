package router

import (
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/threatlab/internal/screen"
)

type fakeScreen struct {
	title   string
	inits   int
	resumes int
	seen    []tea.Msg
}

func (s *fakeScreen) Init() tea.Cmd { s.inits++; return nil }
func (s *fakeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	s.seen = append(s.seen, msg)
	return s, nil
}
func (s *fakeScreen) View(w, h int) string { return s.title }
func (s *fakeScreen) Title() string        { return s.title }

type resumable struct{ fakeScreen }

func (s *resumable) Resume() tea.Cmd {
	s.resumes++
	return func() tea.Msg { return "resumed" }
}

func screens(titles ...string) []*fakeScreen {
	out := make([]*fakeScreen, len(titles))
	for i, t := range titles {
		out[i] = &fakeScreen{title: t}
	}
	return out
}

func TestNavigation(t *testing.T) {
	s := screens("home", "scenarios", "editor", "score", "login")
	r := New(s[0])

	r.Update(PushScreenMsg{s[1]})
	r.Update(PushScreenMsg{s[2]})
	assert.Equal(t, []string{"home", "scenarios", "editor"}, r.Trail())
	assert.Equal(t, 1, s[2].inits)

	r.Update(ReplaceScreenMsg{s[3]})
	assert.Equal(t, []string{"home", "scenarios", "score"}, r.Trail())
	assert.Equal(t, 1, s[3].inits)

	r.Update(PopScreenMsg{})
	assert.Equal(t, "scenarios", r.Active().Title())

	r.Update(ResetScreenMsg{s[4]})
	assert.Equal(t, []string{"login"}, r.Trail())
	assert.Equal(t, 1, s[4].inits)

	r.Update(PopScreenMsg{})
	assert.Equal(t, 1, r.Depth(), "the root screen stays")
}

func TestUpdateForwardsToActiveOnly(t *testing.T) {
	s := screens("home", "history")
	r := New(s[0])
	r.Push(s[1])

	r.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	assert.Empty(t, s[0].seen)
	require.Len(t, s[1].seen, 1)
	assert.Equal(t, "history", r.View(10, 10))
}

func TestPopResumesUncoveredScreen(t *testing.T) {
	editor := &resumable{fakeScreen{title: "editor"}}
	r := New(editor)
	r.Push(&fakeScreen{title: "validation"})

	cmd := r.Pop()
	assert.Equal(t, 1, editor.resumes)
	require.NotNil(t, cmd)
	assert.Equal(t, "resumed", cmd())
}

func TestCommandHelpers(t *testing.T) {
	s := &fakeScreen{title: "x"}
	assert.IsType(t, PushScreenMsg{}, Push(s)())
	assert.IsType(t, ReplaceScreenMsg{}, Replace(s)())
	assert.IsType(t, ResetScreenMsg{}, Reset(s)())
	assert.IsType(t, PopScreenMsg{}, Pop())
}
