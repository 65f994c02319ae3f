package components

import (
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
)

func TestMenuWrapsAndJumps(t *testing.T) {
	var ran string
	act := func(name string) func() tea.Cmd {
		return func() tea.Cmd { ran = name; return nil }
	}
	m := NewMenu([]MenuItem{
		{Label: "Scenarios", Action: act("scenarios")},
		{Label: "History", Action: act("history")},
		{Label: "Quit"},
	})
	assert.Equal(t, 0, m.Selected)

	m, _ = m.Update(tea.KeyPressMsg{Code: tea.KeyUp})
	assert.Equal(t, 2, m.Selected, "up from the top wraps")
	m, _ = m.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	assert.Equal(t, 0, m.Selected)

	m, _ = m.Update(tea.KeyPressMsg{Code: '2', Text: "2"})
	assert.Equal(t, 1, m.Selected)
	m, _ = m.Update(tea.KeyPressMsg{Code: '9', Text: "9"})
	assert.Equal(t, 1, m.Selected, "out of range digit is ignored")

	m, _ = m.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	assert.Equal(t, "history", ran)

	m.Selected = 2
	_, cmd := m.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	assert.Nil(t, cmd)
}

func TestChoiceSubmit(t *testing.T) {
	c := NewChoice("Category", []string{"all", "web", "cloud"}, 0)
	assert.Empty(t, c.Value())

	c, _ = c.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	c, _ = c.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	c, _ = c.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	assert.Equal(t, 2, c.Selected)

	c, _ = c.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	assert.Equal(t, "cloud", c.Value())

	c, _ = c.Update(tea.KeyPressMsg{Code: tea.KeyUp})
	assert.Equal(t, 2, c.Selected, "submitted choice ignores keys")
}

func TestChoiceOutOfRangeInitial(t *testing.T) {
	c := NewChoice("", []string{"a"}, 5)
	assert.Equal(t, 0, c.Selected)
}

func TestTextInputLimitAndTrim(t *testing.T) {
	ti := NewTextInput("name", 4)
	for _, r := range " abcdef" {
		ti, _ = ti.Update(tea.KeyPressMsg{Code: r, Text: string(r)})
	}
	assert.Equal(t, " abc", ti.Value())
	assert.Equal(t, "abc", ti.Trimmed())
	assert.True(t, ti.Focused())
	ti.Blur()
	assert.False(t, ti.Focused())
}

func TestPasswordInputMasks(t *testing.T) {
	ti := NewPasswordInput("password")
	ti.SetValue("hunter2")
	assert.Equal(t, "hunter2", ti.Value())
	assert.NotContains(t, ti.View(), "hunter2")
}

func TestBar(t *testing.T) {
	out := Bar("Path", 1.5, 30)
	assert.Contains(t, out, "150%")
	assert.NotContains(t, out, "░", "overfull bar is clamped to full")

	empty := Bar("", 0, 12)
	assert.Contains(t, empty, "0%")
	assert.NotContains(t, empty, "█")
	assert.Equal(t, 4, strings.Count(Bar("", 0.5, 14), "█"))
}

func TestTabBar(t *testing.T) {
	out := TabBar([]string{"Findings", "Coach"}, 1)
	assert.Contains(t, out, "Findings")
	assert.Contains(t, out, "Coach")
}
