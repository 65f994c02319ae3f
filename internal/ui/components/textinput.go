package components

import (
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
)

// TextInput is a focused bubbles textinput with the app's defaults.
type TextInput struct {
	model textinput.Model
}

// NewTextInput returns a focused input. limit caps the rune count; zero
// means unlimited.
func NewTextInput(placeholder string, limit int) TextInput {
	m := textinput.New()
	m.Placeholder = placeholder
	m.CharLimit = limit
	m.Focus()
	return TextInput{model: m}
}

// NewPasswordInput masks what is typed.
func NewPasswordInput(placeholder string) TextInput {
	t := NewTextInput(placeholder, 128)
	t.model.EchoMode = textinput.EchoPassword
	t.model.EchoCharacter = '•'
	return t
}

func (t TextInput) Init() tea.Cmd { return t.model.Focus() }

func (t TextInput) Update(msg tea.Msg) (TextInput, tea.Cmd) {
	var cmd tea.Cmd
	t.model, cmd = t.model.Update(msg)
	return t, cmd
}

func (t TextInput) View() string { return t.model.View() }

func (t *TextInput) Focus() tea.Cmd { return t.model.Focus() }
func (t *TextInput) Blur()          { t.model.Blur() }
func (t TextInput) Focused() bool   { return t.model.Focused() }

func (t *TextInput) SetValue(v string) {
	t.model.SetValue(v)
	t.model.CursorEnd()
}

func (t TextInput) Value() string { return t.model.Value() }

// Trimmed is Value without surrounding whitespace.
func (t TextInput) Trimmed() string { return strings.TrimSpace(t.model.Value()) }
