package layout

import (
	"strings"
	"testing"

	"charm.land/lipgloss/v2"
	"github.com/stretchr/testify/assert"

	"github.com/abhisek/threatlab/internal/notify"
)

func TestSizeBreakpoints(t *testing.T) {
	assert.True(t, IsTooSmall(79, 30))
	assert.True(t, IsTooSmall(100, 23))
	assert.False(t, IsTooSmall(MinWidth, MinHeight))
	assert.True(t, IsCompactWidth(99))
	assert.False(t, IsCompactHeight(30))
	assert.Contains(t, TooSmall(60, 20), "60 x 20")
}

func TestHeader(t *testing.T) {
	out := Header("Scenarios", "Demo User", 100)
	assert.Contains(t, out, "ThreatLab")
	assert.Contains(t, out, "Scenarios")
	assert.Contains(t, out, "Demo User")
	assert.Equal(t, 100, lipgloss.Width(out))

	assert.Contains(t, Header("Sign in", "", 100), "not signed in")
}

func TestFooter(t *testing.T) {
	out := Footer([]KeyHint{{Key: "Esc", Description: "Back"}, {Key: "v", Description: "Validate"}}, 90)
	assert.Contains(t, out, "Esc Back")
	assert.Contains(t, out, "v Validate")
}

func TestToasts(t *testing.T) {
	assert.Empty(t, Toasts(nil, 80))

	out := Toasts([]notify.Notification{
		{Level: notify.LevelSuccess, Message: "Diagram saved"},
		{Level: notify.LevelError, Message: "Validation failed"},
	}, 80)
	lines := strings.Split(out, "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], "✓ Diagram saved")
	assert.Contains(t, lines[1], "✗ Validation failed")
}

func TestComposeFillsHeight(t *testing.T) {
	var gotW, gotH int
	out := Compose(80, 30, "head", "foot\nfoot", func(w, h int) string {
		gotW, gotH = w, h
		return "body"
	})
	assert.Equal(t, 80, gotW)
	assert.Equal(t, 27, gotH)
	assert.Equal(t, 30, lipgloss.Height(out))
	assert.True(t, strings.HasPrefix(out, "head"))
}
