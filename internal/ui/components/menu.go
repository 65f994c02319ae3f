package components

import (
	tea "charm.land/bubbletea/v2"
)

// MenuItem is one entry of a Menu.
type MenuItem struct {
	Label  string
	Action func() tea.Cmd
}

// Menu tracks the cursor over a fixed list of actions. Rendering is left to
// the owning screen. The cursor wraps at both ends and digits 1-9 jump
// straight to an item.
type Menu struct {
	Items    []MenuItem
	Selected int
}

func NewMenu(items []MenuItem) Menu {
	return Menu{Items: items}
}

// Update moves the cursor or runs the selected action on enter.
func (m Menu) Update(msg tea.Msg) (Menu, tea.Cmd) {
	key, ok := msg.(tea.KeyPressMsg)
	if !ok || len(m.Items) == 0 {
		return m, nil
	}
	n := len(m.Items)
	switch s := key.String(); s {
	case "up", "k":
		m.Selected = (m.Selected - 1 + n) % n
	case "down", "j", "tab":
		m.Selected = (m.Selected + 1) % n
	case "home", "g":
		m.Selected = 0
	case "end", "G":
		m.Selected = n - 1
	case "enter", "space":
		if a := m.Items[m.Selected].Action; a != nil {
			return m, a()
		}
	default:
		if len(s) == 1 && s[0] >= '1' && s[0] <= '9' {
			if i := int(s[0] - '1'); i < n {
				m.Selected = i
			}
		}
	}
	return m, nil
}
